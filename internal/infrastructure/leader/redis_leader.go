package leader

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const leaderKey = "auction_closer_leader"

// RedisLeaderElection elects a single instance to run the expiry sweeper.
// Leadership is a SetNX lease renewed at a fraction of its TTL; losing the
// renewal simply stops the heartbeat and another instance takes over.
type RedisLeaderElection struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLeaderElection(client *redis.Client, ttl time.Duration) *RedisLeaderElection {
	return &RedisLeaderElection{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisLeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	acquired, err := r.client.SetNX(ctx, leaderKey, instanceID, r.ttl).Result()
	if err != nil {
		return false, err
	}

	if acquired {
		go r.maintainLeadership(instanceID)
	}

	return acquired, nil
}

func (r *RedisLeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	currentLeader, err := r.client.Get(ctx, leaderKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	return currentLeader == instanceID, nil
}

func (r *RedisLeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	// Only the holder may delete the key.
	luaScript := `
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("DEL", KEYS[1])
        else
            return 0
        end
    `

	_, err := r.client.Eval(ctx, luaScript, []string{leaderKey}, instanceID).Result()
	return err
}

func (r *RedisLeaderElection) maintainLeadership(instanceID string) {
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		luaScript := `
            if redis.call("GET", KEYS[1]) == ARGV[1] then
                return redis.call("EXPIRE", KEYS[1], ARGV[2])
            else
                return 0
            end
        `

		result, err := r.client.Eval(ctx, luaScript, []string{leaderKey},
			instanceID, int(r.ttl.Seconds())).Result()

		cancel()

		if err != nil || result.(int64) == 0 {
			// Lost the lease, stop the heartbeat.
			break
		}
	}
}
