package redis

import (
	"context"
	"encoding/json"
	"time"

	"auction-market/internal/domain"
	"auction-market/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const bidEventsChannel = "bid_events"

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}

type RedisEventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (r *RedisEventPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, bidEventsChannel, payload).Err()
}

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToBidEvents blocks until ctx is cancelled, invoking handler for
// every event published on the bid channel by any server instance.
func (r *RedisEventSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, bidEventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to bid events", "channel", bidEventsChannel)

	for {
		select {
		case msg := <-ch:
			var event domain.BidEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Error("Failed to decode bid event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				r.log.Error("Failed to handle bid event", "auction_id", event.AuctionID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Bid event subscriber stopped")
			return ctx.Err()
		}
	}
}
