package redis

import (
	"context"
	"fmt"
	"strconv"

	"auction-market/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisPriceCache mirrors the hot fields of an auction row (current price,
// status, close time) so the arbiter can reject hopeless bids without a
// round trip to MySQL. The cache always trails the store, so reject-only
// reads from it are safe; admissions always go through the ledger.
type RedisPriceCache struct {
	client *redis.Client
}

func NewPriceCache(client *redis.Client) *RedisPriceCache {
	return &RedisPriceCache{client: client}
}

func auctionKey(auctionID string) string {
	return fmt.Sprintf("auction:%s", auctionID)
}

func (r *RedisPriceCache) InitAuction(ctx context.Context, auction *domain.Auction) error {
	return r.client.HSet(ctx, auctionKey(auction.ID),
		"current_price", fmt.Sprintf("%.2f", auction.CurrentPrice),
		"status", int(auction.Status),
		"close_time", auction.CloseTime.Unix(),
	).Err()
}

func (r *RedisPriceCache) GetSnapshot(ctx context.Context, auctionID string) (*domain.PriceSnapshot, error) {
	result, err := r.client.HMGet(ctx, auctionKey(auctionID),
		"current_price", "status", "close_time").Result()
	if err != nil {
		return nil, err
	}

	// A nil field means the auction was never cached; callers fall back to
	// the ledger.
	if result[0] == nil || result[1] == nil || result[2] == nil {
		return nil, nil
	}

	price, err := strconv.ParseFloat(result[0].(string), 64)
	if err != nil {
		return nil, err
	}
	status, err := strconv.Atoi(result[1].(string))
	if err != nil {
		return nil, err
	}
	closeUnix, err := strconv.ParseInt(result[2].(string), 10, 64)
	if err != nil {
		return nil, err
	}

	return &domain.PriceSnapshot{
		AuctionID:    auctionID,
		CurrentPrice: price,
		Status:       domain.AuctionStatus(status),
		CloseTime:    unixTime(closeUnix),
	}, nil
}

func (r *RedisPriceCache) SetPrice(ctx context.Context, auctionID string, price float64) error {
	return r.client.HSet(ctx, auctionKey(auctionID),
		"current_price", fmt.Sprintf("%.2f", price)).Err()
}

func (r *RedisPriceCache) SetStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	return r.client.HSet(ctx, auctionKey(auctionID), "status", int(status)).Err()
}
