package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-market/internal/domain"
	"auction-market/pkg/logger"
	"auction-market/pkg/utils"
)

// maxBidAttempts bounds the retry loop around the ledger's conditional
// update. Each retry re-reads the auction and re-validates, so a loser of
// the race is either admitted against the new price or rejected on merit.
const maxBidAttempts = 3

// BidService is the bid arbiter: it enforces the admission policy (open
// window, strictly increasing price) and delegates the atomic append to the
// ledger. One successful call changes exactly one auction's price.
type BidService struct {
	ledger     domain.AuctionLedger
	bids       domain.BidRepository
	priceCache domain.PriceCache
	events     domain.EventPublisher
	log        logger.Logger
}

func NewBidService(
	ledger domain.AuctionLedger,
	bids domain.BidRepository,
	priceCache domain.PriceCache,
	events domain.EventPublisher,
	log logger.Logger,
) *BidService {
	return &BidService{
		ledger:     ledger,
		bids:       bids,
		priceCache: priceCache,
		events:     events,
		log:        log,
	}
}

// PlaceBid admits or rejects a single bid against the auction's current
// state. The time comparison here is the single authoritative check: a bid
// arriving in the same instant the sweeper closes the auction is decided by
// this comparison, backed by the ledger's status condition.
func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64, now time.Time) (*domain.Bid, error) {
	s.log.Info("Placing bid", "auction_id", auctionID, "bidder_id", bidderID, "amount", amount)

	// Cheap pre-check against the cache. The cached price never exceeds the
	// committed price and a terminal status never reverts, so any rejection
	// here would also be a rejection against the store.
	if s.priceCache != nil {
		if snap, err := s.priceCache.GetSnapshot(ctx, auctionID); err == nil && snap != nil {
			if snap.Status.Terminal() || !now.Before(snap.CloseTime) {
				return nil, domain.ErrAuctionClosed
			}
			if amount <= snap.CurrentPrice {
				return nil, domain.ErrInvalidAmount
			}
		}
	}

	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		auction, err := s.ledger.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		if auction.Status != domain.AuctionActive || !now.Before(auction.CloseTime) {
			return nil, domain.ErrAuctionClosed
		}

		// Strict increase, uniformly: the first bid must exceed the initial
		// price, not merely match it.
		if amount <= auction.CurrentPrice {
			return nil, domain.ErrInvalidAmount
		}

		bid := &domain.Bid{
			ID:        utils.GenerateID("bid"),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		}

		err = s.ledger.AppendBid(ctx, bid, auction.CurrentPrice)
		if errors.Is(err, domain.ErrPriceConflict) {
			s.log.Debug("Bid lost the price race, retrying",
				"auction_id", auctionID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to append bid for auction %s: %w", auctionID, err)
		}

		s.afterAdmission(ctx, bid)
		return bid, nil
	}

	return nil, domain.ErrBidConflict
}

// afterAdmission refreshes the cache and publishes the event. Both are
// best-effort: the bid is already durable and the cache only trails the
// store, so a failure here is logged, not surfaced.
func (s *BidService) afterAdmission(ctx context.Context, bid *domain.Bid) {
	if s.priceCache != nil {
		if err := s.priceCache.SetPrice(ctx, bid.AuctionID, bid.Amount); err != nil {
			s.log.Warn("Failed to refresh price cache", "auction_id", bid.AuctionID, "error", err)
		}
	}

	if s.events != nil {
		event := &domain.BidEvent{
			Type:      domain.BidAccepted,
			BidID:     bid.ID,
			AuctionID: bid.AuctionID,
			BidderID:  bid.BidderID,
			Amount:    bid.Amount,
			Timestamp: bid.CreatedAt,
		}
		if err := s.events.PublishBidEvent(ctx, event); err != nil {
			s.log.Warn("Failed to publish bid event", "auction_id", bid.AuctionID, "error", err)
		}
	}
}

// ListBids returns an auction's bids, most recent first, with bidder names
// resolved.
func (s *BidService) ListBids(ctx context.Context, auctionID string) ([]*domain.BidView, error) {
	if _, err := s.ledger.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}

	bids, err := s.bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}
