package services

import (
	"context"
	"fmt"
	"time"

	"auction-market/internal/domain"
	"auction-market/pkg/logger"
	"auction-market/pkg/utils"
)

var validCategories = map[string]bool{
	"Arte":       true,
	"Tecnología": true,
	"Casa":       true,
	"Otros":      true,
}

var (
	errTitleRequired   = fmt.Errorf("%w: el título es requerido", domain.ErrInvalidInput)
	errInvalidCategory = fmt.Errorf("%w: categoría desconocida", domain.ErrInvalidInput)
	errInvalidPrice    = fmt.Errorf("%w: el precio inicial debe ser positivo", domain.ErrInvalidInput)
	errCloseTimeInPast = fmt.Errorf("%w: la fecha de cierre debe ser futura", domain.ErrInvalidInput)
)

type AuctionService struct {
	ledger     domain.AuctionLedger
	priceCache domain.PriceCache
	events     domain.EventPublisher
	log        logger.Logger
}

func NewAuctionService(
	ledger domain.AuctionLedger,
	priceCache domain.PriceCache,
	events domain.EventPublisher,
	log logger.Logger,
) *AuctionService {
	return &AuctionService{
		ledger:     ledger,
		priceCache: priceCache,
		events:     events,
		log:        log,
	}
}

type CreateAuctionInput struct {
	Title        string
	Description  string
	Category     string
	Image        string
	InitialPrice float64
	CloseTime    time.Time
}

// CreateAuction opens a listing for the seller. The current price starts at
// the initial price so the strict-increase rule applies uniformly from the
// first bid on.
func (s *AuctionService) CreateAuction(ctx context.Context, sellerID string, input CreateAuctionInput) (*domain.Auction, error) {
	if input.Title == "" {
		return nil, errTitleRequired
	}
	if !validCategories[input.Category] {
		return nil, errInvalidCategory
	}
	if input.InitialPrice <= 0 {
		return nil, errInvalidPrice
	}
	now := time.Now()
	if !input.CloseTime.After(now) {
		return nil, errCloseTimeInPast
	}

	auction := &domain.Auction{
		ID:           utils.GenerateID("auction"),
		SellerID:     sellerID,
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Image:        input.Image,
		InitialPrice: input.InitialPrice,
		CurrentPrice: input.InitialPrice,
		Status:       domain.AuctionActive,
		CloseTime:    input.CloseTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.ledger.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	if s.priceCache != nil {
		if err := s.priceCache.InitAuction(ctx, auction); err != nil {
			s.log.Warn("Failed to seed price cache", "auction_id", auction.ID, "error", err)
		}
	}

	s.log.Info("Auction created", "auction_id", auction.ID, "seller_id", sellerID)
	return auction, nil
}

func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return s.ledger.GetAuction(ctx, auctionID)
}

func (s *AuctionService) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	return s.ledger.ListAuctions(ctx)
}

// CancelAuction is the seller's terminal transition. Auctions with bids are
// never deleted; cancellation only flips the status.
func (s *AuctionService) CancelAuction(ctx context.Context, auctionID, sellerID string) error {
	if err := s.ledger.CancelAuction(ctx, auctionID, sellerID); err != nil {
		return err
	}

	if s.priceCache != nil {
		if err := s.priceCache.SetStatus(ctx, auctionID, domain.AuctionCancelled); err != nil {
			s.log.Warn("Failed to update cached status", "auction_id", auctionID, "error", err)
		}
	}
	s.publishEnded(ctx, auctionID, time.Now())

	s.log.Info("Auction cancelled", "auction_id", auctionID, "seller_id", sellerID)
	return nil
}

// CloseExpired transitions every auction past its close time. The sweep is
// idempotent: a second run over the same set affects zero rows and emits no
// events.
func (s *AuctionService) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	closed, err := s.ledger.CloseExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired auctions: %w", err)
	}

	for _, auctionID := range closed {
		s.publishEnded(ctx, auctionID, now)
	}

	if len(closed) > 0 {
		s.log.Info("Closed expired auctions", "count", len(closed))
	}
	return int64(len(closed)), nil
}

// publishEnded tells watchers the auction reached a terminal state. Best
// effort: the status transition is already committed.
func (s *AuctionService) publishEnded(ctx context.Context, auctionID string, at time.Time) {
	if s.events == nil {
		return
	}
	event := &domain.BidEvent{
		Type:      domain.AuctionEnded,
		AuctionID: auctionID,
		Timestamp: at,
	}
	if err := s.events.PublishBidEvent(ctx, event); err != nil {
		s.log.Warn("Failed to publish ended event", "auction_id", auctionID, "error", err)
	}
}
