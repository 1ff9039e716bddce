package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-market/internal/domain"
	"auction-market/pkg/logger"
	"auction-market/pkg/utils"

	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-memory AuctionLedger with the same compare-and-set
// semantics as the mysql implementation.
type fakeLedger struct {
	mu             sync.Mutex
	auctions       map[string]*domain.Auction
	bids           map[string][]*domain.Bid
	appendCalls    int
	appendFailures int // forced ErrPriceConflict for the first N calls
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		auctions: make(map[string]*domain.Auction),
		bids:     make(map[string][]*domain.Bid),
	}
}

func (l *fakeLedger) addAuction(a *domain.Auction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *a
	l.auctions[a.ID] = &copied
}

func (l *fakeLedger) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	l.addAuction(auction)
	return nil
}

func (l *fakeLedger) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	auction, ok := l.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	copied := *auction
	return &copied, nil
}

func (l *fakeLedger) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var auctions []*domain.Auction
	for _, a := range l.auctions {
		copied := *a
		auctions = append(auctions, &copied)
	}
	return auctions, nil
}

func (l *fakeLedger) AppendBid(ctx context.Context, bid *domain.Bid, expectedPrice float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.appendCalls++
	if l.appendFailures > 0 {
		l.appendFailures--
		return domain.ErrPriceConflict
	}

	auction, ok := l.auctions[bid.AuctionID]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if auction.Status != domain.AuctionActive || auction.CurrentPrice != expectedPrice {
		return domain.ErrPriceConflict
	}

	auction.CurrentPrice = bid.Amount
	l.bids[bid.AuctionID] = append(l.bids[bid.AuctionID], bid)
	return nil
}

func (l *fakeLedger) CloseExpired(ctx context.Context, now time.Time) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var closed []string
	for _, a := range l.auctions {
		if a.Status != domain.AuctionActive || a.CloseTime.After(now) {
			continue
		}
		if len(l.bids[a.ID]) > 0 {
			a.Status = domain.AuctionSold
		} else {
			a.Status = domain.AuctionUnsold
		}
		closed = append(closed, a.ID)
	}
	return closed, nil
}

func (l *fakeLedger) CancelAuction(ctx context.Context, auctionID, sellerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	auction, ok := l.auctions[auctionID]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if auction.SellerID != sellerID {
		return domain.ErrNotSeller
	}
	if auction.Status != domain.AuctionActive {
		return domain.ErrAuctionClosed
	}
	auction.Status = domain.AuctionCancelled
	return nil
}

func (l *fakeLedger) CountBySeller(ctx context.Context, sellerID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var count int64
	for _, a := range l.auctions {
		if a.SellerID == sellerID {
			count++
		}
	}
	return count, nil
}

func (l *fakeLedger) recordedBids(auctionID string) []*domain.Bid {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domain.Bid(nil), l.bids[auctionID]...)
}

func (l *fakeLedger) currentPrice(auctionID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.auctions[auctionID].CurrentPrice
}

type fakeBidRepo struct {
	views []*domain.BidView
}

func (r *fakeBidRepo) ListByAuction(ctx context.Context, auctionID string) ([]*domain.BidView, error) {
	return r.views, nil
}

func (r *fakeBidRepo) CountByBidder(ctx context.Context, bidderID string) (int64, error) {
	return int64(len(r.views)), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.BidEvent
}

func (p *fakePublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func testAuction(closeTime time.Time, initialPrice float64) *domain.Auction {
	return &domain.Auction{
		ID:           utils.GenerateID("auction"),
		SellerID:     "seller1",
		Title:        "Cuadro al óleo",
		Category:     "Arte",
		InitialPrice: initialPrice,
		CurrentPrice: initialPrice,
		Status:       domain.AuctionActive,
		CloseTime:    closeTime,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestPlaceBid_StrictlyIncreasingAmounts(t *testing.T) {
	ledger := newFakeLedger()
	service := NewBidService(ledger, &fakeBidRepo{}, nil, nil, logger.NewNop())

	now := time.Now()
	auction := testAuction(now.Add(time.Hour), 50)
	ledger.addAuction(auction)

	attempts := []struct {
		amount   float64
		admitted bool
	}{
		{50, false}, // equals initial price, strict increase required
		{75, true},
		{60, false},
		{75, false}, // equals current price
		{80, true},
		{100, true},
	}

	for _, attempt := range attempts {
		bid, err := service.PlaceBid(context.Background(), auction.ID, "bidder1", attempt.amount, now)
		if attempt.admitted {
			require.NoError(t, err)
			require.Equal(t, attempt.amount, bid.Amount)
			require.Equal(t, attempt.amount, ledger.currentPrice(auction.ID))
		} else {
			require.ErrorIs(t, err, domain.ErrInvalidAmount)
		}
	}

	recorded := ledger.recordedBids(auction.ID)
	require.Len(t, recorded, 3)
	for i := 1; i < len(recorded); i++ {
		require.Greater(t, recorded[i].Amount, recorded[i-1].Amount)
	}
}

func TestPlaceBid_AuctionNotFound(t *testing.T) {
	service := NewBidService(newFakeLedger(), &fakeBidRepo{}, nil, nil, logger.NewNop())

	_, err := service.PlaceBid(context.Background(), "auction-missing", "bidder1", 100, time.Now())
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestPlaceBid_AdmissionWindow(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		closeTime time.Time
		status    domain.AuctionStatus
	}{
		{"bid_at_close_time", now, domain.AuctionActive},
		{"bid_after_close_time", now.Add(-time.Minute), domain.AuctionActive},
		{"auction_sold", now.Add(time.Hour), domain.AuctionSold},
		{"auction_cancelled", now.Add(time.Hour), domain.AuctionCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			auction := testAuction(tt.closeTime, 50)
			auction.Status = tt.status
			ledger.addAuction(auction)

			service := NewBidService(ledger, &fakeBidRepo{}, nil, nil, logger.NewNop())

			// Amount qualifies; only the window/status should reject.
			_, err := service.PlaceBid(context.Background(), auction.ID, "bidder1", 500, now)
			require.ErrorIs(t, err, domain.ErrAuctionClosed)
			require.Empty(t, ledger.recordedBids(auction.ID))
		})
	}
}

func TestPlaceBid_RetriesConflictThenAdmits(t *testing.T) {
	ledger := newFakeLedger()
	now := time.Now()
	auction := testAuction(now.Add(time.Hour), 50)
	ledger.addAuction(auction)
	ledger.appendFailures = 2

	service := NewBidService(ledger, &fakeBidRepo{}, nil, nil, logger.NewNop())

	bid, err := service.PlaceBid(context.Background(), auction.ID, "bidder1", 75, now)
	require.NoError(t, err)
	require.Equal(t, 75.0, bid.Amount)
	require.Equal(t, 3, ledger.appendCalls)
}

func TestPlaceBid_ConflictBudgetExhausted(t *testing.T) {
	ledger := newFakeLedger()
	now := time.Now()
	auction := testAuction(now.Add(time.Hour), 50)
	ledger.addAuction(auction)
	ledger.appendFailures = maxBidAttempts

	service := NewBidService(ledger, &fakeBidRepo{}, nil, nil, logger.NewNop())

	_, err := service.PlaceBid(context.Background(), auction.ID, "bidder1", 75, now)
	require.ErrorIs(t, err, domain.ErrBidConflict)
	require.Empty(t, ledger.recordedBids(auction.ID))
}

// Two concurrent bids must never produce a lost update: either both are
// admitted in price order, or the lower one is rejected after losing the
// race. The final price always reflects the highest admitted bid.
func TestPlaceBid_ConcurrentBidsNoLostUpdate(t *testing.T) {
	for i := 0; i < 100; i++ {
		ledger := newFakeLedger()
		now := time.Now()
		auction := testAuction(now.Add(time.Hour), 50)
		ledger.addAuction(auction)

		service := NewBidService(ledger, &fakeBidRepo{}, nil, nil, logger.NewNop())

		var wg sync.WaitGroup
		errs := make([]error, 2)
		amounts := []float64{100, 120}
		for j, amount := range amounts {
			wg.Add(1)
			go func(idx int, amt float64) {
				defer wg.Done()
				_, errs[idx] = service.PlaceBid(context.Background(), auction.ID, "bidder", amt, now)
			}(j, amount)
		}
		wg.Wait()

		// The 120 bid always qualifies in every interleaving.
		require.NoError(t, errs[1])
		require.Equal(t, 120.0, ledger.currentPrice(auction.ID))

		recorded := ledger.recordedBids(auction.ID)
		switch len(recorded) {
		case 1:
			require.Equal(t, 120.0, recorded[0].Amount)
			require.ErrorIs(t, errs[0], domain.ErrInvalidAmount)
		case 2:
			require.NoError(t, errs[0])
			require.Equal(t, 100.0, recorded[0].Amount)
			require.Equal(t, 120.0, recorded[1].Amount)
		default:
			t.Fatalf("unexpected number of admitted bids: %d", len(recorded))
		}
	}
}

func TestPlaceBid_PublishesAcceptedEvent(t *testing.T) {
	ledger := newFakeLedger()
	publisher := &fakePublisher{}
	now := time.Now()
	auction := testAuction(now.Add(time.Hour), 50)
	ledger.addAuction(auction)

	service := NewBidService(ledger, &fakeBidRepo{}, nil, publisher, logger.NewNop())

	bid, err := service.PlaceBid(context.Background(), auction.ID, "bidder1", 75, now)
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	require.Equal(t, domain.BidAccepted, event.Type)
	require.Equal(t, bid.ID, event.BidID)
	require.Equal(t, auction.ID, event.AuctionID)
	require.Equal(t, 75.0, event.Amount)
}

func TestListBids_UnknownAuction(t *testing.T) {
	service := NewBidService(newFakeLedger(), &fakeBidRepo{}, nil, nil, logger.NewNop())

	_, err := service.ListBids(context.Background(), "auction-missing")
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}
