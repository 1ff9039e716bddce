package domain

import (
	"context"
	"time"
)

// Repository interfaces

// AuctionLedger is the durable record of auctions and their bids. AppendBid
// is the only write path the arbiter uses; it must be atomic and serialized
// per auction (see the mysql implementation).
type AuctionLedger interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	ListAuctions(ctx context.Context) ([]*Auction, error)

	// AppendBid records the bid and advances the auction's current price in
	// one transaction, conditional on the price still being expectedPrice
	// and the auction still being active. Returns ErrPriceConflict when the
	// condition no longer holds; neither write is visible in that case.
	AppendBid(ctx context.Context, bid *Bid, expectedPrice float64) error

	// CloseExpired transitions every active auction whose close time has
	// passed to sold (bids exist) or unsold (no bids) and returns the ids
	// it closed. Idempotent: an already-terminal auction is never returned
	// twice.
	CloseExpired(ctx context.Context, now time.Time) ([]string, error)

	CancelAuction(ctx context.Context, auctionID, sellerID string) error
	CountBySeller(ctx context.Context, sellerID string) (int64, error)
}

type BidRepository interface {
	ListByAuction(ctx context.Context, auctionID string) ([]*BidView, error)
	CountByBidder(ctx context.Context, bidderID string) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, userID string) error
}

// Cache interfaces

type PriceCache interface {
	InitAuction(ctx context.Context, auction *Auction) error
	GetSnapshot(ctx context.Context, auctionID string) (*PriceSnapshot, error)
	SetPrice(ctx context.Context, auctionID string, price float64) error
	SetStatus(ctx context.Context, auctionID string, status AuctionStatus) error
}

// Event interfaces

type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventHandler func(event *BidEvent) error

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

// Leader election interface

type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces

type WatcherConnection interface {
	Send(message []byte) error
	Close() error
	AuctionID() string
}

type AuctionBroadcaster interface {
	RegisterWatcher(auctionID string, conn WatcherConnection)
	UnregisterWatcher(auctionID string, conn WatcherConnection)
	BroadcastToAuction(auctionID string, message interface{}) error
	CloseAuction(auctionID string) error
}
