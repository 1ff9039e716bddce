package domain

import (
	"time"
)

type Auction struct {
	ID           string        `json:"id"`
	SellerID     string        `json:"seller_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Category     string        `json:"category"`
	Image        string        `json:"image,omitempty"`
	InitialPrice float64       `json:"initial_price"`
	CurrentPrice float64       `json:"current_price"`
	Status       AuctionStatus `json:"-"`
	CloseTime    time.Time     `json:"close_time"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type AuctionStatus int

const (
	AuctionActive AuctionStatus = iota
	AuctionSold
	AuctionUnsold
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionActive:
		return "activo"
	case AuctionSold:
		return "vendido"
	case AuctionUnsold:
		return "desierto"
	case AuctionCancelled:
		return "cancelado"
	default:
		return "desconocido"
	}
}

// Terminal reports whether no further status transition is allowed.
func (s AuctionStatus) Terminal() bool {
	return s != AuctionActive
}

// Bid rows are append-only: once admitted a bid is never edited or retracted.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// BidView is a bid joined with the bidder's display name for listings.
type BidView struct {
	Bid
	BidderName string `json:"bidder_name"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
}

type UserStats struct {
	TotalAuctions int64 `json:"total_auctions"`
	TotalBids     int64 `json:"total_bids"`
}

// PriceSnapshot is the cached hot state of an auction. The cache only ever
// lags behind the store, never leads it: the price only increases and a
// terminal status never reverts, so a rejection based on the snapshot is
// always a valid rejection.
type PriceSnapshot struct {
	AuctionID    string
	CurrentPrice float64
	Status       AuctionStatus
	CloseTime    time.Time
}

type BidEvent struct {
	Type      BidEventType `json:"type"`
	BidID     string       `json:"bid_id,omitempty"`
	AuctionID string       `json:"auction_id"`
	BidderID  string       `json:"bidder_id,omitempty"`
	Amount    float64      `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

type BidEventType string

const (
	BidAccepted  BidEventType = "bid_accepted"
	AuctionEnded BidEventType = "auction_ended"
)
