package domain

import "errors"

// Storage-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")

	// ErrPriceConflict means the conditional price update matched no row:
	// another bid was admitted between the read and the write, or the
	// auction left the active state. The arbiter reloads and retries.
	ErrPriceConflict = errors.New("current price changed concurrently")
)

// Admission policy errors
var (
	ErrAuctionClosed = errors.New("auction has ended")
	ErrInvalidAmount = errors.New("bid amount must exceed current price")

	// ErrBidConflict surfaces after the bounded retry budget is spent.
	ErrBidConflict = errors.New("too many concurrent bid attempts")
)

// Account errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotSeller          = errors.New("caller is not the auction seller")
)

// ErrInvalidInput marks request validation failures whose message is safe
// to surface to the caller.
var ErrInvalidInput = errors.New("invalid input")
