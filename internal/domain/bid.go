package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is one user's current bid in an auction. A later bid by the same user
// replaces the earlier one; only the latest amount counts.
type Bid struct {
	UserID   string
	Amount   decimal.Decimal
	PlacedAt time.Time
}

// RoundWinner is a single ranked entry in a settled round. Rank is 1-based,
// matching the leaderboard numbering.
type RoundWinner struct {
	Rank        int
	UserID      string
	BidAmount   decimal.Decimal
	BidPlacedAt time.Time
}

// RoundResult is the immutable outcome of one settled round, keyed uniquely
// by (AuctionID, RoundNumber).
type RoundResult struct {
	AuctionID   string
	RoundNumber int
	Winners     []RoundWinner
	CreatedAt   time.Time
}

// User is a registered bidder.
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
