package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BidLedger is the ranked bid store for an auction. Entries are ordered by
// amount descending with earlier placement winning ties. Implementations
// keep full bid metadata alongside the ranking structure; the ranking score
// is never the source of truth for amounts.
type BidLedger interface {
	// PlaceBid upserts the user's bid. A later call replaces the earlier
	// amount and placement time.
	PlaceBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal, placedAt time.Time) error
	// GetUserBid returns the user's current bid, or ErrNotFound.
	GetUserBid(ctx context.Context, auctionID, userID string) (Bid, error)
	// GetUserRank returns the user's 0-based descending rank, or ErrNotFound.
	GetUserRank(ctx context.Context, auctionID, userID string) (int, error)
	GetTopBidders(ctx context.Context, auctionID string, limit int) ([]Bid, error)
	// GetBiddersChunk returns one raw page of the ranking. Pages partition
	// the ledger completely; a page shorter than limit is the last one.
	GetBiddersChunk(ctx context.Context, auctionID string, offset, limit int) ([]Bid, error)
	RemoveBidders(ctx context.Context, auctionID string, userIDs []string) error
}

// SettleJob is one due round-settlement wake-up claimed from the scheduler.
type SettleJob struct {
	JobID       string
	AuctionID   string
	RoundNumber int
}

// RoundScheduler owns the durable delayed wake-up queue. Jobs survive
// process restarts and are delivered to exactly one claimer.
type RoundScheduler interface {
	// ScheduleRoundEnd enqueues the settlement wake-up for a round. When a
	// wake-up for the same round is already pending, the earlier due time
	// wins.
	ScheduleRoundEnd(ctx context.Context, auctionID string, roundNumber int, endsAt time.Time) error
	// RescheduleRoundEnd enqueues a fresh wake-up for an extended round
	// under a unique job id. The superseded wake-up still fires but no-ops
	// against the live deadline.
	RescheduleRoundEnd(ctx context.Context, auctionID string, roundNumber int, endsAt time.Time) error
	// ClaimDue atomically removes and returns up to limit jobs whose due
	// time has passed.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]SettleJob, error)
}

// AuctionEventType enumerates the fire-and-forget lifecycle notifications.
type AuctionEventType string

const (
	EventAuctionStarted   AuctionEventType = "auction.started"
	EventRoundStarted     AuctionEventType = "auction.round_started"
	EventAuctionCompleted AuctionEventType = "auction.completed"
)

// AuctionEvent is a lifecycle notification for external subscribers such as
// the bot traffic generator. Settlement never depends on anyone observing
// these.
type AuctionEvent struct {
	Type        AuctionEventType `json:"type"`
	AuctionID   string           `json:"auction_id"`
	RoundNumber int              `json:"round_number,omitempty"`
	At          time.Time        `json:"at"`
}

// EventBus publishes and subscribes auction lifecycle events.
type EventBus interface {
	Publish(ctx context.Context, event AuctionEvent) error
	// Subscribe returns a channel of events that closes when ctx is done.
	Subscribe(ctx context.Context) (<-chan AuctionEvent, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}
