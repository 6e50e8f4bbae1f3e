package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuctionStatus tracks the auction lifecycle.
type AuctionStatus string

const (
	AuctionStatusCreated   AuctionStatus = "CREATED"
	AuctionStatusActive    AuctionStatus = "ACTIVE"
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
)

// Auction is the aggregate for a timed multi-round auction. The item pool is
// split evenly across rounds; at the end of each round the top ItemsPerRound
// bidders win and leave the ledger.
type Auction struct {
	ID                   string
	Title                string
	GiftName             string
	Status               AuctionStatus
	TotalItems           int
	RoundsTotal          int
	ItemsPerRound        int
	RoundDurationSeconds int
	CurrentRoundNumber   int
	CurrentRoundEndsAt   *time.Time
	EntryPrice           Money
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateAuctionParams carries the caller-supplied fields for NewAuction.
type CreateAuctionParams struct {
	Title                string
	GiftName             string
	TotalItems           int
	RoundsTotal          int
	RoundDurationSeconds int
	EntryPrice           Money
}

// NewAuction validates params and builds an auction in CREATED status.
func NewAuction(p CreateAuctionParams) (*Auction, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = strings.TrimSpace(p.GiftName)
	}
	if title == "" {
		return nil, fmt.Errorf("auction: title is required: %w", ErrNotProvided)
	}
	if p.RoundsTotal <= 0 {
		return nil, fmt.Errorf("auction: rounds total must be greater than 0: %w", ErrOutOfRange)
	}
	if p.TotalItems <= 0 {
		return nil, fmt.Errorf("auction: total items must be greater than 0: %w", ErrOutOfRange)
	}
	if p.TotalItems%p.RoundsTotal != 0 {
		return nil, fmt.Errorf("auction: total items must be divisible by rounds total: %w", ErrInvalidArgument)
	}
	if p.RoundDurationSeconds <= 0 {
		return nil, fmt.Errorf("auction: round duration must be greater than 0: %w", ErrOutOfRange)
	}
	if !p.EntryPrice.IsPositive() {
		return nil, fmt.Errorf("auction: entry price must be positive: %w", ErrOutOfRange)
	}

	now := time.Now().UTC()
	return &Auction{
		ID:                   uuid.New().String(),
		Title:                title,
		GiftName:             strings.TrimSpace(p.GiftName),
		Status:               AuctionStatusCreated,
		TotalItems:           p.TotalItems,
		RoundsTotal:          p.RoundsTotal,
		ItemsPerRound:        p.TotalItems / p.RoundsTotal,
		RoundDurationSeconds: p.RoundDurationSeconds,
		CurrentRoundNumber:   0,
		EntryPrice:           p.EntryPrice,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// Start moves the auction from CREATED to ACTIVE and opens round 1.
func (a *Auction) Start(now time.Time) error {
	if a.Status != AuctionStatusCreated {
		return fmt.Errorf("auction: can be started only from CREATED status: %w", ErrInvalidArgument)
	}
	a.Status = AuctionStatusActive
	a.CurrentRoundNumber = 1
	endsAt := now.Add(time.Duration(a.RoundDurationSeconds) * time.Second)
	a.CurrentRoundEndsAt = &endsAt
	a.UpdatedAt = now
	return nil
}

// NextRound advances to the next round, or finishes the auction when the
// final round has just been settled.
func (a *Auction) NextRound(now time.Time) error {
	if a.Status != AuctionStatusActive {
		return fmt.Errorf("auction: can move to next round only from ACTIVE status: %w", ErrInvalidArgument)
	}

	if a.CurrentRoundNumber < a.RoundsTotal {
		a.CurrentRoundNumber++
		endsAt := now.Add(time.Duration(a.RoundDurationSeconds) * time.Second)
		a.CurrentRoundEndsAt = &endsAt
		a.UpdatedAt = now
		return nil
	}

	a.Status = AuctionStatusCompleted
	a.CurrentRoundEndsAt = nil
	a.UpdatedAt = now
	return nil
}

// ExtendRound raises the current round deadline to now+seconds if that is
// later than the existing deadline. The deadline never moves backwards.
func (a *Auction) ExtendRound(now time.Time, seconds int) error {
	if a.CurrentRoundEndsAt == nil {
		return fmt.Errorf("auction: current round is not active: %w", ErrInvalidArgument)
	}
	if seconds <= 0 {
		return fmt.Errorf("auction: extension seconds must be greater than 0: %w", ErrOutOfRange)
	}

	minEnd := now.Add(time.Duration(seconds) * time.Second)
	if a.CurrentRoundEndsAt.Before(minEnd) {
		a.CurrentRoundEndsAt = &minEnd
		a.UpdatedAt = now
	}
	return nil
}

// TimeLeft returns the remaining time in the current round, floored at zero.
func (a *Auction) TimeLeft(now time.Time) time.Duration {
	if a.CurrentRoundEndsAt == nil {
		return 0
	}
	left := a.CurrentRoundEndsAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// RemainingItems returns how many items have not yet been awarded.
func (a *Auction) RemainingItems() int {
	switch a.Status {
	case AuctionStatusCreated:
		return a.TotalItems
	case AuctionStatusCompleted:
		return 0
	default:
		settled := a.CurrentRoundNumber - 1
		return a.TotalItems - settled*a.ItemsPerRound
	}
}
