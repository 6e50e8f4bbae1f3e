// Package service implements the public auction operations on top of the
// domain aggregates and their stores.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// AuctionView is the read model returned by GetAuction.
type AuctionView struct {
	ID                 string               `json:"id"`
	Title              string               `json:"title"`
	GiftName           string               `json:"giftName,omitempty"`
	Status             domain.AuctionStatus `json:"status"`
	CurrentRoundNumber int                  `json:"currentRoundNumber"`
	RoundsTotal        int                  `json:"roundsTotal"`
	ItemsPerRound      int                  `json:"itemsPerRound"`
	TimeLeftSeconds    int                  `json:"timeLeftSeconds"`
	RemainingItems     int                  `json:"remainingItems"`
	EntryPriceAmount   string               `json:"entryPriceAmount"`
	EntryPriceCurrency string               `json:"entryPriceCurrency"`
}

// CreateAuctionInput carries the caller-supplied auction parameters.
type CreateAuctionInput struct {
	Title                string
	GiftName             string
	TotalItems           int
	RoundsTotal          int
	RoundDurationSeconds int
	EntryPriceAmount     string
	EntryPriceCurrency   string
}

// AuctionService handles the auction lifecycle: creation, start, reads, and
// settled history.
type AuctionService struct {
	auctions  domain.AuctionStore
	results   domain.RoundResultStore
	scheduler domain.RoundScheduler
	bus       domain.EventBus
	currency  string
	logger    *slog.Logger
}

// NewAuctionService creates an AuctionService with all required
// dependencies. defaultCurrency is used for entry prices created without
// one.
func NewAuctionService(
	auctions domain.AuctionStore,
	results domain.RoundResultStore,
	scheduler domain.RoundScheduler,
	bus domain.EventBus,
	defaultCurrency string,
	logger *slog.Logger,
) *AuctionService {
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &AuctionService{
		auctions:  auctions,
		results:   results,
		scheduler: scheduler,
		bus:       bus,
		currency:  defaultCurrency,
		logger:    logger,
	}
}

// CreateAuction validates the input, persists a new auction in CREATED
// status, and returns its id.
func (s *AuctionService) CreateAuction(ctx context.Context, in CreateAuctionInput) (string, error) {
	currency := in.EntryPriceCurrency
	if currency == "" {
		currency = s.currency
	}
	entryPrice, err := domain.MoneyFromString(in.EntryPriceAmount, currency)
	if err != nil {
		return "", fmt.Errorf("auction_service: entry price: %w", err)
	}

	auction, err := domain.NewAuction(domain.CreateAuctionParams{
		Title:                in.Title,
		GiftName:             in.GiftName,
		TotalItems:           in.TotalItems,
		RoundsTotal:          in.RoundsTotal,
		RoundDurationSeconds: in.RoundDurationSeconds,
		EntryPrice:           entryPrice,
	})
	if err != nil {
		return "", err
	}

	if err := s.auctions.Create(ctx, auction); err != nil {
		return "", fmt.Errorf("auction_service: create: %w", err)
	}

	s.logger.Info("auction created",
		"auction_id", auction.ID,
		"rounds_total", auction.RoundsTotal,
		"items_per_round", auction.ItemsPerRound)
	return auction.ID, nil
}

// StartAuction moves the auction to ACTIVE, opens round 1, schedules its
// settlement wake-up, and announces the start on the event bus.
func (s *AuctionService) StartAuction(ctx context.Context, auctionID string) (string, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if err := auction.Start(now); err != nil {
		return "", err
	}
	if err := s.auctions.Update(ctx, auction); err != nil {
		return "", fmt.Errorf("auction_service: start: %w", err)
	}

	if err := s.scheduler.ScheduleRoundEnd(ctx, auction.ID, auction.CurrentRoundNumber, *auction.CurrentRoundEndsAt); err != nil {
		return "", fmt.Errorf("auction_service: schedule round end: %w", err)
	}

	s.publish(ctx, domain.AuctionEvent{
		Type:        domain.EventAuctionStarted,
		AuctionID:   auction.ID,
		RoundNumber: auction.CurrentRoundNumber,
		At:          now,
	})

	s.logger.Info("auction started",
		"auction_id", auction.ID,
		"round_ends_at", auction.CurrentRoundEndsAt)
	return auction.ID, nil
}

// GetAuction returns the read model for one auction.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (AuctionView, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return AuctionView{}, err
	}
	return newAuctionView(auction, time.Now().UTC()), nil
}

// ListAuctions returns all auctions, newest first.
func (s *AuctionService) ListAuctions(ctx context.Context) ([]AuctionView, error) {
	auctions, err := s.auctions.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make([]AuctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, newAuctionView(a, now))
	}
	return views, nil
}

// GetAuctionHistory returns the settled rounds of an auction in round order.
func (s *AuctionService) GetAuctionHistory(ctx context.Context, auctionID string) ([]domain.RoundResult, error) {
	if _, err := s.auctions.Get(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.results.ListByAuction(ctx, auctionID)
}

// publish sends a lifecycle event. Delivery is best-effort: settlement and
// state transitions never depend on subscribers seeing these.
func (s *AuctionService) publish(ctx context.Context, event domain.AuctionEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auction event failed",
			"type", string(event.Type),
			"auction_id", event.AuctionID,
			"error", err)
	}
}

func newAuctionView(a *domain.Auction, now time.Time) AuctionView {
	return AuctionView{
		ID:                 a.ID,
		Title:              a.Title,
		GiftName:           a.GiftName,
		Status:             a.Status,
		CurrentRoundNumber: a.CurrentRoundNumber,
		RoundsTotal:        a.RoundsTotal,
		ItemsPerRound:      a.ItemsPerRound,
		TimeLeftSeconds:    int(math.Ceil(a.TimeLeft(now).Seconds())),
		RemainingItems:     a.RemainingItems(),
		EntryPriceAmount:   a.EntryPrice.String(),
		EntryPriceCurrency: a.EntryPrice.Currency(),
	}
}
