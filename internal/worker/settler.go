// Package worker drains the durable round-settlement queue and runs the
// settlement pipeline for each due round.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// SettlerConfig tunes the settlement worker.
type SettlerConfig struct {
	// PollInterval is how often the worker checks the queue for due jobs.
	PollInterval time.Duration
	// ClaimBatch is the maximum number of jobs claimed per poll.
	ClaimBatch int
	// ChargeConcurrency bounds concurrent winner charges within one round.
	ChargeConcurrency int
	// RefundChunkSize is the page size for the end-of-auction refund scan.
	RefundChunkSize int
}

// DefaultSettlerConfig returns the standard tuning.
func DefaultSettlerConfig() SettlerConfig {
	return SettlerConfig{
		PollInterval:      time.Second,
		ClaimBatch:        16,
		ChargeConcurrency: 8,
		RefundChunkSize:   500,
	}
}

// Settler settles auction rounds when their deadline passes. Settlement is
// idempotent per round: the insert-once result guard means a duplicate or
// retried wake-up charges nobody twice.
type Settler struct {
	auctions  domain.AuctionStore
	wallets   domain.WalletStore
	results   domain.RoundResultStore
	ledger    domain.BidLedger
	scheduler domain.RoundScheduler
	bus       domain.EventBus
	cfg       SettlerConfig
	logger    *slog.Logger
}

// NewSettler creates a Settler with all required dependencies.
func NewSettler(
	auctions domain.AuctionStore,
	wallets domain.WalletStore,
	results domain.RoundResultStore,
	ledger domain.BidLedger,
	scheduler domain.RoundScheduler,
	bus domain.EventBus,
	cfg SettlerConfig,
	logger *slog.Logger,
) *Settler {
	if cfg.PollInterval <= 0 {
		cfg = DefaultSettlerConfig()
	}
	return &Settler{
		auctions:  auctions,
		wallets:   wallets,
		results:   results,
		ledger:    ledger,
		scheduler: scheduler,
		bus:       bus,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run polls the queue until ctx is cancelled.
func (s *Settler) Run(ctx context.Context) error {
	s.logger.Info("settlement worker started",
		"poll_interval", s.cfg.PollInterval.String(),
		"claim_batch", s.cfg.ClaimBatch)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlement worker stopped")
			return ctx.Err()
		case <-ticker.C:
			s.drainDue(ctx)
		}
	}
}

// drainDue claims all currently-due jobs and handles each one. Job failures
// are logged and the job is considered handled; a half-settled round is left
// for operational intervention rather than infinite retry.
func (s *Settler) drainDue(ctx context.Context) {
	for {
		jobs, err := s.scheduler.ClaimDue(ctx, time.Now().UTC(), s.cfg.ClaimBatch)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error("claim due jobs failed", "error", err)
			}
			return
		}
		if len(jobs) == 0 {
			return
		}

		for _, job := range jobs {
			if err := s.settle(ctx, job); err != nil {
				s.logger.Error("round settlement failed",
					"job_id", job.JobID,
					"auction_id", job.AuctionID,
					"round", job.RoundNumber,
					"error", err)
			}
		}

		if len(jobs) < s.cfg.ClaimBatch {
			return
		}
	}
}

func (s *Settler) settle(ctx context.Context, job domain.SettleJob) error {
	auction, err := s.auctions.GetActiveRound(ctx, job.AuctionID, job.RoundNumber)
	if errors.Is(err, domain.ErrNotFound) {
		// Already settled, or a stale wake-up for a past round.
		s.logger.Debug("settlement no-op, round not live",
			"job_id", job.JobID,
			"auction_id", job.AuctionID,
			"round", job.RoundNumber)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load auction round: %w", err)
	}

	now := time.Now().UTC()
	if auction.CurrentRoundEndsAt != nil && auction.CurrentRoundEndsAt.After(now) {
		// An extension landed after this wake-up was enqueued. Defer to the
		// live deadline.
		if err := s.scheduler.RescheduleRoundEnd(ctx, auction.ID, job.RoundNumber, *auction.CurrentRoundEndsAt); err != nil {
			return fmt.Errorf("requeue extended round: %w", err)
		}
		s.logger.Info("settlement deferred to extended deadline",
			"job_id", job.JobID,
			"auction_id", auction.ID,
			"round", job.RoundNumber,
			"ends_at", auction.CurrentRoundEndsAt)
		return nil
	}

	winners, err := s.ledger.GetTopBidders(ctx, auction.ID, auction.ItemsPerRound)
	if err != nil {
		return fmt.Errorf("top bidders: %w", err)
	}

	result := domain.RoundResult{
		AuctionID:   auction.ID,
		RoundNumber: job.RoundNumber,
		Winners:     make([]domain.RoundWinner, 0, len(winners)),
		CreatedAt:   now,
	}
	for i, b := range winners {
		result.Winners = append(result.Winners, domain.RoundWinner{
			Rank:        i + 1,
			UserID:      b.UserID,
			BidAmount:   b.Amount,
			BidPlacedAt: b.PlacedAt,
		})
	}

	inserted, err := s.results.Insert(ctx, result)
	if err != nil {
		return fmt.Errorf("persist round result: %w", err)
	}
	if !inserted {
		s.logger.Warn("round already settled, skipping",
			"job_id", job.JobID,
			"auction_id", auction.ID,
			"round", job.RoundNumber)
		return nil
	}

	winnerIDs := make([]string, 0, len(winners))
	for _, b := range winners {
		winnerIDs = append(winnerIDs, b.UserID)
	}
	if len(winnerIDs) > 0 {
		if err := s.ledger.RemoveBidders(ctx, auction.ID, winnerIDs); err != nil {
			return fmt.Errorf("remove winners from ledger: %w", err)
		}
	}

	if err := s.chargeWinners(ctx, auction, winners); err != nil {
		return fmt.Errorf("charge winners: %w", err)
	}

	finalRound := auction.CurrentRoundNumber == auction.RoundsTotal
	if finalRound {
		if err := s.refundLosers(ctx, auction, winnerIDs); err != nil {
			return fmt.Errorf("refund losers: %w", err)
		}
	}

	if err := auction.NextRound(now); err != nil {
		return fmt.Errorf("advance round: %w", err)
	}
	if err := s.auctions.Update(ctx, auction); err != nil {
		return fmt.Errorf("persist auction: %w", err)
	}

	if auction.Status == domain.AuctionStatusActive {
		if err := s.scheduler.ScheduleRoundEnd(ctx, auction.ID, auction.CurrentRoundNumber, *auction.CurrentRoundEndsAt); err != nil {
			return fmt.Errorf("schedule next round: %w", err)
		}
		s.publish(ctx, domain.AuctionEvent{
			Type:        domain.EventRoundStarted,
			AuctionID:   auction.ID,
			RoundNumber: auction.CurrentRoundNumber,
			At:          now,
		})
	} else {
		s.publish(ctx, domain.AuctionEvent{
			Type:      domain.EventAuctionCompleted,
			AuctionID: auction.ID,
			At:        now,
		})
	}

	s.logger.Info("round settled",
		"auction_id", auction.ID,
		"round", job.RoundNumber,
		"winners", len(winners),
		"status", string(auction.Status))
	return nil
}

// chargeWinners charges each winner's locked funds, one concurrent call per
// winner.
func (s *Settler) chargeWinners(ctx context.Context, auction *domain.Auction, winners []domain.Bid) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ChargeConcurrency)

	currency := auction.EntryPrice.Currency()
	for _, b := range winners {
		b := b
		g.Go(func() error {
			amount, err := domain.NewMoney(b.Amount, currency)
			if err != nil {
				return fmt.Errorf("winner %s: %w", b.UserID, err)
			}
			err = s.wallets.Update(ctx, b.UserID, func(w *domain.Wallet) error {
				return w.ChargeLocked(amount)
			})
			if err != nil {
				return fmt.Errorf("winner %s: %w", b.UserID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// refundLosers pages through the remaining ledger entries after the final
// round and unlocks each bidder's funds. Paging bounds memory when an
// auction has many bidders. The offset always advances by the raw page
// size: winners are skipped here rather than filtered out of the page, so a
// charged winner whose bid re-entered the ledger mid-scan cannot shift the
// paging and cause a loser to be skipped or revisited.
func (s *Settler) refundLosers(ctx context.Context, auction *domain.Auction, winnerIDs []string) error {
	currency := auction.EntryPrice.Currency()

	charged := make(map[string]struct{}, len(winnerIDs))
	for _, id := range winnerIDs {
		charged[id] = struct{}{}
	}

	for offset := 0; ; offset += s.cfg.RefundChunkSize {
		chunk, err := s.ledger.GetBiddersChunk(ctx, auction.ID, offset, s.cfg.RefundChunkSize)
		if err != nil {
			return fmt.Errorf("scan bidders at offset %d: %w", offset, err)
		}

		for _, b := range chunk {
			if _, skip := charged[b.UserID]; skip {
				continue
			}
			amount, err := domain.NewMoney(b.Amount, currency)
			if err != nil {
				return fmt.Errorf("loser %s: %w", b.UserID, err)
			}
			err = s.wallets.Update(ctx, b.UserID, func(w *domain.Wallet) error {
				return w.UnlockFunds(amount)
			})
			if err != nil {
				return fmt.Errorf("loser %s: %w", b.UserID, err)
			}
		}

		if len(chunk) < s.cfg.RefundChunkSize {
			return nil
		}
	}
}

func (s *Settler) publish(ctx context.Context, event domain.AuctionEvent) {
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
