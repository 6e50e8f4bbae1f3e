package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// BiddingConfig tunes bid-time behavior.
type BiddingConfig struct {
	// AntiSnipingThreshold is how close to the deadline a qualifying bid
	// must land to trigger an extension.
	AntiSnipingThreshold time.Duration
	// AntiSnipingExtension is the minimum time left after an extension.
	AntiSnipingExtension time.Duration
	// LeaderboardSize is how many top entries GetLeaderboard returns.
	LeaderboardSize int
}

// DefaultBiddingConfig returns the standard tuning.
func DefaultBiddingConfig() BiddingConfig {
	return BiddingConfig{
		AntiSnipingThreshold: 30 * time.Second,
		AntiSnipingExtension: 30 * time.Second,
		LeaderboardSize:      3,
	}
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank     int             `json:"rank"`
	UserID   string          `json:"userId"`
	Amount   decimal.Decimal `json:"amount"`
	PlacedAt time.Time       `json:"placedAt"`
}

// LeaderboardPosition is the caller's own standing, 1-based.
type LeaderboardPosition struct {
	Rank      int             `json:"rank"`
	Amount    decimal.Decimal `json:"amount"`
	IsWinning bool            `json:"isWinning"`
}

// Leaderboard is the read model returned by GetLeaderboard.
type Leaderboard struct {
	AuctionID string               `json:"auctionId"`
	Top       []LeaderboardEntry   `json:"top"`
	Me        *LeaderboardPosition `json:"me,omitempty"`
}

// BiddingService validates and applies bids against auction state, the
// bidder's wallet, and the bid ledger.
type BiddingService struct {
	auctions  domain.AuctionStore
	wallets   domain.WalletStore
	ledger    domain.BidLedger
	scheduler domain.RoundScheduler
	cfg       BiddingConfig
	logger    *slog.Logger
}

// NewBiddingService creates a BiddingService with all required dependencies.
func NewBiddingService(
	auctions domain.AuctionStore,
	wallets domain.WalletStore,
	ledger domain.BidLedger,
	scheduler domain.RoundScheduler,
	cfg BiddingConfig,
	logger *slog.Logger,
) *BiddingService {
	if cfg.LeaderboardSize <= 0 {
		cfg = DefaultBiddingConfig()
	}
	return &BiddingService{
		auctions:  auctions,
		wallets:   wallets,
		ledger:    ledger,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
	}
}

// PlaceBid applies one bid for the user. A repeat bid must raise the user's
// own previous amount; only the difference is locked from the wallet. When a
// qualifying bid lands inside the anti-sniping window the round deadline is
// pushed out and the settlement wake-up rescheduled.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("bidding: user id is required: %w", domain.ErrNotProvided)
	}

	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return "", err
	}
	if auction.Status != domain.AuctionStatusActive {
		return "", fmt.Errorf("bidding: auction is not active: %w", domain.ErrInvalidArgument)
	}

	base := decimal.Zero
	existing := false
	bid, err := s.ledger.GetUserBid(ctx, auctionID, userID)
	switch {
	case err == nil:
		base = bid.Amount
		existing = true
	case errors.Is(err, domain.ErrNotFound):
	default:
		return "", fmt.Errorf("bidding: load current bid: %w", err)
	}

	if !amount.IsPositive() {
		return "", fmt.Errorf("bidding: bid amount must be a positive number: %w", domain.ErrInvalidArgument)
	}
	if amount.LessThanOrEqual(base) {
		return "", fmt.Errorf("bidding: bid must be higher than your current bid: %w", domain.ErrInvalidArgument)
	}
	if !existing && amount.LessThan(auction.EntryPrice.Amount()) {
		return "", fmt.Errorf("bidding: bid is below the entry price: %w", domain.ErrInvalidArgument)
	}

	delta, err := domain.NewMoney(amount.Sub(base), auction.EntryPrice.Currency())
	if err != nil {
		return "", fmt.Errorf("bidding: bid delta: %w", err)
	}
	err = s.wallets.Update(ctx, userID, func(w *domain.Wallet) error {
		return w.LockFunds(delta)
	})
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if err := s.ledger.PlaceBid(ctx, auctionID, userID, amount, now); err != nil {
		return "", fmt.Errorf("bidding: place bid: %w", err)
	}

	if err := s.maybeExtendRound(ctx, auction, userID, now); err != nil {
		// The bid itself stands; a failed extension only risks an earlier
		// settlement than the bidder hoped for.
		s.logger.Warn("anti-sniping extension failed",
			"auction_id", auctionID,
			"user_id", userID,
			"error", err)
	}

	return auction.ID, nil
}

// maybeExtendRound pushes the round deadline out when the bid landed inside
// the anti-sniping window and the bidder currently sits in the winning band.
func (s *BiddingService) maybeExtendRound(ctx context.Context, auction *domain.Auction, userID string, now time.Time) error {
	if auction.TimeLeft(now) >= s.cfg.AntiSnipingThreshold {
		return nil
	}

	rank, err := s.ledger.GetUserRank(ctx, auction.ID, userID)
	if err != nil {
		return fmt.Errorf("get user rank: %w", err)
	}
	if rank >= auction.ItemsPerRound {
		return nil
	}

	if err := auction.ExtendRound(now, int(s.cfg.AntiSnipingExtension.Seconds())); err != nil {
		return err
	}
	if err := s.auctions.Update(ctx, auction); err != nil {
		return fmt.Errorf("persist extended deadline: %w", err)
	}
	if err := s.scheduler.RescheduleRoundEnd(ctx, auction.ID, auction.CurrentRoundNumber, *auction.CurrentRoundEndsAt); err != nil {
		return fmt.Errorf("reschedule round end: %w", err)
	}

	s.logger.Info("round extended",
		"auction_id", auction.ID,
		"round", auction.CurrentRoundNumber,
		"ends_at", auction.CurrentRoundEndsAt)
	return nil
}

// GetLeaderboard returns the top entries for an auction and, when userID is
// non-empty and the user has a live bid, the caller's own standing.
func (s *BiddingService) GetLeaderboard(ctx context.Context, auctionID, userID string) (Leaderboard, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return Leaderboard{}, err
	}

	top, err := s.ledger.GetTopBidders(ctx, auctionID, s.cfg.LeaderboardSize)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("bidding: top bidders: %w", err)
	}

	board := Leaderboard{
		AuctionID: auctionID,
		Top:       make([]LeaderboardEntry, 0, len(top)),
	}
	for i, b := range top {
		board.Top = append(board.Top, LeaderboardEntry{
			Rank:     i + 1,
			UserID:   b.UserID,
			Amount:   b.Amount,
			PlacedAt: b.PlacedAt,
		})
	}

	if userID == "" {
		return board, nil
	}

	bid, err := s.ledger.GetUserBid(ctx, auctionID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return board, nil
	}
	if err != nil {
		return Leaderboard{}, fmt.Errorf("bidding: own bid: %w", err)
	}
	rank, err := s.ledger.GetUserRank(ctx, auctionID, userID)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("bidding: own rank: %w", err)
	}

	board.Me = &LeaderboardPosition{
		Rank:      rank + 1,
		Amount:    bid.Amount,
		IsWinning: rank < auction.ItemsPerRound,
	}
	return board, nil
}
