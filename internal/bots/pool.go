// Package bots generates synthetic bidder traffic against the public auction
// operations. It consumes the same service API as a real client and never
// touches stores or the ledger directly.
package bots

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/roundauction/internal/domain"
	"github.com/alanyoungcy/roundauction/internal/service"
)

// Config tunes the synthetic traffic.
type Config struct {
	// BiddersPerAuction is how many steady bidders join each started auction.
	BiddersPerAuction int
	// SnipersPerAuction is how many bidders hold back until the closing
	// seconds of each round.
	SnipersPerAuction int
	// DepositAmount funds each bot wallet at creation, in Currency.
	DepositAmount string
	// Currency is the deposit currency. It must match the currency the
	// user service opens wallets in.
	Currency string
	// MinBidInterval and MaxBidInterval bound the pause between a steady
	// bidder's bids.
	MinBidInterval time.Duration
	MaxBidInterval time.Duration
	// SnipeWindow is how close to the round deadline snipers start bidding.
	SnipeWindow time.Duration
	// MaxSnipes bounds how many times one sniper re-bids inside the window,
	// so extensions cannot stretch a round forever.
	MaxSnipes int
	// RequestsPerSecond caps the pool's total call rate.
	RequestsPerSecond int
}

// DefaultConfig returns the standard traffic shape.
func DefaultConfig() Config {
	return Config{
		BiddersPerAuction: 8,
		SnipersPerAuction: 2,
		DepositAmount:     "10000",
		Currency:          domain.DefaultCurrency,
		MinBidInterval:    2 * time.Second,
		MaxBidInterval:    8 * time.Second,
		SnipeWindow:       10 * time.Second,
		MaxSnipes:         3,
		RequestsPerSecond: 50,
	}
}

const rateLimitKey = "bots:requests"

// Pool watches the auction event stream and runs a crowd of bot bidders for
// every auction that starts.
type Pool struct {
	auctions *service.AuctionService
	bidding  *service.BiddingService
	users    *service.UserService
	wallets  *service.WalletService
	bus      domain.EventBus
	limiter  domain.RateLimiter
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewPool creates a Pool with all required dependencies.
func NewPool(
	auctions *service.AuctionService,
	bidding *service.BiddingService,
	users *service.UserService,
	wallets *service.WalletService,
	bus domain.EventBus,
	limiter domain.RateLimiter,
	cfg Config,
	logger *slog.Logger,
) *Pool {
	if cfg.BiddersPerAuction <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.Currency == "" {
		cfg.Currency = domain.DefaultCurrency
	}
	return &Pool{
		auctions: auctions,
		bidding:  bidding,
		users:    users,
		wallets:  wallets,
		bus:      bus,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
}

// Run subscribes to auction lifecycle events and manages per-auction bot
// crowds until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	events, err := p.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("bot pool started",
		"bidders_per_auction", p.cfg.BiddersPerAuction,
		"snipers_per_auction", p.cfg.SnipersPerAuction)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			p.stopAll()
			wg.Wait()
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				p.stopAll()
				wg.Wait()
				return nil
			}
			switch event.Type {
			case domain.EventAuctionStarted:
				p.startCrowd(ctx, &wg, event.AuctionID)
			case domain.EventAuctionCompleted:
				p.stopCrowd(event.AuctionID)
			}
		}
	}
}

func (p *Pool) startCrowd(ctx context.Context, wg *sync.WaitGroup, auctionID string) {
	p.mu.Lock()
	if _, ok := p.running[auctionID]; ok {
		p.mu.Unlock()
		return
	}
	crowdCtx, cancel := context.WithCancel(ctx)
	p.running[auctionID] = cancel
	p.mu.Unlock()

	p.logger.Info("bot crowd joining auction", "auction_id", auctionID)

	for i := 0; i < p.cfg.BiddersPerAuction; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runSteadyBidder(crowdCtx, auctionID)
		}()
	}
	for i := 0; i < p.cfg.SnipersPerAuction; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runSniper(crowdCtx, auctionID)
		}()
	}
}

func (p *Pool) stopCrowd(auctionID string) {
	p.mu.Lock()
	cancel, ok := p.running[auctionID]
	if ok {
		delete(p.running, auctionID)
	}
	p.mu.Unlock()
	if ok {
		cancel()
		p.logger.Info("bot crowd left auction", "auction_id", auctionID)
	}
}

func (p *Pool) stopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, cancel := range p.running {
		cancel()
		delete(p.running, id)
	}
}

// enroll creates a funded bot user through the public operations.
func (p *Pool) enroll(ctx context.Context) (string, error) {
	if err := p.throttle(ctx); err != nil {
		return "", err
	}
	user, err := p.users.CreateUser(ctx, "")
	if err != nil {
		return "", err
	}

	deposit, err := domain.MoneyFromString(p.cfg.DepositAmount, p.cfg.Currency)
	if err != nil {
		return "", err
	}
	if err := p.wallets.DepositFunds(ctx, user.ID, deposit); err != nil {
		return "", err
	}
	return user.ID, nil
}

// runSteadyBidder bids at random intervals, topping the current leader by a
// small increment, and goes quiet near the round deadline.
func (p *Pool) runSteadyBidder(ctx context.Context, auctionID string) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	userID, err := p.enroll(ctx)
	if err != nil {
		p.logBotError("enroll bidder", auctionID, "", err)
		return
	}

	for {
		pause := p.cfg.MinBidInterval +
			time.Duration(rnd.Int63n(int64(p.cfg.MaxBidInterval-p.cfg.MinBidInterval)+1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}

		view, err := p.getAuction(ctx, auctionID)
		if err != nil {
			p.logBotError("get auction", auctionID, userID, err)
			return
		}
		if view.Status != domain.AuctionStatusActive {
			return
		}
		// Leave sniping to the snipers.
		if time.Duration(view.TimeLeftSeconds)*time.Second <= p.cfg.SnipeWindow {
			continue
		}

		amount, err := p.nextAmount(ctx, auctionID, userID, view, rnd)
		if err != nil {
			p.logBotError("pick amount", auctionID, userID, err)
			return
		}
		p.placeBid(ctx, auctionID, userID, amount)
	}
}

// runSniper waits out each round and bids in its closing seconds, re-bidding
// a bounded number of times as extensions push the deadline.
func (p *Pool) runSniper(ctx context.Context, auctionID string) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	userID, err := p.enroll(ctx)
	if err != nil {
		p.logBotError("enroll sniper", auctionID, "", err)
		return
	}

	snipes := 0
	lastRound := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}

		view, err := p.getAuction(ctx, auctionID)
		if err != nil {
			p.logBotError("get auction", auctionID, userID, err)
			return
		}
		if view.Status != domain.AuctionStatusActive {
			return
		}
		if view.CurrentRoundNumber != lastRound {
			lastRound = view.CurrentRoundNumber
			snipes = 0
		}
		if time.Duration(view.TimeLeftSeconds)*time.Second > p.cfg.SnipeWindow {
			continue
		}
		if snipes >= p.cfg.MaxSnipes {
			continue
		}

		amount, err := p.nextAmount(ctx, auctionID, userID, view, rnd)
		if err != nil {
			p.logBotError("pick amount", auctionID, userID, err)
			return
		}
		if p.placeBid(ctx, auctionID, userID, amount) {
			snipes++
		}
	}
}

// nextAmount picks a bid that tops both the current leader and the bot's own
// standing bid by a small random increment.
func (p *Pool) nextAmount(ctx context.Context, auctionID, userID string, view service.AuctionView, rnd *rand.Rand) (decimal.Decimal, error) {
	if err := p.throttle(ctx); err != nil {
		return decimal.Zero, err
	}
	board, err := p.bidding.GetLeaderboard(ctx, auctionID, userID)
	if err != nil {
		return decimal.Zero, err
	}

	floor, err := decimal.NewFromString(view.EntryPriceAmount)
	if err != nil {
		return decimal.Zero, err
	}
	if len(board.Top) > 0 && board.Top[0].Amount.GreaterThan(floor) {
		floor = board.Top[0].Amount
	}
	if board.Me != nil && board.Me.Amount.GreaterThan(floor) {
		floor = board.Me.Amount
	}

	increment := decimal.NewFromInt(rnd.Int63n(10) + 1)
	return floor.Add(increment), nil
}

// placeBid submits one bid and reports whether it was accepted. Business
// rejections are normal traffic noise and only logged at debug.
func (p *Pool) placeBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) bool {
	if err := p.throttle(ctx); err != nil {
		return false
	}
	_, err := p.bidding.PlaceBid(ctx, auctionID, userID, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInsufficientFunds) {
			p.logger.Debug("bot bid rejected",
				"auction_id", auctionID,
				"user_id", userID,
				"amount", amount.String(),
				"error", err)
		} else {
			p.logBotError("place bid", auctionID, userID, err)
		}
		return false
	}
	return true
}

func (p *Pool) getAuction(ctx context.Context, auctionID string) (service.AuctionView, error) {
	if err := p.throttle(ctx); err != nil {
		return service.AuctionView{}, err
	}
	return p.auctions.GetAuction(ctx, auctionID)
}

func (p *Pool) throttle(ctx context.Context) error {
	return p.limiter.Wait(ctx, rateLimitKey, p.cfg.RequestsPerSecond, time.Second)
}

func (p *Pool) logBotError(op, auctionID, userID string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	p.logger.Warn("bot "+op+" failed",
		"auction_id", auctionID,
		"user_id", userID,
		"error", err)
}
