package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/roundauction/internal/cache/redis"
	"github.com/alanyoungcy/roundauction/internal/config"
	"github.com/alanyoungcy/roundauction/internal/domain"
	"github.com/alanyoungcy/roundauction/internal/service"
	"github.com/alanyoungcy/roundauction/internal/store/postgres"
)

// Dependencies bundles every dependency the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	AuctionStore     domain.AuctionStore
	WalletStore      domain.WalletStore
	RoundResultStore domain.RoundResultStore
	UserStore        domain.UserStore

	// Redis-backed ports
	BidLedger   domain.BidLedger
	Scheduler   domain.RoundScheduler
	EventBus    domain.EventBus
	RateLimiter domain.RateLimiter

	// Services
	Auctions *service.AuctionService
	Bidding  *service.BiddingService
	Wallets  *service.WalletService
	Users    *service.UserService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	// Run migrations if enabled.
	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.AuctionStore = postgres.NewAuctionStore(pgClient)
	deps.WalletStore = postgres.NewWalletStore(pgClient)
	deps.RoundResultStore = postgres.NewRoundResultStore(pgClient)
	deps.UserStore = postgres.NewUserStore(pgClient)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.BidLedger = redis.NewBidLedger(redisClient)
	deps.Scheduler = redis.NewDelayQueue(redisClient)
	deps.EventBus = redis.NewEventBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- Services ---
	deps.Auctions = service.NewAuctionService(
		deps.AuctionStore,
		deps.RoundResultStore,
		deps.Scheduler,
		deps.EventBus,
		cfg.Auction.DefaultCurrency,
		logger,
	)
	deps.Bidding = service.NewBiddingService(
		deps.AuctionStore,
		deps.WalletStore,
		deps.BidLedger,
		deps.Scheduler,
		service.BiddingConfig{
			AntiSnipingThreshold: cfg.Auction.AntiSnipingThreshold.Duration,
			AntiSnipingExtension: cfg.Auction.AntiSnipingExtension.Duration,
			LeaderboardSize:      cfg.Auction.LeaderboardSize,
		},
		logger,
	)
	deps.Wallets = service.NewWalletService(deps.WalletStore, cfg.Auction.DefaultCurrency, logger)
	deps.Users = service.NewUserService(deps.UserStore, deps.WalletStore, cfg.Auction.DefaultCurrency, logger)

	return deps, cleanup, nil
}
