package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/roundauction/internal/bots"
	"github.com/alanyoungcy/roundauction/internal/worker"
)

// WorkerMode runs the settlement worker alone. This is the deployment shape
// for production: any number of worker processes can drain the same queue.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)

	settler := a.newSettler(deps)
	g.Go(func() error {
		return settler.Run(ctx)
	})

	return g.Wait()
}

// BotsMode runs only the synthetic traffic pool against an externally hosted
// worker. Useful for load-testing a running deployment.
func (a *App) BotsMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting bots mode")

	g, ctx := errgroup.WithContext(ctx)

	pool := a.newBotPool(deps)
	g.Go(func() error {
		return pool.Run(ctx)
	})

	return g.Wait()
}

// FullMode runs the settlement worker and the bot traffic pool in one
// process. This is the local development and demo shape.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	settler := a.newSettler(deps)
	g.Go(func() error {
		return settler.Run(ctx)
	})

	pool := a.newBotPool(deps)
	g.Go(func() error {
		return pool.Run(ctx)
	})

	return g.Wait()
}

func (a *App) newSettler(deps *Dependencies) *worker.Settler {
	return worker.NewSettler(
		deps.AuctionStore,
		deps.WalletStore,
		deps.RoundResultStore,
		deps.BidLedger,
		deps.Scheduler,
		deps.EventBus,
		worker.SettlerConfig{
			PollInterval:      a.cfg.Worker.PollInterval.Duration,
			ClaimBatch:        a.cfg.Worker.ClaimBatch,
			ChargeConcurrency: a.cfg.Worker.ChargeConcurrency,
			RefundChunkSize:   a.cfg.Worker.RefundChunkSize,
		},
		a.logger.With("component", "settler"),
	)
}

func (a *App) newBotPool(deps *Dependencies) *bots.Pool {
	return bots.NewPool(
		deps.Auctions,
		deps.Bidding,
		deps.Users,
		deps.Wallets,
		deps.EventBus,
		deps.RateLimiter,
		bots.Config{
			BiddersPerAuction: a.cfg.Bots.BiddersPerAuction,
			SnipersPerAuction: a.cfg.Bots.SnipersPerAuction,
			DepositAmount:     a.cfg.Bots.DepositAmount,
			Currency:          a.cfg.Auction.DefaultCurrency,
			MinBidInterval:    a.cfg.Bots.MinBidInterval.Duration,
			MaxBidInterval:    a.cfg.Bots.MaxBidInterval.Duration,
			SnipeWindow:       a.cfg.Bots.SnipeWindow.Duration,
			MaxSnipes:         a.cfg.Bots.MaxSnipes,
			RequestsPerSecond: a.cfg.Bots.RequestsPerSecond,
		},
		a.logger.With("component", "bots"),
	)
}
