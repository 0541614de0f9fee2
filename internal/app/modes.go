package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/snipswap/snipswap-dex/internal/bridge"
	"github.com/snipswap/snipswap-dex/internal/engine"
	"github.com/snipswap/snipswap-dex/internal/notify"
	"github.com/snipswap/snipswap-dex/internal/server"
	"github.com/snipswap/snipswap-dex/internal/server/handler"
	"github.com/snipswap/snipswap-dex/internal/server/ws"
	"github.com/snipswap/snipswap-dex/internal/service"
)

// run starts the selected parts of the daemon: the HTTP/WebSocket front when
// serveHTTP is set and the background maintenance loops when runJobs is set.
// The matching engine and services are always constructed so both halves
// share the same in-memory state when running in one process.
func (a *App) run(ctx context.Context, deps *Dependencies, serveHTTP, runJobs bool) error {
	eng := engine.New(engine.FeeSchedule{
		MakerRate: decimal.NewFromFloat(a.cfg.Engine.MakerFeeRate),
		TakerRate: decimal.NewFromFloat(a.cfg.Engine.TakerFeeRate),
	})

	trading := service.NewTradingService(
		eng,
		deps.PairStore,
		deps.OrderStore,
		deps.TradeStore,
		deps.BookCache,
		deps.PriceCache,
		deps.RateLimiter,
		deps.SignalBus,
		deps.AuditStore,
		a.logger,
	)
	if len(a.cfg.Bridge.Endpoints) > 0 {
		trading = trading.WithBridge(bridge.New(
			a.cfg.Bridge.Endpoints,
			a.cfg.Bridge.Timeout.Duration,
			a.logger,
		))
	}

	markets := service.NewMarketService(eng, deps.PairStore, deps.TradeStore, deps.BookCache, a.logger)
	liquidity := service.NewLiquidityService(
		eng,
		deps.PairStore,
		deps.PoolStore,
		deps.PositionStore,
		deps.SignalBus,
		a.logger,
	)
	sessions := service.NewSessionService(deps.SessionStore, a.logger)

	// Rebuild in-memory state from persistence before accepting traffic.
	pairs, err := markets.ListPairs(ctx, true)
	if err != nil {
		return err
	}
	if err := trading.RestoreBooks(ctx, pairs); err != nil {
		return err
	}
	if err := liquidity.RestorePools(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if serveHTTP {
		a.startHTTPServer(ctx, g, deps, trading, markets, liquidity, sessions)
	}

	if runJobs {
		a.startJobs(ctx, g, deps, trading, markets, sessions)
	}

	// Alert watcher runs whenever any sender is configured.
	watcher := notify.NewWatcher(deps.SignalBus, deps.Notifier, a.logger)
	watcher.LargeTradeNotional = decimal.NewFromFloat(a.cfg.Notify.LargeTradeNotional)
	watcher.LowReserveQuote = decimal.NewFromFloat(a.cfg.Notify.LowReserveQuote)
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	return g.Wait()
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	trading *service.TradingService,
	markets *service.MarketService,
	liquidity *service.LiquidityService,
	sessions *service.SessionService,
) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.PgClient, deps.RedisClient, a.logger),
		Markets:   handler.NewMarketHandler(markets, a.logger),
		Orders:    handler.NewOrderHandler(trading, a.logger),
		Liquidity: handler.NewLiquidityHandler(liquidity, a.logger),
		Sessions:  handler.NewSessionHandler(sessions, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		AdminKey:    a.cfg.Server.AdminKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startJobs adds the background maintenance loops: GTD expiry sweeping,
// privacy session cleanup, 24h stats refresh, and (when S3 is enabled) the
// settled-trade archive.
func (a *App) startJobs(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	trading *service.TradingService,
	markets *service.MarketService,
	sessions *service.SessionService,
) {
	g.Go(func() error {
		return a.tick(ctx, a.cfg.Jobs.ExpirySweepInterval.Duration, "expiry_sweep", func(ctx context.Context) error {
			n, err := trading.SweepExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "expired orders swept", slog.Int("count", n))
			}
			return nil
		})
	})

	g.Go(func() error {
		return a.tick(ctx, a.cfg.Jobs.SessionCleanupInterval.Duration, "session_cleanup", func(ctx context.Context) error {
			n, err := sessions.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "expired sessions removed", slog.Int64("count", n))
			}
			return nil
		})
	})

	g.Go(func() error {
		return a.tick(ctx, a.cfg.Jobs.StatsRefreshInterval.Duration, "stats_refresh", func(ctx context.Context) error {
			return markets.RefreshPairStats(ctx)
		})
	})

	if deps.Archiver != nil {
		retention := time.Duration(a.cfg.Jobs.ArchiveRetentionDays) * 24 * time.Hour
		g.Go(func() error {
			return a.tick(ctx, a.cfg.Jobs.ArchiveInterval.Duration, "trade_archive", func(ctx context.Context) error {
				cutoff := time.Now().UTC().Add(-retention)
				n, err := deps.Archiver.ArchiveSettled(ctx, cutoff)
				if err != nil {
					return err
				}
				if n > 0 {
					a.logger.InfoContext(ctx, "settled trades archived", slog.Int64("count", n))
				}
				return nil
			})
		})
	}
}

// tick runs fn on a fixed interval until the context is cancelled. Job
// errors are logged and do not stop the loop; only context cancellation
// terminates it.
func (a *App) tick(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				a.logger.WarnContext(ctx, "background job failed",
					slog.String("job", name),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
