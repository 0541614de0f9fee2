// Package app owns the daemon lifecycle: dependency wiring, mode selection,
// and teardown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snipswap/snipswap-dex/internal/config"
)

// App holds the configuration, logger, and the cleanup stack accumulated
// during wiring.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires every dependency, then blocks running the configured mode until
// ctx is cancelled. "server" exposes the HTTP/WebSocket API, "worker" runs
// only the background jobs, "full" runs both in one process.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "daemon starting",
		slog.String("mode", a.cfg.Mode),
		slog.Any("config", config.Redacted(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "server":
		return a.run(ctx, deps, true, false)
	case "worker":
		return a.run(ctx, deps, false, true)
	case "full":
		return a.run(ctx, deps, true, true)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// Close releases wired resources in reverse order. Safe to call more than
// once.
func (a *App) Close() {
	a.logger.Info("daemon stopping")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
