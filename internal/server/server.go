package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/server/handler"
	"github.com/snipswap/snipswap-dex/internal/server/middleware"
	"github.com/snipswap/snipswap-dex/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// AdminKey guards administrative endpoints (pair creation). If empty,
	// those endpoints are open.
	AdminKey string

	// RateLimit is the per-client request budget per RateWindow. Zero
	// disables the limiter.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Orders    *handler.OrderHandler
	Liquidity *handler.LiquidityHandler
	Sessions  *handler.SessionHandler
}

// Server is the HTTP + WebSocket API front of the exchange.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (CORS, logging, rate limiting) wired around it.
// limiter may be nil when rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	admin := middleware.Auth(cfg.AdminKey)

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Pair and market data endpoints.
	mux.HandleFunc("GET /api/pairs", handlers.Markets.ListPairs)
	mux.Handle("POST /api/pairs", admin(http.HandlerFunc(handlers.Markets.CreatePair)))
	mux.HandleFunc("GET /api/pairs/{symbol}", handlers.Markets.GetPair)
	mux.HandleFunc("GET /api/orderbook/{symbol}", handlers.Markets.Orderbook)
	mux.HandleFunc("GET /api/trades/{symbol}", handlers.Markets.RecentTrades)
	mux.HandleFunc("GET /api/ohlcv/{symbol}", handlers.Markets.Candles)
	mux.HandleFunc("GET /api/stats", handlers.Markets.Stats)

	// Order endpoints.
	mux.HandleFunc("POST /api/orders", handlers.Orders.SubmitOrder)
	mux.HandleFunc("GET /api/orders", handlers.Orders.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", handlers.Orders.GetOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.CancelOrder)

	// Pool and liquidity endpoints.
	mux.HandleFunc("GET /api/pools", handlers.Liquidity.ListPools)
	mux.HandleFunc("POST /api/pools", handlers.Liquidity.CreatePool)
	mux.HandleFunc("GET /api/pools/{symbol}", handlers.Liquidity.GetPool)
	mux.HandleFunc("POST /api/pools/{symbol}/quote", handlers.Liquidity.QuoteSwap)
	mux.HandleFunc("POST /api/pools/{symbol}/swap", handlers.Liquidity.Swap)
	mux.HandleFunc("POST /api/pools/{symbol}/liquidity", handlers.Liquidity.AddLiquidity)
	mux.HandleFunc("DELETE /api/pools/{symbol}/liquidity", handlers.Liquidity.RemoveLiquidity)
	mux.HandleFunc("GET /api/positions", handlers.Liquidity.ListPositions)

	// Privacy session endpoints.
	mux.HandleFunc("POST /api/privacy/session", handlers.Sessions.CreateSession)
	mux.HandleFunc("GET /api/privacy/session", handlers.Sessions.GetSession)
	mux.HandleFunc("PUT /api/privacy/session/settings", handlers.Sessions.UpdateSettings)
	mux.HandleFunc("POST /api/privacy/session/extend", handlers.Sessions.ExtendSession)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
