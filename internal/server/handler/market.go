package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/service"
)

// MarketService defines what the market handler needs from the service layer.
type MarketService interface {
	CreatePair(ctx context.Context, symbol, baseToken, quoteToken string) (*domain.TradingPair, error)
	GetPair(ctx context.Context, symbol string) (*domain.TradingPair, error)
	Stats24h(ctx context.Context, symbol string) (*domain.PairStats, error)
	ListPairs(ctx context.Context, activeOnly bool) ([]*domain.TradingPair, error)
	Orderbook(ctx context.Context, symbol string, depth int) (*domain.BookSnapshot, error)
	RecentTrades(ctx context.Context, symbol string, limit int) ([]domain.PublicTrade, error)
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error)
	Overview(ctx context.Context) (*service.MarketOverview, error)
}

// MarketHandler serves pair metadata and public market data endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

type createPairRequest struct {
	Symbol     string `json:"symbol"`
	BaseToken  string `json:"base_token"`
	QuoteToken string `json:"quote_token"`
}

// CreatePair registers a new trading pair.
// POST /api/pairs
func (h *MarketHandler) CreatePair(w http.ResponseWriter, r *http.Request) {
	var req createPairRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	pair, err := h.markets.CreatePair(r.Context(), req.Symbol, req.BaseToken, req.QuoteToken)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create pair failed",
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create pair")
		return
	}

	writeJSON(w, http.StatusCreated, pair)
}

// ListPairs returns trading pairs, active only unless ?all=true.
// GET /api/pairs
func (h *MarketHandler) ListPairs(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	pairs, err := h.markets.ListPairs(r.Context(), activeOnly)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pairs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pairs")
		return
	}
	if pairs == nil {
		pairs = []*domain.TradingPair{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"pairs": pairs})
}

// GetPair returns one trading pair with its 24h statistics.
// GET /api/pairs/{symbol}
func (h *MarketHandler) GetPair(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)

	pair, err := h.markets.GetPair(r.Context(), symbol)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, "pair not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get pair failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get pair")
		return
	}

	stats, err := h.markets.Stats24h(r.Context(), symbol)
	if err != nil {
		// Stats are best effort; the pair itself is still useful.
		h.logger.WarnContext(r.Context(), "handler: pair stats unavailable",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		stats = nil
	}

	writeJSON(w, http.StatusOK, map[string]any{"pair": pair, "stats": stats})
}

// Orderbook returns an aggregated depth snapshot for a pair.
// GET /api/orderbook/{symbol}?depth=20
func (h *MarketHandler) Orderbook(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	depth := 20
	if v := r.URL.Query().Get("depth"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			depth = n
		}
	}

	snap, err := h.markets.Orderbook(r.Context(), symbol, depth)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: orderbook failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load orderbook")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// RecentTrades returns the public trade tape for a pair.
// GET /api/trades/{symbol}?limit=50
func (h *MarketHandler) RecentTrades(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	opts := parseListOpts(r)

	trades, err := h.markets.RecentTrades(r.Context(), symbol, opts.Limit)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: recent trades failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	if trades == nil {
		trades = []domain.PublicTrade{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// Candles returns OHLCV buckets for a pair.
// GET /api/ohlcv/{symbol}?timeframe=1h&limit=100
func (h *MarketHandler) Candles(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "1h"
	}
	opts := parseListOpts(r)

	candles, err := h.markets.Candles(r.Context(), symbol, timeframe, opts.Limit)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: candles failed",
			slog.String("symbol", symbol),
			slog.String("timeframe", timeframe),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load candles")
		return
	}
	if candles == nil {
		candles = []domain.Candle{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   candles,
	})
}

// Stats returns the exchange-wide market overview.
// GET /api/stats
func (h *MarketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.markets.Overview(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: stats failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, overview)
}
