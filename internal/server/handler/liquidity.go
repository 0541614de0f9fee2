package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/service"
)

// LiquidityService defines what the liquidity handler needs from the
// service layer.
type LiquidityService interface {
	CreatePool(ctx context.Context, req service.CreatePoolRequest) (*domain.LiquidityPool, error)
	GetPool(ctx context.Context, symbol string) (*domain.LiquidityPool, error)
	ListPools(ctx context.Context, activeOnly bool) ([]*domain.LiquidityPool, error)
	Quote(ctx context.Context, symbol string, amountIn decimal.Decimal, baseIn bool) (*domain.PoolQuote, error)
	Swap(ctx context.Context, symbol string, amountIn decimal.Decimal, baseIn bool) (*domain.SwapResult, error)
	AddLiquidity(ctx context.Context, symbol, provider string, base, quote decimal.Decimal) (*service.AddLiquidityResult, error)
	RemoveLiquidity(ctx context.Context, symbol, provider string, shares decimal.Decimal) (*service.RemoveLiquidityResult, error)
	ListPositions(ctx context.Context, provider string) ([]*domain.LiquidityPosition, error)
}

// LiquidityHandler serves AMM pool and liquidity-provider endpoints.
type LiquidityHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

func NewLiquidityHandler(liquidity LiquidityService, logger *slog.Logger) *LiquidityHandler {
	return &LiquidityHandler{liquidity: liquidity, logger: logger}
}

type createPoolRequest struct {
	Pair         string          `json:"pair"`
	Name         string          `json:"name"`
	InitialBase  decimal.Decimal `json:"initial_base"`
	InitialQuote decimal.Decimal `json:"initial_quote"`
	FeeRate      decimal.Decimal `json:"fee_rate"`
	Provider     string          `json:"provider"`
	IsPrivate    bool            `json:"is_private"`
}

// CreatePool bootstraps an AMM pool for an existing pair.
// POST /api/pools
func (h *LiquidityHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	pool, err := h.liquidity.CreatePool(r.Context(), service.CreatePoolRequest{
		PairSymbol:      normalizeSymbol(req.Pair),
		Name:            req.Name,
		InitialBase:     req.InitialBase,
		InitialQuote:    req.InitialQuote,
		FeeRate:         req.FeeRate,
		ProviderAddress: req.Provider,
		IsPrivate:       req.IsPrivate,
	})
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create pool failed",
			slog.String("pair", req.Pair),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create pool")
		return
	}

	writeJSON(w, http.StatusCreated, pool)
}

// ListPools returns AMM pools, active only unless ?all=true.
// GET /api/pools
func (h *LiquidityHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	pools, err := h.liquidity.ListPools(r.Context(), activeOnly)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pools failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pools")
		return
	}
	if pools == nil {
		pools = []*domain.LiquidityPool{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"pools": pools})
}

// GetPool returns one pool with reserves, spot price, and TVL.
// GET /api/pools/{symbol}
func (h *LiquidityHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)

	pool, err := h.liquidity.GetPool(r.Context(), symbol)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, "pool not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get pool failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get pool")
		return
	}

	writeJSON(w, http.StatusOK, pool)
}

type swapRequest struct {
	AmountIn decimal.Decimal `json:"amount_in"`
	// Direction is "base_to_quote" or "quote_to_base".
	Direction string `json:"direction"`
}

func (req swapRequest) baseIn() (bool, bool) {
	switch req.Direction {
	case "base_to_quote":
		return true, true
	case "quote_to_base":
		return false, true
	}
	return false, false
}

// QuoteSwap prices a hypothetical swap without mutating the pool.
// POST /api/pools/{symbol}/quote
func (h *LiquidityHandler) QuoteSwap(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	baseIn, ok := req.baseIn()
	if !ok {
		writeError(w, http.StatusBadRequest, "direction must be base_to_quote or quote_to_base")
		return
	}

	quote, err := h.liquidity.Quote(r.Context(), symbol, req.AmountIn, baseIn)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: quote swap failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to quote swap")
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// Swap executes a swap against the pool.
// POST /api/pools/{symbol}/swap
func (h *LiquidityHandler) Swap(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	baseIn, ok := req.baseIn()
	if !ok {
		writeError(w, http.StatusBadRequest, "direction must be base_to_quote or quote_to_base")
		return
	}

	result, err := h.liquidity.Swap(r.Context(), symbol, req.AmountIn, baseIn)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: swap failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to execute swap")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type addLiquidityRequest struct {
	Provider string          `json:"provider"`
	Base     decimal.Decimal `json:"base"`
	Quote    decimal.Decimal `json:"quote"`
}

type addLiquidityResponse struct {
	Position     *domain.LiquidityPosition `json:"position"`
	SharesMinted decimal.Decimal           `json:"shares_minted"`
	SharePercent decimal.Decimal           `json:"share_percent"`
	Pool         *domain.LiquidityPool     `json:"pool"`
}

// AddLiquidity deposits both assets and mints pool shares.
// POST /api/pools/{symbol}/liquidity
func (h *LiquidityHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	var req addLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	res, err := h.liquidity.AddLiquidity(r.Context(), symbol, req.Provider, req.Base, req.Quote)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: add liquidity failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to add liquidity")
		return
	}

	writeJSON(w, http.StatusCreated, addLiquidityResponse{
		Position:     res.Position,
		SharesMinted: res.SharesMinted,
		SharePercent: res.SharePercent,
		Pool:         res.Pool,
	})
}

type removeLiquidityRequest struct {
	Provider string          `json:"provider"`
	Shares   decimal.Decimal `json:"shares"`
}

type removeLiquidityResponse struct {
	BaseOut      decimal.Decimal       `json:"base_out"`
	QuoteOut     decimal.Decimal       `json:"quote_out"`
	SharesBurned decimal.Decimal       `json:"shares_burned"`
	Pool         *domain.LiquidityPool `json:"pool"`
}

// RemoveLiquidity burns pool shares and withdraws both assets.
// DELETE /api/pools/{symbol}/liquidity
func (h *LiquidityHandler) RemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	var req removeLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	res, err := h.liquidity.RemoveLiquidity(r.Context(), symbol, req.Provider, req.Shares)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: remove liquidity failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove liquidity")
		return
	}

	writeJSON(w, http.StatusOK, removeLiquidityResponse{
		BaseOut:      res.BaseOut,
		QuoteOut:     res.QuoteOut,
		SharesBurned: res.SharesBurned,
		Pool:         res.Pool,
	})
}

// ListPositions returns active liquidity positions for a provider.
// GET /api/positions?provider=...
func (h *LiquidityHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		writeError(w, http.StatusBadRequest, "provider query parameter required")
		return
	}

	positions, err := h.liquidity.ListPositions(r.Context(), provider)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []*domain.LiquidityPosition{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}
