package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/engine"
)

var hundred = decimal.NewFromInt(100)

// CreatePoolRequest seeds a new constant-product pool for an existing pair.
type CreatePoolRequest struct {
	PairSymbol      string
	Name            string
	InitialBase     decimal.Decimal
	InitialQuote    decimal.Decimal
	FeeRate         decimal.Decimal
	ProviderAddress string
	IsPrivate       bool
}

// AddLiquidityResult reports a mint.
type AddLiquidityResult struct {
	Position     *domain.LiquidityPosition
	SharesMinted decimal.Decimal
	SharePercent decimal.Decimal
	Pool         *domain.LiquidityPool
}

// RemoveLiquidityResult reports a burn.
type RemoveLiquidityResult struct {
	BaseOut      decimal.Decimal
	QuoteOut     decimal.Decimal
	SharesBurned decimal.Decimal
	Pool         *domain.LiquidityPool
}

// LiquidityService drives the AMM engine and owns pool/position persistence
// and pool event publication.
type LiquidityService struct {
	eng       *engine.Engine
	pairs     domain.PairStore
	pools     domain.PoolStore
	positions domain.PositionStore
	bus       domain.SignalBus
	logger    *slog.Logger
}

func NewLiquidityService(
	eng *engine.Engine,
	pairs domain.PairStore,
	pools domain.PoolStore,
	positions domain.PositionStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *LiquidityService {
	return &LiquidityService{
		eng:       eng,
		pairs:     pairs,
		pools:     pools,
		positions: positions,
		bus:       bus,
		logger:    logger.With(slog.String("component", "liquidity_service")),
	}
}

// CreatePool creates and seeds a pool. The initial deposit bootstraps the
// share supply and opens the provider's position.
func (s *LiquidityService) CreatePool(ctx context.Context, req CreatePoolRequest) (*domain.LiquidityPool, error) {
	if !req.InitialBase.IsPositive() || !req.InitialQuote.IsPositive() {
		return nil, fmt.Errorf("%w: initial reserves must be positive", domain.ErrValidation)
	}
	if req.FeeRate.IsNegative() || req.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: fee rate must be in [0,1)", domain.ErrValidation)
	}

	pair, err := s.pairs.GetBySymbol(ctx, req.PairSymbol)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: lookup pair: %w", err)
	}
	if _, err := s.pools.GetBySymbol(ctx, pair.Symbol); err == nil {
		return nil, fmt.Errorf("%w: pool for %s", domain.ErrAlreadyExists, pair.Symbol)
	}

	now := time.Now().UTC()
	name := req.Name
	if name == "" {
		name = pair.Symbol + " Pool"
	}
	pool := &domain.LiquidityPool{
		ID:         uuid.NewString(),
		PairID:     pair.ID,
		PairSymbol: pair.Symbol,
		Name:       name,
		FeeRate:    req.FeeRate,
		IsActive:   true,
		IsPrivate:  req.IsPrivate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.eng.AttachPool(pool); err != nil {
		return nil, fmt.Errorf("liquidity_service: attach pool: %w", err)
	}

	minted, snap, err := s.eng.AddLiquidity(pair.Symbol, req.InitialBase, req.InitialQuote)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: seed pool: %w", err)
	}
	if err := s.pools.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("liquidity_service: persist pool: %w", err)
	}

	if req.ProviderAddress != "" {
		pos := s.newPosition(snap, req.ProviderAddress, minted, req.InitialBase, req.InitialQuote, now)
		if err := s.positions.Create(ctx, pos); err != nil {
			return nil, fmt.Errorf("liquidity_service: persist position: %w", err)
		}
	}

	s.publishPoolEvent(ctx, "pool_created", snap)
	s.logger.InfoContext(ctx, "pool created",
		slog.String("pair", pair.Symbol),
		slog.String("pool_id", snap.ID),
		slog.String("shares", minted.String()),
	)
	return snap, nil
}

// Quote previews a swap.
func (s *LiquidityService) Quote(ctx context.Context, symbol string, amountIn decimal.Decimal, baseIn bool) (*domain.PoolQuote, error) {
	q, err := s.eng.QuoteSwap(symbol, amountIn, baseIn)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: quote: %w", err)
	}
	return q, nil
}

// Swap executes a swap and persists the mutated pool. Publication is
// fire-and-forget after the state change.
func (s *LiquidityService) Swap(ctx context.Context, symbol string, amountIn decimal.Decimal, baseIn bool) (*domain.SwapResult, error) {
	res, snap, err := s.eng.Swap(symbol, amountIn, baseIn)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: swap: %w", err)
	}
	if err := s.pools.Update(ctx, snap); err != nil {
		return nil, fmt.Errorf("liquidity_service: persist pool: %w", err)
	}

	s.publishPoolEvent(ctx, "pool_swap", snap)
	s.logger.InfoContext(ctx, "swap executed",
		slog.String("pair", symbol),
		slog.String("amount_in", res.AmountIn.String()),
		slog.String("amount_out", res.AmountOut.String()),
		slog.String("price_impact", res.PriceImpact.String()),
	)
	return res, nil
}

// AddLiquidity mints shares for a deposit and opens or grows the provider's
// position.
func (s *LiquidityService) AddLiquidity(ctx context.Context, symbol, provider string, base, quote decimal.Decimal) (*AddLiquidityResult, error) {
	minted, snap, err := s.eng.AddLiquidity(symbol, base, quote)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: add liquidity: %w", err)
	}
	if err := s.pools.Update(ctx, snap); err != nil {
		return nil, fmt.Errorf("liquidity_service: persist pool: %w", err)
	}

	now := time.Now().UTC()
	pos, err := s.positions.GetActive(ctx, snap.ID, provider)
	switch {
	case err == nil:
		pos.Shares = pos.Shares.Add(minted)
		pos.UpdatedAt = now
		if err := s.positions.Update(ctx, pos); err != nil {
			return nil, fmt.Errorf("liquidity_service: persist position: %w", err)
		}
	case errors.Is(err, domain.ErrNotFound):
		pos = s.newPosition(snap, provider, minted, base, quote, now)
		if err := s.positions.Create(ctx, pos); err != nil {
			return nil, fmt.Errorf("liquidity_service: persist position: %w", err)
		}
	default:
		return nil, fmt.Errorf("liquidity_service: lookup position: %w", err)
	}

	s.publishPoolEvent(ctx, "pool_liquidity_added", snap)
	return &AddLiquidityResult{
		Position:     pos,
		SharesMinted: minted,
		SharePercent: sharePercent(pos.Shares, snap.TotalLiquidity),
		Pool:         snap,
	}, nil
}

// RemoveLiquidity burns shares from the provider's position and returns the
// proportional withdrawal.
func (s *LiquidityService) RemoveLiquidity(ctx context.Context, symbol, provider string, shares decimal.Decimal) (*RemoveLiquidityResult, error) {
	pool, err := s.eng.GetPool(symbol)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: lookup pool: %w", err)
	}
	pos, err := s.positions.GetActive(ctx, pool.ID, provider)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: lookup position: %w", err)
	}
	if shares.GreaterThan(pos.Shares) {
		return nil, fmt.Errorf("%w: burn %s exceeds position %s",
			domain.ErrInsufficientShares, shares, pos.Shares)
	}

	base, quote, snap, err := s.eng.RemoveLiquidity(symbol, shares)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: remove liquidity: %w", err)
	}
	if err := s.pools.Update(ctx, snap); err != nil {
		return nil, fmt.Errorf("liquidity_service: persist pool: %w", err)
	}

	now := time.Now().UTC()
	pos.Shares = pos.Shares.Sub(shares)
	pos.UpdatedAt = now
	if pos.Shares.IsZero() {
		pos.IsActive = false
		pos.ClosedAt = &now
	}
	if err := s.positions.Update(ctx, pos); err != nil {
		return nil, fmt.Errorf("liquidity_service: persist position: %w", err)
	}

	s.publishPoolEvent(ctx, "pool_liquidity_removed", snap)
	return &RemoveLiquidityResult{
		BaseOut:      base,
		QuoteOut:     quote,
		SharesBurned: shares,
		Pool:         snap,
	}, nil
}

func (s *LiquidityService) GetPool(ctx context.Context, symbol string) (*domain.LiquidityPool, error) {
	pool, err := s.eng.GetPool(symbol)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: get pool: %w", err)
	}
	return pool, nil
}

func (s *LiquidityService) ListPools(ctx context.Context, activeOnly bool) ([]*domain.LiquidityPool, error) {
	pools, err := s.pools.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: list pools: %w", err)
	}
	return pools, nil
}

func (s *LiquidityService) ListPositions(ctx context.Context, provider string) ([]*domain.LiquidityPosition, error) {
	if provider == "" {
		return nil, fmt.Errorf("%w: provider address required", domain.ErrValidation)
	}
	positions, err := s.positions.ListByProvider(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: list positions: %w", err)
	}
	return positions, nil
}

// RestorePools attaches persisted pools to the engine at startup.
func (s *LiquidityService) RestorePools(ctx context.Context) error {
	pools, err := s.pools.List(ctx, false)
	if err != nil {
		return fmt.Errorf("liquidity_service: load pools: %w", err)
	}
	for _, p := range pools {
		if err := s.eng.AttachPool(p); err != nil {
			return fmt.Errorf("liquidity_service: attach pool %s: %w", p.PairSymbol, err)
		}
	}
	return nil
}

func (s *LiquidityService) newPosition(pool *domain.LiquidityPool, provider string, shares, base, quote decimal.Decimal, now time.Time) *domain.LiquidityPosition {
	return &domain.LiquidityPosition{
		ID:              uuid.NewString(),
		PoolID:          pool.ID,
		ProviderAddress: provider,
		Shares:          shares,
		InitialBase:     base,
		InitialQuote:    quote,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *LiquidityService) publishPoolEvent(ctx context.Context, event string, pool *domain.LiquidityPool) {
	payload, _ := json.Marshal(map[string]any{
		"event":         event,
		"pool_id":       pool.ID,
		"pair":          pool.PairSymbol,
		"reserve_base":  pool.ReserveBase,
		"reserve_quote": pool.ReserveQuote,
		"price":         pool.SpotPrice(),
	})
	if err := s.bus.Publish(ctx, domain.ChannelPools, payload); err != nil {
		s.logger.WarnContext(ctx, "publish pool event failed",
			slog.String("pool_id", pool.ID), slog.String("error", err.Error()))
	}
}

func sharePercent(shares, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return shares.Div(total).Mul(hundred)
}
