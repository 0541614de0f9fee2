package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/engine"
)

var symbolRe = regexp.MustCompile(`^[A-Z0-9]{2,10}/[A-Z0-9]{2,10}$`)

// Timeframes accepted by the OHLCV endpoint.
var candleBuckets = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// MarketOverview is the aggregate served by GET /api/stats.
type MarketOverview struct {
	Pairs          int               `json:"pairs"`
	TotalVolume24h decimal.Decimal   `json:"total_volume_24h"`
	TopGainer      *domain.PairStats `json:"top_gainer,omitempty"`
	TopLoser       *domain.PairStats `json:"top_loser,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// MarketService serves pair metadata, order book snapshots, trade history,
// and derived market statistics.
type MarketService struct {
	eng    *engine.Engine
	pairs  domain.PairStore
	trades domain.TradeStore
	books  domain.BookCache
	logger *slog.Logger
}

func NewMarketService(
	eng *engine.Engine,
	pairs domain.PairStore,
	trades domain.TradeStore,
	books domain.BookCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		eng:    eng,
		pairs:  pairs,
		trades: trades,
		books:  books,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// CreatePair registers a new trading pair and its in-memory book.
func (s *MarketService) CreatePair(ctx context.Context, symbol, baseToken, quoteToken string) (*domain.TradingPair, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolRe.MatchString(symbol) {
		return nil, fmt.Errorf("%w: malformed symbol %q", domain.ErrValidation, symbol)
	}
	if baseToken == "" || quoteToken == "" {
		return nil, fmt.Errorf("%w: base and quote tokens required", domain.ErrValidation)
	}

	now := time.Now().UTC()
	pair := &domain.TradingPair{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		BaseToken:  strings.ToUpper(baseToken),
		QuoteToken: strings.ToUpper(quoteToken),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.pairs.Create(ctx, pair); err != nil {
		return nil, fmt.Errorf("market_service: persist pair: %w", err)
	}
	if err := s.eng.RegisterPair(pair.ID, pair.Symbol, decimal.Zero); err != nil {
		return nil, fmt.Errorf("market_service: register pair: %w", err)
	}
	s.logger.InfoContext(ctx, "pair created", slog.String("pair", symbol))
	return pair, nil
}

func (s *MarketService) GetPair(ctx context.Context, symbol string) (*domain.TradingPair, error) {
	p, err := s.pairs.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("market_service: get pair: %w", err)
	}
	return p, nil
}

func (s *MarketService) ListPairs(ctx context.Context, activeOnly bool) ([]*domain.TradingPair, error) {
	pairs, err := s.pairs.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("market_service: list pairs: %w", err)
	}
	return pairs, nil
}

// Orderbook returns a depth-limited book snapshot, preferring the cache and
// falling back to the live engine.
func (s *MarketService) Orderbook(ctx context.Context, symbol string, depth int) (*domain.BookSnapshot, error) {
	if depth <= 0 || depth > 100 {
		depth = 20
	}
	if s.books != nil {
		snap, err := s.books.Get(ctx, symbol)
		if err == nil && len(snap.Bids)+len(snap.Asks) > 0 {
			trimBook(snap, depth)
			return snap, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "book cache read failed",
				slog.String("pair", symbol), slog.String("error", err.Error()))
		}
	}
	snap, err := s.eng.Depth(symbol, depth)
	if err != nil {
		return nil, fmt.Errorf("market_service: orderbook: %w", err)
	}
	return snap, nil
}

func trimBook(snap *domain.BookSnapshot, depth int) {
	if len(snap.Bids) > depth {
		snap.Bids = snap.Bids[:depth]
	}
	if len(snap.Asks) > depth {
		snap.Asks = snap.Asks[:depth]
	}
}

// RecentTrades returns the public projection of the latest executions.
func (s *MarketService) RecentTrades(ctx context.Context, symbol string, limit int) ([]domain.PublicTrade, error) {
	opts := domain.ListOpts{Limit: limit}.Normalize(50, 200)
	trades, err := s.trades.ListByPair(ctx, symbol, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: recent trades: %w", err)
	}
	out := make([]domain.PublicTrade, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.PublicView())
	}
	return out, nil
}

// Stats24h returns the trailing 24h roll-up for one pair.
func (s *MarketService) Stats24h(ctx context.Context, symbol string) (*domain.PairStats, error) {
	stats, err := s.trades.Stats24h(ctx, symbol, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("market_service: 24h stats: %w", err)
	}
	return stats, nil
}

// Candles aggregates stored trades into OHLCV buckets.
func (s *MarketService) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	bucket, ok := candleBuckets[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: unknown timeframe %q", domain.ErrValidation, timeframe)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	candles, err := s.trades.Candles(ctx, symbol, bucket, limit)
	if err != nil {
		return nil, fmt.Errorf("market_service: candles: %w", err)
	}
	return candles, nil
}

// Overview summarizes all active pairs: total volume plus biggest movers.
func (s *MarketService) Overview(ctx context.Context) (*MarketOverview, error) {
	pairs, err := s.pairs.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("market_service: overview: %w", err)
	}

	ov := &MarketOverview{
		Pairs:          len(pairs),
		TotalVolume24h: decimal.Zero,
		GeneratedAt:    time.Now().UTC(),
	}
	for _, p := range pairs {
		ov.TotalVolume24h = ov.TotalVolume24h.Add(p.Volume24hQuote)
		st := &domain.PairStats{
			Symbol:      p.Symbol,
			LastPrice:   p.LastPrice,
			High24h:     p.High24h,
			Low24h:      p.Low24h,
			VolumeBase:  p.Volume24hBase,
			VolumeQuote: p.Volume24hQuote,
			Change24h:   p.Change24h,
		}
		if ov.TopGainer == nil || st.Change24h.GreaterThan(ov.TopGainer.Change24h) {
			ov.TopGainer = st
		}
		if ov.TopLoser == nil || st.Change24h.LessThan(ov.TopLoser.Change24h) {
			ov.TopLoser = st
		}
	}
	return ov, nil
}

// RefreshPairStats recomputes each active pair's 24h window from stored
// trades. Run periodically so stats decay as trades age out.
func (s *MarketService) RefreshPairStats(ctx context.Context) error {
	pairs, err := s.pairs.List(ctx, true)
	if err != nil {
		return fmt.Errorf("market_service: refresh stats: %w", err)
	}
	now := time.Now().UTC()
	for _, p := range pairs {
		st, err := s.trades.Stats24h(ctx, p.Symbol, now)
		if err != nil {
			s.logger.WarnContext(ctx, "stats rollup failed",
				slog.String("pair", p.Symbol), slog.String("error", err.Error()))
			continue
		}
		p.High24h = st.High24h
		p.Low24h = st.Low24h
		p.Volume24hBase = st.VolumeBase
		p.Volume24hQuote = st.VolumeQuote
		p.Change24h = st.Change24h
		p.UpdatedAt = now
		if err := s.pairs.UpdateStats(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "stats persist failed",
				slog.String("pair", p.Symbol), slog.String("error", err.Error()))
		}
	}
	return nil
}
