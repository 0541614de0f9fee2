package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// In-memory collaborator fakes shared by the service tests.

type fakePairStore struct {
	mu    sync.Mutex
	pairs map[string]*domain.TradingPair
}

func newFakePairStore() *fakePairStore {
	return &fakePairStore{pairs: make(map[string]*domain.TradingPair)}
}

func (f *fakePairStore) Create(_ context.Context, p *domain.TradingPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pairs[p.Symbol]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	f.pairs[p.Symbol] = &cp
	return nil
}

func (f *fakePairStore) GetBySymbol(_ context.Context, symbol string) (*domain.TradingPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pairs[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePairStore) List(_ context.Context, activeOnly bool) ([]*domain.TradingPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TradingPair
	for _, p := range f.pairs {
		if activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePairStore) UpdateStats(_ context.Context, p *domain.TradingPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.pairs[p.Symbol] = &cp
	return nil
}

func (f *fakePairStore) SetActive(_ context.Context, symbol string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pairs[symbol]
	if !ok {
		return domain.ErrNotFound
	}
	p.IsActive = active
	return nil
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderStore) Create(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderStore) Get(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) List(_ context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, o := range f.orders {
		if filter.PairSymbol != "" && o.PairSymbol != filter.PairSymbol {
			continue
		}
		if filter.UserAddress != "" && o.UserAddress != filter.UserAddress {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeOrderStore) Update(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[o.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderStore) UpdateBatch(ctx context.Context, orders []*domain.Order) error {
	for _, o := range orders {
		if err := f.Update(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeOrderStore) ListResting(_ context.Context, pairSymbol string) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, o := range f.orders {
		if o.PairSymbol == pairSymbol && o.IsResting() {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeTradeStore struct {
	mu     sync.Mutex
	trades []*domain.Trade
}

func (f *fakeTradeStore) CreateBatch(_ context.Context, trades []*domain.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range trades {
		cp := *t
		f.trades = append(f.trades, &cp)
	}
	return nil
}

func (f *fakeTradeStore) Get(_ context.Context, id string) (*domain.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trades {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTradeStore) ListByPair(_ context.Context, pairSymbol string, _ domain.ListOpts) ([]*domain.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Trade
	for _, t := range f.trades {
		if t.PairSymbol == pairSymbol {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTradeStore) ListByUser(_ context.Context, address string, _ domain.ListOpts) ([]*domain.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Trade
	for _, t := range f.trades {
		if t.BuyerAddress == address || t.SellerAddress == address {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTradeStore) MarkSettled(_ context.Context, id string, status domain.SettlementStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trades {
		if t.ID == id {
			t.SettlementStatus = status
			t.SettledAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeTradeStore) ListSettledBefore(_ context.Context, pairSymbol string, cutoff time.Time, _ domain.ListOpts) ([]*domain.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Trade
	for _, t := range f.trades {
		if t.PairSymbol == pairSymbol && t.SettlementStatus == domain.SettlementSettled && t.ExecutedAt.Before(cutoff) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTradeStore) Stats24h(_ context.Context, pairSymbol string, now time.Time) (*domain.PairStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.PairStats{Symbol: pairSymbol}
	since := now.Add(-24 * time.Hour)
	for _, t := range f.trades {
		if t.PairSymbol != pairSymbol || t.ExecutedAt.Before(since) {
			continue
		}
		stats.TradeCount++
		stats.LastPrice = t.Price
		stats.VolumeBase = stats.VolumeBase.Add(t.Quantity)
		stats.VolumeQuote = stats.VolumeQuote.Add(t.Notional())
		if stats.High24h.IsZero() || t.Price.GreaterThan(stats.High24h) {
			stats.High24h = t.Price
		}
		if stats.Low24h.IsZero() || t.Price.LessThan(stats.Low24h) {
			stats.Low24h = t.Price
		}
	}
	return stats, nil
}

func (f *fakeTradeStore) Candles(_ context.Context, _ string, _ time.Duration, _ int) ([]domain.Candle, error) {
	return nil, nil
}

type fakePoolStore struct {
	mu    sync.Mutex
	pools map[string]*domain.LiquidityPool
}

func newFakePoolStore() *fakePoolStore {
	return &fakePoolStore{pools: make(map[string]*domain.LiquidityPool)}
}

func (f *fakePoolStore) Create(_ context.Context, p *domain.LiquidityPool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pools[p.PairSymbol]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	f.pools[p.PairSymbol] = &cp
	return nil
}

func (f *fakePoolStore) GetBySymbol(_ context.Context, pairSymbol string) (*domain.LiquidityPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[pairSymbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePoolStore) List(_ context.Context, activeOnly bool) ([]*domain.LiquidityPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.LiquidityPool
	for _, p := range f.pools {
		if activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePoolStore) Update(_ context.Context, p *domain.LiquidityPool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.pools[p.PairSymbol] = &cp
	return nil
}

type fakePositionStore struct {
	mu        sync.Mutex
	positions map[string]*domain.LiquidityPosition
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{positions: make(map[string]*domain.LiquidityPosition)}
}

func (f *fakePositionStore) Create(_ context.Context, p *domain.LiquidityPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.positions[p.ID] = &cp
	return nil
}

func (f *fakePositionStore) Get(_ context.Context, id string) (*domain.LiquidityPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.positions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePositionStore) GetActive(_ context.Context, poolID, provider string) (*domain.LiquidityPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.positions {
		if p.PoolID == poolID && p.ProviderAddress == provider && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePositionStore) ListByProvider(_ context.Context, provider string) ([]*domain.LiquidityPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.LiquidityPosition
	for _, p := range f.positions {
		if p.ProviderAddress == provider {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePositionStore) Update(_ context.Context, p *domain.LiquidityPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.positions[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	f.positions[p.ID] = &cp
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.PrivacySession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*domain.PrivacySession)}
}

func (f *fakeSessionStore) Create(_ context.Context, s *domain.PrivacySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByToken(_ context.Context, token string) (*domain.PrivacySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Token == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSessionStore) GetByWalletHash(_ context.Context, hash string) (*domain.PrivacySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.WalletHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSessionStore) Update(_ context.Context, s *domain.PrivacySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{messages: make(map[string][][]byte)}
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[channel] = append(f.messages[channel], payload)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, ...string) (<-chan domain.Signal, error) {
	ch := make(chan domain.Signal)
	close(ch)
	return ch, nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) count(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[channel])
}

type fakeLimiter struct{ deny bool }

func (f *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return !f.deny, nil
}

type fakeBookCache struct {
	mu    sync.Mutex
	snaps map[string]*domain.BookSnapshot
}

func newFakeBookCache() *fakeBookCache {
	return &fakeBookCache{snaps: make(map[string]*domain.BookSnapshot)}
}

func (f *fakeBookCache) Set(_ context.Context, snap *domain.BookSnapshot, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.PairSymbol] = snap
	return nil
}

func (f *fakeBookCache) Get(_ context.Context, symbol string) (*domain.BookSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return snap, nil
}

type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{prices: make(map[string]decimal.Decimal)}
}

func (f *fakePriceCache) Set(_ context.Context, symbol string, price decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
	return nil
}

func (f *fakePriceCache) Get(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return p, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeBridge struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeBridge) SendOrder(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return context.DeadlineExceeded
	}
	f.sent = append(f.sent, o.ID)
	return nil
}
