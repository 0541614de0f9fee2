package domain

import (
	"context"
	"time"
)

// ListOpts is shared pagination/filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

func (o ListOpts) Normalize(defLimit, maxLimit int) ListOpts {
	if o.Limit <= 0 {
		o.Limit = defLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	PairSymbol  string
	UserAddress string
	Statuses    []OrderStatus
	ListOpts
}

type PairStore interface {
	Create(ctx context.Context, p *TradingPair) error
	GetBySymbol(ctx context.Context, symbol string) (*TradingPair, error)
	List(ctx context.Context, activeOnly bool) ([]*TradingPair, error)
	UpdateStats(ctx context.Context, p *TradingPair) error
	SetActive(ctx context.Context, symbol string, active bool) error
}

type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f OrderFilter) ([]*Order, error)
	Update(ctx context.Context, o *Order) error
	UpdateBatch(ctx context.Context, orders []*Order) error
	ListResting(ctx context.Context, pairSymbol string) ([]*Order, error)
}

type TradeStore interface {
	CreateBatch(ctx context.Context, trades []*Trade) error
	Get(ctx context.Context, id string) (*Trade, error)
	ListByPair(ctx context.Context, pairSymbol string, opts ListOpts) ([]*Trade, error)
	ListByUser(ctx context.Context, address string, opts ListOpts) ([]*Trade, error)
	MarkSettled(ctx context.Context, id string, status SettlementStatus, at time.Time) error
	// ListSettledBefore feeds the archiver: settled trades executed before
	// the cutoff, oldest first.
	ListSettledBefore(ctx context.Context, pairSymbol string, cutoff time.Time, opts ListOpts) ([]*Trade, error)
	// Stats24h aggregates executions in the trailing 24h window.
	Stats24h(ctx context.Context, pairSymbol string, now time.Time) (*PairStats, error)
	Candles(ctx context.Context, pairSymbol string, bucket time.Duration, limit int) ([]Candle, error)
}

type PoolStore interface {
	Create(ctx context.Context, p *LiquidityPool) error
	GetBySymbol(ctx context.Context, pairSymbol string) (*LiquidityPool, error)
	List(ctx context.Context, activeOnly bool) ([]*LiquidityPool, error)
	Update(ctx context.Context, p *LiquidityPool) error
}

type PositionStore interface {
	Create(ctx context.Context, p *LiquidityPosition) error
	Get(ctx context.Context, id string) (*LiquidityPosition, error)
	GetActive(ctx context.Context, poolID, provider string) (*LiquidityPosition, error)
	ListByProvider(ctx context.Context, provider string) ([]*LiquidityPosition, error)
	Update(ctx context.Context, p *LiquidityPosition) error
}

type SessionStore interface {
	Create(ctx context.Context, s *PrivacySession) error
	GetByToken(ctx context.Context, tokenHash string) (*PrivacySession, error)
	GetByWalletHash(ctx context.Context, hash string) (*PrivacySession, error)
	Update(ctx context.Context, s *PrivacySession) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditEntry is an append-only operational record (archival runs, pair
// retirement, admin actions).
type AuditEntry struct {
	ID        string
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
