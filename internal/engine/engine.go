package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// pairState bundles everything guarded by one pair's lock: the book and the
// pool share the lock so orderbook and AMM mutations on the same pair never
// interleave.
type pairState struct {
	mu   sync.RWMutex
	book *Book
	pool *domain.LiquidityPool
}

// Engine is the in-memory trading core: one Book and at most one
// LiquidityPool per registered pair. All methods are safe for concurrent use.
// The engine performs no I/O; callers persist the returned state.
type Engine struct {
	mu    sync.RWMutex
	pairs map[string]*pairState

	fees FeeSchedule
	amm  *AMM
}

func New(fees FeeSchedule) *Engine {
	return &Engine{
		pairs: make(map[string]*pairState),
		fees:  fees,
		amm:   NewAMM(),
	}
}

// RegisterPair creates the in-memory book for a pair. Registering an already
// known symbol is an error.
func (e *Engine) RegisterPair(pairID, symbol string, lastPrice decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pairs[symbol]; ok {
		return fmt.Errorf("%w: pair %s", domain.ErrAlreadyExists, symbol)
	}
	book := NewBook(pairID, symbol, e.fees)
	book.SetLastPrice(lastPrice)
	e.pairs[symbol] = &pairState{book: book}
	return nil
}

// RestoreOrder puts a persisted resting order back on its book at startup.
func (e *Engine) RestoreOrder(o *domain.Order) error {
	ps, err := e.pair(o.PairSymbol)
	if err != nil {
		return err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.book.Restore(o)
	return nil
}

// AttachPool binds a pool to its pair so swaps and book trades share the
// pair lock.
func (e *Engine) AttachPool(pool *domain.LiquidityPool) error {
	ps, err := e.pair(pool.PairSymbol)
	if err != nil {
		return err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.pool != nil {
		return fmt.Errorf("%w: pool for %s", domain.ErrAlreadyExists, pool.PairSymbol)
	}
	ps.pool = pool
	return nil
}

func (e *Engine) pair(symbol string) (*pairState, error) {
	e.mu.RLock()
	ps, ok := e.pairs[symbol]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: pair %s", domain.ErrNotFound, symbol)
	}
	return ps, nil
}

// Submit matches an order against its pair's book.
func (e *Engine) Submit(o *domain.Order) (*SubmitResult, error) {
	ps, err := e.pair(o.PairSymbol)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.book.Submit(o)
}

// Cancel removes a live order, enforcing ownership when requester is set.
func (e *Engine) Cancel(symbol, orderID, requester string) (*domain.Order, error) {
	ps, err := e.pair(symbol)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.book.Cancel(orderID, requester)
}

// GetOrder returns a copy of a live order.
func (e *Engine) GetOrder(symbol, orderID string) (*domain.Order, error) {
	ps, err := e.pair(symbol)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	o, ok := ps.book.Get(orderID)
	if !ok {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	cp := *o
	return &cp, nil
}

// SweepExpired expires due orders across every pair and reports them.
func (e *Engine) SweepExpired(now time.Time) []*domain.Order {
	e.mu.RLock()
	states := make([]*pairState, 0, len(e.pairs))
	for _, ps := range e.pairs {
		states = append(states, ps)
	}
	e.mu.RUnlock()

	var expired []*domain.Order
	for _, ps := range states {
		ps.mu.Lock()
		expired = append(expired, ps.book.SweepExpired(now)...)
		ps.mu.Unlock()
	}
	return expired
}

// RetirePair cancels every live order and detaches the pair from the engine.
func (e *Engine) RetirePair(symbol string) ([]*domain.Order, error) {
	e.mu.Lock()
	ps, ok := e.pairs[symbol]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: pair %s", domain.ErrNotFound, symbol)
	}
	delete(e.pairs, symbol)
	e.mu.Unlock()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.book.CancelAll(), nil
}

// Depth snapshots the book, truncated to maxLevels per side.
func (e *Engine) Depth(symbol string, maxLevels int) (*domain.BookSnapshot, error) {
	ps, err := e.pair(symbol)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.book.Depth(maxLevels), nil
}

// LastPrice returns the pair's last traded price.
func (e *Engine) LastPrice(symbol string) (decimal.Decimal, error) {
	ps, err := e.pair(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.book.LastPrice(), nil
}

func (e *Engine) pool(symbol string) (*pairState, error) {
	ps, err := e.pair(symbol)
	if err != nil {
		return nil, err
	}
	if ps.pool == nil {
		return nil, fmt.Errorf("%w: no pool for %s", domain.ErrNotFound, symbol)
	}
	return ps, nil
}

// QuoteSwap previews a swap without mutating the pool.
func (e *Engine) QuoteSwap(symbol string, amountIn decimal.Decimal, baseIn bool) (*domain.PoolQuote, error) {
	ps, err := e.pool(symbol)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return e.amm.Quote(ps.pool, amountIn, baseIn)
}

// Swap executes a swap under the pair lock and returns the result plus a
// snapshot of the mutated pool for persistence.
func (e *Engine) Swap(symbol string, amountIn decimal.Decimal, baseIn bool) (*domain.SwapResult, *domain.LiquidityPool, error) {
	ps, err := e.pool(symbol)
	if err != nil {
		return nil, nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	res, err := e.amm.Swap(ps.pool, amountIn, baseIn)
	if err != nil {
		return nil, nil, err
	}
	cp := *ps.pool
	return res, &cp, nil
}

// AddLiquidity mints shares under the pair lock. Returns minted shares and a
// pool snapshot.
func (e *Engine) AddLiquidity(symbol string, base, quote decimal.Decimal) (decimal.Decimal, *domain.LiquidityPool, error) {
	ps, err := e.pool(symbol)
	if err != nil {
		return decimal.Zero, nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	minted, err := e.amm.AddLiquidity(ps.pool, base, quote)
	if err != nil {
		return decimal.Zero, nil, err
	}
	cp := *ps.pool
	return minted, &cp, nil
}

// RemoveLiquidity burns shares under the pair lock. Returns the withdrawn
// amounts and a pool snapshot.
func (e *Engine) RemoveLiquidity(symbol string, shares decimal.Decimal) (decimal.Decimal, decimal.Decimal, *domain.LiquidityPool, error) {
	ps, err := e.pool(symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	base, quote, err := e.amm.RemoveLiquidity(ps.pool, shares)
	if err != nil {
		return decimal.Zero, decimal.Zero, nil, err
	}
	cp := *ps.pool
	return base, quote, &cp, nil
}

// GetPool returns a snapshot of the pair's pool.
func (e *Engine) GetPool(symbol string) (*domain.LiquidityPool, error) {
	ps, err := e.pool(symbol)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	cp := *ps.pool
	return &cp, nil
}
