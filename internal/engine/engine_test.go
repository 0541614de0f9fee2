package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(DefaultFees())
	require.NoError(t, e.RegisterPair("pair-1", "SCRT/USDT", decimal.Zero))
	return e
}

func TestRegisterPairTwice(t *testing.T) {
	e := newTestEngine(t)
	err := e.RegisterPair("pair-1", "SCRT/USDT", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSubmitUnknownPair(t *testing.T) {
	e := newTestEngine(t)
	o := limitOrder(domain.SideBuy, "1", "10")
	o.PairSymbol = "NOPE/USDT"
	_, err := e.Submit(o)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngineSubmitAndDepth(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Submit(limitOrder(domain.SideBuy, "5", "10"))
	require.NoError(t, err)
	res, err := e.Submit(limitOrder(domain.SideSell, "3", "10"))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	snap, err := e.Depth("SCRT/USDT", 5)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.True(t, snap.Bids[0].Quantity.Equal(dec("2")))

	last, err := e.LastPrice("SCRT/USDT")
	require.NoError(t, err)
	assert.True(t, last.Equal(dec("10")))
}

func TestRetirePairCancelsEverything(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Submit(limitOrder(domain.SideBuy, "1", "10"))
	require.NoError(t, err)
	_, err = e.Submit(limitOrder(domain.SideSell, "1", "20"))
	require.NoError(t, err)

	cancelled, err := e.RetirePair("SCRT/USDT")
	require.NoError(t, err)
	assert.Len(t, cancelled, 2)

	_, err = e.Depth("SCRT/USDT", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachPoolAndSwap(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.AttachPool(newTestPool("1000", "2000")))

	err := e.AttachPool(newTestPool("1", "1"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	res, snap, err := e.Swap("SCRT/USDT", dec("10"), true)
	require.NoError(t, err)
	assert.True(t, snap.ReserveBase.Equal(dec("1010")))
	assert.True(t, res.AmountOut.IsPositive())

	// snapshot is detached from engine state
	snap.ReserveBase = decimal.Zero
	got, err := e.GetPool("SCRT/USDT")
	require.NoError(t, err)
	assert.True(t, got.ReserveBase.Equal(dec("1010")))
}

func TestConcurrentSubmits(t *testing.T) {
	e := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := domain.SideBuy
			if i%2 == 0 {
				side = domain.SideSell
			}
			o := limitOrder(side, "1", "10")
			o.ID = uuid.NewString()
			_, err := e.Submit(o)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// every order either traded or rests; the book never double-books
	snap, err := e.Depth("SCRT/USDT", 10)
	require.NoError(t, err)
	total := decimal.Zero
	for _, l := range snap.Bids {
		total = total.Add(l.Quantity)
	}
	for _, l := range snap.Asks {
		total = total.Add(l.Quantity)
	}
	assert.True(t, total.LessThanOrEqual(dec("50")))
}
