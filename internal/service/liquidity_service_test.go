package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/engine"
)

type liquidityFixture struct {
	svc       *LiquidityService
	eng       *engine.Engine
	pools     *fakePoolStore
	positions *fakePositionStore
	bus       *fakeBus
}

func newLiquidityFixture(t *testing.T) *liquidityFixture {
	t.Helper()
	f := &liquidityFixture{
		eng:       engine.New(engine.DefaultFees()),
		pools:     newFakePoolStore(),
		positions: newFakePositionStore(),
		bus:       newFakeBus(),
	}
	pairs := newFakePairStore()
	pair := &domain.TradingPair{ID: "pair-1", Symbol: "SCRT/USDT", IsActive: true}
	require.NoError(t, pairs.Create(context.Background(), pair))
	require.NoError(t, f.eng.RegisterPair(pair.ID, pair.Symbol, decimal.Zero))

	f.svc = NewLiquidityService(f.eng, pairs, f.pools, f.positions, f.bus, testLogger())
	return f
}

func createPoolReq() CreatePoolRequest {
	return CreatePoolRequest{
		PairSymbol:      "SCRT/USDT",
		InitialBase:     dec("1000"),
		InitialQuote:    dec("2000"),
		FeeRate:         dec("0.003"),
		ProviderAddress: "secret1provider",
	}
}

func TestCreatePoolBootstraps(t *testing.T) {
	f := newLiquidityFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, createPoolReq())
	require.NoError(t, err)
	assert.True(t, pool.ReserveBase.Equal(dec("1000")))
	assert.True(t, pool.ReserveQuote.Equal(dec("2000")))
	assert.True(t, pool.TotalLiquidity.IsPositive())

	// bootstrap position opened for the seeder
	pos, err := f.positions.GetActive(ctx, pool.ID, "secret1provider")
	require.NoError(t, err)
	assert.True(t, pos.Shares.Equal(pool.TotalLiquidity))

	// duplicate pool refused
	_, err = f.svc.CreatePool(ctx, createPoolReq())
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, 1, f.bus.count(domain.ChannelPools))
}

func TestSwapPersistsPool(t *testing.T) {
	f := newLiquidityFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePool(ctx, createPoolReq())
	require.NoError(t, err)

	res, err := f.svc.Swap(ctx, "SCRT/USDT", dec("10"), true)
	require.NoError(t, err)
	assert.True(t, res.AmountOut.IsPositive())

	stored, err := f.pools.GetBySymbol(ctx, "SCRT/USDT")
	require.NoError(t, err)
	assert.True(t, stored.ReserveBase.Equal(dec("1010")))
	assert.Equal(t, int64(1), stored.SwapCount)
}

func TestQuoteDoesNotMutate(t *testing.T) {
	f := newLiquidityFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePool(ctx, createPoolReq())
	require.NoError(t, err)

	q, err := f.svc.Quote(ctx, "SCRT/USDT", dec("10"), true)
	require.NoError(t, err)
	assert.True(t, q.Fee.Equal(dec("0.03")))

	pool, err := f.svc.GetPool(ctx, "SCRT/USDT")
	require.NoError(t, err)
	assert.True(t, pool.ReserveBase.Equal(dec("1000")))
}

func TestAddAndRemoveLiquidityLifecycle(t *testing.T) {
	f := newLiquidityFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePool(ctx, createPoolReq())
	require.NoError(t, err)

	add, err := f.svc.AddLiquidity(ctx, "SCRT/USDT", "secret1alice", dec("100"), dec("200"))
	require.NoError(t, err)
	assert.True(t, add.SharesMinted.IsPositive())
	assert.True(t, add.SharePercent.IsPositive())
	assert.True(t, add.SharePercent.LessThan(dec("100")))

	// second deposit grows the same position
	add2, err := f.svc.AddLiquidity(ctx, "SCRT/USDT", "secret1alice", dec("100"), dec("200"))
	require.NoError(t, err)
	assert.Equal(t, add.Position.ID, add2.Position.ID)
	assert.True(t, add2.Position.Shares.GreaterThan(add.Position.Shares))

	// full withdrawal closes the position
	rem, err := f.svc.RemoveLiquidity(ctx, "SCRT/USDT", "secret1alice", add2.Position.Shares)
	require.NoError(t, err)
	assert.True(t, rem.BaseOut.IsPositive())
	assert.True(t, rem.QuoteOut.IsPositive())

	_, err = f.positions.GetActive(ctx, add.Position.PoolID, "secret1alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveLiquidityOverPosition(t *testing.T) {
	f := newLiquidityFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePool(ctx, createPoolReq())
	require.NoError(t, err)

	add, err := f.svc.AddLiquidity(ctx, "SCRT/USDT", "secret1alice", dec("10"), dec("20"))
	require.NoError(t, err)

	_, err = f.svc.RemoveLiquidity(ctx, "SCRT/USDT", "secret1alice", add.Position.Shares.Mul(dec("2")))
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)

	// provider without a position cannot withdraw at all
	_, err = f.svc.RemoveLiquidity(ctx, "SCRT/USDT", "secret1stranger", dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRestorePoolsReattaches(t *testing.T) {
	f := newLiquidityFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePool(ctx, createPoolReq())
	require.NoError(t, err)

	eng2 := engine.New(engine.DefaultFees())
	require.NoError(t, eng2.RegisterPair("pair-1", "SCRT/USDT", decimal.Zero))
	pairs := newFakePairStore()
	svc2 := NewLiquidityService(eng2, pairs, f.pools, f.positions, f.bus, testLogger())

	require.NoError(t, svc2.RestorePools(ctx))
	pool, err := svc2.GetPool(ctx, "SCRT/USDT")
	require.NoError(t, err)
	assert.True(t, pool.ReserveBase.Equal(dec("1000")))
}
