package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

func newTestPool(base, quote string) *domain.LiquidityPool {
	rb, rq := dec(base), dec(quote)
	return &domain.LiquidityPool{
		ID:             "pool-1",
		PairID:         "pair-1",
		PairSymbol:     "SCRT/USDT",
		ReserveBase:    rb,
		ReserveQuote:   rq,
		TotalLiquidity: sqrtDecimal(rb.Mul(rq)),
		FeeRate:        dec("0.003"),
		IsActive:       true,
	}
}

func TestQuoteConstantProduct(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")

	q, err := amm.Quote(pool, dec("10"), true)
	require.NoError(t, err)

	// fee = 10 * 0.003 = 0.03, effective in = 9.97
	// out = 9.97 * 2000 / (1000 + 9.97)
	assert.True(t, q.Fee.Equal(dec("0.03")), "fee %s", q.Fee)
	out, _ := q.AmountOut.Float64()
	assert.InDelta(t, 19.7432, out, 0.0005)
	assert.True(t, q.PriceImpact.IsPositive())
}

func TestQuoteEmptyPool(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("0", "0")

	_, err := amm.Quote(pool, dec("10"), true)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
}

func TestQuoteRejectsNonPositiveInput(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")

	_, err := amm.Quote(pool, decimal.Zero, true)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSwapPreservesProduct(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")
	kBefore := pool.ReserveBase.Mul(pool.ReserveQuote)

	res, err := amm.Swap(pool, dec("10"), true)
	require.NoError(t, err)

	kAfter := pool.ReserveBase.Mul(pool.ReserveQuote)
	assert.True(t, kAfter.GreaterThanOrEqual(kBefore), "k must not decrease: %s -> %s", kBefore, kAfter)

	assert.True(t, pool.ReserveBase.Equal(dec("1010")))
	assert.True(t, pool.ReserveQuote.Equal(dec("2000").Sub(res.AmountOut)))
	assert.Equal(t, int64(1), pool.SwapCount)
	assert.True(t, pool.TotalFeesCollected.Equal(dec("0.03")))
	assert.True(t, pool.TotalVolumeBase.Equal(dec("10")))
	require.NotNil(t, pool.LastSwapAt)
	assert.Equal(t, "SCRT", res.TokenIn)
	assert.Equal(t, "USDT", res.TokenOut)

	// price moved against the buyer of quote
	assert.True(t, res.NewPrice.LessThan(dec("2")))
}

func TestSwapQuoteIn(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")

	res, err := amm.Swap(pool, dec("20"), false)
	require.NoError(t, err)

	assert.True(t, pool.ReserveQuote.Equal(dec("2020")))
	assert.True(t, pool.ReserveBase.Equal(dec("1000").Sub(res.AmountOut)))
	assert.True(t, res.NewPrice.GreaterThan(dec("2")))
	assert.Equal(t, "USDT", res.TokenIn)
	assert.Equal(t, "SCRT", res.TokenOut)
}

func TestSwapCannotDrainReserve(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")
	kBefore := pool.ReserveBase.Mul(pool.ReserveQuote)

	// The asymptote rounds to the full opposite reserve for a big enough
	// input; the swap must refuse rather than zero the pool.
	_, err := amm.Swap(pool, dec("1e30"), true)
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	assert.True(t, pool.ReserveBase.Equal(dec("1000")))
	assert.True(t, pool.ReserveQuote.Equal(dec("2000")))
	assert.True(t, pool.ReserveQuote.IsPositive())
	assert.True(t, pool.ReserveBase.Mul(pool.ReserveQuote).Equal(kBefore))
	assert.Equal(t, int64(0), pool.SwapCount)
}

func TestSwapInactivePool(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")
	pool.IsActive = false

	_, err := amm.Swap(pool, dec("10"), true)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestBootstrapLiquidityMintsSqrt(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("0", "0")
	pool.TotalLiquidity = decimal.Zero

	minted, err := amm.AddLiquidity(pool, dec("100"), dec("400"))
	require.NoError(t, err)

	// sqrt(100*400) = 200
	m, _ := minted.Float64()
	assert.InDelta(t, 200.0, m, 1e-9)
	assert.True(t, pool.ReserveBase.Equal(dec("100")))
	assert.True(t, pool.ReserveQuote.Equal(dec("400")))
}

func TestProportionalLiquidityMint(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")
	supply := pool.TotalLiquidity

	// 10% of both reserves mints 10% of supply
	minted, err := amm.AddLiquidity(pool, dec("100"), dec("200"))
	require.NoError(t, err)

	want := supply.Div(dec("10"))
	assert.True(t, minted.Sub(want).Abs().LessThan(dec("0.000001")), "minted %s want %s", minted, want)

	// lopsided deposit mints by the smaller side
	supply = pool.TotalLiquidity
	minted, err = amm.AddLiquidity(pool, dec("110"), dec("110"))
	require.NoError(t, err)
	want = dec("110").Div(pool.ReserveQuote.Sub(dec("110"))).Mul(supply)
	assert.True(t, minted.Sub(want).Abs().LessThan(dec("0.000001")), "minted %s want %s", minted, want)
}

func TestRemoveLiquidityProportional(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")
	supply := pool.TotalLiquidity

	base, quote, err := amm.RemoveLiquidity(pool, supply.Div(dec("4")))
	require.NoError(t, err)

	assert.True(t, base.Sub(dec("250")).Abs().LessThan(dec("0.000001")), "base %s", base)
	assert.True(t, quote.Sub(dec("500")).Abs().LessThan(dec("0.000001")), "quote %s", quote)
	assert.True(t, pool.TotalLiquidity.Sub(supply.Mul(dec("0.75"))).Abs().LessThan(dec("0.000001")))
}

func TestRemoveLiquidityOverdraw(t *testing.T) {
	amm := NewAMM()
	pool := newTestPool("1000", "2000")

	_, _, err := amm.RemoveLiquidity(pool, pool.TotalLiquidity.Add(dec("1")))
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)

	_, _, err = amm.RemoveLiquidity(pool, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
