package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// AMM applies constant-product math to a pool. Like Book it is pure: callers
// hold the pair lock and persist the mutated pool afterwards.
type AMM struct {
	now func() time.Time
}

func NewAMM() *AMM {
	return &AMM{now: time.Now}
}

var two = decimal.NewFromInt(2)

// Quote previews a swap of amountIn of the base side (baseIn true) or quote
// side without mutating the pool.
//
//	out = in*(1-fee) * reserveOut / (reserveIn + in*(1-fee))
func (a *AMM) Quote(pool *domain.LiquidityPool, amountIn decimal.Decimal, baseIn bool) (*domain.PoolQuote, error) {
	if !amountIn.IsPositive() {
		return nil, fmt.Errorf("%w: amount_in must be positive", domain.ErrValidation)
	}
	reserveIn, reserveOut := pool.ReserveBase, pool.ReserveQuote
	if !baseIn {
		reserveIn, reserveOut = pool.ReserveQuote, pool.ReserveBase
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return nil, fmt.Errorf("%w: pool %s has empty reserves", domain.ErrInsufficientLiquidity, pool.PairSymbol)
	}

	fee := amountIn.Mul(pool.FeeRate)
	effective := amountIn.Sub(fee)
	amountOut := effective.Mul(reserveOut).Div(reserveIn.Add(effective))
	if !amountOut.IsPositive() {
		return nil, fmt.Errorf("%w: output rounds to zero", domain.ErrInsufficientLiquidity)
	}
	// Division rounds, so an enormous input can quote the whole opposite
	// reserve. The out reserve must stay strictly positive.
	if amountOut.GreaterThanOrEqual(reserveOut) {
		return nil, fmt.Errorf("%w: swap would drain pool %s", domain.ErrInsufficientLiquidity, pool.PairSymbol)
	}

	return &domain.PoolQuote{
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Fee:         fee,
		PriceImpact: priceImpact(reserveIn, reserveOut, amountIn, amountOut),
		SpotPrice:   pool.SpotPrice(),
	}, nil
}

// priceImpact compares the pre-swap implied price with the effective
// execution price, as a non-negative percentage.
func priceImpact(reserveIn, reserveOut, amountIn, amountOut decimal.Decimal) decimal.Decimal {
	spot := reserveOut.Div(reserveIn)
	if !spot.IsPositive() {
		return decimal.Zero
	}
	effective := amountOut.Div(amountIn)
	impact := spot.Sub(effective).Div(spot).Mul(decimal.NewFromInt(100))
	return impact.Abs()
}

// Swap executes the quoted trade against the pool, updating reserves and
// cumulative statistics. The constant product never decreases because the
// fee stays in the input reserve.
func (a *AMM) Swap(pool *domain.LiquidityPool, amountIn decimal.Decimal, baseIn bool) (*domain.SwapResult, error) {
	if !pool.IsActive {
		return nil, fmt.Errorf("%w: pool %s is inactive", domain.ErrInvalidState, pool.PairSymbol)
	}
	q, err := a.Quote(pool, amountIn, baseIn)
	if err != nil {
		return nil, err
	}

	if baseIn {
		pool.ReserveBase = pool.ReserveBase.Add(amountIn)
		pool.ReserveQuote = pool.ReserveQuote.Sub(q.AmountOut)
		pool.TotalVolumeBase = pool.TotalVolumeBase.Add(amountIn)
		pool.TotalVolumeQuote = pool.TotalVolumeQuote.Add(q.AmountOut)
	} else {
		pool.ReserveQuote = pool.ReserveQuote.Add(amountIn)
		pool.ReserveBase = pool.ReserveBase.Sub(q.AmountOut)
		pool.TotalVolumeQuote = pool.TotalVolumeQuote.Add(amountIn)
		pool.TotalVolumeBase = pool.TotalVolumeBase.Add(q.AmountOut)
	}
	pool.TotalFeesCollected = pool.TotalFeesCollected.Add(q.Fee)
	pool.SwapCount++
	now := a.now()
	pool.LastSwapAt = &now
	pool.UpdatedAt = now

	baseToken, quoteToken, _ := strings.Cut(pool.PairSymbol, "/")
	tokenIn, tokenOut := baseToken, quoteToken
	if !baseIn {
		tokenIn, tokenOut = quoteToken, baseToken
	}

	res := &domain.SwapResult{
		PoolID:       pool.ID,
		PairSymbol:   pool.PairSymbol,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOut:    q.AmountOut,
		Fee:          q.Fee,
		NewPrice:     pool.SpotPrice(),
		PriceImpact:  q.PriceImpact,
		ReserveBase:  pool.ReserveBase,
		ReserveQuote: pool.ReserveQuote,
	}
	return res, nil
}

// AddLiquidity mints LP shares for a deposit. An empty pool bootstraps with
// sqrt(base*quote) shares; otherwise the mint is proportional to the smaller
// side of the deposit so providers cannot shift the price.
func (a *AMM) AddLiquidity(pool *domain.LiquidityPool, base, quote decimal.Decimal) (decimal.Decimal, error) {
	if !base.IsPositive() || !quote.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: both amounts must be positive", domain.ErrValidation)
	}

	var minted decimal.Decimal
	if pool.TotalLiquidity.IsZero() {
		minted = sqrtDecimal(base.Mul(quote))
	} else {
		byBase := base.Div(pool.ReserveBase)
		byQuote := quote.Div(pool.ReserveQuote)
		minted = decimal.Min(byBase, byQuote).Mul(pool.TotalLiquidity)
	}
	if !minted.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: deposit mints zero shares", domain.ErrValidation)
	}

	pool.ReserveBase = pool.ReserveBase.Add(base)
	pool.ReserveQuote = pool.ReserveQuote.Add(quote)
	pool.TotalLiquidity = pool.TotalLiquidity.Add(minted)
	pool.UpdatedAt = a.now()
	return minted, nil
}

// RemoveLiquidity burns shares and returns the proportional (base, quote)
// withdrawal.
func (a *AMM) RemoveLiquidity(pool *domain.LiquidityPool, shares decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !shares.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: shares must be positive", domain.ErrValidation)
	}
	if shares.GreaterThan(pool.TotalLiquidity) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: burn %s exceeds supply %s",
			domain.ErrInsufficientShares, shares, pool.TotalLiquidity)
	}

	fraction := shares.Div(pool.TotalLiquidity)
	base := pool.ReserveBase.Mul(fraction)
	quote := pool.ReserveQuote.Mul(fraction)

	pool.ReserveBase = pool.ReserveBase.Sub(base)
	pool.ReserveQuote = pool.ReserveQuote.Sub(quote)
	pool.TotalLiquidity = pool.TotalLiquidity.Sub(shares)
	pool.UpdatedAt = a.now()
	return base, quote, nil
}

// sqrtDecimal is Newton's method on decimals, plenty for share bootstrap.
func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	if !d.IsPositive() {
		return decimal.Zero
	}
	guess := d.Div(two)
	if guess.IsZero() {
		guess = d
	}
	for i := 0; i < 64; i++ {
		next := guess.Add(d.Div(guess)).Div(two)
		if next.Sub(guess).Abs().LessThan(decimal.New(1, -18)) {
			return next
		}
		guess = next
	}
	return guess
}
