package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiquidityPool is a constant-product market for one pair. Reserves and share
// supply are mutated only under the pair lock; the product reserveBase *
// reserveQuote never decreases across a swap.
type LiquidityPool struct {
	ID         string `json:"id"`
	PairID     string `json:"pair_id"`
	PairSymbol string `json:"pair"`
	Name       string `json:"name"`

	ReserveBase    decimal.Decimal `json:"reserve_base"`
	ReserveQuote   decimal.Decimal `json:"reserve_quote"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"` // outstanding LP shares

	FeeRate decimal.Decimal `json:"fee_rate"` // e.g. 0.003

	TotalVolumeBase    decimal.Decimal `json:"total_volume_base"`
	TotalVolumeQuote   decimal.Decimal `json:"total_volume_quote"`
	TotalFeesCollected decimal.Decimal `json:"total_fees_collected"`
	SwapCount          int64           `json:"swap_count"`

	IsActive  bool `json:"is_active"`
	IsPrivate bool `json:"is_private"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastSwapAt *time.Time `json:"last_swap_at,omitempty"`
}

// SpotPrice returns quote per base, zero when the pool is empty.
func (p *LiquidityPool) SpotPrice() decimal.Decimal {
	if !p.ReserveBase.IsPositive() {
		return decimal.Zero
	}
	return p.ReserveQuote.Div(p.ReserveBase)
}

// TVL values both sides at the current price: reserve_quote * 2.
func (p *LiquidityPool) TVL() decimal.Decimal {
	return p.ReserveQuote.Mul(decimal.NewFromInt(2))
}

// LiquidityPosition tracks one provider's LP shares in one pool.
type LiquidityPosition struct {
	ID              string `json:"id"`
	PoolID          string `json:"pool_id"`
	ProviderAddress string `json:"provider_address"`

	Shares       decimal.Decimal `json:"shares"`
	InitialBase  decimal.Decimal `json:"initial_base"`
	InitialQuote decimal.Decimal `json:"initial_quote"`

	IsActive bool `json:"is_active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// SwapResult reports one executed swap.
type SwapResult struct {
	PoolID       string          `json:"pool_id"`
	PairSymbol   string          `json:"pair"`
	TokenIn      string          `json:"token_in"`
	TokenOut     string          `json:"token_out"`
	AmountIn     decimal.Decimal `json:"amount_in"`
	AmountOut    decimal.Decimal `json:"amount_out"`
	Fee          decimal.Decimal `json:"fee"`
	NewPrice     decimal.Decimal `json:"new_price"`
	PriceImpact  decimal.Decimal `json:"price_impact"` // percent, >= 0
	ReserveBase  decimal.Decimal `json:"reserve_base"`
	ReserveQuote decimal.Decimal `json:"reserve_quote"`
}

// PoolQuote is a swap preview; nothing is mutated.
type PoolQuote struct {
	AmountIn    decimal.Decimal `json:"amount_in"`
	AmountOut   decimal.Decimal `json:"amount_out"`
	Fee         decimal.Decimal `json:"fee"`
	PriceImpact decimal.Decimal `json:"price_impact"`
	SpotPrice   decimal.Decimal `json:"spot_price"`
}
