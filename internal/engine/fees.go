package engine

import "github.com/shopspring/decimal"

// FeeSchedule prices orderbook executions. Rates are fractions (0.001 ==
// 0.1%), charged in the quote asset on the notional of each fill. The maker
// is the resting order, the taker the aggressor.
type FeeSchedule struct {
	MakerRate decimal.Decimal
	TakerRate decimal.Decimal
}

// DefaultFees matches the platform defaults: 0.1% maker, 0.15% taker.
func DefaultFees() FeeSchedule {
	return FeeSchedule{
		MakerRate: decimal.NewFromFloat(0.001),
		TakerRate: decimal.NewFromFloat(0.0015),
	}
}

// Assess returns (makerFee, takerFee) for a fill of qty at price.
func (f FeeSchedule) Assess(price, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	notional := price.Mul(qty)
	return notional.Mul(f.MakerRate), notional.Mul(f.TakerRate)
}
