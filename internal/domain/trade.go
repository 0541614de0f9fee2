package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSettled SettlementStatus = "settled"
	SettlementFailed  SettlementStatus = "failed"
)

type TradeType string

const (
	TradeTypeOrderbook TradeType = "orderbook"
	TradeTypeAMM       TradeType = "amm"
)

// Trade is an immutable execution record. Price is always the maker order's
// price; TakerSide is the side of the aggressing order.
type Trade struct {
	ID         string `json:"id"`
	PairID     string `json:"pair_id"`
	PairSymbol string `json:"pair"`

	BuyOrderID  string `json:"buy_order_id,omitempty"`
	SellOrderID string `json:"sell_order_id,omitempty"`

	BuyerAddress  string `json:"buyer_address,omitempty"`
	SellerAddress string `json:"seller_address,omitempty"`

	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`

	TakerSide OrderSide `json:"taker_side"`
	TradeType TradeType `json:"trade_type"`

	BuyerFee    decimal.Decimal `json:"buyer_fee"`
	SellerFee   decimal.Decimal `json:"seller_fee"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	FeeCurrency string          `json:"fee_currency"`

	IsPrivate bool `json:"is_private"`

	SettlementStatus SettlementStatus `json:"settlement_status"`
	SettledAt        *time.Time       `json:"settled_at,omitempty"`

	ExecutedAt time.Time `json:"executed_at"`
}

// Notional returns the quote-asset value of the trade.
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// PublicView strips participant identity and taker direction, the projection
// served on public market endpoints.
type PublicTrade struct {
	ID         string          `json:"id"`
	PairSymbol string          `json:"pair"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExecutedAt time.Time       `json:"executed_at"`
}

func (t *Trade) PublicView() PublicTrade {
	return PublicTrade{
		ID:         t.ID,
		PairSymbol: t.PairSymbol,
		Price:      t.Price,
		Quantity:   t.Quantity,
		ExecutedAt: t.ExecutedAt,
	}
}
