package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeLimit     OrderType = "limit"
	OrderTypeMarket    OrderType = "market"
	OrderTypeStopLoss  OrderType = "stop_loss"
	OrderTypeStopLimit OrderType = "stop_limit"
)

type OrderStatus string

// Pending covers both parked stop orders and unfilled orders resting on
// the book; the fill accounting tells them apart.
const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"
)

type TimeInForce string

const (
	TifGTC TimeInForce = "GTC" // good till cancelled
	TifIOC TimeInForce = "IOC" // immediate or cancel
	TifGTD TimeInForce = "GTD" // good till date, requires ExpiresAt
)

// Order is a user intent against one trading pair. Quantity is denominated in
// the base asset; Price and StopPrice in the quote asset. Price is zero for
// market orders and for stop_loss orders until they trigger.
type Order struct {
	ID          string          `json:"id"`
	PairID      string          `json:"pair_id"`
	PairSymbol  string          `json:"pair"`
	UserAddress string          `json:"user_address"`
	Side        OrderSide       `json:"side"`
	Type        OrderType       `json:"type"`
	Price       decimal.Decimal `json:"price"`
	StopPrice   decimal.Decimal `json:"stop_price"`
	Quantity    decimal.Decimal `json:"quantity"`

	FilledQuantity    decimal.Decimal `json:"filled_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	AverageFillPrice  decimal.Decimal `json:"average_fill_price"`

	Status      OrderStatus `json:"status"`
	TimeInForce TimeInForce `json:"time_in_force"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`

	// IsPrivate orders carry an opaque encrypted payload the engine never
	// inspects; public projections hide the owner.
	IsPrivate        bool   `json:"is_private"`
	EncryptedDetails string `json:"encrypted_details,omitempty"`

	// TargetChain routes the order through the bridge after acceptance.
	// Empty means local settlement only.
	TargetChain string `json:"target_chain,omitempty"`

	// Sequence is assigned by the book on acceptance and breaks price ties.
	Sequence uint64 `json:"sequence"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the order can no longer change.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// IsResting reports whether the order is live on the book or parked
// awaiting its trigger.
func (o *Order) IsResting() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPartiallyFilled
}

// ApplyFill folds one execution into the order's fill accounting and
// transitions the status. Callers hold the pair lock.
func (o *Order) ApplyFill(price, qty decimal.Decimal) {
	notional := o.AverageFillPrice.Mul(o.FilledQuantity).Add(price.Mul(qty))
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	if o.FilledQuantity.IsPositive() {
		o.AverageFillPrice = notional.Div(o.FilledQuantity)
	}
	if o.RemainingQuantity.IsZero() {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}
