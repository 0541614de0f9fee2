package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is one aggregated price level of an order book side.
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Orders   int             `json:"orders"`
}

// BookSnapshot is a point-in-time view of one pair's book, bids descending
// and asks ascending by price.
type BookSnapshot struct {
	PairSymbol string          `json:"pair"`
	Bids       []BookLevel     `json:"bids"`
	Asks       []BookLevel     `json:"asks"`
	LastPrice  decimal.Decimal `json:"last_price"`
	Timestamp  time.Time       `json:"timestamp"`
}

// BestBid returns the highest bid, or zero when the side is empty.
func (s *BookSnapshot) BestBid() decimal.Decimal {
	if len(s.Bids) == 0 {
		return decimal.Zero
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask, or zero when the side is empty.
func (s *BookSnapshot) BestAsk() decimal.Decimal {
	if len(s.Asks) == 0 {
		return decimal.Zero
	}
	return s.Asks[0].Price
}

// Spread is ask minus bid, zero when either side is empty.
func (s *BookSnapshot) Spread() decimal.Decimal {
	bid, ask := s.BestBid(), s.BestAsk()
	if bid.IsZero() || ask.IsZero() {
		return decimal.Zero
	}
	return ask.Sub(bid)
}
