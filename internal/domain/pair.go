package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingPair identifies a base/quote asset combination. The symbol is
// globally unique and immutable after creation; last-price and 24h statistics
// are mutated only by settled trades.
type TradingPair struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"` // e.g. "SCRT/USDT"
	BaseToken      string          `json:"base_token"`
	QuoteToken     string          `json:"quote_token"`
	LastPrice      decimal.Decimal `json:"last_price"`
	High24h        decimal.Decimal `json:"high_24h"`
	Low24h         decimal.Decimal `json:"low_24h"`
	Volume24hBase  decimal.Decimal `json:"volume_24h_base"` // base-asset quantity traded
	Volume24hQuote decimal.Decimal `json:"volume_24h_quote"`
	Change24h      decimal.Decimal `json:"change_24h"` // percent
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PairStats is the 24h roll-up served by the market endpoints.
type PairStats struct {
	Symbol      string          `json:"symbol"`
	LastPrice   decimal.Decimal `json:"last_price"`
	High24h     decimal.Decimal `json:"high_24h"`
	Low24h      decimal.Decimal `json:"low_24h"`
	VolumeBase  decimal.Decimal `json:"volume_base"`
	VolumeQuote decimal.Decimal `json:"volume_quote"`
	Change24h   decimal.Decimal `json:"change_24h"`
	TradeCount  int             `json:"trade_count"`
}

// Candle is one OHLCV bucket aggregated from executed trades.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}
