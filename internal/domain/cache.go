package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Signal bus channels. Book and trade channels are per-symbol; subscribers
// use pattern subscriptions to receive all symbols.
const (
	ChannelOrders      = "ch:orders"
	ChannelPools       = "ch:pools"
	ChannelTradePrefix = "ch:trades:" // + symbol
	ChannelBookPrefix  = "ch:book:"   // + symbol
)

// SignalBus fans events out to interested subscribers. Publishing is
// fire-and-forget: callers log failures and never roll back state.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan Signal, error)
	Close() error
}

// Signal is one delivered bus message.
type Signal struct {
	Channel string
	Payload []byte
}

// BookCache holds the latest book snapshot per symbol for cheap reads.
type BookCache interface {
	Set(ctx context.Context, snap *BookSnapshot, ttl time.Duration) error
	Get(ctx context.Context, symbol string) (*BookSnapshot, error)
}

// PriceCache holds the last trade price per symbol.
type PriceCache interface {
	Set(ctx context.Context, symbol string, price decimal.Decimal) error
	Get(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// RateLimiter bounds per-key request rates. Allow returns false when the key
// has exhausted its window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
