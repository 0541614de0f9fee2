package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// PriceCache implements domain.PriceCache. The last trade price per symbol
// is stored as a decimal string at "price:{symbol}".
type PriceCache struct {
	rdb *redis.Client
}

func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

var _ domain.PriceCache = (*PriceCache)(nil)

func priceKey(symbol string) string {
	return "price:" + symbol
}

func (pc *PriceCache) Set(ctx context.Context, symbol string, price decimal.Decimal) error {
	if err := pc.rdb.Set(ctx, priceKey(symbol), price.String(), 0).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

func (pc *PriceCache) Get(ctx context.Context, symbol string) (decimal.Decimal, error) {
	raw, err := pc.rdb.Get(ctx, priceKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, domain.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: decode price %s: %w", symbol, err)
	}
	return price, nil
}
