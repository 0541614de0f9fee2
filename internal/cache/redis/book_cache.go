package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// BookCache implements domain.BookCache. Snapshots are stored as JSON at
// "book:{symbol}" with a short TTL so readers never see a stale book for
// long after the engine stops publishing.
type BookCache struct {
	rdb *redis.Client
}

func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

var _ domain.BookCache = (*BookCache)(nil)

func bookKey(symbol string) string {
	return "book:" + symbol
}

func (bc *BookCache) Set(ctx context.Context, snap *domain.BookSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", snap.PairSymbol, err)
	}
	if err := bc.rdb.Set(ctx, bookKey(snap.PairSymbol), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", snap.PairSymbol, err)
	}
	return nil
}

func (bc *BookCache) Get(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	payload, err := bc.rdb.Get(ctx, bookKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get book %s: %w", symbol, err)
	}
	var snap domain.BookSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("redis: decode book %s: %w", symbol, err)
	}
	return &snap, nil
}
