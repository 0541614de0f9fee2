package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowSrc string

// RateLimiter counts requests in a sliding window kept as a Redis sorted set
// of timestamps. The check-and-count runs as one Lua script so concurrent
// callers cannot race past the limit.
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:    c.Underlying(),
		script: redis.NewScript(slidingWindowSrc),
	}
}

// Allow reports whether one more request for key fits under limit within
// window, recording it when it does.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := rl.script.Run(ctx, rl.rdb,
		[]string{"ratelimit:" + key},
		time.Now().UnixMicro(),
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(res) < 2 {
		return false, fmt.Errorf("redis: rate limit %s: malformed script reply (%d values)", key, len(res))
	}
	return res[0] == 1, nil
}
