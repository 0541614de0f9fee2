package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// SignalBus implements domain.SignalBus using Redis Pub/Sub. Order, trade,
// book, and pool events flow through it to the WebSocket hub and any other
// process subscribed to the same Redis.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

var _ domain.SignalBus = (*SignalBus)(nil)

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens one subscription covering all the given channels. Channels
// containing glob wildcards use PSubscribe. The returned channel closes when
// ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channels ...string) (<-chan domain.Signal, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("redis: subscribe: no channels")
	}

	var plain, patterns []string
	for _, ch := range channels {
		if strings.ContainsAny(ch, "*?[") {
			patterns = append(patterns, ch)
		} else {
			plain = append(plain, ch)
		}
	}

	var pubsub *redis.PubSub
	switch {
	case len(patterns) > 0 && len(plain) == 0:
		pubsub = sb.rdb.PSubscribe(ctx, patterns...)
	case len(patterns) == 0:
		pubsub = sb.rdb.Subscribe(ctx, plain...)
	default:
		pubsub = sb.rdb.Subscribe(ctx, plain...)
		if err := pubsub.PSubscribe(ctx, patterns...); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("redis: psubscribe: %w", err)
		}
	}

	// Confirm the subscription before handing the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", strings.Join(channels, ","), err)
	}

	out := make(chan domain.Signal, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- domain.Signal{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the underlying client is owned by the wiring layer.
func (sb *SignalBus) Close() error { return nil }
