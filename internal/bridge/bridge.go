// Package bridge forwards accepted cross-chain orders to per-chain relay
// endpoints over HTTP. Delivery is best-effort; callers treat failures as
// non-fatal and the order settles locally regardless.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// Client posts orders tagged with a target chain to that chain's relay.
type Client struct {
	// endpoints maps a chain name ("ethereum", "osmosis") to its relay URL.
	endpoints map[string]string
	http      *http.Client
	logger    *slog.Logger
}

// New creates a Client. Endpoint keys are chain names as carried on orders.
func New(endpoints map[string]string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.With(slog.String("component", "bridge")),
	}
}

// relayPayload is the wire format posted to a chain relay.
type relayPayload struct {
	OrderID     string `json:"order_id"`
	Pair        string `json:"pair"`
	Side        string `json:"side"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
	UserAddress string `json:"user_address"`
	TargetChain string `json:"target_chain"`
}

// SendOrder posts the order to the relay for its target chain. Orders for a
// chain with no configured endpoint are skipped with a log line rather than
// an error, so an operator can disable a chain by removing its endpoint.
func (c *Client) SendOrder(ctx context.Context, o *domain.Order) error {
	endpoint, ok := c.endpoints[o.TargetChain]
	if !ok {
		c.logger.InfoContext(ctx, "no relay configured for chain, skipping",
			slog.String("chain", o.TargetChain),
			slog.String("order_id", o.ID),
		)
		return nil
	}

	body, err := json.Marshal(relayPayload{
		OrderID:     o.ID,
		Pair:        o.PairSymbol,
		Side:        string(o.Side),
		Quantity:    o.Quantity.String(),
		Price:       o.Price.String(),
		UserAddress: o.UserAddress,
		TargetChain: o.TargetChain,
	})
	if err != nil {
		return fmt.Errorf("bridge: marshal order %s: %w", o.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: send order %s to %s: %w", o.ID, o.TargetChain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("bridge: relay %s returned status %d: %s", o.TargetChain, resp.StatusCode, string(respBody))
	}

	c.logger.InfoContext(ctx, "order relayed",
		slog.String("order_id", o.ID),
		slog.String("chain", o.TargetChain),
	)
	return nil
}
