package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// Watcher listens on the signal bus and raises operator notifications for
// notable market events: trades above a notional threshold, pools whose
// quote reserve drains below a floor, and failed bridge forwards.
type Watcher struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger

	// LargeTradeNotional triggers a "large_trade" alert when a trade's
	// quote-asset notional meets or exceeds it. Zero disables the check.
	LargeTradeNotional decimal.Decimal

	// LowReserveQuote triggers a "pool_drained" alert when a pool's quote
	// reserve falls to or below it. Zero disables the check.
	LowReserveQuote decimal.Decimal
}

// NewWatcher creates a Watcher. Thresholds are set on the returned value.
func NewWatcher(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "alert_watcher")),
	}
}

type poolEvent struct {
	Event        string          `json:"event"`
	Pair         string          `json:"pair"`
	ReserveBase  decimal.Decimal `json:"reserve_base"`
	ReserveQuote decimal.Decimal `json:"reserve_quote"`
	Price        decimal.Decimal `json:"price"`
}

// Run consumes trade, pool, and order signals until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	signals, err := w.bus.Subscribe(ctx,
		domain.ChannelTradePrefix+"*",
		domain.ChannelPools,
		domain.ChannelOrders,
	)
	if err != nil {
		return fmt.Errorf("notify: watcher subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			w.handle(ctx, sig)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, sig domain.Signal) {
	switch sig.Channel {
	case domain.ChannelPools:
		w.handlePool(ctx, sig.Payload)
	case domain.ChannelOrders:
		w.handleOrder(ctx, sig.Payload)
	default:
		w.handleTrade(ctx, sig.Payload)
	}
}

// handleOrder watches the order channel for bridge forwarding failures.
func (w *Watcher) handleOrder(ctx context.Context, payload []byte) {
	var ev struct {
		Event   string `json:"event"`
		OrderID string `json:"order_id"`
		Pair    string `json:"pair"`
		Chain   string `json:"chain"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Event != "bridge_failure" {
		return
	}

	title := fmt.Sprintf("Bridge forward failed for %s", ev.Pair)
	msg := fmt.Sprintf("order %s could not be relayed to %s; settled locally", ev.OrderID, ev.Chain)
	if err := w.notifier.Notify(ctx, "bridge_failure", title, msg); err != nil {
		w.logger.WarnContext(ctx, "bridge failure alert failed",
			slog.String("error", err.Error()),
		)
	}
}

func (w *Watcher) handleTrade(ctx context.Context, payload []byte) {
	if w.LargeTradeNotional.IsZero() {
		return
	}

	var t domain.PublicTrade
	if err := json.Unmarshal(payload, &t); err != nil {
		w.logger.WarnContext(ctx, "undecodable trade signal",
			slog.String("error", err.Error()),
		)
		return
	}

	notional := t.Price.Mul(t.Quantity)
	if notional.LessThan(w.LargeTradeNotional) {
		return
	}

	title := fmt.Sprintf("Large trade on %s", t.PairSymbol)
	msg := fmt.Sprintf("%s @ %s (notional %s)", t.Quantity, t.Price, notional)
	if err := w.notifier.Notify(ctx, "large_trade", title, msg); err != nil {
		w.logger.WarnContext(ctx, "large trade alert failed",
			slog.String("error", err.Error()),
		)
	}
}

func (w *Watcher) handlePool(ctx context.Context, payload []byte) {
	if w.LowReserveQuote.IsZero() {
		return
	}

	var ev poolEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		w.logger.WarnContext(ctx, "undecodable pool signal",
			slog.String("error", err.Error()),
		)
		return
	}
	if ev.ReserveQuote.GreaterThan(w.LowReserveQuote) {
		return
	}

	title := fmt.Sprintf("Pool reserves low on %s", ev.Pair)
	msg := fmt.Sprintf("quote reserve %s at price %s after %s", ev.ReserveQuote, ev.Price, ev.Event)
	if err := w.notifier.Notify(ctx, "pool_drained", title, msg); err != nil {
		w.logger.WarnContext(ctx, "pool drained alert failed",
			slog.String("error", err.Error()),
		)
	}
}
