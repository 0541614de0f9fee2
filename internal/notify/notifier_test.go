package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return "recording" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNotifyFiltersByKind(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier([]Sender{s}, []string{"large_trade"}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "large_trade", "big one", "details"))
	require.NoError(t, n.Notify(context.Background(), "pool_drained", "dropped", "details"))

	assert.Equal(t, []string{"big one"}, s.titles)
}

func TestNotifyEmptyKindListAdmitsAll(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, s.titles, 1)
}

func TestNotifyReportsSenderFailures(t *testing.T) {
	failing := &recordingSender{err: errors.New("boom")}
	working := &recordingSender{}
	n := NewNotifier([]Sender{failing, working}, nil, discardLogger())

	err := n.Notify(context.Background(), "error", "t", "m")
	require.Error(t, err)
	// One channel failing must not block the other.
	assert.Len(t, working.titles, 1)
}

func TestWatcherLargeTradeThreshold(t *testing.T) {
	s := &recordingSender{}
	w := NewWatcher(nil, NewNotifier([]Sender{s}, nil, discardLogger()), discardLogger())
	w.LargeTradeNotional = decimal.NewFromInt(1000)

	small, _ := json.Marshal(domain.PublicTrade{
		PairSymbol: "SCRT/USDT",
		Price:      decimal.NewFromInt(10),
		Quantity:   decimal.NewFromInt(5),
	})
	big, _ := json.Marshal(domain.PublicTrade{
		PairSymbol: "SCRT/USDT",
		Price:      decimal.NewFromInt(100),
		Quantity:   decimal.NewFromInt(50),
	})

	w.handleTrade(context.Background(), small)
	assert.Empty(t, s.titles)

	w.handleTrade(context.Background(), big)
	require.Len(t, s.titles, 1)
	assert.Contains(t, s.titles[0], "SCRT/USDT")
}

func TestWatcherPoolDrainedThreshold(t *testing.T) {
	s := &recordingSender{}
	w := NewWatcher(nil, NewNotifier([]Sender{s}, nil, discardLogger()), discardLogger())
	w.LowReserveQuote = decimal.NewFromInt(100)

	healthy, _ := json.Marshal(poolEvent{
		Event:        "swap",
		Pair:         "SCRT/USDT",
		ReserveQuote: decimal.NewFromInt(5000),
	})
	drained, _ := json.Marshal(poolEvent{
		Event:        "swap",
		Pair:         "SCRT/USDT",
		ReserveQuote: decimal.NewFromInt(50),
	})

	w.handlePool(context.Background(), healthy)
	assert.Empty(t, s.titles)

	w.handlePool(context.Background(), drained)
	assert.Len(t, s.titles, 1)
}

func TestWatcherBridgeFailure(t *testing.T) {
	s := &recordingSender{}
	w := NewWatcher(nil, NewNotifier([]Sender{s}, nil, discardLogger()), discardLogger())

	update, _ := json.Marshal(map[string]string{
		"event": "order_update", "order_id": "ord-1", "pair": "SCRT/USDT",
	})
	failure, _ := json.Marshal(map[string]string{
		"event": "bridge_failure", "order_id": "ord-1", "pair": "SCRT/USDT", "chain": "osmosis",
	})

	w.handleOrder(context.Background(), update)
	assert.Empty(t, s.titles)

	w.handleOrder(context.Background(), failure)
	require.Len(t, s.titles, 1)
	assert.Contains(t, s.titles[0], "Bridge forward failed")
}

func TestWatcherZeroThresholdsDisableChecks(t *testing.T) {
	s := &recordingSender{}
	w := NewWatcher(nil, NewNotifier([]Sender{s}, nil, discardLogger()), discardLogger())

	trade, _ := json.Marshal(domain.PublicTrade{
		PairSymbol: "SCRT/USDT",
		Price:      decimal.NewFromInt(1000000),
		Quantity:   decimal.NewFromInt(1000000),
	})
	w.handleTrade(context.Background(), trade)

	assert.Empty(t, s.titles)
}
