package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/engine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type tradingFixture struct {
	svc    *TradingService
	eng    *engine.Engine
	pairs  *fakePairStore
	orders *fakeOrderStore
	trades *fakeTradeStore
	bus    *fakeBus
	bridge *fakeBridge
	prices *fakePriceCache
}

func newTradingFixture(t *testing.T) *tradingFixture {
	t.Helper()
	f := &tradingFixture{
		eng:    engine.New(engine.DefaultFees()),
		pairs:  newFakePairStore(),
		orders: newFakeOrderStore(),
		trades: &fakeTradeStore{},
		bus:    newFakeBus(),
		bridge: &fakeBridge{},
		prices: newFakePriceCache(),
	}
	f.svc = NewTradingService(
		f.eng, f.pairs, f.orders, f.trades,
		newFakeBookCache(), f.prices, &fakeLimiter{}, f.bus, &fakeAudit{},
		testLogger(),
	).WithBridge(f.bridge)

	pair := &domain.TradingPair{
		ID:       "pair-1",
		Symbol:   "SCRT/USDT",
		IsActive: true,
	}
	require.NoError(t, f.pairs.Create(context.Background(), pair))
	require.NoError(t, f.eng.RegisterPair(pair.ID, pair.Symbol, decimal.Zero))
	return f
}

func submitReq(side domain.OrderSide, qty, price string) SubmitOrderRequest {
	return SubmitOrderRequest{
		PairSymbol:  "SCRT/USDT",
		UserAddress: "secret1" + string(side),
		Side:        side,
		Type:        domain.OrderTypeLimit,
		Price:       dec(price),
		Quantity:    dec(qty),
	}
}

func TestSubmitOrderPersistsAndPublishes(t *testing.T) {
	f := newTradingFixture(t)
	ctx := context.Background()

	res, err := f.svc.SubmitOrder(ctx, submitReq(domain.SideBuy, "5", "10"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, res.Order.Status)
	assert.Empty(t, res.Trades)

	stored, err := f.orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Equal(t, 1, f.bus.count(domain.ChannelOrders))

	res, err = f.svc.SubmitOrder(ctx, submitReq(domain.SideSell, "5", "10"))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	// maker order persisted as filled, trade persisted, pair stats updated
	maker, err := f.orders.Get(ctx, res.Trades[0].BuyOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, maker.Status)

	pair, err := f.pairs.GetBySymbol(ctx, "SCRT/USDT")
	require.NoError(t, err)
	assert.True(t, pair.LastPrice.Equal(dec("10")))
	assert.True(t, pair.Volume24hBase.Equal(dec("5")))

	last, err := f.prices.Get(ctx, "SCRT/USDT")
	require.NoError(t, err)
	assert.True(t, last.Equal(dec("10")))
	assert.Equal(t, 1, f.bus.count(domain.ChannelTradePrefix+"SCRT/USDT"))
}

func TestSubmitOrderRateLimited(t *testing.T) {
	f := newTradingFixture(t)
	f.svc.limiter = &fakeLimiter{deny: true}

	_, err := f.svc.SubmitOrder(context.Background(), submitReq(domain.SideBuy, "1", "10"))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestSubmitOrderInactivePair(t *testing.T) {
	f := newTradingFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pairs.SetActive(ctx, "SCRT/USDT", false))

	_, err := f.svc.SubmitOrder(ctx, submitReq(domain.SideBuy, "1", "10"))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSubmitOrderValidationSurfaces(t *testing.T) {
	f := newTradingFixture(t)

	req := submitReq(domain.SideBuy, "0", "10")
	_, err := f.svc.SubmitOrder(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBridgeForwardingIsBestEffort(t *testing.T) {
	f := newTradingFixture(t)
	ctx := context.Background()

	req := submitReq(domain.SideBuy, "1", "10")
	req.TargetChain = "osmosis"
	res, err := f.svc.SubmitOrder(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, f.bridge.sent, res.Order.ID)

	// a failing bridge never fails the order
	f.bridge.fail = true
	req = submitReq(domain.SideBuy, "1", "9")
	req.TargetChain = "osmosis"
	_, err = f.svc.SubmitOrder(ctx, req)
	assert.NoError(t, err)
}

func TestCancelOrderRoundTrip(t *testing.T) {
	f := newTradingFixture(t)
	ctx := context.Background()

	res, err := f.svc.SubmitOrder(ctx, submitReq(domain.SideBuy, "5", "10"))
	require.NoError(t, err)

	cancelled, err := f.svc.CancelOrder(ctx, res.Order.ID, res.Order.UserAddress)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	stored, err := f.orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)

	_, err = f.svc.CancelOrder(ctx, "missing", "anyone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSweepExpiredPersists(t *testing.T) {
	f := newTradingFixture(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Minute)
	req := submitReq(domain.SideBuy, "1", "10")
	req.TimeInForce = domain.TifGTD
	req.ExpiresAt = &exp
	res, err := f.svc.SubmitOrder(ctx, req)
	require.NoError(t, err)

	n, err := f.svc.SweepExpired(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusExpired, stored.Status)
}

func TestRetirePairCancelsAndDeactivates(t *testing.T) {
	f := newTradingFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitOrder(ctx, submitReq(domain.SideBuy, "1", "10"))
	require.NoError(t, err)
	_, err = f.svc.SubmitOrder(ctx, submitReq(domain.SideSell, "1", "20"))
	require.NoError(t, err)

	n, err := f.svc.RetirePair(ctx, "SCRT/USDT")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pair, err := f.pairs.GetBySymbol(ctx, "SCRT/USDT")
	require.NoError(t, err)
	assert.False(t, pair.IsActive)
}

func TestRestoreBooksRebuildsState(t *testing.T) {
	f := newTradingFixture(t)
	ctx := context.Background()

	res, err := f.svc.SubmitOrder(ctx, submitReq(domain.SideBuy, "5", "10"))
	require.NoError(t, err)

	// fresh engine, same stores: the resting order comes back
	eng2 := engine.New(engine.DefaultFees())
	svc2 := NewTradingService(
		eng2, f.pairs, f.orders, f.trades,
		newFakeBookCache(), f.prices, &fakeLimiter{}, f.bus, &fakeAudit{},
		testLogger(),
	)
	pairs, err := f.pairs.List(ctx, true)
	require.NoError(t, err)
	require.NoError(t, svc2.RestoreBooks(ctx, pairs))

	snap, err := eng2.Depth("SCRT/USDT", 5)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.True(t, snap.Bids[0].Quantity.Equal(dec("5")))

	// and is still cancellable through the new service
	_, err = svc2.CancelOrder(ctx, res.Order.ID, res.Order.UserAddress)
	assert.NoError(t, err)
}
