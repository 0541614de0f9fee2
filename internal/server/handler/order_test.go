package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/service"
)

type fakeTradingService struct {
	submitErr  error
	cancelErr  error
	order      *domain.Order
	lastFilter domain.OrderFilter
}

func (f *fakeTradingService) SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*service.SubmitOrderResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &service.SubmitOrderResult{Order: f.order}, nil
}

func (f *fakeTradingService) CancelOrder(ctx context.Context, orderID, requester string) (*domain.Order, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.order, nil
}

func (f *fakeTradingService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if f.order == nil {
		return nil, domain.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeTradingService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	f.lastFilter = filter
	if f.order == nil {
		return nil, nil
	}
	return []*domain.Order{f.order}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:          "ord-1",
		PairSymbol:  "SCRT/USDT",
		UserAddress: "secret1abc",
		Side:        domain.SideBuy,
		Type:        domain.OrderTypeLimit,
		Price:       decimal.NewFromInt(10),
		Quantity:    decimal.NewFromInt(5),
		Status:      domain.OrderStatusPending,
	}
}

func TestSubmitOrderCreated(t *testing.T) {
	h := NewOrderHandler(&fakeTradingService{order: testOrder()}, testLogger())

	body := `{"pair":"SCRT/USDT","user_address":"secret1abc","side":"buy","type":"limit","price":"10","quantity":"5"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ord-1"`)
}

func TestSubmitOrderMissingFields(t *testing.T) {
	h := NewOrderHandler(&fakeTradingService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"pair":"SCRT/USDT"}`))
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitOrderErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"pair missing", domain.ErrNotFound, http.StatusNotFound},
		{"pair retired", domain.ErrInvalidState, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewOrderHandler(&fakeTradingService{submitErr: tc.err}, testLogger())

			body := `{"pair":"SCRT/USDT","user_address":"secret1abc","side":"buy","type":"limit","price":"10","quantity":"5"}`
			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
			rec := httptest.NewRecorder()

			h.SubmitOrder(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCancelOrderRequiresOwnerHeader(t *testing.T) {
	h := NewOrderHandler(&fakeTradingService{order: testOrder()}, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/ord-1", nil)
	req.SetPathValue("id", "ord-1")
	rec := httptest.NewRecorder()

	h.CancelOrder(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrderNotOwner(t *testing.T) {
	h := NewOrderHandler(&fakeTradingService{cancelErr: domain.ErrUnauthorized}, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/ord-1", nil)
	req.SetPathValue("id", "ord-1")
	req.Header.Set("X-User-Address", "secret1other")
	rec := httptest.NewRecorder()

	h.CancelOrder(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListOrdersRequiresFilter(t *testing.T) {
	h := NewOrderHandler(&fakeTradingService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()

	h.ListOrders(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrdersNormalizesPairSymbol(t *testing.T) {
	svc := &fakeTradingService{order: testOrder()}
	h := NewOrderHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/orders?pair=scrt-usdt", nil)
	rec := httptest.NewRecorder()

	h.ListOrders(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SCRT/USDT", svc.lastFilter.PairSymbol)
}
