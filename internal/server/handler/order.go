package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/service"
)

// TradingService defines what the order handler needs from the service layer.
type TradingService interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*service.SubmitOrderResult, error)
	CancelOrder(ctx context.Context, orderID, requester string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]*domain.Order, error)
}

// OrderHandler serves order submission and lifecycle endpoints.
type OrderHandler struct {
	trading TradingService
	logger  *slog.Logger
}

func NewOrderHandler(trading TradingService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{trading: trading, logger: logger}
}

type submitOrderRequest struct {
	Pair        string          `json:"pair"`
	UserAddress string          `json:"user_address"`
	Side        string          `json:"side"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	StopPrice   decimal.Decimal `json:"stop_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	TimeInForce string          `json:"time_in_force"`
	ExpiresAt   *time.Time      `json:"expires_at"`

	IsPrivate        bool   `json:"is_private"`
	EncryptedDetails string `json:"encrypted_details"`
	TargetChain      string `json:"target_chain"`
}

type submitOrderResponse struct {
	Order  *domain.Order   `json:"order"`
	Trades []*domain.Trade `json:"trades"`
}

// SubmitOrder accepts a new order, matches it, and returns the resulting
// order state plus any executions.
// POST /api/orders
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Pair == "" || req.UserAddress == "" {
		writeError(w, http.StatusBadRequest, "pair and user_address are required")
		return
	}

	res, err := h.trading.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		PairSymbol:       req.Pair,
		UserAddress:      req.UserAddress,
		Side:             domain.OrderSide(req.Side),
		Type:             domain.OrderType(req.Type),
		Price:            req.Price,
		StopPrice:        req.StopPrice,
		Quantity:         req.Quantity,
		TimeInForce:      domain.TimeInForce(req.TimeInForce),
		ExpiresAt:        req.ExpiresAt,
		IsPrivate:        req.IsPrivate,
		EncryptedDetails: req.EncryptedDetails,
		TargetChain:      req.TargetChain,
	})
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: submit order failed",
			slog.String("pair", req.Pair),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to submit order")
		return
	}

	trades := res.Trades
	if trades == nil {
		trades = []*domain.Trade{}
	}
	writeJSON(w, http.StatusCreated, submitOrderResponse{Order: res.Order, Trades: trades})
}

// CancelOrder cancels a resting or parked order. The requester must match the
// order owner; ownership is asserted via the X-User-Address header.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	requester := r.Header.Get("X-User-Address")
	if requester == "" {
		writeError(w, http.StatusBadRequest, "X-User-Address header required")
		return
	}

	order, err := h.trading.CancelOrder(r.Context(), id, requester)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: cancel order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// GetOrder returns a single order by ID.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	order, err := h.trading.GetOrder(r.Context(), id)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListOrders returns orders filtered by wallet and/or pair.
// GET /api/orders?wallet=...&pair=SCRT-USDT&status=pending,partially_filled
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wallet := q.Get("wallet")
	pair := q.Get("pair")
	if wallet == "" && pair == "" {
		writeError(w, http.StatusBadRequest, "wallet or pair query parameter required")
		return
	}

	f := domain.OrderFilter{
		UserAddress: wallet,
		ListOpts:    parseListOpts(r),
	}
	if pair != "" {
		f.PairSymbol = normalizeSymbol(pair)
	}
	for _, s := range q["status"] {
		f.Statuses = append(f.Statuses, domain.OrderStatus(s))
	}

	orders, err := h.trading.ListOrders(r.Context(), f)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
