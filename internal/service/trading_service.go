package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/engine"
)

// Bridge forwards accepted orders to another chain. Implementations must be
// best-effort: a bridge failure never fails the order.
type Bridge interface {
	SendOrder(ctx context.Context, o *domain.Order) error
}

const (
	submitLimitPerWindow = 10
	submitWindow         = time.Second
	bookCacheTTL         = 5 * time.Second
	bookPublishDepth     = 20
)

// SubmitOrderRequest carries everything a caller provides for a new order.
type SubmitOrderRequest struct {
	PairSymbol  string
	UserAddress string
	Side        domain.OrderSide
	Type        domain.OrderType
	Price       decimal.Decimal
	StopPrice   decimal.Decimal
	Quantity    decimal.Decimal
	TimeInForce domain.TimeInForce
	ExpiresAt   *time.Time

	IsPrivate        bool
	EncryptedDetails string
	TargetChain      string
}

// SubmitOrderResult is what the API returns for a submit.
type SubmitOrderResult struct {
	Order  *domain.Order
	Trades []*domain.Trade
}

// TradingService drives the orderbook engine and owns order/trade
// persistence and event publication around it.
type TradingService struct {
	eng     *engine.Engine
	pairs   domain.PairStore
	orders  domain.OrderStore
	trades  domain.TradeStore
	books   domain.BookCache
	prices  domain.PriceCache
	limiter domain.RateLimiter
	bus     domain.SignalBus
	audit   domain.AuditStore
	bridge  Bridge
	logger  *slog.Logger
}

func NewTradingService(
	eng *engine.Engine,
	pairs domain.PairStore,
	orders domain.OrderStore,
	trades domain.TradeStore,
	books domain.BookCache,
	prices domain.PriceCache,
	limiter domain.RateLimiter,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *TradingService {
	return &TradingService{
		eng:     eng,
		pairs:   pairs,
		orders:  orders,
		trades:  trades,
		books:   books,
		prices:  prices,
		limiter: limiter,
		bus:     bus,
		audit:   audit,
		logger:  logger.With(slog.String("component", "trading_service")),
	}
}

// WithBridge attaches a cross-chain forwarder. Without one, orders with a
// TargetChain settle locally only.
func (s *TradingService) WithBridge(b Bridge) *TradingService {
	s.bridge = b
	return s
}

// SubmitOrder validates and matches an order, persists the outcome, and
// publishes order/trade/book events. Matching happens inside the engine's
// pair lock; everything else runs after it.
func (s *TradingService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	if s.limiter != nil && req.UserAddress != "" {
		allowed, err := s.limiter.Allow(ctx, "orders:"+req.UserAddress, submitLimitPerWindow, submitWindow)
		if err != nil {
			s.logger.WarnContext(ctx, "rate limiter unavailable", slog.String("error", err.Error()))
		} else if !allowed {
			return nil, domain.ErrRateLimited
		}
	}

	pair, err := s.pairs.GetBySymbol(ctx, req.PairSymbol)
	if err != nil {
		return nil, fmt.Errorf("trading_service: lookup pair: %w", err)
	}
	if !pair.IsActive {
		return nil, fmt.Errorf("%w: pair %s is inactive", domain.ErrInvalidState, pair.Symbol)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:               uuid.NewString(),
		PairID:           pair.ID,
		PairSymbol:       pair.Symbol,
		UserAddress:      req.UserAddress,
		Side:             req.Side,
		Type:             req.Type,
		Price:            req.Price,
		StopPrice:        req.StopPrice,
		Quantity:         req.Quantity,
		TimeInForce:      req.TimeInForce,
		ExpiresAt:        req.ExpiresAt,
		IsPrivate:        req.IsPrivate,
		EncryptedDetails: req.EncryptedDetails,
		TargetChain:      req.TargetChain,
		Status:           domain.OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if order.TimeInForce == "" {
		order.TimeInForce = domain.TifGTC
	}

	res, err := s.eng.Submit(order)
	if err != nil {
		return nil, fmt.Errorf("trading_service: submit: %w", err)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("trading_service: persist order: %w", err)
	}
	changed := append(res.Touched, res.Triggered...)
	if len(changed) > 0 {
		if err := s.orders.UpdateBatch(ctx, changed); err != nil {
			return nil, fmt.Errorf("trading_service: persist matched orders: %w", err)
		}
	}
	if len(res.Trades) > 0 {
		if err := s.trades.CreateBatch(ctx, res.Trades); err != nil {
			return nil, fmt.Errorf("trading_service: persist trades: %w", err)
		}
		s.afterTrades(ctx, pair, res.Trades)
	}

	s.publishOrderEvent(ctx, "order_update", order)
	s.publishBook(ctx, pair.Symbol)

	if order.TargetChain != "" && s.bridge != nil {
		if err := s.bridge.SendOrder(ctx, order); err != nil {
			s.logger.WarnContext(ctx, "bridge forward failed",
				slog.String("order_id", order.ID),
				slog.String("chain", order.TargetChain),
				slog.String("error", err.Error()),
			)
			s.publishOrderEvent(ctx, "bridge_failure", order)
		}
	}

	s.logger.InfoContext(ctx, "order submitted",
		slog.String("order_id", order.ID),
		slog.String("pair", pair.Symbol),
		slog.String("side", string(order.Side)),
		slog.String("status", string(order.Status)),
		slog.Int("trades", len(res.Trades)),
	)
	return &SubmitOrderResult{Order: order, Trades: res.Trades}, nil
}

// afterTrades folds executions into pair stats, caches, and the bus.
func (s *TradingService) afterTrades(ctx context.Context, pair *domain.TradingPair, trades []*domain.Trade) {
	last := trades[len(trades)-1]
	pair.LastPrice = last.Price
	for _, t := range trades {
		pair.Volume24hBase = pair.Volume24hBase.Add(t.Quantity)
		pair.Volume24hQuote = pair.Volume24hQuote.Add(t.Notional())
		if pair.High24h.IsZero() || t.Price.GreaterThan(pair.High24h) {
			pair.High24h = t.Price
		}
		if pair.Low24h.IsZero() || t.Price.LessThan(pair.Low24h) {
			pair.Low24h = t.Price
		}
	}
	if err := s.pairs.UpdateStats(ctx, pair); err != nil {
		s.logger.WarnContext(ctx, "update pair stats failed",
			slog.String("pair", pair.Symbol), slog.String("error", err.Error()))
	}
	if s.prices != nil {
		if err := s.prices.Set(ctx, pair.Symbol, last.Price); err != nil {
			s.logger.WarnContext(ctx, "price cache set failed",
				slog.String("pair", pair.Symbol), slog.String("error", err.Error()))
		}
	}
	for _, t := range trades {
		payload, _ := json.Marshal(t.PublicView())
		if err := s.bus.Publish(ctx, domain.ChannelTradePrefix+pair.Symbol, payload); err != nil {
			s.logger.WarnContext(ctx, "publish trade failed",
				slog.String("trade_id", t.ID), slog.String("error", err.Error()))
		}
	}
}

func (s *TradingService) publishOrderEvent(ctx context.Context, event string, o *domain.Order) {
	payload, _ := json.Marshal(map[string]string{
		"event":    event,
		"order_id": o.ID,
		"pair":     o.PairSymbol,
		"status":   string(o.Status),
		"chain":    o.TargetChain,
	})
	if err := s.bus.Publish(ctx, domain.ChannelOrders, payload); err != nil {
		s.logger.WarnContext(ctx, "publish order event failed",
			slog.String("order_id", o.ID), slog.String("error", err.Error()))
	}
}

func (s *TradingService) publishBook(ctx context.Context, symbol string) {
	snap, err := s.eng.Depth(symbol, bookPublishDepth)
	if err != nil {
		return
	}
	if s.books != nil {
		if err := s.books.Set(ctx, snap, bookCacheTTL); err != nil {
			s.logger.WarnContext(ctx, "book cache set failed",
				slog.String("pair", symbol), slog.String("error", err.Error()))
		}
	}
	payload, _ := json.Marshal(snap)
	if err := s.bus.Publish(ctx, domain.ChannelBookPrefix+symbol, payload); err != nil {
		s.logger.WarnContext(ctx, "publish book failed",
			slog.String("pair", symbol), slog.String("error", err.Error()))
	}
}

// CancelOrder removes a live order after checking ownership.
func (s *TradingService) CancelOrder(ctx context.Context, orderID, requester string) (*domain.Order, error) {
	stored, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("trading_service: lookup order: %w", err)
	}

	cancelled, err := s.eng.Cancel(stored.PairSymbol, orderID, requester)
	if err != nil {
		return nil, fmt.Errorf("trading_service: cancel: %w", err)
	}
	if err := s.orders.Update(ctx, cancelled); err != nil {
		return nil, fmt.Errorf("trading_service: persist cancel: %w", err)
	}

	s.publishOrderEvent(ctx, "order_update", cancelled)
	s.publishBook(ctx, cancelled.PairSymbol)
	s.logger.InfoContext(ctx, "order cancelled", slog.String("order_id", orderID))
	return cancelled, nil
}

func (s *TradingService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("trading_service: get order: %w", err)
	}
	return o, nil
}

func (s *TradingService) ListOrders(ctx context.Context, f domain.OrderFilter) ([]*domain.Order, error) {
	f.ListOpts = f.Normalize(50, 500)
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("trading_service: list orders: %w", err)
	}
	return orders, nil
}

// SweepExpired expires due orders across all pairs. Run periodically by the
// app's background job.
func (s *TradingService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired := s.eng.SweepExpired(now)
	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.orders.UpdateBatch(ctx, expired); err != nil {
		return 0, fmt.Errorf("trading_service: persist expired orders: %w", err)
	}
	for _, o := range expired {
		s.publishOrderEvent(ctx, "order_update", o)
	}
	return len(expired), nil
}

// RetirePair cancels every live order for the pair, deactivates it, and
// detaches it from the engine. Cancellation is explicit, never cascading.
func (s *TradingService) RetirePair(ctx context.Context, symbol string) (int, error) {
	cancelled, err := s.eng.RetirePair(symbol)
	if err != nil {
		return 0, fmt.Errorf("trading_service: retire pair: %w", err)
	}
	if len(cancelled) > 0 {
		if err := s.orders.UpdateBatch(ctx, cancelled); err != nil {
			return 0, fmt.Errorf("trading_service: persist retired orders: %w", err)
		}
	}
	if err := s.pairs.SetActive(ctx, symbol, false); err != nil {
		return 0, fmt.Errorf("trading_service: deactivate pair: %w", err)
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "pair_retired", map[string]any{
			"pair":             symbol,
			"orders_cancelled": len(cancelled),
		}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	for _, o := range cancelled {
		s.publishOrderEvent(ctx, "order_update", o)
	}
	s.logger.InfoContext(ctx, "pair retired",
		slog.String("pair", symbol), slog.Int("orders_cancelled", len(cancelled)))
	return len(cancelled), nil
}

// RestoreBooks reloads resting orders from the store into the engine, used
// at startup.
func (s *TradingService) RestoreBooks(ctx context.Context, pairs []*domain.TradingPair) error {
	for _, p := range pairs {
		if err := s.eng.RegisterPair(p.ID, p.Symbol, p.LastPrice); err != nil {
			return fmt.Errorf("trading_service: register pair %s: %w", p.Symbol, err)
		}
		resting, err := s.orders.ListResting(ctx, p.Symbol)
		if err != nil {
			return fmt.Errorf("trading_service: load resting orders for %s: %w", p.Symbol, err)
		}
		for _, o := range resting {
			if err := s.eng.RestoreOrder(o); err != nil {
				return fmt.Errorf("trading_service: restore order %s: %w", o.ID, err)
			}
		}
		if len(resting) > 0 {
			s.logger.InfoContext(ctx, "book restored",
				slog.String("pair", p.Symbol), slog.Int("orders", len(resting)))
		}
	}
	return nil
}
