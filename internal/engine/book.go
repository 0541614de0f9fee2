package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// priceLevel is a FIFO queue of resting orders at one price.
type priceLevel struct {
	price  decimal.Decimal
	orders []*domain.Order
}

func (l *priceLevel) totalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, o := range l.orders {
		total = total.Add(o.RemainingQuantity)
	}
	return total
}

// bookSide keeps price levels sorted best-first: descending for bids,
// ascending for asks. Arrival order within a level is FIFO, so price-time
// priority falls out of the structure.
type bookSide struct {
	levels []*priceLevel
	asc    bool
}

func (s *bookSide) find(price decimal.Decimal) (int, bool) {
	i := sort.Search(len(s.levels), func(i int) bool {
		cmp := s.levels[i].price.Cmp(price)
		if s.asc {
			return cmp >= 0
		}
		return cmp <= 0
	})
	if i < len(s.levels) && s.levels[i].price.Equal(price) {
		return i, true
	}
	return i, false
}

func (s *bookSide) add(o *domain.Order) {
	i, ok := s.find(o.Price)
	if ok {
		s.levels[i].orders = append(s.levels[i].orders, o)
		return
	}
	lvl := &priceLevel{price: o.Price, orders: []*domain.Order{o}}
	s.levels = append(s.levels, nil)
	copy(s.levels[i+1:], s.levels[i:])
	s.levels[i] = lvl
}

func (s *bookSide) remove(o *domain.Order) bool {
	i, ok := s.find(o.Price)
	if !ok {
		return false
	}
	lvl := s.levels[i]
	for j, ord := range lvl.orders {
		if ord.ID == o.ID {
			lvl.orders = append(lvl.orders[:j], lvl.orders[j+1:]...)
			if len(lvl.orders) == 0 {
				s.levels = append(s.levels[:i], s.levels[i+1:]...)
			}
			return true
		}
	}
	return false
}

func (s *bookSide) best() *priceLevel {
	if len(s.levels) == 0 {
		return nil
	}
	return s.levels[0]
}

// Book is the in-memory order book for one trading pair. It performs no I/O;
// callers own locking and persistence.
type Book struct {
	pairID     string
	pairSymbol string

	bids *bookSide
	asks *bookSide

	// resting tracks every order currently on the book, parked tracks
	// stop orders waiting for their trigger.
	resting map[string]*domain.Order
	parked  map[string]*domain.Order

	seq       uint64
	lastPrice decimal.Decimal
	fees      FeeSchedule
	now       func() time.Time
}

// SubmitResult reports everything one Submit changed: the taker order in its
// final state, the trades produced, the maker orders touched by fills, and
// any stop orders the move triggered (already matched, their fills included).
type SubmitResult struct {
	Order     *domain.Order
	Trades    []*domain.Trade
	Touched   []*domain.Order
	Triggered []*domain.Order
}

func NewBook(pairID, pairSymbol string, fees FeeSchedule) *Book {
	return &Book{
		pairID:     pairID,
		pairSymbol: pairSymbol,
		bids:       &bookSide{asc: false},
		asks:       &bookSide{asc: true},
		resting:    make(map[string]*domain.Order),
		parked:     make(map[string]*domain.Order),
		fees:       fees,
		now:        time.Now,
	}
}

// SetLastPrice seeds the trigger reference, used when rebuilding a book from
// persisted state.
func (b *Book) SetLastPrice(p decimal.Decimal) { b.lastPrice = p }

func (b *Book) LastPrice() decimal.Decimal { return b.lastPrice }

// Restore places a previously persisted resting order back on the book
// without matching. Orders must be restored in their original sequence order,
// after SetLastPrice seeded the trigger reference. A parked stop never has
// its trigger crossed (stops fire in the same critical section that moves
// the price), so a crossed trigger means the stop already activated and
// rested.
func (b *Book) Restore(o *domain.Order) {
	if o.Sequence > b.seq {
		b.seq = o.Sequence
	}
	switch o.Type {
	case domain.OrderTypeStopLoss, domain.OrderTypeStopLimit:
		if !b.stopTriggered(o) {
			b.parked[o.ID] = o
			return
		}
	}
	b.rest(o)
}

func (b *Book) validate(o *domain.Order) error {
	if !o.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	if o.Side != domain.SideBuy && o.Side != domain.SideSell {
		return fmt.Errorf("%w: unknown side %q", domain.ErrValidation, o.Side)
	}
	switch o.Type {
	case domain.OrderTypeLimit:
		if !o.Price.IsPositive() {
			return fmt.Errorf("%w: limit order requires a positive price", domain.ErrValidation)
		}
	case domain.OrderTypeMarket:
	case domain.OrderTypeStopLoss:
		if !o.StopPrice.IsPositive() {
			return fmt.Errorf("%w: stop order requires a positive stop price", domain.ErrValidation)
		}
	case domain.OrderTypeStopLimit:
		if !o.StopPrice.IsPositive() || !o.Price.IsPositive() {
			return fmt.Errorf("%w: stop-limit order requires positive stop and limit prices", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown order type %q", domain.ErrValidation, o.Type)
	}
	if o.TimeInForce == domain.TifGTD && o.ExpiresAt == nil {
		return fmt.Errorf("%w: GTD order requires expires_at", domain.ErrValidation)
	}
	return nil
}

// Submit accepts an order, matches it, and rests or discards the remainder
// according to its type and time-in-force. Stop orders park until triggered.
func (b *Book) Submit(o *domain.Order) (*SubmitResult, error) {
	if err := b.validate(o); err != nil {
		return nil, err
	}

	b.seq++
	o.Sequence = b.seq
	o.RemainingQuantity = o.Quantity
	o.FilledQuantity = decimal.Zero
	o.AverageFillPrice = decimal.Zero

	res := &SubmitResult{Order: o}

	if (o.Type == domain.OrderTypeStopLoss || o.Type == domain.OrderTypeStopLimit) && !b.stopTriggered(o) {
		o.Status = domain.OrderStatusPending
		b.parked[o.ID] = o
		return res, nil
	}

	b.execute(o, res)
	b.fireTriggeredStops(res)
	return res, nil
}

// execute runs one matching pass for the taker and settles its remainder.
func (b *Book) execute(taker *domain.Order, res *SubmitResult) {
	opposite := b.asks
	if taker.Side == domain.SideSell {
		opposite = b.bids
	}

	for taker.RemainingQuantity.IsPositive() {
		lvl := opposite.best()
		if lvl == nil || !b.crosses(taker, lvl.price) {
			break
		}
		maker := lvl.orders[0]
		qty := decimal.Min(taker.RemainingQuantity, maker.RemainingQuantity)
		price := maker.Price

		taker.ApplyFill(price, qty)
		maker.ApplyFill(price, qty)
		res.Trades = append(res.Trades, b.makeTrade(taker, maker, price, qty))
		res.Touched = appendOrder(res.Touched, maker)
		b.lastPrice = price

		if maker.RemainingQuantity.IsZero() {
			lvl.orders = lvl.orders[1:]
			if len(lvl.orders) == 0 {
				opposite.levels = opposite.levels[1:]
			}
			delete(b.resting, maker.ID)
		}
	}

	b.settleRemainder(taker)
}

func (b *Book) crosses(taker *domain.Order, makerPrice decimal.Decimal) bool {
	if b.effectiveType(taker) == domain.OrderTypeMarket {
		return true
	}
	if taker.Side == domain.SideBuy {
		return makerPrice.LessThanOrEqual(taker.Price)
	}
	return makerPrice.GreaterThanOrEqual(taker.Price)
}

// effectiveType maps triggered stops onto the type they match as.
func (b *Book) effectiveType(o *domain.Order) domain.OrderType {
	switch o.Type {
	case domain.OrderTypeStopLoss:
		return domain.OrderTypeMarket
	case domain.OrderTypeStopLimit:
		return domain.OrderTypeLimit
	}
	return o.Type
}

func (b *Book) settleRemainder(o *domain.Order) {
	if o.RemainingQuantity.IsZero() {
		return
	}
	rests := b.effectiveType(o) == domain.OrderTypeLimit && o.TimeInForce != domain.TifIOC
	if !rests {
		// Market and IOC remainders are discarded, never rested.
		o.Status = domain.OrderStatusCancelled
		return
	}
	b.rest(o)
}

func (b *Book) rest(o *domain.Order) {
	if o.FilledQuantity.IsPositive() {
		o.Status = domain.OrderStatusPartiallyFilled
	} else {
		o.Status = domain.OrderStatusPending
	}
	side := b.bids
	if o.Side == domain.SideSell {
		side = b.asks
	}
	side.add(o)
	b.resting[o.ID] = o
}

func (b *Book) makeTrade(taker, maker *domain.Order, price, qty decimal.Decimal) *domain.Trade {
	makerFee, takerFee := b.fees.Assess(price, qty)
	t := &domain.Trade{
		ID:               uuid.NewString(),
		PairID:           b.pairID,
		PairSymbol:       b.pairSymbol,
		Price:            price,
		Quantity:         qty,
		TakerSide:        taker.Side,
		TradeType:        domain.TradeTypeOrderbook,
		TotalFees:        makerFee.Add(takerFee),
		IsPrivate:        taker.IsPrivate || maker.IsPrivate,
		SettlementStatus: domain.SettlementPending,
		ExecutedAt:       b.now(),
	}
	if taker.Side == domain.SideBuy {
		t.BuyOrderID, t.SellOrderID = taker.ID, maker.ID
		t.BuyerAddress, t.SellerAddress = taker.UserAddress, maker.UserAddress
		t.BuyerFee, t.SellerFee = takerFee, makerFee
	} else {
		t.BuyOrderID, t.SellOrderID = maker.ID, taker.ID
		t.BuyerAddress, t.SellerAddress = maker.UserAddress, taker.UserAddress
		t.BuyerFee, t.SellerFee = makerFee, takerFee
	}
	return t
}

func (b *Book) stopTriggered(o *domain.Order) bool {
	if b.lastPrice.IsZero() {
		return false
	}
	if o.Side == domain.SideSell {
		return b.lastPrice.LessThanOrEqual(o.StopPrice)
	}
	return b.lastPrice.GreaterThanOrEqual(o.StopPrice)
}

// fireTriggeredStops activates parked stops whose trigger the latest trades
// crossed. Activations can move the last price and trigger further stops, so
// this loops until quiescent.
func (b *Book) fireTriggeredStops(res *SubmitResult) {
	for {
		var fired *domain.Order
		var lowest uint64
		for _, s := range b.parked {
			if b.stopTriggered(s) && (fired == nil || s.Sequence < lowest) {
				fired, lowest = s, s.Sequence
			}
		}
		if fired == nil {
			return
		}
		delete(b.parked, fired.ID)
		res.Triggered = append(res.Triggered, fired)
		b.execute(fired, res)
	}
}

// Cancel removes a resting or parked order. Terminal orders fail with
// ErrInvalidState, foreign orders with ErrUnauthorized.
func (b *Book) Cancel(orderID, requester string) (*domain.Order, error) {
	o, ok := b.resting[orderID]
	if !ok {
		o, ok = b.parked[orderID]
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	if requester != "" && o.UserAddress != requester {
		return nil, fmt.Errorf("%w: order belongs to another address", domain.ErrUnauthorized)
	}
	if o.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrInvalidState, o.Status)
	}
	b.drop(o)
	o.Status = domain.OrderStatusCancelled
	return o, nil
}

func (b *Book) drop(o *domain.Order) {
	if _, ok := b.parked[o.ID]; ok {
		delete(b.parked, o.ID)
		return
	}
	delete(b.resting, o.ID)
	side := b.bids
	if o.Side == domain.SideSell {
		side = b.asks
	}
	side.remove(o)
}

// Get returns a live (resting or parked) order.
func (b *Book) Get(orderID string) (*domain.Order, bool) {
	if o, ok := b.resting[orderID]; ok {
		return o, true
	}
	o, ok := b.parked[orderID]
	return o, ok
}

// SweepExpired transitions every live order with ExpiresAt <= now to expired
// and removes it from the book.
func (b *Book) SweepExpired(now time.Time) []*domain.Order {
	var expired []*domain.Order
	collect := func(orders map[string]*domain.Order) {
		for _, o := range orders {
			if o.ExpiresAt != nil && !o.ExpiresAt.After(now) {
				expired = append(expired, o)
			}
		}
	}
	collect(b.resting)
	collect(b.parked)
	for _, o := range expired {
		b.drop(o)
		o.Status = domain.OrderStatusExpired
	}
	return expired
}

// CancelAll empties the book, used when a pair is retired.
func (b *Book) CancelAll() []*domain.Order {
	var cancelled []*domain.Order
	for _, o := range b.resting {
		cancelled = append(cancelled, o)
	}
	for _, o := range b.parked {
		cancelled = append(cancelled, o)
	}
	for _, o := range cancelled {
		b.drop(o)
		o.Status = domain.OrderStatusCancelled
	}
	return cancelled
}

// Depth returns up to maxLevels aggregated levels per side, bids descending
// and asks ascending.
func (b *Book) Depth(maxLevels int) *domain.BookSnapshot {
	snap := &domain.BookSnapshot{
		PairSymbol: b.pairSymbol,
		LastPrice:  b.lastPrice,
		Timestamp:  b.now(),
	}
	snap.Bids = sideLevels(b.bids, maxLevels)
	snap.Asks = sideLevels(b.asks, maxLevels)
	return snap
}

func sideLevels(s *bookSide, max int) []domain.BookLevel {
	out := make([]domain.BookLevel, 0, min(max, len(s.levels)))
	for _, lvl := range s.levels {
		if len(out) == max {
			break
		}
		out = append(out, domain.BookLevel{
			Price:    lvl.price,
			Quantity: lvl.totalQuantity(),
			Orders:   len(lvl.orders),
		})
	}
	return out
}

func appendOrder(list []*domain.Order, o *domain.Order) []*domain.Order {
	for _, existing := range list {
		if existing.ID == o.ID {
			return list
		}
	}
	return append(list, o)
}
