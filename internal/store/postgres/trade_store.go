package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. Trades are
// append-only; only the settlement fields ever change.
type TradeStore struct {
	pool *pgxpool.Pool
}

func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ domain.TradeStore = (*TradeStore)(nil)

const tradeSelectCols = `id, pair_id, pair_symbol, buy_order_id, sell_order_id,
	buyer_address, seller_address, price::text, quantity::text,
	taker_side, trade_type, buyer_fee::text, seller_fee::text, total_fees::text,
	fee_currency, is_private, settlement_status, settled_at, executed_at`

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var buyID, sellID *string
	var price, qty, buyerFee, sellerFee, totalFees string
	err := row.Scan(
		&t.ID, &t.PairID, &t.PairSymbol, &buyID, &sellID,
		&t.BuyerAddress, &t.SellerAddress, &price, &qty,
		&t.TakerSide, &t.TradeType, &buyerFee, &sellerFee, &totalFees,
		&t.FeeCurrency, &t.IsPrivate, &t.SettlementStatus, &t.SettledAt, &t.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}
	if buyID != nil {
		t.BuyOrderID = *buyID
	}
	if sellID != nil {
		t.SellOrderID = *sellID
	}
	t.Price = dec(price)
	t.Quantity = dec(qty)
	t.BuyerFee = dec(buyerFee)
	t.SellerFee = dec(sellerFee)
	t.TotalFees = dec(totalFees)
	return &t, nil
}

// CreateBatch inserts the trades of one matching pass in one transaction.
func (s *TradeStore) CreateBatch(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin trade batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO trades (
			id, pair_id, pair_symbol, buy_order_id, sell_order_id,
			buyer_address, seller_address, price, quantity,
			taker_side, trade_type, buyer_fee, seller_fee, total_fees,
			fee_currency, is_private, settlement_status, settled_at, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)`
	for _, t := range trades {
		if _, err := tx.Exec(ctx, query,
			t.ID, t.PairID, t.PairSymbol, nullable(t.BuyOrderID), nullable(t.SellOrderID),
			t.BuyerAddress, t.SellerAddress, t.Price.String(), t.Quantity.String(),
			string(t.TakerSide), string(t.TradeType),
			t.BuyerFee.String(), t.SellerFee.String(), t.TotalFees.String(),
			t.FeeCurrency, t.IsPrivate, string(t.SettlementStatus), t.SettledAt, t.ExecutedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit trade batch: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *TradeStore) Get(ctx context.Context, id string) (*domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE id = $1`
	t, err := scanTrade(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get trade %s: %w", id, err)
	}
	return t, nil
}

func (s *TradeStore) ListByPair(ctx context.Context, pairSymbol string, opts domain.ListOpts) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades
		WHERE pair_symbol = $1 ORDER BY executed_at DESC LIMIT $2 OFFSET $3`
	return s.queryTrades(ctx, query, pairSymbol, opts.Limit, opts.Offset)
}

func (s *TradeStore) ListByUser(ctx context.Context, address string, opts domain.ListOpts) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades
		WHERE buyer_address = $1 OR seller_address = $1
		ORDER BY executed_at DESC LIMIT $2 OFFSET $3`
	return s.queryTrades(ctx, query, address, opts.Limit, opts.Offset)
}

func (s *TradeStore) queryTrades(ctx context.Context, query string, args ...any) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var out []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TradeStore) MarkSettled(ctx context.Context, id string, status domain.SettlementStatus, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE trades SET settlement_status = $2, settled_at = $3 WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark trade settled %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TradeStore) ListSettledBefore(ctx context.Context, pairSymbol string, cutoff time.Time, opts domain.ListOpts) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades
		WHERE pair_symbol = $1 AND settlement_status = 'settled' AND executed_at < $2
		ORDER BY executed_at ASC LIMIT $3 OFFSET $4`
	return s.queryTrades(ctx, query, pairSymbol, cutoff, opts.Limit, opts.Offset)
}

// Stats24h aggregates the trailing 24h window in SQL. Change24h compares the
// latest price against the first price of the window.
func (s *TradeStore) Stats24h(ctx context.Context, pairSymbol string, now time.Time) (*domain.PairStats, error) {
	const query = `
		SELECT
			COALESCE(MAX(price), 0)::text,
			COALESCE(MIN(price), 0)::text,
			COALESCE(SUM(quantity), 0)::text,
			COALESCE(SUM(price * quantity), 0)::text,
			COUNT(*),
			COALESCE((SELECT price FROM trades
				WHERE pair_symbol = $1 AND executed_at >= $2
				ORDER BY executed_at DESC LIMIT 1), 0)::text,
			COALESCE((SELECT price FROM trades
				WHERE pair_symbol = $1 AND executed_at >= $2
				ORDER BY executed_at ASC LIMIT 1), 0)::text
		FROM trades
		WHERE pair_symbol = $1 AND executed_at >= $2`

	since := now.Add(-24 * time.Hour)
	var high, low, volBase, volQuote, last, first string
	var count int
	err := s.pool.QueryRow(ctx, query, pairSymbol, since).Scan(
		&high, &low, &volBase, &volQuote, &count, &last, &first,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: 24h stats %s: %w", pairSymbol, err)
	}

	stats := &domain.PairStats{
		Symbol:      pairSymbol,
		High24h:     dec(high),
		Low24h:      dec(low),
		VolumeBase:  dec(volBase),
		VolumeQuote: dec(volQuote),
		TradeCount:  count,
		LastPrice:   dec(last),
	}
	firstPrice := dec(first)
	if firstPrice.IsPositive() {
		stats.Change24h = stats.LastPrice.Sub(firstPrice).Div(firstPrice).Mul(decimal100)
	}
	return stats, nil
}

// Candles buckets executions with date_bin and aggregates OHLCV per bucket,
// newest buckets first.
func (s *TradeStore) Candles(ctx context.Context, pairSymbol string, bucket time.Duration, limit int) ([]domain.Candle, error) {
	const query = `
		SELECT
			date_bin($2::interval, executed_at, TIMESTAMPTZ '2000-01-01') AS bucket,
			(array_agg(price ORDER BY executed_at ASC))[1]::text  AS open,
			MAX(price)::text                                      AS high,
			MIN(price)::text                                      AS low,
			(array_agg(price ORDER BY executed_at DESC))[1]::text AS close,
			SUM(quantity)::text                                   AS volume
		FROM trades
		WHERE pair_symbol = $1
		GROUP BY bucket
		ORDER BY bucket DESC
		LIMIT $3`

	interval := fmt.Sprintf("%d seconds", int64(bucket.Seconds()))
	rows, err := s.pool.Query(ctx, query, pairSymbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: candles %s: %w", pairSymbol, err)
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var c domain.Candle
		var open, high, low, close, volume string
		if err := rows.Scan(&c.Timestamp, &open, &high, &low, &close, &volume); err != nil {
			return nil, fmt.Errorf("postgres: scan candle: %w", err)
		}
		c.Open = dec(open)
		c.High = dec(high)
		c.Low = dec(low)
		c.Close = dec(close)
		c.Volume = dec(volume)
		out = append(out, c)
	}
	return out, rows.Err()
}
