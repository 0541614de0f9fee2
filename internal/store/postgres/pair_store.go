package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// PairStore implements domain.PairStore using PostgreSQL.
type PairStore struct {
	pool *pgxpool.Pool
}

func NewPairStore(pool *pgxpool.Pool) *PairStore {
	return &PairStore{pool: pool}
}

var _ domain.PairStore = (*PairStore)(nil)

var decimal100 = decimal.NewFromInt(100)

// dec parses a NUMERIC scanned as text. Columns default to 0 so the text is
// never empty.
func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

const pairSelectCols = `id, symbol, base_token, quote_token,
	last_price::text, high_24h::text, low_24h::text,
	volume_24h_base::text, volume_24h_quote::text, change_24h::text,
	is_active, created_at, updated_at`

func scanPair(row pgx.Row) (*domain.TradingPair, error) {
	var p domain.TradingPair
	var lastPrice, high, low, volBase, volQuote, change string
	err := row.Scan(
		&p.ID, &p.Symbol, &p.BaseToken, &p.QuoteToken,
		&lastPrice, &high, &low, &volBase, &volQuote, &change,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.LastPrice = dec(lastPrice)
	p.High24h = dec(high)
	p.Low24h = dec(low)
	p.Volume24hBase = dec(volBase)
	p.Volume24hQuote = dec(volQuote)
	p.Change24h = dec(change)
	return &p, nil
}

func (s *PairStore) Create(ctx context.Context, p *domain.TradingPair) error {
	const query = `
		INSERT INTO trading_pairs (
			id, symbol, base_token, quote_token,
			last_price, high_24h, low_24h,
			volume_24h_base, volume_24h_quote, change_24h,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Symbol, p.BaseToken, p.QuoteToken,
		p.LastPrice.String(), p.High24h.String(), p.Low24h.String(),
		p.Volume24hBase.String(), p.Volume24hQuote.String(), p.Change24h.String(),
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: pair %s: %w", p.Symbol, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create pair %s: %w", p.Symbol, err)
	}
	return nil
}

func (s *PairStore) GetBySymbol(ctx context.Context, symbol string) (*domain.TradingPair, error) {
	query := `SELECT ` + pairSelectCols + ` FROM trading_pairs WHERE symbol = $1`
	p, err := scanPair(s.pool.QueryRow(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get pair %s: %w", symbol, err)
	}
	return p, nil
}

func (s *PairStore) List(ctx context.Context, activeOnly bool) ([]*domain.TradingPair, error) {
	query := `SELECT ` + pairSelectCols + ` FROM trading_pairs`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY symbol`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pairs: %w", err)
	}
	defer rows.Close()

	var out []*domain.TradingPair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PairStore) UpdateStats(ctx context.Context, p *domain.TradingPair) error {
	const query = `
		UPDATE trading_pairs SET
			last_price = $2, high_24h = $3, low_24h = $4,
			volume_24h_base = $5, volume_24h_quote = $6, change_24h = $7,
			updated_at = NOW()
		WHERE symbol = $1`

	tag, err := s.pool.Exec(ctx, query,
		p.Symbol,
		p.LastPrice.String(), p.High24h.String(), p.Low24h.String(),
		p.Volume24hBase.String(), p.Volume24hQuote.String(), p.Change24h.String(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update pair stats %s: %w", p.Symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PairStore) SetActive(ctx context.Context, symbol string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE trading_pairs SET is_active = $2, updated_at = NOW() WHERE symbol = $1`,
		symbol, active,
	)
	if err != nil {
		return fmt.Errorf("postgres: set pair active %s: %w", symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
