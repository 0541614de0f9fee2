package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

var _ domain.PositionStore = (*PositionStore)(nil)

const positionSelectCols = `id, pool_id, provider_address,
	shares::text, initial_base::text, initial_quote::text,
	is_active, created_at, updated_at, closed_at`

func scanPosition(row pgx.Row) (*domain.LiquidityPosition, error) {
	var p domain.LiquidityPosition
	var shares, ib, iq string
	err := row.Scan(
		&p.ID, &p.PoolID, &p.ProviderAddress,
		&shares, &ib, &iq,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Shares = dec(shares)
	p.InitialBase = dec(ib)
	p.InitialQuote = dec(iq)
	return &p, nil
}

func (s *PositionStore) Create(ctx context.Context, p *domain.LiquidityPosition) error {
	const query = `
		INSERT INTO liquidity_positions (
			id, pool_id, provider_address, shares, initial_base, initial_quote,
			is_active, created_at, updated_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.PoolID, p.ProviderAddress,
		p.Shares.String(), p.InitialBase.String(), p.InitialQuote.String(),
		p.IsActive, p.CreatedAt, p.UpdatedAt, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
	}
	return nil
}

func (s *PositionStore) Get(ctx context.Context, id string) (*domain.LiquidityPosition, error) {
	query := `SELECT ` + positionSelectCols + ` FROM liquidity_positions WHERE id = $1`
	p, err := scanPosition(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

func (s *PositionStore) GetActive(ctx context.Context, poolID, provider string) (*domain.LiquidityPosition, error) {
	query := `SELECT ` + positionSelectCols + ` FROM liquidity_positions
		WHERE pool_id = $1 AND provider_address = $2 AND is_active
		ORDER BY created_at DESC LIMIT 1`
	p, err := scanPosition(s.pool.QueryRow(ctx, query, poolID, provider))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get active position: %w", err)
	}
	return p, nil
}

func (s *PositionStore) ListByProvider(ctx context.Context, provider string) ([]*domain.LiquidityPosition, error) {
	query := `SELECT ` + positionSelectCols + ` FROM liquidity_positions
		WHERE provider_address = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, provider)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var out []*domain.LiquidityPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PositionStore) Update(ctx context.Context, p *domain.LiquidityPosition) error {
	const query = `
		UPDATE liquidity_positions SET
			shares = $2, is_active = $3, updated_at = $4, closed_at = $5
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Shares.String(), p.IsActive, p.UpdatedAt, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
