package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// PoolStore implements domain.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *pgxpool.Pool
}

func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

var _ domain.PoolStore = (*PoolStore)(nil)

const poolSelectCols = `id, pair_id, pair_symbol, name,
	reserve_base::text, reserve_quote::text, total_liquidity::text, fee_rate::text,
	total_volume_base::text, total_volume_quote::text, total_fees_collected::text,
	swap_count, is_active, is_private, created_at, updated_at, last_swap_at`

func scanPool(row pgx.Row) (*domain.LiquidityPool, error) {
	var p domain.LiquidityPool
	var rb, rq, tl, fee, tvb, tvq, tfc string
	err := row.Scan(
		&p.ID, &p.PairID, &p.PairSymbol, &p.Name,
		&rb, &rq, &tl, &fee, &tvb, &tvq, &tfc,
		&p.SwapCount, &p.IsActive, &p.IsPrivate,
		&p.CreatedAt, &p.UpdatedAt, &p.LastSwapAt,
	)
	if err != nil {
		return nil, err
	}
	p.ReserveBase = dec(rb)
	p.ReserveQuote = dec(rq)
	p.TotalLiquidity = dec(tl)
	p.FeeRate = dec(fee)
	p.TotalVolumeBase = dec(tvb)
	p.TotalVolumeQuote = dec(tvq)
	p.TotalFeesCollected = dec(tfc)
	return &p, nil
}

func (s *PoolStore) Create(ctx context.Context, p *domain.LiquidityPool) error {
	const query = `
		INSERT INTO liquidity_pools (
			id, pair_id, pair_symbol, name,
			reserve_base, reserve_quote, total_liquidity, fee_rate,
			total_volume_base, total_volume_quote, total_fees_collected,
			swap_count, is_active, is_private, created_at, updated_at, last_swap_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15, $16, $17
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.PairID, p.PairSymbol, p.Name,
		p.ReserveBase.String(), p.ReserveQuote.String(), p.TotalLiquidity.String(), p.FeeRate.String(),
		p.TotalVolumeBase.String(), p.TotalVolumeQuote.String(), p.TotalFeesCollected.String(),
		p.SwapCount, p.IsActive, p.IsPrivate, p.CreatedAt, p.UpdatedAt, p.LastSwapAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: pool %s: %w", p.PairSymbol, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create pool %s: %w", p.PairSymbol, err)
	}
	return nil
}

func (s *PoolStore) GetBySymbol(ctx context.Context, pairSymbol string) (*domain.LiquidityPool, error) {
	query := `SELECT ` + poolSelectCols + ` FROM liquidity_pools WHERE pair_symbol = $1`
	p, err := scanPool(s.pool.QueryRow(ctx, query, pairSymbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get pool %s: %w", pairSymbol, err)
	}
	return p, nil
}

func (s *PoolStore) List(ctx context.Context, activeOnly bool) ([]*domain.LiquidityPool, error) {
	query := `SELECT ` + poolSelectCols + ` FROM liquidity_pools`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY pair_symbol`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pools: %w", err)
	}
	defer rows.Close()

	var out []*domain.LiquidityPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pool: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PoolStore) Update(ctx context.Context, p *domain.LiquidityPool) error {
	const query = `
		UPDATE liquidity_pools SET
			reserve_base = $2, reserve_quote = $3, total_liquidity = $4,
			total_volume_base = $5, total_volume_quote = $6, total_fees_collected = $7,
			swap_count = $8, is_active = $9, updated_at = $10, last_swap_at = $11
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		p.ID,
		p.ReserveBase.String(), p.ReserveQuote.String(), p.TotalLiquidity.String(),
		p.TotalVolumeBase.String(), p.TotalVolumeQuote.String(), p.TotalFeesCollected.String(),
		p.SwapCount, p.IsActive, p.UpdatedAt, p.LastSwapAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update pool %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
