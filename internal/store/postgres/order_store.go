package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

var _ domain.OrderStore = (*OrderStore)(nil)

const orderSelectCols = `id, pair_id, pair_symbol, user_address, side, order_type,
	price::text, stop_price::text, quantity::text,
	filled_quantity::text, remaining_quantity::text, average_fill_price::text,
	status, time_in_force, expires_at,
	is_private, encrypted_details, target_chain, sequence,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var price, stopPrice, qty, filled, remaining, avg string
	err := row.Scan(
		&o.ID, &o.PairID, &o.PairSymbol, &o.UserAddress, &o.Side, &o.Type,
		&price, &stopPrice, &qty, &filled, &remaining, &avg,
		&o.Status, &o.TimeInForce, &o.ExpiresAt,
		&o.IsPrivate, &o.EncryptedDetails, &o.TargetChain, &o.Sequence,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Price = dec(price)
	o.StopPrice = dec(stopPrice)
	o.Quantity = dec(qty)
	o.FilledQuantity = dec(filled)
	o.RemainingQuantity = dec(remaining)
	o.AverageFillPrice = dec(avg)
	return &o, nil
}

func (s *OrderStore) Create(ctx context.Context, o *domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, pair_id, pair_symbol, user_address, side, order_type,
			price, stop_price, quantity,
			filled_quantity, remaining_quantity, average_fill_price,
			status, time_in_force, expires_at,
			is_private, encrypted_details, target_chain, sequence,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19,
			$20, $21
		)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.PairID, o.PairSymbol, o.UserAddress, string(o.Side), string(o.Type),
		o.Price.String(), o.StopPrice.String(), o.Quantity.String(),
		o.FilledQuantity.String(), o.RemainingQuantity.String(), o.AverageFillPrice.String(),
		string(o.Status), string(o.TimeInForce), o.ExpiresAt,
		o.IsPrivate, o.EncryptedDetails, o.TargetChain, int64(o.Sequence),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

func (s *OrderStore) List(ctx context.Context, f domain.OrderFilter) ([]*domain.Order, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PairSymbol != "" {
		add("pair_symbol = $%d", f.PairSymbol)
	}
	if f.UserAddress != "" {
		add("user_address = $%d", f.UserAddress)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", statuses)
	}

	query := `SELECT ` + orderSelectCols + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *OrderStore) Update(ctx context.Context, o *domain.Order) error {
	const query = `
		UPDATE orders SET
			filled_quantity = $2, remaining_quantity = $3, average_fill_price = $4,
			status = $5, price = $6, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		o.ID,
		o.FilledQuantity.String(), o.RemainingQuantity.String(), o.AverageFillPrice.String(),
		string(o.Status), o.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateBatch applies Update for every order inside one transaction so a
// matching pass persists atomically.
func (s *OrderStore) UpdateBatch(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin order batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		UPDATE orders SET
			filled_quantity = $2, remaining_quantity = $3, average_fill_price = $4,
			status = $5, price = $6, updated_at = NOW()
		WHERE id = $1`
	for _, o := range orders {
		if _, err := tx.Exec(ctx, query,
			o.ID,
			o.FilledQuantity.String(), o.RemainingQuantity.String(), o.AverageFillPrice.String(),
			string(o.Status), o.Price.String(),
		); err != nil {
			return fmt.Errorf("postgres: batch update order %s: %w", o.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit order batch: %w", err)
	}
	return nil
}

// ListResting returns every order still occupying the book for a pair,
// oldest sequence first so books rebuild deterministically.
func (s *OrderStore) ListResting(ctx context.Context, pairSymbol string) ([]*domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders
		WHERE pair_symbol = $1 AND status IN ('pending', 'partially_filled')
		ORDER BY sequence ASC`

	rows, err := s.pool.Query(ctx, query, pairSymbol)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resting orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
