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

// SessionStore implements domain.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

var _ domain.SessionStore = (*SessionStore)(nil)

const sessionSelectCols = `id, wallet_hash, token, privacy_level,
	hide_balances, private_orders, mev_protection,
	created_at, last_active_at, expires_at`

func scanSession(row pgx.Row) (*domain.PrivacySession, error) {
	var s domain.PrivacySession
	err := row.Scan(
		&s.ID, &s.WalletHash, &s.Token, &s.Level,
		&s.HideBalances, &s.PrivateOrders, &s.MEVProtection,
		&s.CreatedAt, &s.LastActiveAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *SessionStore) Create(ctx context.Context, sess *domain.PrivacySession) error {
	const query = `
		INSERT INTO privacy_sessions (
			id, wallet_hash, token, privacy_level,
			hide_balances, private_orders, mev_protection,
			created_at, last_active_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		sess.ID, sess.WalletHash, sess.Token, string(sess.Level),
		sess.HideBalances, sess.PrivateOrders, sess.MEVProtection,
		sess.CreatedAt, sess.LastActiveAt, sess.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: session: %w", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create session %s: %w", sess.ID, err)
	}
	return nil
}

// GetByToken looks a session up by the sha256 digest of its bearer token;
// the raw token is never stored.
func (s *SessionStore) GetByToken(ctx context.Context, tokenHash string) (*domain.PrivacySession, error) {
	query := `SELECT ` + sessionSelectCols + ` FROM privacy_sessions WHERE token = $1`
	sess, err := scanSession(s.pool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get session by token: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) GetByWalletHash(ctx context.Context, hash string) (*domain.PrivacySession, error) {
	query := `SELECT ` + sessionSelectCols + ` FROM privacy_sessions
		WHERE wallet_hash = $1 ORDER BY created_at DESC LIMIT 1`
	sess, err := scanSession(s.pool.QueryRow(ctx, query, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get session by wallet: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Update(ctx context.Context, sess *domain.PrivacySession) error {
	const query = `
		UPDATE privacy_sessions SET
			privacy_level = $2, hide_balances = $3, private_orders = $4,
			mev_protection = $5, last_active_at = $6, expires_at = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		sess.ID, string(sess.Level), sess.HideBalances, sess.PrivateOrders,
		sess.MEVProtection, sess.LastActiveAt, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update session %s: %w", sess.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM privacy_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
