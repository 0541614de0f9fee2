package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

const sessionTTL = 24 * time.Hour

// SessionSettings are the user-tunable privacy switches.
type SessionSettings struct {
	Level         domain.PrivacyLevel
	HideBalances  *bool
	PrivateOrders *bool
	MEVProtection *bool
}

// SessionService manages privacy sessions: wallet addresses are stored only
// as sha256 hashes, the bearer token is handed out once at creation.
type SessionService struct {
	sessions domain.SessionStore
	logger   *slog.Logger
}

func NewSessionService(sessions domain.SessionStore, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_service")),
	}
}

// HashWallet is the canonical wallet-address digest used everywhere a wallet
// must be referenced without being stored.
func HashWallet(address string) string {
	sum := sha256.Sum256([]byte(address))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashToken is the at-rest form of a session token. Only the digest is
// persisted, so a leaked sessions table cannot authenticate anyone.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create opens a session for a wallet. An existing unexpired session for the
// same wallet is returned instead of minting a second token.
func (s *SessionService) Create(ctx context.Context, walletAddress string, level domain.PrivacyLevel) (*domain.PrivacySession, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: wallet address required", domain.ErrValidation)
	}
	if level == "" {
		level = domain.PrivacyStandard
	}
	switch level {
	case domain.PrivacyStandard, domain.PrivacyEnhanced, domain.PrivacyMaximum:
	default:
		return nil, fmt.Errorf("%w: unknown privacy level %q", domain.ErrValidation, level)
	}

	hash := HashWallet(walletAddress)
	now := time.Now().UTC()

	existing, err := s.sessions.GetByWalletHash(ctx, hash)
	if err == nil && !existing.Expired(now) {
		existing.LastActiveAt = now
		if uerr := s.sessions.Update(ctx, existing); uerr != nil {
			s.logger.WarnContext(ctx, "session touch failed", slog.String("error", uerr.Error()))
		}
		// The raw token left with the client at creation and cannot be
		// recovered from its digest.
		existing.Token = ""
		return existing, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("session_service: lookup session: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("session_service: mint token: %w", err)
	}
	sess := &domain.PrivacySession{
		ID:            uuid.NewString(),
		WalletHash:    hash,
		Token:         hashToken(token),
		Level:         level,
		HideBalances:  level != domain.PrivacyStandard,
		PrivateOrders: level == domain.PrivacyMaximum,
		MEVProtection: level != domain.PrivacyStandard,
		CreatedAt:     now,
		LastActiveAt:  now,
		ExpiresAt:     now.Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("session_service: persist session: %w", err)
	}
	s.logger.InfoContext(ctx, "session created", slog.String("level", string(level)))
	// hand the raw token back exactly once
	sess.Token = token
	return sess, nil
}

// Authenticate resolves a bearer token to its session, refusing expired ones
// and touching the activity timestamp.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*domain.PrivacySession, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	sess, err := s.sessions.GetByToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("session_service: lookup token: %w", err)
	}
	now := time.Now().UTC()
	if sess.Expired(now) {
		return nil, domain.ErrSessionExpired
	}
	sess.LastActiveAt = now
	if err := s.sessions.Update(ctx, sess); err != nil {
		s.logger.WarnContext(ctx, "session touch failed", slog.String("error", err.Error()))
	}
	return sess, nil
}

// Extend pushes the expiry out by another full TTL from now.
func (s *SessionService) Extend(ctx context.Context, token string) (*domain.PrivacySession, error) {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt = time.Now().UTC().Add(sessionTTL)
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("session_service: extend session: %w", err)
	}
	return sess, nil
}

// UpdateSettings applies the provided switches; nil pointers leave the
// current value untouched.
func (s *SessionService) UpdateSettings(ctx context.Context, token string, settings SessionSettings) (*domain.PrivacySession, error) {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if settings.Level != "" {
		sess.Level = settings.Level
	}
	if settings.HideBalances != nil {
		sess.HideBalances = *settings.HideBalances
	}
	if settings.PrivateOrders != nil {
		sess.PrivateOrders = *settings.PrivateOrders
	}
	if settings.MEVProtection != nil {
		sess.MEVProtection = *settings.MEVProtection
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("session_service: update settings: %w", err)
	}
	return sess, nil
}

// CleanupExpired deletes sessions past their expiry. Run periodically.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("session_service: cleanup: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed", slog.Int64("count", n))
	}
	return n, nil
}
