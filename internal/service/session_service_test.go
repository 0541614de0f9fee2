package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

func TestCreateSessionHashesWallet(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, testLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "secret1walletaddr", domain.PrivacyEnhanced)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.NotContains(t, sess.WalletHash, "secret1")
	assert.Equal(t, HashWallet("secret1walletaddr"), sess.WalletHash)
	assert.True(t, sess.HideBalances)
	assert.False(t, sess.PrivateOrders)

	// same wallet reuses the live session
	again, err := svc.Create(ctx, "secret1walletaddr", domain.PrivacyEnhanced)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID)
}

func TestCreateSessionValidation(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", domain.PrivacyStandard)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, "secret1wallet", "paranoid")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthenticateToken(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, testLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "secret1wallet", domain.PrivacyStandard)
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = svc.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSessionTokenStoredHashed(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, testLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "secret1wallet", domain.PrivacyStandard)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	stored, err := store.GetByWalletHash(ctx, sess.WalletHash)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Token, stored.Token, "raw token must never be persisted")
	assert.Equal(t, hashToken(sess.Token), stored.Token)

	// the raw token still authenticates, its digest does not
	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = svc.Authenticate(ctx, stored.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// session reuse for the same wallet never re-exposes a token
	again, err := svc.Create(ctx, "secret1wallet", domain.PrivacyStandard)
	require.NoError(t, err)
	assert.Empty(t, again.Token)
}

func TestAuthenticateExpired(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, testLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "secret1wallet", domain.PrivacyStandard)
	require.NoError(t, err)

	stored, err := store.GetByWalletHash(ctx, sess.WalletHash)
	require.NoError(t, err)
	stored.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Update(ctx, stored))

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestExtendSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, testLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "secret1wallet", domain.PrivacyStandard)
	require.NoError(t, err)

	extended, err := svc.Extend(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, extended.ExpiresAt.After(sess.ExpiresAt) || extended.ExpiresAt.Equal(sess.ExpiresAt))
}

func TestUpdateSettingsPartial(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, testLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "secret1wallet", domain.PrivacyStandard)
	require.NoError(t, err)

	hide := true
	got, err := svc.UpdateSettings(ctx, sess.Token, SessionSettings{HideBalances: &hide})
	require.NoError(t, err)
	assert.True(t, got.HideBalances)
	// untouched switches keep their values
	assert.Equal(t, sess.PrivateOrders, got.PrivateOrders)
}

func TestCleanupExpired(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, testLogger())
	ctx := context.Background()

	live, err := svc.Create(ctx, "secret1alive", domain.PrivacyStandard)
	require.NoError(t, err)
	dead, err := svc.Create(ctx, "secret1dead", domain.PrivacyStandard)
	require.NoError(t, err)
	stored, err := store.GetByWalletHash(ctx, dead.WalletHash)
	require.NoError(t, err)
	stored.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Update(ctx, stored))

	n, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.Authenticate(ctx, live.Token)
	assert.NoError(t, err)
}
