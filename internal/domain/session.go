package domain

import "time"

type PrivacyLevel string

const (
	PrivacyStandard PrivacyLevel = "standard"
	PrivacyEnhanced PrivacyLevel = "enhanced"
	PrivacyMaximum  PrivacyLevel = "maximum"
)

// PrivacySession authenticates private endpoints without storing the raw
// wallet address. WalletHash is sha256(address). Token holds the raw urlsafe
// bearer token only on the create response; at rest it is the token's
// sha256 digest.
type PrivacySession struct {
	ID         string `json:"id"`
	WalletHash string `json:"wallet_hash"`
	Token      string `json:"-"`

	Level PrivacyLevel `json:"level"`

	HideBalances  bool `json:"hide_balances"`
	PrivateOrders bool `json:"private_orders"`
	MEVProtection bool `json:"mev_protection"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *PrivacySession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
