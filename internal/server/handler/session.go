package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/snipswap/snipswap-dex/internal/domain"
	"github.com/snipswap/snipswap-dex/internal/service"
)

// SessionService defines what the session handler needs from the service
// layer.
type SessionService interface {
	Create(ctx context.Context, walletAddress string, level domain.PrivacyLevel) (*domain.PrivacySession, error)
	Authenticate(ctx context.Context, token string) (*domain.PrivacySession, error)
	Extend(ctx context.Context, token string) (*domain.PrivacySession, error)
	UpdateSettings(ctx context.Context, token string, settings service.SessionSettings) (*domain.PrivacySession, error)
}

// SessionHandler serves privacy session endpoints. The bearer token is
// returned exactly once, in the create response.
type SessionHandler struct {
	sessions SessionService
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// sessionToken pulls the bearer token from the Authorization header.
func sessionToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Session-Token")
}

type createSessionRequest struct {
	WalletAddress string `json:"wallet_address"`
	Level         string `json:"level"`
}

type createSessionResponse struct {
	Session *domain.PrivacySession `json:"session"`
	Token   string                 `json:"token"`
}

// CreateSession opens a privacy session for a wallet. The raw wallet address
// is hashed before storage and never returned.
// POST /api/privacy/session
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	sess, err := h.sessions.Create(r.Context(), req.WalletAddress, domain.PrivacyLevel(req.Level))
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create session failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{Session: sess, Token: sess.Token})
}

// GetSession returns the authenticated session.
// GET /api/privacy/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "session token required")
		return
	}

	sess, err := h.sessions.Authenticate(r.Context(), token)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, "invalid or expired session")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get session failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// ExtendSession pushes the session expiry forward.
// POST /api/privacy/session/extend
func (h *SessionHandler) ExtendSession(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "session token required")
		return
	}

	sess, err := h.sessions.Extend(r.Context(), token)
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, "invalid or expired session")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: extend session failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to extend session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

type updateSettingsRequest struct {
	Level         string `json:"level"`
	HideBalances  *bool  `json:"hide_balances"`
	PrivateOrders *bool  `json:"private_orders"`
	MEVProtection *bool  `json:"mev_protection"`
}

// UpdateSettings patches session privacy switches. Absent fields keep their
// current value.
// PUT /api/privacy/session/settings
func (h *SessionHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "session token required")
		return
	}

	var req updateSettingsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, err := h.sessions.UpdateSettings(r.Context(), token, service.SessionSettings{
		Level:         domain.PrivacyLevel(req.Level),
		HideBalances:  req.HideBalances,
		PrivateOrders: req.PrivateOrders,
		MEVProtection: req.MEVProtection,
	})
	if err != nil {
		if status := statusForError(err); status != 0 {
			writeError(w, status, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: update settings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}
