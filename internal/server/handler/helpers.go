package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal encoding error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts reads limit/offset query parameters with sane bounds.
func parseListOpts(r *http.Request) domain.ListOpts {
	opts := domain.ListOpts{}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	return opts.Normalize(50, 500)
}

// normalizeSymbol converts the URL-safe dash form of a pair symbol
// ("scrt-usdt") to the canonical slash form ("SCRT/USDT"). Canonical symbols
// contain a slash, which does not survive as a single path segment.
func normalizeSymbol(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(raw, "-", "/"))
}

// pathSymbol extracts and normalizes the {symbol} path value.
func pathSymbol(r *http.Request) string {
	return normalizeSymbol(r.PathValue("symbol"))
}

// statusForError maps domain sentinel errors to HTTP status codes. Returns 0
// when the error is not a recognized domain error and should be treated as a
// server failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return 0
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
