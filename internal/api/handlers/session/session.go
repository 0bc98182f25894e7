// Package session exposes the four endpoints the web client drives the
// credential lifecycle with: read, write, clear, refresh.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/budgetwise/budgetwise/internal/credstore"
	"github.com/budgetwise/budgetwise/internal/identity"
	"github.com/budgetwise/budgetwise/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// Refresher mints a fresh token pair from a refresh token. Satisfied by the
// upstream identity client and by the embedded dev backend.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*identity.TokenPair, error)
}

type Handler struct {
	refresher Refresher
	now       func() time.Time
}

// HandlerOption modifies a Handler, primarily for testing.
type HandlerOption func(*Handler)

// WithNowTime sets the clock function
func WithNowTime(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

func NewHandler(refresher Refresher, options ...HandlerOption) *Handler {
	h := &Handler{
		refresher: refresher,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// sessionResponse mirrors the credential record for the client. Null fields
// mean the matching cookie was missing or failed verification. The refresh
// token is echoed on purpose: the client library drives its own refresh flow
// with it.
type sessionResponse struct {
	Token        *string                 `json:"token"`
	UserData     *credstore.UserSnapshot `json:"userData"`
	Expiration   *string                 `json:"expiration"`
	RefreshToken *string                 `json:"refreshToken"`
}

type refreshData struct {
	Token     string                  `json:"token"`
	ExpiresIn int                     `json:"expiresIn"`
	User      *credstore.UserSnapshot `json:"user"`
}

// HandleGet returns the current credential record. Always 200; absent fields
// are null. No side effects.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec := credstore.Read(r)

	resp := sessionResponse{
		UserData: rec.User,
	}
	if rec.AccessToken != "" {
		resp.Token = &rec.AccessToken
	}
	if rec.RefreshToken != "" {
		resp.RefreshToken = &rec.RefreshToken
	}
	if rec.ExpiresAt != nil {
		expiration := rec.ExpiresAt.UTC().Format(time.RFC3339)
		resp.Expiration = &expiration
	}

	httpext.WriteJSON(w, http.StatusOK, resp)
}

// HandleSet persists a credential record from form fields: token, userData
// (a JSON object), expiresIn (seconds), and an optional refreshToken. This is
// the only login-path writer of the credential cookies.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpext.JsonFailure(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	token := r.PostFormValue("token")
	userData := r.PostFormValue("userData")
	if token == "" || userData == "" {
		httpext.JsonFailure(w, "token and userData are required", http.StatusBadRequest)
		return
	}

	var user credstore.UserSnapshot
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		httpext.JsonFailure(w, "userData is not valid JSON", http.StatusBadRequest)
		return
	}

	expiresIn := 0
	if raw := r.PostFormValue("expiresIn"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpext.JsonFailure(w, "expiresIn must be a non-negative integer", http.StatusBadRequest)
			return
		}
		expiresIn = parsed
	}

	ttl := time.Duration(expiresIn) * time.Second
	expiresAt := h.now().Add(ttl)
	rec := credstore.Record{
		AccessToken:  token,
		RefreshToken: r.PostFormValue("refreshToken"),
		User:         &user,
		ExpiresAt:    &expiresAt,
	}

	if err := credstore.Write(w, rec, ttl); err != nil {
		log.Error().Err(err).Msg("Failed to persist session cookies")
		httpext.JsonFailure(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httpext.JsonSuccess(w, nil)
}

// HandleClear erases the credential cookies. Clearing an empty session is
// not an error.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	credstore.Clear(w)
	httpext.JsonSuccess(w, nil)
}

// HandleRefresh exchanges the stored refresh token for a fresh credential
// record. On upstream rejection the upstream status and message pass through
// untouched and the stored session is left as it was; deciding to sign out
// belongs to the caller.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	rec := credstore.Read(r)
	if rec.RefreshToken == "" {
		httpext.JsonFailure(w, "No refresh token in session", http.StatusUnauthorized)
		return
	}

	pair, err := h.refresher.Refresh(r.Context(), rec.RefreshToken)
	if err != nil {
		var upstream *identity.Error
		if errors.As(err, &upstream) {
			httpext.JsonFailure(w, upstream.Message, upstream.StatusCode)
			return
		}
		log.Error().Err(err).Msg("Identity backend refresh failed")
		httpext.JsonFailure(w, "Identity backend unavailable", http.StatusInternalServerError)
		return
	}

	user := pair.User
	if user == nil {
		// Upstream omitted the snapshot; keep the stored one unchanged
		user = rec.User
	}

	ttl := time.Duration(pair.ExpiresIn) * time.Second
	expiresAt := h.now().Add(ttl)
	updated := credstore.Record{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
		ExpiresAt:    &expiresAt,
	}

	if err := credstore.Write(w, updated, ttl); err != nil {
		log.Error().Err(err).Msg("Failed to persist refreshed session cookies")
		httpext.JsonFailure(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httpext.JsonSuccess(w, refreshData{
		Token:     pair.AccessToken,
		ExpiresIn: pair.ExpiresIn,
		User:      user,
	})
}
