// Package credstore persists the credential record of a browser session as a
// group of signed cookies. Each field lives in its own cookie so that a
// tampered or expired field degrades to "absent" without taking the rest of
// the record down with it.
package credstore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/budgetwise/budgetwise/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// UserSnapshot is the denormalized copy of the authenticated principal kept
// alongside the tokens.
type UserSnapshot struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Record is the full credential record. Any field may be nil after a read:
// a partial record is the normal result of expired or tampered cookies.
type Record struct {
	AccessToken  string
	RefreshToken string
	User         *UserSnapshot
	ExpiresAt    *time.Time
}

// IsAuthenticated reports whether the record carries a complete credential.
// A token without its owning user (or vice versa) does not count.
func (r Record) IsAuthenticated() bool {
	return r.AccessToken != "" && r.User != nil
}

type cookieClaims struct {
	jwt.RegisteredClaims
	Value string `json:"v"`
}

// Read parses and verifies each session cookie independently. A missing or
// unverifiable cookie yields a zero field, never an error: a tampered cookie
// must degrade to logged-out, not to a failed request.
func Read(r *http.Request) Record {
	var rec Record

	rec.AccessToken = readSigned(r, config.AuthTokenCookie)
	rec.RefreshToken = readSigned(r, config.RefreshTokenCookie)

	if raw := readSigned(r, config.UserDataCookie); raw != "" {
		var user UserSnapshot
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			log.Debug().Err(err).Msg("Discarding undecodable user-data cookie")
		} else {
			rec.User = &user
		}
	}

	if raw := readSigned(r, config.AuthExpiresCookie); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err != nil {
			log.Debug().Err(err).Msg("Discarding unparseable auth-expires cookie")
		} else {
			rec.ExpiresAt = &ts
		}
	}

	return rec
}

// Write serializes the record into its four signed cookies. ttl governs the
// access token, user snapshot and expiry cookies; the refresh cookie keeps
// its own longer lifetime so refresh outlives access expiry. A non-positive
// ttl falls back to the default session cookie lifetime.
func Write(w http.ResponseWriter, rec Record, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = config.GetDefaultCookieLifetime()
	}

	userJSON, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("failed to serialize user snapshot: %w", err)
	}

	expiresAt := ""
	if rec.ExpiresAt != nil {
		expiresAt = rec.ExpiresAt.UTC().Format(time.RFC3339)
	}

	type field struct {
		name  string
		value string
		ttl   time.Duration
	}

	fields := []field{
		{config.AuthTokenCookie, rec.AccessToken, ttl},
		{config.UserDataCookie, string(userJSON), ttl},
		{config.AuthExpiresCookie, expiresAt, ttl},
	}

	// An empty refresh token means "leave the existing cookie alone", not
	// "erase it": login-path writes may omit it while a rotated token from a
	// refresh is already persisted.
	if rec.RefreshToken != "" {
		fields = append(fields, field{config.RefreshTokenCookie, rec.RefreshToken, config.GetRefreshCookieLifetime()})
	}

	for _, f := range fields {
		signed, err := sign(f.value, f.ttl)
		if err != nil {
			return fmt.Errorf("failed to sign %s cookie: %w", f.name, err)
		}
		http.SetCookie(w, newCookie(f.name, signed, int(f.ttl.Seconds())))
	}

	return nil
}

// Clear erases all four cookies as one group of directives.
func Clear(w http.ResponseWriter) {
	for _, name := range []string{
		config.AuthTokenCookie,
		config.RefreshTokenCookie,
		config.UserDataCookie,
		config.AuthExpiresCookie,
	} {
		http.SetCookie(w, newCookie(name, "", -1))
	}
}

func newCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}

func sign(value string, ttl time.Duration) (string, error) {
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Value: value,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.GetCookieSecret())
}

// readSigned returns the verified payload of one cookie, or "" when the
// cookie is missing, expired, or fails verification.
func readSigned(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &cookieClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetCookieSecret(), nil
	})
	if err != nil {
		log.Debug().Err(err).Str("cookie", name).Msg("Cookie failed verification, treating as absent")
		return ""
	}

	if claims, ok := token.Claims.(*cookieClaims); ok && token.Valid {
		return claims.Value
	}

	return ""
}
