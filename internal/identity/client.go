// Package identity is the HTTP client for the upstream identity backend,
// which owns user accounts and mints access/refresh token pairs.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/budgetwise/budgetwise/internal/credstore"
	"github.com/rs/zerolog/log"
)

// TokenPair is the credential set returned by every issuing endpoint.
type TokenPair struct {
	AccessToken  string                  `json:"accessToken"`
	RefreshToken string                  `json:"refreshToken"`
	ExpiresIn    int                     `json:"expiresIn"`
	User         *credstore.UserSnapshot `json:"user"`
}

// Error is a rejection from the identity backend. The status code and
// message are preserved so callers can propagate them verbatim.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity backend rejected request: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	client  *http.Client
	baseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges email/password credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	return c.postJSON(ctx, "/auth/login", credentialsRequest{Email: email, Password: password})
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, email, password, name string) (*TokenPair, error) {
	return c.postJSON(ctx, "/auth/register", credentialsRequest{Email: email, Password: password, Name: name})
}

// Refresh exchanges a refresh token for a fresh token pair. Refresh tokens
// are rotated: the one passed in is dead after a successful call.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return c.postJSON(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken})
}

// Me fetches the current principal for a bearer access token.
func (c *Client) Me(ctx context.Context, accessToken string) (*credstore.UserSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var user credstore.UserSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	return &user, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (*TokenPair, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &pair, nil
}

func decodeError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		log.Debug().Err(err).Int("status", resp.StatusCode).Msg("Failed to read identity error body")
	}

	message := ""
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil {
		if parsed.Message != "" {
			message = parsed.Message
		} else {
			message = parsed.Error
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &Error{StatusCode: resp.StatusCode, Message: message}
}
