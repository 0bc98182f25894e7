package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Session is the wire shape of GET /session. Null fields mean the matching
// cookie was absent or failed verification server-side.
type Session struct {
	Token        *string `json:"token"`
	UserData     *User   `json:"userData"`
	Expiration   *string `json:"expiration"`
	RefreshToken *string `json:"refreshToken"`
}

// ExpiresAt parses the expiration field, if present.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if s.Expiration == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, *s.Expiration)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// RefreshResult is the data payload of a successful POST /session/refresh.
type RefreshResult struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	User      *User  `json:"user"`
}

type result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-success response from the session API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("session api error: %d %s", e.StatusCode, e.Message)
}

// Client talks to the session API. It keeps a cookie jar, playing the role
// the browser plays for the real web client, and publishes to the expiration
// bus whenever a call comes back 401.
type Client struct {
	httpClient *http.Client
	baseURL    string
	bus        *Bus
}

// ClientOption modifies a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBus attaches the token-expired bus the client publishes 401s to
func WithBus(bus *Bus) ClientOption {
	return func(c *Client) {
		c.bus = bus
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second, Jar: jar},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// GetSession fetches the current credential record. No side effects.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/session", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session api unreachable: %w", err)
	}
	defer resp.Body.Close()
	c.observeStatus(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// SetSession persists a credential record. Returns only once the server
// confirmed the write; the error carries the server's message on failure.
func (c *Client) SetSession(ctx context.Context, token string, user *User, expiresIn int, refreshToken string) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("userData", string(userJSON))
	form.Set("expiresIn", strconv.Itoa(expiresIn))
	if refreshToken != "" {
		form.Set("refreshToken", refreshToken)
	}

	_, err = c.postForm(ctx, "/session/set", form)
	return err
}

// ClearSession erases the server-side credential record. Idempotent.
func (c *Client) ClearSession(ctx context.Context) error {
	_, err := c.postForm(ctx, "/session/clear", url.Values{})
	return err
}

// RefreshSession exchanges the stored refresh token for fresh credentials.
// A 401 here is returned to the caller rather than published to the bus:
// whether a failed refresh ends the session is the caller's decision.
func (c *Client) RefreshSession(ctx context.Context) (*RefreshResult, error) {
	res, err := c.postFormQuiet(ctx, "/session/refresh", url.Values{})
	if err != nil {
		return nil, err
	}

	var refreshed RefreshResult
	if err := json.Unmarshal(res.Data, &refreshed); err != nil {
		return nil, fmt.Errorf("failed to decode refresh data: %w", err)
	}
	return &refreshed, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*result, error) {
	res, status, err := c.doForm(ctx, path, form)
	if status != 0 {
		c.observeStatus(status)
	}
	return res, err
}

func (c *Client) postFormQuiet(ctx context.Context, path string, form url.Values) (*result, error) {
	res, _, err := c.doForm(ctx, path, form)
	return res, err
}

func (c *Client) doForm(ctx context.Context, path string, form url.Values) (*result, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("session api unreachable: %w", err)
	}
	defer resp.Body.Close()

	var res result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	if !res.Success {
		message := res.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	return &res, resp.StatusCode, nil
}

func (c *Client) observeStatus(status int) {
	if status == http.StatusUnauthorized && c.bus != nil {
		c.bus.Publish()
	}
}
