package config

import "time"

// Session cookie names. All four travel together: a credential record is
// split across them but written and cleared as one unit.
const (
	AuthTokenCookie    = "auth-token"
	RefreshTokenCookie = "refresh-token"
	UserDataCookie     = "user-data"
	AuthExpiresCookie  = "auth-expires"
)

// GetDefaultCookieLifetime returns the cookie lifetime applied when a session
// write does not carry its own ttl
func GetDefaultCookieLifetime() time.Duration {
	return time.Duration(parseEnvInt("SESSION_COOKIE_LIFETIME_SECONDS", int((7*24*time.Hour).Seconds()))) * time.Second
}

// GetRefreshCookieLifetime returns the lifetime of the refresh-token cookie,
// which must outlive the access token so refresh remains possible after
// access expiry
func GetRefreshCookieLifetime() time.Duration {
	return time.Duration(parseEnvInt("REFRESH_COOKIE_LIFETIME_SECONDS", int((30*24*time.Hour).Seconds()))) * time.Second
}
