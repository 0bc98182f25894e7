package config

import (
	"sync"
)

var (
	cookieSecretMu sync.RWMutex
	// CookieSecret is the key used to sign session cookies
	// In production, this must be loaded from environment variables
	CookieSecret = []byte(GetEnvOrDefault("COOKIE_SECRET", "development-cookie-secret"))
)

// SetCookieSecret temporarily changes the cookie signing secret and returns a function to restore it
// This is primarily used for testing
func SetCookieSecret(secret []byte) func() {
	cookieSecretMu.Lock()
	previous := CookieSecret
	CookieSecret = secret
	cookieSecretMu.Unlock()

	return func() {
		cookieSecretMu.Lock()
		CookieSecret = previous
		cookieSecretMu.Unlock()
	}
}

// GetCookieSecret returns the current cookie signing secret in a thread-safe manner
func GetCookieSecret() []byte {
	cookieSecretMu.RLock()
	defer cookieSecretMu.RUnlock()
	return CookieSecret
}
