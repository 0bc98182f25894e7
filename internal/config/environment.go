package config

import "sync"

var (
	environmentMu sync.RWMutex
	// Environment selects between development and production behaviour,
	// most notably the Secure attribute on session cookies.
	Environment = GetEnvOrDefault("ENVIRONMENT", "development")
)

// IsProduction reports whether the server runs with production settings
func IsProduction() bool {
	environmentMu.RLock()
	defer environmentMu.RUnlock()
	return Environment == "production"
}

// SetEnvironment temporarily changes the environment and returns a function to restore it
// This is primarily used for testing
func SetEnvironment(env string) func() {
	environmentMu.Lock()
	previous := Environment
	Environment = env
	environmentMu.Unlock()

	return func() {
		environmentMu.Lock()
		Environment = previous
		environmentMu.Unlock()
	}
}
