package config

import (
	"github.com/rs/zerolog/log"
)

// GetBackendURL returns the base URL of the upstream identity backend.
// An empty value means the embedded development backend is used instead.
func GetBackendURL() string {
	value := GetEnvOrDefault("BACKEND_URL", "")
	if value == "" {
		log.Warn().Msg("BACKEND_URL not set - falling back to embedded development backend")
	}
	return value
}

// GetListenAddr returns the address the HTTP server binds to
func GetListenAddr() string {
	return GetEnvOrDefault("LISTEN_ADDR", ":8080")
}
