package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"session_read": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_SESSION_READ", 240), // monitor polls plus page loads
			Window:  time.Minute,
		},
		"session_write": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_SESSION_WRITE", 30),
			Window:  time.Minute,
		},
		"auth": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_AUTH", 20), // login/register attempts
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	log.Warn().Str("key", key).Msg("No rate limit config found for key")
	return RateLimitConfig{Enabled: false}
}
