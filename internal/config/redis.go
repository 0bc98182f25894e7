package config

// GetRedisURL returns the Redis address, or an empty string when Redis is not
// configured and in-memory fallbacks should be used
func GetRedisURL() string {
	return GetEnvOrDefault("REDIS_URL", "")
}

// GetRedisPassword returns the Redis password, if any
func GetRedisPassword() string {
	return GetEnvOrDefault("REDIS_PASSWORD", "")
}
