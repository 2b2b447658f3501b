package config

import (
    "os"
    "strconv"
    "time"
)

// CacheConfig defines settings for the read-operation response cache.
// When Enabled is false or no Redis client is configured, caching is
// skipped entirely.  TTL defines the lifetime of cache entries.  Prefix
// namespaces every key so unrelated deployments can share a Redis
// database without colliding.
type CacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled: getenv("CACHE_ENABLED", "true") == "true",
        TTL:     parseDur(getenv("CACHE_TTL", "60s")),
        Prefix:  getenv("CACHE_PREFIX", "cache"),
    }
}

// Helper functions reused by cache.go and ratelimit.go.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string, def int) int {
    if n, err := strconv.Atoi(s); err == nil {
        return n
    }
    return def
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
