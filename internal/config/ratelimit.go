package config

import "time"

// RateLimitConfig defines per-operation call limits for authenticated
// users.  Each counter lives in Redis under Prefix and expires Window
// after its first increment; the window is fixed from the first call,
// not extended by subsequent ones.
type RateLimitConfig struct {
    Enabled    bool
    CreateMax  int           // max todo creations per window
    ListMax    int           // max list/read queries per window
    Window     time.Duration // counting window
    Prefix     string
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig.  Defaults are 50 creates and 200 list queries per
// hour.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:   getenv("RATE_LIMIT_ENABLED", "true") == "true",
        CreateMax: atoi(getenv("RATE_LIMIT_CREATE_MAX", "50"), 50),
        ListMax:   atoi(getenv("RATE_LIMIT_LIST_MAX", "200"), 200),
        Window:    parseDur(getenv("RATE_LIMIT_WINDOW", "1h")),
        Prefix:    getenv("RATE_LIMIT_PREFIX", "rate_limit"),
    }
    if def.CreateMax < 1 {
        def.CreateMax = 1
    }
    if def.ListMax < 1 {
        def.ListMax = 1
    }
    if def.Window <= 0 {
        def.Window = time.Hour
    }
    return def
}
