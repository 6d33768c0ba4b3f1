package config

import "time"

// RateLimitConfig bounds how often a caller may trigger allocation runs.
// Limit requests are allowed per Window for each (user, route) key.
type RateLimitConfig struct {
    Enabled bool
    Limit   int
    Window  time.Duration
    Prefix  string
}

func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Limit:   envInt("RATE_LIMIT_LIMIT", 10),
        Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
    }
    if c.Limit < 1 { c.Limit = 1 }
    if c.Window < time.Second { c.Window = time.Second }
    return c
}
