package config

import "time"

// CacheConfig defines settings for the response cache middleware on
// the seating read endpoints.  When Enabled is false or no Redis client
// is configured, caching is disabled.  Entries are namespaced under
// Prefix and dropped per exam whenever an allocation run commits, so
// TTL only bounds how long an idle entry lingers.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if c.TTL <= 0 { c.TTL = time.Minute }
    return c
}
