package middleware

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/exam-seating/internal/config"
)

// fixedWindow increments the counter of the current window and sets
// its expiry on first use.  Returns {count, ttl_ms}.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return { n, redis.call('PTTL', KEYS[1]) }
`)

// NewRateLimit limits each caller to cfg.Limit requests per cfg.Window
// on the routes it wraps.  Keys combine the caller and the route
// template, so assigning two different exams shares one budget.
// Redis errors let the request through.
func NewRateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            now := time.Now()
            key := rateKey(cfg, c, now)

            ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
            vals, err := fixedWindow.Run(ctx, rdb, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
            cancel()
            if err != nil || len(vals) != 2 {
                c.Logger().Warnf("ratelimit: redis unavailable for key=%s: %v", key, err)
                return next(c)
            }
            count, ttlMs := vals[0], vals[1]

            remaining := int64(cfg.Limit) - count
            if remaining < 0 { remaining = 0 }
            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if count > int64(cfg.Limit) {
                secs := retryAfter(ttlMs)
                h.Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

// rateKey is prefix:subject:route:window-start.
func rateKey(cfg config.RateLimitConfig, c echo.Context, now time.Time) string {
    window := now.UnixMilli() / cfg.Window.Milliseconds()
    return cfg.Prefix + ":" + subject(c) + ":" + c.Request().Method + " " + c.Path() + ":" + strconv.FormatInt(window, 10)
}

// retryAfter converts a remaining ttl in ms into whole seconds, at
// least one.
func retryAfter(ttlMs int64) int {
    if ttlMs <= 0 {
        return 1
    }
    return int((ttlMs + 999) / 1000)
}
