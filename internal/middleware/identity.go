package middleware

// identity.go holds the accessors for identity values the middleware
// chain stores in the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c echo.Context) uint64 {
    id, _ := c.Get(CtxUserID).(uint64)
    return id
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c echo.Context) string {
    id, _ := c.Get(CtxRequestID).(string)
    return id
}

// subject identifies the caller for rate limiting: the user id when
// authenticated, the client ip otherwise.
func subject(c echo.Context) string {
    if id := UserID(c); id != 0 {
        return "u:" + strconv.FormatUint(id, 10)
    }
    return "ip:" + c.RealIP()
}
