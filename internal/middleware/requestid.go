package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// CtxRequestID is the context key holding the request id.
const CtxRequestID = "request_id"

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID when it is a UUID and
// otherwise assigns a fresh one.  The id is echoed on the response and
// stored under CtxRequestID so it can be copied into allocation events.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(HeaderRequestID)
            if _, err := uuid.Parse(id); err != nil {
                id = uuid.NewString()
            }
            c.Set(CtxRequestID, id)
            c.Response().Header().Set(HeaderRequestID, id)
            return next(c)
        }
    }
}
