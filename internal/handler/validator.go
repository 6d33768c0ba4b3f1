package handler

import (
    "net/http"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
)

// RequestValidator plugs go-playground/validator into echo so handlers
// can call c.Validate on bound request structs.
type RequestValidator struct {
    v *validator.Validate
}

// NewRequestValidator returns a validator for `validate` struct tags.
func NewRequestValidator() *RequestValidator {
    return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.  Failures become 400 errors that
// name the first offending field.
func (rv *RequestValidator) Validate(i interface{}) error {
    if err := rv.v.Struct(i); err != nil {
        if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
            fe := ves[0]
            return echo.NewHTTPError(http.StatusBadRequest, "invalid "+fe.Field()+": "+fe.Tag())
        }
        return echo.NewHTTPError(http.StatusBadRequest, err.Error())
    }
    return nil
}

// bindAndValidate binds the request into req and validates it, writing
// a 400 response on failure.  ok is false when a response was written.
func bindAndValidate(c echo.Context, req interface{}) (ok bool, err error) {
    if err := c.Bind(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
    }
    if err := c.Validate(req); err != nil {
        msg := "invalid request"
        if he, ok := err.(*echo.HTTPError); ok {
            if s, ok := he.Message.(string); ok {
                msg = s
            }
        }
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    return true, nil
}
