package handler

import (
    "errors"
    "log"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-seating/internal/allocator"
    "github.com/iliyamo/exam-seating/internal/repository"
)

// parseExamID reads the :id path parameter as a positive integer.
func parseExamID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// writeError maps domain errors onto HTTP statuses.  Unclassified
// errors are logged and reported as 500 without detail.
func writeError(c echo.Context, op string, err error) error {
    switch {
    case errors.Is(err, allocator.ErrNotFound), errors.Is(err, repository.ErrExamNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "exam not found"})
    case errors.Is(err, allocator.ErrInvalidState):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    case errors.Is(err, allocator.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "allocation in progress for this exam, retry later"})
    }
    log.Printf("handler: %s failed: %v", op, err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": op + " failed"})
}
