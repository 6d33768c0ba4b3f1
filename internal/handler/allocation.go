package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-seating/internal/allocator"
    "github.com/iliyamo/exam-seating/internal/middleware"
    "github.com/iliyamo/exam-seating/internal/service"
)

// Allocations is the write side used by AllocationHandler;
// *service.SeatingService implements it.
type Allocations interface {
    Assign(ctx context.Context, examID uint64, actor service.Actor) (allocator.AssignResult, error)
    Reassign(ctx context.Context, examID uint64, actor service.Actor) (allocator.ReassignResult, error)
    Unassign(ctx context.Context, examID uint64, actor service.Actor) (allocator.UnassignResult, error)
}

// AllocationHandler exposes the three allocation runs over HTTP.
type AllocationHandler struct {
    Svc     Allocations
    Timeout time.Duration
}

// NewAllocationHandler constructs the handler and panics on a nil service.
func NewAllocationHandler(svc Allocations) *AllocationHandler {
    if svc == nil {
        panic("nil service passed to NewAllocationHandler")
    }
    return &AllocationHandler{Svc: svc, Timeout: 30 * time.Second}
}

func (h *AllocationHandler) actor(c echo.Context) service.Actor {
    return service.Actor{UserID: middleware.UserID(c), RequestID: middleware.RequestIDFrom(c)}
}

// Assign handles POST /v1/exams/:id/assign.
func (h *AllocationHandler) Assign(c echo.Context) error {
    examID, ok := parseExamID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exam id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
    defer cancel()

    res, err := h.Svc.Assign(ctx, examID, h.actor(c))
    if err != nil {
        return writeError(c, "assign", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":  "Students assigned successfully",
        "exam_id":  examID,
        "assigned": res.Seated,
        "total":    res.Total,
    })
}

// Reassign handles POST /v1/exams/:id/reassign.
func (h *AllocationHandler) Reassign(c echo.Context) error {
    examID, ok := parseExamID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exam id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
    defer cancel()

    res, err := h.Svc.Reassign(ctx, examID, h.actor(c))
    if err != nil {
        return writeError(c, "reassign", err)
    }
    if res.NewTotal == 0 {
        return c.JSON(http.StatusOK, echo.Map{"message": "No new students found", "exam_id": examID, "new_assigned": 0})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":          "New students assigned",
        "exam_id":          examID,
        "new_assigned":     res.NewlySeated,
        "new_total":        res.NewTotal,
        "started_from_bin": res.StartedFromBin,
    })
}

// Unassign handles POST /v1/exams/:id/unassign.
func (h *AllocationHandler) Unassign(c echo.Context) error {
    examID, ok := parseExamID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exam id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
    defer cancel()

    res, err := h.Svc.Unassign(ctx, examID, h.actor(c))
    if err != nil {
        return writeError(c, "unassign", err)
    }
    if res.Removed == 0 {
        return c.JSON(http.StatusOK, echo.Map{"message": "No seated students to remove", "exam_id": examID, "unassigned": 0})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":    "Students unassigned successfully",
        "exam_id":    examID,
        "unassigned": res.Removed,
    })
}
