package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-seating/internal/model"
    "github.com/iliyamo/exam-seating/internal/repository"
)

// ExamReader lists and loads exams.
type ExamReader interface {
    GetByID(ctx context.Context, id uint64) (model.Exam, error)
    List(ctx context.Context, f repository.ExamFilter) ([]model.Exam, error)
}

// RosterReader reads who sits where.
type RosterReader interface {
    ListByExam(ctx context.Context, examID uint64) ([]model.BinRoster, error)
    BinsByExams(ctx context.Context, examIDs []uint64) (map[uint64][]model.Bin, error)
}

// HistoryReader reads the allocation audit trail.
type HistoryReader interface {
    ListByExam(ctx context.Context, examID uint64) ([]model.HistoryEntry, error)
}

// SeatingHandler serves the read endpoints for exams and their seating.
type SeatingHandler struct {
    Exams   ExamReader
    Rosters RosterReader
    History HistoryReader
}

func NewSeatingHandler(exams ExamReader, rosters RosterReader, history HistoryReader) *SeatingHandler {
    if exams == nil || rosters == nil || history == nil {
        panic("nil repository passed to NewSeatingHandler")
    }
    return &SeatingHandler{Exams: exams, Rosters: rosters, History: history}
}

type examListQuery struct {
    Program  string `query:"program"  validate:"omitempty,max=32"`
    Level    string `query:"level"    validate:"omitempty,max=32"`
    Course   string `query:"course"   validate:"omitempty,max=64"`
    Day      string `query:"day"      validate:"omitempty,max=16"`
    Period   string `query:"period"   validate:"omitempty,max=32"`
    Date     string `query:"date"     validate:"omitempty,max=32"`
    Type     string `query:"type"     validate:"omitempty,max=32"`
    Assigned string `query:"assigned" validate:"omitempty,oneof=true false 1 0"`
}

// ListExams handles GET /v1/exams.  Exams come in schedule order, each
// with the bins it currently occupies.
func (h *SeatingHandler) ListExams(c echo.Context) error {
    var q examListQuery
    if ok, err := bindAndValidate(c, &q); !ok {
        return err
    }
    f := repository.ExamFilter{
        Program: q.Program, Level: q.Level, CourseCode: q.Course, Day: q.Day,
        Period: q.Period, Date: q.Date, Type: q.Type,
    }
    if q.Assigned != "" {
        v, _ := strconv.ParseBool(q.Assigned)
        f.Assigned = &v
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    exams, err := h.Exams.List(ctx, f)
    if err != nil {
        return writeError(c, "list exams", err)
    }
    ids := make([]uint64, 0, len(exams))
    for _, e := range exams {
        ids = append(ids, e.ID)
    }
    bins, err := h.Rosters.BinsByExams(ctx, ids)
    if err != nil {
        return writeError(c, "list exams", err)
    }
    out := make([]model.ExamSeating, 0, len(exams))
    for _, e := range exams {
        b := bins[e.ID]
        if b == nil {
            b = []model.Bin{}
        }
        out = append(out, model.ExamSeating{Exam: e, Bins: b})
    }
    return c.JSON(http.StatusOK, echo.Map{"exams": out})
}

// GetSeating handles GET /v1/exams/:id/seating: the printable roster,
// seated students grouped per bin.
func (h *SeatingHandler) GetSeating(c echo.Context) error {
    examID, ok := parseExamID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exam id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    exam, err := h.Exams.GetByID(ctx, examID)
    if err != nil {
        return writeError(c, "get seating", err)
    }
    roster, err := h.Rosters.ListByExam(ctx, examID)
    if err != nil {
        return writeError(c, "get seating", err)
    }
    seated := 0
    for _, b := range roster {
        seated += len(b.Students)
    }
    return c.JSON(http.StatusOK, echo.Map{"exam": exam, "seated": seated, "bins": roster})
}

// GetHistory handles GET /v1/exams/:id/history.
func (h *SeatingHandler) GetHistory(c echo.Context) error {
    examID, ok := parseExamID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exam id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if _, err := h.Exams.GetByID(ctx, examID); err != nil {
        return writeError(c, "get history", err)
    }
    entries, err := h.History.ListByExam(ctx, examID)
    if err != nil {
        return writeError(c, "get history", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"exam_id": examID, "history": entries})
}
