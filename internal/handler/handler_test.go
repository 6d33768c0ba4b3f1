package handler_test

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/exam-seating/internal/allocator"
    "github.com/iliyamo/exam-seating/internal/config"
    "github.com/iliyamo/exam-seating/internal/database"
    "github.com/iliyamo/exam-seating/internal/handler"
    "github.com/iliyamo/exam-seating/internal/lock"
    "github.com/iliyamo/exam-seating/internal/middleware"
    "github.com/iliyamo/exam-seating/internal/model"
    "github.com/iliyamo/exam-seating/internal/repository"
    "github.com/iliyamo/exam-seating/internal/router"
    "github.com/iliyamo/exam-seating/internal/service"
    "github.com/iliyamo/exam-seating/internal/utils"
)

const secret = "test-secret"

type app struct {
    e     *echo.Echo
    admin string
    staff string
}

func newApp(t *testing.T) *app {
    t.Helper()
    d := database.SQLite
    db, err := database.Open(d, database.SQLiteDSN(""))
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    require.NoError(t, database.CreateSchema(db, d))

    ctx := context.Background()
    bins := repository.NewBinRepo(db, d)
    _, err = bins.CreateRoom(ctx, model.Room{ID: 1, Name: "Hall A", Floor: "1"})
    require.NoError(t, err)
    for _, b := range []model.Bin{
        {ID: 1, Name: "A-1", RoomID: 1, Program: "CS", Level: "1", Capacity: 2},
        {ID: 2, Name: "A-2", RoomID: 1, Program: "CS", Level: "1", Capacity: 2},
    } {
        _, err = bins.Create(ctx, b)
        require.NoError(t, err)
    }
    exams := repository.NewExamRepo(db, d)
    _, err = exams.Create(ctx, model.Exam{ID: 1, Program: "CS", Level: "1", CourseCode: "CS101", Day: "Sunday", Period: "8:00-10:00"})
    require.NoError(t, err)
    _, err = exams.Create(ctx, model.Exam{ID: 2, Program: "CS", Level: "1", CourseCode: "CS999", Day: "Saturday", Period: "8:00-10:00"})
    require.NoError(t, err)
    regs := repository.NewCandidateRepo(db, d)
    for _, s := range []string{"3", "1", "2"} {
        require.NoError(t, regs.Create(ctx, model.Candidate{StudentID: s, StudentName: "S" + s, Program: "CS", Course: "CS101", Level: "1"}))
    }
    users := repository.NewUserRepo(db, d)
    _, err = users.Create(ctx, "admin@example.com", "admin-pass", model.RoleAdmin, 4)
    require.NoError(t, err)
    staffID, err := users.Create(ctx, "staff@example.com", "staff-pass", model.RoleStaff, 4)
    require.NoError(t, err)

    svc := service.NewSeatingService(allocator.New(repository.NewAllocationStore(db, d)), lock.NewLocalLocker())
    cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, BcryptCost: 4}

    e := echo.New()
    e.Validator = handler.NewRequestValidator()
    e.Use(middleware.RequestID())
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), secret)
    cache := middleware.NewExamCache(config.CacheConfig{}, nil)
    router.RegisterSeating(e,
        handler.NewSeatingHandler(exams, repository.NewRosterRepo(db, d), repository.NewHistoryRepo(db, d)),
        handler.NewAllocationHandler(svc), secret, cache.Middleware(),
        middleware.NewRateLimit(config.RateLimitConfig{}, nil))

    a := &app{e: e}
    a.admin = a.login(t, "admin@example.com", "admin-pass")
    staff, err := utils.NewAccessToken(secret, staffID, model.RoleStaff, 5)
    require.NoError(t, err)
    a.staff = staff.Token
    return a
}

func (a *app) do(method, path, token, body string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    return rec
}

func (a *app) login(t *testing.T, email, password string) string {
    t.Helper()
    rec := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var resp struct {
        Access struct {
            Token string `json:"token"`
        } `json:"access"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    return resp.Access.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    var m map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
    return m
}

func TestHealth(t *testing.T) {
    a := newApp(t)
    rec := a.do(http.MethodGet, "/healthz", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())
}

func TestLoginAndMe(t *testing.T) {
    a := newApp(t)

    rec := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"admin@example.com","password":"wrong"}`)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"not-an-email","password":"x"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.do(http.MethodGet, "/v1/me", a.admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    m := decode(t, rec)
    assert.Equal(t, "admin@example.com", m["email"])
    assert.Equal(t, "ADMIN", m["role"])
}

func TestAllocationLifecycle(t *testing.T) {
    a := newApp(t)

    rec := a.do(http.MethodPost, "/v1/exams/1/assign", a.admin, "")
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    m := decode(t, rec)
    assert.EqualValues(t, 3, m["assigned"])
    assert.EqualValues(t, 3, m["total"])

    // a second full run would double-seat
    rec = a.do(http.MethodPost, "/v1/exams/1/assign", a.admin, "")
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

    rec = a.do(http.MethodPost, "/v1/exams/1/reassign", a.admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "No new students found", decode(t, rec)["message"])

    rec = a.do(http.MethodGet, "/v1/exams/1/seating", a.staff, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var seating struct {
        Exam   model.Exam        `json:"exam"`
        Seated int               `json:"seated"`
        Bins   []model.BinRoster `json:"bins"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seating))
    assert.True(t, seating.Exam.Assigned)
    assert.Equal(t, 3, seating.Seated)
    require.Len(t, seating.Bins, 2)
    assert.Equal(t, "1", seating.Bins[0].Students[0].StudentID)
    assert.Equal(t, "S1", seating.Bins[0].Students[0].StudentName)

    rec = a.do(http.MethodGet, "/v1/exams?assigned=true", a.staff, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var list struct {
        Exams []model.ExamSeating `json:"exams"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
    require.Len(t, list.Exams, 1)
    assert.Equal(t, uint64(1), list.Exams[0].ID)
    assert.Len(t, list.Exams[0].Bins, 2)

    rec = a.do(http.MethodPost, "/v1/exams/1/unassign", a.admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.EqualValues(t, 3, decode(t, rec)["unassigned"])

    rec = a.do(http.MethodPost, "/v1/exams/1/unassign", a.admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.EqualValues(t, 0, decode(t, rec)["unassigned"])

    rec = a.do(http.MethodGet, "/v1/exams/1/history", a.admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var hist struct {
        History []model.HistoryEntry `json:"history"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
    require.Len(t, hist.History, 6)
    assert.Equal(t, model.ActionAssigned, hist.History[0].Action)
    assert.Equal(t, model.ActionUnassigned, hist.History[5].Action)
}

func TestAllocationErrors(t *testing.T) {
    a := newApp(t)

    assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/v1/exams/99/assign", a.admin, "").Code)
    assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/exams/abc/assign", a.admin, "").Code)
    // exam 2 has no registered students
    assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/v1/exams/2/assign", a.admin, "").Code)
    assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/exams/99/seating", a.staff, "").Code)
}

func TestAllocationRequiresAdmin(t *testing.T) {
    a := newApp(t)
    assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/v1/exams/1/assign", "", "").Code)
    assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/exams/1/assign", a.staff, "").Code)
}

func TestListExamsScheduleOrderAndValidation(t *testing.T) {
    a := newApp(t)

    rec := a.do(http.MethodGet, "/v1/exams", a.staff, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var list struct {
        Exams []model.ExamSeating `json:"exams"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
    require.Len(t, list.Exams, 2)
    assert.Equal(t, uint64(2), list.Exams[0].ID) // Saturday first
    assert.NotNil(t, list.Exams[0].Bins)

    assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/exams?assigned=maybe", a.staff, "").Code)
}
