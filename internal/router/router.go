package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-seating/internal/handler"
    "github.com/iliyamo/exam-seating/internal/middleware"
    "github.com/iliyamo/exam-seating/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers login under /v1/auth and the authenticated
// /v1/me endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    e.POST("/v1/auth/login", a.Login)

    auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
    auth.GET("/me", a.Me)
}

// RegisterSeating registers the exam seating endpoints.  Reads are open
// to ADMIN and STAFF and go through the response cache; allocation runs
// are ADMIN only and rate limited.
func RegisterSeating(e *echo.Echo, s *handler.SeatingHandler, a *handler.AllocationHandler,
    jwtSecret string, cache echo.MiddlewareFunc, limit echo.MiddlewareFunc) {

    read := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleStaff), cache)
    read.GET("/exams", s.ListExams)
    read.GET("/exams/:id/seating", s.GetSeating)
    read.GET("/exams/:id/history", s.GetHistory)

    write := e.Group("/v1/exams", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin), limit)
    write.POST("/:id/assign", a.Assign)
    write.POST("/:id/reassign", a.Reassign)
    write.POST("/:id/unassign", a.Unassign)
}
