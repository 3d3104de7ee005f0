package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/middleware"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
)

// RouterConfig gathers what RegisterRoutes mounts.
type RouterConfig struct {
	Prefix         string
	RequestTimeout time.Duration
	Tokens         middleware.TokenValidator
	Audit          middleware.AuditWriter
	Metrics        *service.MetricsService
	Logger         *zap.Logger

	Auth     *AuthHandler
	Payload  *PayloadHandler
	Courses  *CourseHandler
	Sessions *SessionHandler
	Stats    *StatsHandler
	Observe  *MetricsHandler
}

// RegisterRoutes mounts the public probes and the authenticated API under cfg.Prefix.
func RegisterRoutes(r *gin.Engine, cfg RouterConfig) {
	r.GET("/health", cfg.Observe.Health)
	r.GET("/ready", cfg.Observe.Ready)
	r.GET("/metrics", cfg.Observe.Prometheus)

	api := r.Group(cfg.Prefix)
	api.Use(middleware.Metrics(cfg.Metrics), middleware.RequestTimeout(cfg.RequestTimeout), middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", cfg.Auth.Login)
	auth.POST("/refresh", cfg.Auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(cfg.Tokens))
	secured.POST("/auth/logout", cfg.Auth.Logout)
	secured.POST("/auth/change-password", cfg.Auth.ChangePassword)
	secured.GET("/auth/me", cfg.Auth.Me)

	student := secured.Group("")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	student.GET("/payload", cfg.Payload.Issue)
	student.GET("/payload/qr.png", cfg.Payload.QRCode)
	student.GET("/me/attendance", cfg.Sessions.MyAttendance)

	lecturer := secured.Group("")
	lecturer.Use(middleware.RequireRoles(models.RoleLecturer))
	lecturer.GET("/metrics/summary", cfg.Observe.Summary)

	lecturer.POST("/courses", middleware.Audit(cfg.Audit, cfg.Logger, models.AuditActionCourseCreate, "course"), cfg.Courses.Create)
	lecturer.GET("/courses", cfg.Courses.List)
	lecturer.POST("/courses/:id/students", cfg.Courses.Enroll)
	lecturer.GET("/courses/:id/students", cfg.Courses.Students)

	lecturer.POST("/sessions", middleware.Audit(cfg.Audit, cfg.Logger, models.AuditActionSessionCreate, "attendance_session"), cfg.Sessions.Create)
	lecturer.GET("/sessions", cfg.Sessions.List)
	lecturer.GET("/sessions/:id", cfg.Sessions.Get)
	lecturer.POST("/sessions/:id/scans", cfg.Sessions.Scan)
	lecturer.POST("/sessions/:id/complete", middleware.Audit(cfg.Audit, cfg.Logger, models.AuditActionSessionComplete, "attendance_session"), cfg.Sessions.Complete)
	lecturer.DELETE("/sessions/:id", middleware.Audit(cfg.Audit, cfg.Logger, models.AuditActionSessionDelete, "attendance_session"), cfg.Sessions.Delete)

	lecturer.GET("/statistics", cfg.Stats.Get)
	lecturer.GET("/statistics/export", cfg.Stats.Export)
}
