package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// Router wires handlers to their routes and guards.
type Router struct {
	Tutors        *TutorHandler
	Sessions      *SessionHandler
	Earnings      *EarningsHandler
	Notifications *NotificationHandler
	Reviews       *ReviewHandler
	Wishlist      *WishlistHandler
	Admin         *AdminHandler
	Metrics       *MetricsHandler

	Tokens         middleware.TokenValidator
	Audit          middleware.AuditWriter
	BookingLimiter *middleware.RateLimiter
	Logger         *zap.Logger
	Location       *time.Location
}

// Register mounts probes at the engine root and the API under prefix.
func (r Router) Register(engine *gin.Engine, prefix string) {
	engine.GET("/health", r.Metrics.Health)
	engine.GET("/ready", r.Metrics.Ready)
	engine.GET("/metrics", r.Metrics.Prometheus)

	api := engine.Group(prefix)
	api.Use(middleware.WithResponseMeta(r.Location))

	tutors := api.Group("/tutors")
	tutors.GET("", r.Tutors.Directory)
	tutors.GET("/:id", r.Tutors.Get)
	tutors.GET("/:id/availability", r.Tutors.Availability)
	tutors.GET("/:id/booked", r.Tutors.BookedSlots)
	tutors.GET("/:id/slots", r.Tutors.Slots)
	tutors.GET("/:id/reviews", r.Reviews.ListByTutor)

	authed := api.Group("")
	authed.Use(middleware.JWT(r.Tokens))

	tutor := authed.Group("/tutor", middleware.RequireRoles(models.RoleTutor))
	tutor.GET("/profile", r.Tutors.Profile)
	tutor.PUT("/profile", r.Tutors.UpsertProfile)
	tutor.PUT("/availability", r.Tutors.UpdateAvailability)
	authed.GET("/earnings", middleware.RequireRoles(models.RoleTutor), r.Earnings.Summary)

	bookGuards := []gin.HandlerFunc{middleware.RequireRoles(models.RoleStudent)}
	if r.BookingLimiter != nil {
		bookGuards = append(bookGuards, r.BookingLimiter.Middleware())
	}
	sessions := authed.Group("/sessions")
	sessions.POST("", append(bookGuards, r.Sessions.Book)...)
	sessions.GET("", r.Sessions.List)
	sessions.GET("/:id", r.Sessions.Get)
	sessions.PUT("/:id/status", r.adminAudit(models.AuditActionSessionAdmin, "session"), r.Sessions.UpdateStatus)

	notifications := authed.Group("/notifications")
	notifications.GET("", r.Notifications.List)
	notifications.PATCH("/read-all", r.Notifications.MarkAllRead)
	notifications.PATCH("/:id/read", r.Notifications.MarkRead)
	notifications.DELETE("/:id", r.Notifications.Delete)

	student := authed.Group("", middleware.RequireRoles(models.RoleStudent))
	student.POST("/reviews", r.Reviews.Create)
	student.GET("/reviews/pending", r.Reviews.Pending)
	student.GET("/wishlist", r.Wishlist.List)
	student.POST("/wishlist", r.Wishlist.Add)
	student.DELETE("/wishlist/:tutorId", r.Wishlist.Remove)

	admin := authed.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/tutors/pending", r.Admin.PendingTutors)
	admin.GET("/tutors/stats", r.Admin.VerificationStats)
	admin.PATCH("/tutors/:id/verify", r.audit(models.AuditActionTutorVerify, "tutor"), r.Admin.VerifyTutor)
	admin.GET("/stats/sessions", r.Admin.SessionStats)
	admin.GET("/stats/platform", r.Admin.PlatformStats)
	admin.GET("/users", r.Admin.ListUsers)
	admin.PATCH("/users/:id/status", r.audit(models.AuditActionUserStatus, "user"), r.Admin.UpdateUserStatus)
	admin.GET("/metrics", r.Metrics.Snapshot)
}

func (r Router) audit(action, resource string) gin.HandlerFunc {
	if r.Audit == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.Audit(r.Audit, r.Logger, action, resource)
}

// adminAudit records the mutation only when an admin performs it.
func (r Router) adminAudit(action, resource string) gin.HandlerFunc {
	inner := r.audit(action, resource)
	return func(c *gin.Context) {
		if claims, ok := middleware.ClaimsFromContext(c); ok && claims.Role == models.RoleAdmin {
			inner(c)
			return
		}
		c.Next()
	}
}
