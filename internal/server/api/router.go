package api

import (
	"fmt"

	"olh/internal/server/auth"
	"olh/internal/server/config"
	"olh/internal/server/metrics"
	"olh/internal/server/ratelimit"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// multipartOverheadKB is allowed on top of MaxFileSize for form fields and boundaries.
const multipartOverheadKB = 1024

// SetupRouter creates and configures the echo router with all routes and middleware.
// limiter guards the upload and credential endpoints.
func SetupRouter(handler *Handler, tokens *auth.TokenIssuer, limiter ratelimit.Limiter, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", cfg.MaxFileSize/1024+multipartOverheadKB)))
	e.Use(RequestLogger())

	authed := RequireAuth(tokens)
	moderator := RequireModerator()
	limited := ratelimit.Middleware(limiter)

	// Health & metrics
	e.GET("/health", handler.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Auth
	a := e.Group("/api/auth")
	a.POST("/register", handler.HandleRegister, limited)
	a.POST("/login", handler.HandleLogin, limited)
	a.GET("/me", handler.HandleMe, authed)

	// Materials
	m := e.Group("/api/materials")
	m.GET("", handler.HandleListMaterials)
	m.POST("/upload", handler.HandleUpload, limited, authed)
	m.GET("/favorites/my", handler.HandleFavorites, authed)
	m.GET("/pending/all", handler.HandlePending, authed, moderator)
	m.GET("/reports/all", handler.HandleReported, authed, moderator)
	m.GET("/:id", handler.HandleGetMaterial, OptionalAuth(tokens))
	m.GET("/:id/download", handler.HandleDownload)
	m.PATCH("/:id/view", handler.HandleView)
	m.POST("/:id/vote", handler.HandleVote, authed)
	m.POST("/:id/favorite", handler.HandleToggleFavorite, authed)
	m.POST("/:id/report", handler.HandleReport, authed)
	m.PATCH("/:id/approve", handler.HandleApprove, authed, moderator)
	m.PATCH("/:id/reject", handler.HandleReject, authed, moderator)
	m.PATCH("/:id/ignore-reports", handler.HandleIgnoreReports, authed, moderator)
	m.DELETE("/:id", handler.HandleDeleteMaterial, authed)

	// Requests
	r := e.Group("/api/requests")
	r.GET("", handler.HandleListRequests)
	r.POST("", handler.HandleCreateRequest, authed)
	r.GET("/my", handler.HandleMyRequests, authed)
	r.PATCH("/:id/fulfill", handler.HandleFulfillRequest, authed)
	r.PATCH("/:id/close", handler.HandleCloseRequest, authed)
	r.DELETE("/:id", handler.HandleDeleteRequest, authed)

	// Inbox
	n := e.Group("/api/notifications", authed)
	n.GET("", handler.HandleListNotifications)
	n.GET("/unread-count", handler.HandleUnreadCount)
	n.PATCH("/mark-all-read", handler.HandleMarkAllRead)
	n.PATCH("/:id/read", handler.HandleMarkRead)

	// Push
	p := e.Group("/api/push", authed)
	p.POST("/subscribe", handler.HandleSubscribe)
	p.DELETE("/unsubscribe", handler.HandleUnsubscribe)

	// Users
	u := e.Group("/api/users", authed)
	u.GET("/profile", handler.HandleProfile)
	u.GET("/my-materials", handler.HandleMyMaterials)
	u.GET("/all", handler.HandleListUsers, moderator)
	u.PATCH("/:id/role", handler.HandleUpdateRole, moderator)
	u.DELETE("/:id", handler.HandleDeleteUser, moderator)

	// Admin
	e.GET("/api/admin/stats", handler.HandleStats, authed, moderator)

	return e
}
