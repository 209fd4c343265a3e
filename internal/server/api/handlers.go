package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"olh/internal/server/push"
	"olh/internal/server/service"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services groups the workflow services the handlers delegate to.
type Services struct {
	Materials     *service.MaterialService
	Moderation    *service.ModerationService
	Requests      *service.RequestService
	Notifications *service.NotificationService
	Users         *service.UserService
	Push          *push.Dispatcher
}

// Handler contains the HTTP handlers for the OLH API.
type Handler struct {
	materials  *service.MaterialService
	moderation *service.ModerationService
	requests   *service.RequestService
	inbox      *service.NotificationService
	users      *service.UserService
	push       *push.Dispatcher
	health     HealthChecker
}

// NewHandler creates a new handler with the given service dependencies.
func NewHandler(svc Services, health HealthChecker) *Handler {
	return &Handler{
		materials:  svc.Materials,
		moderation: svc.Moderation,
		requests:   svc.Requests,
		inbox:      svc.Notifications,
		users:      svc.Users,
		push:       svc.Push,
		health:     health,
	}
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.health.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// HandleStats handles GET /api/admin/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.moderation.Stats(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicate), errors.Is(err, service.ErrAlreadyActed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	default:
		slog.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
