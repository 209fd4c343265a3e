package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type subscribeBody struct {
	Token string `json:"token"`
}

// HandleListNotifications handles GET /api/notifications.
func (h *Handler) HandleListNotifications(c echo.Context) error {
	notifications, err := h.inbox.List(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

// HandleUnreadCount handles GET /api/notifications/unread-count.
func (h *Handler) HandleUnreadCount(c echo.Context) error {
	count, err := h.inbox.UnreadCount(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// HandleMarkRead handles PATCH /api/notifications/:id/read.
func (h *Handler) HandleMarkRead(c echo.Context) error {
	if err := h.inbox.MarkRead(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "notification marked as read")
}

// HandleMarkAllRead handles PATCH /api/notifications/mark-all-read.
func (h *Handler) HandleMarkAllRead(c echo.Context) error {
	if err := h.inbox.MarkAllRead(c.Request().Context(), principal(c)); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "all notifications marked as read")
}

// HandleSubscribe handles POST /api/push/subscribe.
// Stores the caller's FCM registration token, replacing any previous one.
func (h *Handler) HandleSubscribe(c echo.Context) error {
	var body subscribeBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		return badRequest(c, "token is required")
	}

	sub, err := h.push.Subscribe(c.Request().Context(), principal(c).UserID, token)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, sub)
}

// HandleUnsubscribe handles DELETE /api/push/unsubscribe.
func (h *Handler) HandleUnsubscribe(c echo.Context) error {
	if err := h.push.Unsubscribe(c.Request().Context(), principal(c).UserID); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "unsubscribed")
}
