package api

import (
	"net/http"

	"olh/internal/server/service"

	"github.com/labstack/echo/v4"
)

type requestBody struct {
	Subject        string `json:"subject"`
	Description    string `json:"description"`
	MaterialType   string `json:"materialType"`
	RegulationYear string `json:"regulationYear"`
}

type fulfillBody struct {
	MaterialID string `json:"materialId"`
}

// HandleCreateRequest handles POST /api/requests.
func (h *Handler) HandleCreateRequest(c echo.Context) error {
	var body requestBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := h.requests.Create(c.Request().Context(), principal(c), service.RequestInput{
		Subject:        body.Subject,
		Description:    body.Description,
		MaterialType:   body.MaterialType,
		RegulationYear: body.RegulationYear,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, req)
}

// HandleListRequests handles GET /api/requests. Only open requests are listed.
func (h *Handler) HandleListRequests(c echo.Context) error {
	requests, err := h.requests.ListOpen(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, requests)
}

// HandleMyRequests handles GET /api/requests/my.
func (h *Handler) HandleMyRequests(c echo.Context) error {
	requests, err := h.requests.Mine(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, requests)
}

// HandleFulfillRequest handles PATCH /api/requests/:id/fulfill.
func (h *Handler) HandleFulfillRequest(c echo.Context) error {
	var body fulfillBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := h.requests.Fulfill(c.Request().Context(), principal(c), c.Param("id"), body.MaterialID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// HandleCloseRequest handles PATCH /api/requests/:id/close.
func (h *Handler) HandleCloseRequest(c echo.Context) error {
	req, err := h.requests.Close(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// HandleDeleteRequest handles DELETE /api/requests/:id.
func (h *Handler) HandleDeleteRequest(c echo.Context) error {
	if err := h.requests.Delete(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "request deleted")
}
