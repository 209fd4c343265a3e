package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type registerBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type roleBody struct {
	Role string `json:"role"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(c echo.Context) error {
	var body registerBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.users.Register(c.Request().Context(), body.Username, body.Email, body.Password)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(c echo.Context) error {
	var body loginBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.users.Login(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// HandleMe handles GET /api/auth/me.
func (h *Handler) HandleMe(c echo.Context) error {
	user, err := h.users.Me(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// HandleProfile handles GET /api/users/profile.
func (h *Handler) HandleProfile(c echo.Context) error {
	profile, err := h.users.Profile(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// HandleMyMaterials handles GET /api/users/my-materials.
func (h *Handler) HandleMyMaterials(c echo.Context) error {
	materials, err := h.materials.Mine(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, materials)
}

// HandleListUsers handles GET /api/users/all.
func (h *Handler) HandleListUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// HandleUpdateRole handles PATCH /api/users/:id/role.
func (h *Handler) HandleUpdateRole(c echo.Context) error {
	var body roleBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := h.users.UpdateRole(c.Request().Context(), principal(c), c.Param("id"), body.Role)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// HandleDeleteUser handles DELETE /api/users/:id.
func (h *Handler) HandleDeleteUser(c echo.Context) error {
	if err := h.users.Delete(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "user deleted")
}
