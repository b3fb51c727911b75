package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/core/service"
)

// AdminHandler serves the admin area. Every route is behind the admin guard.
type AdminHandler struct {
	sessions *service.Sessions
}

func NewAdminHandler(sessions *service.Sessions) *AdminHandler {
	return &AdminHandler{sessions: sessions}
}

type adminSummary struct {
	UID     string `json:"uid"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// Home greets the admin.
//
// @Summary      Admin area
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  adminSummary
// @Failure      302
// @Failure      403  {object}  map[string]string
// @Router       /admin [get]
func (h *AdminHandler) Home(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adminSummary{UID: id.UID, Name: id.DisplayName, Message: "Welcome to the admin area"})
}

// Profile looks up any user's profile.
//
// @Summary      Look up a profile
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        uid  path      string  true  "User id"
// @Success      200  {object}  domain.Profile
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/profiles/{uid} [get]
func (h *AdminHandler) Profile(c echo.Context) error {
	prof, err := h.sessions.ProfileOf(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prof)
}
