package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/api/middleware"
	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/service"
)

const permissionDenied = "denied"

type DeviceHandler struct {
	sessions  *service.Sessions
	logger    zerolog.Logger
	heartbeat time.Duration
}

func NewDeviceHandler(sessions *service.Sessions, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{sessions: sessions, logger: logger}
}

// registerDeviceRequest is the browser's answer to the permission request:
// a messaging token when granted, or permission "denied".
type registerDeviceRequest struct {
	Token      string `json:"token"      validate:"required_without=Permission,max=4096"`
	Permission string `json:"permission" validate:"omitempty,oneof=granted denied"`
}

// RequestToken implements ports.MessagingTokens with the posted grant.
func (r registerDeviceRequest) RequestToken(context.Context) (string, error) {
	if r.Permission == permissionDenied {
		return "", domain.ErrPermissionDenied
	}
	if r.Token == "" {
		return "", &domain.ValidationError{Fields: map[string]string{"token": "token is required"}}
	}
	return r.Token, nil
}

type promptResponse struct {
	ShowPrompt bool `json:"show_prompt"`
}

// Prompt tells whether this device should ask for notification permission.
//
// @Summary      Notification prompt
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        X-Device-ID  header  string  false  "Device id when no deviceId cookie is sent"
// @Success      200  {object}  promptResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /v1/devices/current [get]
func (h *DeviceHandler) Prompt(c echo.Context) error {
	show, err := h.sessions.For(middleware.Session(c), requestDevice{c}).NotificationPrompt(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, promptResponse{ShowPrompt: show})
}

// LivePrompt streams the notification prompt as server-sent "prompt" events.
//
// @Summary      Live notification prompt
// @Tags         devices
// @Produce      text/event-stream
// @Security     BearerAuth
// @Router       /v1/devices/current/live [get]
func (h *DeviceHandler) LivePrompt(c echo.Context) error {
	ch := h.sessions.For(middleware.Session(c), requestDevice{c}).WatchNotificationPrompt(c.Request().Context())
	return streamEvents(c, "prompt", ch, h.heartbeat)
}

// Register stores the messaging token of this device.
//
// @Summary      Register device for notifications
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      registerDeviceRequest  true  "Permission result"
// @Success      200   {object}  noticeResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /v1/devices/current/messaging [post]
func (h *DeviceHandler) Register(c echo.Context) error {
	var req registerDeviceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	notice, err := h.sessions.For(middleware.Session(c), requestDevice{c}).RegisterDevice(c.Request().Context(), req)
	if err != nil {
		code, resp := noticeError(err, notice)
		return c.JSON(code, resp)
	}
	return c.JSON(http.StatusOK, noticeResponse{Notice: notice})
}
