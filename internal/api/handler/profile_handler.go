package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/api/middleware"
	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/service"
)

type ProfileHandler struct {
	sessions  *service.Sessions
	logger    zerolog.Logger
	heartbeat time.Duration
}

func NewProfileHandler(sessions *service.Sessions, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, logger: logger}
}

func (h *ProfileHandler) session(c echo.Context) *service.ProfileSession {
	return h.sessions.For(middleware.Session(c), requestDevice{c})
}

type profileResponse struct {
	Profile   *domain.Profile `json:"profile"`
	AvatarURL string          `json:"avatar_url,omitempty"`
}

type saveProfileRequest struct {
	Name string `json:"name" form:"name"`
}

type noticeResponse struct {
	Notice domain.Notice `json:"notice"`
}

// Get returns the signed-in user's profile.
//
// @Summary      Current profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	s := h.session(c)
	ctx := c.Request().Context()

	prof, err := s.Profile(ctx)
	if err != nil {
		return err
	}
	resp := profileResponse{Profile: prof}
	url, err := s.AvatarURL(ctx)
	switch {
	case err == nil:
		resp.AvatarURL = url
	case !errors.Is(err, domain.ErrBlobNotFound):
		h.logger.Warn().Err(err).Str("uid", prof.UID).Msg("avatar url unavailable")
	}
	return c.JSON(http.StatusOK, resp)
}

// Save updates the profile name and, for multipart requests, the avatar.
//
// @Summary      Save profile
// @Tags         profile
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        name    formData  string  true   "Display name"
// @Param        avatar  formData  file    false  "Avatar image"
// @Success      200  {object}  noticeResponse
// @Failure      422  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /v1/profile [put]
func (h *ProfileHandler) Save(c echo.Context) error {
	var req saveProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	in := service.SaveProfileInput{Name: req.Name}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("avatar")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid avatar upload"})
		case fh.Size > domain.MaxAvatarBytes:
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "avatar too large"})
		default:
			f, err := fh.Open()
			if err != nil {
				return err
			}
			defer f.Close()
			ct := fh.Header.Get(echo.HeaderContentType)
			if ct == "" {
				ct = "application/octet-stream"
			}
			in.Avatar = &service.Avatar{Body: f, ContentType: ct}
		}
	}

	notice, err := h.session(c).SaveProfile(c.Request().Context(), in)
	if err != nil {
		code, resp := noticeError(err, notice)
		return c.JSON(code, resp)
	}
	return c.JSON(http.StatusOK, noticeResponse{Notice: notice})
}

// Live streams the profile as server-sent "profile" events.
//
// @Summary      Live profile
// @Tags         profile
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  service.ProfileView
// @Router       /v1/profile/live [get]
func (h *ProfileHandler) Live(c echo.Context) error {
	views := h.session(c).WatchProfile(c.Request().Context())
	return streamEvents(c, "profile", views, h.heartbeat)
}
