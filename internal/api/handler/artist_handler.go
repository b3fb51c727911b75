package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
	"github.com/atelier/profile-portal/internal/core/service"
)

type ArtistHandler struct {
	sessions *service.Sessions
	blobs    ports.BlobStore
}

func NewArtistHandler(sessions *service.Sessions, blobs ports.BlobStore) *ArtistHandler {
	return &ArtistHandler{sessions: sessions, blobs: blobs}
}

// Profile returns the artist profile with its avatar.
//
// @Summary      Artist profile
// @Tags         artist
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      403  {object}  map[string]string
// @Router       /v1/artist [get]
func (h *ArtistHandler) Profile(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	prof, err := h.sessions.ProfileOf(ctx, id.UID)
	if err != nil {
		return err
	}
	resp := profileResponse{Profile: prof}
	url, err := h.blobs.DownloadURL(ctx, domain.ArtistAvatarPath(id.UID))
	switch {
	case err == nil:
		resp.AvatarURL = url
	case !errors.Is(err, domain.ErrBlobNotFound):
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
