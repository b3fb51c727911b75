package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
)

// BlobHandler serves the download URLs handed out by the blob store.
type BlobHandler struct {
	blobs ports.BlobStore
}

func NewBlobHandler(blobs ports.BlobStore) *BlobHandler {
	return &BlobHandler{blobs: blobs}
}

// Download streams a stored file.
//
// @Summary      Download a file
// @Tags         blobs
// @Produce      octet-stream
// @Param        path  path  string  true  "Blob path"
// @Success      200
// @Failure      404  {object}  ErrorResponse
// @Router       /blobs/{path} [get]
func (h *BlobHandler) Download(c echo.Context) error {
	path, err := blobPath(c.Param("*"))
	if err != nil {
		return err
	}
	body, contentType, err := h.blobs.Open(c.Request().Context(), path)
	if err != nil {
		return err
	}
	defer body.Close()

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return c.Stream(http.StatusOK, contentType, body)
}

func blobPath(raw string) (string, error) {
	segments := strings.Split(raw, "/")
	for i, s := range segments {
		v, err := url.PathUnescape(s)
		if err != nil || v == "" {
			return "", domain.ErrInvalidPath
		}
		segments[i] = v
	}
	return strings.Join(segments, "/"), nil
}
