package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/core/domain"
)

// ProfileReader reads stored profiles.
type ProfileReader interface {
	ProfileOf(ctx context.Context, uid string) (*domain.Profile, error)
}

// RequireArtist admits identities holding the artist role claim or whose
// stored profile is flagged as artist. The flag is set as soon as the
// become-artist function commits, before any new token carries the claim.
func RequireArtist(profiles ProfileReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if id == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			if id.HasRole(domain.RoleArtist) {
				return next(c)
			}

			prof, err := profiles.ProfileOf(c.Request().Context(), id.UID)
			switch {
			case errors.Is(err, domain.ErrDocumentNotFound):
			case err != nil:
				return err
			case prof.IsArtist:
				return next(c)
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}
