package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/api/metrics"
	"github.com/atelier/profile-portal/internal/core/guard"
)

// AdminGuard evaluates the admin allowlist on every request of the group.
// Anonymous visitors are sent to sign in; everyone else outside the list gets
// the same bare 403.
func AdminGuard(g *guard.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := g.CanEnter(c.Request().Context(), Session(c))
			metrics.GuardDecisionsTotal.WithLabelValues(res.Decision.String()).Inc()

			switch res.Decision {
			case guard.Allow:
				return next(c)
			case guard.RedirectSignIn:
				return c.Redirect(http.StatusFound, res.Redirect)
			default:
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
		}
	}
}
