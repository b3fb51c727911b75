package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SignIn is where anonymous visitors of the admin area are redirected.
//
// @Summary      Sign-in landing
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /signin [get]
func SignIn(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Sign in with your identity provider and send the token as a Bearer authorization header.",
	})
}
