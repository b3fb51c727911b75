package handler

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/api/middleware"
	"github.com/atelier/profile-portal/internal/core/domain"
)

const (
	DeviceCookie = "deviceId"
	DeviceHeader = "X-Device-ID"
)

// caller returns the identity set by the Identify middleware. Routes using it
// sit behind RequireIdentity; the check here is a fast fail.
func caller(c echo.Context) (*domain.Identity, error) {
	id := middleware.IdentityFrom(c)
	if id == nil || id.UID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return id, nil
}

// requestDevice reads the client's persisted device id from the deviceId
// cookie, falling back to the X-Device-ID header.
type requestDevice struct {
	c echo.Context
}

func (d requestDevice) DeviceID(context.Context) (string, error) {
	if ck, err := d.c.Cookie(DeviceCookie); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	if v := strings.TrimSpace(d.c.Request().Header.Get(DeviceHeader)); v != "" {
		return v, nil
	}
	return "", domain.ErrDeviceUnknown
}
