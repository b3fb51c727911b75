package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/api/middleware"
	"github.com/atelier/profile-portal/internal/core/domain"
)

func (a *app) serveDevice(t *testing.T, h echo.HandlerFunc, method, body, uid, deviceID string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(method, "/v1/devices/current", nil)
	if body != "" {
		req = httptest.NewRequest(method, "/v1/devices/current/messaging", stringsReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAuthorization, bearer(t, uid))
	if deviceID != "" {
		req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: deviceID})
	}
	rec := httptest.NewRecorder()
	err := middleware.Identify(testSecret, nil)(h)(a.e.NewContext(req, rec))
	return rec, err
}

func (a *app) seedDevice(t *testing.T, uid, deviceID string) {
	t.Helper()
	err := a.docs.Set(context.Background(), domain.DevicePath(uid, deviceID), map[string]any{
		domain.FieldMessagingToken: nil, domain.FieldShowMessaging: true,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestDeviceHandler_RegisterThenPromptIsFalse(t *testing.T) {
	a := newApp(t)
	a.seedDevice(t, "u1", "d1")
	h := NewDeviceHandler(a.sessions, zerolog.Nop())

	rec, err := a.serveDevice(t, h.Prompt, http.MethodGet, "", "u1", "d1")
	if err != nil || !bytesContain(rec.Body.Bytes(), `"show_prompt":true`) {
		t.Fatalf("expected prompt before registration: %v %s", err, rec.Body.String())
	}

	rec, err = a.serveDevice(t, h.Register, http.MethodPost, `{"token":"fcm-1","permission":"granted"}`, "u1", "d1")
	if err != nil || rec.Code != http.StatusOK {
		t.Fatalf("register: %v %d %s", err, rec.Code, rec.Body.String())
	}

	rec, _ = a.serveDevice(t, h.Prompt, http.MethodGet, "", "u1", "d1")
	if !bytesContain(rec.Body.Bytes(), `"show_prompt":false`) {
		t.Fatalf("expected no prompt after registration, got %s", rec.Body.String())
	}
}

func TestDeviceHandler_PermissionDenied(t *testing.T) {
	a := newApp(t)
	a.seedDevice(t, "u1", "d1")
	h := NewDeviceHandler(a.sessions, zerolog.Nop())

	rec, err := a.serveDevice(t, h.Register, http.MethodPost, `{"permission":"denied"}`, "u1", "d1")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Notice == nil || resp.Notice.Title != "Permission denied" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	snap, _ := a.docs.Get(context.Background(), domain.DevicePath("u1", "d1"))
	var d domain.Device
	_ = snap.Decode(&d)
	if d.MessagingToken != nil || !d.ShowMessaging {
		t.Fatalf("device must be untouched, got %+v", d)
	}
}

func TestDeviceHandler_InvalidBody(t *testing.T) {
	a := newApp(t)
	h := NewDeviceHandler(a.sessions, zerolog.Nop())

	_, err := a.serveDevice(t, h.Register, http.MethodPost, `{"permission":"maybe"}`, "u1", "d1")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDeviceHandler_HeaderFallbackAndMissingDevice(t *testing.T) {
	a := newApp(t)
	h := NewDeviceHandler(a.sessions, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/v1/devices/current", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, "u1"))
	req.Header.Set(DeviceHeader, "d7")
	rec := httptest.NewRecorder()
	if err := middleware.Identify(testSecret, nil)(h.Prompt)(a.e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !bytesContain(rec.Body.Bytes(), `"show_prompt":true`) {
		t.Fatalf("expected prompt for unknown device record, got %s", rec.Body.String())
	}

	_, err := a.serveDevice(t, h.Prompt, http.MethodGet, "", "u1", "")
	if !errors.Is(err, domain.ErrDeviceUnknown) {
		t.Fatalf("expected ErrDeviceUnknown, got %v", err)
	}
}
