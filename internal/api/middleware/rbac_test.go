package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/core/domain"
)

type stubProfiles struct {
	artists map[string]bool
	err     error
	reads   int
}

func (s *stubProfiles) ProfileOf(_ context.Context, uid string) (*domain.Profile, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	artist, ok := s.artists[uid]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", uid, domain.ErrDocumentNotFound)
	}
	return &domain.Profile{UID: uid, IsArtist: artist}, nil
}

func runArtist(t *testing.T, profiles *stubProfiles, token string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(token), rec)

	h := Identify(testSecret, nil)(RequireArtist(profiles)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}))
	err := h(c)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		e.HTTPErrorHandler(err, c)
		err = nil
	}
	return rec, err
}

func TestRequireArtist_RoleClaim(t *testing.T) {
	profiles := &stubProfiles{}
	rec, _ := runArtist(t, profiles, signToken(t, userClaims("u1", domain.RoleArtist)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if profiles.reads != 0 {
		t.Fatalf("role claim must not need a profile read")
	}
}

func TestRequireArtist_StoredFlag(t *testing.T) {
	profiles := &stubProfiles{artists: map[string]bool{"u1": true}}
	if rec, _ := runArtist(t, profiles, signToken(t, userClaims("u1"))); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireArtist_Forbidden(t *testing.T) {
	profiles := &stubProfiles{artists: map[string]bool{"u1": false}}
	if rec, _ := runArtist(t, profiles, signToken(t, userClaims("u1"))); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec, _ := runArtist(t, profiles, signToken(t, userClaims("ghost"))); rec.Code != http.StatusForbidden {
		t.Fatalf("missing profile: expected 403, got %d", rec.Code)
	}
}

func TestRequireArtist_ReadError(t *testing.T) {
	boom := errors.New("mongo down")
	_, err := runArtist(t, &stubProfiles{err: boom}, signToken(t, userClaims("u1")))
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error to surface, got %v", err)
	}
}

func TestRequireArtist_Anonymous(t *testing.T) {
	if rec, _ := runArtist(t, &stubProfiles{}, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
