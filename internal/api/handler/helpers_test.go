package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/api/middleware"
	"github.com/atelier/profile-portal/internal/core/action"
	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/service"
	"github.com/atelier/profile-portal/internal/infrastructure/db/memory"
	"github.com/atelier/profile-portal/internal/infrastructure/functions"
)

const testSecret = "secret"

func bearer(t *testing.T, uid string) string {
	t.Helper()
	claims := middleware.Claims{
		Name:    "Ada",
		Picture: "https://photos.example.com/" + uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "sess-" + uid,
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

type stubPhotos struct{}

func (stubPhotos) Fetch(context.Context, string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("photo")), "image/jpeg", nil
}

// app wires the handlers against memory stores.
type app struct {
	e           *echo.Echo
	docs        *memory.DocumentStore
	blobs       *memory.BlobStore
	revocations *memory.Revocations
	sessions    *service.Sessions
	registry    *action.Registry
	actions     *ActionHandler
}

func newApp(t *testing.T) *app {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	docs := memory.NewDocumentStore()
	blobs := memory.NewBlobStore("http://localhost:8080")
	revs := memory.NewRevocations()
	sessions := service.NewSessions(docs, blobs, zerolog.Nop())
	sensitive := service.NewSensitiveActions(functions.NewLocal(docs, blobs, zerolog.Nop()), blobs, stubPhotos{},
		ClientNavigator{}, revs, zerolog.Nop())
	registry := action.NewRegistry(time.Minute)
	orch := action.NewOrchestrator(memory.NewActionLocker(), time.Minute, zerolog.Nop())

	return &app{
		e:           e,
		docs:        docs,
		blobs:       blobs,
		revocations: revs,
		sessions:    sessions,
		registry:    registry,
		actions:     NewActionHandler(orch, registry, sensitive, zerolog.Nop()),
	}
}

func (a *app) seedProfile(t *testing.T, uid string) {
	t.Helper()
	err := a.docs.Set(context.Background(), domain.ProfilePath(uid), map[string]any{
		domain.FieldName: "Ada", domain.FieldEmail: "ada@example.com", domain.FieldIsArtist: false,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// serve runs h behind the Identify middleware. Errors returned by h are
// handed back rather than rendered.
func (a *app) serve(t *testing.T, h echo.HandlerFunc, method, target, body, auth string, params ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	c := a.e.NewContext(req, rec)
	if len(params)%2 == 0 && len(params) > 0 {
		var names, values []string
		for i := 0; i < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	err := middleware.Identify(testSecret, a.revocations)(h)(c)
	return rec, err
}
