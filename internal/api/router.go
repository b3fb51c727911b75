package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/atelier/profile-portal/docs"
	"github.com/atelier/profile-portal/internal/api/handler"
	"github.com/atelier/profile-portal/internal/api/middleware"
	"github.com/atelier/profile-portal/internal/core/action"
	"github.com/atelier/profile-portal/internal/core/guard"
	"github.com/atelier/profile-portal/internal/core/ports"
	"github.com/atelier/profile-portal/internal/core/service"
)

// Deps are the wired collaborators the routes need.
type Deps struct {
	JWTSecret    string
	SignInRoute  string
	Revocations  middleware.RevocationChecker
	Guard        *guard.Guard
	Orchestrator *action.Orchestrator
	Registry     *action.Registry
	Sessions     *service.Sessions
	Actions      *service.SensitiveActions
	Blobs        ports.BlobStore
	Readiness    map[string]handler.Pinger
	Logger       zerolog.Logger

	// Registry for HTTP metrics; the default registry when nil.
	Metrics prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "atelier",
		Registerer: d.Metrics,
	}))
	e.Use(middleware.Identify(d.JWTSecret, d.Revocations))

	// --- Handlers ---
	profiles := handler.NewProfileHandler(d.Sessions, d.Logger)
	devices := handler.NewDeviceHandler(d.Sessions, d.Logger)
	actions := handler.NewActionHandler(d.Orchestrator, d.Registry, d.Actions, d.Logger)
	admin := handler.NewAdminHandler(d.Sessions)
	artist := handler.NewArtistHandler(d.Sessions, d.Blobs)
	blobs := handler.NewBlobHandler(d.Blobs)

	// --- Public routes ---
	signIn := d.SignInRoute
	if signIn == "" {
		signIn = "/signin"
	}
	e.GET(signIn, handler.SignIn)
	e.GET("/blobs/*", blobs.Download)

	// --- Signed-in user ---
	v1 := e.Group("/v1", middleware.RequireIdentity())
	v1.GET("/profile", profiles.Get)
	v1.PUT("/profile", profiles.Save)
	v1.GET("/profile/live", profiles.Live)

	v1.GET("/devices/current", devices.Prompt)
	v1.GET("/devices/current/live", devices.LivePrompt)
	v1.POST("/devices/current/messaging", devices.Register)

	v1.POST("/actions/:kind", actions.Begin)
	v1.GET("/actions/invocations/:id", actions.Get)
	v1.POST("/actions/invocations/:id/confirm", actions.Confirm)
	v1.POST("/actions/invocations/:id/decline", actions.Decline)

	v1.GET("/artist", artist.Profile, middleware.RequireArtist(d.Sessions))

	// --- Admin area (allowlist checked on every request) ---
	adminGroup := e.Group("/admin", middleware.AdminGuard(d.Guard))
	adminGroup.GET("", admin.Home)
	adminGroup.GET("/profiles/:uid", admin.Profile)

	// --- Health probes, metrics and docs (no auth required) ---
	health := handler.NewHealthHandler()
	readiness := handler.NewReadinessHandler(d.Readiness)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", readiness.Readiness)
	e.GET("/metrics", metricsHandler(d.Metrics))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func metricsHandler(reg prometheus.Registerer) echo.HandlerFunc {
	if g, ok := reg.(prometheus.Gatherer); ok {
		return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: g})
	}
	return echoprometheus.NewHandler()
}
