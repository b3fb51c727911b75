// Command server runs the profile portal backend.
//
// @title                       Atelier profile portal API
// @version                     1.0
// @description                 Profile, notification and sensitive action endpoints of the Atelier portal.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atelier/profile-portal/internal/api"
	"github.com/atelier/profile-portal/internal/api/handler"
	"github.com/atelier/profile-portal/internal/api/metrics"
	"github.com/atelier/profile-portal/internal/core/action"
	"github.com/atelier/profile-portal/internal/core/guard"
	"github.com/atelier/profile-portal/internal/core/ports"
	"github.com/atelier/profile-portal/internal/core/service"
	"github.com/atelier/profile-portal/internal/infrastructure/db/memory"
	mongostore "github.com/atelier/profile-portal/internal/infrastructure/db/mongo"
	redisstore "github.com/atelier/profile-portal/internal/infrastructure/db/redis"
	"github.com/atelier/profile-portal/internal/infrastructure/functions"
	"github.com/atelier/profile-portal/internal/infrastructure/photo"
	"github.com/atelier/profile-portal/internal/infrastructure/queue"
	"github.com/atelier/profile-portal/internal/pkg/config"
	"github.com/atelier/profile-portal/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
	sampleInterval  = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

// sessionStore is what the revocation backends provide.
type sessionStore interface {
	ports.SessionTerminator
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// backends are the storage implementations selected by STORE_DRIVER.
type backends struct {
	docs      ports.DocumentStore
	blobs     ports.BlobStore
	locker    ports.ActionLocker
	sessions  sessionStore
	readiness map[string]handler.Pinger

	// background loops owned by the selected driver
	jobs    []func(ctx context.Context) error
	queue   metrics.Sampler
	cleanup []func(ctx context.Context)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "profile-portal",
	})

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, fn := range b.cleanup {
			fn(closeCtx)
		}
	}()

	var gateway ports.FunctionGateway
	switch cfg.Functions.Mode {
	case config.FunctionsRemote:
		gateway = functions.NewRemote(cfg.Functions.BaseURL, cfg.Functions.Timeout)
	default:
		gateway = functions.NewLocal(b.docs, b.blobs, logger.For("functions"))
	}

	registry := action.NewRegistry(cfg.Actions.TTL)
	orchestrator := action.NewOrchestrator(b.locker, cfg.Actions.LockTTL, logger.For("actions"), metrics.ActionObserver())
	sensitive := service.NewSensitiveActions(
		gateway,
		b.blobs,
		photo.NewFetcher(cfg.Functions.Timeout),
		handler.ClientNavigator{},
		b.sessions,
		logger.For("actions"),
	)

	e := api.NewRouter(api.Deps{
		JWTSecret:    cfg.JWTSecret,
		SignInRoute:  cfg.SignInRoute,
		Revocations:  b.sessions,
		Guard:        guard.New(b.docs, cfg.SignInRoute, cfg.Guard.Timeout, logger.For("guard")),
		Orchestrator: orchestrator,
		Registry:     registry,
		Sessions:     service.NewSessions(b.docs, b.blobs, logger.For("profile")),
		Actions:      sensitive,
		Blobs:        b.blobs,
		Readiness:    b.readiness,
		Logger:       log,
	})

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range b.jobs {
		g.Go(func() error { return job(gctx) })
	}
	g.Go(func() error { return registry.Run(gctx, sweepInterval) })
	g.Go(func() error { return metrics.Sample(gctx, sampleInterval, b.queue, registry) })
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return &backends{
			docs:     memory.NewDocumentStore(),
			blobs:    memory.NewBlobStore(cfg.PublicBaseURL),
			locker:   memory.NewActionLocker(),
			sessions: memory.NewRevocations(),
		}, nil
	}

	b := &backends{readiness: map[string]handler.Pinger{}}

	conn, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "profile-portal",
	})
	if err != nil {
		return nil, err
	}
	b.cleanup = append(b.cleanup, func(ctx context.Context) { _ = conn.Close(ctx) })
	b.readiness["mongodb"] = conn.Ping
	db := conn.Database()

	// Change stream -> sharded dispatcher -> subscription hub.
	hub := queue.NewHub()
	dispatcher := queue.NewDispatcher(cfg.Workers, hub, logger.For("dispatcher"))
	watcher := mongostore.NewWatcher(db, dispatcher, logger.For("watcher"))
	b.queue = dispatcher
	b.jobs = append(b.jobs, dispatcher.Run, watcher.Run)

	b.docs = mongostore.NewDocumentStore(db, hub)
	blobs, err := mongostore.NewBlobStore(db, cfg.PublicBaseURL)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	b.blobs = blobs

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	b.cleanup = append(b.cleanup, func(context.Context) { _ = rdb.Close() })
	b.readiness["redis"] = rdb.Ping

	b.locker = redisstore.NewActionLock(rdb)
	b.sessions = redisstore.NewRevocations(rdb)
	return b, nil
}
