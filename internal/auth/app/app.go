package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/gatehouse-dev/gatehouse/internal/auth/http"
	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store/memory"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"

	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	limiter     *ratelimit.Limiter
	redisClient *redis.Client // nil unless the redis limiter backend is active

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	mfaService          *service.MFAService
	resolver            *service.Resolver
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.VerificationSecret == "" {
		return nil, fmt.Errorf("AUTH_ACCESS_SECRET, AUTH_REFRESH_SECRET and AUTH_VERIFICATION_SECRET must be set")
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initLimiter(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.limiter.Start()

	app.logger.Info("gatehouse starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.limiter.Stop()
	app.housekeepingService.Stop()

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

func (app *Application) initStore() error {
	switch app.cfg.StorageMode {
	case "memory":
		app.db = memory.New()
		app.logger.Warn("using in-memory store, data will not survive restarts")
	case "sqlite":
		db, err := sqlite.Open(app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
		app.logger.Info("database ready", "file", app.cfg.DatabaseFile)
	default:
		return fmt.Errorf("unknown storage mode %q", app.cfg.StorageMode)
	}
	return nil
}

func (app *Application) initLimiter() error {
	var entries ratelimit.EntryStore

	switch app.cfg.RateLimitBackend {
	case "memory":
		entries = ratelimit.NewMemoryStore()
	case "redis":
		if app.cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when RATELIMIT_BACKEND=redis")
		}
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		entries = ratelimit.NewRedisStore(app.redisClient, "gatehouse:rl", app.logger)
		app.logger.Info("rate limit state in redis", "addr", app.cfg.RedisAddr)
	default:
		return fmt.Errorf("unknown rate limit backend %q", app.cfg.RateLimitBackend)
	}

	app.limiter = ratelimit.New(entries, app.cfg.RateLimits,
		ratelimit.WithSweepInterval(app.cfg.SweepInterval),
		ratelimit.WithLogger(app.logger),
	)
	return nil
}

func (app *Application) initServices() error {
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:       app.cfg.AccessSecret,
		RefreshSecret:      app.cfg.RefreshSecret,
		VerificationSecret: app.cfg.VerificationSecret,
		AccessTTL:          app.cfg.AccessTTL,
		RefreshTTL:         app.cfg.RefreshTTL,
		VerificationTTL:    app.cfg.VerificationTTL,
		Issuer:             app.cfg.Issuer,
		Audience:           app.cfg.Audience,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = tokens

	app.mfaService = service.NewMFAService(app.cfg.Issuer)

	app.authService = service.NewAuthService(app.db, tokens, app.mfaService)
	if app.cfg.SessionTTL > 0 {
		app.authService.SessionTTL = app.cfg.SessionTTL
	}

	app.resolver = service.NewResolver(tokens, app.db)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.limiter,
		app.resolver,
		app.logger,
	)

	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
