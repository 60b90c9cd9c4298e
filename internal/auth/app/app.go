package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/merigaumata/authplatform/internal/auth/http"
	"github.com/merigaumata/authplatform/internal/auth/service"
	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/internal/auth/store/drivers/postgres"
	"github.com/merigaumata/authplatform/internal/auth/store/drivers/sqlite"
	"github.com/merigaumata/authplatform/pkg/authgate"
	"github.com/merigaumata/authplatform/pkg/blacklist"
	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/jwks"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
	"github.com/merigaumata/authplatform/pkg/slogx"
	"github.com/merigaumata/authplatform/pkg/validator"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	cache      kvstore.Store
	keyManager *jwtx.KeyManager
	validator  *validator.Validator

	// Services
	tokenIssuer         *service.TokenIssuer
	userService         *service.UserService
	authService         *service.AuthService
	keyRotationService  *service.KeyRotationService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	ctx := context.Background()

	if err := cryptox.InitPepper(cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to initialize pepper: %w", err)
	}

	// Database first: persistent keys load from it.
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initCache(ctx); err != nil {
		app.closeAll()
		return nil, err
	}

	keyManager, err := InitAuthKeys(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initServices(); err != nil {
		app.closeAll()
		return nil, err
	}

	if err := app.bootstrapAdmin(ctx); err != nil {
		app.closeAll()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeAll()
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeAll(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Close releases the database and cache without touching the server. Used
// when the handler is served by something other than Run.
func (app *Application) Close() error {
	return app.closeAll()
}

func (app *Application) closeAll() error {
	var errs []error
	if c, ok := app.cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			app.logger.Error("error closing cache", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initCache connects redis when configured. Without it, blacklist entries
// and login attempts live in process memory and are not shared.
func (app *Application) initCache(ctx context.Context) error {
	if app.cfg.RedisAddr == "" {
		app.cache = kvstore.NewMemory()
		app.logger.Warn("REDIS_ADDR not set: using in-memory kvstore, revocations are not shared between instances")
		return nil
	}

	rs, err := kvstore.NewRedis(ctx, kvstore.RedisConfig{
		Addr:      app.cfg.RedisAddr,
		Password:  app.cfg.RedisPassword,
		DB:        app.cfg.RedisDB,
		OpTimeout: app.cfg.OutboundTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.cache = rs
	app.logger.Info("redis kvstore connected", "addr", app.cfg.RedisAddr)
	return nil
}

// newVerifier verifies against the local key set, or the remote JWKS when
// JWKS_URI points elsewhere.
func (app *Application) newVerifier() *jwtx.Verifier {
	if app.cfg.JWKSURI == "" {
		return app.keyManager.Verifier
	}
	app.logger.Info("validating tokens against remote JWKS", "uri", app.cfg.JWKSURI)
	remote := jwks.NewRemoteKeySet(jwks.NewHTTPFetcher(app.cfg.JWKSURI), app.cache, jwks.Options{
		CacheTTL:     app.cfg.JWKSCacheTTL,
		FetchTimeout: app.cfg.OutboundTimeout,
		Logger:       app.logger,
	})
	return jwtx.NewVerifier(remote, jwtx.VerifyOptions{})
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	bl := blacklist.New(app.cache)
	app.validator = validator.New(app.newVerifier(), bl, validator.Config{
		Issuer:         app.cfg.Issuer,
		Audience:       app.cfg.Audience,
		StrictAudience: app.cfg.StrictAudience,
	}, app.logger)

	app.tokenIssuer = &service.TokenIssuer{
		KeyManager: app.keyManager,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		TTL:        app.cfg.AccessTokenTTL,
	}
	refresh := &service.RefreshTokenService{Store: app.db, TTL: app.cfg.RefreshTokenTTL}
	users, err := service.NewUserService(app.db)
	if err != nil {
		return fmt.Errorf("failed to initialize user service: %w", err)
	}
	app.userService = users

	app.authService = &service.AuthService{
		Users:   app.userService,
		Issuer:  app.tokenIssuer,
		Tokens:  refresh,
		Attempts: &service.LoginAttemptGuard{
			Store:       app.cache,
			MaxAttempts: app.cfg.LoginMaxAttempts,
			Window:      app.cfg.LoginLockoutWindow,
		},
		Blacklist: bl,
		Validator: app.validator,
	}

	// Rotation works in both modes; only persistent mode writes the store.
	app.keyRotationService = &service.KeyRotationService{
		KeyManager:  app.keyManager,
		RSABits:     app.cfg.RSABits,
		GracePeriod: app.cfg.KeyGracePeriod,
	}
	var keySweeper service.Sweeper
	if app.cfg.KeyStorageMode == KeyStoragePersistent {
		app.keyRotationService.Store = app.db
		keySweeper = app.keyRotationService
	}
	app.logger.Info("key rotation service enabled", "mode", app.cfg.KeyStorageMode)

	app.housekeepingService = service.NewHousekeepingService(
		refresh,
		keySweeper,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	if mem, ok := app.cache.(*kvstore.MemoryStore); ok {
		app.housekeepingService.Cache = mem
	}
	return nil
}

// bootstrapAdmin creates the configured admin account on first start.
func (app *Application) bootstrapAdmin(ctx context.Context) error {
	if app.cfg.BootstrapAdminUsername == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	created, err := app.userService.EnsureAdmin(ctx, app.cfg.BootstrapAdminUsername, app.cfg.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		app.logger.Info("bootstrap admin created", "username", app.cfg.BootstrapAdminUsername)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	gate := authgate.New(app.validator, authgate.Config{
		PublicPaths:           httpapi.PublicPaths,
		ServicePaths:          httpapi.ServicePaths,
		ServiceSecret:         app.cfg.ServiceSharedSecret,
		TrustForwardedHeaders: app.cfg.TrustForwardedHeaders,
	})

	router := httpapi.NewRouter(
		app.keyManager,
		gate,
		BuildVersion,
		app.db,
		app.cache,
		app.logger,
	)
	router.Limits = app.cfg.RateLimits()
	router.AuthService = app.authService
	router.UserService = app.userService
	router.TokenIssuer = app.tokenIssuer
	router.KeyRotationService = app.keyRotationService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
