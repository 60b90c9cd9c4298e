package resource

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

	"github.com/merigaumata/authplatform/pkg/authgate"
	"github.com/merigaumata/authplatform/pkg/blacklist"
	"github.com/merigaumata/authplatform/pkg/jwks"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
	"github.com/merigaumata/authplatform/pkg/slogx"
	"github.com/merigaumata/authplatform/pkg/validator"
)

var BuildVersion = "v0.1.0"

// Application is a downstream service that trusts tokens minted by the auth
// service. It never holds private keys.
type Application struct {
	cfg    Config
	logger *slog.Logger

	cache  kvstore.Store
	server *http.Server
	router *Router
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: cfg.ServiceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.RedisAddr != "" {
		rs, err := kvstore.NewRedis(context.Background(), kvstore.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			OpTimeout: cfg.OutboundTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.cache = rs
	} else {
		app.cache = kvstore.NewMemory()
		app.logger.Warn("REDIS_ADDR not set: revoked tokens are accepted until they expire")
	}

	app.router = NewRouter(app.newGate(), cfg.ServiceName, BuildVersion, app.logger)
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return app, nil
}

func (app *Application) newGate() *authgate.Gate {
	remote := jwks.NewRemoteKeySet(jwks.NewHTTPFetcher(app.cfg.JWKSURI), app.cache, jwks.Options{
		CacheTTL:     app.cfg.JWKSCacheTTL,
		FetchTimeout: app.cfg.OutboundTimeout,
		Logger:       app.logger,
	})
	v := validator.New(jwtx.NewVerifier(remote, jwtx.VerifyOptions{}), blacklist.New(app.cache), validator.Config{
		Issuer:         app.cfg.Issuer,
		Audience:       app.cfg.Audience,
		StrictAudience: app.cfg.StrictAudience,
	}, app.logger)

	return authgate.New(v, authgate.Config{
		PublicPaths:           PublicPaths,
		ServicePaths:          ServicePaths,
		ServiceSecret:         app.cfg.ServiceSharedSecret,
		TrustForwardedHeaders: app.cfg.TrustForwardedHeaders,
	})
}

func (app *Application) Handler() http.Handler {
	return app.router
}

// Run blocks until the server fails or SIGINT/SIGTERM arrives.
func (app *Application) Run() error {
	app.logger.Info("resource service starting", "port", app.cfg.Port, "jwks_uri", app.cfg.JWKSURI)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		return app.Shutdown()
	}
	return nil
}

func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		_ = app.server.Close()
	}
	return app.Close()
}

// Close releases the kvstore connection.
func (app *Application) Close() error {
	if c, ok := app.cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
