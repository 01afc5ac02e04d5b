package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkurbatov/huddle/internal/auth"
	"github.com/dkurbatov/huddle/internal/chat"
	"github.com/dkurbatov/huddle/internal/config"
	"github.com/dkurbatov/huddle/internal/core"
	"github.com/dkurbatov/huddle/internal/notify"
	"github.com/dkurbatov/huddle/internal/store"
	"github.com/dkurbatov/huddle/internal/store/sqlite"
	transporthttp "github.com/dkurbatov/huddle/internal/transport/http"
)

// App wires storage, presence, delivery, and transport together.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with the provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	if cfg.JWTSecret == "" {
		st.Close()
		return nil, fmt.Errorf("jwt secret is required")
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	var dispatcher notify.Dispatcher
	if cfg.FCMCredentialsFile != "" {
		fcm, err := notify.NewFCMDispatcher(ctx, cfg.FCMCredentialsFile, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("init fcm dispatcher: %w", err)
		}
		dispatcher = fcm
		logger.Info().Msg("fcm dispatcher initialized")
	} else {
		dispatcher = notify.NewLogDispatcher(logger)
		logger.Warn().Msg("no fcm credentials configured, notifications will be logged only")
	}

	registry := core.NewRegistry(logger)
	router := core.NewRouter(registry, logger)
	chatService := chat.NewService(st, router, dispatcher, logger)

	server := transporthttp.NewServer(cfg, authService, registry, chatService, st, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("http server started")

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
