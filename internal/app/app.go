package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/script"
	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-channels/internal/transport/http"
)

// App wires together storage, the channel hub and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	configPath      string
	log             *zerolog.Logger
}

// New constructs the application with provided configuration. configPath,
// when set, is watched and static channel edits are applied live.
func New(cfg *config.Config, configPath string, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	engine := script.New(cfg.ScriptsDir,
		script.WithMaxDepth(cfg.HookMaxDepth),
		script.WithLogger(logger.With().Str("component", "script").Logger()),
	)
	hub := core.NewHub(core.Options{
		Directory: sqlite.NewDirectory(st, *logger),
		Hooks:     engine,
		Loader:    engine,
		Logger:    logger.With().Str("component", "hub").Logger(),
		MOTDDelay: cfg.MOTDDelay,
	})
	engine.SetHost(hub)

	if err := hub.Load(cfg.StaticDefinitions()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load channels: %w", err)
	}
	logger.Info().Int("channels", len(cfg.Channels)).Str("scripts_dir", cfg.ScriptsDir).Msg("static channels loaded")

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	server := transporthttp.NewServer(hub, authService, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		configPath:      configPath,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)
	a.watchConfig(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

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

// watchConfig reloads static channels whenever the config file changes.
func (a *App) watchConfig(ctx context.Context) {
	if a.configPath == "" {
		return
	}
	err := config.Watch(a.log, a.configPath, func(cfg config.Config) {
		if err := a.hub.Reload(ctx, cfg.StaticDefinitions()); err != nil {
			a.log.Warn().Err(err).Msg("failed to reload static channels")
			return
		}
		a.log.Info().Int("channels", len(cfg.Channels)).Msg("static channels reloaded")
	})
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.configPath).Msg("config watch disabled")
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
