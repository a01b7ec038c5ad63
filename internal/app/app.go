// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/map-harvest/harvest/internal/config"
	"github.com/map-harvest/harvest/internal/engine"
	"github.com/map-harvest/harvest/internal/engine/session"
	"github.com/map-harvest/harvest/internal/media"
	"github.com/map-harvest/harvest/internal/store"
	"github.com/map-harvest/harvest/internal/store/memory"
	"github.com/map-harvest/harvest/internal/store/postgres"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config    *config.Config
	Logger    *zerolog.Logger
	Store     store.Store
	Engine    *engine.Engine
	Media     *media.Downloader
	startTime time.Time
}

// New creates and initializes a new Application with all dependencies:
// logger, store (postgres or memory), the media downloader, and the
// engine with a real browser session factory.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := newLogger(cfg)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	plan := engine.Plan{
		City:       cfg.City,
		Districts:  cfg.Districts,
		Categories: cfg.Categories,
	}

	sessionOpts := session.Options{
		Headless:   cfg.Headless,
		UserAgent:  cfg.UserAgent,
		Proxy:      cfg.Proxy,
		ChromePath: cfg.ChromePath,
		DebugDir:   cfg.DebugDir,
		NavTimeout: cfg.NavTimeout,
		MaxScrolls: cfg.MaxScrolls,
		RateRPS:    cfg.NavRateRPS,
		RateBurst:  cfg.NavRateBurst,
	}
	factory := func(ctx context.Context, stopped func() bool) (engine.Session, error) {
		opts := sessionOpts
		opts.Stopped = stopped
		return session.Launch(ctx, opts, logger)
	}

	eng := engine.New(st, factory, plan, engine.Options{JobBreather: cfg.JobBreather}, logger)

	app := &Application{
		Config:    cfg,
		Logger:    &logger,
		Store:     st,
		Engine:    eng,
		Media:     media.New(cfg.MediaDir, 4, 30*time.Second, cfg.UserAgent),
		startTime: time.Now(),
	}

	logger.Info().Str("store", cfg.StoreDriver).Msg("Application initialized successfully")
	return app, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSONLog {
		// JSON logs to stderr
		logWriter = os.Stderr
	} else {
		// Human-friendly console output otherwise
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	return logger
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn().Msg("memory store selected, data is lost on exit")
		return memory.New(), nil
	case "postgres":
		st, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Debug().Msg("postgres store opened")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close gracefully shuts down the application: the engine first (which
// closes any live browser), then the store. A context bounds the wait
// for the engine to drain.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Info().Msg("Shutting down application")

	if a.Engine != nil {
		if err := a.Engine.Stop(); err == nil {
			drained := make(chan struct{})
			go func() {
				a.Engine.Wait()
				close(drained)
			}()
			select {
			case <-drained:
			case <-ctx.Done():
				a.Logger.Warn().Msg("engine did not drain before shutdown deadline")
			}
		}
	}

	if a.Store != nil {
		a.Store.Close()
	}

	uptime := time.Since(a.startTime)
	a.Logger.Info().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
