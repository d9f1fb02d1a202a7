// Package app wires configuration, logging, telemetry and the scraper manager for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/williampepple1/salvage-yard-monitor/internal/adapters"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	snapshots "github.com/williampepple1/salvage-yard-monitor/internal/io"
	"github.com/williampepple1/salvage-yard-monitor/internal/manager"
	"github.com/williampepple1/salvage-yard-monitor/internal/telemetry"
)

// Options select the configuration and log level
type Options struct {
	// ConfigFile is read over the defaults when set
	ConfigFile  string
	ServiceName string
	Verbose     bool
	// Getenv defaults to os.Getenv
	Getenv func(string) string
	// LogOutput defaults to os.Stderr
	LogOutput *os.File
}

// App holds the wired components
type App struct {
	Config  *config.AppConfig
	Logger  *slog.Logger
	Manager *manager.Manager
	Store   *snapshots.Store

	shutdown telemetry.Shutdown
}

// NewLogger returns the JSON logger the binaries install as default
func NewLogger(out *os.File, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// LoadConfig reads .env, then the config file (or the defaults), then env overrides
func LoadConfig(filename string, getenv func(string) string) (*config.AppConfig, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := config.Default()
	if filename != "" {
		var err error
		cfg, err = config.Load(filename)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New builds the App. Close releases what it holds.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	logger := NewLogger(opts.LogOutput, opts.Verbose)
	slog.SetDefault(logger)

	cfg, err := LoadConfig(opts.ConfigFile, opts.Getenv)
	if err != nil {
		return nil, err
	}
	if opts.ServiceName != "" {
		cfg.Telemetry.ServiceName = opts.ServiceName
	}
	if opts.ConfigFile != "" {
		logger.Info("loaded configuration", "file", opts.ConfigFile)
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		// Tracing is optional; carry on without it
		logger.Warn("telemetry disabled", "error", err)
	}

	registry := adapters.New(cfg, adapters.Deps{Logger: logger})
	return &App{
		Config:   cfg,
		Logger:   logger,
		Manager:  manager.New(registry, manager.Options{Logger: logger}),
		Store:    snapshots.NewStore(cfg.Snapshot),
		shutdown: shutdown,
	}, nil
}

// Title is the vehicle family shown in headings, e.g. "Honda Insight"
func (a *App) Title() string {
	return a.Config.Search.Make + " " + a.Config.Search.Model
}

// Close stops the manager's clients and flushes telemetry
func (a *App) Close(ctx context.Context) error {
	err := a.Manager.Close()
	if a.shutdown != nil {
		err = errors.Join(err, a.shutdown(ctx))
	}
	return err
}
