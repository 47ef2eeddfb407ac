// Package app provides the entry point shared by the bionic commands.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flemzord/bionic/internal/config"
	"github.com/flemzord/bionic/internal/telemetry"
)

// stopTimeout bounds the whole shutdown sequence.
const stopTimeout = 15 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Find is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogLevel overrides log.level from the configuration when non-empty.
	LogLevel string

	// Output receives log records. Defaults to os.Stderr.
	Output io.Writer
}

// LoadConfig resolves, loads and validates the configuration file.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		found, err := config.Find()
		if err != nil {
			return nil, "", fmt.Errorf("%w (searched: %v)", err, config.SearchPaths())
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Run loads configuration, starts the scheduler and the gateway, and
// blocks until SIGINT or SIGTERM is received.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, params)
}

// run is Run with the shutdown trigger supplied by the caller.
func run(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	out := params.Output
	if out == nil {
		out = os.Stderr
	}
	levelName := cfg.Log.Level
	if params.LogLevel != "" {
		levelName = params.LogLevel
	}
	redactor := NewRedactor(cfg)
	logger := NewLogger(out, cfg.Log, ParseLevel(levelName), redactor)
	logger.Info("bionic starting", "version", params.Version, "commit", params.Commit, "config", cfgPath)

	_, shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     params.Version,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing: shutdown failed", "error", err)
		}
	}()

	svc, err := wire(cfg, redactor, logger)
	if err != nil {
		return err
	}

	if err := svc.scheduler.Start(); err != nil {
		return err
	}
	if svc.gateway != nil {
		if err := svc.gateway.Start(ctx); err != nil {
			_ = svc.scheduler.Stop(context.Background())
			return err
		}
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	svc.stop(stopCtx, logger)
	logger.Info("shutdown complete", "conversations", svc.store.Len())
	return nil
}
