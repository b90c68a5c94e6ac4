// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/tomtom215/trackgraph/internal/config"
	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/supervisor"
	"github.com/tomtom215/trackgraph/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Args are the command-line flags. Everything else comes from config.
type Args struct {
	Config   string `arg:"-c,--config" help:"path to a YAML config file (overrides CONFIG_PATH)"`
	LogLevel string `arg:"--log-level" help:"trace, debug, info, warn or error (overrides LOG_LEVEL)"`
}

// Description implements arg.Described.
func (Args) Description() string {
	return "TrackGraph listening-history analytics server"
}

// Version implements arg.Versioned.
func (Args) Version() string {
	return "trackgraph " + version
}

func parseArgs() *Args {
	var args Args
	arg.MustParse(&args)
	return &args
}

func main() {
	args := parseArgs()
	if args.Config != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, args.Config); err != nil {
			logging.Fatal().Err(err).Msg("Failed to set config path")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if args.LogLevel != "" {
		cfg.Logging.Level = args.LogLevel
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Bool("demo_mode", cfg.DemoMode).
		Bool("catalog_configured", cfg.Catalog.Configured()).
		Msg("Starting TrackGraph")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		stop()
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

// run wires the application and blocks until ctx is canceled.
func run(ctx context.Context, cfg *config.Config) error {
	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	if app.prewarm != nil {
		tree.AddDataService(app.prewarm)
	}

	server := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
