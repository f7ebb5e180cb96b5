package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/coinconvert/internal/cli"
	"github.com/JonMunkholm/coinconvert/internal/config"
	"github.com/JonMunkholm/coinconvert/internal/core"
	_ "github.com/JonMunkholm/coinconvert/internal/core/exchanges" // Register all exchange formats
	"github.com/JonMunkholm/coinconvert/internal/logging"
	"github.com/JonMunkholm/coinconvert/internal/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "coinconvert:", err)
		return 2
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("configuration loaded", "env_file", envLoaded, "config", cfg.String())
	logger.Debug("schemas registered", "count", core.SchemaCount(), "exchanges", len(core.Exchanges()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lookup, err := cli.NewRateLookup(cfg.Rates, logger)
	if err != nil {
		logger.Error("failed to load historical rates", "error", err)
		return 1
	}

	app := &cli.App{
		Config: cfg,
		Logger: logger,
		Rates:  lookup,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}

	if cfg.Metrics.Enabled {
		app.Metrics = metrics.New()
	}

	if cfg.Database.Enabled() {
		store, closeDB, err := cli.OpenHistory(ctx, cfg.Database, logger)
		if err != nil {
			// History is optional; conversions still run without it.
			logger.Warn("conversion history disabled", "error", err)
		} else {
			defer closeDB()
			app.History = store
		}
	}

	if err := cli.Execute(ctx, app, os.Args[1:]); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}
	return 0
}
