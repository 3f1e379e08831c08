package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"surfsup-server/internal/app"
	"surfsup-server/internal/config"
	"surfsup-server/internal/dataset"
	"surfsup-server/internal/logging"
)

const appName = "surfsup"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

type runContext struct {
	ctx context.Context
	cfg config.Config
}

type serveCmd struct{}

func (serveCmd) Run(rc *runContext) error {
	return app.Run(rc.ctx, rc.cfg)
}

type migrateCmd struct{}

func (migrateCmd) Run(rc *runContext) error {
	n, err := app.Migrate(rc.ctx, rc.cfg)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "applied", n)
	return nil
}

type importCmd struct {
	Stations     string `arg:"" type:"existingfile" help:"Station CSV (station,name,latitude,longitude,elevation)."`
	Measurements string `arg:"" type:"existingfile" help:"Measurement CSV (station,date,prcp,tobs)."`
	Truncate     bool   `help:"Delete existing stations and measurements before loading."`
}

func (c importCmd) Run(rc *runContext) error {
	_, err := app.Import(rc.ctx, rc.cfg, c.Stations, c.Measurements, dataset.Options{Truncate: c.Truncate})
	return err
}

type cli struct {
	EnvFile string           `name:"env-file" type:"path" help:"Load environment variables from this file before reading config (default .env if present)."`
	Version kong.VersionFlag `help:"Print version and exit."`

	Serve   serveCmd   `cmd:"" default:"1" help:"Serve the climate API (default)."`
	Migrate migrateCmd `cmd:"" help:"Apply pending schema migrations and exit."`
	Import  importCmd  `cmd:"" help:"Load station and measurement CSV files into the database."`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name(appName),
		kong.Description("Read-only HTTP API over the Hawaii climate dataset."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := loadEnvFile(c.EnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "env file error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
		"command", kctx.Command(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kctx.Run(&runContext{ctx: ctx, cfg: cfg}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		stop()
		os.Exit(1)
	}

	slog.Info("shutting down")
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. With no path, a missing .env is not an error.
func loadEnvFile(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
