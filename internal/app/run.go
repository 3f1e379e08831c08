package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"surfsup-server/internal/config"
	"surfsup-server/internal/dataset"
	db "surfsup-server/internal/db"
	httpapi "surfsup-server/internal/httpapi"
	"surfsup-server/internal/migrate"
	climate "surfsup-server/internal/modules/climate"
	climateviews "surfsup-server/internal/modules/climate/views"
)

// Run serves the climate API until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"dbPath", cfg.Path,
		"dbReadOnly", cfg.ReadOnly,
		"dbAutoMigrate", cfg.AutoMigrate,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"tobsStationID", cfg.TobsStationID,
	)
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(dbConn)

	if cfg.AutoMigrate && !cfg.ReadOnly {
		if _, err := migrate.Run(ctx, dbConn); err != nil {
			return err
		}
	}

	var ok int
	err = dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
	if err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	slog.Info("database connection successful")

	if err := climateviews.LoadTemplates(); err != nil {
		return err
	}
	mux := httpapi.NewMux(dbConn)
	climate.RegisterFeature(mux, dbConn, cfg)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// Migrate applies pending schema migrations and returns how many ran. It is
// the only path, besides Import, that opens the dataset writable.
func Migrate(ctx context.Context, cfg config.Config) (int, error) {
	dbConn, err := db.Open(ctx, writable(cfg))
	if err != nil {
		return 0, err
	}
	defer closeDB(dbConn)

	return migrate.Run(ctx, dbConn)
}

// Import migrates the database and loads the station and measurement CSV files.
func Import(ctx context.Context, cfg config.Config, stationsPath, measurementsPath string, opts dataset.Options) (dataset.Result, error) {
	stations, err := os.Open(stationsPath)
	if err != nil {
		return dataset.Result{}, err
	}
	defer func() { _ = stations.Close() }()
	measurements, err := os.Open(measurementsPath)
	if err != nil {
		return dataset.Result{}, err
	}
	defer func() { _ = measurements.Close() }()

	dbConn, err := db.Open(ctx, writable(cfg))
	if err != nil {
		return dataset.Result{}, err
	}
	defer closeDB(dbConn)

	if _, err := migrate.Run(ctx, dbConn); err != nil {
		return dataset.Result{}, fmt.Errorf("migrate: %w", err)
	}
	return dataset.Import(ctx, dbConn, stations, measurements, opts)
}

func writable(cfg config.Config) config.Config {
	cfg.ReadOnly = false
	return cfg
}

func closeDB(dbConn *sql.DB) {
	if err := db.Close(dbConn); err != nil {
		slog.Error("db close", "error", err)
	}
}
