package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"surfsup-server/internal/config"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Open returns a pooled handle for the configured SQLite database. The
// connection is verified with a ping that is retried with exponential backoff
// until cfg.ConnectTimeout elapses or ctx is done.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.ReadOnly {
		if err := requireDataset(cfg); err != nil {
			return nil, err
		}
	}
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogQueries {
		drv, err := lookupDriver(cfg.Driver)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		connector, err := NewLoggingConnector(drv, dsn, LogOptions{Logger: slog.Default(), SlowQuery: cfg.SlowQuery})
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := ping(ctx, db, cfg.ConnectTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		slog.Warn("db ping failed", "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(b, ctx))
}

// lookupDriver resolves a registered database/sql driver by name without
// opening a connection.
func lookupDriver(name string) (driver.Driver, error) {
	probe, err := sql.Open(name, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = probe.Close() }()
	return probe.Driver(), nil
}

// requireDataset fails fast when a read-only handle points at a file that
// does not exist, instead of waiting out the ping backoff.
func requireDataset(cfg config.Config) error {
	if cfg.DSN != "" || cfg.Path == "" || strings.HasPrefix(cfg.Path, "file:") {
		return nil
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", cfg.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("dataset %s is a directory", cfg.Path)
	}
	return nil
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	if path == "" {
		return "", fmt.Errorf("db path is empty")
	}

	// A read-only handle must never create the file or its directory.
	if !cfg.ReadOnly && !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	params := dsnParams(cfg.Driver, cfg.ReadOnly)

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// dsnParams returns the connection options in the syntax each driver expects:
// mattn/go-sqlite3 takes underscore keys, modernc.org/sqlite takes _pragma.
func dsnParams(driverName string, readOnly bool) []string {
	var params []string
	switch driverName {
	case "sqlite":
		params = []string{
			"_pragma=foreign_keys(1)",
			"_pragma=busy_timeout(5000)",
		}
		if !readOnly {
			params = append(params, "_pragma=journal_mode(WAL)")
		}
	default:
		params = []string{
			"_foreign_keys=on",
			"_busy_timeout=5000",
		}
		if !readOnly {
			params = append(params, "_journal_mode=WAL")
		}
	}
	if readOnly {
		params = append(params, "mode=ro")
	}
	return params
}
