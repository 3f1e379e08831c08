package config

import (
	"log/slog"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "HTTP_SHUTDOWN_TIMEOUT",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"DB_CONN_MAX_LIFETIME", "DB_CONNECT_TIMEOUT", "DB_READ_ONLY", "DB_AUTO_MIGRATE", "DB_SLOW_QUERY",
	"DB_LOG_QUERIES", "TOBS_STATION_ID",
}

// clearEnv resets every variable LoadFromEnv reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.HTTPShutdownTimeout != 10*time.Second {
		t.Errorf("HTTPShutdownTimeout = %v, want 10s", got.HTTPShutdownTimeout)
	}
	if got.Driver != "sqlite3" {
		t.Errorf("Driver = %q, want sqlite3", got.Driver)
	}
	if got.Path != "Resources/hawaii.sqlite" {
		t.Errorf("Path = %q, want Resources/hawaii.sqlite", got.Path)
	}
	if got.MaxOpenConns != 4 || got.MaxIdleConns != 4 {
		t.Errorf("MaxOpenConns/MaxIdleConns = %d/%d, want 4/4", got.MaxOpenConns, got.MaxIdleConns)
	}
	if got.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", got.ConnectTimeout)
	}
	if !got.ReadOnly {
		t.Error("ReadOnly = false, want true")
	}
	if got.AutoMigrate {
		t.Error("AutoMigrate = true, want false")
	}
	if got.LogQueries {
		t.Error("LogQueries = true, want false")
	}
	if got.SlowQuery != 200*time.Millisecond {
		t.Errorf("SlowQuery = %v, want 200ms", got.SlowQuery)
	}
	if got.TobsStationID != "" {
		t.Errorf("TobsStationID = %q, want empty", got.TobsStationID)
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
	}{
		{name: "staging", appEnv: "staging"},
		{name: "uppercase invalid", appEnv: "DEV"},
		{name: "random", appEnv: "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_HTTPAddr(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "default when empty", in: "", want: ":8080"},
		{name: "trims whitespace", in: "  :9090  ", want: ":9090"},
		{name: "host:port", in: "127.0.0.1:8081", want: "127.0.0.1:8081"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HTTP_ADDR", tt.in)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.HTTPAddr != tt.want {
				t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Database(t *testing.T) {
	t.Run("pure go driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("SQLITE_PATH", "/data/hawaii.sqlite")

		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v, want nil", err)
		}
		if got.Driver != "sqlite" {
			t.Errorf("Driver = %q, want sqlite", got.Driver)
		}
		if got.Path != "/data/hawaii.sqlite" {
			t.Errorf("Path = %q, want /data/hawaii.sqlite", got.Path)
		}
	})

	t.Run("writable handle with auto migrate", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_READ_ONLY", "false")
		t.Setenv("DB_AUTO_MIGRATE", "true")

		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v, want nil", err)
		}
		if got.ReadOnly || !got.AutoMigrate {
			t.Errorf("ReadOnly/AutoMigrate = %v/%v, want false/true", got.ReadOnly, got.AutoMigrate)
		}
	})

	t.Run("auto migrate needs a writable handle", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_AUTO_MIGRATE", "true")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want error for read-only auto migrate")
		}
	})

	t.Run("tobs station is trimmed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TOBS_STATION_ID", " USC00519281 ")

		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v, want nil", err)
		}
		if got.TobsStationID != "USC00519281" {
			t.Errorf("TobsStationID = %q, want USC00519281", got.TobsStationID)
		}
	})

	invalid := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown driver", key: "DB_DRIVER", val: "postgres"},
		{name: "max open conns not a number", key: "DB_MAX_OPEN_CONNS", val: "many"},
		{name: "max idle conns not a number", key: "DB_MAX_IDLE_CONNS", val: "x"},
		{name: "bad lifetime", key: "DB_CONN_MAX_LIFETIME", val: "forever"},
		{name: "zero connect timeout", key: "DB_CONNECT_TIMEOUT", val: "0s"},
		{name: "bad bool", key: "DB_LOG_QUERIES", val: "sometimes"},
		{name: "bad shutdown timeout", key: "HTTP_SHUTDOWN_TIMEOUT", val: "soon"},
		{name: "bad slow query threshold", key: "DB_SLOW_QUERY", val: "slowish"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.val)
			}
		})
	}

	t.Run("read only with auto migrate is rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_READ_ONLY", "true")
		t.Setenv("DB_AUTO_MIGRATE", "true")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		t.Run(in, func(t *testing.T) {
			got, err := parseLogLevel(in)
			if err == nil {
				t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
			}
			if got != slog.LevelInfo {
				t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
			}
		})
	}
}
