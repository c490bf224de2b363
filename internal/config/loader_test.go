package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		t.Parallel()
		cfg, err := parse(envFrom(map[string]string{"SCHEDULER_SESSION_SECRET": "super-secret"}))
		if err != nil {
			t.Fatalf("parse returned error: %v", err)
		}

		want := Defaults()
		want.SessionSecret = "super-secret"
		if cfg.HTTPPort != want.HTTPPort || cfg.SQLitePath != want.SQLitePath || cfg.SessionTTL != want.SessionTTL {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
		if cfg.FallbackUsername != "admin" || cfg.FallbackPassword != "" {
			t.Fatalf("unexpected fallback defaults: %q/%q", cfg.FallbackUsername, cfg.FallbackPassword)
		}
		if cfg.ExportRowsPerPage != 25 || cfg.LoginRateLimit != 10 || cfg.LogLevel != "info" {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("parses every variable", func(t *testing.T) {
		t.Parallel()
		cfg, err := parse(envFrom(map[string]string{
			"SCHEDULER_HTTP_PORT":            "9090",
			"SCHEDULER_SQLITE_DSN":           "file:/var/lib/escalas.db?_pragma=foreign_keys(1)",
			"SCHEDULER_SESSION_SECRET":       "secret-value",
			"SCHEDULER_SESSION_TTL":          "8h",
			"SCHEDULER_IDENTITY_CACHE_TTL":   "90s",
			"SCHEDULER_FALLBACK_USERNAME":    "emergencia",
			"SCHEDULER_FALLBACK_PASSWORD":    "troque-me",
			"SCHEDULER_ALLOWED_ORIGINS":      "https://escalas.example.org, http://localhost:5173,",
			"SCHEDULER_CSRF_KEY":             strings.Repeat("c", 32),
			"SCHEDULER_REQUEST_TIMEOUT":      "10s",
			"SCHEDULER_LOGIN_RATE_LIMIT":     "0",
			"SCHEDULER_LOG_LEVEL":            "DEBUG",
			"SCHEDULER_SLOW_QUERY_THRESHOLD": "50ms",
			"SCHEDULER_EXPORT_ROWS_PER_PAGE": "40",
		}))
		if err != nil {
			t.Fatalf("parse returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.SQLitePath != "/var/lib/escalas.db" {
			t.Fatalf("unexpected server settings: %+v", cfg)
		}
		if cfg.SessionTTL != 8*time.Hour || cfg.IdentityCacheTTL != 90*time.Second {
			t.Fatalf("unexpected TTLs: %s %s", cfg.SessionTTL, cfg.IdentityCacheTTL)
		}
		if cfg.FallbackUsername != "emergencia" || cfg.FallbackPassword != "troque-me" {
			t.Fatalf("unexpected fallback: %+v", cfg)
		}
		if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
		}
		if cfg.RequestTimeout != 10*time.Second || cfg.LoginRateLimit != 0 || cfg.LogLevel != "debug" {
			t.Fatalf("unexpected limits: %+v", cfg)
		}
		if cfg.SlowQueryThreshold != 50*time.Millisecond || cfg.ExportRowsPerPage != 40 {
			t.Fatalf("unexpected tuning: %+v", cfg)
		}
	})

	t.Run("reports every problem at once", func(t *testing.T) {
		t.Parallel()
		_, err := parse(envFrom(map[string]string{
			"SCHEDULER_HTTP_PORT":            "http",
			"SCHEDULER_SESSION_TTL":          "-1h",
			"SCHEDULER_LOG_LEVEL":            "verbose",
			"SCHEDULER_EXPORT_ROWS_PER_PAGE": "0",
			"SCHEDULER_CSRF_KEY":             "short",
		}))
		if err == nil {
			t.Fatal("expected error")
		}
		msg := err.Error()
		for _, want := range []string{
			"obrigatórias não definidas: SCHEDULER_SESSION_SECRET",
			"SCHEDULER_HTTP_PORT",
			"SCHEDULER_SESSION_TTL",
			"SCHEDULER_LOG_LEVEL",
			"SCHEDULER_EXPORT_ROWS_PER_PAGE",
			"SCHEDULER_CSRF_KEY",
		} {
			if !strings.Contains(msg, want) {
				t.Fatalf("error %q does not mention %q", msg, want)
			}
		}
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SCHEDULER_SESSION_SECRET=from-file\nSCHEDULER_HTTP_PORT=9191\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("SCHEDULER_SESSION_SECRET", "")
	if err := os.Unsetenv("SCHEDULER_SESSION_SECRET"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	t.Setenv("SCHEDULER_HTTP_PORT", "7000")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if cfg.SessionSecret != "from-file" {
		t.Fatalf("secret = %q, want value from .env", cfg.SessionSecret)
	}
	if cfg.HTTPPort != 7000 {
		t.Fatalf("port = %d, the environment must win over .env", cfg.HTTPPort)
	}

	t.Run("missing file is ignored", func(t *testing.T) {
		t.Setenv("SCHEDULER_SESSION_SECRET", "env-secret")
		cfg, err := LoadFile(filepath.Join(dir, "absent.env"))
		if err != nil {
			t.Fatalf("LoadFile returned error: %v", err)
		}
		if cfg.SessionSecret != "env-secret" {
			t.Fatalf("secret = %q", cfg.SessionSecret)
		}
	})
}
