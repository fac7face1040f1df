package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PATH", "")
	t.Setenv("STORAGE_DIR", "")
	t.Setenv("SIGNING_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("ENV", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SIGNED_URL_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != defaultDBPath {
		t.Errorf("expected default DB path %q, got %q", defaultDBPath, cfg.DBPath)
	}

	if cfg.StorageDir != defaultStorageDir {
		t.Errorf("expected default storage dir %q, got %q", defaultStorageDir, cfg.StorageDir)
	}

	if cfg.ServerPort != defaultServerPort {
		t.Errorf("expected default server port %d, got %d", defaultServerPort, cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.SignedURLTTL != time.Hour {
		t.Errorf("expected signed URL TTL of one hour, got %s", cfg.SignedURLTTL)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when SIGNING_SECRET is missing")
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/research.db")
	t.Setenv("STORAGE_DIR", "/tmp/attachments")
	t.Setenv("SIGNING_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SENTRY_DSN", "dsn")
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_TTL", "48h")
	t.Setenv("SIGNED_URL_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != "/tmp/research.db" {
		t.Errorf("expected DB path %q, got %q", "/tmp/research.db", cfg.DBPath)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}

	if cfg.SessionTTL != 48*time.Hour {
		t.Errorf("expected session TTL 48h, got %s", cfg.SessionTTL)
	}

	if cfg.SignedURLTTL != 30*time.Minute {
		t.Errorf("expected signed URL TTL 30m, got %s", cfg.SignedURLTTL)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "secret")
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid SERVER_PORT")
	}

	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected error to mention SERVER_PORT, got %v", err)
	}
}

func TestLoadRejectsInvalidSignedURLTTL(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "secret")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SIGNED_URL_TTL", "sixty minutes")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid SIGNED_URL_TTL")
	}
}
