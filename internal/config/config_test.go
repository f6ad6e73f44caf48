package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coursegate.yaml")
	data := `
server:
  port: 9090
  requests_per_minute: 30
database:
  driver: sqlite
  dsn: "file:test.db"
auth:
  issuer: "https://clerk.example.com"
webhook:
  secret: "whsec_abc"
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.RequestsPerMinute != 30 {
		t.Errorf("requests per minute = %d", cfg.Server.RequestsPerMinute)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "file:test.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Auth.Issuer != "https://clerk.example.com" {
		t.Errorf("issuer = %q", cfg.Auth.Issuer)
	}
	if cfg.Webhook.Secret != "whsec_abc" {
		t.Errorf("webhook secret = %q", cfg.Webhook.Secret)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COURSEGATE_DATABASE_DRIVER", "sqlite")
	t.Setenv("COURSEGATE_DATABASE_DSN", "file:env.db")
	t.Setenv("COURSEGATE_AUTH_ISSUER", "https://env.example.com")
	t.Setenv("COURSEGATE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("COURSEGATE_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "file:env.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Auth.Issuer != "https://env.example.com" {
		t.Errorf("issuer = %q", cfg.Auth.Issuer)
	}
	if cfg.Webhook.Secret != "whsec_env" {
		t.Errorf("webhook secret = %q", cfg.Webhook.Secret)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("COURSEGATE_DATABASE_DRIVER", "oracle")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
