package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
	if c.Storage.Driver != StorageMemory {
		t.Errorf("driver = %q, want memory", c.Storage.Driver)
	}
	if c.Auth.JWTSecret != DevSecret {
		t.Errorf("jwt secret = %q, want dev secret", c.Auth.JWTSecret)
	}
	if c.TokenTTL() != time.Hour {
		t.Errorf("token ttl = %v, want 1h", c.TokenTTL())
	}
	if c.RateLimit.Requests != 100 || c.RateLimitWindow() != time.Minute {
		t.Errorf("rate limit = %d per %v", c.RateLimit.Requests, c.RateLimitWindow())
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
storage:
  driver: sqlite
  db_path: /tmp/chores.db
auth:
  jwt_secret: from-file
rate_limit:
  requests: 50
`)
	t.Setenv("CHORES_PORT", "9100")
	t.Setenv("RATE_LIMIT_WINDOW", "30")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9100 {
		t.Errorf("port = %d, want env value 9100", c.Server.Port)
	}
	if c.Storage.Driver != StorageSQLite || c.Storage.DBPath != "/tmp/chores.db" {
		t.Errorf("storage = %+v", c.Storage)
	}
	if c.RateLimit.Requests != 50 {
		t.Errorf("requests = %d, want file value 50", c.RateLimit.Requests)
	}
	if c.RateLimitWindow() != 30*time.Second {
		t.Errorf("window = %v, want 30s", c.RateLimitWindow())
	}
	if c.Log.Level != "info" {
		t.Errorf("log level = %q, want default info", c.Log.Level)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "unknown storage driver"},
		{"sqlite without secret", func(c *Config) { c.Storage.Driver = StorageSQLite }, "jwt_secret"},
		{"postgres without url", func(c *Config) {
			c.Storage.Driver = StoragePostgres
			c.Auth.JWTSecret = "s"
		}, "database_url"},
		{"zero requests", func(c *Config) { c.RateLimit.Requests = 0 }, "rate limit"},
		{"one vapid key", func(c *Config) { c.Push.VAPIDPublicKey = "pub" }, "VAPID"},
		{"bad port", func(c *Config) { c.Server.Port = -1 }, "invalid port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
