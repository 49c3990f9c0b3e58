// Package config loads settings from a YAML file with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Push      PushConfig      `yaml:"push"`
	Backup    BackupConfig    `yaml:"backup"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	OriginPatterns []string `yaml:"origin_patterns"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	DBPath      string `yaml:"db_path"`
	DatabaseURL string `yaml:"database_url"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
}

type BackupConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Passphrase    string `yaml:"passphrase"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

// DevSecret signs tokens when no secret is configured for the memory
// backend. Validate rejects it for durable storage.
const DevSecret = "dev-secret-change-me"

func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Storage:   StorageConfig{Driver: StorageMemory, DBPath: "choretracker.db"},
		Log:       LogConfig{Level: "info", Format: "text", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Auth:      AuthConfig{TokenTTLMinutes: 60},
		RateLimit: RateLimitConfig{Requests: 100, WindowSeconds: 60},
		Push:      PushConfig{Subscriber: "mailto:admin@localhost"},
		Backup:    BackupConfig{Region: "us-east-1", IntervalHours: 24, RetentionDays: 30},
	}
}

// Load applies defaults, then the first readable YAML file, then the
// environment. An explicitly named file that cannot be read is an error.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := []string{"choretracker.yaml", "/etc/choretracker/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	envOverrideInt(&c.Server.Port, "CHORES_PORT")
	envOverride(&c.Storage.Driver, "CHORES_STORAGE")
	envOverride(&c.Storage.DBPath, "CHORES_DB_PATH")
	envOverride(&c.Storage.DatabaseURL, "CHORES_DATABASE_URL")
	envOverride(&c.Log.Level, "CHORES_LOG_LEVEL")
	envOverride(&c.Log.Format, "CHORES_LOG_FORMAT")
	envOverride(&c.Log.File, "CHORES_LOG_FILE")
	envOverride(&c.Auth.JWTSecret, "CHORES_JWT_SECRET")
	envOverrideInt(&c.Auth.TokenTTLMinutes, "CHORES_TOKEN_TTL_MINUTES")
	envOverrideInt(&c.RateLimit.Requests, "RATE_LIMIT_REQUESTS")
	envOverrideInt(&c.RateLimit.WindowSeconds, "RATE_LIMIT_WINDOW")
	envOverride(&c.Push.VAPIDPublicKey, "CHORES_VAPID_PUBLIC_KEY")
	envOverride(&c.Push.VAPIDPrivateKey, "CHORES_VAPID_PRIVATE_KEY")
	envOverride(&c.Push.Subscriber, "CHORES_VAPID_SUBSCRIBER")
	envOverride(&c.Backup.Endpoint, "CHORES_BACKUP_ENDPOINT")
	envOverride(&c.Backup.Bucket, "CHORES_BACKUP_BUCKET")
	envOverride(&c.Backup.Region, "CHORES_BACKUP_REGION")
	envOverride(&c.Backup.AccessKey, "CHORES_BACKUP_ACCESS_KEY")
	envOverride(&c.Backup.SecretKey, "CHORES_BACKUP_SECRET_KEY")
	envOverride(&c.Backup.Passphrase, "CHORES_BACKUP_PASSPHRASE")
	envOverrideInt(&c.Backup.IntervalHours, "CHORES_BACKUP_INTERVAL_HOURS")
	envOverrideInt(&c.Backup.RetentionDays, "CHORES_BACKUP_RETENTION_DAYS")
}

// Validate checks the settings and fills in the development secret for
// the memory backend.
func (c *Config) Validate() error {
	var errs []error

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case StorageMemory:
		if c.Auth.JWTSecret == "" {
			c.Auth.JWTSecret = DevSecret
		}
	case StorageSQLite:
		if c.Storage.DBPath == "" {
			errs = append(errs, errors.New("storage.db_path is required for sqlite"))
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if c.Storage.Driver != StorageMemory && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevSecret) {
		errs = append(errs, errors.New("auth.jwt_secret must be set for durable storage"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("auth.token_ttl_minutes must be positive"))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.WindowSeconds <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("both VAPID keys must be set together"))
	}

	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func (c *Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
