// Package config loads Coursegate configuration from an optional YAML
// file with COURSEGATE_* environment overrides. The service-role database
// credential and the webhook secret live only here; no other layer is
// trusted to hold them.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// RequestsPerMinute caps per-IP traffic on the enrollment and webhook
	// endpoints; this is transport-level limiting, separate from the
	// per-identity enrollment attempt ceiling.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// DatabaseConfig points at the relational store. The DSN carries the
// elevated (service-role-equivalent) credential.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuthConfig pins the identity provider. Tokens are accepted from this
// issuer only, and signing keys are fetched from its JWKS endpoint.
type AuthConfig struct {
	Issuer string `yaml:"issuer"`
}

// WebhookConfig holds the identity provider's shared webhook secret.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with production defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ShutdownTimeout:   30 * time.Second,
			CORSOrigins:       []string{"*"},
			RequestsPerMinute: 120,
		},
		Database: DatabaseConfig{
			Driver: "pgx",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (optional; missing file is fine) and
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.Database.Driver != "pgx" && cfg.Database.Driver != "sqlite" {
		return cfg, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return cfg, nil
}

// applyEnv overlays COURSEGATE_* environment variables on the config.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("COURSEGATE")
	v.AutomaticEnv()

	if s := v.GetString("DATABASE_DSN"); s != "" {
		cfg.Database.DSN = s
	}
	if s := v.GetString("DATABASE_DRIVER"); s != "" {
		cfg.Database.Driver = s
	}
	if s := v.GetString("AUTH_ISSUER"); s != "" {
		cfg.Auth.Issuer = s
	}
	if s := v.GetString("WEBHOOK_SECRET"); s != "" {
		cfg.Webhook.Secret = s
	}
	if s := v.GetString("LOG_LEVEL"); s != "" {
		cfg.Logging.Level = s
	}
	if p := v.GetInt("PORT"); p != 0 {
		cfg.Server.Port = p
	}
}
