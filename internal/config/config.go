// Package config loads the server configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultSigningKey is used when JWT_SIGNING_KEY is unset. It must never be
// used in production.
const DefaultSigningKey = "local-dev-signing-key-change-in-production"

// Config is the complete server configuration.
type Config struct {
	App       AppConfig
	Devices   DevicesConfig
	Push      PushConfig
	APNS      APNSConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	PubSub    PubSubConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port     string `yaml:"port" env:"APP_PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"APP_ENV" env-default:"development"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	// RequireTLS rejects requests forwarded as plain HTTP.
	RequireTLS bool `yaml:"require_tls" env:"REQUIRE_TLS" env-default:"false"`
	// FeatureFlagCacheTTL is how long flag values are served from memory.
	FeatureFlagCacheTTL time.Duration `yaml:"feature_flag_cache_ttl" env:"FEATURE_FLAG_CACHE_TTL" env-default:"30s"`
}

type DevicesConfig struct {
	// AllowNewDevices lets unapproved devices see publications.
	AllowNewDevices bool `yaml:"allow_new_devices" env:"ALLOW_NEW_DEVICES" env-default:"false"`
}

type PushConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"PUSH_TIMEOUT" env-default:"10s"`
	TTL     time.Duration `yaml:"ttl" env:"PUSH_TTL" env-default:"24h"`
}

type APNSConfig struct {
	KeyPath     string `yaml:"key_path" env:"APNS_KEY_PATH"`
	KeyID       string `yaml:"key_id" env:"APNS_KEY_ID"`
	TeamID      string `yaml:"team_id" env:"APNS_TEAM_ID"`
	Topic       string `yaml:"topic" env:"APNS_TOPIC"`
	Production  bool   `yaml:"production" env:"APNS_PRODUCTION" env-default:"false"`
	Concurrency int    `yaml:"concurrency" env:"APNS_CONCURRENCY" env-default:"8"`
}

// DatabaseConfig selects PostgreSQL. An empty host keeps all state in memory.
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"simplereader"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" env-default:"localdev"`
	Name            string        `yaml:"name" env:"DB_NAME" env-default:"simplereader"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"2"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"30s"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// RedisConfig enables the publication cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"PUBLICATION_CACHE_TTL" env-default:"5m"`
}

type AuthConfig struct {
	SigningKey    string        `yaml:"signing_key" env:"JWT_SIGNING_KEY"`
	Issuer        string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"simplereader"`
	TokenExpiry   time.Duration `yaml:"token_expiry" env:"JWT_EXPIRY" env-default:"8h"`
	AdminUsername string        `yaml:"admin_username" env:"ADMIN_USERNAME" env-default:"admin"`
	AdminPassword string        `yaml:"admin_password" env:"ADMIN_PASSWORD" env-default:"password"`
}

// PubSubConfig enables audit events when both fields are set.
type PubSubConfig struct {
	ProjectID string        `yaml:"project_id" env:"PUBSUB_PROJECT_ID"`
	Topic     string        `yaml:"topic" env:"PUBSUB_TOPIC"`
	Timeout   time.Duration `yaml:"timeout" env:"PUBSUB_TIMEOUT" env-default:"5s"`
}

// Enabled reports whether a Pub/Sub topic is configured.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != "" && c.Topic != ""
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
}

// Load reads the YAML file named by CONFIG_PATH, if any, and then the
// environment, which takes precedence.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Auth.SigningKey == "" {
		cfg.Auth.SigningKey = DefaultSigningKey
	}

	return &cfg, nil
}

// Validate checks values cleanenv cannot check on its own.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Port == "" {
		errs = append(errs, errors.New("APP_PORT must not be empty"))
	}
	if c.Push.Timeout <= 0 {
		errs = append(errs, errors.New("PUSH_TIMEOUT must be positive"))
	}
	if c.APNS.Concurrency < 1 {
		errs = append(errs, errors.New("APNS_CONCURRENCY must be at least 1"))
	}
	if c.Auth.AdminUsername == "" || c.Auth.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must not be empty"))
	}
	if c.App.Env == "production" && (c.Auth.SigningKey == "" || c.Auth.SigningKey == DefaultSigningKey) {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
	}

	return errors.Join(errs...)
}
