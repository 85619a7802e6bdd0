// Package config provides configuration management for the application.
//
// Configuration is layered: optional YAML file, then .env file, then
// process environment, with the environment winning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Email   EmailConfig   `yaml:"email"`
	Logging LoggingConfig `yaml:"logging"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string `yaml:"port"`
	BodyLimit       string `yaml:"body_limit"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

// StorageConfig selects and configures the durable backend.
type StorageConfig struct {
	// Type is "sqlite" or "postgresql".
	Type        string `yaml:"type"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
}

// RedisConfig configures the key-value store. An empty URL selects the
// in-process store.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// EmailConfig configures outbound transactional email. An empty API key
// selects the log-only sender.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	SiteName       string `yaml:"site_name"`
}

// LoggingConfig selects the log handler.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE),
// a .env file, and the environment.
func Load() (*Config, error) {
	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			BodyLimit:       "1M",
			ShutdownSeconds: 10,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			SQLitePath: "realtorsblue.db",
		},
		Redis: RedisConfig{},
		Email: EmailConfig{
			FromEmail: "noreply@2020realtors.example",
			FromName:  "2020 Realtors",
			SiteName:  "2020 Realtors",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
		Session: SessionConfig{
			TTL: 7 * 24 * time.Hour,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.BodyLimit, "BODY_LIMIT")
	setInt(&cfg.Server.ShutdownSeconds, "SHUTDOWN_SECONDS")

	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Storage.PostgresURL, "DATABASE_URL")

	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.KeyPrefix, "REDIS_KEY_PREFIX")

	setString(&cfg.Email.SendGridAPIKey, "SENDGRID_API_KEY")
	setString(&cfg.Email.FromEmail, "EMAIL_FROM")
	setString(&cfg.Email.FromName, "EMAIL_FROM_NAME")
	setString(&cfg.Email.SiteName, "SITE_NAME")

	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = d
		}
	}
}

// Validate rejects configurations the app cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite storage requires a database path")
		}
	case "postgresql":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgresql storage requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
