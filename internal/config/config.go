package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Advisor  AdvisorConfig
	S3       S3Config
	Seed     SeedConfig
	Kafka    KafkaConfig
	Session  SessionConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host           string   `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port           int      `envconfig:"SERVER_PORT" default:"8080"`
	PublicURL      string   `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `envconfig:"DB_HOST" default:"localhost"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"postgres"`
	Password        string `envconfig:"DB_PASSWORD"`
	Database        string `envconfig:"DB_NAME" default:"vapestore"`
	MaxConnections  int    `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int    `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime int    `envconfig:"DB_MAX_CONN_LIFETIME" default:"300"` // seconds
	MigrateOnStart  bool   `envconfig:"MIGRATE_ON_START" default:"true"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds the admin API key.
type AuthConfig struct {
	APIKey string `envconfig:"ADMIN_API_KEY"`
}

// PaymentConfig holds the payment gateway credentials.
type PaymentConfig struct {
	AccessToken         string        `envconfig:"MP_ACCESS_TOKEN"`
	WebhookSecret       string        `envconfig:"MP_WEBHOOK_SECRET"`
	BaseURL             string        `envconfig:"MP_BASE_URL" default:"https://api.mercadopago.com"`
	Currency            string        `envconfig:"STORE_CURRENCY" default:"UYU"`
	StatementDescriptor string        `envconfig:"STATEMENT_DESCRIPTOR" default:"VAPEDELESTE"`
	Timeout             time.Duration `envconfig:"MP_TIMEOUT" default:"15s"`
}

// AdvisorConfig holds the hosted language model settings. An empty API key
// disables the advisor.
type AdvisorConfig struct {
	APIKey        string        `envconfig:"GEMINI_API_KEY"`
	Model         string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	BaseURL       string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout       time.Duration `envconfig:"GEMINI_TIMEOUT" default:"60s"`
	HandoffNumber string        `envconfig:"HANDOFF_WHATSAPP_NUMBER" default:"59800000000"`
}

// Enabled reports whether the advisor can be used.
func (c AdvisorConfig) Enabled() bool {
	return c.APIKey != ""
}

// S3Config holds AWS S3 configuration for seed catalogs and product images.
type S3Config struct {
	Enabled       bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket        string `envconfig:"S3_BUCKET"`
	Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	Prefix        string `envconfig:"S3_PREFIX" default:"catalog/"` // Path prefix within bucket
	PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`
}

// SeedConfig controls the one-time catalog seed.
type SeedConfig struct {
	Files   []string `envconfig:"SEED_FILES" default:"data/catalog.yaml"`
	OnStart bool     `envconfig:"SEED_ON_START" default:"true"`
}

// KafkaConfig holds order event publishing configuration.
type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"order-events"`
}

// SessionConfig holds visitor session settings.
type SessionConfig struct {
	TTL          time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	CookieSecure bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
}

// Load loads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadStore loads configuration for tools that only talk to the database.
// Server, payment and auth settings are not validated.
func LoadStore() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateStore(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func process() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")
	cfg.Payment.BaseURL = strings.TrimRight(cfg.Payment.BaseURL, "/")
	cfg.Advisor.BaseURL = strings.TrimRight(cfg.Advisor.BaseURL, "/")

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if u, err := url.Parse(c.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid public URL: %q", c.Server.PublicURL)
	}

	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("admin API key is required")
	}

	if c.Payment.AccessToken == "" {
		return fmt.Errorf("payment access token is required")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment webhook secret is required")
	}

	if c.Payment.Currency == "" {
		return fmt.Errorf("store currency is required")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	return nil
}

// ValidateStore validates the database, logger and S3 settings.
func (c *Config) ValidateStore() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
