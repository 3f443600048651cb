// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Ledger drivers accepted by LEDGER_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all settings for the API server and the token tool.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	WebDir string `env:"WEB_DIR" envDefault:"./web"`

	LedgerDriver string `env:"LEDGER_DRIVER" envDefault:"postgres"`
	// LockTimeout bounds how long a register or cancel call may wait for its
	// atomic scope before failing as transient.
	LockTimeout time.Duration `env:"REGISTRATION_LOCK_TIMEOUT" envDefault:"5s"`

	Database   Database `envPrefix:"DB_"`
	SQLitePath string   `env:"SQLITE_PATH" envDefault:"data/events.db"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"event-reg-coordinator"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"2h"`

	// RabbitMQURL enables registration notifications when set.
	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"registrations"`

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"event-reg-coordinator"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME" envDefault:"eventbooking"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"20"`
	MinConns int32  `env:"MIN_CONNS" envDefault:"2"`
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LedgerDriver = strings.ToLower(strings.TrimSpace(cfg.LedgerDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.LedgerDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown LEDGER_DRIVER %q", c.LedgerDriver)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("REGISTRATION_LOCK_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}
