package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Rates    RatesConfig
	Events   EventsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/pasanaku.db"`
}

// AuthConfig holds token verification configuration.
type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenDuration time.Duration `env:"TOKEN_DURATION" envDefault:"24h"`
}

// RatesConfig holds exchange-rate feed configuration. The feed is display
// only and never affects core accounting.
type RatesConfig struct {
	URL   string        `env:"RATES_URL" envDefault:"https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"`
	Asset string        `env:"RATES_ASSET" envDefault:"USDT"`
	Fiat  string        `env:"RATES_FIAT" envDefault:"BOB"`
	TTL   time.Duration `env:"RATES_TTL" envDefault:"5m"`
}

// EventsConfig holds event dispatcher configuration.
type EventsConfig struct {
	Buffer int `env:"EVENT_BUFFER" envDefault:"256"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}
	if err := env.Parse(&cfg.Rates); err != nil {
		return nil, fmt.Errorf("parsing rates config: %w", err)
	}
	if err := env.Parse(&cfg.Events); err != nil {
		return nil, fmt.Errorf("parsing events config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	return nil
}
