package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration, loaded from environment
// variables.
type Config struct {
	DatabaseURL string        `env:"DATABASE_URL,notEmpty"`
	Port        string        `env:"PORT" envDefault:"8080"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"12"`
	DevMode     bool          `env:"DEV_MODE" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return &cfg, nil
}
