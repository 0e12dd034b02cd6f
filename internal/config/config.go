// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/pickem.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR"`

	// RedisURL is optional. Empty disables Redis publishing and its health check.
	RedisURL            string `env:"REDIS_URL"`
	NotifyChannelPrefix string `env:"NOTIFY_CHANNEL_PREFIX" envDefault:"pickem:game:"`

	GameTTL           time.Duration `env:"GAME_TTL" envDefault:"24h"`
	JoinRatePerMinute int           `env:"JOIN_RATE_PER_MINUTE" envDefault:"30"`
	SeedDemo          bool          `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.GameTTL <= 0 {
		return nil, fmt.Errorf("GAME_TTL must be positive, got %s", cfg.GameTTL)
	}
	return &cfg, nil
}
