package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Selection struct {
		Restarts     int    `env:"SELECT_RESTARTS" envDefault:"25"`
		Method       string `env:"SELECT_METHOD" envDefault:"fast_random"`
		MaxBatchSize int    `env:"SELECT_MAX_BATCH_SIZE" envDefault:"64"`
		Seed         int64  `env:"SELECT_SEED" envDefault:"0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Default to verbose logging in development
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if cfg.Selection.Restarts < 1 {
		return nil, fmt.Errorf("SELECT_RESTARTS must be at least 1, got %d", cfg.Selection.Restarts)
	}
	if cfg.Selection.MaxBatchSize < 1 {
		return nil, fmt.Errorf("SELECT_MAX_BATCH_SIZE must be at least 1, got %d", cfg.Selection.MaxBatchSize)
	}

	return cfg, nil
}
