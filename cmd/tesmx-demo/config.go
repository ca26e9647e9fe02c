package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// config is read from TESMX_* environment variables, optionally via a .env
// file in the working directory. Flags override it.
type config struct {
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty   bool          `env:"LOG_PRETTY" envDefault:"true"`
	Scale       float64       `env:"SCALE" envDefault:"0.0001"`
	Duration    time.Duration `env:"DURATION" envDefault:"3s"`
	TickRate    time.Duration `env:"TICK_RATE"`
	ResetEvery  time.Duration `env:"RESET_EVERY"`
	History     int           `env:"HISTORY" envDefault:"64"`
	OutDir      string        `env:"OUT_DIR"`
	Format      string        `env:"FORMAT" envDefault:"json"`
	MetricsAddr string        `env:"METRICS_ADDR"`
}

func loadConfig() (config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TESMX_"}); err != nil {
		return config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	}
	switch c.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown snapshot format %q", c.Format)
	}
	return nil
}
