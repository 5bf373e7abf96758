package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables using `env` struct tags.
//
// Example:
//
//	type Config struct {
//	    HTTPPort       int `env:"STOCKLEDGER_HTTP_PORT" envDefault:"8010"`
//	    ReservationTTL int `env:"RESERVATION_TTL_SECONDS" envDefault:"86400"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
