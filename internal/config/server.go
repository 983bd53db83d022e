package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Optional. Without it the stats layer falls back to in-process memory
	// and lifetime counters reset on restart.
	PostgresDSN string `env:"POSTGRES_DSN"`

	// Audience for Google ID token verification. Without it logins are
	// rejected and players are matched by display name only.
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	SessionTTLMins   int `env:"SESSION_TTL_MINUTES" envDefault:"720"`
	SessionSweepMins int `env:"SESSION_SWEEP_MINUTES" envDefault:"60"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
