package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process settings taken from the environment.
type Env struct {
	LogLevel  string `env:"DYNBIND_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"DYNBIND_LOG_FORMAT" envDefault:"text"`
	Device    string `env:"DYNBIND_DEVICE"`
	Ranks     int    `env:"DYNBIND_RANKS" envDefault:"1"`
	DataDir   string `env:"DYNBIND_DATA_DIR" envDefault:".dynbind"`
}

func LoadEnv() (Env, error) {
	return loadEnv(env.Options{})
}

// LoadEnvFrom reads settings from vars instead of the process environment.
func LoadEnvFrom(vars map[string]string) (Env, error) {
	return loadEnv(env.Options{Environment: vars})
}

func loadEnv(opts env.Options) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return Env{}, fmt.Errorf("config: environment: %w", err)
	}
	if e.Ranks < 1 {
		return Env{}, fmt.Errorf("%w: DYNBIND_RANKS must be positive, got %d", ErrInvalidConfig, e.Ranks)
	}
	return e, nil
}

// ApplyEnv lets the environment override the description's device.
func (c *Config) ApplyEnv(e Env) {
	if e.Device != "" {
		c.Device = e.Device
	}
}
