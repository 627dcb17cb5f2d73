package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g.
// CAMPAIGND_RELAY_EMAIL_URL or CAMPAIGND_STORAGE_PATH.
const EnvPrefix = "CAMPAIGND_"

// ApplyEnv overrides cfg fields from the environment. Unset variables leave
// the file value untouched.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, nil)
}

func applyEnv(cfg *Config, environ map[string]string) error {
	if cfg == nil {
		return nil
	}
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	return nil
}
