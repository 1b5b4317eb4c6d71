package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// dotenvFile is loaded into the process environment when present. Variables
// already set in the environment win.
var dotenvFile = ".env"

// parseEnv overlays environment variables on cfg. Unset variables leave the
// current values untouched.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotenvFile, err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
