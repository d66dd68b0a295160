package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// sessionLifetimeEnv is given in seconds, unlike the JSON field.
const sessionLifetimeEnv = "SESSION_LIFETIME"

// parseEnv loads dotenvPath into the process environment (a missing file is
// not an error, variables already set win) and then overlays every variable
// that is present onto config.
func parseEnv(config *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if raw, ok := os.LookupEnv(sessionLifetimeEnv); ok && raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse env: %s: %w", sessionLifetimeEnv, err)
		}
		config.SessionLifetime = time.Duration(secs) * time.Second
	}
	return nil
}
