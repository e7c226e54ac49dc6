package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvLoader loads a .env file (if present) into the process environment
// before ConfigLoader's viper.AutomaticEnv picks it up. A missing .env
// file is not an error — it's the normal case outside local development.
type EnvLoader struct {
	envFiles []string
	loaded   bool
}

// NewEnvLoader creates a loader for the given .env file paths, defaulting
// to "./.env".
func NewEnvLoader(envFiles ...string) *EnvLoader {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	return &EnvLoader{envFiles: envFiles}
}

// Load reads every configured .env file into the process environment.
// Idempotent.
func (e *EnvLoader) Load() error {
	if e.loaded {
		return nil
	}

	for _, envFile := range e.envFiles {
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	e.loaded = true
	return nil
}

// GetString returns an environment variable or defaultValue.
func (e *EnvLoader) GetString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetBool returns an environment variable parsed as a bool, or
// defaultValue if unset or unparseable.
func (e *EnvLoader) GetBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetDuration returns an environment variable parsed as a time.Duration,
// or defaultValue if unset or unparseable.
func (e *EnvLoader) GetDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}
