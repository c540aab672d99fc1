package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from configDir, warning but continuing if
// one is absent — the same "missing .env is not fatal" tolerance
// cmd/tarsy/main.go applies before reading environment overrides.
func LoadDotEnv(configDir string) {
	path := filepath.Join(configDir, ".env")
	if err := godotenv.Load(path); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", path, "error", err)
		return
	}
	slog.Info("loaded environment overrides", "path", path)
}

// GetEnv returns the environment variable's value, or defaultValue if unset.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
