package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config carries runtime settings sourced from the environment. Authored
// game tuning lives in the Tuning file instead; see tuning.go.
type Config struct {
	Environment string
	LogLevel    slog.Level
	ContentDir  string
	TuningPath  string
	SaveDir     string
	SaveSlot    string
	RedisAddr   string // empty means the file-backed save store
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		ContentDir:  getEnv("CONTENT_DIR", "./content"),
		TuningPath:  getEnv("TUNING_PATH", "./content/tuning.yaml"),
		SaveDir:     getEnv("SAVE_DIR", "./saves"),
		SaveSlot:    getEnv("SAVE_SLOT", "slot1"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
