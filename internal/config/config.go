package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the explorer services
type Config struct {
	// Dataset
	DatasetPath    string
	WatchDataset   bool
	ReloadDebounce time.Duration

	// Snapshot store
	DatabaseURL  string // Postgres; empty selects SQLite
	DatabasePath string // SQLite file

	// HTTP server
	Port           int
	AllowedOrigins []string

	// Export artifacts
	ExportDir string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// Dataset
		DatasetPath:    getEnv("STATION_DATASET", "data/station.csv"),
		WatchDataset:   getEnvBool("WATCH_DATASET", true),
		ReloadDebounce: time.Duration(getEnvInt("RELOAD_DEBOUNCE_MS", 500)) * time.Millisecond,

		// Snapshot store
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DatabasePath: getEnv("SQLITE_DATABASE", "data/explorer.db"),

		// HTTP server
		Port:           getEnvInt("PORT", 8080),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		// Export artifacts
		ExportDir: getEnv("EXPORT_DIR", "data/export"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
