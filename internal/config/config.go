// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultMaxUploadSize is the per-file upload cap (1.5 GiB).
const DefaultMaxUploadSize = int64(1536) * 1024 * 1024

// Config holds all server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	StoragePath string

	// Static icon/MIME table (optional YAML file)
	IconsFile string

	// Uploads
	MaxUploadSize int64

	// Write-operation rate limit per resource key (0 = unlimited)
	RateLimitPerMin int
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:      envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:     envOr("METRICS_ADDR", ":9090"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "json"),
		StoragePath:     envOr("STORAGE_PATH", "/data/storage"),
		IconsFile:       envOr("ICONS_FILE", ""),
		MaxUploadSize:   envInt64("MAX_UPLOAD_SIZE", DefaultMaxUploadSize),
		RateLimitPerMin: envInt("RATE_LIMIT_PER_MINUTE", 0),
	}

	if cfg.StoragePath == "" {
		return nil, fmt.Errorf("STORAGE_PATH is required")
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
