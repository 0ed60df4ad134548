package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all engine settings, populated from environment variables.
type Config struct {
	// DataPath is the default crash export to load when the caller does not
	// supply one. Optional: the CLIs accept an explicit -data flag.
	DataPath string

	LogLevel  string
	LogFormat string

	// DatasetCacheEntries caps how many distinct source files the cached
	// loader keeps normalized datasets for.
	DatasetCacheEntries int

	// SessionTTL is how long an idle session survives before the sweeper
	// evicts it; SessionSweepInterval is how often the sweeper runs.
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is folded in first and
// never overrides variables already exported.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cacheEntries, err := envInt("DATASET_CACHE_ENTRIES", 8)
	if err != nil {
		return nil, err
	}

	sessionTTL, err := envDuration("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := envDuration("SESSION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		DataPath:             envOrDefault("CRASH_DATA_PATH", ""),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
		LogFormat:            envOrDefault("LOG_FORMAT", "json"),
		DatasetCacheEntries:  cacheEntries,
		SessionTTL:           sessionTTL,
		SessionSweepInterval: sweepInterval,
	}, nil
}

// envOrDefault returns the variable's value, or def when unset or blank.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt parses a positive integer variable, defaulting when unset.
func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q is not a positive integer", key, s)
	}
	return n, nil
}

// envDuration parses a positive duration variable, defaulting when unset.
func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q is not a positive duration", key, s)
	}
	return d, nil
}
