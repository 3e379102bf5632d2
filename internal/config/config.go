// Package config loads the process configuration from environment
// variables (optionally via a .env file), applied once at startup and
// immutable for the process lifetime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/citypulse/city-events/internal/event"
)

// Config is the configuration surface consumed by the ingestion pipeline.
type Config struct {
	DatabasePath  string
	City          string
	RequestDelay  time.Duration // minimum per-host delay between requests
	FetchTimeout  time.Duration // hard timeout per page fetch
	CycleInterval time.Duration
	Sources       []event.Source
	LogLevel      string
}

// Load reads configuration from the environment, falling back to defaults
// matching a local single-catalog deployment.
func Load() (*Config, error) {
	sources, err := parseSources(getEnv("SOURCES", ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabasePath:  getEnv("DATABASE_PATH", "events.db"),
		City:          strings.ToLower(getEnv("CITY", "sydney")),
		RequestDelay:  time.Duration(getEnvInt("SCRAPER_DELAY_SECONDS", 3)) * time.Second,
		FetchTimeout:  time.Duration(getEnvInt("SCRAPER_TIMEOUT_SECONDS", 30)) * time.Second,
		CycleInterval: getEnvDuration("CYCLE_INTERVAL", time.Hour),
		Sources:       sources,
		LogLevel:      strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
	}, nil
}

// parseSources turns a comma-separated enable list into source tags; empty
// means all sources enabled.
func parseSources(raw string) ([]event.Source, error) {
	if strings.TrimSpace(raw) == "" {
		return event.Sources(), nil
	}

	known := make(map[event.Source]bool)
	for _, src := range event.Sources() {
		known[src] = true
	}

	var sources []event.Source
	for _, part := range strings.Split(raw, ",") {
		src := event.Source(strings.ToLower(strings.TrimSpace(part)))
		if src == "" {
			continue
		}
		if !known[src] {
			return nil, fmt.Errorf("unknown source in SOURCES: %q", part)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("SOURCES enables no adapters: %q", raw)
	}
	return sources, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
