package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Documentation tree
	DocsRoot string

	// Auth; empty disables authentication.
	APIKey string

	// Search
	MaxSearchResults int

	// Parsing
	MaxIncludeDepth  int
	BuildConcurrency int

	// HTTP server
	ShutdownTimeout time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("DOCSTRUCT_PORT", "8095"),

		DocsRoot: envOr("DOCSTRUCT_DOCS_ROOT", "./docs"),

		APIKey: os.Getenv("DOCSTRUCT_API_KEY"),

		MaxSearchResults: envInt("DOCSTRUCT_MAX_SEARCH_RESULTS", 50),

		MaxIncludeDepth:  envInt("DOCSTRUCT_MAX_INCLUDE_DEPTH", 20),
		BuildConcurrency: envInt("DOCSTRUCT_BUILD_CONCURRENCY", 8),

		ShutdownTimeout: envDuration("DOCSTRUCT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 50
	}
	if cfg.MaxIncludeDepth <= 0 {
		cfg.MaxIncludeDepth = 20
	}
	if cfg.BuildConcurrency <= 0 {
		cfg.BuildConcurrency = 8
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	info, err := os.Stat(c.DocsRoot)
	if err != nil {
		return fmt.Errorf("DOCSTRUCT_DOCS_ROOT %q: %w", c.DocsRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("DOCSTRUCT_DOCS_ROOT %q is not a directory", c.DocsRoot)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
