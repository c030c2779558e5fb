// Package config provides centralized configuration management for
// leadgate. Values resolve in three layers: baked-in defaults, an
// optional YAML config file, and LEADGATE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// BinaryName is the canonical executable and service name.
	BinaryName = "leadgate"

	// EnvPrefix namespaces environment overrides, e.g.
	// LEADGATE_AIRTABLE_TOKEN.
	EnvPrefix = "LEADGATE"
)

// DefaultStorePath returns the default on-disk location of the libsql
// store.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".leadgate", "leadgate.db")
	}
	return filepath.Join(home, ".local", "share", BinaryName, "leadgate.db")
}

// SetDefaults registers every default configuration value with viper.
// Called once from the CLI before any config read.
func SetDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("store.driver", "libsql")
	viper.SetDefault("store.path", DefaultStorePath())
	viper.SetDefault("store.url", "")
	viper.SetDefault("store.auth_token", "")

	viper.SetDefault("cache.generation", "v1")
	viper.SetDefault("cache.manifest_path", "")
	viper.SetDefault("cache.root_document", "/")

	viper.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	viper.SetDefault("airtable.token", "")
	viper.SetDefault("airtable.allowed_base", "applOjDjhH0RqLtBH")
	viper.SetDefault("airtable.allowed_tables", []string{"tblMptC862PyL7Znw", "tblQF9V8cV0rUQGVp"})
	viper.SetDefault("airtable.timeout", "30s")

	viper.SetDefault("scoring.base_url", "https://api.openai.com/v1")
	viper.SetDefault("scoring.token", "")
	viper.SetDefault("scoring.model", "gpt-4o-mini")
	viper.SetDefault("scoring.timeout", "30s")

	viper.SetDefault("origin.url", "http://localhost:3000")
	viper.SetDefault("origin.fonts_hosts", []string{"fonts.googleapis.com", "fonts.gstatic.com"})
	viper.SetDefault("origin.timeout", "30s")

	viper.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("rate_limit.requests", 1000)
	viper.SetDefault("rate_limit.window", "60s")
	viper.SetDefault("rate_limit.store", "memory")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
}

// Load decodes the resolved viper state into a typed Config.
func Load() (*Config, error) {
	var cfg Config
	err := viper.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(c.Airtable.AllowedBase) == "" {
		return fmt.Errorf("airtable.allowed_base is required")
	}
	if len(c.Airtable.AllowedTables) == 0 {
		return fmt.Errorf("airtable.allowed_tables must list at least one table")
	}
	if strings.TrimSpace(c.Origin.URL) == "" {
		return fmt.Errorf("origin.url is required")
	}
	if strings.TrimSpace(c.Cache.Generation) == "" {
		return fmt.Errorf("cache.generation is required")
	}

	switch c.RateLimit.Store {
	case "", "memory", "libsql":
	default:
		return fmt.Errorf("rate_limit.store must be memory or libsql, got %q", c.RateLimit.Store)
	}

	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must not be negative")
	}

	return nil
}
