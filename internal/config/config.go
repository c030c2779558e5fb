package config

import "time"

// Config is the complete application configuration, loaded from
// defaults, an optional YAML file, and LEADGATE_* environment
// variables (secrets come only from the environment).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Airtable AirtableConfig `mapstructure:"airtable"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Origin   OriginConfig   `mapstructure:"origin"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig controls the edge response cache.
type CacheConfig struct {
	// Generation tags every cache write; changing it invalidates all
	// previously stored entries at activation.
	Generation string `mapstructure:"generation"`

	// ManifestPath points at the YAML shell-asset manifest precached
	// at startup.
	ManifestPath string `mapstructure:"manifest_path"`

	// RootDocument is the path served as the offline fallback for
	// HTML navigations.
	RootDocument string `mapstructure:"root_document"`
}

// AirtableConfig scopes the pass-through proxy.
type AirtableConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`

	// AllowedBase and AllowedTables form the path allow-list; requests
	// outside them are rejected before anything is forwarded.
	AllowedBase   string        `mapstructure:"allowed_base"`
	AllowedTables []string      `mapstructure:"allowed_tables"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ScoringConfig configures the intent-score completion call.
type ScoringConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OriginConfig locates the dashboard origin the gateway fronts.
type OriginConfig struct {
	URL string `mapstructure:"url"`

	// FontsHosts are the cross-origin hosts whose responses are
	// cache-first; everything else cross-origin passes through.
	FontsHosts []string      `mapstructure:"fonts_hosts"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CORSConfig holds the browser origin allow-list for /api routes.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig sets the advisory per-client budget.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`

	// Store selects the window store: "memory" (per-instance) or
	// "libsql" (shared across instances).
	Store string `mapstructure:"store"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}
