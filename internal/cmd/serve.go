package cmd

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/leadgate/leadgate/internal/airtable"
	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/core/engine"
	"github.com/leadgate/leadgate/internal/core/store"
	errwrap "github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/observability"
	"github.com/leadgate/leadgate/internal/scoring"
	"github.com/leadgate/leadgate/internal/server"
	"github.com/leadgate/leadgate/internal/server/handlers"
	"github.com/leadgate/leadgate/internal/webcache"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// originHealthChecker probes the dashboard origin the gateway fronts.
type originHealthChecker struct {
	url string
}

func (c originHealthChecker) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the edge gateway",
	Long: `Start the edge gateway with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

On startup the gateway purges cache entries from older generations and,
when a manifest is configured, pre-populates the shell-asset cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid configuration")
		}

		// Initialize server logger
		observability.InitServerLogger(config.BinaryName, cfg.Logging.Level)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.BinaryName, cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		observability.ServerLogger.Info("Initializing gateway",
			zap.String("service", config.BinaryName),
			zap.String("version", versionInfo.Version),
			zap.String("host", serverHost),
			zap.Int("port", serverPort),
			zap.String("cache_generation", cfg.Cache.Generation))

		// Persistent store backs the response cache and, when
		// configured, the rate-limit windows.
		db, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "failed to open store")
		}
		if err := db.Migrate(cmd.Context()); err != nil {
			_ = db.Close()
			return errwrap.WrapDatabaseError(cmd.Context(), err, "failed to migrate store")
		}

		limiter := buildLimiter(cfg, db)
		gateway, err := buildGateway(cfg, db)
		if err != nil {
			_ = db.Close()
			return err
		}

		// Activate: drop entries written under older generations.
		purged, err := gateway.Activate(cmd.Context())
		if err != nil {
			observability.ServerLogger.Warn("Cache generation purge failed", zap.Error(err))
		} else if purged > 0 {
			observability.ServerLogger.Info("Purged old cache generations",
				zap.Int64("entries", purged),
				zap.String("generation", cfg.Cache.Generation))
		}

		// Install: pre-populate the shell-asset cache when a manifest
		// is configured. A cold cache is not fatal.
		if cfg.Cache.ManifestPath != "" {
			manifest, err := webcache.LoadManifest(cfg.Cache.ManifestPath)
			if err != nil {
				observability.ServerLogger.Warn("Failed to load precache manifest", zap.Error(err))
			} else if stored, err := gateway.Precache(cmd.Context(), manifest); err != nil {
				observability.ServerLogger.Warn("Precache incomplete",
					zap.Int("stored", stored),
					zap.Error(err))
			} else {
				observability.ServerLogger.Info("Precached shell assets", zap.Int("assets", stored))
			}
		}

		// Health manager
		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("store", db)
		hm.RegisterChecker("origin", originHealthChecker{url: cfg.Origin.URL})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		rules := airtable.NewRuleset(cfg.Airtable.AllowedBase, cfg.Airtable.AllowedTables)
		airtableClient := airtable.NewClient(cfg.Airtable.BaseURL, cfg.Airtable.Token)
		airtableClient.Timeout = cfg.Airtable.Timeout

		scoringClient := scoring.NewClient(cfg.Scoring.BaseURL, cfg.Scoring.Token, cfg.Scoring.Model)
		scoringClient.Timeout = cfg.Scoring.Timeout

		srv := server.New(server.Options{
			Host:           serverHost,
			Port:           serverPort,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Limiter:        limiter,
			AirtableProxy:  handlers.NewAirtableProxy(rules, airtableClient),
			IntentScore:    handlers.NewIntentScore(scoring.NewScorer(scoringClient)),
			Gateway:        gateway,
			Health:         hm,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger and close the store (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Closing store and flushing logger...")
			if err := db.Close(); err != nil {
				observability.ServerLogger.Warn("Store close returned error", zap.Error(err))
			}
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", serverHost),
				zap.Int("port", serverPort))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

// buildLimiter wires the fixed-window limiter to its configured store.
// The in-memory store keeps limits per instance; libsql shares them
// across instances.
func buildLimiter(cfg *config.Config, db *store.Store) *engine.Limiter {
	var limiterStore engine.Store = engine.NewMemoryStore()
	if cfg.RateLimit.Store == "libsql" {
		limiterStore = db
	}

	limiter := engine.NewLimiter(limiterStore)
	if cfg.RateLimit.Requests > 0 && cfg.RateLimit.Window > 0 {
		limiter.Limit = engine.Limit{
			RequestsPerWindow: cfg.RateLimit.Requests,
			WindowDuration:    cfg.RateLimit.Window,
		}
	}
	return limiter
}

func buildGateway(cfg *config.Config, db *store.Store) (*webcache.Gateway, error) {
	origin, err := url.Parse(cfg.Origin.URL)
	if err != nil {
		return nil, errwrap.NewConfigInvalidError("origin.url is not a valid URL: " + cfg.Origin.URL)
	}

	gateway := webcache.NewGateway(origin, db, cfg.Cache.Generation)
	gateway.FontsHosts = cfg.Origin.FontsHosts
	gateway.Timeout = cfg.Origin.Timeout
	if cfg.Cache.RootDocument != "" {
		gateway.RootDocument = cfg.Cache.RootDocument
	}
	return gateway, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
