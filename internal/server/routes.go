package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/leadgate/leadgate/internal/server/handlers"
	servermw "github.com/leadgate/leadgate/internal/server/middleware"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(opts Options) {
	// API endpoints carry CORS and the rate limit; the gateway routes
	// below do not.
	s.router.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		api.Use(servermw.RateLimit(opts.Limiter))

		if opts.AirtableProxy != nil {
			api.Handle("/airtable", opts.AirtableProxy)
		}
		if opts.IntentScore != nil {
			api.Handle("/intent-score", opts.IntentScore)
		}
	})

	// Standard health endpoints
	if opts.Health != nil {
		s.router.Get("/health", opts.Health.HealthHandler)
		s.router.Get("/health/live", opts.Health.LivenessHandler)
		s.router.Get("/health/ready", opts.Health.ReadinessHandler)
	}

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Everything else is dispatched through the cache gateway.
	if opts.Gateway != nil {
		s.router.Handle("/*", opts.Gateway)
	}
}
