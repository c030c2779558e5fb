package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/leadgate/leadgate/internal/core/engine"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/observability"
)

// RateLimit applies the advisory per-client budget to every request it
// wraps. Rejections return 429 with the tagged error shape; limiter
// store failures let the request through rather than blocking clients
// on an internal fault.
func RateLimit(limiter *engine.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := ClientIP(r)

			allowed, decision, err := limiter.Allow(r.Context(), clientKey)
			if err != nil {
				if observability.ServerLogger != nil {
					observability.ServerLogger.Warn("Rate limit check failed, allowing request",
						zap.String("client_key", clientKey),
						zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			if decision != nil {
				if decision.Remaining >= 0 {
					w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				}
				if !decision.ResetAt.IsZero() {
					w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
				}
			}

			if !allowed {
				metrics.RecordRateLimitRejection()

				if decision != nil {
					if retryAfter := int(time.Until(decision.ResetAt).Seconds()); retryAfter > 0 {
						w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
					}
				}

				envelope := errors.NewErrorEnvelope("RATE_LIMITED", "Too many requests. Please slow down.").
					WithCorrelationID(GetRequestID(r.Context()))

				writeErrorResponse(w, envelope, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the client address, preferring proxy headers so
// limits key on the real caller rather than the load balancer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
