package metrics

import (
	"strconv"
	"time"

	"github.com/leadgate/leadgate/internal/observability"
)

// Application metric names following Prometheus conventions.
var (
	ProxyForwardsTotal   = "app_proxy_forwards_total"
	ProxyForwardDuration = "app_proxy_forward_duration_ms"

	ScoreRequestsTotal   = "app_intent_score_requests_total"
	ScoreRequestDuration = "app_intent_score_duration_ms"

	CacheLookupsTotal = "app_cache_lookups_total"

	RateLimitRejectionsTotal = "app_rate_limit_rejections_total"
)

// RecordProxyForward records one forwarded Airtable request and its outcome.
func RecordProxyForward(method string, upstreamStatus int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{
		"method": method,
		"status": strconv.Itoa(upstreamStatus),
	}

	_ = observability.TelemetrySystem.Counter(ProxyForwardsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(ProxyForwardDuration, duration, map[string]string{
		"method": method,
	})
}

// RecordScoreRequest records one intent-score call.
func RecordScoreRequest(success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	_ = observability.TelemetrySystem.Counter(ScoreRequestsTotal, 1, map[string]string{
		"status": status,
	})
	_ = observability.TelemetrySystem.Histogram(ScoreRequestDuration, duration, nil)
}

// RecordCacheLookup records a cache hit or miss per policy.
func RecordCacheLookup(policy string, hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}

	outcome := "miss"
	if hit {
		outcome = "hit"
	}

	_ = observability.TelemetrySystem.Counter(CacheLookupsTotal, 1, map[string]string{
		"policy":  policy,
		"outcome": outcome,
	})
}

// RecordRateLimitRejection counts advisory 429 rejections.
func RecordRateLimitRejection() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(RateLimitRejectionsTotal, 1, nil)
	}
}
