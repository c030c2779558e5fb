package engine

import (
	"context"
	"time"

	"github.com/leadgate/leadgate/internal/core"
)

// Limit is a fixed rate-limit window.
type Limit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// DefaultLimit matches the proxy's advisory per-client budget.
var DefaultLimit = Limit{RequestsPerWindow: 1000, WindowDuration: time.Minute}

// Store persists per-client window state. Implementations: the
// in-process MemoryStore and the libsql-backed store in core/store.
// IncrementWindow must be atomic: two concurrent calls for the same
// key may never observe the same count.
type Store interface {
	// IncrementWindow records one request for key and returns the
	// state after the increment. A missing or expired window restarts
	// at count 1 with the reset time extended from now.
	IncrementWindow(ctx context.Context, key string, now time.Time, window time.Duration) (*core.WindowState, error)
}

// Decision describes the outcome of a single Allow call, for response
// headers and rejection bodies.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces a fixed-window request budget per client key. It is
// purely advisory: exceeding the budget rejects the request, nothing
// blocks or queues.
type Limiter struct {
	Store Store
	Limit Limit
	Clock func() time.Time
}

// NewLimiter returns a limiter over the given store with the default
// budget.
func NewLimiter(store Store) *Limiter {
	return &Limiter{Store: store, Limit: DefaultLimit}
}

// Allow records one request for key and reports whether it fits the
// current window. A fresh or expired window resets the count to 1 and
// extends the window from now. The increment happens inside the store
// so concurrent requests for the same key cannot lose updates.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, *Decision, error) {
	if l == nil || l.Store == nil {
		return true, &Decision{Allowed: true, Remaining: -1}, nil
	}

	limit := l.Limit
	if limit.RequestsPerWindow <= 0 || limit.WindowDuration <= 0 {
		limit = DefaultLimit
	}

	now := l.now()

	state, err := l.Store.IncrementWindow(ctx, key, now, limit.WindowDuration)
	if err != nil {
		return false, nil, err
	}

	decision := &Decision{
		Allowed:   state.Count <= limit.RequestsPerWindow,
		Remaining: limit.RequestsPerWindow - state.Count,
		ResetAt:   state.ResetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}

	return decision.Allowed, decision, nil
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
