package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsWithinBudget(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &Limiter{
		Store: NewMemoryStore(),
		Limit: Limit{RequestsPerWindow: 3, WindowDuration: time.Minute},
		Clock: func() time.Time { return clock },
	}

	for i := 0; i < 3; i++ {
		allowed, decision, err := limiter.Allow(context.Background(), "203.0.113.9")
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, 2-i, decision.Remaining)
	}

	allowed, decision, err := limiter.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 0, decision.Remaining)
}

func TestLimiterResetsAfterWindowExpiry(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &Limiter{
		Store: NewMemoryStore(),
		Limit: Limit{RequestsPerWindow: 1, WindowDuration: time.Minute},
		Clock: func() time.Time { return clock },
	}

	allowed, _, err := limiter.Allow(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = limiter.Allow(context.Background(), "key")
	require.NoError(t, err)
	require.False(t, allowed)

	clock = clock.Add(61 * time.Second)

	allowed, decision, err := limiter.Allow(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 0, decision.Remaining)
	require.Equal(t, clock.Add(time.Minute), decision.ResetAt)
}

func TestLimiterFullDefaultBudget(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(NewMemoryStore())
	limiter.Clock = func() time.Time { return clock }

	for i := 0; i < 1000; i++ {
		allowed, _, err := limiter.Allow(context.Background(), "198.51.100.1")
		require.NoError(t, err)
		require.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, _, err := limiter.Allow(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	require.False(t, allowed)

	clock = clock.Add(2 * time.Minute)

	allowed, _, err = limiter.Allow(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter := &Limiter{
		Store: NewMemoryStore(),
		Limit: Limit{RequestsPerWindow: 1, WindowDuration: time.Minute},
	}

	allowed, _, err := limiter.Allow(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = limiter.Allow(context.Background(), "b")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestMemoryStorePrunesExpiredEntries(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := start.Add(2 * time.Minute)

	store := NewMemoryStore()
	store.clock = func() time.Time { return later }

	for i := 0; i < pruneThreshold; i++ {
		key := fmt.Sprintf("stale-%d", i)
		_, err := store.IncrementWindow(context.Background(), key, start, time.Minute)
		require.NoError(t, err)
	}
	require.Equal(t, pruneThreshold, store.Len())

	// Pushing the table past the threshold sweeps every expired key.
	state, err := store.IncrementWindow(context.Background(), "fresh", later, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, state.Count)
	require.Equal(t, 1, store.Len())
}

func TestLimiterConcurrentRequestsStayWithinBudget(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	limiter.Limit = Limit{RequestsPerWindow: 100, WindowDuration: time.Minute}

	const workers = 100
	const callsPerWorker = 50

	var allowed atomic.Int64
	var failures atomic.Int64

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerWorker; j++ {
				ok, _, err := limiter.Allow(context.Background(), "shared-client")
				if err != nil {
					failures.Add(1)
					continue
				}
				if ok {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	require.Zero(t, failures.Load())
	require.EqualValues(t, 100, allowed.Load())
}
