package engine

import (
	"context"
	"sync"
	"time"

	"github.com/leadgate/leadgate/internal/core"
)

// pruneThreshold bounds the in-process window table. Expired keys are
// swept only once the table grows past this size; below it the table
// is allowed to carry dead entries.
const pruneThreshold = 10000

// MemoryStore keeps window state in a process-local map. State is lost
// on restart and is not shared across instances, so the limit is
// effectively per-instance.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*core.WindowState
	clock   func() time.Time
}

// NewMemoryStore returns an empty in-process window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*core.WindowState)}
}

// IncrementWindow applies one request under the store mutex. The whole
// read-modify-write runs inside the lock, so concurrent requests for
// the same key each observe a distinct count. Expired keys are swept
// opportunistically once the table exceeds pruneThreshold entries.
func (m *MemoryStore) IncrementWindow(ctx context.Context, key string, now time.Time, window time.Duration) (*core.WindowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.windows == nil {
		m.windows = make(map[string]*core.WindowState)
	}

	state, ok := m.windows[key]
	if !ok || state.Expired(now) {
		state = &core.WindowState{Count: 1, ResetAt: now.Add(window)}
		m.windows[key] = state
	} else {
		state.Count++
	}

	if len(m.windows) > pruneThreshold {
		sweepAt := m.now()
		for k, s := range m.windows {
			if s.Expired(sweepAt) {
				delete(m.windows, k)
			}
		}
	}

	copied := *state
	return &copied, nil
}

// Len reports the current table size.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MemoryStore) now() time.Time {
	if m.clock != nil {
		return m.clock()
	}
	return time.Now().UTC()
}
