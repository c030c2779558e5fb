package webcache

import (
	"context"
	"sync"

	"github.com/leadgate/leadgate/internal/core"
)

// Store persists cached responses keyed by request key and generation
// tag. The libsql store in core/store satisfies this; MemoryCache is
// the in-process alternative.
type Store interface {
	GetCachedResponse(ctx context.Context, key, generation string) (*core.CachedResponse, error)
	PutCachedResponse(ctx context.Context, entry *core.CachedResponse) error
	DeleteCachedResponse(ctx context.Context, key, generation string) error
	PurgeOtherGenerations(ctx context.Context, generation string) (int64, error)
}

// MemoryCache is a process-local Store. Writes overwrite, last write
// wins, matching the persistent store's semantics.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*core.CachedResponse
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*core.CachedResponse)}
}

func (m *MemoryCache) GetCachedResponse(ctx context.Context, key, generation string) (*core.CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[memoryKey(key, generation)]
	if !ok {
		return nil, nil
	}
	return entry.Clone(), nil
}

func (m *MemoryCache) PutCachedResponse(ctx context.Context, entry *core.CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[memoryKey(entry.Key, entry.Generation)] = entry.Clone()
	return nil
}

func (m *MemoryCache) DeleteCachedResponse(ctx context.Context, key, generation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, memoryKey(key, generation))
	return nil
}

func (m *MemoryCache) PurgeOtherGenerations(ctx context.Context, generation string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for k, entry := range m.entries {
		if entry.Generation != generation {
			delete(m.entries, k)
			purged++
		}
	}
	return purged, nil
}

// Len reports the number of stored entries across all generations.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func memoryKey(key, generation string) string {
	return generation + "\x00" + key
}
