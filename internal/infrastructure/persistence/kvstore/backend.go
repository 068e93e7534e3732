package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// BACKEND CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Backend is the narrow raw key-value contract a Store sits on.
// Keys passed here are fully namespaced; values are serialized JSON strings.
// Implementations: memory (tests/default), file, redis, postgres.
type Backend interface {
	// GetRaw returns the value for the key, with found=false on a miss.
	GetRaw(ctx context.Context, key string) (value string, found bool, err error)

	// SetRaw writes the value under the key, overwriting any previous value.
	SetRaw(ctx context.Context, key, value string) error

	// DeleteRaw removes the key. Deleting a missing key is not an error.
	DeleteRaw(ctx context.Context, key string) error

	// Keys returns all keys starting with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMORY BACKEND
// ══════════════════════════════════════════════════════════════════════════════

// MemoryBackend is an in-memory Backend. It is the default for tests and for
// running the journal without any configured storage.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

// GetRaw implements Backend.
func (m *MemoryBackend) GetRaw(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok, nil
}

// SetRaw implements Backend.
func (m *MemoryBackend) SetRaw(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// DeleteRaw implements Backend.
func (m *MemoryBackend) DeleteRaw(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Keys implements Backend.
func (m *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	return nil
}
