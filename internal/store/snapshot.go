package store

import (
	"context"
	"sync"
)

// Snapshot collection keys. Each collection is persisted independently as its
// full serialized form on every write; there is no incremental diff format.
const (
	RecordsKey     = "delivery_records"
	OccurrencesKey = "occurrences"
)

// Snapshotter is the persistence substrate contract: load-on-start,
// save-the-whole-collection on every mutation. Load returns a nil payload
// when no snapshot exists under the key.
type Snapshotter interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// MemorySnapshotter keeps snapshots in process memory. It backs tests and the
// degraded in-memory-only session used when the durable substrate is
// unavailable at startup.
type MemorySnapshotter struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemorySnapshotter() *MemorySnapshotter {
	return &MemorySnapshotter{data: make(map[string][]byte)}
}

func (m *MemorySnapshotter) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), p...), nil
}

func (m *MemorySnapshotter) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), payload...)
	return nil
}

func (m *MemorySnapshotter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
