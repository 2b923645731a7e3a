// Package memory is an in-memory RecordWriter, used in tests and when no
// spreadsheet mirror is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"entregas/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.DeliveryRecord
}

func New() *Store {
	return &Store{}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, rec core.DeliveryRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, rec)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Records returns a copy of everything appended so far.
func (s *Store) Records() []core.DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DeliveryRecord, len(s.items))
	copy(out, s.items)
	return out
}
