// Package store owns the two in-memory collections behind the whole system:
// delivery records and occurrences. Every mutation is written through to the
// snapshot substrate immediately, so the persisted state is durable after
// each user-visible action. The store is process-local and serves a single
// writer; the mutex only guards against overlapping HTTP requests.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"entregas/internal/core"
)

type Store struct {
	mu          sync.Mutex
	snap        Snapshotter
	records     []core.DeliveryRecord
	occurrences []core.Occurrence
	ids         map[string]struct{}
	degraded    bool
}

// Open restores the last-persisted snapshot. A missing or corrupt snapshot
// fails soft: it is logged and treated as an empty collection, never as a
// startup failure.
func Open(ctx context.Context, snap Snapshotter) (*Store, error) {
	s := &Store{snap: snap, ids: make(map[string]struct{})}

	if payload, err := snap.Load(ctx, RecordsKey); err != nil {
		slog.ErrorContext(ctx, "Failed to load record snapshot, starting empty", "error", err)
	} else if len(payload) > 0 {
		var records []core.DeliveryRecord
		if err := json.Unmarshal(payload, &records); err != nil {
			slog.ErrorContext(ctx, "Corrupt record snapshot, starting empty", "error", err)
		} else {
			s.records = records
		}
	}

	if payload, err := snap.Load(ctx, OccurrencesKey); err != nil {
		slog.ErrorContext(ctx, "Failed to load occurrence snapshot, starting empty", "error", err)
	} else if len(payload) > 0 {
		var occurrences []core.Occurrence
		if err := json.Unmarshal(payload, &occurrences); err != nil {
			slog.ErrorContext(ctx, "Corrupt occurrence snapshot, starting empty", "error", err)
		} else {
			s.occurrences = occurrences
		}
	}

	for _, r := range s.records {
		s.ids[r.ID] = struct{}{}
	}

	slog.InfoContext(ctx, "Record store loaded",
		"records", len(s.records),
		"occurrences", len(s.occurrences))
	return s, nil
}

// Records returns a copy of the delivery collection in insertion order.
func (s *Store) Records() []core.DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.DeliveryRecord(nil), s.records...)
}

// Record returns the record with the given ID, if present.
func (s *Store) Record(id string) (core.DeliveryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return core.DeliveryRecord{}, false
}

// Occurrences returns a copy of the occurrence collection in insertion order.
func (s *Store) Occurrences() []core.Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Occurrence(nil), s.occurrences...)
}

// Degraded reports whether a snapshot write has failed this session. Data
// entered after that point lives only in memory until restart.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// AddRecords appends the candidates whose ID is not already present and
// returns the IDs that were kept. Existing records are never mutated;
// importing the same ID twice is a no-op for the duplicate.
func (s *Store) AddRecords(ctx context.Context, candidates []core.DeliveryRecord) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []string
	for _, c := range candidates {
		if _, dup := s.ids[c.ID]; dup {
			continue
		}
		s.ids[c.ID] = struct{}{}
		s.records = append(s.records, c)
		added = append(added, c.ID)
	}
	if len(added) == 0 {
		return nil, nil
	}
	return added, s.persistRecords(ctx)
}

// UpdateRecord replaces the record sharing its ID. Absent IDs are a no-op.
func (s *Store) UpdateRecord(ctx context.Context, rec core.DeliveryRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == rec.ID {
			s.records[i] = rec
			return true, s.persistRecords(ctx)
		}
	}
	return false, nil
}

// DeleteRecord removes the record with the given ID. Absent IDs are a no-op.
func (s *Store) DeleteRecord(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			delete(s.ids, id)
			return true, s.persistRecords(ctx)
		}
	}
	return false, nil
}

// UpsertDayCount is the calendar-cell edit path, the one write with true
// natural-key upsert semantics. It looks up the first record matching
// (driver, exact date, load): if found, only its delivery count is replaced,
// even when the new count is zero. If absent and the count is positive, fresh
// is appended as-is. If absent and the count is zero, nothing is created.
// The returned ID is the record actually written — the existing record's ID
// on the in-place branch, not fresh.ID — so callers can publish an ID that
// resolves.
func (s *Store) UpsertDayCount(ctx context.Context, fresh core.DeliveryRecord) (id string, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		r := &s.records[i]
		if r.Driver == fresh.Driver && r.ProcessedDate == fresh.ProcessedDate && r.Load == fresh.Load {
			r.Deliveries = fresh.Deliveries
			return r.ID, true, s.persistRecords(ctx)
		}
	}
	if fresh.Deliveries <= 0 {
		return "", false, nil
	}
	if _, dup := s.ids[fresh.ID]; dup {
		return "", false, nil
	}
	s.ids[fresh.ID] = struct{}{}
	s.records = append(s.records, fresh)
	return fresh.ID, true, s.persistRecords(ctx)
}

// AddOccurrence appends unconditionally; occurrences are always-novel events
// with no dedup and no in-place update.
func (s *Store) AddOccurrence(ctx context.Context, o core.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.occurrences = append(s.occurrences, o)
	return s.persistOccurrences(ctx)
}

// ClearAll empties both collections and erases the persisted snapshots.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.occurrences = nil
	s.ids = make(map[string]struct{})

	var firstErr error
	for _, key := range []string{RecordsKey, OccurrencesKey} {
		if err := s.snap.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("erase snapshot %s: %w", key, err)
		}
	}
	if firstErr != nil {
		s.noteDegraded(ctx, firstErr)
	}
	return nil
}

// persistRecords writes the full delivery collection through to the
// substrate. Callers hold the mutex. A failed write degrades the session to
// in-memory-only instead of failing the mutation.
func (s *Store) persistRecords(ctx context.Context) error {
	payload, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("serialize records: %w", err)
	}
	if err := s.snap.Save(ctx, RecordsKey, payload); err != nil {
		s.noteDegraded(ctx, fmt.Errorf("save record snapshot: %w", err))
	}
	return nil
}

func (s *Store) persistOccurrences(ctx context.Context) error {
	payload, err := json.Marshal(s.occurrences)
	if err != nil {
		return fmt.Errorf("serialize occurrences: %w", err)
	}
	if err := s.snap.Save(ctx, OccurrencesKey, payload); err != nil {
		s.noteDegraded(ctx, fmt.Errorf("save occurrence snapshot: %w", err))
	}
	return nil
}

func (s *Store) noteDegraded(ctx context.Context, err error) {
	s.degraded = true
	slog.ErrorContext(ctx, "Snapshot write failed, continuing in-memory only", "error", err)
}
