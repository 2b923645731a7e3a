package store

import (
	"context"
	"encoding/json"
	"fmt"

	"entregas/internal/core"
)

// SnapshotReader looks records up straight from the persisted snapshot,
// re-reading the substrate on every call. A consumer in another process uses
// it to observe records committed after the consumer started, which an
// in-memory Store loaded once at startup cannot do.
type SnapshotReader struct {
	snap Snapshotter
}

func NewSnapshotReader(snap Snapshotter) *SnapshotReader {
	return &SnapshotReader{snap: snap}
}

// Record fetches the record with the given ID from the current snapshot.
// A missing snapshot or an absent ID is (zero, false, nil), not an error.
func (r *SnapshotReader) Record(ctx context.Context, id string) (core.DeliveryRecord, bool, error) {
	payload, err := r.snap.Load(ctx, RecordsKey)
	if err != nil {
		return core.DeliveryRecord{}, false, fmt.Errorf("load record snapshot: %w", err)
	}
	if len(payload) == 0 {
		return core.DeliveryRecord{}, false, nil
	}
	var records []core.DeliveryRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return core.DeliveryRecord{}, false, fmt.Errorf("decode record snapshot: %w", err)
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, true, nil
		}
	}
	return core.DeliveryRecord{}, false, nil
}
