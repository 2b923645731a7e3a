// Package worker mirrors committed delivery records out to the spreadsheet
// copy. It consumes the sync messages published by the ledger service.
package worker

import (
	"context"
	"fmt"
	"sync"

	"entregas/internal/amqp"
	"entregas/internal/core"
	"entregas/internal/log"
	"entregas/internal/sheets"
)

// RecordSource resolves one committed record by ID. The lookup must hit the
// persisted state on every call: the worker runs in its own process and has
// to see records the server committed after the worker started.
type RecordSource interface {
	Record(ctx context.Context, id string) (core.DeliveryRecord, bool, error)
}

// SyncWorker copies delivery records from the snapshot substrate to the sheet
// mirror. Requeued deliveries of the same record are skipped through an
// in-process seen set; the sheet append itself is not idempotent.
type SyncWorker struct {
	source RecordSource
	writer sheets.RecordWriter
	logger *log.Logger

	mu       sync.Mutex
	mirrored map[string]struct{}
}

func NewSyncWorker(source RecordSource, writer sheets.RecordWriter) *SyncWorker {
	return &SyncWorker{
		source:   source,
		writer:   writer,
		logger:   log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker),
		mirrored: make(map[string]struct{}),
	}
}

// HandleSyncMessage processes a single record sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message", log.FieldRecordID, msg.ID)

	if w.alreadyMirrored(msg.ID) {
		w.logger.InfoContext(ctx, "Record already mirrored this session, skipping", log.FieldRecordID, msg.ID)
		return nil
	}

	rec, ok, err := w.source.Record(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("resolve record: %w", err)
	}
	if !ok {
		// The record was deleted between publish and consume. Dropping the
		// message is correct: there is nothing left to mirror.
		w.logger.WarnContext(ctx, "Record no longer in store, dropping message", log.FieldRecordID, msg.ID)
		return nil
	}

	ref, err := w.writer.Append(ctx, rec)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	w.markMirrored(msg.ID)

	fields := log.NewFields().
		WithOperation(log.OpAppend).
		WithRecord(msg.ID, rec.Driver, rec.Route, rec.Deliveries)
	fields[log.FieldSheetRef] = ref
	w.logger.InfoContext(ctx, "Mirrored delivery record", fields.ToSlice()...)
	return nil
}

func (w *SyncWorker) alreadyMirrored(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.mirrored[id]
	return ok
}

func (w *SyncWorker) markMirrored(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mirrored[id] = struct{}{}
}
