// Package services orchestrates ledger mutations: normalize input, commit to
// the record store, then publish mirror messages for the spreadsheet worker.
// Reads go straight from the store to the aggregation layer; only writes pass
// through here.
package services

import (
	"context"
	"fmt"
	"io"

	"entregas/internal/amqp"
	"entregas/internal/core"
	"entregas/internal/ingest"
	"entregas/internal/log"
	"entregas/internal/store"
)

// LedgerService coordinates the record store with the ingestion paths and the
// optional AMQP mirror. A nil AMQP client disables mirroring without touching
// any other behavior.
type LedgerService struct {
	store      *store.Store
	norm       *ingest.Normalizer
	extractor  *ingest.Extractor
	amqpClient *amqp.Client
	logger     *log.Logger
}

func NewLedgerService(st *store.Store, norm *ingest.Normalizer, extractor *ingest.Extractor, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      st,
		norm:       norm,
		extractor:  extractor,
		amqpClient: amqpClient,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
	}
}

// Store exposes the underlying record store for read paths.
func (s *LedgerService) Store() *store.Store {
	return s.store
}

// PhotoImportEnabled reports whether the AI extraction path is configured.
func (s *LedgerService) PhotoImportEnabled() bool {
	return s.extractor.Configured()
}

// ImportSpreadsheet parses an uploaded XLSX workbook and commits its rows.
// Returns how many records were actually added after ID dedup.
func (s *LedgerService) ImportSpreadsheet(ctx context.Context, filename string, r io.Reader) (int, error) {
	records, err := s.norm.FromSpreadsheet(filename, r)
	if err != nil {
		return 0, err
	}
	return s.commit(ctx, records)
}

// ImportImage extracts records from a photographed control sheet and commits
// them. The extraction call is single-shot: any failure aborts the import
// with nothing committed.
func (s *LedgerService) ImportImage(ctx context.Context, mimeType string, image []byte) (int, error) {
	candidates, err := s.extractor.Extract(ctx, mimeType, image)
	if err != nil {
		return 0, err
	}
	return s.commit(ctx, s.norm.FromImage(candidates))
}

// CreateManual commits one record from the single-entry form.
func (s *LedgerService) CreateManual(ctx context.Context, in ingest.ManualInput) (core.DeliveryRecord, error) {
	rec, err := s.norm.Manual(in)
	if err != nil {
		return core.DeliveryRecord{}, err
	}
	if _, err := s.commit(ctx, []core.DeliveryRecord{rec}); err != nil {
		return core.DeliveryRecord{}, err
	}
	return rec, nil
}

// CreateBulk commits the same-day grid rows with a positive count.
func (s *LedgerService) CreateBulk(ctx context.Context, date string, rows []ingest.BulkRow) (int, error) {
	records, err := s.norm.Bulk(date, rows)
	if err != nil {
		return 0, err
	}
	return s.commit(ctx, records)
}

// EditDayCount sets the delivery count for one (driver, day, load) calendar
// cell. An existing matching record is updated in place, even to zero; absent
// cells are created only for a positive count. The template record supplies
// plate, route and value for a newly created cell.
func (s *LedgerService) EditDayCount(ctx context.Context, template core.DeliveryRecord, month string, day, count int) (bool, error) {
	fresh, err := s.norm.DayEdit(template, month, day, count)
	if err != nil {
		return false, err
	}
	id, changed, err := s.store.UpsertDayCount(ctx, fresh)
	if err != nil {
		return false, fmt.Errorf("upsert day count: %w", err)
	}
	if changed {
		// id is the record actually written: the existing cell's ID on an
		// in-place update, fresh.ID on a create.
		s.publishSync(ctx, id)
	}
	return changed, nil
}

// AddOccurrence validates and appends one occurrence.
func (s *LedgerService) AddOccurrence(ctx context.Context, in ingest.OccurrenceInput) (core.Occurrence, error) {
	o, err := s.norm.Occurrence(in)
	if err != nil {
		return core.Occurrence{}, err
	}
	if err := s.store.AddOccurrence(ctx, o); err != nil {
		return core.Occurrence{}, fmt.Errorf("add occurrence: %w", err)
	}
	return o, nil
}

// UpdateRecord replaces an existing record wholesale.
func (s *LedgerService) UpdateRecord(ctx context.Context, rec core.DeliveryRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	ok, err := s.store.UpdateRecord(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("update record: %w", err)
	}
	if ok {
		s.publishSync(ctx, rec.ID)
	}
	return ok, nil
}

// DeleteRecord removes a record by ID.
func (s *LedgerService) DeleteRecord(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.DeleteRecord(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return ok, nil
}

// ClearAll wipes both collections and their snapshots.
func (s *LedgerService) ClearAll(ctx context.Context) error {
	return s.store.ClearAll(ctx)
}

func (s *LedgerService) commit(ctx context.Context, records []core.DeliveryRecord) (int, error) {
	added, err := s.store.AddRecords(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("save records: %w", err)
	}
	for _, id := range added {
		s.publishSync(ctx, id)
	}
	return len(added), nil
}

func (s *LedgerService) publishSync(ctx context.Context, id string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishRecordSync(ctx, id); err != nil {
		// The record is committed locally; mirroring is best-effort.
		fields := log.NewFields().WithOperation(log.OpSync).WithError(err)
		fields[log.FieldRecordID] = id
		s.logger.ErrorContext(ctx, "Failed to publish sync message", fields.ToSlice()...)
	}
}

// Close releases the AMQP connection if one is attached.
func (s *LedgerService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close amqp: %w", err)
		}
	}
	return nil
}
