package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"entregas/internal/core"
	"entregas/internal/ingest"
)

type recordRequest struct {
	Driver     string `json:"driver"`
	Plate      string `json:"plate"`
	Helpers    string `json:"helpers"`
	Route      string `json:"route"`
	Load       string `json:"load"`
	Deliveries string `json:"deliveries"`
	Value      string `json:"value"`
}

// handleCreateRecord commits one record from the manual entry form.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rec, err := s.ledger.CreateManual(r.Context(), ingest.ManualInput{
		Driver:     sanitizeInput(req.Driver),
		Plate:      sanitizeInput(req.Plate),
		Helpers:    sanitizeInput(req.Helpers),
		Route:      sanitizeInput(req.Route),
		Load:       sanitizeInput(req.Load),
		Deliveries: sanitizeInput(req.Deliveries),
		Value:      sanitizeInput(req.Value),
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.bump()
	writeJSON(w, http.StatusCreated, rec)
}

type updateRecordRequest struct {
	ProcessedDate string          `json:"processedDate"`
	Plate         string          `json:"plate"`
	Driver        string          `json:"driver"`
	Helpers       string          `json:"helpers"`
	Route         string          `json:"route"`
	Load          string          `json:"load"`
	Deliveries    int             `json:"deliveries"`
	Value         decimal.Decimal `json:"value"`
}

// handleUpdateRecord replaces an existing record wholesale. The ID comes from
// the path; the month is re-derived from the submitted date.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateRecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rec := core.DeliveryRecord{
		ID:            id,
		ProcessedDate: sanitizeInput(req.ProcessedDate),
		Plate:         core.NormalizeOr(req.Plate, core.BlankField),
		Driver:        core.NormalizeOr(req.Driver, core.UnknownDriver),
		Helpers:       core.Normalize(req.Helpers),
		Route:         core.NormalizeOr(req.Route, core.DefaultRoute),
		Load:          core.NormalizeOr(req.Load, core.BlankField),
		Deliveries:    req.Deliveries,
		Value:         req.Value,
	}
	rec.Month = core.MonthOf(rec.ProcessedDate)

	ok, err := s.ledger.UpdateRecord(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.bump()
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteRecord removes a record by ID.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := s.ledger.DeleteRecord(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.bump()
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	Date string `json:"date"`
	Rows []struct {
		Driver     string `json:"driver"`
		Deliveries string `json:"deliveries"`
		Value      string `json:"value"`
	} `json:"rows"`
}

// handleBulk commits the same-day entry grid.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rows := make([]ingest.BulkRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, ingest.BulkRow{
			Driver:     sanitizeInput(row.Driver),
			Deliveries: sanitizeInput(row.Deliveries),
			Value:      sanitizeInput(row.Value),
		})
	}
	added, err := s.ledger.CreateBulk(r.Context(), sanitizeInput(req.Date), rows)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if added > 0 {
		s.bump()
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

type dayEditRequest struct {
	Driver string `json:"driver"`
	Month  string `json:"month"`
	Day    int    `json:"day"`
	Load   string `json:"load"`
	Count  int    `json:"count"`
}

// handleDayEdit sets the count of one calendar cell. The driver's existing
// load in the month is the template for a newly created cell; without one a
// bare record with default fields is created.
func (s *Server) handleDayEdit(w http.ResponseWriter, r *http.Request) {
	var req dayEditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	driver := core.NormalizeOr(req.Driver, "")
	if driver == "" {
		writeError(w, http.StatusUnprocessableEntity, core.ErrMissingDriver.Error())
		return
	}
	load := core.NormalizeOr(req.Load, core.BlankField)

	template := s.dayEditTemplate(driver, load, req.Month)
	changed, err := s.ledger.EditDayCount(r.Context(), template, req.Month, req.Day, req.Count)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if changed {
		s.bump()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

// dayEditTemplate finds the driver's first record for the load in the month
// to carry plate, route and value into a created cell.
func (s *Server) dayEditTemplate(driver, load, month string) core.DeliveryRecord {
	for _, rec := range s.ledger.Store().Records() {
		if rec.Driver == driver && rec.Load == load && rec.Month == month {
			return rec
		}
	}
	return core.DeliveryRecord{
		Driver: driver,
		Plate:  core.BlankField,
		Route:  core.DefaultRoute,
		Load:   load,
		Value:  decimal.Zero,
	}
}

type occurrenceRequest struct {
	Driver string `json:"driver"`
	Date   string `json:"date"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
	Count  string `json:"count"`
	Value  string `json:"value"`
}

// handleCreateOccurrence appends one occurrence.
func (s *Server) handleCreateOccurrence(w http.ResponseWriter, r *http.Request) {
	var req occurrenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := s.ledger.AddOccurrence(r.Context(), ingest.OccurrenceInput{
		Driver: sanitizeInput(req.Driver),
		Date:   sanitizeInput(req.Date),
		Kind:   sanitizeInput(req.Kind),
		Reason: sanitizeInput(req.Reason),
		Count:  sanitizeInput(req.Count),
		Value:  sanitizeInput(req.Value),
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.bump()
	writeJSON(w, http.StatusCreated, o)
}

type clearRequest struct {
	Confirm bool `json:"confirm"`
}

// handleClear wipes every record and occurrence. Requires explicit
// confirmation in the body; there is no undo.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "confirmation required")
		return
	}
	if err := s.ledger.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	slog.InfoContext(r.Context(), "All data cleared")
	s.bump()
	w.WriteHeader(http.StatusNoContent)
}
