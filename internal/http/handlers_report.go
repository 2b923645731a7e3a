package http

import (
	"net/http"
	"sort"
	"strings"

	"entregas/internal/core"
	"entregas/internal/report"
)

// historyPageSize is the number of records per history page.
const historyPageSize = 12

// handleReport returns the full aggregate view for the requested month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month := monthParam(r, s.now())
	writeJSON(w, http.StatusOK, s.reportFor(month))
}

// handleMonths lists the selectable months, newest first.
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	st := s.ledger.Store()
	months := report.AvailableMonths(st.Records(), st.Occurrences(), s.now())
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}

type loadDetail struct {
	Record core.DeliveryRecord `json:"record"`
	Days   map[int]int         `json:"days"`
}

type driverDetailResponse struct {
	Month  string              `json:"month"`
	Totals report.DriverTotals `json:"totals"`
	Loads  []loadDetail        `json:"loads"`
}

// handleDriverDetail returns one roster driver's totals, distinct loads and
// per-day counts for the month. Drivers outside the fixed roster have no
// detail view.
func (s *Server) handleDriverDetail(w http.ResponseWriter, r *http.Request) {
	name := core.Normalize(r.PathValue("name"))
	if !s.ros.Contains(name) {
		writeError(w, http.StatusNotFound, "driver not in roster")
		return
	}
	month := monthParam(r, s.now())

	st := s.ledger.Store()
	records := st.Records()
	occurrences := st.Occurrences()

	var totals report.DriverTotals
	for _, d := range report.DriversFor(records, occurrences, month, s.ros) {
		if d.Name == name {
			totals = d
			break
		}
	}

	loads := report.UniqueLoads(records, name, month)
	detail := driverDetailResponse{
		Month:  month,
		Totals: totals,
		Loads:  make([]loadDetail, 0, len(loads)),
	}
	for _, l := range loads {
		detail.Loads = append(detail.Loads, loadDetail{
			Record: l,
			Days:   report.DayCounts(records, name, l.Load, month),
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

type historyResponse struct {
	Records []core.DeliveryRecord `json:"records"`
	Page    int                   `json:"page"`
	Pages   int                   `json:"pages"`
	Total   int                   `json:"total"`
}

// handleHistory lists records newest-date first, filtered by a free-text
// search over driver, plate, route, load and helpers, paginated.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := strings.ToUpper(sanitizeInput(r.URL.Query().Get("q")))
	page := pageParam(r)

	records := s.ledger.Store().Records()
	var filtered []core.DeliveryRecord
	for _, rec := range records {
		if q == "" || matchesQuery(rec, q) {
			filtered = append(filtered, rec)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ProcessedDate > filtered[j].ProcessedDate
	})

	total := len(filtered)
	pages := (total + historyPageSize - 1) / historyPageSize
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * historyPageSize
	end := start + historyPageSize
	if end > total {
		end = total
	}
	if filtered == nil {
		filtered = []core.DeliveryRecord{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Records: filtered[start:end],
		Page:    page,
		Pages:   pages,
		Total:   total,
	})
}

func matchesQuery(rec core.DeliveryRecord, q string) bool {
	for _, field := range []string{rec.Driver, rec.Plate, rec.Route, rec.Load, rec.Helpers} {
		if strings.Contains(strings.ToUpper(field), q) {
			return true
		}
	}
	return false
}

// handleStatus reports operational state for the UI header.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.ledger.Store()
	writeJSON(w, http.StatusOK, map[string]any{
		"records":            len(st.Records()),
		"occurrences":        len(st.Occurrences()),
		"degraded":           st.Degraded(),
		"photoImportEnabled": s.ledger.PhotoImportEnabled(),
	})
}
