package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"entregas/internal/ingest"
	"entregas/internal/report"
	"entregas/internal/roster"
	"entregas/internal/services"
	"entregas/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(context.Background(), store.NewMemorySnapshotter())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ledger := services.NewLedgerService(st, ingest.NewNormalizer(), ingest.NewExtractor("", "", ""), nil)
	s := NewServer(":0", ledger, roster.Fixed())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestReportSeedsFullRoster(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var rep report.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rep.Drivers) != roster.Fixed().Len() {
		t.Fatalf("expected %d roster entries, got %d", roster.Fixed().Len(), len(rep.Drivers))
	}
	if rep.Month != time.Now().Format("2006-01") {
		t.Fatalf("expected current month default, got %q", rep.Month)
	}
	if len(rep.AvailableMonths) == 0 {
		t.Fatalf("expected current month in available months")
	}
}

func TestCreateRecordAndReport(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/records", map[string]string{
		"driver":     "JOAO",
		"plate":      "ABC1D23",
		"route":      "CENTRO",
		"load":       "1",
		"deliveries": "25",
		"value":      "300,00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	rep := doJSON(t, s, http.MethodGet, "/api/report", nil)
	var got report.Report
	if err := json.Unmarshal(rep.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.Fleet.GrossDeliveries != 25 || got.RecordCount != 1 {
		t.Fatalf("report does not reflect new record: %+v", got.Fleet)
	}
}

func TestCreateRecordRejectsMissingDriver(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/records", map[string]string{"deliveries": "5"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestDeleteRecordNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodDelete, "/api/records/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDriverDetailRequiresRosterMembership(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/drivers/NOBODY", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-roster driver, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/drivers/TIAGO", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for roster driver, got %d", rec.Code)
	}
}

func TestHistorySearchAndPagination(t *testing.T) {
	s := newTestServer(t)

	for _, driver := range []string{"JOAO", "MARIA", "JOAO"} {
		rec := doJSON(t, s, http.MethodPost, "/api/records", map[string]string{
			"driver":     driver,
			"deliveries": "5",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed record: %d", rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/history?q=joao", nil)
	var resp historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if resp.Total != 2 || resp.Pages != 1 {
		t.Fatalf("unexpected search result: %+v", resp)
	}
	for _, r := range resp.Records {
		if r.Driver != "JOAO" {
			t.Fatalf("search leaked record: %+v", r)
		}
	}
}

func TestDayEditThroughAPI(t *testing.T) {
	s := newTestServer(t)
	month := time.Now().Format("2006-01")

	rec := doJSON(t, s, http.MethodPost, "/api/records/day", map[string]any{
		"driver": "JOAO",
		"month":  month,
		"day":    10,
		"load":   "2",
		"count":  8,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("day edit: %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"changed":true`) {
		t.Fatalf("expected changed=true, got %s", rec.Body.String())
	}

	// Zero on the same cell updates in place instead of creating another row.
	rec = doJSON(t, s, http.MethodPost, "/api/records/day", map[string]any{
		"driver": "JOAO",
		"month":  month,
		"day":    10,
		"load":   "2",
		"count":  0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("zero day edit: %d", rec.Code)
	}

	hist := doJSON(t, s, http.MethodGet, "/api/history", nil)
	var resp historyResponse
	if err := json.Unmarshal(hist.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if resp.Total != 1 || resp.Records[0].Deliveries != 0 {
		t.Fatalf("expected single record with count 0, got %+v", resp)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/clear", map[string]bool{"confirm": false})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmation, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/clear", map[string]bool{"confirm": true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestImportRejectsUnknownType(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart upload, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got["degraded"] != false || got["photoImportEnabled"] != false {
		t.Fatalf("unexpected status payload: %v", got)
	}
}
