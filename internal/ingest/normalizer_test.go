package ingest

import (
	"errors"
	"testing"
	"time"

	"entregas/internal/core"
)

func fixedNormalizer() *Normalizer {
	at := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	return NewNormalizerAt(func() time.Time { return at })
}

func TestManualAppliesDefaults(t *testing.T) {
	n := fixedNormalizer()

	rec, err := n.Manual(ManualInput{
		Driver:     "  joão  ",
		Deliveries: "25",
		Value:      "300,50",
	})
	if err != nil {
		t.Fatalf("manual: %v", err)
	}
	if rec.Driver != "JOÃO" {
		t.Errorf("driver = %q", rec.Driver)
	}
	if rec.Plate != core.BlankField || rec.Load != core.BlankField {
		t.Errorf("blank fields not defaulted: plate=%q load=%q", rec.Plate, rec.Load)
	}
	if rec.Route != core.DefaultRoute {
		t.Errorf("route = %q, want %q", rec.Route, core.DefaultRoute)
	}
	if rec.ProcessedDate != "2026-08-15" || rec.Month != "2026-08" {
		t.Errorf("date = %q month = %q", rec.ProcessedDate, rec.Month)
	}
	if rec.Deliveries != 25 || rec.Value.String() != "300.5" {
		t.Errorf("deliveries = %d value = %s", rec.Deliveries, rec.Value)
	}
	if rec.ID == "" {
		t.Errorf("missing ID")
	}
}

func TestManualRequiresDriver(t *testing.T) {
	n := fixedNormalizer()
	if _, err := n.Manual(ManualInput{Deliveries: "5"}); !errors.Is(err, core.ErrMissingDriver) {
		t.Fatalf("got %v, want ErrMissingDriver", err)
	}
}

func TestBulkKeepsOnlyPositiveRows(t *testing.T) {
	n := fixedNormalizer()

	records, err := n.Bulk("2026-08-10", []BulkRow{
		{Driver: "JOAO", Deliveries: "10", Value: "100"},
		{Driver: "MARIA", Deliveries: "0"},
		{Driver: "PEDRO", Deliveries: ""},
		{Driver: "ANA", Deliveries: "3"},
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Route != bulkRoute {
			t.Errorf("route = %q, want %q", r.Route, bulkRoute)
		}
		if r.ProcessedDate != "2026-08-10" {
			t.Errorf("date = %q", r.ProcessedDate)
		}
	}
}

func TestBulkRejectsBadDate(t *testing.T) {
	n := fixedNormalizer()
	if _, err := n.Bulk("10/08/2026", []BulkRow{{Driver: "JOAO", Deliveries: "1"}}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
}

func TestDayEditCarriesTemplate(t *testing.T) {
	n := fixedNormalizer()
	template := core.DeliveryRecord{
		Driver: "JOAO", Plate: "ABC1D23", Route: "CENTRO", Load: "2",
	}

	rec, err := n.DayEdit(template, "2026-08", 9, 14)
	if err != nil {
		t.Fatalf("day edit: %v", err)
	}
	if rec.ProcessedDate != "2026-08-09" || rec.Deliveries != 14 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Plate != "ABC1D23" || rec.Route != "CENTRO" || rec.Load != "2" {
		t.Fatalf("template fields not carried: %+v", rec)
	}
	if rec.ID == template.ID {
		t.Fatalf("expected fresh ID")
	}
}

func TestDayEditValidation(t *testing.T) {
	n := fixedNormalizer()
	template := core.DeliveryRecord{Driver: "JOAO", Load: "1"}

	if _, err := n.DayEdit(template, "2026-02", 30, 5); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("feb 30: got %v, want ErrInvalidDate", err)
	}
	if _, err := n.DayEdit(template, "2026-08", 9, -1); !errors.Is(err, core.ErrNegativeDeliveries) {
		t.Fatalf("negative count: got %v, want ErrNegativeDeliveries", err)
	}
}

func TestOccurrenceNormalization(t *testing.T) {
	n := fixedNormalizer()

	o, err := n.Occurrence(OccurrenceInput{
		Driver: " joao ",
		Date:   "2026-08-12",
		Kind:   " RETURN ",
		Reason: "avaria",
		Count:  "3",
		Value:  "45,90",
	})
	if err != nil {
		t.Fatalf("occurrence: %v", err)
	}
	if o.Driver != "JOAO" || o.Kind != core.Return || o.Count != 3 {
		t.Fatalf("unexpected occurrence: %+v", o)
	}
	if o.Value.String() != "45.9" {
		t.Fatalf("value = %s", o.Value)
	}
}

func TestOccurrenceValidationBlocksCreation(t *testing.T) {
	n := fixedNormalizer()
	tests := []struct {
		name string
		in   OccurrenceInput
		want error
	}{
		{"missing reason", OccurrenceInput{Driver: "JOAO", Date: "2026-08-12", Kind: "return"}, core.ErrMissingReason},
		{"bad kind", OccurrenceInput{Driver: "JOAO", Date: "2026-08-12", Kind: "refund", Reason: "x"}, core.ErrInvalidKind},
		{"bad date", OccurrenceInput{Driver: "JOAO", Date: "12-08-2026", Kind: "return", Reason: "x"}, core.ErrInvalidDate},
		{"missing driver", OccurrenceInput{Date: "2026-08-12", Kind: "return", Reason: "x"}, core.ErrMissingDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := n.Occurrence(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromImageStampsTodayAndSequence(t *testing.T) {
	n := fixedNormalizer()

	records := n.FromImage([]Candidate{
		{Driver: "joao", Deliveries: 12, Value: 150.456},
		{Deliveries: -3},
	})
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Driver != "JOAO" || records[0].Value.String() != "150.46" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Driver != core.UnknownDriver || records[1].Deliveries != 0 {
		t.Fatalf("defaults not applied: %+v", records[1])
	}
	if records[0].ID == records[1].ID {
		t.Fatalf("IDs must differ within one extraction")
	}
}
