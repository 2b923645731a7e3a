package google

import (
	"testing"

	"github.com/shopspring/decimal"

	"entregas/internal/core"
)

func TestRowValuesLayout(t *testing.T) {
	rec := core.DeliveryRecord{
		ID:            "r1",
		ProcessedDate: "2026-08-10",
		Plate:         "ABC1D23",
		Driver:        "JOAO",
		Helpers:       "PEDRO",
		Route:         "CENTRO",
		Load:          "3",
		Deliveries:    15,
		Value:         decimal.RequireFromString("1234.50"),
		Month:         "2026-08",
	}
	row := rowValues(rec)
	if len(row) != 8 {
		t.Fatalf("expected 8 columns, got %d", len(row))
	}
	if row[0] != "2026-08-10" || row[2] != "JOAO" || row[6] != 15 {
		t.Fatalf("unexpected row layout: %v", row)
	}
	if v, ok := row[7].(float64); !ok || v != 1234.5 {
		t.Fatalf("unexpected value cell: %v", row[7])
	}
}
