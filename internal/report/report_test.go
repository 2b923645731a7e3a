package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"entregas/internal/core"
	"entregas/internal/roster"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func rec(driver, date, route, load, plate string, deliveries int, value int64) core.DeliveryRecord {
	return core.DeliveryRecord{
		ID:            driver + date + load + plate,
		ProcessedDate: date,
		Plate:         plate,
		Driver:        driver,
		Route:         route,
		Load:          load,
		Deliveries:    deliveries,
		Value:         decimal.NewFromInt(value),
		Month:         core.MonthOf(date),
	}
}

func occ(driver, date string, count int, value int64) core.Occurrence {
	return core.Occurrence{
		ID:     driver + date,
		Driver: driver,
		Date:   date,
		Kind:   core.Return,
		Reason: "teste",
		Count:  count,
		Value:  decimal.NewFromInt(value),
	}
}

func TestNetNeverClamped(t *testing.T) {
	records := []core.DeliveryRecord{rec("TIAGO", "2026-08-01", "R", "1", "AAA", 5, 50)}
	occurrences := []core.Occurrence{occ("TIAGO", "2026-08-02", 9, 90)}

	fleet := FleetFor(records, occurrences, "2026-08")
	if fleet.NetDeliveries != -4 {
		t.Fatalf("net deliveries = %d, want -4 (never clamped)", fleet.NetDeliveries)
	}
	if fleet.NetValue.String() != "-40" {
		t.Fatalf("net value = %s, want -40", fleet.NetValue)
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		current, previous, want float64
	}{
		{50, 0, 0},
		{150, 100, 50},
		{100, 200, -50},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Delta(tt.current, tt.previous); got != tt.want {
			t.Errorf("Delta(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.want)
		}
	}
}

func TestUniqueLoadsDedupOnCompositeKey(t *testing.T) {
	records := []core.DeliveryRecord{
		rec("TIAGO", "2026-08-01", "A", "1", "X", 5, 10),
		rec("TIAGO", "2026-08-02", "A", "1", "X", 7, 10),
		rec("TIAGO", "2026-08-03", "B", "2", "Y", 3, 10),
	}
	loads := UniqueLoads(records, "TIAGO", "2026-08")
	if len(loads) != 2 {
		t.Fatalf("expected 2 unique loads, got %d", len(loads))
	}
	// First occurrence wins, so day 01 is kept over day 02.
	if loads[0].ProcessedDate != "2026-08-01" {
		t.Fatalf("expected first occurrence kept, got %s", loads[0].ProcessedDate)
	}
}

func TestDriverMonthlyFigures(t *testing.T) {
	// TIAGO: two records (100 + 20 deliveries, 1000 + 200 value) and one
	// occurrence of 10 count / 50 value in the month.
	records := []core.DeliveryRecord{
		rec("TIAGO", "2026-08-05", "CENTRO", "1", "AAA", 100, 1000),
		rec("TIAGO", "2026-08-12", "NORTE", "2", "AAA", 20, 200),
		rec("TIAGO", "2026-07-30", "SUL", "1", "AAA", 999, 9999), // outside month
	}
	occurrences := []core.Occurrence{occ("TIAGO", "2026-08-20", 10, 50)}

	drivers := DriversFor(records, occurrences, "2026-08", roster.Fixed())
	var tiago *DriverTotals
	for i := range drivers {
		if drivers[i].Name == "TIAGO" {
			tiago = &drivers[i]
		}
	}
	if tiago == nil {
		t.Fatalf("TIAGO missing from driver listing")
	}
	if tiago.Deliveries != 120 || tiago.NetDeliveries != 110 {
		t.Fatalf("deliveries = %d net = %d, want 120/110", tiago.Deliveries, tiago.NetDeliveries)
	}
	if tiago.NetValue.String() != "1150" {
		t.Fatalf("net value = %s, want 1150", tiago.NetValue)
	}
	if tiago.LastRoute != "NORTE" {
		t.Fatalf("last route = %q, want NORTE (insertion-order last)", tiago.LastRoute)
	}
}

func TestRosterSeededWithZeros(t *testing.T) {
	drivers := DriversFor(nil, nil, "2026-08", roster.Fixed())
	if len(drivers) != roster.Fixed().Len() {
		t.Fatalf("expected full roster, got %d entries", len(drivers))
	}
	for _, d := range drivers {
		if d.Deliveries != 0 || !d.NetValue.IsZero() {
			t.Fatalf("expected zeroed entry for %s", d.Name)
		}
	}
}

func TestUnmatchedDriverInFleetOnly(t *testing.T) {
	records := []core.DeliveryRecord{rec("DESCONHECIDO", "2026-08-01", "R", "1", "AAA", 30, 300)}

	fleet := FleetFor(records, nil, "2026-08")
	if fleet.GrossDeliveries != 30 {
		t.Fatalf("fleet must include unmatched drivers, got %d", fleet.GrossDeliveries)
	}

	for _, d := range DriversFor(records, nil, "2026-08", roster.Fixed()) {
		if d.Deliveries != 0 {
			t.Fatalf("unmatched record attributed to %s", d.Name)
		}
	}
}

func TestAvailableMonthsDescendingWithCurrent(t *testing.T) {
	records := []core.DeliveryRecord{
		rec("TIAGO", "2026-06-01", "R", "1", "A", 1, 1),
		rec("TIAGO", "2026-07-01", "R", "1", "A", 1, 1),
	}
	months := AvailableMonths(records, nil, testNow)

	want := []string{"2026-08", "2026-07", "2026-06"}
	if len(months) != len(want) {
		t.Fatalf("months = %v, want %v", months, want)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("months = %v, want %v", months, want)
		}
	}
}

func TestTrendCappedOldestFirst(t *testing.T) {
	var records []core.DeliveryRecord
	for m := 1; m <= 8; m++ {
		records = append(records, rec("TIAGO", time.Date(2026, time.Month(m), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), "R", "1", "A", m, 1))
	}
	months := AvailableMonths(records, nil, testNow)
	trend := Trend(records, nil, months)

	if len(trend) != 6 {
		t.Fatalf("expected 6 trend points, got %d", len(trend))
	}
	if trend[0].Month != "2026-03" || trend[5].Month != "2026-08" {
		t.Fatalf("trend window wrong: first %s last %s", trend[0].Month, trend[5].Month)
	}
	for i := 1; i < len(trend); i++ {
		if trend[i].Month <= trend[i-1].Month {
			t.Fatalf("trend not ascending: %v", trend)
		}
	}
}

func TestDayCountsFirstInsertionWins(t *testing.T) {
	records := []core.DeliveryRecord{
		rec("TIAGO", "2026-08-10", "R", "1", "A", 8, 10),
		rec("TIAGO", "2026-08-10", "R", "1", "A", 99, 10), // duplicate natural key
		rec("TIAGO", "2026-08-11", "R", "1", "A", 4, 10),
		rec("TIAGO", "2026-08-11", "R", "2", "A", 77, 10), // other load
	}
	counts := DayCounts(records, "TIAGO", "1", "2026-08")
	if counts[10] != 8 || counts[11] != 4 {
		t.Fatalf("unexpected day counts: %v", counts)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 days, got %d", len(counts))
	}
}

func TestComputeDeltasAgainstPreviousAvailableMonth(t *testing.T) {
	records := []core.DeliveryRecord{
		rec("TIAGO", "2026-07-01", "R", "1", "A", 100, 1000),
		rec("TIAGO", "2026-08-01", "R", "1", "A", 150, 1500),
	}
	rep := Compute(records, nil, "2026-08", roster.Fixed(), testNow)

	if rep.Deltas.NetDeliveries != 50 {
		t.Fatalf("net deliveries delta = %v, want 50", rep.Deltas.NetDeliveries)
	}
	if rep.RecordCount != 1 {
		t.Fatalf("record count = %d, want 1", rep.RecordCount)
	}
}

func TestComputeNoPreviousMonthYieldsZeroDeltas(t *testing.T) {
	records := []core.DeliveryRecord{rec("TIAGO", "2026-08-01", "R", "1", "A", 50, 500)}
	// 2026-08 is both the only data month and the current month.
	rep := Compute(records, nil, "2026-08", roster.Fixed(), testNow)
	if rep.Deltas != (Deltas{}) {
		t.Fatalf("expected zero deltas, got %+v", rep.Deltas)
	}
}
