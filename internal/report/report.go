// Package report is the aggregation engine. Everything here is a pure
// function over the full record store: aggregates are recomputed from scratch
// for every request and never cached, so the store stays the single source of
// truth.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"entregas/internal/core"
	"entregas/internal/roster"
)

// FleetTotals are the period-wide figures. Net values may go negative when
// occurrences exceed gross; that is valid output signaling data-entry
// inconsistency and is never clamped.
type FleetTotals struct {
	GrossDeliveries int             `json:"grossDeliveries"`
	OccurrenceCount int             `json:"occurrenceCount"`
	NetDeliveries   int             `json:"netDeliveries"`
	GrossValue      decimal.Decimal `json:"grossValue"`
	OccurrenceValue decimal.Decimal `json:"occurrenceValue"`
	NetValue        decimal.Decimal `json:"netValue"`
}

// DriverTotals accumulates one roster entry's period figures. Every roster
// entry is present even with no records, so the listing is stable and
// complete. Records naming drivers outside the roster contribute to
// FleetTotals only.
type DriverTotals struct {
	Name            string          `json:"name"`
	Category        roster.Category `json:"category"`
	Deliveries      int             `json:"deliveries"`
	Occurrences     int             `json:"occurrences"`
	GrossValue      decimal.Decimal `json:"grossValue"`
	OccurrenceValue decimal.Decimal `json:"occurrenceValue"`
	NetDeliveries   int             `json:"netDeliveries"`
	NetValue        decimal.Decimal `json:"netValue"`
	LastHelper      string          `json:"lastHelper"`
	LastRoute       string          `json:"lastRoute"`
}

// Deltas are month-over-month percentage changes against the previous
// available month. A zero previous value yields 0, not infinity; callers
// treat an exact 0 as "no change".
type Deltas struct {
	NetDeliveries   float64 `json:"netDeliveries"`
	NetValue        float64 `json:"netValue"`
	OccurrenceCount float64 `json:"occurrenceCount"`
}

// TrendPoint is one month of the fleet history series.
type TrendPoint struct {
	Month         string `json:"month"`
	NetDeliveries int    `json:"netDeliveries"`
	Occurrences   int    `json:"occurrences"`
}

// Report is the full aggregate view for one active month.
type Report struct {
	Month           string         `json:"month"`
	Fleet           FleetTotals    `json:"fleet"`
	Drivers         []DriverTotals `json:"drivers"`
	AvailableMonths []string       `json:"availableMonths"`
	Deltas          Deltas         `json:"deltas"`
	Trend           []TrendPoint   `json:"trend"`
	RecordCount     int            `json:"recordCount"`
	OccurrenceTally int            `json:"occurrenceTally"`
}

// trendMonths caps the history series length.
const trendMonths = 6

// inMonth is the period filter: lexical prefix match of the YYYY-MM-DD date
// against the YYYY-MM month.
func inMonth(date, month string) bool {
	return core.MonthOf(date) == month
}

// AvailableMonths returns the union of months present in either collection
// plus the month containing now, sorted descending (newest first). Months
// with no data are never synthesized.
func AvailableMonths(records []core.DeliveryRecord, occurrences []core.Occurrence, now time.Time) []string {
	set := map[string]struct{}{
		now.Format("2006-01"): {},
	}
	for _, r := range records {
		if m := core.MonthOf(r.ProcessedDate); m != "" {
			set[m] = struct{}{}
		}
	}
	for _, o := range occurrences {
		if m := core.MonthOf(o.Date); m != "" {
			set[m] = struct{}{}
		}
	}
	months := make([]string, 0, len(set))
	for m := range set {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// FleetFor computes the fleet totals for one month. Totals are summed before
// driver attribution, so unmatched drivers are included here by construction.
func FleetFor(records []core.DeliveryRecord, occurrences []core.Occurrence, month string) FleetTotals {
	t := FleetTotals{
		GrossValue:      decimal.Zero,
		OccurrenceValue: decimal.Zero,
	}
	for _, r := range records {
		if !inMonth(r.ProcessedDate, month) {
			continue
		}
		t.GrossDeliveries += r.Deliveries
		t.GrossValue = t.GrossValue.Add(r.Value)
	}
	for _, o := range occurrences {
		if !inMonth(o.Date, month) {
			continue
		}
		t.OccurrenceCount += o.Count
		t.OccurrenceValue = t.OccurrenceValue.Add(o.Value)
	}
	t.NetDeliveries = t.GrossDeliveries - t.OccurrenceCount
	t.NetValue = t.GrossValue.Sub(t.OccurrenceValue)
	return t
}

// DriversFor computes per-driver totals for one month. LastHelper/LastRoute
// are overwritten by each filtered record with a non-empty value, in store
// insertion order: "last" means most recently added to the store, not most
// recent calendar day.
func DriversFor(records []core.DeliveryRecord, occurrences []core.Occurrence, month string, ros *roster.Roster) []DriverTotals {
	index := make(map[string]int, ros.Len())
	out := make([]DriverTotals, 0, ros.Len())
	for _, name := range ros.Names() {
		cat, _ := ros.CategoryOf(name)
		index[name] = len(out)
		out = append(out, DriverTotals{
			Name:            name,
			Category:        cat,
			GrossValue:      decimal.Zero,
			OccurrenceValue: decimal.Zero,
			NetValue:        decimal.Zero,
		})
	}
	for _, r := range records {
		if !inMonth(r.ProcessedDate, month) {
			continue
		}
		i, ok := index[r.Driver]
		if !ok {
			continue
		}
		out[i].Deliveries += r.Deliveries
		out[i].GrossValue = out[i].GrossValue.Add(r.Value)
		if r.Helpers != "" {
			out[i].LastHelper = r.Helpers
		}
		if r.Route != "" {
			out[i].LastRoute = r.Route
		}
	}
	for _, o := range occurrences {
		if !inMonth(o.Date, month) {
			continue
		}
		i, ok := index[o.Driver]
		if !ok {
			continue
		}
		out[i].Occurrences += o.Count
		out[i].OccurrenceValue = out[i].OccurrenceValue.Add(o.Value)
	}
	for i := range out {
		out[i].NetDeliveries = out[i].Deliveries - out[i].Occurrences
		out[i].NetValue = out[i].GrossValue.Sub(out[i].OccurrenceValue)
	}
	return out
}

// Delta computes a period-over-period percentage change. A zero previous
// value yields 0 rather than an error or infinity.
func Delta(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// previousMonth finds the entry after month in the descending available list,
// i.e. the chronologically prior month that actually has data (or is the
// current calendar month).
func previousMonth(months []string, month string) (string, bool) {
	for i, m := range months {
		if m == month && i+1 < len(months) {
			return months[i+1], true
		}
	}
	return "", false
}

// UniqueLoads lists a driver's distinct loads for the month, deduplicated on
// the composite (route, load, plate) key, first occurrence in insertion order
// kept. This listing drives the per-load calendar view.
func UniqueLoads(records []core.DeliveryRecord, driver, month string) []core.DeliveryRecord {
	seen := make(map[string]struct{})
	var out []core.DeliveryRecord
	for _, r := range records {
		if r.Driver != driver || !inMonth(r.ProcessedDate, month) {
			continue
		}
		key := r.Route + "|" + r.Load + "|" + r.Plate
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DayCounts returns the delivery count entered per day of the month for one
// driver+load, keyed by day of month. When several records share the natural
// key, the first in insertion order wins, matching the calendar editor's
// lookup.
func DayCounts(records []core.DeliveryRecord, driver, load, month string) map[int]int {
	out := make(map[int]int)
	for _, r := range records {
		if r.Driver != driver || r.Load != load || !inMonth(r.ProcessedDate, month) {
			continue
		}
		d, err := time.Parse("2006-01-02", r.ProcessedDate)
		if err != nil {
			continue
		}
		if _, exists := out[d.Day()]; !exists {
			out[d.Day()] = r.Deliveries
		}
	}
	return out
}

// Trend builds the fleet history series: up to the 6 most recent available
// months, oldest first.
func Trend(records []core.DeliveryRecord, occurrences []core.Occurrence, months []string) []TrendPoint {
	n := len(months)
	if n > trendMonths {
		n = trendMonths
	}
	out := make([]TrendPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		m := months[i]
		t := FleetFor(records, occurrences, m)
		out = append(out, TrendPoint{
			Month:         m,
			NetDeliveries: t.NetDeliveries,
			Occurrences:   t.OccurrenceCount,
		})
	}
	return out
}

// Compute assembles the full aggregate view for the active month.
func Compute(records []core.DeliveryRecord, occurrences []core.Occurrence, month string, ros *roster.Roster, now time.Time) Report {
	months := AvailableMonths(records, occurrences, now)
	fleet := FleetFor(records, occurrences, month)

	var deltas Deltas
	if prev, ok := previousMonth(months, month); ok {
		pt := FleetFor(records, occurrences, prev)
		deltas = Deltas{
			NetDeliveries:   Delta(float64(fleet.NetDeliveries), float64(pt.NetDeliveries)),
			NetValue:        Delta(fleet.NetValue.InexactFloat64(), pt.NetValue.InexactFloat64()),
			OccurrenceCount: Delta(float64(fleet.OccurrenceCount), float64(pt.OccurrenceCount)),
		}
	}

	recordCount, occurrenceTally := 0, 0
	for _, r := range records {
		if inMonth(r.ProcessedDate, month) {
			recordCount++
		}
	}
	for _, o := range occurrences {
		if inMonth(o.Date, month) {
			occurrenceTally++
		}
	}

	return Report{
		Month:           month,
		Fleet:           fleet,
		Drivers:         DriversFor(records, occurrences, month, ros),
		AvailableMonths: months,
		Deltas:          deltas,
		Trend:           Trend(records, occurrences, months),
		RecordCount:     recordCount,
		OccurrenceTally: occurrenceTally,
	}
}
