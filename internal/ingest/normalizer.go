// Package ingest turns heterogeneous adapter output — spreadsheet rows,
// AI-extracted JSON, manual forms, the bulk grid and the calendar editor —
// into canonical delivery records and occurrences, with generated IDs and the
// uniform defaulting rules applied on every path.
package ingest

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"entregas/internal/core"
)

// Candidate is the adapter output contract: every field optional, missing or
// invalid values defaulted during normalization. The normalizer trusts
// whatever arrives and does not validate adapter-level schema.
type Candidate struct {
	Driver     string  `json:"driver"`
	Plate      string  `json:"plate"`
	Helpers    string  `json:"helpers"`
	Route      string  `json:"route"`
	Load       string  `json:"load"`
	Deliveries float64 `json:"deliveries"`
	Value      float64 `json:"value"`
}

// ManualInput is the single-record entry form. All fields except helpers are
// required; a missing one blocks submission without creating anything.
type ManualInput struct {
	Driver     string
	Plate      string
	Helpers    string
	Route      string
	Load       string
	Deliveries string
	Value      string
}

// BulkRow is one driver line of the same-day entry grid.
type BulkRow struct {
	Driver     string
	Deliveries string
	Value      string
}

// OccurrenceInput is the occurrence entry form.
type OccurrenceInput struct {
	Driver string
	Date   string
	Kind   string
	Reason string
	Count  string
	Value  string
}

// The bulk grid stamps this route so quick entries are recognizable later.
const bulkRoute = "LANÇAMENTO RÁPIDO"

// Normalizer generates IDs from a clock plus a per-call sequence. IDs are
// unique enough for a single-user session, not cryptographically so.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerAt pins the clock, for tests.
func NewNormalizerAt(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// recordID base64-encodes the joined ID material so IDs stay opaque single
// tokens.
func recordID(parts ...string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, "-")))
}

func (n *Normalizer) today() string {
	return n.now().Format("2006-01-02")
}

func (n *Normalizer) stamp() string {
	return fmt.Sprintf("%d", n.now().UnixMilli())
}

// canonical applies the uniform normalization rules to one candidate.
func canonical(c Candidate, id, date string) core.DeliveryRecord {
	deliveries := int(c.Deliveries)
	if deliveries < 0 {
		deliveries = 0
	}
	value := decimal.NewFromFloat(c.Value).Round(2)
	if value.IsNegative() {
		value = decimal.Zero
	}
	return core.DeliveryRecord{
		ID:            id,
		ProcessedDate: date,
		Plate:         core.NormalizeOr(c.Plate, core.BlankField),
		Driver:        core.NormalizeOr(c.Driver, core.UnknownDriver),
		Helpers:       core.Normalize(c.Helpers),
		Route:         core.NormalizeOr(c.Route, core.DefaultRoute),
		Load:          core.NormalizeOr(c.Load, core.BlankField),
		Deliveries:    deliveries,
		Value:         value,
		Month:         core.MonthOf(date),
	}
}

// FromImage converts AI-extracted candidates into records dated today.
// IDs carry the extraction timestamp and sequence, so re-running the same
// photo produces new records; the extractor has no stable row identity to
// dedup on.
func (n *Normalizer) FromImage(candidates []Candidate) []core.DeliveryRecord {
	date := n.today()
	ts := n.stamp()
	out := make([]core.DeliveryRecord, 0, len(candidates))
	for i, c := range candidates {
		id := recordID("img", ts, fmt.Sprintf("%d", i), c.Driver)
		out = append(out, canonical(c, id, date))
	}
	return out
}

// Manual converts the single-record form. Required fields blank is a
// validation error and nothing is created.
func (n *Normalizer) Manual(in ManualInput) (core.DeliveryRecord, error) {
	if strings.TrimSpace(in.Driver) == "" {
		return core.DeliveryRecord{}, core.ErrMissingDriver
	}
	date := n.today()
	rec := canonical(Candidate{
		Driver:     in.Driver,
		Plate:      in.Plate,
		Helpers:    in.Helpers,
		Route:      in.Route,
		Load:       in.Load,
		Deliveries: float64(core.ParseCount(in.Deliveries)),
	}, recordID(in.Driver, in.Plate, n.stamp()), date)
	rec.Value = core.ParseMoneyOrZero(in.Value)
	return rec, nil
}

// Bulk converts the same-day grid for the given date, keeping only rows with
// a positive delivery count. Zero and blank rows create nothing.
func (n *Normalizer) Bulk(date string, rows []BulkRow) ([]core.DeliveryRecord, error) {
	if !core.ValidDate(date) {
		return nil, core.ErrInvalidDate
	}
	ts := n.stamp()
	var out []core.DeliveryRecord
	for i, row := range rows {
		count := core.ParseCount(row.Deliveries)
		if count <= 0 {
			continue
		}
		rec := canonical(Candidate{
			Driver:     row.Driver,
			Route:      bulkRoute,
			Deliveries: float64(count),
		}, recordID("mass", row.Driver, date, ts, fmt.Sprintf("%d", i)), date)
		rec.ProcessedDate = date
		rec.Month = core.MonthOf(date)
		rec.Value = core.ParseMoneyOrZero(row.Value)
		out = append(out, rec)
	}
	return out, nil
}

// DayEdit builds the fresh record the calendar-cell path hands to the
// store's natural-key upsert: the selected load's fields carried over with
// the chosen day and count. The template's value rides along unchanged, as
// the calendar edits counts only.
func (n *Normalizer) DayEdit(template core.DeliveryRecord, month string, day, count int) (core.DeliveryRecord, error) {
	date := fmt.Sprintf("%s-%02d", month, day)
	if !core.ValidDate(date) {
		return core.DeliveryRecord{}, core.ErrInvalidDate
	}
	if count < 0 {
		return core.DeliveryRecord{}, core.ErrNegativeDeliveries
	}
	rec := template
	rec.ID = recordID("day", template.Driver, date, template.Load, n.stamp())
	rec.ProcessedDate = date
	rec.Month = core.MonthOf(date)
	rec.Deliveries = count
	return rec, nil
}

// Occurrence converts the occurrence form. Every field except value is
// required; validation failure blocks creation entirely.
func (n *Normalizer) Occurrence(in OccurrenceInput) (core.Occurrence, error) {
	o := core.Occurrence{
		ID:     recordID("occ", in.Driver, n.stamp()),
		Driver: core.NormalizeOr(in.Driver, ""),
		Date:   strings.TrimSpace(in.Date),
		Kind:   core.OccurrenceKind(strings.ToLower(strings.TrimSpace(in.Kind))),
		Reason: strings.TrimSpace(in.Reason),
		Count:  core.ParseCount(in.Count),
		Value:  core.ParseMoneyOrZero(in.Value),
	}
	if err := o.Validate(); err != nil {
		return core.Occurrence{}, err
	}
	return o, nil
}
