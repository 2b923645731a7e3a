package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Return     OccurrenceKind = "return"
	Chargeback OccurrenceKind = "chargeback"
)

// Sentinels applied when an ingestion candidate omits a field.
const (
	UnknownDriver = "UNKNOWN"
	DefaultRoute  = "GENERAL"
	BlankField    = "---"
)

type (
	OccurrenceKind string

	// DeliveryRecord is one unit of delivery work performed by one driver on
	// one calendar day for one load. ID is the sole deduplication key on
	// import; (Driver, ProcessedDate, Load) is the natural key the calendar
	// edit path upserts on, but it is not unique in the store.
	DeliveryRecord struct {
		ID            string          `json:"id"`
		ProcessedDate string          `json:"processedDate"` // YYYY-MM-DD
		Plate         string          `json:"plate"`
		Driver        string          `json:"driver"`
		Helpers       string          `json:"helpers"`
		Route         string          `json:"route"`
		Load          string          `json:"load"`
		Deliveries    int             `json:"deliveries"`
		Value         decimal.Decimal `json:"value"`
		Month         string          `json:"month"` // YYYY-MM, derived from ProcessedDate
	}

	// Occurrence is a return or chargeback attributed to a driver on a
	// calendar day. It offsets that month's gross deliveries and revenue.
	// Occurrences are created only by explicit user action and never updated
	// in place; they disappear only on a full store clear.
	Occurrence struct {
		ID     string          `json:"id"`
		Driver string          `json:"driver"`
		Date   string          `json:"date"` // YYYY-MM-DD
		Kind   OccurrenceKind  `json:"kind"`
		Reason string          `json:"reason"`
		Count  int             `json:"count"`
		Value  decimal.Decimal `json:"value"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date, want YYYY-MM-DD")
	ErrMissingDriver      = errors.New("missing driver")
	ErrInvalidKind        = errors.New("invalid occurrence kind")
	ErrNegativeCount      = errors.New("count cannot be negative")
	ErrMissingReason      = errors.New("missing reason")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeDeliveries = errors.New("deliveries cannot be negative")
)

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// MonthOf derives the YYYY-MM month bucket from a YYYY-MM-DD date string.
// The bucket is a lexical prefix, so period filtering stays a string match.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// ParseCount parses a non-negative integer count, defaulting to 0 on parse
// failure or negative input. Spreadsheet cells occasionally carry counts as
// "12.0", so a float form is accepted and truncated.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int(f)
	}
	return 0
}

// Normalize uppercases and trims a free-text identifying attribute.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeOr applies Normalize and falls back to def when the result is empty.
func NormalizeOr(s, def string) string {
	if n := Normalize(s); n != "" {
		return n
	}
	return def
}

func (k OccurrenceKind) Valid() bool {
	switch k {
	case Return, Chargeback:
		return true
	}
	return false
}

func (r DeliveryRecord) Validate() error {
	if strings.TrimSpace(r.Driver) == "" {
		return ErrMissingDriver
	}
	if !ValidDate(r.ProcessedDate) {
		return ErrInvalidDate
	}
	if r.Deliveries < 0 {
		return ErrNegativeDeliveries
	}
	if r.Value.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (o Occurrence) Validate() error {
	if strings.TrimSpace(o.Driver) == "" {
		return ErrMissingDriver
	}
	if !ValidDate(o.Date) {
		return ErrInvalidDate
	}
	if !o.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(o.Reason) == "" {
		return ErrMissingReason
	}
	if o.Count < 0 {
		return ErrNegativeCount
	}
	if o.Value.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
