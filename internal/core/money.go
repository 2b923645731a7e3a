// Package core provides the delivery-ledger domain types plus parsing and
// normalization helpers shared by every ingestion path.
//
// This file contains monetary parsing. Amounts are decimal.Decimal rounded to
// two places; cents-level arithmetic never goes through float64.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney converts user monetary input to a two-decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, the
// Brazilian form convention. Negative amounts are rejected; gross values and
// occurrence deductions are both entered as positive numbers.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34, nil
//	ParseMoney("12,34")  -> 12.34, nil
//	ParseMoney("12,345") -> 12.35, nil (half-up on the third decimal)
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// ParseMoneyOrZero is ParseMoney with the ingestion defaulting rule applied:
// anything unparseable counts as zero rather than failing the row.
func ParseMoneyOrZero(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CleanCurrency strips the decoration found in spreadsheet VALOR cells:
// a leading currency symbol, whitespace, and thousands separators. The comma
// decimal separator is left for ParseMoney to handle.
//
//	"R$ 1.234,56" -> "1234,56"
func CleanCurrency(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "$")
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '\u00a0', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseSpreadsheetValue applies CleanCurrency then the or-zero money rule.
func ParseSpreadsheetValue(s string) decimal.Decimal {
	return ParseMoneyOrZero(CleanCurrency(s))
}
