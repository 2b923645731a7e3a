package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"entregas/internal/core"
)

var (
	// ErrMissingColumns is fatal for the file: without the required headers
	// no row can be attributed, so nothing is committed.
	ErrMissingColumns = errors.New("required columns MOTORISTA and ENTREGAS not found")
	// ErrEmptySheet marks a spreadsheet with no data rows.
	ErrEmptySheet = errors.New("spreadsheet has no data rows")
)

// Spreadsheet header names. Required: MOTORISTA, ENTREGAS. Matching is exact
// after uppercasing.
const (
	colPlate      = "PLACA"
	colDriver     = "MOTORISTA"
	colHelper     = "AJUDANTE"
	colRoute      = "ROTA"
	colDeliveries = "ENTREGAS"
	colLoad       = "CARGA"
	colValue      = "VALOR"
)

type columnMap struct {
	plate, driver, helper, route, deliveries, load, value int
}

func mapColumns(headers []string) (columnMap, error) {
	m := columnMap{plate: -1, driver: -1, helper: -1, route: -1, deliveries: -1, load: -1, value: -1}
	for i, h := range headers {
		switch core.Normalize(h) {
		case colPlate:
			m.plate = i
		case colDriver:
			m.driver = i
		case colHelper:
			m.helper = i
		case colRoute:
			m.route = i
		case colDeliveries:
			m.deliveries = i
		case colLoad:
			m.load = i
		case colValue:
			m.value = i
		}
	}
	if m.driver == -1 || m.deliveries == -1 {
		return m, ErrMissingColumns
	}
	return m, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// FromSpreadsheet reads the first sheet of an XLSX workbook and converts its
// rows into records dated today. Rows without a driver are skipped. IDs are
// derived from filename, row index and driver — deterministic, so importing
// the same file twice dedups to a single copy per row at the store.
func (n *Normalizer) FromSpreadsheet(filename string, r io.Reader) ([]core.DeliveryRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	date := n.today()
	var out []core.DeliveryRecord
	for i, row := range rows[1:] {
		driver := cellAt(row, cols.driver)
		if core.Normalize(driver) == "" {
			continue
		}
		rec := canonical(Candidate{
			Driver:     driver,
			Plate:      cellAt(row, cols.plate),
			Helpers:    cellAt(row, cols.helper),
			Route:      cellAt(row, cols.route),
			Load:       cellAt(row, cols.load),
			Deliveries: float64(core.ParseCount(cellAt(row, cols.deliveries))),
		}, recordID("exl", filename, fmt.Sprintf("%d", i), driver), date)
		rec.Value = core.ParseSpreadsheetValue(cellAt(row, cols.value))
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrEmptySheet
	}
	return out, nil
}
