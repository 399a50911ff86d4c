package dataset

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	dataSheet    = "Data"
	summarySheet = "Summary"
)

// Tally is one labelled count written to the XLSX summary sheet.
type Tally struct {
	Label string
	Count int
}

// WriteCSV writes the header and every row as comma-separated text.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Headers); err != nil {
		return err
	}
	for _, row := range d.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the table to a Data sheet and the tallies to a Summary sheet.
// Cells of numeric columns are stored as numbers.
func (d *Dataset) WriteXLSX(w io.Writer, tallies []Tally) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), dataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(d.Headers))
	for i, h := range d.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return err
	}
	for r, row := range d.Rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			if d.IsNumeric(c) {
				if num, ok := ParseFloat(cell); ok {
					values[c] = num
					continue
				}
			}
			values[c] = cell
		}
		cellName, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(dataSheet, cellName, &values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]interface{}{"flag", "count"}); err != nil {
		return err
	}
	for i, t := range tallies {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cellName, &[]interface{}{t.Label, t.Count}); err != nil {
			return err
		}
	}
	return f.Write(w)
}
