// processing.go
package dataset

import (
	"fmt"
	"strings"
)

// FromRecords builds a dataset from parsed records where the first record is the header.
// Blank headers are named Column_N, short rows are padded and over-long rows rejected.
func FromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}
	rows := make([][]string, 0, len(records)-1)
	for n, rec := range records[1:] {
		if len(rec) > len(headers) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", n+2, len(rec), len(headers))
		}
		row := make([]string, len(headers))
		copy(row, rec)
		rows = append(rows, row)
	}
	return &Dataset{
		Headers:     headers,
		Rows:        rows,
		NumericCols: DetectNumericColumns(headers, rows),
	}, nil
}

// DropEmptyRows removes rows whose every cell is null. It returns the number removed.
func (d *Dataset) DropEmptyRows() int {
	kept := d.Rows[:0]
	for _, row := range d.Rows {
		if !isEmptyRow(row) {
			kept = append(kept, row)
		}
	}
	removed := len(d.Rows) - len(kept)
	d.Rows = kept
	return removed
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if !IsNull(c) {
			return false
		}
	}
	return true
}

// DetectNumericColumns returns the indices of columns where at least 80% of the non-empty
// cells parse as numbers.
func DetectNumericColumns(headers []string, rows [][]string) []int {
	var numericCols []int
	for col := range headers {
		if isColumnNumeric(rows, col) {
			numericCols = append(numericCols, col)
		}
	}
	return numericCols
}

func isColumnNumeric(rows [][]string, colIndex int) bool {
	numericCount := 0
	totalCount := 0
	for _, row := range rows {
		if colIndex >= len(row) || IsNull(row[colIndex]) {
			continue
		}
		totalCount++
		if _, ok := ParseFloat(row[colIndex]); ok {
			numericCount++
		}
	}
	if totalCount == 0 {
		return false
	}
	return float64(numericCount)/float64(totalCount) >= 0.8
}
