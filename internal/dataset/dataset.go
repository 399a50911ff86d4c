// Package dataset holds the in-memory table every stage of the QC pipeline reads.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Dataset is one uploaded table: rows are observations, columns are named variables.
// Cells are kept as the strings they were read as; numeric views are parsed on demand.
type Dataset struct {
	ID          string
	Headers     []string
	Rows        [][]string
	NumericCols []int
	FileName    string
	UploadTime  time.Time
	FileSize    int64
}

// ColumnNotFoundError is returned when a named column is absent.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// RowCount returns the number of observations.
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of the named column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, h := range d.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns the raw cells of a column, one per row. Short rows yield "".
func (d *Dataset) Column(name string) ([]string, error) {
	colIndex, ok := d.ColumnIndex(name)
	if !ok {
		return nil, &ColumnNotFoundError{Column: name}
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		if colIndex < len(row) {
			out[i] = row[colIndex]
		}
	}
	return out, nil
}

// Floats returns a column parsed as numbers. Cells that do not parse become NaN so the
// result always has one entry per row.
func (d *Dataset) Floats(name string) ([]float64, error) {
	cells, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, ok := ParseFloat(c)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// IsNumeric reports whether the column at colIndex was detected as numeric.
func (d *Dataset) IsNumeric(colIndex int) bool {
	for _, c := range d.NumericCols {
		if c == colIndex {
			return true
		}
	}
	return false
}

// NumericHeaders returns the names of the numeric columns in header order.
func (d *Dataset) NumericHeaders() []string {
	var out []string
	for _, c := range d.NumericCols {
		out = append(out, d.Headers[c])
	}
	return out
}

var nullTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"--":   true,
}

// IsNull reports whether a cell holds no value.
func IsNull(cell string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// ParseFloat parses a cell as a number. Null tokens and garbage report ok=false.
func ParseFloat(cell string) (float64, bool) {
	val := strings.TrimSpace(cell)
	if IsNull(val) {
		return 0, false
	}
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

// FormatFloat renders a number the way it is written back into CSV cells.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WithColumn returns a copy of the dataset with the given column appended, or replaced when
// a column of that name already exists. The receiver is not modified.
func (d *Dataset) WithColumn(name string, cells []string) (*Dataset, error) {
	if len(cells) != len(d.Rows) {
		return nil, fmt.Errorf("column %q has %d cells, dataset has %d rows", name, len(cells), len(d.Rows))
	}
	out := *d
	colIndex, exists := d.ColumnIndex(name)
	if exists {
		out.Headers = append([]string(nil), d.Headers...)
	} else {
		colIndex = len(d.Headers)
		out.Headers = append(append([]string(nil), d.Headers...), name)
	}
	out.Rows = make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		r := make([]string, len(out.Headers))
		copy(r, row)
		r[colIndex] = cells[i]
		out.Rows[i] = r
	}
	out.NumericCols = DetectNumericColumns(out.Headers, out.Rows)
	return &out, nil
}

// Reorder returns a copy of the dataset with rows arranged by order, where order[i] is the
// source row placed at position i.
func (d *Dataset) Reorder(order []int) (*Dataset, error) {
	if len(order) != len(d.Rows) {
		return nil, fmt.Errorf("order has %d entries, dataset has %d rows", len(order), len(d.Rows))
	}
	out := *d
	out.Rows = make([][]string, len(d.Rows))
	for i, src := range order {
		if src < 0 || src >= len(d.Rows) {
			return nil, fmt.Errorf("order entry %d out of range", src)
		}
		out.Rows[i] = d.Rows[src]
	}
	return &out, nil
}
