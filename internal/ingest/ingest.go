// Package ingest turns uploaded bytes into a dataset.
//
// Delimited text is read with encoding/csv after sniffing the separator; gridded NetCDF files
// are decoded through a GridDecoder and flattened into one row per grid point.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"qcviz/internal/dataset"
)

// SniffWindow is how many leading bytes SniffDelimiter inspects.
const SniffWindow = 1024

// UnsupportedFormatError is returned for files that are neither .csv nor .nc.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q: upload a .csv or .nc file", filepath.Ext(e.Filename))
}

// Parser dispatches on file extension.
type Parser struct {
	Grid GridDecoder
}

// NewParser returns a parser that decodes NetCDF with the pure-Go decoder.
func NewParser() *Parser {
	return &Parser{Grid: NetCDFDecoder{}}
}

// ParseFile parses data according to filename's extension. The returned dataset carries the
// filename and size; the caller assigns identity and upload time.
func ParseFile(data []byte, filename string) (*dataset.Dataset, error) {
	return NewParser().ParseFile(data, filename)
}

// ParseFile parses data according to filename's extension.
func (p *Parser) ParseFile(data []byte, filename string) (*dataset.Dataset, error) {
	var (
		ds  *dataset.Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		ds, err = ParseCSV(data)
	case ".nc":
		ds, err = p.parseGrid(data)
	default:
		return nil, &UnsupportedFormatError{Filename: filename}
	}
	if err != nil {
		return nil, err
	}
	ds.FileName = filename
	ds.FileSize = int64(len(data))
	return ds, nil
}

// SniffDelimiter guesses the separator of delimited text from its first SniffWindow bytes.
// Semicolon wins only when it strictly outnumbers commas, then tab under the same rule;
// anything else, ties included, is a comma.
func SniffDelimiter(sample []byte) rune {
	if len(sample) > SniffWindow {
		sample = sample[:SniffWindow]
	}
	commas := bytes.Count(sample, []byte{','})
	if bytes.Count(sample, []byte{';'}) > commas {
		return ';'
	}
	if bytes.Count(sample, []byte{'\t'}) > commas {
		return '\t'
	}
	return ','
}

// ParseCSV reads delimited text with a sniffed separator.
func ParseCSV(data []byte) (*dataset.Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = SniffDelimiter(data)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	ds, err := dataset.FromRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return ds, nil
}

func (p *Parser) parseGrid(data []byte) (*dataset.Dataset, error) {
	if p.Grid == nil {
		return nil, fmt.Errorf("no grid decoder configured")
	}
	grid, err := p.Grid.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode netcdf: %w", err)
	}
	ds, err := grid.Flatten()
	if err != nil {
		return nil, fmt.Errorf("flatten netcdf: %w", err)
	}
	ds.DropEmptyRows()
	ds.NumericCols = dataset.DetectNumericColumns(ds.Headers, ds.Rows)
	return ds, nil
}
