// Package session owns the dataset a user is working on.
//
// A State is immutable: loading a file produces a new State, and a failed load produces
// nothing, so the previous State stays in effect. Holder is the one mutable slot the host
// keeps the current State in.
package session

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"qcviz/internal/dataset"
	"qcviz/internal/ingest"
	"qcviz/internal/pipeline"
)

// ExampleFileName is the name the bundled example dataset is presented under.
const ExampleFileName = "water_level_example_test.csv"

//go:embed water_level_example_test.csv
var exampleCSV []byte

// Source records where a state's dataset came from.
type Source string

const (
	SourceUpload  Source = "upload"
	SourceExample Source = "example"
)

// NoDatasetError is returned when an action needs a dataset and none has been loaded.
type NoDatasetError struct{}

func (e *NoDatasetError) Error() string {
	return "no dataset loaded: upload a file or run with the example dataset"
}

// TooManyRowsError is returned when a file exceeds the configured row limit.
type TooManyRowsError struct {
	Rows, Max int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("too many rows (%d > %d)", e.Rows, e.Max)
}

// State is one loaded dataset.
type State struct {
	dataset  *dataset.Dataset
	Source   Source
	LoadedAt time.Time
}

// Dataset returns the loaded dataset, or NoDatasetError on an empty state.
func (s *State) Dataset() (*dataset.Dataset, error) {
	if s == nil || s.dataset == nil {
		return nil, &NoDatasetError{}
	}
	return s.dataset, nil
}

// Loader builds states from file contents.
type Loader struct {
	Parser  *ingest.Parser
	MaxRows int
	Now     func() time.Time
}

// NewLoader returns a loader with the default parser. maxRows <= 0 disables the limit.
func NewLoader(maxRows int) *Loader {
	return &Loader{Parser: ingest.NewParser(), MaxRows: maxRows, Now: time.Now}
}

// Load parses data into a new state. Errors are marked as ingestion failures.
func (l *Loader) Load(data []byte, filename string) (*State, error) {
	return l.load(data, filename, SourceUpload)
}

// Example loads the bundled example dataset.
func (l *Loader) Example() (*State, error) {
	return l.load(exampleCSV, ExampleFileName, SourceExample)
}

func (l *Loader) load(data []byte, filename string, src Source) (*State, error) {
	ds, err := l.Parser.ParseFile(data, filename)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.StageIngestion, err)
	}
	if l.MaxRows > 0 && ds.RowCount() > l.MaxRows {
		return nil, pipeline.Wrap(pipeline.StageIngestion, &TooManyRowsError{Rows: ds.RowCount(), Max: l.MaxRows})
	}
	now := l.Now()
	ds.ID = uuid.NewString()
	ds.UploadTime = now
	return &State{dataset: ds, Source: src, LoadedAt: now}, nil
}

// Holder keeps the current state and runs one action at a time against it.
type Holder struct {
	mu      sync.Mutex
	current *State
}

// Current returns the current state, possibly nil.
func (h *Holder) Current() *State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Do runs fn with the current state. When fn returns a non-nil state and no error, that
// state replaces the current one; otherwise the current state is kept.
func (h *Holder) Do(fn func(cur *State) (*State, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	next, err := fn(h.current)
	if err != nil {
		return err
	}
	if next != nil {
		h.current = next
	}
	return nil
}

// Variables names the three columns a test run reads.
type Variables struct {
	Variable  string
	Time      string
	Secondary string
}

// DefaultVariables are the column names of the example dataset.
var DefaultVariables = Variables{
	Variable:  "sea_surface_height_above_sea_level",
	Time:      "time",
	Secondary: "z",
}

// OrDefaults returns v, or defaults when no measurement variable was chosen.
func (v Variables) OrDefaults(defaults Variables) Variables {
	if v.Variable == "" {
		return defaults
	}
	return v
}
