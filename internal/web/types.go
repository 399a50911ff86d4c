// types.go
package web

import (
	"html/template"

	"qcviz/internal/dataset"
	"qcviz/internal/pipeline"
	"qcviz/internal/qc"
	"qcviz/internal/session"
)

// APIResponse is the envelope of every JSON endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DatasetInfo describes the loaded dataset on the page.
type DatasetInfo struct {
	FileName    string
	FileSize    int64
	RowCount    int
	Source      session.Source
	Headers     []string
	NumericCols []int
	Numeric     []string
}

// ResultView is a rendered test run.
type ResultView struct {
	Title   string
	Chart   template.URL // data: URL of the PNG, empty when nothing could be drawn
	Tallies []dataset.Tally
	Summary *dataset.Summary
	Headers []string
	Rows    [][]string
	Total   int
}

// PageData feeds the index template.
type PageData struct {
	Tests    []string
	Selected string
	Schema   qc.TestSchema
	Values   map[string]string
	Vars     session.Variables
	Dataset  *DatasetInfo
	Status   *Status
	Result   *ResultView
}

// RunRequest is the body of POST /api/run. Config, when set, is used as is; otherwise
// Params fills the test's form fields, and missing fields take the schema defaults.
type RunRequest struct {
	Test      string             `json:"test" binding:"required"`
	Variable  string             `json:"variable"`
	Time      string             `json:"time"`
	Secondary string             `json:"secondary"`
	Params    map[string]float64 `json:"params"`
	Config    qc.Configuration   `json:"config"`
	Example   bool               `json:"example"`
}

// RunResponse is the data of a successful POST /api/run.
type RunResponse struct {
	DatasetID string                `json:"dataset_id"`
	Test      string                `json:"test"`
	Variable  string                `json:"variable"`
	Rows      int                   `json:"rows"`
	Counts    map[string]int        `json:"counts"`
	Flags     []qc.Flag             `json:"flags"`
	Masks     pipeline.MaskedResult `json:"masks"`
	Summary   *dataset.Summary      `json:"summary,omitempty"`
	Config    qc.Configuration      `json:"config"`
}
