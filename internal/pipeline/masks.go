package pipeline

import (
	"encoding/json"
	"fmt"
	"math"

	"qcviz/internal/dataset"
	"qcviz/internal/qc"
)

// Sample is one element of a bucket: the measurement, or absent when Valid is false.
type Sample struct {
	Value float64
	Valid bool
}

// MarshalJSON encodes absent samples, and values JSON cannot carry, as null.
func (s Sample) MarshalJSON() ([]byte, error) {
	if !s.Valid || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// MaskedResult splits a variable into four parallel series, one per flag. For every row
// exactly one series holds the value and the other three hold an absent sample.
type MaskedResult struct {
	Pass    []Sample `json:"qc_pass"`
	Suspect []Sample `json:"qc_suspect"`
	Fail    []Sample `json:"qc_fail"`
	NotRun  []Sample `json:"qc_notrun"`
}

// ComputeMasks places each row's value of variable into the bucket of that row's flag.
// Rows are matched by source index, so the presentation order of annotated is irrelevant.
func ComputeMasks(ds *dataset.Dataset, annotated *AnnotatedDataset, variable, testID string) (MaskedResult, error) {
	var m MaskedResult
	if ds == nil || annotated == nil {
		return m, fmt.Errorf("compute masks: missing dataset")
	}
	if annotated.TestID != testID {
		return m, fmt.Errorf("compute masks: result is for %s, not %s", annotated.TestID, testID)
	}
	if annotated.Variable != variable {
		return m, fmt.Errorf("compute masks: result is for variable %s, not %s", annotated.Variable, variable)
	}
	obs, err := ds.Floats(variable)
	if err != nil {
		return m, fmt.Errorf("compute masks: %w", err)
	}
	if len(obs) != len(annotated.Flags) {
		return m, fmt.Errorf("compute masks: %d rows but %d flags", len(obs), len(annotated.Flags))
	}

	n := len(obs)
	m = MaskedResult{
		Pass:    make([]Sample, n),
		Suspect: make([]Sample, n),
		Fail:    make([]Sample, n),
		NotRun:  make([]Sample, n),
	}
	for i, v := range obs {
		bucket := m.Bucket(annotated.Flags[i])
		if bucket == nil {
			return MaskedResult{}, fmt.Errorf("compute masks: row %d has unknown flag %d", i+1, annotated.Flags[i])
		}
		bucket[i] = Sample{Value: v, Valid: true}
	}
	return m, nil
}

// Bucket returns the series for a flag, or nil for an unknown flag.
func (m MaskedResult) Bucket(f qc.Flag) []Sample {
	switch f {
	case qc.FlagPass:
		return m.Pass
	case qc.FlagSuspect:
		return m.Suspect
	case qc.FlagFail:
		return m.Fail
	case qc.FlagNotRun:
		return m.NotRun
	}
	return nil
}

// Len returns the number of rows.
func (m MaskedResult) Len() int {
	return len(m.Pass)
}

// Counts returns how many rows each bucket holds a value for.
func (m MaskedResult) Counts() map[qc.Flag]int {
	counts := make(map[qc.Flag]int, len(qc.Flags))
	for _, f := range qc.Flags {
		n := 0
		for _, s := range m.Bucket(f) {
			if s.Valid {
				n++
			}
		}
		counts[f] = n
	}
	return counts
}

// Tallies returns the bucket counts in display order.
func (m MaskedResult) Tallies() []dataset.Tally {
	counts := m.Counts()
	out := make([]dataset.Tally, 0, len(qc.Flags))
	for _, f := range qc.Flags {
		out = append(out, dataset.Tally{Label: f.Label(), Count: counts[f]})
	}
	return out
}
