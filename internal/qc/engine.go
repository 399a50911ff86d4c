package qc

import (
	"context"
	"time"
)

// Input is what a QC engine tests: the measurement series, its timestamps and an optional
// secondary series such as depth. All slices have one entry per observation; Secondary may
// be nil.
type Input struct {
	Values    []float64
	Times     []time.Time
	Secondary []float64
}

// Len returns the number of observations.
func (in Input) Len() int {
	return len(in.Values)
}

// Results holds one flag vector per test: module -> test -> flags.
type Results map[string]map[string][]Flag

// Flags returns the flag vector of a built-in test.
func (r Results) Flags(testID string) ([]Flag, bool) {
	tests, ok := r[Module]
	if !ok {
		return nil, false
	}
	f, ok := tests[testID]
	return f, ok
}

// Engine runs every test in a configuration against one input.
type Engine interface {
	Run(ctx context.Context, cfg Configuration, in Input) (Results, error)
}
