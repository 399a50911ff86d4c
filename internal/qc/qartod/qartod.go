// Package qartod is the built-in QC engine. It implements the gross range, flat line, rate of
// change and spike tests of the QARTOD manuals with the flagging rules of ioos_qc.
package qartod

import (
	"context"
	"fmt"
	"math"

	"qcviz/internal/qc"
)

type testFunc func(p qc.Params, in qc.Input) ([]qc.Flag, error)

var tests = map[string]testFunc{
	qc.GrossRangeTest:   grossRange,
	qc.FlatLineTest:     flatLine,
	qc.RateOfChangeTest: rateOfChange,
	qc.SpikeTest:        spike,
}

// Engine runs every configured test. The zero value is ready to use.
type Engine struct{}

// New returns the built-in engine.
func New() *Engine {
	return &Engine{}
}

// Run implements qc.Engine.
func (e *Engine) Run(ctx context.Context, cfg qc.Configuration, in qc.Input) (qc.Results, error) {
	if len(in.Times) != in.Len() {
		return nil, fmt.Errorf("%d timestamps for %d values", len(in.Times), in.Len())
	}
	if in.Secondary != nil && len(in.Secondary) != in.Len() {
		return nil, fmt.Errorf("%d secondary values for %d values", len(in.Secondary), in.Len())
	}
	results := make(qc.Results, len(cfg))
	for module, configured := range cfg {
		if module != qc.Module {
			return nil, fmt.Errorf("unknown module %q", module)
		}
		out := make(map[string][]qc.Flag, len(configured))
		for testID, params := range configured {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fn, ok := tests[testID]
			if !ok {
				return nil, fmt.Errorf("%s has no test %q", module, testID)
			}
			if err := cfg.Validate(testID); err != nil {
				return nil, err
			}
			flags, err := fn(params, in)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", testID, err)
			}
			out[testID] = flags
		}
		results[module] = out
	}
	return results, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// newFlags starts every observation at pass, except missing values which cannot be tested.
func newFlags(values []float64) []qc.Flag {
	flags := make([]qc.Flag, len(values))
	for i, v := range values {
		if finite(v) {
			flags[i] = qc.FlagPass
		} else {
			flags[i] = qc.FlagNotRun
		}
	}
	return flags
}

func grossRange(p qc.Params, in qc.Input) ([]qc.Flag, error) {
	fail, err := p.Span("fail_span")
	if err != nil {
		return nil, err
	}
	suspect, err := p.Span("suspect_span")
	if err != nil {
		return nil, err
	}
	if fail[0] > fail[1] {
		return nil, fmt.Errorf("fail_span min %g exceeds max %g", fail[0], fail[1])
	}
	if suspect[0] > suspect[1] {
		return nil, fmt.Errorf("suspect_span min %g exceeds max %g", suspect[0], suspect[1])
	}
	if suspect[0] < fail[0] || suspect[1] > fail[1] {
		return nil, fmt.Errorf("suspect_span %v must lie within fail_span %v", suspect, fail)
	}

	flags := newFlags(in.Values)
	for i, v := range in.Values {
		if flags[i] != qc.FlagPass {
			continue
		}
		switch {
		case v < fail[0] || v > fail[1]:
			flags[i] = qc.FlagFail
		case v < suspect[0] || v > suspect[1]:
			flags[i] = qc.FlagSuspect
		}
	}
	return flags, nil
}

func flatLine(p qc.Params, in qc.Input) ([]qc.Flag, error) {
	tolerance, err := p.Float("tolerance")
	if err != nil {
		return nil, err
	}
	suspectThreshold, err := p.Float("suspect_threshold")
	if err != nil {
		return nil, err
	}
	failThreshold, err := p.Float("fail_threshold")
	if err != nil {
		return nil, err
	}
	if suspectThreshold > failThreshold {
		return nil, fmt.Errorf("suspect_threshold %g exceeds fail_threshold %g", suspectThreshold, failThreshold)
	}

	flags := newFlags(in.Values)
	for i := range in.Values {
		if flags[i] != qc.FlagPass {
			continue
		}
		if flatFor(in, i, suspectThreshold, tolerance) {
			flags[i] = qc.FlagSuspect
		}
		if flatFor(in, i, failThreshold, tolerance) {
			flags[i] = qc.FlagFail
		}
	}
	return flags, nil
}

// flatFor reports whether the observations in the window of the given length ending at i
// vary by less than tolerance. The window must be fully covered by earlier observations.
func flatFor(in qc.Input, i int, window, tolerance float64) bool {
	lo, hi := in.Values[i], in.Values[i]
	for j := i - 1; j >= 0; j-- {
		age := in.Times[i].Sub(in.Times[j]).Seconds()
		if age < 0 {
			continue
		}
		v := in.Values[j]
		if finite(v) {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			if hi-lo >= tolerance {
				return false
			}
		}
		if age >= window {
			return true
		}
	}
	return false
}

func rateOfChange(p qc.Params, in qc.Input) ([]qc.Flag, error) {
	threshold, err := p.Float("threshold")
	if err != nil {
		return nil, err
	}
	flags := newFlags(in.Values)
	prev := -1
	for i, v := range in.Values {
		if !finite(v) {
			continue
		}
		if prev >= 0 {
			dt := in.Times[i].Sub(in.Times[prev]).Seconds()
			dv := v - in.Values[prev]
			// A change between repeated timestamps is an infinite rate.
			if (dt == 0 && dv != 0) || (dt != 0 && math.Abs(dv/dt) > threshold) {
				flags[i] = qc.FlagSuspect
			}
		}
		prev = i
	}
	return flags, nil
}

func spike(p qc.Params, in qc.Input) ([]qc.Flag, error) {
	suspectThreshold, err := p.Float("suspect_threshold")
	if err != nil {
		return nil, err
	}
	failThreshold, err := p.Float("fail_threshold")
	if err != nil {
		return nil, err
	}
	if suspectThreshold > failThreshold {
		return nil, fmt.Errorf("suspect_threshold %g exceeds fail_threshold %g", suspectThreshold, failThreshold)
	}

	flags := newFlags(in.Values)
	n := len(in.Values)
	for i := range in.Values {
		if flags[i] != qc.FlagPass {
			continue
		}
		if i == 0 || i == n-1 || !finite(in.Values[i-1]) || !finite(in.Values[i+1]) {
			flags[i] = qc.FlagNotRun
			continue
		}
		ref := math.Abs(in.Values[i] - (in.Values[i-1]+in.Values[i+1])/2)
		switch {
		case ref > failThreshold:
			flags[i] = qc.FlagFail
		case ref > suspectThreshold:
			flags[i] = qc.FlagSuspect
		}
	}
	return flags, nil
}
