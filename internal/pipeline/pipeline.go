// Package pipeline runs a QC test against one variable of a dataset and splits the result
// into the four flag buckets the chart draws.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"qcviz/internal/dataset"
	"qcviz/internal/qc"
)

// AnnotatedDataset is a dataset joined with the flags of one test. Flags and Times are in
// source row order; Order lists source rows by ascending time for presentation.
type AnnotatedDataset struct {
	Source          *dataset.Dataset
	Variable        string
	TestID          string
	TimeColumn      string
	SecondaryColumn string
	Flags           []qc.Flag
	Times           []time.Time
	Order           []int
}

func engineError(err error) error {
	return Wrap(StageEngine, &qc.EngineError{Err: err})
}

// RunTest runs the configured tests over variable and joins the flags of testID back onto
// the dataset. secondaryColumn may be empty. The engine sees observations in time order;
// flags are mapped back to source rows, so the dataset need not be sorted.
func RunTest(ctx context.Context, engine qc.Engine, ds *dataset.Dataset, variable, testID, timeColumn, secondaryColumn string, cfg qc.Configuration) (*AnnotatedDataset, error) {
	if ds == nil {
		return nil, engineError(errors.New("no dataset"))
	}
	if err := cfg.Validate(testID); err != nil {
		return nil, Wrap(StageConfig, err)
	}

	values, err := ds.Floats(variable)
	if err != nil {
		return nil, engineError(err)
	}
	timeCells, err := ds.Column(timeColumn)
	if err != nil {
		return nil, engineError(err)
	}
	times, err := ParseTimes(timeCells)
	if err != nil {
		return nil, engineError(fmt.Errorf("column %q: %w", timeColumn, err))
	}
	var secondary []float64
	if secondaryColumn != "" {
		secondary, err = ds.Floats(secondaryColumn)
		if err != nil {
			return nil, engineError(err)
		}
	}

	order := TimeOrder(times)
	in := qc.Input{
		Values: permute(values, order),
		Times:  permute(times, order),
	}
	if secondary != nil {
		in.Secondary = permute(secondary, order)
	}

	res, err := engine.Run(ctx, cfg, in)
	if err != nil {
		return nil, engineError(err)
	}
	sorted, ok := res.Flags(testID)
	if !ok {
		return nil, engineError(fmt.Errorf("no result for %s", testID))
	}
	if len(sorted) != len(order) {
		return nil, engineError(fmt.Errorf("%s returned %d flags for %d rows", testID, len(sorted), len(order)))
	}
	flags := make([]qc.Flag, len(order))
	for i, src := range order {
		if !sorted[i].Valid() {
			return nil, engineError(fmt.Errorf("%s returned unknown flag %d", testID, sorted[i]))
		}
		flags[src] = sorted[i]
	}

	return &AnnotatedDataset{
		Source:          ds,
		Variable:        variable,
		TestID:          testID,
		TimeColumn:      timeColumn,
		SecondaryColumn: secondaryColumn,
		Flags:           flags,
		Times:           times,
		Order:           order,
	}, nil
}

// ParseTimes parses timestamp cells after trimming whitespace. Zone-less values are UTC.
func ParseTimes(cells []string) ([]time.Time, error) {
	times := make([]time.Time, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("row %d: empty timestamp", i+1)
		}
		t, err := dateparse.ParseIn(c, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("row %d: unparseable timestamp %q", i+1, c)
		}
		times[i] = t
	}
	return times, nil
}

// TimeOrder returns row indices sorted by ascending time; equal times keep source order.
func TimeOrder(times []time.Time) []int {
	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]].Before(times[order[b]])
	})
	return order
}

func permute[T any](in []T, order []int) []T {
	out := make([]T, len(order))
	for i, src := range order {
		out[i] = in[src]
	}
	return out
}

// FlagColumn is the name of the appended flag column.
func (a *AnnotatedDataset) FlagColumn() string {
	return a.TestID
}

// Table returns the source dataset with the flag column appended and rows in time order.
func (a *AnnotatedDataset) Table() (*dataset.Dataset, error) {
	cells := make([]string, len(a.Flags))
	for i, f := range a.Flags {
		cells[i] = strconv.Itoa(int(f))
	}
	joined, err := a.Source.WithColumn(a.FlagColumn(), cells)
	if err != nil {
		return nil, err
	}
	return joined.Reorder(a.Order)
}
