package session

import (
	"context"

	"qcviz/internal/pipeline"
	"qcviz/internal/qc"
)

// Result is one test run against a state: the annotated table and its flag buckets.
type Result struct {
	Annotated *pipeline.AnnotatedDataset
	Masks     pipeline.MaskedResult
}

// Run applies testID to the state's dataset. A nil state yields NoDatasetError.
func (s *State) Run(ctx context.Context, engine qc.Engine, vars Variables, testID string, cfg qc.Configuration) (*Result, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	annotated, err := pipeline.RunTest(ctx, engine, ds, vars.Variable, testID, vars.Time, vars.Secondary, cfg)
	if err != nil {
		return nil, err
	}
	masks, err := pipeline.ComputeMasks(ds, annotated, vars.Variable, testID)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.StageEngine, err)
	}
	return &Result{Annotated: annotated, Masks: masks}, nil
}
