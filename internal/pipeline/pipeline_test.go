package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcviz/internal/dataset"
	"qcviz/internal/ingest"
	"qcviz/internal/qc"
	"qcviz/internal/qc/qartod"
)

func grossRangeConfig(t *testing.T) qc.Configuration {
	t.Helper()
	cfg, err := qc.FromForm(qc.GrossRangeTest, qc.FieldMap{
		"fail_span_min":    "-10",
		"fail_span_max":    "10",
		"suspect_span_min": "-2",
		"suspect_span_max": "3",
	})
	require.NoError(t, err)
	return cfg
}

func measurements(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"time", "z", "measurement"},
		{"2024-01-01 00:00:00", "0", "1"},
		{"2024-01-01 01:00:00", "0", "2"},
		{"2024-01-01 02:00:00", "0", "11"},
		{"2024-01-01 03:00:00", "0", "3"},
		{"2024-01-01 04:00:00", "0", "5"},
	})
	require.NoError(t, err)
	return ds
}

func TestRunTest_GrossRangeScenario(t *testing.T) {
	ds := measurements(t)

	got, err := RunTest(context.Background(), qartod.New(), ds, "measurement", qc.GrossRangeTest, "time", "z", grossRangeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []qc.Flag{qc.FlagPass, qc.FlagPass, qc.FlagFail, qc.FlagPass, qc.FlagSuspect}, got.Flags)
}

func TestRunTest_Idempotent(t *testing.T) {
	ds := measurements(t)
	cfg := grossRangeConfig(t)

	a, err := RunTest(context.Background(), qartod.New(), ds, "measurement", qc.GrossRangeTest, "time", "z", cfg)
	require.NoError(t, err)
	b, err := RunTest(context.Background(), qartod.New(), ds, "measurement", qc.GrossRangeTest, "time", "z", cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestRunTest_UnsortedInputSortedTable(t *testing.T) {
	ds, err := dataset.FromRecords([][]string{
		{"time", "v"},
		{"2024-01-01T02:00:00Z", "20"},
		{" 2024-01-01T00:00:00Z ", "1"},
		{"2024-01-01T01:00:00Z", "2"},
	})
	require.NoError(t, err)

	got, err := RunTest(context.Background(), qartod.New(), ds, "v", qc.GrossRangeTest, "time", "", grossRangeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []qc.Flag{qc.FlagFail, qc.FlagPass, qc.FlagPass}, got.Flags)
	assert.Equal(t, []int{1, 2, 0}, got.Order)

	table, err := got.Table()
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "v", qc.GrossRangeTest}, table.Headers)
	assert.Equal(t, []string{"2024-01-01T02:00:00Z", "20", "4"}, table.Rows[2])

	masks, err := ComputeMasks(ds, got, "v", qc.GrossRangeTest)
	require.NoError(t, err)
	assert.Equal(t, Sample{Value: 20, Valid: true}, masks.Fail[0])
	assert.False(t, masks.Pass[0].Valid)
}

func TestComputeMasks_Partition(t *testing.T) {
	ds := measurements(t)
	annotated, err := RunTest(context.Background(), qartod.New(), ds, "measurement", qc.GrossRangeTest, "time", "z", grossRangeConfig(t))
	require.NoError(t, err)

	m, err := ComputeMasks(ds, annotated, "measurement", qc.GrossRangeTest)
	require.NoError(t, err)

	values, _ := ds.Floats("measurement")
	require.Equal(t, ds.RowCount(), m.Len())
	for i := 0; i < m.Len(); i++ {
		present := 0
		for _, f := range qc.Flags {
			s := m.Bucket(f)[i]
			if s.Valid {
				present++
				assert.Equal(t, values[i], s.Value)
				assert.Equal(t, annotated.Flags[i], f)
			}
		}
		assert.Equal(t, 1, present, "row %d", i)
	}

	total := 0
	for _, n := range m.Counts() {
		total += n
	}
	assert.Equal(t, ds.RowCount(), total)
	assert.Equal(t, map[qc.Flag]int{qc.FlagPass: 3, qc.FlagSuspect: 1, qc.FlagFail: 1, qc.FlagNotRun: 0}, m.Counts())
}

func TestComputeMasks_Pure(t *testing.T) {
	ds := measurements(t)
	annotated, err := RunTest(context.Background(), qartod.New(), ds, "measurement", qc.GrossRangeTest, "time", "z", grossRangeConfig(t))
	require.NoError(t, err)

	a, err := ComputeMasks(ds, annotated, "measurement", qc.GrossRangeTest)
	require.NoError(t, err)
	b, err := ComputeMasks(ds, annotated, "measurement", qc.GrossRangeTest)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeMasks_WrongTest(t *testing.T) {
	ds := measurements(t)
	annotated, err := RunTest(context.Background(), qartod.New(), ds, "measurement", qc.GrossRangeTest, "time", "z", grossRangeConfig(t))
	require.NoError(t, err)

	_, err = ComputeMasks(ds, annotated, "measurement", qc.SpikeTest)
	assert.Error(t, err)
	_, err = ComputeMasks(ds, annotated, "missing", qc.GrossRangeTest)
	assert.Error(t, err)
}

func TestRoundTrip_CSV(t *testing.T) {
	ds := measurements(t)
	annotated, err := RunTest(context.Background(), qartod.New(), ds, "measurement", qc.GrossRangeTest, "time", "z", grossRangeConfig(t))
	require.NoError(t, err)
	_, err = ComputeMasks(ds, annotated, "measurement", qc.GrossRangeTest)
	require.NoError(t, err)

	table, err := annotated.Table()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	back, err := ingest.ParseFile(buf.Bytes(), "masked_qc_data.csv")
	require.NoError(t, err)
	assert.Len(t, back.Headers, len(ds.Headers)+1)
	assert.Equal(t, ds.RowCount(), back.RowCount())
	flags, err := back.Floats(qc.GrossRangeTest)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 4, 1, 3}, flags)
}

func TestRunTest_StageErrors(t *testing.T) {
	ds := measurements(t)
	bad, err := dataset.FromRecords([][]string{{"time", "v"}, {"yesterday-ish", "1"}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		ds     *dataset.Dataset
		column string
		time   string
		cfg    qc.Configuration
		stage  Stage
	}{
		{"spans given as thresholds", ds, "measurement", "time", qc.Configuration{qc.Module: {qc.GrossRangeTest: {"fail_span_min": 1.0}}}, StageConfig},
		{"missing variable", ds, "salinity", "time", grossRangeConfig(t), StageEngine},
		{"missing time column", ds, "measurement", "timestamp", grossRangeConfig(t), StageEngine},
		{"unparseable timestamp", bad, "v", "time", grossRangeConfig(t), StageEngine},
		{"suspect outside fail", ds, "measurement", "time", qc.Configuration{qc.Module: {qc.GrossRangeTest: {
			"fail_span":    []interface{}{0.0, 1.0},
			"suspect_span": []interface{}{-5.0, 5.0},
		}}}, StageEngine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunTest(context.Background(), qartod.New(), tt.ds, tt.column, qc.GrossRangeTest, tt.time, "", tt.cfg)

			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.stage, stageErr.Stage)
			if tt.stage == StageEngine {
				var engineErr *qc.EngineError
				assert.True(t, errors.As(err, &engineErr))
			}
		})
	}
}

type shortEngine struct{}

func (shortEngine) Run(context.Context, qc.Configuration, qc.Input) (qc.Results, error) {
	return qc.Results{qc.Module: {qc.GrossRangeTest: {qc.FlagPass}}}, nil
}

func TestRunTest_EngineReturnsWrongLength(t *testing.T) {
	_, err := RunTest(context.Background(), shortEngine{}, measurements(t), "measurement", qc.GrossRangeTest, "time", "", grossRangeConfig(t))

	var engineErr *qc.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Contains(t, err.Error(), "returned 1 flags for 5 rows")
}

func TestSample_MarshalJSON(t *testing.T) {
	out, err := json.Marshal([]Sample{{Value: 1.5, Valid: true}, {}, {Value: 0, Valid: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null, 0]`, string(out))
}
