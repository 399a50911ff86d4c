package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcviz/internal/pipeline"
	"qcviz/internal/qc"
	"qcviz/internal/qc/qartod"
)

func TestStateRun(t *testing.T) {
	st, err := fixedLoader(0).Load([]byte("time,v\n2024-01-01T00:00:00Z,1\n2024-01-01T01:00:00Z,11\n2024-01-01T02:00:00Z,2.5\n"), "a.csv")
	require.NoError(t, err)
	cfg, err := qc.DefaultConfiguration()
	require.NoError(t, err)

	res, err := st.Run(context.Background(), qartod.New(), Variables{Variable: "v", Time: "time"}, qc.GrossRangeTest, cfg)
	require.NoError(t, err)

	assert.Equal(t, []qc.Flag{qc.FlagPass, qc.FlagFail, qc.FlagPass}, res.Annotated.Flags)
	counts := res.Masks.Counts()
	assert.Equal(t, 2, counts[qc.FlagPass])
	assert.Equal(t, 1, counts[qc.FlagFail])
}

func TestStateRun_NoDataset(t *testing.T) {
	var st *State
	_, err := st.Run(context.Background(), qartod.New(), DefaultVariables, qc.GrossRangeTest, nil)

	var noData *NoDatasetError
	assert.True(t, errors.As(err, &noData))
}

func TestStateRun_MissingColumnIsEngineStage(t *testing.T) {
	st, err := fixedLoader(0).Load([]byte("time,v\n2024-01-01T00:00:00Z,1\n"), "a.csv")
	require.NoError(t, err)
	cfg, err := qc.DefaultConfiguration()
	require.NoError(t, err)

	_, err = st.Run(context.Background(), qartod.New(), Variables{Variable: "absent", Time: "time"}, qc.GrossRangeTest, cfg)

	var stageErr *pipeline.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageEngine, stageErr.Stage)
}
