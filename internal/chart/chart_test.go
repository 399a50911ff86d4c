package chart

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcviz/internal/dataset"
	"qcviz/internal/pipeline"
	"qcviz/internal/qc"
	"qcviz/internal/qc/qartod"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func plotFor(t *testing.T, records [][]string) Plot {
	t.Helper()
	ds, err := dataset.FromRecords(records)
	require.NoError(t, err)
	cfg, err := qc.DefaultConfiguration()
	require.NoError(t, err)
	annotated, err := pipeline.RunTest(context.Background(), qartod.New(), ds, "v", qc.GrossRangeTest, "time", "", cfg)
	require.NoError(t, err)
	masks, err := pipeline.ComputeMasks(ds, annotated, "v", qc.GrossRangeTest)
	require.NoError(t, err)
	p, err := NewPlot(ds, annotated, masks)
	require.NoError(t, err)
	return p
}

func TestPNGRenderer(t *testing.T) {
	p := plotFor(t, [][]string{
		{"time", "v"},
		{"2024-01-01T00:00:00Z", "1"},
		{"2024-01-01T01:00:00Z", "11"},
		{"2024-01-01T02:00:00Z", "2.5"},
		{"2024-01-01T03:00:00Z", "-5"},
	})
	assert.Equal(t, "v - gross_range_test", p.Title)
	assert.Equal(t, "time", p.XLabel)

	var buf bytes.Buffer
	require.NoError(t, PNGRenderer{Width: 640, Height: 320}.Render(&buf, p))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPNGRenderer_SinglePoint(t *testing.T) {
	p := plotFor(t, [][]string{{"time", "v"}, {"2024-01-01T00:00:00Z", "0"}})

	var buf bytes.Buffer
	require.NoError(t, PNGRenderer{Width: 320, Height: 200}.Render(&buf, p))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPNGRenderer_NothingToPlot(t *testing.T) {
	p := plotFor(t, [][]string{{"time", "v"}, {"2024-01-01T00:00:00Z", ""}})

	err := PNGRenderer{Width: 320, Height: 200}.Render(&bytes.Buffer{}, p)
	assert.True(t, errors.Is(err, ErrNothingToPlot))
}

func TestValueRange_IncludesZero(t *testing.T) {
	r := valueRange([]float64{2, 5})
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 5.0, r.Max)

	r = valueRange([]float64{-3, -1})
	assert.Equal(t, -3.0, r.Min)
	assert.Equal(t, 0.0, r.Max)

	r = valueRange([]float64{0})
	assert.Equal(t, 1.0, r.Max-r.Min)
	assert.False(t, math.IsNaN(r.Min))
}
