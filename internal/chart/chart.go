// Package chart draws a QC result as a time series with one marker series per flag.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"qcviz/internal/dataset"
	"qcviz/internal/pipeline"
	"qcviz/internal/qc"
)

// ErrNothingToPlot is returned when the variable has no finite value.
var ErrNothingToPlot = errors.New("nothing to plot: the variable has no numeric values")

// Plot is everything a renderer needs. Times and Values are in source row order, parallel
// to the buckets of Masks; Order lists rows by ascending time.
type Plot struct {
	Title  string
	XLabel string
	YLabel string
	Times  []time.Time
	Values []float64
	Order  []int
	Masks  pipeline.MaskedResult
}

// Renderer draws a plot.
type Renderer interface {
	Render(w io.Writer, p Plot) error
}

// NewPlot assembles a plot of variable from a test result.
func NewPlot(ds *dataset.Dataset, annotated *pipeline.AnnotatedDataset, masks pipeline.MaskedResult) (Plot, error) {
	values, err := ds.Floats(annotated.Variable)
	if err != nil {
		return Plot{}, err
	}
	return Plot{
		Title:  fmt.Sprintf("%s - %s", annotated.Variable, annotated.TestID),
		XLabel: annotated.TimeColumn,
		YLabel: annotated.Variable,
		Times:  annotated.Times,
		Values: values,
		Order:  annotated.Order,
		Masks:  masks,
	}, nil
}

// PNGRenderer renders with go-chart.
type PNGRenderer struct {
	Width  int
	Height int
}

// markerStyle draws points only, no connecting line.
func markerStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: gochart.Disabled,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    4,
		DotColor:    col,
	}
}

var markers = []struct {
	flag  qc.Flag
	color drawing.Color
}{
	{qc.FlagFail, drawing.ColorFromHex("d62728")},
	{qc.FlagNotRun, drawing.ColorFromHex("808080")},
	{qc.FlagSuspect, drawing.ColorFromHex("ffa500")},
	{qc.FlagPass, gochart.ColorGreen},
}

// Render implements Renderer.
func (r PNGRenderer) Render(w io.Writer, p Plot) error {
	var (
		lineX []time.Time
		lineY []float64
	)
	for _, i := range p.Order {
		if finite(p.Values[i]) {
			lineX = append(lineX, p.Times[i])
			lineY = append(lineY, p.Values[i])
		}
	}
	if len(lineY) == 0 {
		return ErrNothingToPlot
	}

	series := []gochart.Series{gochart.TimeSeries{
		Name:    p.YLabel,
		XValues: lineX,
		YValues: lineY,
		Style:   gochart.Style{StrokeColor: gochart.ColorBlue, StrokeWidth: 1.5},
	}}
	for _, m := range markers {
		var xs []time.Time
		var ys []float64
		for _, i := range p.Order {
			s := p.Masks.Bucket(m.flag)[i]
			if s.Valid && finite(s.Value) {
				xs = append(xs, p.Times[i])
				ys = append(ys, s.Value)
			}
		}
		// go-chart refuses empty series, the legend only lists flags that occur.
		if len(xs) == 0 {
			continue
		}
		series = append(series, gochart.TimeSeries{
			Name:    m.flag.Label(),
			XValues: xs,
			YValues: ys,
			Style:   markerStyle(m.color),
		})
	}

	ch := gochart.Chart{
		Title:      p.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           p.XLabel,
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006-01-02 15:04"),
			Range:          timeRange(lineX),
		},
		YAxis: gochart.YAxis{
			Name:  p.YLabel,
			Range: valueRange(lineY),
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// timeRange pads a single instant so the axis has width.
func timeRange(xs []time.Time) *gochart.ContinuousRange {
	lo, hi := xs[0], xs[0]
	for _, t := range xs[1:] {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	if lo.Equal(hi) {
		lo, hi = lo.Add(-time.Hour), hi.Add(time.Hour)
	}
	return &gochart.ContinuousRange{Min: gochart.TimeToFloat64(lo), Max: gochart.TimeToFloat64(hi)}
}

// valueRange always includes zero.
func valueRange(ys []float64) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range ys {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}
