// calculations.go
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the finite values of a series.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// Summarize computes a Summary over the finite entries of vals. Std is the sample
// standard deviation, zero for a single value.
func Summarize(vals []float64) (Summary, error) {
	var finite []float64
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Summary{}, fmt.Errorf("no numeric values")
	}
	mean, std := stat.MeanStdDev(finite, nil)
	if len(finite) == 1 {
		std = 0
	}
	return Summary{
		Count: len(finite),
		Min:   floats.Min(finite),
		Max:   floats.Max(finite),
		Mean:  mean,
		Std:   std,
	}, nil
}
