package flightops

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// median returns the interpolated median of vals, NaN when vals is empty.
// NaN entries are dropped first.
func median(vals []float64) float64 {
	clean := dropNaN(vals)
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	n := len(clean)
	if n%2 == 1 {
		return clean[n/2]
	}
	return (clean[n/2-1] + clean[n/2]) / 2
}

// quantile returns the linearly interpolated q-quantile of vals, NaN when
// vals is empty. NaN entries are dropped first.
func quantile(vals []float64, q float64) float64 {
	clean := dropNaN(vals)
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	return stat.Quantile(q, stat.LinInterp, clean, nil)
}

// mean returns the arithmetic mean of vals, NaN when vals is empty. NaN
// entries are dropped first.
func mean(vals []float64) float64 {
	clean := dropNaN(vals)
	if len(clean) == 0 {
		return math.NaN()
	}
	return stat.Mean(clean, nil)
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
