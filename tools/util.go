package tools

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// quantile computes a linearly interpolated percentile over an unsorted
// sample.
func quantile(vals []float64, p float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	return stat.Quantile(p, stat.LinInterp, s, nil)
}

func mean(vals []float64) float64 {
	return stat.Mean(vals, nil)
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}
