package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const statPlaces = 2

type Summary struct {
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Median float64
	P25    float64
	P75    float64
}

// Describe summarizes a non-empty sample. Std is the population deviation.
// The input is not modified.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	// every field, the mean included, is computed in ascending order so the
	// result depends only on the multiset of values
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var std float64
	if len(sorted) > 1 {
		std = stat.PopStdDev(sorted, nil)
	}

	return Summary{
		Mean:   stat.Mean(sorted, nil),
		Std:    std,
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: Percentile(sorted, 50),
		P25:    Percentile(sorted, 25),
		P75:    Percentile(sorted, 75),
	}
}

// Percentile linearly interpolates between the closest ranks of an ascending
// sample: rank = (n-1)*q/100.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := float64(n-1) * q / 100
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func absAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}
