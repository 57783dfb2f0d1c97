// Package metric turns raw interview answers into scores and aggregates
// them per actor, per scenario and per scenario template.
package metric

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of xs, or 0 when xs is empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// SampleStd returns the sample standard deviation (divisor n-1).
// ok is false when n <= 1, where it is undefined.
func SampleStd(xs []float64) (std float64, ok bool) {
	if len(xs) <= 1 {
		return 0, false
	}
	return stat.StdDev(xs, nil), true
}

// Mode returns the most frequent value of xs. Ties go to the larger
// value, so a split binary vote counts as success. Mode of an empty
// slice is 0.
func Mode(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	counts := make(map[float64]int, len(xs))
	for _, x := range xs {
		counts[x]++
	}
	values := make([]float64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	slices.Sort(values)

	best, bestCount := values[0], 0
	for _, v := range values {
		if counts[v] >= bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// Round4 rounds x to four decimal places for reporting.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

func ptr(x float64) *float64 { return &x }

// meanPtr returns nil for an empty slice so absent dimensions stay absent.
func meanPtr(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	return ptr(Mean(xs))
}
