// Package stats holds the pure computations over collected samples:
// per-run descriptive snapshots, cross-device accuracy ranking, and
// request-latency aggregation.
package stats

import (
	"math"
	"sort"
)

// Snapshot summarizes the valid values of one run.
type Snapshot struct {
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Compute builds a Snapshot over values. The input is not mutated. An empty
// input yields the zero Snapshot.
func Compute(values []float64) Snapshot {
	n := len(values)
	if n == 0 {
		return Snapshot{}
	}
	s := Snapshot{Count: int64(n), Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(n)
	s.Median = median(values)
	s.StdDev = stdDev(values, s.Mean)
	return s
}

// median is the middle element for odd counts, the average of the two middle
// elements for even counts.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}

// stdDev is the sample standard deviation, defined as 0 for n <= 1.
func stdDev(values []float64, mean float64) float64 {
	n := len(values)
	if n <= 1 {
		return 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
