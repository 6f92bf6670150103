package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeOddCount(t *testing.T) {
	s := Compute([]float64{3, 1, 2})
	if s.Count != 3 {
		t.Errorf("count = %d, want 3", s.Count)
	}
	if !almostEqual(s.Mean, 2) {
		t.Errorf("mean = %v, want 2", s.Mean)
	}
	if !almostEqual(s.Median, 2) {
		t.Errorf("median = %v, want 2", s.Median)
	}
	if !almostEqual(s.Min, 1) || !almostEqual(s.Max, 3) {
		t.Errorf("min/max = %v/%v, want 1/3", s.Min, s.Max)
	}
	if !almostEqual(s.StdDev, 1) {
		t.Errorf("stdev = %v, want 1", s.StdDev)
	}
}

func TestMedianEvenCount(t *testing.T) {
	s := Compute([]float64{4, 1, 3, 2})
	if !almostEqual(s.Median, 2.5) {
		t.Errorf("median of even count = %v, want 2.5", s.Median)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	in := []float64{5, 1, 3}
	Compute(in)
	if in[0] != 5 || in[1] != 1 || in[2] != 3 {
		t.Errorf("input reordered by Compute: %v", in)
	}
}

func TestStdDevSingleElementIsZero(t *testing.T) {
	s := Compute([]float64{42.0})
	if s.StdDev != 0 {
		t.Errorf("stdev of a single element = %v, want 0", s.StdDev)
	}
	if Compute(nil).StdDev != 0 {
		t.Errorf("stdev of empty input must be 0")
	}
}

func TestStdDevTranslationInvariant(t *testing.T) {
	base := []float64{1.5, 2.5, 9.25, 4.75, 0.5}
	shifted := make([]float64, len(base))
	for i, v := range base {
		shifted[i] = v + 1000
	}
	a, b := Compute(base), Compute(shifted)
	if !almostEqual(a.StdDev, b.StdDev) {
		t.Errorf("stdev changed under translation: %v vs %v", a.StdDev, b.StdDev)
	}
	if !almostEqual(b.Mean, a.Mean+1000) {
		t.Errorf("mean did not translate: %v vs %v", a.Mean, b.Mean)
	}
}
