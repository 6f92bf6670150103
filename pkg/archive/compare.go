package archive

import (
	"time"

	"github.com/pkg/errors"

	"github.com/gridsense/ammbench/internal/utils"
	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/sampler"
	"github.com/gridsense/ammbench/pkg/stats"
)

// MetricDelta is one per-metric difference between two runs: B minus A.
type MetricDelta struct {
	Metric string  `json:"metric"`
	A      float64 `json:"a"`
	B      float64 `json:"b"`
	Delta  float64 `json:"delta"`
}

// Comparison holds the per-metric deltas between two runs of the same
// device kind.
type Comparison struct {
	RunA   string        `json:"run_a"`
	RunB   string        `json:"run_b"`
	Kind   device.Kind   `json:"kind"`
	Deltas []MetricDelta `json:"deltas"`
	// Concurrent is true when the two runs' sampling windows overlapped in
	// time, i.e. they measured the device simultaneously.
	Concurrent bool `json:"concurrent"`
}

// Compare diffs the stats snapshots of two runs. The runs must share a
// device kind and both must carry stats.
func Compare(a, b *sampler.TestRun) (*Comparison, error) {
	if a == nil || b == nil {
		return nil, errors.New("compare needs two runs")
	}
	if a.Kind != b.Kind {
		return nil, errors.Errorf("cannot compare a %s run with a %s run", a.Kind, b.Kind)
	}
	if a.Stats == nil || b.Stats == nil {
		return nil, errors.Errorf("runs %s and %s must both have stats snapshots", a.ID, b.ID)
	}
	return &Comparison{
		RunA:       a.ID,
		RunB:       b.ID,
		Kind:       a.Kind,
		Deltas:     deltas(a.Stats, b.Stats),
		Concurrent: concurrent(a, b),
	}, nil
}

// samplingWindow is the interval from a run's creation to just past its last
// sample.
func samplingWindow(run *sampler.TestRun) (*utils.TimeInterval, error) {
	end := run.CreatedAt
	if n := len(run.Samples); n > 0 {
		end = run.Samples[n-1].Timestamp
	}
	return utils.NewTimeInterval(run.CreatedAt, end.Add(time.Nanosecond))
}

func concurrent(a, b *sampler.TestRun) bool {
	wa, err := samplingWindow(a)
	if err != nil {
		return false
	}
	wb, err := samplingWindow(b)
	if err != nil {
		return false
	}
	return wa.Overlap(wb)
}

func deltas(a, b *stats.Snapshot) []MetricDelta {
	metrics := []struct {
		name string
		a, b float64
	}{
		{"mean", a.Mean, b.Mean},
		{"median", a.Median, b.Median},
		{"stdev", a.StdDev, b.StdDev},
		{"min", a.Min, b.Min},
		{"max", a.Max, b.Max},
	}
	out := make([]MetricDelta, len(metrics))
	for i, m := range metrics {
		out[i] = MetricDelta{Metric: m.name, A: m.a, B: m.b, Delta: m.b - m.a}
	}
	return out
}

// CompareByID loads both runs from the archive and diffs them.
func CompareByID(a Archive, idA, idB string) (*Comparison, error) {
	runA, err := a.Get(idA)
	if err != nil {
		return nil, errors.Wrapf(err, "loading run %s", idA)
	}
	runB, err := a.Get(idB)
	if err != nil {
		return nil, errors.Wrapf(err, "loading run %s", idB)
	}
	return Compare(runA, runB)
}
