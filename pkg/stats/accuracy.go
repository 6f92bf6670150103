package stats

import (
	"sort"

	"github.com/gridsense/ammbench/pkg/device"
)

// DeviceAccuracy is one device's standing in a cross-device comparison.
type DeviceAccuracy struct {
	Kind device.Kind `json:"kind"`
	// Deviation is the absolute distance of the device's median from the
	// common reference value.
	Deviation float64 `json:"deviation"`
	// StdDev is the device's own dispersion, used to break deviation ties.
	StdDev float64 `json:"stdev"`
}

// Ranking is the outcome of a cross-device accuracy comparison.
type Ranking struct {
	// Reference is the value all devices were judged against: the median of
	// the per-device medians, since no independent ground truth exists.
	Reference float64          `json:"reference"`
	Devices   []DeviceAccuracy `json:"devices"`
}

// Rank compares per-device snapshots against the median of their medians and
// orders devices ascending by absolute deviation, ties broken by ascending
// standard deviation. Fewer than two devices yields a degenerate but valid
// ranking.
func Rank(snapshots map[device.Kind]Snapshot) Ranking {
	medians := make([]float64, 0, len(snapshots))
	for _, s := range snapshots {
		medians = append(medians, s.Median)
	}
	r := Ranking{}
	if len(medians) == 0 {
		return r
	}
	r.Reference = median(medians)
	for kind, s := range snapshots {
		dev := s.Median - r.Reference
		if dev < 0 {
			dev = -dev
		}
		r.Devices = append(r.Devices, DeviceAccuracy{Kind: kind, Deviation: dev, StdDev: s.StdDev})
	}
	sort.Slice(r.Devices, func(i, j int) bool {
		a, b := r.Devices[i], r.Devices[j]
		if a.Deviation != b.Deviation {
			return a.Deviation < b.Deviation
		}
		if a.StdDev != b.StdDev {
			return a.StdDev < b.StdDev
		}
		return a.Kind < b.Kind
	})
	return r
}
