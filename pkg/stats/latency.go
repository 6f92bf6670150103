package stats

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyGroup collects request latencies into streaming statistics plus a
// High Dynamic Range histogram for percentile reporting. Safe for concurrent
// use.
type LatencyGroup struct {
	mu    sync.Mutex
	min   float64
	max   float64
	sum   float64
	count int64

	hist *hdrhistogram.Histogram
}

// NewLatencyGroup returns a LatencyGroup able to track latencies between 1µs
// and 1 minute at three significant figures.
func NewLatencyGroup() *LatencyGroup {
	return &LatencyGroup{
		hist: hdrhistogram.New(1, time.Minute.Microseconds(), 3),
	}
}

// Push records one request latency.
func (lg *LatencyGroup) Push(d time.Duration) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	ms := float64(d.Nanoseconds()) / 1e6
	if lg.count == 0 || ms < lg.min {
		lg.min = ms
	}
	if lg.count == 0 || ms > lg.max {
		lg.max = ms
	}
	lg.sum += ms
	lg.count++
	if err := lg.hist.RecordValue(d.Microseconds()); err != nil {
		// out of trackable range; streaming stats still cover it
		log.Printf("latency %v outside histogram range: %v", d, err)
	}
}

// Count returns how many latencies have been recorded.
func (lg *LatencyGroup) Count() int64 {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.count
}

// String reports min/mean/median/p95/max in milliseconds.
func (lg *LatencyGroup) String() string {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	if lg.count == 0 {
		return "no requests"
	}
	return fmt.Sprintf("min: %8.2fms, med: %8.2fms, mean: %8.2fms, p95: %8.2fms, max: %8.2fms, count: %d",
		lg.min,
		float64(lg.hist.ValueAtQuantile(50))/1e3,
		lg.sum/float64(lg.count),
		float64(lg.hist.ValueAtQuantile(95))/1e3,
		lg.max,
		lg.count)
}

// WritePercentiles dumps the full HDR percentile distribution, scaled to
// milliseconds.
func (lg *LatencyGroup) WritePercentiles(w io.Writer) error {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	_, err := lg.hist.PercentilesPrint(w, 10, 1000.0)
	return err
}

// WriteLatencyGroupMap writes a map of LatencyGroups ordered by key, the
// keys padded to align the stats.
func WriteLatencyGroupMap(w io.Writer, groups map[string]*LatencyGroup) error {
	maxKeyLength := 0
	keys := make([]string, 0, len(groups))
	for k := range groups {
		if len(k) > maxKeyLength {
			maxKeyLength = len(k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		paddedKey := k
		for len(paddedKey) < maxKeyLength {
			paddedKey += " "
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", paddedKey, groups[k].String()); err != nil {
			return err
		}
	}
	return nil
}
