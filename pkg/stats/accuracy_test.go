package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/gridsense/ammbench/pkg/device"
)

func TestRankOrdersByDeviation(t *testing.T) {
	snaps := map[device.Kind]Snapshot{
		device.Greenlee: {Median: 10, StdDev: 1},
		device.Entes:    {Median: 12, StdDev: 2},
		device.Circutor: {Median: 20, StdDev: 0.5},
	}
	r := Rank(snaps)
	// reference = median of {10, 12, 20} = 12
	if r.Reference != 12 {
		t.Fatalf("reference = %v, want 12", r.Reference)
	}
	wantOrder := []device.Kind{device.Entes, device.Greenlee, device.Circutor}
	for i, want := range wantOrder {
		if r.Devices[i].Kind != want {
			t.Errorf("rank %d = %s, want %s", i, r.Devices[i].Kind, want)
		}
	}
	if r.Devices[0].Deviation != 0 {
		t.Errorf("best deviation = %v, want 0", r.Devices[0].Deviation)
	}
}

func TestRankBreaksTiesByStdDev(t *testing.T) {
	snaps := map[device.Kind]Snapshot{
		device.Greenlee: {Median: 8, StdDev: 3},  // deviation 2, noisier
		device.Entes:    {Median: 12, StdDev: 1}, // deviation 2, steadier
		device.Circutor: {Median: 10, StdDev: 9}, // deviation 0
	}
	r := Rank(snaps)
	wantOrder := []device.Kind{device.Circutor, device.Entes, device.Greenlee}
	for i, want := range wantOrder {
		if r.Devices[i].Kind != want {
			t.Errorf("rank %d = %s, want %s", i, r.Devices[i].Kind, want)
		}
	}
}

func TestRankEmpty(t *testing.T) {
	r := Rank(nil)
	if len(r.Devices) != 0 || r.Reference != 0 {
		t.Errorf("empty ranking = %+v", r)
	}
}

func TestLatencyGroupConcurrentPush(t *testing.T) {
	lg := NewLatencyGroup()
	const workers, perWorker = 4, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				lg.Push(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	if lg.Count() != workers*perWorker {
		t.Errorf("count = %d, want %d", lg.Count(), workers*perWorker)
	}
}

func TestLatencyGroup(t *testing.T) {
	lg := NewLatencyGroup()
	if lg.String() != "no requests" {
		t.Errorf("empty group string = %q", lg.String())
	}
	for _, d := range []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond} {
		lg.Push(d)
	}
	if lg.Count() != 3 {
		t.Errorf("count = %d, want 3", lg.Count())
	}
	if lg.min != 1 || lg.max != 3 {
		t.Errorf("min/max = %v/%v ms, want 1/3", lg.min, lg.max)
	}
}
