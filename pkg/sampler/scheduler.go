package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/gridsense/ammbench/pkg/client"
	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/stats"
)

// Measurer performs one measurement against an endpoint, returning the
// value and the request latency. *client.Client satisfies it.
type Measurer interface {
	Measure(ctx context.Context, endpoint device.Endpoint) (float64, time.Duration, error)
}

// MeasurerFactory builds one Measurer per device task; a client instance is
// not shared across the scheduler's concurrent per-device tasks.
type MeasurerFactory func() Measurer

// Scheduler runs sampling campaigns. One Scheduler can run many campaigns,
// one at a time.
type Scheduler struct {
	newMeasurer MeasurerFactory
	latencies   map[device.Kind]*stats.LatencyGroup
}

// NewScheduler returns a Scheduler that obtains its measurement clients from
// the factory.
func NewScheduler(factory MeasurerFactory) *Scheduler {
	return &Scheduler{
		newMeasurer: factory,
		latencies:   make(map[device.Kind]*stats.LatencyGroup),
	}
}

// Latencies exposes the per-device request-latency groups collected across
// the campaigns this scheduler ran.
func (s *Scheduler) Latencies() map[device.Kind]*stats.LatencyGroup {
	return s.latencies
}

// deviceTask is the per-endpoint state of one campaign.
type deviceTask struct {
	endpoint    device.Endpoint
	run         *TestRun
	measurer    Measurer
	latency     *stats.LatencyGroup
	consecutive uint
}

// Run samples a single endpoint.
func (s *Scheduler) Run(ctx context.Context, endpoint device.Endpoint, cfg Config) (*TestRun, error) {
	runs, err := s.RunAll(ctx, []device.Endpoint{endpoint}, cfg)
	if err != nil {
		return nil, err
	}
	return runs[0], nil
}

// RunAll samples every endpoint under one shared deadline grid: per round,
// one goroutine per still-active device, joined before the next deadline so
// rounds stay synchronized across devices. Each endpoint gets its own
// finalized TestRun; a device that aborts drops out while the others
// continue. On cancellation every unfinished run is finalized as
// Interrupted, keeping the samples collected so far.
func (s *Scheduler) RunAll(ctx context.Context, endpoints []device.Endpoint, cfg Config) ([]*TestRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tasks := make([]*deviceTask, len(endpoints))
	runs := make([]*TestRun, len(endpoints))
	for i, ep := range endpoints {
		if err := ep.Validate(); err != nil {
			return nil, err
		}
		lg, ok := s.latencies[ep.Kind]
		if !ok {
			lg = stats.NewLatencyGroup()
			s.latencies[ep.Kind] = lg
		}
		tasks[i] = &deviceTask{
			endpoint: ep,
			run:      NewRun(ep.Kind, cfg),
			measurer: s.newMeasurer(),
			latency:  lg,
		}
		runs[i] = tasks[i].run
	}

	interval := cfg.Interval()
	start := time.Now()
	for index := uint64(0); index < cfg.Samples; index++ {
		// elapsed time at this sample's deadline, drift-free
		elapsed := time.Duration(index) * interval
		if cfg.Duration > 0 && index > 0 {
			// a slow device can push wall time past the bound before the
			// deadline grid reaches it
			if elapsed >= cfg.Duration || time.Since(start) >= cfg.Duration {
				break
			}
		}
		deadline := start.Add(elapsed)
		if wait := time.Until(deadline); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				for _, t := range tasks {
					t.run.finalize(StatusInterrupted)
				}
				return runs, nil
			}
		}
		// cancellation is honored at every sample boundary
		select {
		case <-ctx.Done():
			for _, t := range tasks {
				t.run.finalize(StatusInterrupted)
			}
			return runs, nil
		default:
		}

		var wg sync.WaitGroup
		active := 0
		for _, t := range tasks {
			if t.run.Status != StatusRunning {
				continue
			}
			active++
			wg.Add(1)
			go func(t *deviceTask) {
				defer wg.Done()
				t.sample(ctx, index, cfg.MaxConsecutiveFailures)
			}(t)
		}
		wg.Wait()
		if active == 0 {
			break
		}
	}

	if ctx.Err() != nil {
		// canceled while the last round's requests were in flight
		for _, t := range tasks {
			t.run.finalize(StatusInterrupted)
		}
		return runs, nil
	}
	for _, t := range tasks {
		t.run.finalizeStopped()
	}
	return runs, nil
}

// sample performs one measurement round for this device and records the
// outcome on the run it owns.
func (t *deviceTask) sample(ctx context.Context, index uint64, maxConsecutive uint) {
	value, took, err := t.measurer.Measure(ctx, t.endpoint)
	if took > 0 {
		t.latency.Push(took)
	}
	sample := Sample{
		Kind:      t.endpoint.Kind,
		Index:     index,
		Timestamp: time.Now().UTC(),
		Value:     value,
		Valid:     err == nil,
	}
	if err != nil {
		if ctx.Err() != nil {
			// canceled mid-request; the sample boundary finalizes the run
			return
		}
		sample.ErrorKind = string(client.KindOf(err))
		t.run.append(sample)
		t.consecutive++
		if t.consecutive >= maxConsecutive {
			t.run.finalize(StatusAborted)
		}
		return
	}
	t.run.append(sample)
	t.consecutive = 0
}
