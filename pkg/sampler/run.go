package sampler

import (
	"time"

	"github.com/google/uuid"

	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/stats"
)

// Status is a run's lifecycle state. All states except StatusRunning are
// terminal.
type Status string

const (
	StatusRunning Status = "running"
	// StatusCompleted - stop condition met, every sample valid.
	StatusCompleted Status = "completed"
	// StatusDegraded - stop condition met, but some samples were invalid.
	StatusDegraded Status = "degraded"
	// StatusAborted - consecutive-failure threshold reached.
	StatusAborted Status = "aborted"
	// StatusInterrupted - canceled by the operator; collected samples kept.
	StatusInterrupted Status = "interrupted"
)

// Sample is one timestamped measurement attempt. Immutable once recorded.
type Sample struct {
	Kind      device.Kind `json:"kind"`
	Index     uint64      `json:"index"`
	Timestamp time.Time   `json:"timestamp"`
	Value     float64     `json:"value"`
	Valid     bool        `json:"valid"`
	// ErrorKind classifies the failure for invalid samples; empty otherwise.
	ErrorKind string `json:"error_kind,omitempty"`
}

// TestRun is one sampling campaign against one device. Its mutable fields
// are owned by the scheduler that created it until finalization; afterwards
// the run is immutable and safe to share.
type TestRun struct {
	ID        string          `json:"id"`
	Kind      device.Kind     `json:"kind"`
	Config    Config          `json:"config"`
	Samples   []Sample        `json:"samples"`
	Status    Status          `json:"status"`
	Stats     *stats.Snapshot `json:"stats,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRun creates a running, empty TestRun with a globally unique ID.
func NewRun(kind device.Kind, cfg Config) *TestRun {
	return &TestRun{
		ID:        uuid.New().String(),
		Kind:      kind,
		Config:    cfg,
		Status:    StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
}

// ValidValues returns the raw values of the valid samples, in order.
func (r *TestRun) ValidValues() []float64 {
	vals := make([]float64, 0, len(r.Samples))
	for _, s := range r.Samples {
		if s.Valid {
			vals = append(vals, s.Value)
		}
	}
	return vals
}

// LastFailureKind returns the classification of the most recent invalid
// sample, or empty when every sample succeeded.
func (r *TestRun) LastFailureKind() string {
	for i := len(r.Samples) - 1; i >= 0; i-- {
		if !r.Samples[i].Valid {
			return r.Samples[i].ErrorKind
		}
	}
	return ""
}

// append records one sample. Only the owning scheduler calls this, and only
// before finalization.
func (r *TestRun) append(s Sample) {
	r.Samples = append(r.Samples, s)
}

// finalize fixes the terminal status and computes the stats snapshot over
// the valid samples. It is a no-op on an already-finalized run.
func (r *TestRun) finalize(status Status) {
	if r.Status != StatusRunning {
		return
	}
	r.Status = status
	snap := stats.Compute(r.ValidValues())
	r.Stats = &snap
}

// finalizeStopped picks the terminal status for a run whose stop condition
// was met: Completed when every sample is valid, Degraded otherwise.
func (r *TestRun) finalizeStopped() {
	for _, s := range r.Samples {
		if !s.Valid {
			r.finalize(StatusDegraded)
			return
		}
	}
	r.finalize(StatusCompleted)
}
