package archive

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/gridsense/ammbench/internal/utils"
	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/sampler"
	"github.com/gridsense/ammbench/pkg/stats"
)

func testRun(kind device.Kind, createdAt time.Time, values ...float64) *sampler.TestRun {
	run := &sampler.TestRun{
		ID:   uuid.New().String(),
		Kind: kind,
		Config: sampler.Config{
			Samples:                uint64(len(values)),
			FrequencyHz:            1,
			MaxConsecutiveFailures: 3,
		},
		Status:    sampler.StatusCompleted,
		CreatedAt: createdAt.UTC(),
	}
	for i, v := range values {
		run.Samples = append(run.Samples, sampler.Sample{
			Kind:      kind,
			Index:     uint64(i),
			Timestamp: createdAt.UTC().Add(time.Duration(i) * time.Second),
			Value:     v,
			Valid:     true,
		})
	}
	snap := stats.Compute(values)
	run.Stats = &snap
	return run
}

func tempArchive(t *testing.T) *FileArchive {
	t.Helper()
	dir, err := ioutil.TempDir("", "ammbench-archive")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	a, err := NewFileArchive(dir)
	if err != nil {
		t.Fatalf("NewFileArchive: %v", err)
	}
	return a
}

func TestStoreThenGetReturnsEquivalentRun(t *testing.T) {
	a := tempArchive(t)
	run := testRun(device.Greenlee, time.Now(), 0.5, 0.6, 0.7)
	if err := a.Store(run); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := a.Get(run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("stored and loaded runs differ (-want +got):\n%s", diff)
	}
}

func TestGetUnknownRunIsNotFound(t *testing.T) {
	a := tempArchive(t)
	if _, err := a.Get("no-such-run"); err != ErrNotFound {
		t.Errorf("Get unknown = %v, want ErrNotFound", err)
	}
}

func TestStoreRejectsRunningRun(t *testing.T) {
	a := tempArchive(t)
	run := testRun(device.Greenlee, time.Now(), 1)
	run.Status = sampler.StatusRunning
	err := a.Store(run)
	if err == nil {
		t.Fatal("stored a run that is still running")
	}
	if !IsArchiveError(err) {
		t.Errorf("error %v is not an archive error", err)
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir, err := ioutil.TempDir("", "ammbench-archive")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)
	a, err := NewFileArchive(dir)
	if err != nil {
		t.Fatalf("NewFileArchive: %v", err)
	}
	run := testRun(device.Entes, time.Now(), 50, 51)
	if err := a.Store(run); err != nil {
		t.Fatalf("Store: %v", err)
	}
	a.Close()

	reopened, err := NewFileArchive(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(run.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.ID != run.ID || got.Stats.Count != 2 {
		t.Errorf("reopened archive returned a different run: %+v", got)
	}
}

func collect(t *testing.T, ch <-chan *sampler.TestRun) []*sampler.TestRun {
	t.Helper()
	var out []*sampler.TestRun
	for run := range ch {
		out = append(out, run)
	}
	return out
}

func TestQueryFiltersAndOrders(t *testing.T) {
	a := tempArchive(t)
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	older := testRun(device.Greenlee, base, 0.4)
	newer := testRun(device.Greenlee, base.Add(time.Hour), 0.5)
	other := testRun(device.Entes, base.Add(30*time.Minute), 50)
	for _, r := range []*sampler.TestRun{older, newer, other} {
		if err := a.Store(r); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	ch, err := a.Query(context.Background(), Filter{Kind: device.Greenlee})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	got := collect(t, ch)
	if len(got) != 2 {
		t.Fatalf("kind filter returned %d runs, want 2", len(got))
	}
	if got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Errorf("runs not most-recent-first: %s, %s", got[0].ID, got[1].ID)
	}

	interval, err := utils.NewTimeInterval(base.Add(15*time.Minute), base.Add(45*time.Minute))
	if err != nil {
		t.Fatalf("NewTimeInterval: %v", err)
	}
	ch, err = a.Query(context.Background(), Filter{Interval: interval})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	got = collect(t, ch)
	if len(got) != 1 || got[0].ID != other.ID {
		t.Errorf("interval filter returned %d runs, want just %s", len(got), other.ID)
	}

	ch, err = a.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := collect(t, ch); len(got) != 3 {
		t.Errorf("empty filter returned %d runs, want 3", len(got))
	}
}

func TestQueryHonorsCancellation(t *testing.T) {
	a := tempArchive(t)
	base := time.Now()
	for i := 0; i < 10; i++ {
		if err := a.Store(testRun(device.Circutor, base.Add(time.Duration(i)*time.Minute), 0.05)); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := a.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	<-ch
	cancel()
	// the channel must close shortly after cancellation
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("query channel never closed after cancellation")
		}
	}
}

func TestNewDispatchesOnScheme(t *testing.T) {
	dir, err := ioutil.TempDir("", "ammbench-archive")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)
	a, err := New("file://" + dir)
	if err != nil {
		t.Fatalf("New(file://): %v", err)
	}
	if _, ok := a.(*FileArchive); !ok {
		t.Errorf("file:// did not yield a FileArchive")
	}
	a.Close()
	if _, err := New("s3://bucket/runs"); err == nil {
		t.Errorf("unsupported scheme accepted")
	}
}
