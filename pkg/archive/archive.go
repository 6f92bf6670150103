// Package archive persists finalized test runs and serves retrieval,
// filtered queries, and run-to-run comparison. Backends are selected by URI
// scheme; the file backend is the default.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gridsense/ammbench/internal/utils"
	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/sampler"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Error marks a persistence failure. A failed Store does not invalidate the
// stats snapshot already computed for the run.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("archive %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func archiveError(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// IsArchiveError reports whether err is a persistence failure.
func IsArchiveError(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// Filter narrows a Query. The zero Filter matches every run.
type Filter struct {
	// Kind restricts matches to one device kind; empty matches all.
	Kind device.Kind
	// Interval restricts matches to runs created within it; nil matches all.
	Interval *utils.TimeInterval
}

// matches reports whether a run's kind and creation time pass the filter.
func (f Filter) matches(kind device.Kind, createdAt time.Time) bool {
	if f.Kind != "" && kind != f.Kind {
		return false
	}
	if f.Interval != nil && !f.Interval.Contains(createdAt) {
		return false
	}
	return true
}

// Archive stores finalized runs under their unique IDs. Store followed by
// Get returns an equivalent run.
type Archive interface {
	// Store persists a finalized run.
	Store(run *sampler.TestRun) error
	// Get retrieves a run by ID, or ErrNotFound.
	Get(id string) (*sampler.TestRun, error)
	// Query lazily produces matching runs, most recent first. The channel
	// closes when the matches are exhausted or ctx is canceled.
	Query(ctx context.Context, f Filter) (<-chan *sampler.TestRun, error)
	// Close releases the backing storage.
	Close() error
}

// New opens an archive for a URI: file://<dir> (or a bare directory path)
// for the JSON file backend, postgres:// for the SQL backend.
func New(uri string) (Archive, error) {
	switch {
	case strings.HasPrefix(uri, "file://"):
		return NewFileArchive(strings.TrimPrefix(uri, "file://"))
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return NewPostgresArchive(uri)
	case strings.Contains(uri, "://"):
		return nil, errors.Errorf("unsupported archive scheme in %q", uri)
	default:
		return NewFileArchive(uri)
	}
}

// checkStorable rejects runs that are not finalized yet; they are still
// owned and mutated by their scheduler.
func checkStorable(run *sampler.TestRun) error {
	if run == nil {
		return errors.New("cannot store a nil run")
	}
	if run.Status == sampler.StatusRunning {
		return errors.Errorf("run %s is not finalized", run.ID)
	}
	return nil
}
