package utils

import (
	"fmt"
	"time"
)

// ErrEndBeforeStart is the error message for when a TimeInterval's end time
// would be before its start.
const ErrEndBeforeStart = "end time before start time"

// TimeInterval represents an interval of time in UTC. That is, regardless of
// what timezone(s) are used for the beginning and end times, they will be
// converted to UTC and methods will return them as such.
type TimeInterval struct {
	start time.Time
	end   time.Time
}

// NewTimeInterval creates a new TimeInterval for a given start and end. If end
// is a time.Time before start, then an error is returned.
func NewTimeInterval(start, end time.Time) (*TimeInterval, error) {
	if end.Before(start) {
		return nil, fmt.Errorf(ErrEndBeforeStart)
	}
	return &TimeInterval{start.UTC(), end.UTC()}, nil
}

// Duration returns the time.Duration of the TimeInterval.
func (ti *TimeInterval) Duration() time.Duration {
	return ti.end.Sub(ti.start)
}

// Contains reports whether t falls within the interval, with an inclusive
// start boundary and exclusive end boundary.
func (ti *TimeInterval) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(ti.start) && t.Before(ti.end)
}

// Overlap detects whether the given TimeInterval overlaps with this
// TimeInterval, assuming an inclusive start boundary and exclusive end
// boundary.
func (ti *TimeInterval) Overlap(other *TimeInterval) bool {
	s1 := ti.Start()
	e1 := ti.End()

	s2 := other.Start()
	e2 := other.End()

	// If the two TimeIntervals share opposite boundaries, then they do not
	// overlap since the end is exclusive
	if e1 == s2 || e2 == s1 {
		return false
	}

	// If the start and end of the first are both before the start of the
	// second, they do not overlap.
	if s1.Before(s2) && e1.Before(s2) {
		return false
	}

	// Same as the previous case, just reversed.
	if s2.Before(s1) && e2.Before(s1) {
		return false
	}

	// Everything else must overlap
	return true
}

// Start returns the starting time in UTC.
func (ti *TimeInterval) Start() time.Time {
	return ti.start
}

// StartString formats the start of the TimeInterval according to RFC3339.
func (ti *TimeInterval) StartString() string {
	return ti.start.Format(time.RFC3339)
}

// End returns the end time in UTC.
func (ti *TimeInterval) End() time.Time {
	return ti.end
}

// EndString formats the end of the TimeInterval according to RFC3339.
func (ti *TimeInterval) EndString() string {
	return ti.end.Format(time.RFC3339)
}
