package utils

import (
	"testing"
	"time"
)

var (
	// From godoc example for time:
	// China doesn't have daylight saving. It uses a fixed 8 hour offset from UTC.
	secondsEastOfUTC = int((8 * time.Hour).Seconds())
	beijing          = time.FixedZone("Beijing Time", secondsEastOfUTC)
)

func TestNewTimeInterval(t *testing.T) {
	cases := []struct {
		desc   string
		start  time.Time
		end    time.Time
		errMsg string
	}{
		{
			desc:   "error on end before start",
			start:  time.Date(2016, time.January, 1, 1, 30, 15, 0, time.UTC),
			end:    time.Date(2016, time.January, 1, 1, 0, 0, 0, time.UTC),
			errMsg: ErrEndBeforeStart,
		},
		{
			desc:  "both in UTC",
			start: time.Date(2016, time.January, 1, 1, 30, 15, 0, time.UTC),
			end:   time.Date(2016, time.January, 2, 1, 30, 15, 0, time.UTC),
		},
		{
			desc:  "start not in UTC",
			start: time.Date(2016, time.January, 1, 1, 30, 15, 0, beijing),
			end:   time.Date(2016, time.January, 10, 1, 30, 15, 0, time.UTC),
		},
		{
			desc:  "end not in UTC",
			start: time.Date(2016, time.January, 1, 1, 30, 15, 0, time.UTC),
			end:   time.Date(2016, time.January, 10, 1, 30, 15, 0, beijing),
		},

		{
			desc:  "both not in UTC",
			start: time.Date(2016, time.January, 1, 1, 30, 15, 0, beijing),
			end:   time.Date(2016, time.January, 10, 1, 30, 15, 0, beijing),
		},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			ti, err := NewTimeInterval(c.start, c.end)
			if c.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: got %v", err)
				} else {
					wantStart := c.start.UTC()
					wantEnd := c.end.UTC()
					wantDuration := c.end.Sub(c.start)
					if got := ti.Start(); got != wantStart {
						t.Errorf("incorrect start: got %v want %v", got, wantStart)
					}
					if got := ti.End(); got != wantEnd {
						t.Errorf("incorrect end: got %v want %v", got, wantEnd)
					}
					if got := ti.Duration(); got != wantDuration {
						t.Errorf("incorrect duration: got %v want %v", got, wantDuration)
					}
				}
			} else if err == nil {
				t.Errorf("unexpected lack of error")
			} else if err.Error() != c.errMsg {
				t.Errorf("unexpected error msg: got %s want %s", err.Error(), c.errMsg)
			}
		})
	}
}

func TestTimeIntervalStartAndEndFuncs(t *testing.T) {
	start := time.Date(2016, time.January, 1, 12, 30, 45, 100, beijing)
	end := time.Date(2016, time.February, 1, 12, 30, 45, 100, beijing)
	ti, err := NewTimeInterval(start, end)
	if err != nil {
		t.Fatalf("unexpected error creating TimeInterval: got %v", err)
	}

	startUTC := start.UTC()
	endUTC := end.UTC()
	if got := ti.StartString(); got != startUTC.Format(time.RFC3339) {
		t.Errorf("incorrect start string: got %s want %s", got, startUTC.Format(time.RFC3339))
	}
	if got := ti.EndString(); got != endUTC.Format(time.RFC3339) {
		t.Errorf("incorrect end string: got %s want %s", got, endUTC.Format(time.RFC3339))
	}
}

func TestTimeIntervalContains(t *testing.T) {
	start := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2016, time.February, 1, 0, 0, 0, 0, time.UTC)
	ti, err := NewTimeInterval(start, end)
	if err != nil {
		t.Fatalf("unexpected error creating TimeInterval: got %v", err)
	}
	cases := []struct {
		desc string
		t    time.Time
		want bool
	}{
		{"before start", start.Add(-time.Second), false},
		{"inclusive start", start, true},
		{"inside", start.Add(24 * time.Hour), true},
		{"inside, non-UTC zone", time.Date(2016, time.January, 10, 1, 0, 0, 0, beijing), true},
		{"exclusive end", end, false},
		{"after end", end.Add(time.Second), false},
	}
	for _, c := range cases {
		if got := ti.Contains(c.t); got != c.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", c.desc, c.t, got, c.want)
		}
	}
}

func TestTimeIntervalOverlap(t *testing.T) {
	cases := []struct {
		desc        string
		start1      string
		end1        string
		start2      string
		end2        string
		wantOverlap bool
	}{
		{
			desc:        "completely disjoint",
			start1:      "2016-01-01",
			end1:        "2016-02-01",
			start2:      "2016-03-01",
			end2:        "2016-04-01",
			wantOverlap: false,
		},
		{
			desc:        "disjoint because of exclusive end",
			start1:      "2016-01-01",
			end1:        "2016-02-01",
			start2:      "2016-02-01",
			end2:        "2016-03-01",
			wantOverlap: false,
		},
		{
			desc:        "disjoint because of exclusive end #2",
			start1:      "2016-02-01",
			end1:        "2016-03-01",
			start2:      "2016-01-01",
			end2:        "2016-02-01",
			wantOverlap: false,
		},
		{
			desc:        "complete overlap",
			start1:      "2016-01-01",
			end1:        "2016-02-01",
			start2:      "2016-01-01",
			end2:        "2016-02-01",
			wantOverlap: true,
		},
		{
			desc:        "1 inside of 2",
			start1:      "2016-02-01",
			end1:        "2016-03-01",
			start2:      "2016-01-01",
			end2:        "2016-04-01",
			wantOverlap: true,
		},
		{
			desc:        "2 inside of 1",
			start1:      "2016-01-01",
			end1:        "2016-06-01",
			start2:      "2016-04-01",
			end2:        "2016-05-01",
			wantOverlap: true,
		},
		{
			desc:        "1 starts first, 2 ends later",
			start1:      "2016-01-01",
			end1:        "2016-03-01",
			start2:      "2016-02-01",
			end2:        "2016-04-01",
			wantOverlap: true,
		},
		{
			desc:        "1 starts later, 2 ends early",
			start1:      "2016-02-01",
			end1:        "2016-04-01",
			start2:      "2016-01-01",
			end2:        "2016-03-01",
			wantOverlap: true,
		},
	}
	layout := "2006-01-02"
	parse := func(s string) time.Time {
		x, err := time.Parse(layout, s)
		if err != nil {
			t.Fatalf("could not parse %v into time", s)
		}
		return x
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			ti1, err := NewTimeInterval(parse(c.start1), parse(c.end1))
			if err != nil {
				t.Errorf("could not create ti1: got %v", err)
			}
			ti2, err := NewTimeInterval(parse(c.start2), parse(c.end2))
			if err != nil {
				t.Errorf("could not create ti2: got %v", err)
			}
			if got := ti1.Overlap(ti2); got != c.wantOverlap {
				t.Errorf("incorrect overlap with ti1: got %v want %v", got, c.wantOverlap)
			}
			if got := ti2.Overlap(ti1); got != c.wantOverlap {
				t.Errorf("incorrect overlap with ti2: got %v want %v", got, c.wantOverlap)
			}
		})
	}
}
