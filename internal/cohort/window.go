package cohort

import (
	"fmt"
	"time"
)

// earliestDay is the first day a window may start on.
var earliestDay = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Defaults applied by callers that do not specify an interval geometry.
const (
	DefaultIntervalDays = 7
	DefaultIntervals    = 8
)

// Config holds the study window construction parameters.
type Config struct {
	// Anchor is the reference timestamp. The study ends at the midnight after the
	// anchor's wall-clock date, and the anchor's UTC offset is applied to every
	// input timestamp. Required.
	Anchor time.Time

	// IntervalDays is the width of one cohort and reporting interval. Must be >= 1.
	IntervalDays int

	// Intervals is the number of intervals in the study. Must be >= 1.
	Intervals int
}

// Window is the immutable geometry of one study: [Oldest, Recent) split into
// Intervals slices of IntervalDays days, plus the timezone offset used to bring
// raw inputs into the window's frame.
//
// All window times are wall-clock values in the anchor's frame carried in the
// UTC location.
type Window struct {
	recent       time.Time
	oldest       time.Time
	intervalDays int
	intervals    int
	offset       time.Duration
}

// NewWindow validates cfg and builds the study window.
func NewWindow(cfg Config) (*Window, error) {
	if cfg.Anchor.IsZero() {
		return nil, &ConfigError{Field: "recent_date", Value: cfg.Anchor, Reason: "must be set"}
	}
	if cfg.IntervalDays < 1 {
		return nil, &ConfigError{Field: "interval_days", Value: cfg.IntervalDays, Reason: "must be a positive integer"}
	}
	if cfg.Intervals < 1 {
		return nil, &ConfigError{Field: "intervals", Value: cfg.Intervals, Reason: "must be a positive integer"}
	}

	_, offsetSeconds := cfg.Anchor.Zone()
	y, m, d := cfg.Anchor.Date()
	recent := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)

	// Checked by division so the product cannot overflow.
	if maxDays := daysBetween(earliestDay, recent); cfg.IntervalDays > maxDays/cfg.Intervals {
		return nil, &ConfigError{
			Field:  "intervals",
			Value:  cfg.Intervals,
			Reason: fmt.Sprintf("%d intervals of %d days start before %s", cfg.Intervals, cfg.IntervalDays, earliestDay.Format(CohortDateLayout)),
		}
	}

	return &Window{
		recent:       recent,
		oldest:       recent.AddDate(0, 0, -cfg.IntervalDays*cfg.Intervals),
		intervalDays: cfg.IntervalDays,
		intervals:    cfg.Intervals,
		offset:       time.Duration(offsetSeconds) * time.Second,
	}, nil
}

// Recent returns the exclusive upper bound of the study.
func (w *Window) Recent() time.Time { return w.recent }

// Oldest returns the inclusive lower bound of the study.
func (w *Window) Oldest() time.Time { return w.oldest }

// IntervalDays returns the interval width in days.
func (w *Window) IntervalDays() int { return w.intervalDays }

// Intervals returns the nominal number of intervals.
func (w *Window) Intervals() int { return w.intervals }

// Offset returns the delta added to every parsed input timestamp.
func (w *Window) Offset() time.Duration { return w.offset }

// Contains reports whether t lies in [Oldest, Recent).
func (w *Window) Contains(t time.Time) bool {
	return !t.Before(w.oldest) && t.Before(w.recent)
}

// Normalize parses raw, shifts it by the window offset and returns it only when
// it falls inside the window.
func (w *Window) Normalize(raw string) (time.Time, bool) {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return time.Time{}, false
	}
	t = t.Add(w.offset)
	if !w.Contains(t) {
		return time.Time{}, false
	}
	return t, true
}
