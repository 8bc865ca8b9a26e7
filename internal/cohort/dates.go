package cohort

import (
	"strings"
	"time"
)

// Layouts used by input records and cohort labels.
const (
	TimestampLayout  = "2006-01-02 15:04:05"
	CohortDateLayout = "2006/01/02"
)

const secondsPerDay = 24 * 60 * 60

// ParseTimestamp parses a "YYYY-MM-DD HH:MM:SS" string into a wall-clock time
// (UTC location, no offset applied). Runs of whitespace between the date and the
// time are accepted. Returns false for empty or malformed input.
func ParseTimestamp(raw string) (time.Time, bool) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return time.Time{}, false
	}
	t, err := time.Parse(TimestampLayout, fields[0]+" "+fields[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TruncateToDay drops the time of day, keeping the date and location.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween returns the whole number of days from -> to, rounded toward
// negative infinity. It works on Unix seconds, which do not saturate the way
// time.Duration does past about 292 years.
func daysBetween(from, to time.Time) int {
	return int(floorDiv64(to.Unix()-from.Unix(), secondsPerDay))
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
