package cohort

import (
	"time"

	"cohort-retention/internal/domain"
)

// Assign returns the cohort containing t. Cohort boundaries are aligned to the
// recent boundary modulo the interval length, so every t in the same aligned
// block yields the same cohort. t must already be normalized and in range.
func (w *Window) Assign(t time.Time) domain.Cohort {
	dayStart := TruncateToDay(t)
	lastDay := w.recent.AddDate(0, 0, -1)

	untilLastDay := daysBetween(dayStart, lastDay)
	lastIncluded := dayStart.AddDate(0, 0, floorMod(untilLastDay, w.intervalDays))
	end := lastIncluded.AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -w.intervalDays)

	return domain.Cohort{
		ID:    CohortID(start, lastIncluded),
		Start: start,
		End:   end,
	}
}

// CohortID formats the label of the cohort spanning first..last (both included).
func CohortID(first, last time.Time) string {
	return first.Format(CohortDateLayout) + "-" + last.Format(CohortDateLayout)
}

// IntervalIndex returns the interval holding t, counted back from the recent
// boundary: 0 is the most recent interval. Intervals are half-open, so a time at
// exactly midnight belongs to the interval starting that day. This differs from
// flooring the raw distance to the recent boundary, which would move a midnight
// order on a cohort's first day out of that cohort's range.
func (w *Window) IntervalIndex(t time.Time) int {
	days := daysBetween(TruncateToDay(t), w.recent)
	return floorDiv(days-1, w.intervalDays)
}

// IntervalsSince returns the number of whole intervals between start and the
// recent boundary.
func (w *Window) IntervalsSince(start time.Time) int {
	return floorDiv(daysBetween(start, w.recent), w.intervalDays)
}
