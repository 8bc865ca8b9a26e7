package domain

import "time"

// CustomerRecord is one raw row of customer input.
// Positional layout: customer_id, created_at, ...ignored.
type CustomerRecord struct {
	CustomerID string // unique customer identifier (empty = missing)
	CreatedAt  string // "YYYY-MM-DD HH:MM:SS" in the record's own timezone
}

// Cohort is the fixed-width interval a customer belongs to.
// Start and End are day boundaries, exactly one interval length apart.
type Cohort struct {
	ID    string    // "YYYY/MM/DD-YYYY/MM/DD", first and last included day
	Start time.Time // inclusive
	End   time.Time // exclusive
}

// LastDay returns the last day included in the cohort.
func (c Cohort) LastDay() time.Time {
	return c.End.AddDate(0, 0, -1)
}
