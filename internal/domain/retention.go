package domain

import "time"

// RetentionCell is one (cohort, interval) cell of an exported retention table.
// Corresponds to cohort_retention table in PostgreSQL and ClickHouse.
type RetentionCell struct {
	RunID             string    // report run identifier (uuid)
	CohortID          string    // cohort label
	CohortStart       time.Time // inclusive day boundary
	CohortEnd         time.Time // exclusive day boundary
	Customers         int       // cohort cardinality
	IntervalIndex     int       // 0 = most recent interval
	IntervalStartDay  int       // day offset back from the recent boundary, inclusive
	IntervalEndDay    int       // day offset back from the recent boundary, inclusive
	Orderers          int       // distinct orderers in the interval
	FirstTimeOrderers int       // distinct first-time orderers in the interval
	GeneratedAt       time.Time // report generation time (UTC)
}

// Run statuses.
const (
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// ReportRun records one pipeline run.
// Corresponds to report_runs table in PostgreSQL.
type ReportRun struct {
	RunID        string    // uuid
	Oldest       time.Time // window start, inclusive
	Recent       time.Time // window end, exclusive
	IntervalDays int
	Intervals    int
	Customers    int // customers tracked
	Cohorts      int // cohorts with at least one customer
	Cells        int // retention cells produced
	Status       string
	GeneratedAt  time.Time
}
