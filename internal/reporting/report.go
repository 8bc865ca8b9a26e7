package reporting

import "time"

// Report is the full cohort retention report of one run.
type Report struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time
	DataVersion string // short hash of the retention table

	Window      WindowSummary
	DataSummary DataSummary

	// Records skipped during ingestion, by reason
	DataQuality DataQualitySection

	// Retention table, most recent cohort first
	Table *Table
}

// WindowSummary describes the study window geometry.
type WindowSummary struct {
	Oldest       time.Time // inclusive
	Recent       time.Time // exclusive
	IntervalDays int
	Intervals    int
	Offset       time.Duration // applied to every input timestamp
}

// DataSummary contains data description.
type DataSummary struct {
	Customers         int // customers tracked in the window
	Cohorts           int // cohorts with at least one customer
	CohortsWithOrders int // cohorts with at least one recorded order
}

// DataQualitySection lists ingestion counters. Rows keep insertion order.
type DataQualitySection struct {
	Rows []DataQualityRow
}

// DataQualityRow is one named counter, e.g. "customers skipped (duplicate)".
type DataQualityRow struct {
	Name  string
	Count int
}

// Add appends a counter row.
func (s *DataQualitySection) Add(name string, count int) {
	s.Rows = append(s.Rows, DataQualityRow{Name: name, Count: count})
}
