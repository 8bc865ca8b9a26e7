package reporting

import (
	"time"

	"cohort-retention/internal/aggregation"
)

// Generator produces reports from a populated aggregator.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report. The aggregator must not be written to
// afterwards.
func (g *Generator) Generate(agg *aggregation.Aggregator, runID string, quality DataQualitySection) *Report {
	registry := agg.Registry()
	window := registry.Window()
	table := Project(agg)

	return &Report{
		RunID:       runID,
		GeneratedAt: g.now(),
		Window: WindowSummary{
			Oldest:       window.Oldest(),
			Recent:       window.Recent(),
			IntervalDays: window.IntervalDays(),
			Intervals:    window.Intervals(),
			Offset:       window.Offset(),
		},
		DataSummary: DataSummary{
			Customers:         registry.CustomerCount(),
			Cohorts:           registry.CohortCount(),
			CohortsWithOrders: len(agg.CohortIDs()),
		},
		DataQuality: quality,
		Table:       table,
	}
}
