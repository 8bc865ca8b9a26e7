package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"cohort-retention/internal/aggregation"
	"cohort-retention/internal/cohort"
	"cohort-retention/internal/domain"
	"cohort-retention/internal/observability"
)

// ErrPhaseOrder is returned when orders are aggregated before the cohorts are
// built, or customers are added after aggregation started.
var ErrPhaseOrder = errors.New("ingestion phase out of order: build cohorts before aggregating orders")

type phase int

const (
	phaseIdle phase = iota
	phaseBuilt
	phaseAggregating
)

// BuildStats summarizes a BuildCohorts call.
type BuildStats struct {
	Read      int
	Tracked   int
	Malformed int // rows dropped by the source itself
	Skipped   map[cohort.SkipReason]int
	Cohorts   int // distinct cohorts in the registry afterwards
}

// AggregateStats summarizes an AggregateOrders call.
type AggregateStats struct {
	Read      int
	Recorded  int
	Malformed int // rows dropped by the source itself
	Skipped   map[aggregation.Outcome]int
}

// Runner drives the two ingestion phases: customers into the registry, then
// orders into the aggregator. Runner is not safe for concurrent use.
type Runner struct {
	registry   *cohort.Registry
	aggregator *aggregation.Aggregator
	metrics    *observability.Metrics
	logger     *logrus.Logger
	phase      phase
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Registry   *cohort.Registry
	Aggregator *aggregation.Aggregator // Default: new aggregator over Registry
	Metrics    *observability.Metrics  // Optional
	Logger     *logrus.Logger          // Default: logrus.StandardLogger()
}

// NewRunner creates a new ingestion runner. At least one of Registry and
// Aggregator must be set.
func NewRunner(opts RunnerOptions) *Runner {
	registry := opts.Registry
	aggregator := opts.Aggregator
	if registry == nil && aggregator != nil {
		registry = aggregator.Registry()
	}
	if aggregator == nil {
		aggregator = aggregation.NewAggregator(registry)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		registry:   registry,
		aggregator: aggregator,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Registry returns the registry being populated.
func (r *Runner) Registry() *cohort.Registry {
	return r.registry
}

// Aggregator returns the aggregator being populated.
func (r *Runner) Aggregator() *aggregation.Aggregator {
	return r.aggregator
}

// BuildCohorts tracks every customer record of every source, in order.
// It may be called repeatedly until AggregateOrders is first called.
func (r *Runner) BuildCohorts(ctx context.Context, sources ...CustomerSource) (BuildStats, error) {
	stats := BuildStats{Skipped: make(map[cohort.SkipReason]int)}
	if r.phase == phaseAggregating {
		return stats, ErrPhaseOrder
	}

	start := time.Now()
	for _, src := range sources {
		name := src.Name()
		err := src.ReadCustomers(ctx, func(rec domain.CustomerRecord) {
			stats.Read++
			r.metrics.RecordCustomerRead(name)

			_, reason := r.registry.TrackRecord(rec)
			if reason == cohort.SkipNone {
				stats.Tracked++
				r.metrics.RecordCustomerTracked("")
				return
			}
			stats.Skipped[reason]++
			r.metrics.RecordCustomerTracked(reason.String())
			r.logger.WithFields(logrus.Fields{
				"source":      name,
				"customer_id": rec.CustomerID,
				"created_at":  rec.CreatedAt,
				"reason":      reason.String(),
			}).Debug("customer skipped")
		})
		if m, ok := src.(malformedCounter); ok {
			stats.Malformed += m.Malformed()
		}
		if err != nil {
			r.metrics.RecordSourceError(name)
			return stats, fmt.Errorf("read customers from %s: %w", name, err)
		}
	}

	r.phase = phaseBuilt
	stats.Cohorts = r.registry.CohortCount()
	r.metrics.UpdateCohortGauges(stats.Cohorts, r.registry.CustomerCount())

	r.logger.WithFields(logrus.Fields{
		"read":      stats.Read,
		"tracked":   stats.Tracked,
		"malformed": stats.Malformed,
		"cohorts":   stats.Cohorts,
		"duration":  time.Since(start).String(),
	}).Info("cohorts built")

	return stats, nil
}

// AggregateOrders records every order record of every source, in order.
// Returns ErrPhaseOrder unless BuildCohorts completed first.
func (r *Runner) AggregateOrders(ctx context.Context, sources ...OrderSource) (AggregateStats, error) {
	stats := AggregateStats{Skipped: make(map[aggregation.Outcome]int)}
	if r.phase == phaseIdle {
		return stats, ErrPhaseOrder
	}
	r.phase = phaseAggregating

	start := time.Now()
	for _, src := range sources {
		name := src.Name()
		err := src.ReadOrders(ctx, func(rec domain.OrderRecord) {
			stats.Read++
			r.metrics.RecordOrderRead(name)

			outcome := r.aggregator.RecordOrder(rec)
			if outcome == aggregation.Recorded {
				stats.Recorded++
				r.metrics.RecordOrderRecorded("")
				return
			}
			stats.Skipped[outcome]++
			r.metrics.RecordOrderRecorded(outcome.String())
			r.logger.WithFields(logrus.Fields{
				"source":      name,
				"order_id":    rec.OrderID,
				"customer_id": rec.CustomerID,
				"created_at":  rec.CreatedAt,
				"reason":      outcome.String(),
			}).Debug("order skipped")
		})
		if m, ok := src.(malformedCounter); ok {
			stats.Malformed += m.Malformed()
		}
		if err != nil {
			r.metrics.RecordSourceError(name)
			return stats, fmt.Errorf("read orders from %s: %w", name, err)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"read":      stats.Read,
		"recorded":  stats.Recorded,
		"malformed": stats.Malformed,
		"duration":  time.Since(start).String(),
	}).Info("orders aggregated")

	return stats, nil
}
