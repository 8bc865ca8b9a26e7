// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "cohort_retention"

// Metrics holds all Prometheus metrics for the application.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Ingestion metrics
	CustomersRead    *prometheus.CounterVec
	OrdersRead       *prometheus.CounterVec
	CustomersTracked prometheus.Counter
	CustomersSkipped *prometheus.CounterVec
	OrdersRecorded   prometheus.Counter
	OrdersSkipped    *prometheus.CounterVec
	SourceErrors     *prometheus.CounterVec

	// Cohort metrics
	Cohorts          prometheus.Gauge
	TrackedCustomers prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter
	CellsExported     prometheus.Counter

	// Sink metrics
	SinkInsertErrors *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		CustomersRead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "customers_read_total",
			Help:      "Total number of customer records read by source",
		}, []string{"source"}),
		OrdersRead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "orders_read_total",
			Help:      "Total number of order records read by source",
		}, []string{"source"}),
		CustomersTracked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "customers_tracked_total",
			Help:      "Total number of customers assigned to a cohort",
		}),
		CustomersSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "customers_skipped_total",
			Help:      "Total number of customer records skipped by reason",
		}, []string{"reason"}),
		OrdersRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "orders_recorded_total",
			Help:      "Total number of orders recorded against a cohort",
		}),
		OrdersSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "orders_skipped_total",
			Help:      "Total number of order records skipped by reason",
		}, []string{"reason"}),
		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_errors_total",
			Help:      "Total number of failed source reads",
		}, []string{"source"}),

		// Cohort metrics
		Cohorts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cohort",
			Name:      "cohorts",
			Help:      "Number of cohorts with at least one customer in the last run",
		}),
		TrackedCustomers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cohort",
			Name:      "customers",
			Help:      "Number of customers tracked in the last run",
		}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
		CellsExported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cells_exported_total",
			Help:      "Total number of retention cells written to the store",
		}),

		// Sink metrics
		SinkInsertErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "insert_errors_total",
			Help:      "Total number of failed store inserts",
		}, []string{"sink"}),

		// Health metrics
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint serving g.
// A nil g serves the default Prometheus registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordCustomerRead counts a customer record read from source.
func (m *Metrics) RecordCustomerRead(source string) {
	if m == nil {
		return
	}
	m.CustomersRead.WithLabelValues(source).Inc()
}

// RecordOrderRead counts an order record read from source.
func (m *Metrics) RecordOrderRead(source string) {
	if m == nil {
		return
	}
	m.OrdersRead.WithLabelValues(source).Inc()
}

// RecordCustomerTracked counts a tracked customer, or a skip when reason is non-empty.
func (m *Metrics) RecordCustomerTracked(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		m.CustomersTracked.Inc()
		return
	}
	m.CustomersSkipped.WithLabelValues(reason).Inc()
}

// RecordOrderRecorded counts a recorded order, or a skip when reason is non-empty.
func (m *Metrics) RecordOrderRecorded(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		m.OrdersRecorded.Inc()
		return
	}
	m.OrdersSkipped.WithLabelValues(reason).Inc()
}

// RecordSourceError counts a failed source read.
func (m *Metrics) RecordSourceError(source string) {
	if m == nil {
		return
	}
	m.SourceErrors.WithLabelValues(source).Inc()
}

// UpdateCohortGauges sets the cohort and customer gauges.
func (m *Metrics) UpdateCohortGauges(cohorts, customers int) {
	if m == nil {
		return
	}
	m.Cohorts.Set(float64(cohorts))
	m.TrackedCustomers.Set(float64(customers))
}

// RecordPipelineRun records a pipeline phase run.
func (m *Metrics) RecordPipelineRun(phase, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	m.PipelineDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordReport records a generated report and the cells it exported.
func (m *Metrics) RecordReport(cells int, at time.Time) {
	if m == nil {
		return
	}
	m.ReportsGenerated.Inc()
	m.CellsExported.Add(float64(cells))
	m.LastSuccessfulPipeline.Set(float64(at.Unix()))
}

// RecordSinkError counts a failed store insert.
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkInsertErrors.WithLabelValues(sink).Inc()
}
