// Package pipeline runs one cohort retention report end to end: ingestion,
// aggregation, rendering, and export.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cohort-retention/internal/aggregation"
	"cohort-retention/internal/cohort"
	"cohort-retention/internal/domain"
	"cohort-retention/internal/idhash"
	"cohort-retention/internal/ingestion"
	"cohort-retention/internal/observability"
	"cohort-retention/internal/reporting"
	"cohort-retention/internal/storage"
	"cohort-retention/internal/verification"
)

// Output file names.
const (
	RetentionCSVFile = "cohort_retention.csv"
	ReportFile       = "COHORT_REPORT.md"
)

const phaseReport = "report"

// sink is a named retention store.
type sink struct {
	name  string
	store storage.RetentionStore
}

// Pipeline orchestrates one report run over a fixed window.
type Pipeline struct {
	window    *cohort.Window
	outputDir string
	clock     func() time.Time
	runID     string
	sinks     []sink
	runs      storage.RunStore
	verify    bool
	metrics   *observability.Metrics
	logger    *logrus.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets a custom clock function for deterministic output.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithRunID fixes the run identifier instead of generating a uuid.
func WithRunID(runID string) Option {
	return func(p *Pipeline) { p.runID = runID }
}

// WithStore adds a store receiving the retention cells of every run.
func WithStore(name string, store storage.RetentionStore) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sink{name: name, store: store}) }
}

// WithRunStore records every run, successful or not, in store.
func WithRunStore(store storage.RunStore) Option {
	return func(p *Pipeline) { p.runs = store }
}

// WithVerify reads the cells of every store back after insertion and fails
// the run when they differ from the produced cells.
func WithVerify() Option {
	return func(p *Pipeline) { p.verify = true }
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger. Default: logrus.StandardLogger().
func WithLogger(l *logrus.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline writing into outputDir.
func New(window *cohort.Window, outputDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		window:    window,
		outputDir: outputDir,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result describes a completed run.
type Result struct {
	RunID        string
	Report       *reporting.Report
	Build        ingestion.BuildStats
	Aggregate    ingestion.AggregateStats
	Cells        []*domain.RetentionCell
	CSVPath      string
	MarkdownPath string
}

// Run executes the full pipeline and writes output files:
// - cohort_retention.csv
// - COHORT_REPORT.md
// Cells are then inserted into every configured store.
func (p *Pipeline) Run(ctx context.Context, customers []ingestion.CustomerSource, orders []ingestion.OrderSource) (*Result, error) {
	start := time.Now()
	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := p.logger.WithField("run_id", runID)

	res, err := p.run(ctx, runID, customers, orders)
	if err != nil {
		p.metrics.RecordPipelineRun(phaseReport, "error", time.Since(start))
		p.recordFailedRun(ctx, runID, log)
		log.WithError(err).Error("report run failed")
		return nil, err
	}

	p.metrics.RecordPipelineRun(phaseReport, "success", time.Since(start))
	p.metrics.RecordReport(len(res.Cells), res.Report.GeneratedAt)

	log.WithFields(logrus.Fields{
		"customers":    res.Report.DataSummary.Customers,
		"cohorts":      res.Report.DataSummary.Cohorts,
		"cells":        len(res.Cells),
		"data_version": res.Report.DataVersion,
		"output_dir":   p.outputDir,
		"duration":     time.Since(start).String(),
	}).Info("report run completed")

	return res, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, customers []ingestion.CustomerSource, orders []ingestion.OrderSource) (*Result, error) {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// 1. Ingest
	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Registry: cohort.NewRegistry(p.window),
		Metrics:  p.metrics,
		Logger:   p.logger,
	})
	build, err := runner.BuildCohorts(ctx, customers...)
	if err != nil {
		return nil, err
	}
	aggregate, err := runner.AggregateOrders(ctx, orders...)
	if err != nil {
		return nil, err
	}
	p.logger.Debug(runner.Registry().String())

	// 2. Generate report
	report := reporting.NewGenerator().
		WithClock(p.clock).
		Generate(runner.Aggregator(), runID, DataQuality(build, aggregate))
	report.DataVersion = idhash.ComputeDataVersion(report.Table.Header, report.Table.Records())

	// 3. Write outputs
	res := &Result{
		RunID:        runID,
		Report:       report,
		Build:        build,
		Aggregate:    aggregate,
		CSVPath:      filepath.Join(p.outputDir, RetentionCSVFile),
		MarkdownPath: filepath.Join(p.outputDir, ReportFile),
	}
	if err := os.WriteFile(res.CSVPath, []byte(reporting.RenderCSV(report.Table)), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", RetentionCSVFile, err)
	}
	if err := os.WriteFile(res.MarkdownPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ReportFile, err)
	}

	// 4. Export cells
	res.Cells = reporting.Cells(runner.Aggregator(), runID, report.GeneratedAt)
	for _, s := range p.sinks {
		if err := s.store.InsertBulk(ctx, res.Cells); err != nil {
			p.metrics.RecordSinkError(s.name)
			return nil, fmt.Errorf("insert cells into %s: %w", s.name, err)
		}
		if p.verify {
			if err := p.verifySink(ctx, s, runID, res.Cells); err != nil {
				return nil, err
			}
		}
	}

	if p.runs != nil {
		run := p.reportRun(runID, domain.RunStatusCompleted, report.GeneratedAt)
		run.Customers = report.DataSummary.Customers
		run.Cohorts = report.DataSummary.Cohorts
		run.Cells = len(res.Cells)
		if err := p.runs.Insert(ctx, run); err != nil {
			p.metrics.RecordSinkError("runs")
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	return res, nil
}

func (p *Pipeline) reportRun(runID, status string, at time.Time) *domain.ReportRun {
	return &domain.ReportRun{
		RunID:        runID,
		Oldest:       p.window.Oldest(),
		Recent:       p.window.Recent(),
		IntervalDays: p.window.IntervalDays(),
		Intervals:    p.window.Intervals(),
		Status:       status,
		GeneratedAt:  at,
	}
}

// recordFailedRun stores a FAILED run. Errors are logged, not returned.
func (p *Pipeline) recordFailedRun(ctx context.Context, runID string, log *logrus.Entry) {
	if p.runs == nil {
		return
	}
	if err := p.runs.Insert(ctx, p.reportRun(runID, domain.RunStatusFailed, p.clock())); err != nil {
		p.metrics.RecordSinkError("runs")
		log.WithError(err).Warn("failed to record failed run")
	}
}

// DataQuality converts ingestion stats into report counters, in a fixed order.
func DataQuality(build ingestion.BuildStats, aggregate ingestion.AggregateStats) reporting.DataQualitySection {
	var q reporting.DataQualitySection

	q.Add("customers read", build.Read)
	q.Add("customers tracked", build.Tracked)
	q.Add("customer rows malformed", build.Malformed)
	for _, reason := range []cohort.SkipReason{cohort.SkipMissingID, cohort.SkipDuplicate, cohort.SkipOutOfWindow} {
		q.Add(fmt.Sprintf("customers skipped (%s)", reason), build.Skipped[reason])
	}

	q.Add("orders read", aggregate.Read)
	q.Add("orders recorded", aggregate.Recorded)
	q.Add("order rows malformed", aggregate.Malformed)
	for _, outcome := range []aggregation.Outcome{aggregation.UnknownCustomer, aggregation.OutOfWindow, aggregation.BeforeCohort} {
		q.Add(fmt.Sprintf("orders skipped (%s)", outcome), aggregate.Skipped[outcome])
	}

	return q
}

// verifySink reads the run back from one store.
func (p *Pipeline) verifySink(ctx context.Context, s sink, runID string, cells []*domain.RetentionCell) error {
	report, err := verification.VerifyRun(ctx, s.store, runID, cells)
	if err != nil {
		p.metrics.RecordSinkError(s.name)
		return fmt.Errorf("verify %s: %w", s.name, err)
	}
	if err := report.Err(); err != nil {
		p.metrics.RecordSinkError(s.name)
		for _, r := range report.Results {
			p.logger.WithFields(logrus.Fields{
				"sink":        s.name,
				"cohort":      r.CohortID,
				"interval":    r.IntervalIndex,
				"missing":     r.Missing,
				"divergences": len(r.Divergences),
			}).Warn("stored cell differs from run")
		}
		return fmt.Errorf("verify %s: %w", s.name, err)
	}
	return nil
}
