package storage

import (
	"context"

	"cohort-retention/internal/domain"
)

// RetentionStore provides access to cohort_retention storage.
type RetentionStore interface {
	// InsertBulk adds the cells of one or more runs atomically.
	// Fails entire batch on duplicate (run_id, cohort_id, interval_index).
	InsertBulk(ctx context.Context, cells []*domain.RetentionCell) error

	// GetByRun retrieves all cells of a run, ordered by cohort_id DESC, then interval_index ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.RetentionCell, error)
}

// RunStore provides access to report_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ReportRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ReportRun, error)

	// GetLatest retrieves the most recently generated run. Returns ErrNotFound if empty.
	GetLatest(ctx context.Context) (*domain.ReportRun, error)
}
