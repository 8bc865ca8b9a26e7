package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cohort-retention/internal/domain"
	"cohort-retention/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, oldest, recent, interval_days, intervals,
	customers, cohorts, cells, status, generated_at
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.ReportRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO report_runs (` + runColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Oldest, r.Recent, r.IntervalDays, r.Intervals,
		r.Customers, r.Cohorts, r.Cells, r.Status, r.GeneratedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.ReportRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report run by id: %w", err)
	}
	return r, nil
}

// GetLatest retrieves the most recently generated run. Returns ErrNotFound if empty.
func (s *RunStore) GetLatest(ctx context.Context) (*domain.ReportRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs ORDER BY generated_at DESC, run_id DESC LIMIT 1`

	r, err := scanRun(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest report run: %w", err)
	}
	return r, nil
}

func scanRun(row pgx.Row) (*domain.ReportRun, error) {
	var r domain.ReportRun
	err := row.Scan(
		&r.RunID, &r.Oldest, &r.Recent, &r.IntervalDays, &r.Intervals,
		&r.Customers, &r.Cohorts, &r.Cells, &r.Status, &r.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Oldest = r.Oldest.UTC()
	r.Recent = r.Recent.UTC()
	r.GeneratedAt = r.GeneratedAt.UTC()
	return &r, nil
}
