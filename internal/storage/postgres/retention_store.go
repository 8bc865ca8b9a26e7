package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cohort-retention/internal/domain"
	"cohort-retention/internal/storage"
)

// RetentionStore implements storage.RetentionStore using PostgreSQL.
type RetentionStore struct {
	pool *Pool
}

// NewRetentionStore creates a new RetentionStore.
func NewRetentionStore(pool *Pool) *RetentionStore {
	return &RetentionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RetentionStore = (*RetentionStore)(nil)

// InsertBulk adds multiple cells atomically. Fails entire batch on any duplicate.
func (s *RetentionStore) InsertBulk(ctx context.Context, cells []*domain.RetentionCell) error {
	if len(cells) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO cohort_retention (
			run_id, cohort_id, cohort_start, cohort_end, customers,
			interval_index, interval_start_day, interval_end_day,
			orderers, first_time_orderers, generated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11
		)
	`

	for _, c := range cells {
		if c == nil || c.RunID == "" || c.CohortID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			c.RunID, c.CohortID, c.CohortStart, c.CohortEnd, c.Customers,
			c.IntervalIndex, c.IntervalStartDay, c.IntervalEndDay,
			c.Orderers, c.FirstTimeOrderers, c.GeneratedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert retention cell in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRun retrieves all cells of a run, ordered by cohort DESC, then interval ASC.
func (s *RetentionStore) GetByRun(ctx context.Context, runID string) ([]*domain.RetentionCell, error) {
	query := `
		SELECT
			run_id, cohort_id, cohort_start, cohort_end, customers,
			interval_index, interval_start_day, interval_end_day,
			orderers, first_time_orderers, generated_at
		FROM cohort_retention
		WHERE run_id = $1
		ORDER BY cohort_id DESC, interval_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query retention by run: %w", err)
	}
	defer rows.Close()

	return scanRetentionCells(rows)
}

func scanRetentionCells(rows pgx.Rows) ([]*domain.RetentionCell, error) {
	var result []*domain.RetentionCell
	for rows.Next() {
		var c domain.RetentionCell
		err := rows.Scan(
			&c.RunID, &c.CohortID, &c.CohortStart, &c.CohortEnd, &c.Customers,
			&c.IntervalIndex, &c.IntervalStartDay, &c.IntervalEndDay,
			&c.Orderers, &c.FirstTimeOrderers, &c.GeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan retention cell: %w", err)
		}
		c.CohortStart = c.CohortStart.UTC()
		c.CohortEnd = c.CohortEnd.UTC()
		c.GeneratedAt = c.GeneratedAt.UTC()
		result = append(result, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retention cells: %w", err)
	}

	return result, nil
}
