package clickhouse

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"cohort-retention/internal/domain"
	"cohort-retention/internal/storage"
)

// RetentionStore implements storage.RetentionStore using ClickHouse.
type RetentionStore struct {
	conn *Conn
}

// NewRetentionStore creates a new RetentionStore.
func NewRetentionStore(conn *Conn) *RetentionStore {
	return &RetentionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RetentionStore = (*RetentionStore)(nil)

func cellKey(cohortID string, intervalIndex int) string {
	return cohortID + "|" + strconv.Itoa(intervalIndex)
}

// InsertBulk adds multiple cells atomically. Fails entire batch on any duplicate.
// MergeTree does not enforce keys, so duplicates are checked before the batch is sent.
func (s *RetentionStore) InsertBulk(ctx context.Context, cells []*domain.RetentionCell) error {
	if len(cells) == 0 {
		return nil
	}

	// Check for intra-batch duplicates, grouped by run
	byRun := make(map[string]map[string]struct{})
	for _, c := range cells {
		if c == nil || c.RunID == "" || c.CohortID == "" || c.IntervalIndex < 0 {
			return storage.ErrInvalidInput
		}
		keys, ok := byRun[c.RunID]
		if !ok {
			keys = make(map[string]struct{})
			byRun[c.RunID] = keys
		}
		key := cellKey(c.CohortID, c.IntervalIndex)
		if _, exists := keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		keys[key] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for runID, keys := range byRun {
		existing, err := s.existingKeys(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for key := range keys {
			if _, exists := existing[key]; exists {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO cohort_retention (
			run_id, cohort_id, cohort_start, cohort_end, customers,
			interval_index, interval_start_day, interval_end_day,
			orderers, first_time_orderers, generated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range cells {
		err = batch.Append(
			c.RunID, c.CohortID, c.CohortStart, c.CohortEnd, uint32(c.Customers),
			uint32(c.IntervalIndex), uint32(c.IntervalStartDay), uint32(c.IntervalEndDay),
			uint32(c.Orderers), uint32(c.FirstTimeOrderers), c.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
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
		WHERE run_id = ?
		ORDER BY cohort_id DESC, interval_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query retention by run: %w", err)
	}
	defer rows.Close()

	return scanRetentionCells(rows)
}

func (s *RetentionStore) existingKeys(ctx context.Context, runID string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT cohort_id, interval_index FROM cohort_retention WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var (
			cohortID string
			interval uint32
		)
		if err := rows.Scan(&cohortID, &interval); err != nil {
			return nil, err
		}
		keys[cellKey(cohortID, int(interval))] = struct{}{}
	}
	return keys, rows.Err()
}

func scanRetentionCells(rows driver.Rows) ([]*domain.RetentionCell, error) {
	var result []*domain.RetentionCell
	for rows.Next() {
		var (
			c                                     domain.RetentionCell
			customers, interval, startDay, endDay uint32
			orderers, firstTime                   uint32
		)
		err := rows.Scan(
			&c.RunID, &c.CohortID, &c.CohortStart, &c.CohortEnd, &customers,
			&interval, &startDay, &endDay,
			&orderers, &firstTime, &c.GeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan retention cell: %w", err)
		}
		c.Customers = int(customers)
		c.IntervalIndex = int(interval)
		c.IntervalStartDay = int(startDay)
		c.IntervalEndDay = int(endDay)
		c.Orderers = int(orderers)
		c.FirstTimeOrderers = int(firstTime)
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
