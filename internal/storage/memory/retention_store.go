package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cohort-retention/internal/domain"
	"cohort-retention/internal/storage"
)

// RetentionStore is an in-memory implementation of storage.RetentionStore.
type RetentionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RetentionCell // keyed by composite key
}

// NewRetentionStore creates a new in-memory retention store.
func NewRetentionStore() *RetentionStore {
	return &RetentionStore{
		data: make(map[string]*domain.RetentionCell),
	}
}

func cellKey(runID, cohortID string, intervalIndex int) string {
	return fmt.Sprintf("%s|%s|%d", runID, cohortID, intervalIndex)
}

func validCell(c *domain.RetentionCell) bool {
	return c != nil && c.RunID != "" && c.CohortID != "" && c.IntervalIndex >= 0
}

// InsertBulk adds multiple cells atomically. Fails entire batch on any duplicate.
func (s *RetentionStore) InsertBulk(_ context.Context, cells []*domain.RetentionCell) error {
	if len(cells) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(cells))

	// First pass: check for duplicates (existing + intra-batch)
	for _, c := range cells {
		if !validCell(c) {
			return storage.ErrInvalidInput
		}
		key := cellKey(c.RunID, c.CohortID, c.IntervalIndex)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, c := range cells {
		cellCopy := *c
		s.data[cellKey(c.RunID, c.CohortID, c.IntervalIndex)] = &cellCopy
	}

	return nil
}

// GetByRun retrieves all cells of a run, ordered by cohort DESC, then interval ASC.
func (s *RetentionStore) GetByRun(_ context.Context, runID string) ([]*domain.RetentionCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RetentionCell
	for _, c := range s.data {
		if c.RunID == runID {
			cellCopy := *c
			result = append(result, &cellCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CohortID != result[j].CohortID {
			return result[i].CohortID > result[j].CohortID
		}
		return result[i].IntervalIndex < result[j].IntervalIndex
	})

	return result, nil
}

var _ storage.RetentionStore = (*RetentionStore)(nil)
