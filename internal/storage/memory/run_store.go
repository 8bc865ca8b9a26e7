package memory

import (
	"context"
	"sync"

	"cohort-retention/internal/domain"
	"cohort-retention/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.ReportRun
	latest string
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.ReportRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.ReportRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	if cur, ok := s.data[s.latest]; !ok || !r.GeneratedAt.Before(cur.GeneratedAt) {
		s.latest = r.RunID
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *r
	return &runCopy, nil
}

// GetLatest retrieves the most recently generated run. Returns ErrNotFound if empty.
func (s *RunStore) GetLatest(ctx context.Context) (*domain.ReportRun, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	return s.GetByID(ctx, latest)
}

var _ storage.RunStore = (*RunStore)(nil)
