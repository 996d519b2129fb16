package memory

import (
	"context"
	"sort"
	"sync"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// QueryJobStore is an in-memory implementation of storage.QueryJobStore.
type QueryJobStore struct {
	mu   sync.RWMutex
	data map[string]*domain.QueryJob // keyed by job id
}

// NewQueryJobStore creates a new in-memory query job store.
func NewQueryJobStore() *QueryJobStore {
	return &QueryJobStore{
		data: make(map[string]*domain.QueryJob),
	}
}

// Insert adds a new query job. Returns ErrDuplicateKey if the id exists or a
// job with the same (order_id, query_name) pair already exists.
func (s *QueryJobStore) Insert(_ context.Context, job *domain.QueryJob) error {
	if job == nil || job.ID == "" || job.OrderID == "" || job.QueryName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[job.ID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.OrderID == job.OrderID && existing.QueryName == job.QueryName {
			return storage.ErrDuplicateKey
		}
	}

	jobCopy := *job
	s.data[job.ID] = &jobCopy
	return nil
}

// Update replaces the stored record for the job's id.
func (s *QueryJobStore) Update(_ context.Context, job *domain.QueryJob) error {
	if job == nil || job.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[job.ID]; !exists {
		return storage.ErrNotFound
	}

	jobCopy := *job
	s.data[job.ID] = &jobCopy
	return nil
}

// ListByOrder retrieves all jobs for an order, oldest first.
func (s *QueryJobStore) ListByOrder(_ context.Context, orderID string) ([]*domain.QueryJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.QueryJob
	for _, job := range s.data {
		if job.OrderID == orderID {
			jobCopy := *job
			result = append(result, &jobCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// DeleteByOrder removes all jobs belonging to an order.
func (s *QueryJobStore) DeleteByOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, job := range s.data {
		if job.OrderID == orderID {
			delete(s.data, id)
		}
	}
	return nil
}

var _ storage.QueryJobStore = (*QueryJobStore)(nil)
