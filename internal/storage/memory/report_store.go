package memory

import (
	"context"
	"sort"
	"sync"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReportArtifact
}

// NewReportStore creates a new in-memory report artifact store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string]*domain.ReportArtifact),
	}
}

// Insert adds a new report artifact. Returns ErrDuplicateKey if the id exists.
func (s *ReportStore) Insert(_ context.Context, artifact *domain.ReportArtifact) error {
	if artifact == nil || artifact.ID == "" || artifact.OrderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[artifact.ID]; exists {
		return storage.ErrDuplicateKey
	}

	artifactCopy := *artifact
	s.data[artifact.ID] = &artifactCopy
	return nil
}

// GetByID retrieves an artifact by id. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByID(_ context.Context, id string) (*domain.ReportArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	artifactCopy := *artifact
	return &artifactCopy, nil
}

// ListByOrder retrieves all artifacts for an order, oldest first.
func (s *ReportStore) ListByOrder(_ context.Context, orderID string) ([]*domain.ReportArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReportArtifact
	for _, artifact := range s.data {
		if artifact.OrderID == orderID {
			artifactCopy := *artifact
			result = append(result, &artifactCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

var _ storage.ReportStore = (*ReportStore)(nil)
