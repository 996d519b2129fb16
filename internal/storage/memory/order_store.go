package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// OrderStore is an in-memory implementation of storage.OrderStore.
type OrderStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Order // keyed by order id
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		data: make(map[string]*domain.Order),
	}
}

// Insert adds a new order. Returns ErrDuplicateKey if the id exists.
func (s *OrderStore) Insert(_ context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	orderCopy := *o
	s.data[o.ID] = &orderCopy
	return nil
}

// GetByID retrieves an order by its ID. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[orderID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	orderCopy := *o
	return &orderCopy, nil
}

// UpdateStatus sets the order status. Returns ErrNotFound if not exists.
func (s *OrderStore) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, exists := s.data[orderID]
	if !exists {
		return storage.ErrNotFound
	}

	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// ListByUser retrieves all orders for a user, newest first.
func (s *OrderStore) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.data {
		if o.UserID == userID {
			orderCopy := *o
			result = append(result, &orderCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.OrderStore = (*OrderStore)(nil)
