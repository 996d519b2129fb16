package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// PaymentStore is an in-memory implementation of storage.PaymentStore.
// It holds a reference to the order store so Confirm can flip both records
// under one lock, emulating the cross-table transaction of the postgres
// implementation.
type PaymentStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Payment // keyed by payment id
	byRef  map[string]string          // reference → payment id
	orders *OrderStore
}

// NewPaymentStore creates a new in-memory payment store.
func NewPaymentStore(orders *OrderStore) *PaymentStore {
	return &PaymentStore{
		data:   make(map[string]*domain.Payment),
		byRef:  make(map[string]string),
		orders: orders,
	}
}

// Insert adds a new payment. Returns ErrDuplicateKey if the id, order_id or
// reference already exists.
func (s *PaymentStore) Insert(_ context.Context, p *domain.Payment) error {
	if p == nil || p.ID == "" || p.OrderID == "" || p.Reference == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byRef[p.Reference]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.OrderID == p.OrderID {
			return storage.ErrDuplicateKey
		}
	}

	paymentCopy := *p
	s.data[p.ID] = &paymentCopy
	s.byRef[p.Reference] = p.ID
	return nil
}

// GetByOrderID retrieves the payment for an order. Returns ErrNotFound if not exists.
func (s *PaymentStore) GetByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.data {
		if p.OrderID == orderID {
			paymentCopy := *p
			return &paymentCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetByReference retrieves a payment by its reference key.
func (s *PaymentStore) GetByReference(_ context.Context, reference string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byRef[reference]
	if !exists {
		return nil, storage.ErrNotFound
	}
	paymentCopy := *s.data[id]
	return &paymentCopy, nil
}

// ListPendingBefore retrieves pending payments created before cutoff, oldest first.
func (s *PaymentStore) ListPendingBefore(_ context.Context, cutoff time.Time) ([]*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Payment
	for _, p := range s.data {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			paymentCopy := *p
			result = append(result, &paymentCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Confirm atomically records the signature and flips payment and order status.
// Returns ErrAlreadyConfirmed if the payment already left pending.
func (s *PaymentStore) Confirm(ctx context.Context, orderID, signature string, confirmedAt time.Time) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var payment *domain.Payment
	for _, p := range s.data {
		if p.OrderID == orderID {
			payment = p
			break
		}
	}
	if payment == nil {
		return storage.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusPending {
		return storage.ErrAlreadyConfirmed
	}

	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusPaymentReceived); err != nil {
		return err
	}

	sig := signature
	at := confirmedAt
	payment.TxSignature = &sig
	payment.Status = domain.PaymentStatusConfirmed
	payment.ConfirmedAt = &at
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PaymentStore = (*PaymentStore)(nil)
