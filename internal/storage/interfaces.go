package storage

import (
	"context"
	"time"

	"cryptotax/internal/domain"
)

// OrderStore provides access to orders storage.
type OrderStore interface {
	// Insert adds a new order. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, o *domain.Order) error

	// GetByID retrieves an order by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// UpdateStatus sets the order status. Returns ErrNotFound if not exists.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	// ListByUser retrieves all orders for a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
}

// PaymentStore provides access to payments storage.
type PaymentStore interface {
	// Insert adds a new payment. Returns ErrDuplicateKey if the id,
	// order_id or reference already exists.
	Insert(ctx context.Context, p *domain.Payment) error

	// GetByOrderID retrieves the payment for an order. Returns ErrNotFound
	// if not exists.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// GetByReference retrieves a payment by its reference key. The
	// reference is the canonical on-chain correlation index.
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)

	// ListPendingBefore retrieves pending payments created before cutoff,
	// oldest first. Used by the reconciliation sweeper.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Payment, error)

	// Confirm atomically records the transaction signature, moves the
	// payment from pending to confirmed and the owning order to
	// payment_received. Returns ErrAlreadyConfirmed if the payment is no
	// longer pending: the compare-and-set is the sole mechanism that keeps
	// two racing confirmations from both triggering analysis.
	Confirm(ctx context.Context, orderID, signature string, confirmedAt time.Time) error
}

// QueryJobStore provides access to query_jobs storage.
type QueryJobStore interface {
	// Insert adds a new job. Returns ErrDuplicateKey if a live job exists
	// for the same (order_id, query_name).
	Insert(ctx context.Context, j *domain.QueryJob) error

	// Update persists mutable job fields (status, execution id, error,
	// timestamps). Returns ErrNotFound if not exists.
	Update(ctx context.Context, j *domain.QueryJob) error

	// ListByOrder retrieves all jobs for an order, oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]*domain.QueryJob, error)

	// DeleteByOrder removes all jobs for an order. Administrative retries
	// delete and recreate to start from a clean slate.
	DeleteByOrder(ctx context.Context, orderID string) error
}

// ReportStore provides access to report_artifacts storage.
type ReportStore interface {
	// Insert adds a new artifact record. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, a *domain.ReportArtifact) error

	// GetByID retrieves an artifact by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, artifactID string) (*domain.ReportArtifact, error)

	// ListByOrder retrieves all artifacts for an order, newest first.
	ListByOrder(ctx context.Context, orderID string) ([]*domain.ReportArtifact, error)
}
