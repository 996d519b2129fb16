package postgres

import (
	"context"
	"fmt"
	"time"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// OrderStore implements storage.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

// Insert adds a new order. Returns ErrDuplicateKey if the id exists.
func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO orders (id, user_id, wallet_address, status, amount_usd_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`

	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		o.ID,
		o.UserID,
		o.WalletAddress,
		string(o.Status),
		o.AmountUSDCents,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its id. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, wallet_address, status, amount_usd_cents, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o domain.Order
	var statusStr string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.WalletAddress,
		&statusStr,
		&o.AmountUSDCents,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	o.Status = domain.OrderStatus(statusStr)
	return &o, nil
}

// UpdateStatus sets the order status. Returns ErrNotFound if not exists.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	query := `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByUser retrieves all orders for a user, newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, wallet_address, status, amount_usd_cents, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		var statusStr string
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.WalletAddress,
			&statusStr,
			&o.AmountUSDCents,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.Status = domain.OrderStatus(statusStr)
		orders = append(orders, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}
