package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// PaymentStore implements storage.PaymentStore using PostgreSQL.
type PaymentStore struct {
	pool *Pool
}

// NewPaymentStore creates a new PaymentStore.
func NewPaymentStore(pool *Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PaymentStore = (*PaymentStore)(nil)

// Insert adds a new payment. Returns ErrDuplicateKey if the id, order_id or
// reference already exists.
func (s *PaymentStore) Insert(ctx context.Context, p *domain.Payment) error {
	if p == nil || p.ID == "" || p.OrderID == "" || p.Reference == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO payments (
			id, order_id, payment_url, reference, recipient_address,
			token_type, token_mint, amount_expected, status, tx_signature,
			created_at, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		p.ID,
		p.OrderID,
		p.PaymentURL,
		p.Reference,
		p.RecipientAddress,
		string(p.TokenType),
		p.TokenMint,
		p.AmountExpected,
		string(p.Status),
		p.TxSignature,
		createdAt,
		p.ConfirmedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

const paymentColumns = `
	id, order_id, payment_url, reference, recipient_address,
	token_type, token_mint, amount_expected, status, tx_signature,
	created_at, confirmed_at
`

// GetByOrderID retrieves the payment for an order. Returns ErrNotFound if not exists.
func (s *PaymentStore) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

	p, err := scanPayment(s.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get payment by order id: %w", err)
	}
	return p, nil
}

// GetByReference retrieves a payment by its reference key.
func (s *PaymentStore) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`

	p, err := scanPayment(s.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get payment by reference: %w", err)
	}
	return p, nil
}

// ListPendingBefore retrieves pending payments created before cutoff, oldest first.
func (s *PaymentStore) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.PaymentStatusPending), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, nil
}

// Confirm atomically records the signature, flips the payment to confirmed and
// the order to payment_received in a single transaction. The UPDATE is guarded
// on status = pending so concurrent confirms race on the row: the loser sees
// zero rows affected and gets ErrAlreadyConfirmed.
func (s *PaymentStore) Confirm(ctx context.Context, orderID, signature string, confirmedAt time.Time) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $2, tx_signature = $3, confirmed_at = $4
		WHERE order_id = $1 AND status = $5
	`,
		orderID,
		string(domain.PaymentStatusConfirmed),
		signature,
		confirmedAt,
		string(domain.PaymentStatusPending),
	)
	if err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1)`, orderID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check payment exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrAlreadyConfirmed
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
	`, orderID, string(domain.OrderStatusPaymentReceived)); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit confirm tx: %w", err)
	}
	return nil
}

// scanPayment scans a single row into a Payment.
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var tokenTypeStr, statusStr string

	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.PaymentURL,
		&p.Reference,
		&p.RecipientAddress,
		&tokenTypeStr,
		&p.TokenMint,
		&p.AmountExpected,
		&statusStr,
		&p.TxSignature,
		&p.CreatedAt,
		&p.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}

	p.TokenType = domain.TokenType(tokenTypeStr)
	p.Status = domain.PaymentStatus(statusStr)
	return &p, nil
}
