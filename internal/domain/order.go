package domain

import "time"

// OrderStatus represents the lifecycle state of a wallet analysis order.
type OrderStatus string

// Order lifecycle statuses. Transitions are monotonic:
// pending_payment → payment_received → processing → {completed, partial_complete, failed}.
// An administrative retry may move a terminal order back to processing after its
// query jobs have been cleared.
const (
	OrderStatusPendingPayment  OrderStatus = "pending_payment"
	OrderStatusPaymentReceived OrderStatus = "payment_received"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusPartialComplete OrderStatus = "partial_complete"
	OrderStatusFailed          OrderStatus = "failed"
)

// Order represents a user's request for a wallet analysis report.
// Corresponds to orders table in PostgreSQL.
type Order struct {
	ID             string // PRIMARY KEY, UUID
	UserID         string // owning user
	WalletAddress  string // Solana wallet under analysis (base58)
	Status         OrderStatus
	AmountUSDCents int64 // amount due, USD cents
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the order reached a final analysis state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusPartialComplete, OrderStatusFailed:
		return true
	}
	return false
}
