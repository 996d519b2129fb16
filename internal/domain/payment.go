package domain

import "time"

// PaymentStatus represents the on-chain confirmation state of a payment.
type PaymentStatus string

// Payment lifecycle statuses. finalized is carried for forward compatibility;
// no code path transitions into it yet.
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFinalized PaymentStatus = "finalized"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// TokenType identifies the SPL token used for payment.
type TokenType string

// Supported payment tokens.
const (
	TokenTypeUSDC TokenType = "USDC"
	TokenTypeUSDT TokenType = "USDT"
)

// Payment tracks a Solana Pay payment for an order. One-to-one with Order.
// The reference key is the sole on-chain correlation handle: it is embedded in
// the payment request URI and appears among the account keys of the paying
// transaction, which is how the sweeper finds payments without knowing their
// signatures in advance.
// Corresponds to payments table in PostgreSQL.
type Payment struct {
	ID               string // PRIMARY KEY, UUID
	OrderID          string // UNIQUE, owning order
	PaymentURL       string // full Solana Pay URI presented to the payer
	Reference        string // UNIQUE, single-use base58 public key
	RecipientAddress string // merchant wallet receiving the payment
	TokenType        TokenType
	TokenMint        string // SPL mint address for TokenType on the configured network
	AmountExpected   int64  // expected amount in base units (10^-6 for USDC/USDT)
	Status           PaymentStatus
	TxSignature      *string // set at most once, on successful verification
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
}

// IsPaid reports whether the payment reached confirmed or finalized.
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusConfirmed || p.Status == PaymentStatusFinalized
}
