package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cryptotax/internal/observability"
	"cryptotax/internal/storage"
	"cryptotax/internal/taskqueue"
)

// ConfirmResult reports the outcome of a confirmation attempt.
type ConfirmResult struct {
	// Confirmed is true when the payment is confirmed after this call,
	// whether this caller won the race or an earlier one did.
	Confirmed bool

	// AlreadyConfirmed is true when the payment had been confirmed before
	// this call. No analysis run is enqueued in that case.
	AlreadyConfirmed bool

	// Outcome is the verification outcome for failed attempts.
	Outcome Outcome

	// Message is a user-facing description of the result.
	Message string
}

// StateMachine drives a payment from pending to confirmed. Confirmation is
// at-most-once: the storage layer's compare-and-swap picks a single winner
// among concurrent confirms and only the winner enqueues the analysis run.
type StateMachine struct {
	payments storage.PaymentStore
	verifier *Verifier
	queue    taskqueue.Queue
	logger   *log.Logger
	now      func() time.Time
}

// NewStateMachine creates a confirmation state machine.
func NewStateMachine(payments storage.PaymentStore, verifier *Verifier, queue taskqueue.Queue, logger *log.Logger) *StateMachine {
	if logger == nil {
		logger = log.Default()
	}
	return &StateMachine{
		payments: payments,
		verifier: verifier,
		queue:    queue,
		logger:   logger,
		now:      time.Now,
	}
}

// Confirm verifies the signature against the order's payment request and,
// on success, atomically flips the payment to confirmed and the order to
// payment_received, then enqueues the analysis run. Calling it again for an
// already confirmed payment is an idempotent success.
func (m *StateMachine) Confirm(ctx context.Context, orderID, signature string) (*ConfirmResult, error) {
	p, err := m.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load payment for order %s: %w", orderID, err)
	}

	if p.IsPaid() {
		return &ConfirmResult{
			Confirmed:        true,
			AlreadyConfirmed: true,
			Outcome:          OutcomeVerified,
			Message:          "payment already confirmed",
		}, nil
	}

	outcome, err := m.verifier.Verify(ctx, signature, Expected{
		Recipient: p.RecipientAddress,
		Reference: p.Reference,
		Mint:      p.TokenMint,
		Amount:    p.AmountExpected,
	})
	if err != nil {
		return nil, err
	}

	if !outcome.Accepted() {
		observability.RecordVerificationFailure(string(outcome))
		return &ConfirmResult{
			Confirmed: false,
			Outcome:   outcome,
			Message:   failureMessage(outcome),
		}, nil
	}

	err = m.payments.Confirm(ctx, orderID, signature, m.now().UTC())
	if errors.Is(err, storage.ErrAlreadyConfirmed) {
		// Another caller won the race; the payment is confirmed either way.
		return &ConfirmResult{
			Confirmed:        true,
			AlreadyConfirmed: true,
			Outcome:          outcome,
			Message:          "payment already confirmed",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("confirm payment for order %s: %w", orderID, err)
	}

	observability.RecordPaymentConfirmed()
	m.logger.Printf("payment confirmed: order=%s signature=%s outcome=%s", orderID, signature, outcome)

	// The confirmation is durable at this point. An enqueue failure is
	// recoverable through the admin retry endpoint, so it does not undo
	// the confirm.
	if err := m.queue.Enqueue(ctx, taskqueue.TaskAnalysisRun, map[string]string{"order_id": orderID}); err != nil {
		m.logger.Printf("enqueue analysis for order %s failed: %v", orderID, err)
	}

	return &ConfirmResult{
		Confirmed: true,
		Outcome:   outcome,
		Message:   "payment confirmed",
	}, nil
}

// failureMessage maps a rejection outcome to a user-actionable message.
func failureMessage(o Outcome) string {
	switch o {
	case OutcomeNotFound:
		return "transaction not found; it may still be propagating"
	case OutcomeTxFailed:
		return "transaction failed on-chain"
	case OutcomeRecipientMissing:
		return "transaction does not pay the expected recipient"
	case OutcomeReferenceMissing:
		return "transaction does not include the payment reference"
	case OutcomeNoTransfer:
		return "no token transfer to the expected account found"
	case OutcomeAmountTooLow:
		return "transfer amount is below the expected amount"
	default:
		return "payment could not be verified"
	}
}
