package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyConfirmed is returned by PaymentStore.Confirm when the
	// payment already left the pending state. Callers treat it as a lost
	// race, not a failure.
	ErrAlreadyConfirmed = errors.New("payment already confirmed")
)
