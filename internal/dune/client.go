// Package dune provides a client for submitting and polling remote
// analytics query executions.
package dune

import (
	"context"
	"fmt"
)

// State is the lifecycle state of a query execution.
type State string

// Execution states as reported by the API.
const (
	StatePending   State = "QUERY_STATE_PENDING"
	StateExecuting State = "QUERY_STATE_EXECUTING"
	StateCompleted State = "QUERY_STATE_COMPLETED"
	StateFailed    State = "QUERY_STATE_FAILED"
	StateCancelled State = "QUERY_STATE_CANCELLED"
	StateExpired   State = "QUERY_STATE_EXPIRED"
)

// Terminal reports whether the execution will not progress further.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

// ParseState validates a raw state string.
func ParseState(raw string) (State, error) {
	switch State(raw) {
	case StatePending, StateExecuting, StateCompleted, StateFailed, StateCancelled, StateExpired:
		return State(raw), nil
	}
	return "", fmt.Errorf("unknown execution state %q", raw)
}

// Parameter is a named text parameter of a query execution.
type Parameter struct {
	Name  string
	Value string
}

// Client submits query executions and retrieves their results.
type Client interface {
	// Submit starts an execution of queryID and returns its execution id.
	Submit(ctx context.Context, queryID int64, params []Parameter) (string, error)

	// PollStatus returns the current state of an execution.
	PollStatus(ctx context.Context, executionID string) (State, error)

	// FetchResultCSV downloads the result set of a completed execution.
	FetchResultCSV(ctx context.Context, executionID string) ([]byte, error)
}
