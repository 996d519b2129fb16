package domain

import "time"

// QueryJobStatus represents the lifecycle state of a remote query job.
type QueryJobStatus string

// Query job lifecycle statuses.
const (
	QueryJobStatusQueued            QueryJobStatus = "queued"
	QueryJobStatusRunning           QueryJobStatus = "running"
	QueryJobStatusCompleted         QueryJobStatus = "completed"
	QueryJobStatusFailed            QueryJobStatus = "failed"
	QueryJobStatusFailedNeedsReview QueryJobStatus = "failed_needs_review"
)

// ErrorType categorizes a query job failure for retry decisions.
type ErrorType string

// Failure categories. Query and auth errors are never auto-retried;
// the rest are considered transient.
const (
	ErrorTypeQuery         ErrorType = "query_error"
	ErrorTypeNetwork       ErrorType = "network_error"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeServiceOutage ErrorType = "service_outage"
	ErrorTypeAuth          ErrorType = "auth_error"
)

// Retryable reports whether a failure of this type may be retried.
func (e ErrorType) Retryable() bool {
	return e != ErrorTypeQuery && e != ErrorTypeAuth
}

// QueryJob tracks a single remote analytics query execution for an order.
// At most one live job exists per (order_id, query_name); administrative
// retries delete and recreate jobs rather than mutating them in place.
// Corresponds to query_jobs table in PostgreSQL.
type QueryJob struct {
	ID           string // PRIMARY KEY, UUID
	OrderID      string
	QueryName    string  // logical name, e.g. "defi_activity"
	QueryID      int64   // saved query id at the analytics provider
	ExecutionID  *string // provider execution handle, set right after submission
	Status       QueryJobStatus
	ErrorType    *ErrorType
	ErrorMessage *string // truncated to 500 chars
	RetryCount   int
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// IsComplete reports whether the job finished successfully.
func (j *QueryJob) IsComplete() bool {
	return j.Status == QueryJobStatusCompleted
}

// Duration returns the execution duration, or zero if not finished.
func (j *QueryJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
