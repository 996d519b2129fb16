package postgres

import (
	"context"
	"fmt"
	"time"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// QueryJobStore implements storage.QueryJobStore using PostgreSQL.
type QueryJobStore struct {
	pool *Pool
}

// NewQueryJobStore creates a new QueryJobStore.
func NewQueryJobStore(pool *Pool) *QueryJobStore {
	return &QueryJobStore{pool: pool}
}

// Compile-time interface check.
var _ storage.QueryJobStore = (*QueryJobStore)(nil)

// Insert adds a new query job. Returns ErrDuplicateKey if the id or the
// (order_id, query_name) pair already exists.
func (s *QueryJobStore) Insert(ctx context.Context, job *domain.QueryJob) error {
	if job == nil || job.ID == "" || job.OrderID == "" || job.QueryName == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO query_jobs (
			id, order_id, query_name, query_id, execution_id, status,
			error_type, error_message, retry_count, created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		job.ID,
		job.OrderID,
		job.QueryName,
		job.QueryID,
		job.ExecutionID,
		string(job.Status),
		errorTypeString(job.ErrorType),
		job.ErrorMessage,
		job.RetryCount,
		createdAt,
		job.StartedAt,
		job.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert query job: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of the stored job.
func (s *QueryJobStore) Update(ctx context.Context, job *domain.QueryJob) error {
	if job == nil || job.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE query_jobs
		SET execution_id = $2, status = $3, error_type = $4, error_message = $5,
		    retry_count = $6, started_at = $7, completed_at = $8
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		job.ID,
		job.ExecutionID,
		string(job.Status),
		errorTypeString(job.ErrorType),
		job.ErrorMessage,
		job.RetryCount,
		job.StartedAt,
		job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update query job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByOrder retrieves all jobs for an order, oldest first.
func (s *QueryJobStore) ListByOrder(ctx context.Context, orderID string) ([]*domain.QueryJob, error) {
	query := `
		SELECT id, order_id, query_name, query_id, execution_id, status,
		       error_type, error_message, retry_count, created_at, started_at, completed_at
		FROM query_jobs
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.QueryJob
	for rows.Next() {
		var job domain.QueryJob
		var statusStr string
		var errTypeStr *string
		if err := rows.Scan(
			&job.ID,
			&job.OrderID,
			&job.QueryName,
			&job.QueryID,
			&job.ExecutionID,
			&statusStr,
			&errTypeStr,
			&job.ErrorMessage,
			&job.RetryCount,
			&job.CreatedAt,
			&job.StartedAt,
			&job.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan query job row: %w", err)
		}
		job.Status = domain.QueryJobStatus(statusStr)
		if errTypeStr != nil {
			et := domain.ErrorType(*errTypeStr)
			job.ErrorType = &et
		}
		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query job rows: %w", err)
	}

	return jobs, nil
}

// DeleteByOrder removes all jobs belonging to an order.
func (s *QueryJobStore) DeleteByOrder(ctx context.Context, orderID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM query_jobs WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete query jobs: %w", err)
	}
	return nil
}

func errorTypeString(et *domain.ErrorType) *string {
	if et == nil {
		return nil
	}
	s := string(*et)
	return &s
}
