package postgres

import (
	"context"
	"fmt"
	"time"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Insert adds a new report artifact. Returns ErrDuplicateKey if the id exists.
func (s *ReportStore) Insert(ctx context.Context, a *domain.ReportArtifact) error {
	if a == nil || a.ID == "" || a.OrderID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO report_artifacts (id, order_id, file_name, file_path, file_type, file_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.OrderID,
		a.FileName,
		a.FilePath,
		a.FileType,
		a.FileSize,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report artifact: %w", err)
	}
	return nil
}

// GetByID retrieves an artifact by id. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByID(ctx context.Context, id string) (*domain.ReportArtifact, error) {
	query := `
		SELECT id, order_id, file_name, file_path, file_type, file_size, created_at
		FROM report_artifacts
		WHERE id = $1
	`

	var a domain.ReportArtifact
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.OrderID,
		&a.FileName,
		&a.FilePath,
		&a.FileType,
		&a.FileSize,
		&a.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report artifact: %w", err)
	}
	return &a, nil
}

// ListByOrder retrieves all artifacts for an order, oldest first.
func (s *ReportStore) ListByOrder(ctx context.Context, orderID string) ([]*domain.ReportArtifact, error) {
	query := `
		SELECT id, order_id, file_name, file_path, file_type, file_size, created_at
		FROM report_artifacts
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list report artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*domain.ReportArtifact
	for rows.Next() {
		var a domain.ReportArtifact
		if err := rows.Scan(
			&a.ID,
			&a.OrderID,
			&a.FileName,
			&a.FilePath,
			&a.FileType,
			&a.FileSize,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan report artifact row: %w", err)
		}
		artifacts = append(artifacts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report artifact rows: %w", err)
	}

	return artifacts, nil
}
