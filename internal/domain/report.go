package domain

import "time"

// ReportArtifact records a generated report file for an order, one per
// successfully completed query job. Immutable once created.
// Corresponds to report_artifacts table in PostgreSQL.
type ReportArtifact struct {
	ID        string // PRIMARY KEY, UUID
	OrderID   string
	FileName  string // e.g. "defi_activity.csv"
	FilePath  string // path relative to the artifact store root
	FileType  string // logical report type, matches the query name
	FileSize  int64  // bytes
	CreatedAt time.Time
}
