package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"cryptotax/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema files in lexical order.
// Every statement uses IF NOT EXISTS, so both binaries can run this at
// startup without coordinating.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := fs.Glob(PostgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := fs.ReadFile(PostgresFS, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if strings.TrimSpace(string(sql)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", file, err)
		}
	}
	return nil
}
