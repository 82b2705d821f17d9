package sqlstore

import (
	"context"
	"embed"
	"fmt"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// migrate creates the schema for the store's engine. The files only use
// IF NOT EXISTS statements, so running them against an existing database is
// a no-op.
func (s *Store) migrate(ctx context.Context) error {
	schema, err := schemaFS.ReadFile(s.dialect.schema)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.dialect.schema, err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply %s: %w", s.dialect.schema, err)
	}
	return nil
}
