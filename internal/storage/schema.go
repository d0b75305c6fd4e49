package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrSchema indicates the destination table could not be ensured.
var ErrSchema = errors.New("ensuring schema")

// schemaStatements returns the idempotent DDL for the works table.
// It never alters an existing table.
func (d *DB) schemaStatements() []string {
	refsType, citedType := "TEXT", "INTEGER"
	if d.dialect == DialectPostgres {
		refsType, citedType = "JSONB", "BIGINT"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doi TEXT,
			title TEXT NOT NULL,
			publication_year INTEGER,
			publication_date DATE NOT NULL,
			language TEXT,
			cited_by_count %s,
			referenced_works %s NOT NULL
		)`, d.table, citedType, refsType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_year ON %s(publication_year)`, d.table, d.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_language ON %s(language)`, d.table, d.table),
	}
}

// EnsureSchema creates the works table and its indexes if they do not exist.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range d.schemaStatements() {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrSchema, err)
		}
	}
	return nil
}
