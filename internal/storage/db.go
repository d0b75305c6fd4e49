// Package storage persists canonical works in a relational table and serves
// the read queries the retrieval API depends on.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects SQL flavor differences between supported databases.
type Dialect string

const (
	// DialectSQLite is the embedded default, driven by modernc.org/sqlite.
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres is driven by github.com/lib/pq.
	DialectPostgres Dialect = "postgres"
)

// DefaultTable is the destination table name.
const DefaultTable = "works"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures Open.
type Options struct {
	Driver string // "sqlite" (default) or "postgres"
	DSN    string // File path for SQLite, connection string for PostgreSQL
}

// Option adjusts a DB after construction.
type Option func(*DB)

// WithTable overrides the destination table name (for testing).
func WithTable(name string) Option {
	return func(d *DB) {
		d.table = name
	}
}

// DB wraps a database connection holding the works table.
type DB struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Open connects to the database and verifies the connection.
// The works table is not created here; see EnsureSchema.
func Open(ctx context.Context, opts Options, options ...Option) (*DB, error) {
	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("opening database: empty DSN")
	}

	driverName := "sqlite"
	if dialect == DialectPostgres {
		driverName = "postgres"
	}

	db, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	d, err := New(db, dialect, options...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an existing connection.
func New(db *sql.DB, dialect Dialect, options ...Option) (*DB, error) {
	d := &DB{db: db, dialect: dialect, table: DefaultTable}
	for _, opt := range options {
		opt(d)
	}
	if !tableName.MatchString(d.table) {
		return nil, fmt.Errorf("invalid table name: %q", d.table)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Dialect returns the SQL dialect in use.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Table returns the destination table name.
func (d *DB) Table() string {
	return d.table
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
// Queries in this package never contain a literal question mark.
func (d *DB) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
