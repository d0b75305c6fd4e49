package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/works/internal/work"
)

// selectWorkFields contains the standard field list for SELECT queries.
const selectWorkFields = `id, doi, title,
	publication_year, publication_date,
	language, cited_by_count, referenced_works`

// GetByID retrieves a work by its identifier. It returns nil, nil when absent.
func (d *DB) GetByID(ctx context.Context, id string) (*work.Work, error) {
	row := d.db.QueryRowContext(ctx,
		d.rebind(`SELECT `+selectWorkFields+` FROM `+d.table+` WHERE id = ?`), id)

	w, err := scanWork(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting work %s: %w", id, err)
	}
	return w, nil
}

// ListAll returns all works ordered by id, optionally limited.
func (d *DB) ListAll(ctx context.Context, limit int) ([]work.Work, error) {
	return d.Search(ctx, work.Filter{Limit: limit})
}

// Search returns works matching ALL specified filter fields (AND logic).
// With no filters set it returns every work.
func (d *DB) Search(ctx context.Context, f work.Filter) ([]work.Work, error) {
	query := `SELECT ` + selectWorkFields + ` FROM ` + d.table + ` WHERE 1=1`
	var args []any

	if f.Keyword != "" {
		like := "LIKE"
		if d.dialect == DialectPostgres {
			like = "ILIKE"
		}
		query += " AND title " + like + ` ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(f.Keyword)+"%")
	}
	if f.Year != nil {
		query += " AND publication_year = ?"
		args = append(args, *f.Year)
	}
	if f.Language != "" {
		query += " AND language = ?"
		args = append(args, f.Language)
	}

	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("searching works: %w", err)
	}
	defer rows.Close()

	return scanWorks(rows)
}

// Count returns the total number of works.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+d.table).Scan(&count)
	return count, err
}

// escapeLike escapes LIKE wildcards so the keyword matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanWork(s scanner) (*work.Work, error) {
	var w work.Work
	err := s.Scan(
		&w.ID, &w.DOI, &w.Title,
		&w.PublicationYear, &w.PublicationDate,
		&w.Language, &w.CitedByCount, &w.ReferencedWorks,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWorks(rows *sql.Rows) ([]work.Work, error) {
	works := []work.Work{}
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning work: %w", err)
		}
		works = append(works, *w)
	}
	return works, rows.Err()
}
