package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/works/internal/work"
)

var (
	// ErrClear indicates the destination table could not be emptied.
	ErrClear = errors.New("clearing destination")

	// ErrLoad indicates the batched upsert could not complete.
	ErrLoad = errors.New("loading works")
)

// Writer mutates the works table. Both *DB (autocommit) and the writer
// handed to InTx (one enclosing transaction) implement it.
type Writer interface {
	Clear(ctx context.Context) error
	Upsert(ctx context.Context, works []work.Work) (int64, error)
}

// upsertColumns lists the columns in insert order; id must stay first.
var upsertColumns = []string{
	"id", "doi", "title",
	"publication_year", "publication_date",
	"language", "cited_by_count", "referenced_works",
}

// upsertQuery builds an insert that replaces every non-key column on id conflict.
func (d *DB) upsertQuery() string {
	marks := make([]string, len(upsertColumns))
	var set []string
	for i, c := range upsertColumns {
		marks[i] = "?"
		if i > 0 {
			set = append(set, c+" = excluded."+c)
		}
	}

	return d.rebind(fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s`,
		d.table, strings.Join(upsertColumns, ", "), strings.Join(marks, ", "), strings.Join(set, ", ")))
}

func (d *DB) clearQuery() string {
	if d.dialect == DialectPostgres {
		return "TRUNCATE TABLE " + d.table
	}
	return "DELETE FROM " + d.table
}

// Clear removes every row from the works table.
func (d *DB) Clear(ctx context.Context) error {
	return d.clear(ctx, d.db)
}

func (d *DB) clear(ctx context.Context, ex execer) error {
	if _, err := ex.ExecContext(ctx, d.clearQuery()); err != nil {
		return fmt.Errorf("%w: %w", ErrClear, err)
	}
	return nil
}

// Upsert writes all works in one transaction and returns the number of rows affected.
// A row whose id already exists is fully replaced by the incoming values.
func (d *DB) Upsert(ctx context.Context, works []work.Work) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %w", ErrLoad, err)
	}
	defer tx.Rollback()

	n, err := d.upsert(ctx, tx, works)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing: %w", ErrLoad, err)
	}
	return n, nil
}

func (d *DB) upsert(ctx context.Context, ex execer, works []work.Work) (int64, error) {
	if len(works) == 0 {
		return 0, nil
	}

	stmt, err := ex.PrepareContext(ctx, d.upsertQuery())
	if err != nil {
		return 0, fmt.Errorf("%w: preparing upsert: %w", ErrLoad, err)
	}
	defer stmt.Close()

	var affected int64
	for _, w := range works {
		res, err := stmt.ExecContext(ctx,
			w.ID, w.DOI, w.Title,
			w.PublicationYear, w.PublicationDate,
			w.Language, w.CitedByCount, w.ReferencedWorks,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: upserting %q: %w", ErrLoad, w.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%w: rows affected for %q: %w", ErrLoad, w.ID, err)
		}
		affected += n
	}

	return affected, nil
}

// InTx runs fn against a writer bound to a single transaction. The
// transaction commits only if fn returns nil; otherwise every change fn
// made, including a Clear, is rolled back.
func (d *DB) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", ErrLoad, err)
	}

	if err := fn(&txWriter{d: d, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", ErrLoad, err)
	}
	return nil
}

// txWriter is the Writer handed to InTx callbacks.
type txWriter struct {
	d  *DB
	tx execer
}

func (w *txWriter) Clear(ctx context.Context) error {
	return w.d.clear(ctx, w.tx)
}

func (w *txWriter) Upsert(ctx context.Context, works []work.Work) (int64, error) {
	return w.d.upsert(ctx, w.tx, works)
}
