//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/matsen/works/internal/work"
)

// newPostgresDB starts a throwaway PostgreSQL container and opens the store on it.
func newPostgresDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("works_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, Options{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestPostgres_RoundTrip(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	n, err := db.Upsert(ctx, testWorks())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := db.GetByID(ctx, "W2100837269")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2009-07-21", got.PublicationDate.String())
	assert.Equal(t, work.IDList{"https://openalex.org/W1", "https://openalex.org/W2"}, got.ReferencedWorks)
	require.NotNil(t, got.CitedByCount)
	assert.Equal(t, int64(60000), *got.CitedByCount)

	works, err := db.Search(ctx, work.Filter{Keyword: "PRISMA"})
	require.NoError(t, err)
	require.Len(t, works, 1)
}

func TestPostgres_TruncateRollsBack(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	_, err := db.Upsert(ctx, testWorks())
	require.NoError(t, err)

	err = db.InTx(ctx, func(w Writer) error {
		require.NoError(t, w.Clear(ctx))
		_, err := w.Upsert(ctx, []work.Work{{ID: "W1", Title: "x"}}) // zero date still valid
		if err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
