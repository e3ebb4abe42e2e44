package loader_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/internal/db"
	"github.com/framework-cg/pgload/internal/loader"
	"github.com/framework-cg/pgload/internal/logging"
	testhelpers "github.com/framework-cg/pgload/internal/testing"
	"github.com/framework-cg/pgload/pkg/pgload"
)

func setupOrdersTable(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connString := testhelpers.RequireDatabase(t)
	dbName := testhelpers.NewTestDatabase(t, connString)
	pool := testhelpers.GetTestPool(t, connString, dbName)

	_, err := pool.Exec(context.Background(), `
		CREATE SCHEMA sales;
		CREATE TABLE sales.orders (
			id         bigint PRIMARY KEY,
			name       text,
			qty        integer CHECK (qty >= 0),
			price      double precision,
			created_at timestamptz
		)`)
	require.NoError(t, err)
	return pool
}

func orderRows(n int, name string) *pgload.Dataset {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i + 1, name, int32(i % 7), float64(i) / 2, created}
	}
	return &pgload.Dataset{
		Columns: []string{"id", "name", "qty", "price", "created_at"},
		Rows:    rows,
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT count(*) FROM sales.orders").Scan(&n))
	return n
}

func TestWriterIntegration_InsertAndIdempotentUpsert(t *testing.T) {
	pool := setupOrdersTable(t)
	ctx := context.Background()
	w := loader.New(db.NewPoolProviderFromPool(pool), logging.NewNullLogger())

	outcome, err := w.Insert(ctx, "sales.orders", orderRows(2500, "first"), pgload.InsertOptions{})
	require.NoError(t, err)
	require.True(t, outcome.OK(), "insert failed: %v", outcome.AsError())
	assert.Equal(t, 2500, outcome.RowsSubmitted)
	assert.Equal(t, int64(2500), outcome.RowsAffected)
	assert.Equal(t, 2500, countRows(t, pool))

	opts := pgload.UpsertOptions{ConflictColumns: []string{"id"}, ExcludeFromUpdate: []string{"created_at"}}

	outcome, err = w.Upsert(ctx, "sales.orders", orderRows(2500, "second"), opts)
	require.NoError(t, err)
	require.True(t, outcome.OK(), "upsert failed: %v", outcome.AsError())
	assert.Equal(t, int64(2500), outcome.RowsAffected)

	outcome, err = w.Upsert(ctx, "sales.orders", orderRows(2500, "second"), opts)
	require.NoError(t, err)
	require.True(t, outcome.OK())
	assert.Equal(t, 2500, outcome.RowsSubmitted)
	assert.Equal(t, int64(0), outcome.RowsAffected)

	var name string
	require.NoError(t, pool.QueryRow(ctx, "SELECT name FROM sales.orders WHERE id = 1").Scan(&name))
	assert.Equal(t, "second", name)
	assert.Equal(t, 2500, countRows(t, pool))
}

func TestWriterIntegration_FailedChunkLeavesTableUnchanged(t *testing.T) {
	pool := setupOrdersTable(t)
	ctx := context.Background()
	w := loader.New(db.NewPoolProviderFromPool(pool), logging.NewNullLogger())

	ds := orderRows(25000, "bulk")
	ds.Rows[24000][2] = int32(-1)

	outcome, err := w.Upsert(ctx, "sales.orders", ds, pgload.UpsertOptions{
		ConflictColumns: []string{"id"},
		ChunkSize:       10000,
	})
	require.NoError(t, err)

	require.False(t, outcome.OK())
	assert.Equal(t, "23514", outcome.Err.Code)
	assert.Equal(t, 3, outcome.Chunks)
	assert.Equal(t, 0, countRows(t, pool))
}

func TestWriterIntegration_DoNothingPolicy(t *testing.T) {
	pool := setupOrdersTable(t)
	ctx := context.Background()
	w := loader.New(db.NewPoolProviderFromPool(pool), logging.NewNullLogger())

	_, err := w.Insert(ctx, "sales.orders", orderRows(10, "kept"), pgload.InsertOptions{})
	require.NoError(t, err)

	outcome, err := w.Upsert(ctx, "sales.orders", orderRows(20, "ignored"), pgload.UpsertOptions{
		ConflictColumns: []string{"id"},
		Policy:          pgload.ConflictNothing,
	})
	require.NoError(t, err)
	require.True(t, outcome.OK())
	assert.Equal(t, int64(10), outcome.RowsAffected)

	var kept int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM sales.orders WHERE name = 'kept'").Scan(&kept))
	assert.Equal(t, 10, kept)
}
