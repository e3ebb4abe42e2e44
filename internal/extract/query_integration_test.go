package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/internal/extract"
	"github.com/framework-cg/pgload/internal/logging"
	testhelpers "github.com/framework-cg/pgload/internal/testing"
)

func TestQueryReaderIntegration(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	dbName := testhelpers.NewTestDatabase(t, connString)
	pool := testhelpers.GetTestPool(t, connString, dbName)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE regions (id int PRIMARY KEY, name text);
		CREATE TABLE orders (id int PRIMARY KEY, region_id int REFERENCES regions(id), total numeric(10,2), status text);
		INSERT INTO regions VALUES (1, 'north'), (2, 'south');
		INSERT INTO orders VALUES
			(1, 1, 10.50, 'open'),
			(2, 1, 4.50, 'open'),
			(3, 2, 7.00, 'closed'),
			(4, 2, 1.00, 'open')`)
	require.NoError(t, err)

	reader := extract.NewQueryReader(pool, logging.NewNullLogger())

	ds, err := reader.Read(ctx, extract.SelectQuery{
		Table:        "orders o",
		Joins:        []string{"JOIN regions r ON r.id = o.region_id"},
		Aggregations: []string{"r.name AS region", "count(*)::int AS n"},
		Filters:      []extract.Filter{{Column: "o.status", Expr: "= 'open'"}},
		GroupBy:      []string{"r.name"},
		OrderBy:      "r.name",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "n"}, ds.Columns)
	assert.Equal(t, [][]any{{"north", int32(2)}, {"south", int32(1)}}, ds.Rows)

	ds, err = reader.Read(ctx, extract.SelectQuery{Table: "orders", Columns: []string{"id"}, OrderBy: "id", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int32(2)}, {int32(3)}}, ds.Rows)

	_, err = reader.Read(ctx, extract.SelectQuery{Custom: "SELECT * FROM no_such_table"})
	assert.Error(t, err)
}
