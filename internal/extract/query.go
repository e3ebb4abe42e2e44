package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// Filter is one WHERE condition: Column followed by Expr, e.g. "status"
// and "= 'open'".
type Filter struct {
	Column string
	Expr   string
}

// SelectQuery describes a SELECT statement. Table and every expression are
// SQL fragments the caller trusts; nothing here is quoted or escaped.
type SelectQuery struct {
	Table        string
	Columns      []string
	Filters      []Filter
	Joins        []string
	Aggregations []string
	GroupBy      []string
	OrderBy      string
	Limit        int
	Offset       int

	// Custom replaces the whole statement when set.
	Custom string
}

// SQL renders the statement.
func (q SelectQuery) SQL() (string, error) {
	if custom := strings.TrimSpace(q.Custom); custom != "" {
		return custom, nil
	}
	if strings.TrimSpace(q.Table) == "" {
		return "", fmt.Errorf("select query needs a table: %w", pgload.ErrInvalidConfig)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	switch {
	case len(q.Aggregations) > 0:
		sb.WriteString(strings.Join(q.Aggregations, ", "))
	case len(q.Columns) > 0:
		sb.WriteString(strings.Join(q.Columns, ", "))
	default:
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.Table)

	for _, join := range q.Joins {
		sb.WriteString(" ")
		sb.WriteString(join)
	}

	if len(q.Filters) > 0 {
		conds := make([]string, len(q.Filters))
		for i, f := range q.Filters {
			conds[i] = strings.TrimSpace(f.Column + " " + f.Expr)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if len(q.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(q.GroupBy, ", "))
	}
	if q.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}
	return sb.String(), nil
}

// Querier is the subset of *pgxpool.Pool used to run reads.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QueryReader runs SelectQuery statements into datasets.
type QueryReader struct {
	db     Querier
	logger pgload.Logger
}

// NewQueryReader creates a reader. Panics if db or logger is nil.
func NewQueryReader(db Querier, logger pgload.Logger) *QueryReader {
	if db == nil {
		panic("querier cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &QueryReader{db: db, logger: logger}
}

// Read runs q and collects every row. Column names come from the result's
// field descriptions.
func (r *QueryReader) Read(ctx context.Context, q SelectQuery) (*pgload.Dataset, error) {
	sql, err := q.SQL()
	if err != nil {
		return nil, err
	}
	r.logger.Verbose("Query: %s", sql)

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	ds := &pgload.Dataset{Columns: make([]string, len(fields))}
	for i, fd := range fields {
		ds.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		ds.Rows = append(ds.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	r.logger.Verbose("Query returned %d rows", ds.Len())
	return ds, nil
}
