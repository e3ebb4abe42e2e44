package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/framework-cg/pgload/internal/extract"
	"github.com/framework-cg/pgload/pkg/pgload"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a SELECT and write the result as CSV to stdout",
	Long: `Query builds a SELECT from the given parts and writes the result as
;-separated CSV to stdout, header first. Logs go to stderr.

Every part is inserted into the statement as written. Only pass SQL you trust.

--where takes a column followed by a condition; conditions are joined with AND.

Examples:
  pgload query --table sales.orders --columns id,total --where "status = 'open'" --limit 10
  pgload query --table "sales.orders o" --join "JOIN sales.customers c ON c.id = o.customer_id" \
    --agg "c.region" --agg "sum(o.total) AS total" --group-by c.region --order-by "total DESC"
  pgload query --sql "SELECT now()"`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

type queryFlagValues struct {
	conn         connectionFlags
	table        string
	columns      []string
	where        []string
	joins        []string
	aggregations []string
	groupBy      []string
	orderBy      string
	limit        int
	offset       int
	sql          string
	sep          string
	timeout      time.Duration
}

var queryFlags queryFlagValues

func init() {
	rootCmd.AddCommand(queryCmd)
	addConnectionFlags(queryCmd, &queryFlags.conn)

	queryCmd.Flags().StringVar(&queryFlags.table, "table", "", "Table (or FROM expression) to read")
	queryCmd.Flags().StringSliceVar(&queryFlags.columns, "columns", nil, "Columns to select (default: *)")
	queryCmd.Flags().StringArrayVar(&queryFlags.where, "where", nil,
		"Condition as <column><condition>, e.g. \"status = 'open'\" (repeatable, joined with AND)")
	queryCmd.Flags().StringArrayVar(&queryFlags.joins, "join", nil, "JOIN clause (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryFlags.aggregations, "agg", nil,
		"Select expression replacing --columns, e.g. \"count(*) AS n\" (repeatable)")
	queryCmd.Flags().StringSliceVar(&queryFlags.groupBy, "group-by", nil, "GROUP BY columns")
	queryCmd.Flags().StringVar(&queryFlags.orderBy, "order-by", "", "ORDER BY expression")
	queryCmd.Flags().IntVar(&queryFlags.limit, "limit", 0, "LIMIT (0 = none)")
	queryCmd.Flags().IntVar(&queryFlags.offset, "offset", 0, "OFFSET (0 = none)")
	queryCmd.Flags().StringVar(&queryFlags.sql, "sql", "", "Custom statement; overrides every other query flag")
	queryCmd.Flags().StringVar(&queryFlags.sep, "sep", string(pgload.DefaultCSVSeparator), "CSV field separator")
	queryCmd.Flags().DurationVar(&queryFlags.timeout, "timeout", pgload.DefaultTimeout, "Maximum run time")
}

func runQuery(cmd *cobra.Command, args []string) error {
	q, err := buildSelectQuery(queryFlags)
	if err != nil {
		return err
	}
	sep, err := parseSeparator(queryFlags.sep)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.ErrOrStderr(), queryFlags.conn)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd.Context(), s.timeout(cmd.Flags().Changed("timeout"), queryFlags.timeout, pgload.DefaultTimeout))
	defer cancel()

	pool, err := s.pool(ctx)
	if err != nil {
		return err
	}
	ds, err := extract.NewQueryReader(pool, s.logger).Read(ctx, q)
	if err != nil {
		return fmt.Errorf("%w: %w", err, pgload.ErrExecutionFailed)
	}
	return extract.WriteCSV(cmd.OutOrStdout(), ds, sep)
}

func buildSelectQuery(f queryFlagValues) (extract.SelectQuery, error) {
	q := extract.SelectQuery{
		Table:        f.table,
		Columns:      f.columns,
		Joins:        f.joins,
		Aggregations: f.aggregations,
		GroupBy:      f.groupBy,
		OrderBy:      f.orderBy,
		Limit:        f.limit,
		Offset:       f.offset,
		Custom:       f.sql,
	}
	if f.limit < 0 || f.offset < 0 {
		return q, fmt.Errorf("--limit and --offset must not be negative: %w", pgload.ErrInvalidConfig)
	}
	for _, w := range f.where {
		filter, err := parseFilter(w)
		if err != nil {
			return q, err
		}
		q.Filters = append(q.Filters, filter)
	}
	if _, err := q.SQL(); err != nil {
		return q, fmt.Errorf("--table or --sql is required: %w", err)
	}
	return q, nil
}

// parseFilter splits "status='open'" or "name ILIKE 'a%'" into the column and
// the rest of the condition, at the first space or comparison character.
func parseFilter(s string) (extract.Filter, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t=<>!")
	if i <= 0 {
		return extract.Filter{}, fmt.Errorf("--where %q must be a column followed by a condition: %w", s, pgload.ErrInvalidConfig)
	}
	expr := strings.TrimSpace(s[i:])
	if expr == "" {
		return extract.Filter{}, fmt.Errorf("--where %q has no condition: %w", s, pgload.ErrInvalidConfig)
	}
	return extract.Filter{Column: s[:i], Expr: expr}, nil
}
