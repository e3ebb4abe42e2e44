package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// valuesMarker stands for the multi-row VALUES list in Statement.String.
const valuesMarker = "%s"

// Statement is a multi-row INSERT template for a fixed column list.
type Statement struct {
	prefix string
	suffix string
	width  int
}

// String returns the template text with %s in place of the VALUES list.
func (s Statement) String() string {
	return s.prefix + valuesMarker + s.suffix
}

// Width is the number of bind parameters per row.
func (s Statement) Width() int {
	return s.width
}

// Render expands the template for n rows, numbering placeholders from $1.
func (s Statement) Render(n int) string {
	var b strings.Builder
	b.Grow(len(s.prefix) + len(s.suffix) + n*s.width*6)
	b.WriteString(s.prefix)

	param := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < s.width; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(param))
			param++
		}
		b.WriteByte(')')
	}

	b.WriteString(s.suffix)
	return b.String()
}

// PageRows returns how many rows fit in one rendered statement: the hint,
// capped so rows*width stays within MaxBindParameters, and never below one.
// A non-positive hint selects DefaultPageSize.
func (s Statement) PageRows(hint int) int {
	if hint <= 0 {
		hint = pgload.DefaultPageSize
	}
	if s.width == 0 {
		return hint
	}
	limit := pgload.MaxBindParameters / s.width
	if limit < 1 {
		limit = 1
	}
	if hint > limit {
		return limit
	}
	return hint
}

// BuildInsert returns INSERT INTO <table> (<columns>) VALUES %s.
func BuildInsert(table string, columns []string) (Statement, error) {
	if len(columns) == 0 {
		return Statement{}, fmt.Errorf("insert into %s needs at least one column: %w", table, pgload.ErrInvalidDataset)
	}
	if len(columns) > pgload.MaxBindParameters {
		return Statement{}, fmt.Errorf("insert into %s has %d columns, more than the %d bind parameters a statement allows: %w",
			table, len(columns), pgload.MaxBindParameters, pgload.ErrInvalidDataset)
	}

	qualified, err := Qualify(table)
	if err != nil {
		return Statement{}, err
	}

	quoted, err := quoteAll(columns)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		prefix: fmt.Sprintf("INSERT INTO %s (%s) VALUES ", qualified, strings.Join(quoted, ", ")),
		width:  len(columns),
	}, nil
}

// BuildUpsert extends BuildInsert with an ON CONFLICT clause.
//
// With policy "nothing", or when update is empty, rows that collide on the
// conflict columns are left untouched. Otherwise every update column is
// overwritten from EXCLUDED, guarded by a WHERE clause that skips rows whose
// update columns are all unchanged, so re-running the same data affects no rows.
func BuildUpsert(table string, columns, conflict, update []string, policy pgload.ConflictPolicy) (Statement, error) {
	if err := policy.Validate(); err != nil {
		return Statement{}, err
	}
	if len(conflict) == 0 {
		return Statement{}, fmt.Errorf("upsert into %s: %w", table, pgload.ErrEmptyConflictTarget)
	}

	stmt, err := BuildInsert(table, columns)
	if err != nil {
		return Statement{}, err
	}

	quotedConflict, err := quoteAll(conflict)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(quotedConflict, ", "))
	b.WriteString(")")

	if policy == pgload.ConflictNothing || len(update) == 0 {
		b.WriteString(" DO NOTHING")
		stmt.suffix = b.String()
		return stmt, nil
	}

	base, err := BaseName(table)
	if err != nil {
		return Statement{}, err
	}

	quotedUpdate, err := quoteAll(update)
	if err != nil {
		return Statement{}, err
	}

	sets := make([]string, len(quotedUpdate))
	changed := make([]string, len(quotedUpdate))
	for i, c := range quotedUpdate {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
		changed[i] = fmt.Sprintf("EXCLUDED.%s IS DISTINCT FROM %s.%s", c, base, c)
	}

	b.WriteString(" DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(changed, " OR "))

	stmt.suffix = b.String()
	return stmt, nil
}

// UpdateColumns returns columns minus conflict and exclude, in column order.
func UpdateColumns(columns, conflict, exclude []string) []string {
	skip := make(map[string]struct{}, len(conflict)+len(exclude))
	for _, c := range conflict {
		skip[c] = struct{}{}
	}
	for _, c := range exclude {
		skip[c] = struct{}{}
	}

	update := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := skip[c]; !ok {
			update = append(update, c)
		}
	}
	return update
}

// checkConflictTarget verifies conflict is non-empty and names only dataset columns.
func checkConflictTarget(columns, conflict []string) error {
	if len(conflict) == 0 {
		return pgload.ErrEmptyConflictTarget
	}
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	for _, c := range conflict {
		if _, ok := known[c]; !ok {
			return fmt.Errorf("conflict column %q is not in the dataset: %w", c, pgload.ErrUnknownColumn)
		}
	}
	return nil
}
