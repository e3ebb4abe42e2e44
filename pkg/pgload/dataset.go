package pgload

import (
	"errors"
	"fmt"
	"strings"
)

// Dataset is an ordered set of named columns and the rows that fill them.
//
// Column order is significant: it is the column order of generated statements.
// Every row holds exactly len(Columns) cells, positionally aligned with Columns.
// A dataset with zero rows is a valid, empty input.
type Dataset struct {
	Columns []string
	Rows    [][]any
}

// NewDataset builds a dataset from row-major data and validates its shape.
func NewDataset(columns []string, rows [][]any) (*Dataset, error) {
	ds := &Dataset{Columns: columns, Rows: rows}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// FromColumns builds a dataset from column-major data.
// All columns must have the same number of cells.
func FromColumns(names []string, columns [][]any) (*Dataset, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("%d column names for %d columns: %w", len(names), len(columns), ErrInvalidDataset)
	}

	rowCount := 0
	if len(columns) > 0 {
		rowCount = len(columns[0])
	}
	for i, col := range columns {
		if len(col) != rowCount {
			return nil, fmt.Errorf("column %q has %d cells, expected %d: %w", names[i], len(col), rowCount, ErrInvalidDataset)
		}
	}

	rows := make([][]any, rowCount)
	for r := 0; r < rowCount; r++ {
		row := make([]any, len(columns))
		for c := range columns {
			row[c] = columns[c][r]
		}
		rows[r] = row
	}

	return NewDataset(names, rows)
}

// Len returns the number of rows. A nil dataset has zero rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// IsEmpty reports whether the dataset has no rows.
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	if d == nil {
		return -1
	}
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the cells of the named column in row order.
func (d *Dataset) Column(name string) ([]any, error) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}
	cells := make([]any, len(d.Rows))
	for i, row := range d.Rows {
		cells[i] = row[idx]
	}
	return cells, nil
}

// Clone returns a copy whose column list and rows can be modified
// without affecting the receiver. Cell values are copied shallowly.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	clone := &Dataset{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([][]any, len(d.Rows)),
	}
	for i, row := range d.Rows {
		clone.Rows[i] = append([]any(nil), row...)
	}
	return clone
}

// Validate checks the dataset invariants and returns every violation found.
func (d *Dataset) Validate() error {
	if d == nil {
		return nil
	}

	var errs []error

	seen := make(map[string]struct{}, len(d.Columns))
	for i, c := range d.Columns {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, fmt.Errorf("column %d has an empty name: %w", i, ErrInvalidDataset))
			continue
		}
		if _, dup := seen[c]; dup {
			errs = append(errs, fmt.Errorf("duplicate column %q: %w", c, ErrInvalidDataset))
		}
		seen[c] = struct{}{}
	}

	if len(d.Rows) > 0 && len(d.Columns) == 0 {
		errs = append(errs, fmt.Errorf("dataset has %d rows but no columns: %w", len(d.Rows), ErrInvalidDataset))
	}

	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			errs = append(errs, fmt.Errorf("row %d has %d cells, expected %d: %w", i, len(row), len(d.Columns), ErrInvalidDataset))
			break
		}
	}

	return errors.Join(errs...)
}
