package transform

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/framework-cg/pgload/internal/loader"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// Built-in operation names.
const (
	OpCleanColumns  = "clean_columns"
	OpCleanText     = "clean_text"
	OpRowHash       = "row_hash"
	OpSelectColumns = "select_columns"
)

// DefaultHashColumn is the column row_hash writes when hash_column is not set.
const DefaultHashColumn = "row_hash"

func builtins() []Operation {
	return []Operation{
		{Name: OpCleanColumns, Build: buildCleanColumns},
		{Name: OpCleanText, Build: buildCleanText},
		{Name: OpRowHash, Build: buildRowHash},
		{Name: OpSelectColumns, Build: buildSelectColumns},
	}
}

// StripAccents removes combining marks after canonical decomposition,
// so "Ação" becomes "Acao".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanColumnName strips accents, trims, lowercases, turns spaces into
// underscores and drops dots: " Preço Unit. " becomes "preco_unit".
func CleanColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(StripAccents(name)))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, ".", "")
}

func buildCleanColumns(Params) (Func, error) {
	return func(ds *pgload.Dataset) (*pgload.Dataset, error) {
		out := ds.Clone()
		seen := make(map[string]string, len(out.Columns))
		for i, col := range out.Columns {
			cleaned := CleanColumnName(col)
			if prev, dup := seen[cleaned]; dup {
				return nil, fmt.Errorf("columns %q and %q both clean to %q: %w", prev, col, cleaned, pgload.ErrInvalidDataset)
			}
			seen[cleaned] = col
			out.Columns[i] = cleaned
		}
		return out, nil
	}, nil
}

func buildCleanText(p Params) (Func, error) {
	columns, err := p.requireStrings(OpCleanText, "columns")
	if err != nil {
		return nil, err
	}

	return func(ds *pgload.Dataset) (*pgload.Dataset, error) {
		indexes, err := columnIndexes(ds, columns)
		if err != nil {
			return nil, err
		}
		out := ds.Clone()
		for _, row := range out.Rows {
			for _, idx := range indexes {
				row[idx] = strings.ToLower(StripAccents(cellString(row[idx])))
			}
		}
		return out, nil
	}, nil
}

func buildRowHash(p Params) (Func, error) {
	keys, err := p.requireStrings(OpRowHash, "key_columns")
	if err != nil {
		return nil, err
	}
	hashColumn := p.String("hash_column", DefaultHashColumn)

	return func(ds *pgload.Dataset) (*pgload.Dataset, error) {
		indexes, err := columnIndexes(ds, keys)
		if err != nil {
			return nil, err
		}

		out := ds.Clone()
		target := out.ColumnIndex(hashColumn)
		if target < 0 {
			out.Columns = append(out.Columns, hashColumn)
		}

		parts := make([]string, len(indexes))
		for i, row := range out.Rows {
			for j, idx := range indexes {
				parts[j] = cellString(row[idx])
			}
			sum := md5.Sum([]byte(strings.Join(parts, ";")))
			hash := hex.EncodeToString(sum[:])
			if target < 0 {
				out.Rows[i] = append(row, hash)
			} else {
				row[target] = hash
			}
		}
		return out, nil
	}, nil
}

func buildSelectColumns(p Params) (Func, error) {
	columns, err := p.requireStrings(OpSelectColumns, "columns")
	if err != nil {
		return nil, err
	}

	return func(ds *pgload.Dataset) (*pgload.Dataset, error) {
		indexes, err := columnIndexes(ds, columns)
		if err != nil {
			return nil, err
		}
		out := &pgload.Dataset{
			Columns: append([]string(nil), columns...),
			Rows:    make([][]any, len(ds.Rows)),
		}
		for i, row := range ds.Rows {
			projected := make([]any, len(indexes))
			for j, idx := range indexes {
				projected[j] = row[idx]
			}
			out.Rows[i] = projected
		}
		return out, nil
	}, nil
}

func columnIndexes(ds *pgload.Dataset, names []string) ([]int, error) {
	indexes := make([]int, len(names))
	for i, name := range names {
		idx := ds.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("column %q: %w", name, pgload.ErrUnknownColumn)
		}
		indexes[i] = idx
	}
	return indexes, nil
}

// cellString renders a cell for hashing and text cleaning. Missing values
// (nil, NaN, NaT) render as the empty string.
func cellString(v any) string {
	switch c := loader.Coerce(v).(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(c, 10)
	case time.Time:
		return c.Format("2006-01-02 15:04:05.999999")
	default:
		return fmt.Sprint(c)
	}
}
