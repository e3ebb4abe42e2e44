package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/framework-cg/pgload/internal/files/filesystem"
	"github.com/framework-cg/pgload/internal/loader"
	"github.com/framework-cg/pgload/pkg/pgload"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses a header line and data rows separated by sep.
//
// Each column gets one type: int64 when every non-empty cell is an integer,
// float64 when every one is a number, string otherwise. Empty cells become nil.
func ReadCSV(r io.Reader, sep rune) (*pgload.Dataset, error) {
	if sep == 0 {
		sep = pgload.DefaultCSVSeparator
	}

	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header: %w", pgload.ErrInvalidDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), utf8BOM))
	}

	var records [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %v: %w", err, pgload.ErrInvalidDataset)
		}
		records = append(records, record)
	}

	ds := &pgload.Dataset{
		Columns: header,
		Rows:    make([][]any, len(records)),
	}
	for i := range ds.Rows {
		ds.Rows[i] = make([]any, len(header))
	}
	for col := range header {
		convert := inferColumn(records, col)
		for i, record := range records {
			ds.Rows[i][col] = convert(record[col])
		}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// inferColumn picks the narrowest converter every non-empty cell accepts.
func inferColumn(records [][]string, col int) func(string) any {
	isInt, isFloat, seen := true, true, false
	for _, record := range records {
		cell := strings.TrimSpace(record[col])
		if cell == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if !isInt && !isFloat {
			break
		}
	}

	switch {
	case seen && isInt:
		return func(s string) any {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil
			}
			n, _ := strconv.ParseInt(s, 10, 64)
			return n
		}
	case seen && isFloat:
		return func(s string) any {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil
			}
			f, _ := strconv.ParseFloat(s, 64)
			return f
		}
	default:
		return func(s string) any {
			if s == "" {
				return nil
			}
			return s
		}
	}
}

// CSVOption configures a CSVReader.
type CSVOption func(*CSVReader)

// WithSeparator overrides the field separator.
func WithSeparator(sep rune) CSVOption {
	return func(r *CSVReader) {
		if sep != 0 {
			r.sep = sep
		}
	}
}

// CSVReader reads CSV files through a FileSystemProvider.
type CSVReader struct {
	fs     filesystem.FileSystemProvider
	logger pgload.Logger
	sep    rune
}

// NewCSVReader creates a reader. Panics if fs or logger is nil.
func NewCSVReader(fs filesystem.FileSystemProvider, logger pgload.Logger, opts ...CSVOption) *CSVReader {
	if fs == nil {
		panic("filesystem cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	r := &CSVReader{fs: fs, logger: logger, sep: pgload.DefaultCSVSeparator}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadFile reads one CSV file.
func (r *CSVReader) ReadFile(path string) (*pgload.Dataset, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, r.sep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.logger.Verbose("Read %d rows x %d columns from %s", ds.Len(), len(ds.Columns), path)
	return ds, nil
}

// ReadFiles reads every file in files (name to path). A file that fails is
// logged and yields an empty dataset under its name.
func (r *CSVReader) ReadFiles(files map[string]string) map[string]*pgload.Dataset {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make(map[string]*pgload.Dataset, len(files))
	for _, name := range names {
		ds, err := r.ReadFile(files[name])
		if err != nil {
			r.logger.Error("Failed to process %s: %v", files[name], err)
			ds = &pgload.Dataset{}
		}
		result[name] = ds
	}
	return result
}

// WriteCSV writes ds with a header line. Missing values are written as
// empty cells and times as RFC 3339.
func WriteCSV(w io.Writer, ds *pgload.Dataset, sep rune) error {
	if sep == 0 {
		sep = pgload.DefaultCSVSeparator
	}
	cw := csv.NewWriter(w)
	cw.Comma = sep

	if ds == nil {
		ds = &pgload.Dataset{}
	}
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch c := loader.Coerce(v).(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case uint64:
		return strconv.FormatUint(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(c)
	}
}
