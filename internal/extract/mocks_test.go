package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// recordingLogger keeps every line by level.
type recordingLogger struct {
	mu      sync.Mutex
	verbose []string
	info    []string
	warn    []string
	errors  []string
}

func (l *recordingLogger) Verbose(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = append(l.verbose, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warn = append(l.warn, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

// mockQuerier returns canned rows and remembers the SQL it was given.
type mockQuerier struct {
	rows    *mockRows
	err     error
	queries []string
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.queries = append(m.queries, sql)
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

// mockRows is a minimal pgx.Rows over in-memory values.
type mockRows struct {
	columns   []string
	values    [][]any
	valuesErr error
	err       error
	pos       int
	closed    bool
}

func (r *mockRows) Close()                        { r.closed = true }
func (r *mockRows) Err() error                    { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *mockRows) RawValues() [][]byte           { return nil }
func (r *mockRows) Conn() *pgx.Conn               { return nil }

func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		fields[i] = pgconn.FieldDescription{Name: name}
	}
	return fields
}

func (r *mockRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *mockRows) Values() ([]any, error) {
	if r.valuesErr != nil {
		return nil, r.valuesErr
	}
	return r.values[r.pos-1], nil
}

func (r *mockRows) Scan(dest ...any) error {
	return errors.New("scan not supported by mockRows")
}
