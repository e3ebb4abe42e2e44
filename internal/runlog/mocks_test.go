package runlog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// mockQuerier routes statements by their text and records every call.
type mockQuerier struct {
	mu sync.Mutex

	hasMessage bool
	probeErr   error
	runErr     error
	eventErr   error
	execErr    error

	nextRunID   int64
	nextEventID int64

	runs    []call
	events  []call
	execs   []call
	queries int
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, call{sql: sql, args: args})
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	switch {
	case strings.Contains(sql, "information_schema.columns"):
		if m.probeErr != nil {
			return &mockRow{err: m.probeErr}
		}
		if !m.hasMessage {
			return &mockRow{err: pgx.ErrNoRows}
		}
		return &mockRow{value: int64(1)}
	case strings.Contains(sql, "INSERT INTO processamento_log"):
		m.events = append(m.events, call{sql: sql, args: args})
		if m.eventErr != nil {
			return &mockRow{err: m.eventErr}
		}
		m.nextEventID++
		return &mockRow{value: m.nextEventID}
	case strings.Contains(sql, "INSERT INTO processamento"):
		m.runs = append(m.runs, call{sql: sql, args: args})
		if m.runErr != nil {
			return &mockRow{err: m.runErr}
		}
		m.nextRunID++
		return &mockRow{value: m.nextRunID}
	}
	return &mockRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func (m *mockQuerier) eventCodes() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]any, 0, len(m.events))
	for _, e := range m.events {
		codes = append(codes, deref(e.args[3]))
	}
	return codes
}

type mockRow struct {
	value int64
	err   error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *int:
		*d = int(r.value)
	case *int64:
		*d = r.value
	default:
		return fmt.Errorf("unsupported scan target %T", dest[0])
	}
	return nil
}

func deref(v any) any {
	if s, ok := v.(*string); ok {
		if s == nil {
			return nil
		}
		return *s
	}
	return v
}

// recordingLogger captures messages forwarded by the tracker.
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
