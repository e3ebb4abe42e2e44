package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/framework-cg/pgload/internal/extract"
	"github.com/framework-cg/pgload/internal/runlog"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// mockWriter records what it was asked to write and returns a canned outcome.
type mockWriter struct {
	outcome pgload.WriteOutcome
	err     error

	calls    []string
	datasets []*pgload.Dataset
	upserts  []pgload.UpsertOptions
}

func (m *mockWriter) write(op, table string, ds *pgload.Dataset) (pgload.WriteOutcome, error) {
	m.calls = append(m.calls, op+" "+table)
	m.datasets = append(m.datasets, ds)
	if m.err != nil {
		return pgload.WriteOutcome{}, m.err
	}
	out := m.outcome
	out.Table = table
	out.Operation = op
	out.RowsAttempted = ds.Len()
	if out.Err == nil {
		out.RowsSubmitted = ds.Len()
	}
	return out, nil
}

func (m *mockWriter) Insert(ctx context.Context, table string, ds *pgload.Dataset, opts pgload.InsertOptions) (pgload.WriteOutcome, error) {
	return m.write(pgload.OperationInsert, table, ds)
}

func (m *mockWriter) Upsert(ctx context.Context, table string, ds *pgload.Dataset, opts pgload.UpsertOptions) (pgload.WriteOutcome, error) {
	m.upserts = append(m.upserts, opts)
	return m.write(pgload.OperationUpsert, table, ds)
}

type mockFiles struct {
	ds    *pgload.Dataset
	err   error
	paths []string
}

func (m *mockFiles) ReadFile(path string) (*pgload.Dataset, error) {
	m.paths = append(m.paths, path)
	return m.ds, m.err
}

type mockQueries struct {
	ds      *pgload.Dataset
	err     error
	queries []extract.SelectQuery
}

func (m *mockQueries) Read(ctx context.Context, q extract.SelectQuery) (*pgload.Dataset, error) {
	m.queries = append(m.queries, q)
	return m.ds, m.err
}

// mockTracker runs fn directly and keeps the recorded events.
type mockTracker struct {
	runID     int64
	processes []string
	events    []runlog.Event
	runErr    error
	active    int64
}

func (m *mockTracker) Run(ctx context.Context, process string, fn func(ctx context.Context) error) error {
	m.processes = append(m.processes, process)
	m.active = m.runID
	defer func() { m.active = 0 }()
	m.runErr = fn(ctx)
	return m.runErr
}

func (m *mockTracker) RecordEvent(ctx context.Context, e runlog.Event) int64 {
	m.events = append(m.events, e)
	return int64(len(m.events))
}

func (m *mockTracker) ActiveRun() int64 {
	return m.active
}

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
