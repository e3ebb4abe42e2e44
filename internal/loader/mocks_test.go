package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// mockProvider is a hand-written pgload.ConnectionProvider.
type mockProvider struct {
	conn      *mockConn
	err       error
	returnNil bool
	acquires  int
	databases []string
}

func (m *mockProvider) Acquire(ctx context.Context, database string) (pgload.Conn, error) {
	m.acquires++
	m.databases = append(m.databases, database)
	if m.err != nil {
		return nil, m.err
	}
	if m.returnNil || m.conn == nil {
		return nil, nil
	}
	return m.conn, nil
}

type mockConn struct {
	tx       *mockTx
	beginErr error
	begins   int
	released int
}

func (m *mockConn) Begin(ctx context.Context) (pgload.Tx, error) {
	m.begins++
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

func (m *mockConn) Release() {
	m.released++
}

// mockTx records every batch it receives. Each queued statement reports
// rowsAffected rows equal to its argument count divided by width.
type mockTx struct {
	width int

	// failOnBatch makes the n-th SendBatch (1-based) fail on its first statement.
	failOnBatch int
	failErr     error
	commitErr   error

	// unchanged makes every statement report zero affected rows.
	unchanged bool

	batches   []*pgx.Batch
	commits   int
	rollbacks int
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	m.batches = append(m.batches, b)

	res := &mockBatchResults{}
	for _, q := range b.QueuedQueries {
		rows := 0
		if m.width > 0 {
			rows = len(q.Arguments) / m.width
		}
		if m.unchanged {
			rows = 0
		}
		res.tags = append(res.tags, pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", rows)))
	}
	if m.failOnBatch == len(m.batches) {
		res.err = m.failErr
	}
	return res
}

func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.rollbacks++
	return nil
}

// rowsPerBatch returns the number of rows submitted in each SendBatch call.
func (m *mockTx) rowsPerBatch() []int {
	counts := make([]int, len(m.batches))
	for i, b := range m.batches {
		for _, q := range b.QueuedQueries {
			counts[i] += len(q.Arguments) / m.width
		}
	}
	return counts
}

type mockBatchResults struct {
	tags   []pgconn.CommandTag
	err    error
	next   int
	closed bool
}

func (r *mockBatchResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	if r.next >= len(r.tags) {
		return pgconn.CommandTag{}, errors.New("no more results in batch")
	}
	tag := r.tags[r.next]
	r.next++
	return tag, nil
}

func (r *mockBatchResults) Query() (pgx.Rows, error) {
	return nil, errors.New("query not supported by mock")
}

func (r *mockBatchResults) QueryRow() pgx.Row {
	return nil
}

func (r *mockBatchResults) Close() error {
	r.closed = true
	return r.err
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

type metricCall struct {
	table  string
	rows   int
	status string
}

// recordingMetrics keeps every reported batch and write.
type recordingMetrics struct {
	batches []metricCall
	writes  []metricCall
}

func (m *recordingMetrics) RecordBatchExecution(table string, batchSize int, _ time.Duration, status string) {
	m.batches = append(m.batches, metricCall{table: table, rows: batchSize, status: status})
}

func (m *recordingMetrics) RecordWrite(_ string, table string, rows int, status string) {
	m.writes = append(m.writes, metricCall{table: table, rows: rows, status: status})
}
