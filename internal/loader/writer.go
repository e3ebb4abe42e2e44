package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/framework-cg/pgload/internal/retry"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// Writer is the batch write engine. It implements Insert and Upsert over a
// pgload.ConnectionProvider.
type Writer struct {
	provider   pgload.ConnectionProvider
	logger     pgload.Logger
	metrics    pgload.MetricsReporter
	classifier pgload.ErrorClassifier

	database        string
	insertChunkSize int
	upsertChunkSize int
	pageSize        int
}

// Option configures a Writer.
type Option func(*Writer)

// WithDatabase selects the database passed to ConnectionProvider.Acquire.
// Empty means the provider's default.
func WithDatabase(name string) Option {
	return func(w *Writer) {
		w.database = name
	}
}

// WithMetrics sets the metrics reporter. Default is pgload.NoopMetrics.
func WithMetrics(m pgload.MetricsReporter) Option {
	return func(w *Writer) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithChunkSizes overrides the default insert and upsert chunk sizes.
// Non-positive values keep the current default.
func WithChunkSizes(insert, upsert int) Option {
	return func(w *Writer) {
		if insert > 0 {
			w.insertChunkSize = insert
		}
		if upsert > 0 {
			w.upsertChunkSize = upsert
		}
	}
}

// WithPageSize sets the preferred number of rows per VALUES statement.
func WithPageSize(rows int) Option {
	return func(w *Writer) {
		if rows > 0 {
			w.pageSize = rows
		}
	}
}

// WithClassifier sets the classifier used to fill WriteError.Transient.
func WithClassifier(c pgload.ErrorClassifier) Option {
	return func(w *Writer) {
		if c != nil {
			w.classifier = c
		}
	}
}

// New creates a Writer.
// Panics if provider or logger is nil.
func New(provider pgload.ConnectionProvider, logger pgload.Logger, opts ...Option) *Writer {
	if provider == nil {
		panic("provider cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	w := &Writer{
		provider:        provider,
		logger:          logger,
		metrics:         pgload.NoopMetrics{},
		classifier:      retry.NewPostgreSQLErrorClassifier(),
		insertChunkSize: pgload.DefaultInsertChunkSize,
		upsertChunkSize: pgload.DefaultUpsertChunkSize,
		pageSize:        pgload.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Insert appends every row of ds to table.
//
// The returned error is non-nil only for configuration problems, which are
// detected before any connection is acquired. Runtime failures are reported
// in WriteOutcome.Err.
func (w *Writer) Insert(ctx context.Context, table string, ds *pgload.Dataset, opts pgload.InsertOptions) (pgload.WriteOutcome, error) {
	outcome := pgload.WriteOutcome{
		Table:         table,
		Operation:     pgload.OperationInsert,
		RowsAttempted: ds.Len(),
	}

	if err := w.validate(table, ds, opts.ChunkSize); err != nil {
		return outcome, err
	}
	if ds.IsEmpty() {
		w.logger.Warn("empty dataset for %s", table)
		return outcome, nil
	}

	stmt, err := BuildInsert(table, ds.Columns)
	if err != nil {
		return outcome, err
	}

	return w.execute(ctx, stmt, ds, chunkSizeOr(opts.ChunkSize, w.insertChunkSize), outcome), nil
}

// Upsert inserts every row of ds into table, resolving collisions on
// opts.ConflictColumns according to opts.Policy.
//
// Error semantics are those of Insert.
func (w *Writer) Upsert(ctx context.Context, table string, ds *pgload.Dataset, opts pgload.UpsertOptions) (pgload.WriteOutcome, error) {
	outcome := pgload.WriteOutcome{
		Table:         table,
		Operation:     pgload.OperationUpsert,
		RowsAttempted: ds.Len(),
	}

	policy := opts.EffectivePolicy()
	if err := policy.Validate(); err != nil {
		return outcome, err
	}
	if len(opts.ConflictColumns) == 0 {
		return outcome, fmt.Errorf("upsert into %s: %w", table, pgload.ErrEmptyConflictTarget)
	}
	if ds != nil && len(ds.Columns) > 0 {
		if err := checkConflictTarget(ds.Columns, opts.ConflictColumns); err != nil {
			return outcome, fmt.Errorf("upsert into %s: %w", table, err)
		}
	}
	if err := w.validate(table, ds, opts.ChunkSize); err != nil {
		return outcome, err
	}
	if ds.IsEmpty() {
		w.logger.Warn("empty dataset for %s", table)
		return outcome, nil
	}

	update := UpdateColumns(ds.Columns, opts.ConflictColumns, opts.ExcludeFromUpdate)
	stmt, err := BuildUpsert(table, ds.Columns, opts.ConflictColumns, update, policy)
	if err != nil {
		return outcome, err
	}

	return w.execute(ctx, stmt, ds, chunkSizeOr(opts.ChunkSize, w.upsertChunkSize), outcome), nil
}

func (w *Writer) validate(table string, ds *pgload.Dataset, chunkSize int) error {
	if _, err := Qualify(table); err != nil {
		return err
	}
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("dataset for %s: %w", table, err)
	}
	if chunkSize < 0 {
		return fmt.Errorf("chunk size %d must not be negative: %w", chunkSize, pgload.ErrInvalidConfig)
	}
	return nil
}

func chunkSizeOr(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

// execute runs the write for a non-empty dataset. It owns the connection
// for the whole call and always releases it.
func (w *Writer) execute(ctx context.Context, stmt Statement, ds *pgload.Dataset, chunkSize int, outcome pgload.WriteOutcome) pgload.WriteOutcome {
	start := time.Now()
	rows := CoerceRows(ds.Rows)

	conn, err := w.provider.Acquire(ctx, w.database)
	if err != nil || conn == nil {
		if conn != nil {
			conn.Release()
		}
		return w.fail(outcome, w.connectionError(outcome.Table, err), start)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return w.fail(outcome, w.executionError(outcome.Table, err), start)
	}

	pageRows := stmt.PageRows(w.pageSize)
	fullPage := stmt.Render(pageRows)

	for off := 0; off < len(rows); off += chunkSize {
		end := min(off+chunkSize, len(rows))

		chunkStart := time.Now()
		affected, err := sendChunk(ctx, tx, stmt, rows[off:end], pageRows, fullPage)
		outcome.Chunks++

		if err != nil {
			w.metrics.RecordBatchExecution(outcome.Table, end-off, time.Since(chunkStart), pgload.StatusFailure)
			w.rollback(ctx, tx, outcome.Table)
			return w.fail(outcome, w.executionError(outcome.Table, err), start)
		}

		w.metrics.RecordBatchExecution(outcome.Table, end-off, time.Since(chunkStart), pgload.StatusSuccess)
		outcome.RowsAffected += affected
		w.logger.Verbose("%s chunk %d: %d rows into %s", outcome.Operation, outcome.Chunks, end-off, outcome.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		w.rollback(ctx, tx, outcome.Table)
		return w.fail(outcome, w.executionError(outcome.Table, err), start)
	}

	outcome.RowsSubmitted = len(rows)
	outcome.Duration = time.Since(start)
	w.metrics.RecordWrite(outcome.Operation, outcome.Table, outcome.RowsSubmitted, pgload.StatusSuccess)
	w.logger.Info("%d rows processed in %s", outcome.RowsSubmitted, outcome.Table)
	return outcome
}

// sendChunk queues rows as multi-row statements of at most pageRows rows and
// submits them in one round trip. It returns the summed command tags.
func sendChunk(ctx context.Context, tx pgload.Tx, stmt Statement, rows [][]any, pageRows int, fullPage string) (int64, error) {
	batch := &pgx.Batch{}
	for off := 0; off < len(rows); off += pageRows {
		page := rows[off:min(off+pageRows, len(rows))]

		args := make([]any, 0, len(page)*stmt.width)
		for _, row := range page {
			args = append(args, row...)
		}

		sql := fullPage
		if len(page) != pageRows {
			sql = stmt.Render(len(page))
		}
		batch.Queue(sql, args...)
	}

	results := tx.SendBatch(ctx, batch)

	var affected int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return affected, err
		}
		affected += tag.RowsAffected()
	}

	if err := results.Close(); err != nil {
		return affected, err
	}
	return affected, nil
}

// rollback runs even when ctx is already cancelled so the server-side
// transaction is not left open on a pooled connection.
func (w *Writer) rollback(ctx context.Context, tx pgload.Tx, table string) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		w.logger.Verbose("rollback on %s: %v", table, err)
	}
}

func (w *Writer) fail(outcome pgload.WriteOutcome, werr *pgload.WriteError, start time.Time) pgload.WriteOutcome {
	outcome.Err = werr
	outcome.RowsSubmitted = 0
	outcome.Duration = time.Since(start)

	if werr.Code != "" {
		w.logger.Error("%s into %s failed: %s (code=%s) %s", outcome.Operation, outcome.Table, werr.Kind, werr.Code, werr.Message)
	} else {
		w.logger.Error("%s into %s failed: %s %s", outcome.Operation, outcome.Table, werr.Kind, werr.Message)
	}

	w.metrics.RecordWrite(outcome.Operation, outcome.Table, outcome.RowsAttempted, pgload.StatusFailure)
	return outcome
}

func (w *Writer) connectionError(table string, err error) *pgload.WriteError {
	werr := &pgload.WriteError{
		Kind:    pgload.KindConnectionUnavailable,
		Table:   table,
		Message: "no usable connection",
		Cause:   err,
	}
	if err != nil {
		werr.Message = err.Error()
		werr.Transient = w.classifier.IsTransient(err)
	}
	return werr
}

func (w *Writer) executionError(table string, err error) *pgload.WriteError {
	werr := &pgload.WriteError{
		Kind:      pgload.KindExecution,
		Table:     table,
		Message:   err.Error(),
		Transient: w.classifier.IsTransient(err),
		Cause:     err,
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		werr.Code = pgErr.Code
		werr.Message = pgErr.Message
	}
	return werr
}
