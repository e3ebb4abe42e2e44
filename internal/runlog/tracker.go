package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/framework-cg/pgload/pkg/pgload"
)

const (
	// BufferLines bounds the in-memory log buffer.
	BufferLines = 5000

	// DefaultMaxMessageChars bounds the summary stored in processamento.mensagem.
	DefaultMaxMessageChars = 4000

	// persistTimeout bounds event inserts issued from Logger methods, which carry no context.
	persistTimeout = 10 * time.Second

	truncatedMarker = "... (truncated) ...\n"
	startedMessage  = "(execution started)"
)

// Querier is the subset of *pgxpool.Pool the tracker uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Event is one processamento_log row.
type Event struct {
	RunID      int64
	Level      Level
	Stage      string // etapa
	Code       string // codigo
	Message    string
	Detail     any // marshalled to jsonb
	Stacktrace string
}

// Run is one finished processamento row recorded in a single step.
type Run struct {
	Process string
	Start   time.Time
	End     time.Time
	User    string
	Status  Status
	Message string
}

// EventOption decorates an event created by Log.
type EventOption func(*Event)

// WithStage sets the pipeline stage (etapa) of the event.
func WithStage(stage string) EventOption {
	return func(e *Event) { e.Stage = stage }
}

// WithCode sets the machine-readable code (codigo) of the event.
func WithCode(code string) EventOption {
	return func(e *Event) { e.Code = code }
}

// WithDetail attaches structured detail, stored as jsonb.
func WithDetail(detail any) EventOption {
	return func(e *Event) { e.Detail = detail }
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithUser sets the user recorded with each run. Defaults to $USER.
func WithUser(user string) Option {
	return func(t *Tracker) {
		if user != "" {
			t.user = user
		}
	}
}

// WithPersistLevels replaces the levels persisted during a run.
func WithPersistLevels(levels ...Level) Option {
	return func(t *Tracker) {
		if len(levels) == 0 {
			return
		}
		t.persist = make(map[Level]bool, len(levels))
		for _, l := range levels {
			t.persist[ParseLevel(string(l))] = true
		}
	}
}

// WithMaxMessageChars bounds Summary. Values <= 0 keep the default.
func WithMaxMessageChars(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxChars = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker persists run records and doubles as a buffering pgload.Logger.
//
// Thread-Safety: safe for concurrent use. Only one run is active at a time.
type Tracker struct {
	db       Querier
	inner    pgload.Logger
	user     string
	persist  map[Level]bool
	maxChars int
	now      func() time.Time

	hasMessage bool

	mu     sync.Mutex
	buffer []string
	head   int
	runID  int64
}

// NewTracker creates a tracker and probes once for processamento.mensagem.
// Panics if db or logger is nil.
func NewTracker(ctx context.Context, db Querier, logger pgload.Logger, opts ...Option) *Tracker {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	t := &Tracker{
		db:       db,
		inner:    logger,
		user:     currentUser(),
		maxChars: DefaultMaxMessageChars,
		now:      time.Now,
		buffer:   make([]string, 0, 64),
	}
	WithPersistLevels(DefaultPersistLevels...)(t)
	for _, opt := range opts {
		opt(t)
	}

	t.hasMessage = t.probeMessageColumn(ctx)
	if !t.hasMessage {
		logger.Verbose("processamento has no mensagem column, run summaries are not stored")
	}
	return t
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}

const probeMessageColumnSQL = `
SELECT 1
  FROM information_schema.columns
 WHERE table_name = 'processamento'
   AND column_name = 'mensagem'
   AND table_schema = current_schema()
 LIMIT 1`

func (t *Tracker) probeMessageColumn(ctx context.Context) bool {
	var one int
	err := t.db.QueryRow(ctx, probeMessageColumnSQL).Scan(&one)
	switch {
	case err == nil:
		return true
	case errors.Is(err, pgx.ErrNoRows):
		return false
	default:
		t.inner.Warn("Failed to inspect tracking schema (assuming no mensagem column): %v", err)
		return false
	}
}

// HasMessageColumn reports whether processamento.mensagem exists.
func (t *Tracker) HasMessageColumn() bool {
	return t.hasMessage
}

// ActiveRun returns the id of the run started by Start, or 0.
func (t *Tracker) ActiveRun() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

func (t *Tracker) Verbose(format string, args ...interface{}) {
	t.Log(LevelDebug, render(format, args))
}

func (t *Tracker) Info(format string, args ...interface{}) {
	t.Log(LevelInfo, render(format, args))
}

func (t *Tracker) Warn(format string, args ...interface{}) {
	t.Log(LevelWarn, render(format, args))
}

func (t *Tracker) Error(format string, args ...interface{}) {
	t.Log(LevelError, render(format, args))
}

func render(format string, args []interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Log buffers message, forwards it to the wrapped logger and, during a run,
// persists it when level is in the persist set.
func (t *Tracker) Log(level Level, message string, opts ...EventOption) {
	level = ParseLevel(string(level))
	line := fmt.Sprintf("%s - %s - %s", t.now().Format("2006-01-02 15:04:05"), level, message)

	t.mu.Lock()
	t.appendLine(line)
	runID := t.runID
	t.mu.Unlock()

	switch level {
	case LevelDebug:
		t.inner.Verbose("%s", message)
	case LevelWarn:
		t.inner.Warn("%s", message)
	case LevelError, LevelFatal:
		t.inner.Error("%s", message)
	default:
		t.inner.Info("%s", message)
	}

	if runID == 0 || !t.persist[level] {
		return
	}

	event := Event{RunID: runID, Level: level, Message: message}
	for _, opt := range opts {
		opt(&event)
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	t.RecordEvent(ctx, event)
}

// appendLine adds to the ring buffer. Caller holds mu.
func (t *Tracker) appendLine(line string) {
	if len(t.buffer) < BufferLines {
		t.buffer = append(t.buffer, line)
		return
	}
	t.buffer[t.head] = line
	t.head = (t.head + 1) % BufferLines
}

// Lines returns the buffered lines, oldest first.
func (t *Tracker) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := make([]string, 0, len(t.buffer))
	lines = append(lines, t.buffer[t.head:]...)
	return append(lines, t.buffer[:t.head]...)
}

// Summary joins the buffer. When it exceeds the character limit only the
// tail is kept, prefixed with a truncation marker.
func (t *Tracker) Summary() string {
	full := strings.Join(t.Lines(), "\n")
	if utf8.RuneCountInString(full) <= t.maxChars {
		return full
	}

	keep := t.maxChars - utf8.RuneCountInString(truncatedMarker)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(full)
	return truncatedMarker + string(runes[len(runes)-keep:])
}

// Start inserts a RUNNING row for process and makes it the active run.
func (t *Tracker) Start(ctx context.Context, process string) (int64, error) {
	start := t.now().UTC()

	var (
		id  int64
		err error
	)
	if t.hasMessage {
		err = t.db.QueryRow(ctx, `
			INSERT INTO processamento (nome_processo, inicio, fim, usuario, status, mensagem)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			process, start, start, t.user, string(StatusRunning), startedMessage,
		).Scan(&id)
	} else {
		err = t.db.QueryRow(ctx, `
			INSERT INTO processamento (nome_processo, inicio, fim, usuario, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			process, start, start, t.user, string(StatusRunning),
		).Scan(&id)
	}
	if err != nil {
		t.inner.Error("Failed to record start of %s: %v", process, err)
		return 0, fmt.Errorf("failed to record start of %s: %w", process, err)
	}

	t.mu.Lock()
	t.runID = id
	t.mu.Unlock()
	return id, nil
}

// Finish updates run id with its final times, status and message.
// The message is dropped when processamento has no mensagem column.
// Finishing the active run deactivates it.
func (t *Tracker) Finish(ctx context.Context, id int64, start, end time.Time, status Status, message string) {
	var err error
	if t.hasMessage {
		_, err = t.db.Exec(ctx, `
			UPDATE processamento
			   SET inicio = $1, fim = $2, status = $3, mensagem = $4
			 WHERE id = $5`,
			start.UTC(), end.UTC(), string(status), message, id,
		)
	} else {
		_, err = t.db.Exec(ctx, `
			UPDATE processamento
			   SET inicio = $1, fim = $2, status = $3
			 WHERE id = $4`,
			start.UTC(), end.UTC(), string(status), id,
		)
	}
	if err != nil {
		t.inner.Error("Failed to record end of run %d: %v", id, err)
	}

	t.mu.Lock()
	if t.runID == id {
		t.runID = 0
	}
	t.mu.Unlock()
}

// RecordEvent inserts e into processamento_log and returns the new id, or 0 on failure.
func (t *Tracker) RecordEvent(ctx context.Context, e Event) int64 {
	detail, err := encodeDetail(e.Detail)
	if err != nil {
		t.inner.Error("Failed to encode event detail: %v", err)
		detail = nil
	}

	var id int64
	err = t.db.QueryRow(ctx, `
		INSERT INTO processamento_log (processamento_id, level, etapa, codigo, mensagem, detalhe, stacktrace)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		RETURNING id`,
		e.RunID, string(ParseLevel(string(e.Level))), nullable(e.Stage), nullable(e.Code),
		nullable(e.Message), detail, nullable(e.Stacktrace),
	).Scan(&id)
	if err != nil {
		t.inner.Error("Failed to record event: %v", err)
		return 0
	}
	return id
}

// RecordRun inserts a finished run in one step. Zero times default to now,
// an empty status to SUCCESS and an empty message to Summary.
func (t *Tracker) RecordRun(ctx context.Context, r Run) (int64, error) {
	now := t.now().UTC()
	if r.Start.IsZero() {
		r.Start = now
	}
	if r.End.IsZero() {
		r.End = now
	}
	if r.User == "" {
		r.User = t.user
	}
	r.Status = Status(strings.ToUpper(string(r.Status)))
	if r.Status == "" {
		r.Status = StatusSuccess
	}
	if r.Message == "" {
		r.Message = t.Summary()
	}

	var (
		id  int64
		err error
	)
	if t.hasMessage {
		err = t.db.QueryRow(ctx, `
			INSERT INTO processamento (nome_processo, inicio, fim, usuario, status, mensagem)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			r.Process, r.Start.UTC(), r.End.UTC(), r.User, string(r.Status), r.Message,
		).Scan(&id)
	} else {
		err = t.db.QueryRow(ctx, `
			INSERT INTO processamento (nome_processo, inicio, fim, usuario, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			r.Process, r.Start.UTC(), r.End.UTC(), r.User, string(r.Status),
		).Scan(&id)
	}
	if err != nil {
		t.inner.Error("Failed to record run %s: %v", r.Process, err)
		return 0, fmt.Errorf("failed to record run %s: %w", r.Process, err)
	}
	return id, nil
}

// Run executes fn as a tracked run of process.
//
// The run is marked SUCCESS when fn returns nil and ERROR when it returns an
// error or panics. Errors and panics are logged and recorded with their
// chain or stack before the run is finished; panics are re-raised after.
// A failed Start does not prevent fn from running.
func (t *Tracker) Run(ctx context.Context, process string, fn func(ctx context.Context) error) (err error) {
	start := t.now()
	id, _ := t.Start(ctx, process)
	status := StatusSuccess

	finishCtx := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			status = StatusError
			message := fmt.Sprintf("panic: %v", r)
			t.Log(LevelFatal, message, WithStage("runtime"), WithCode("UNHANDLED_PANIC"))
			t.recordTraceback(finishCtx, id, message, string(debug.Stack()))
			t.finishRun(finishCtx, id, start, status)
			panic(r)
		}
		t.finishRun(finishCtx, id, start, status)
	}()

	if err = fn(ctx); err != nil {
		status = StatusError
		t.Log(LevelError, fmt.Sprintf("%s failed: %v", process, err),
			WithStage("runtime"), WithCode("UNHANDLED_ERROR"))
		t.recordTraceback(finishCtx, id, err.Error(), errorChain(err))
	}
	return err
}

func (t *Tracker) recordTraceback(ctx context.Context, id int64, message, stack string) {
	if id == 0 {
		return
	}
	t.RecordEvent(ctx, Event{
		RunID:      id,
		Level:      LevelError,
		Stage:      "runtime",
		Code:       "TRACEBACK",
		Message:    message,
		Stacktrace: stack,
	})
}

func (t *Tracker) finishRun(ctx context.Context, id int64, start time.Time, status Status) {
	if id == 0 {
		return
	}
	t.Finish(ctx, id, start, t.now(), status, t.Summary())
}

// errorChain renders every error in err's tree, one per line, outermost first.
func errorChain(err error) string {
	var b strings.Builder
	var walk func(err error, depth int)
	walk = func(err error, depth int) {
		if err == nil {
			return
		}
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner, depth+1)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap(), depth+1)
		}
	}
	walk(err, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

// encodeDetail renders detail as JSON text. Strings that already hold JSON
// pass through; other strings are encoded as JSON strings.
func encodeDetail(detail any) (*string, error) {
	var text string
	switch d := detail.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		text = string(d)
	case string:
		if json.Valid([]byte(d)) {
			text = d
		} else {
			b, err := json.Marshal(d)
			if err != nil {
				return nil, err
			}
			text = string(b)
		}
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		text = string(b)
	}
	return &text, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ pgload.Logger = (*Tracker)(nil)
