package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/framework-cg/pgload/internal/extract"
	"github.com/framework-cg/pgload/internal/logging"
	"github.com/framework-cg/pgload/internal/runlog"
	"github.com/framework-cg/pgload/internal/transform"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// BatchWriter writes datasets into destination tables. *loader.Writer implements it.
type BatchWriter interface {
	Insert(ctx context.Context, table string, ds *pgload.Dataset, opts pgload.InsertOptions) (pgload.WriteOutcome, error)
	Upsert(ctx context.Context, table string, ds *pgload.Dataset, opts pgload.UpsertOptions) (pgload.WriteOutcome, error)
}

// FileSource reads a dataset from a file. *extract.CSVReader implements it.
type FileSource interface {
	ReadFile(path string) (*pgload.Dataset, error)
}

// QuerySource reads a dataset from a query. *extract.QueryReader implements it.
type QuerySource interface {
	Read(ctx context.Context, q extract.SelectQuery) (*pgload.Dataset, error)
}

// RunTracker records jobs as tracked runs. *runlog.Tracker implements it.
type RunTracker interface {
	Run(ctx context.Context, process string, fn func(ctx context.Context) error) error
	RecordEvent(ctx context.Context, e runlog.Event) int64
	ActiveRun() int64
}

// Job describes one load.
type Job struct {
	// Name is the tracked process name. Defaults to "load <Table>".
	Name string

	Table string

	// Exactly one source must be set.
	CSVPath string
	Query   *extract.SelectQuery

	Transforms []string
	Params     transform.Params

	// Upsert selects Upsert with UpsertOptions instead of Insert.
	Upsert        bool
	InsertOptions pgload.InsertOptions
	UpsertOptions pgload.UpsertOptions
}

func (j Job) processName() string {
	if j.Name != "" {
		return j.Name
	}
	return "load " + j.Table
}

func (j Job) source() string {
	if j.CSVPath != "" {
		return j.CSVPath
	}
	return "query"
}

// Validate checks the job shape.
func (j Job) Validate() error {
	var errs []error
	if strings.TrimSpace(j.Table) == "" {
		errs = append(errs, fmt.Errorf("job needs a destination table: %w", pgload.ErrInvalidConfig))
	}
	switch {
	case j.CSVPath == "" && j.Query == nil:
		errs = append(errs, fmt.Errorf("job needs a csv file or a query: %w", pgload.ErrInvalidConfig))
	case j.CSVPath != "" && j.Query != nil:
		errs = append(errs, fmt.Errorf("job cannot read both a csv file and a query: %w", pgload.ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// JobResult reports what a job did.
type JobResult struct {
	ID uuid.UUID

	// RowsLoaded is the row count read from the source, before transforms.
	RowsLoaded int

	// Outcome is the zero value when the job failed before writing.
	Outcome pgload.WriteOutcome
}

// JobRunner executes jobs.
type JobRunner struct {
	writer   BatchWriter
	files    FileSource
	queries  QuerySource
	registry *transform.Registry
	logger   pgload.Logger
	tracker  RunTracker
	now      func() time.Time
}

// RunnerOption configures a JobRunner.
type RunnerOption func(*JobRunner)

// WithFileSource sets the reader used for Job.CSVPath.
func WithFileSource(src FileSource) RunnerOption {
	return func(r *JobRunner) { r.files = src }
}

// WithQuerySource sets the reader used for Job.Query.
func WithQuerySource(src QuerySource) RunnerOption {
	return func(r *JobRunner) { r.queries = src }
}

// WithRegistry replaces the default transform registry.
func WithRegistry(reg *transform.Registry) RunnerOption {
	return func(r *JobRunner) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithTracker runs every job inside a tracked run.
func WithTracker(t RunTracker) RunnerOption {
	return func(r *JobRunner) { r.tracker = t }
}

// NewJobRunner creates a runner. Panics if writer or logger is nil.
// Sources are optional; a job naming a missing source fails with ErrInvalidConfig.
func NewJobRunner(writer BatchWriter, logger pgload.Logger, opts ...RunnerOption) *JobRunner {
	if writer == nil {
		panic("writer cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	r := &JobRunner{
		writer:   writer,
		logger:   logger,
		registry: transform.NewDefaultRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes job. A write failure is returned as an error that unwraps to
// *pgload.WriteError; the result still carries the failed outcome.
func (r *JobRunner) Run(ctx context.Context, job Job) (JobResult, error) {
	result := JobResult{ID: uuid.New()}
	log := logging.WithPrefix(r.logger, "job "+result.ID.String())

	if err := job.Validate(); err != nil {
		return result, err
	}

	run := func(ctx context.Context) error {
		return r.run(ctx, job, log, &result)
	}
	if r.tracker == nil {
		return result, run(ctx)
	}
	return result, r.tracker.Run(ctx, job.processName(), run)
}

func (r *JobRunner) run(ctx context.Context, job Job, log pgload.Logger, result *JobResult) error {
	started := r.now()
	log.Info("Starting %s: %s -> %s", job.processName(), job.source(), job.Table)

	pipeline, err := r.registry.Build(job.Transforms, job.Params)
	if err != nil {
		return fmt.Errorf("invalid transforms: %w", err)
	}

	ds, err := r.load(ctx, job)
	if err != nil {
		return err
	}
	result.RowsLoaded = ds.Len()
	log.Info("Loaded %d rows x %d columns from %s", ds.Len(), len(ds.Columns), job.source())

	if pipeline.Len() > 0 {
		ds, err = pipeline.Apply(ds)
		if err != nil {
			return err
		}
		log.Verbose("Applied transforms %s: %d columns", strings.Join(pipeline.Names(), ", "), len(ds.Columns))
	}

	var outcome pgload.WriteOutcome
	if job.Upsert {
		outcome, err = r.writer.Upsert(ctx, job.Table, ds, job.UpsertOptions)
	} else {
		outcome, err = r.writer.Insert(ctx, job.Table, ds, job.InsertOptions)
	}
	if err != nil {
		return err
	}
	result.Outcome = outcome
	r.recordSummary(ctx, result, started)

	if werr := outcome.AsError(); werr != nil {
		return fmt.Errorf("%s into %s failed: %w", outcome.Operation, job.Table, werr)
	}
	log.Info("Finished: %d rows submitted, %d affected in %s", outcome.RowsSubmitted, outcome.RowsAffected, outcome.Duration)
	return nil
}

func (r *JobRunner) load(ctx context.Context, job Job) (*pgload.Dataset, error) {
	if job.CSVPath != "" {
		if r.files == nil {
			return nil, fmt.Errorf("no file source configured: %w", pgload.ErrInvalidConfig)
		}
		return r.files.ReadFile(job.CSVPath)
	}
	if r.queries == nil {
		return nil, fmt.Errorf("no query source configured: %w", pgload.ErrInvalidConfig)
	}
	return r.queries.Read(ctx, *job.Query)
}

// recordSummary attaches the job id and outcome to the active tracked run.
func (r *JobRunner) recordSummary(ctx context.Context, result *JobResult, started time.Time) {
	if r.tracker == nil {
		return
	}
	runID := r.tracker.ActiveRun()
	if runID == 0 {
		return
	}

	o := result.Outcome
	level := runlog.LevelInfo
	detail := map[string]any{
		"job_id":         result.ID.String(),
		"table":          o.Table,
		"operation":      o.Operation,
		"rows_loaded":    result.RowsLoaded,
		"rows_attempted": o.RowsAttempted,
		"rows_submitted": o.RowsSubmitted,
		"rows_affected":  o.RowsAffected,
		"chunks":         o.Chunks,
		"elapsed_ms":     r.now().Sub(started).Milliseconds(),
	}
	if o.Err != nil {
		level = runlog.LevelError
		detail["error_kind"] = o.Err.Kind.String()
		detail["sqlstate"] = o.Err.Code
	}

	r.tracker.RecordEvent(ctx, runlog.Event{
		RunID:   runID,
		Level:   level,
		Stage:   "load",
		Code:    "JOB_SUMMARY",
		Message: fmt.Sprintf("%s %s: %s", o.Operation, o.Table, o.Status()),
		Detail:  detail,
	})
}
