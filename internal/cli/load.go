package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/framework-cg/pgload/internal/config"
	"github.com/framework-cg/pgload/internal/extract"
	"github.com/framework-cg/pgload/internal/files/filesystem"
	"github.com/framework-cg/pgload/internal/loader"
	"github.com/framework-cg/pgload/internal/metrics"
	"github.com/framework-cg/pgload/internal/services"
	"github.com/framework-cg/pgload/pkg/pgload"
)

var loadCmd = &cobra.Command{
	Use:   "load [csv-file]",
	Short: "Load a CSV file or query result into a table",
	Long: `Load reads a ;-separated CSV file (or, with --source-sql, the result of a
query on the same database), applies the configured transforms and writes the
rows into --table.

Without --upsert rows are appended with multi-row INSERT statements. With
--upsert they are merged on --conflict columns: --policy update overwrites
changed rows, --policy nothing keeps existing ones. Columns listed in --exclude
are inserted but never overwritten.

Every call runs in one transaction. If any statement fails the transaction is
rolled back and the table is left unchanged.

Transforms run in the order given:
  clean_columns    lowercase, accent-free, underscore column names
  clean_text       strip accents and trim cells (param: columns)
  row_hash         md5 of key columns (params: key_columns, hash_column)
  select_columns   keep and reorder columns (param: columns)

Examples:
  # Append a CSV export
  pgload load vendas.csv --table sales.orders -d warehouse

  # Idempotent merge keyed on id, with a row hash
  pgload load vendas.csv --table sales.orders --upsert --conflict id \
    --transform clean_columns --transform row_hash --param key_columns=id,total

  # Record the run in processamento / processamento_log
  pgload load vendas.csv --table sales.orders --track "daily sales"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

type loadFlagValues struct {
	conn        connectionFlags
	table       string
	sourceSQL   string
	upsert      bool
	conflict    []string
	exclude     []string
	policy      string
	chunkSize   int
	pageSize    int
	sep         string
	transforms  []string
	params      []string
	paramsFiles []string
	track       string
	metricsFile string
	timeout     time.Duration
}

var loadFlags loadFlagValues

func init() {
	rootCmd.AddCommand(loadCmd)
	addConnectionFlags(loadCmd, &loadFlags.conn)

	loadCmd.Flags().StringVar(&loadFlags.table, "table", "",
		"Destination table, as table or schema.table (required)")
	loadCmd.Flags().StringVar(&loadFlags.sourceSQL, "source-sql", "",
		"Read rows from this query instead of a CSV file")
	loadCmd.Flags().BoolVar(&loadFlags.upsert, "upsert", false,
		"Merge rows with INSERT ... ON CONFLICT instead of appending")
	loadCmd.Flags().StringSliceVar(&loadFlags.conflict, "conflict", nil,
		"Conflict columns for --upsert (must match a unique constraint)")
	loadCmd.Flags().StringSliceVar(&loadFlags.exclude, "exclude", nil,
		"Columns inserted but never overwritten on conflict")
	loadCmd.Flags().StringVar(&loadFlags.policy, "policy", "",
		"Conflict policy: update|nothing (default: update, or loader.policy)")
	loadCmd.Flags().IntVar(&loadFlags.chunkSize, "chunk-size", 0,
		"Rows per batched execution (default: 1000 insert, 10000 upsert)")
	loadCmd.Flags().IntVar(&loadFlags.pageSize, "page-size", 0,
		"Preferred rows per VALUES statement (default: 1000)")
	loadCmd.Flags().StringVar(&loadFlags.sep, "sep", string(pgload.DefaultCSVSeparator),
		"CSV field separator (one character)")
	loadCmd.Flags().StringArrayVar(&loadFlags.transforms, "transform", nil,
		"Transform to apply (repeatable, runs in order; default: transforms.steps)")
	loadCmd.Flags().StringArrayVar(&loadFlags.params, "param", nil,
		"Transform parameter as key=value (repeatable)")
	loadCmd.Flags().StringArrayVar(&loadFlags.paramsFiles, "params-file", nil,
		"Load transform parameters from a .env file (repeatable, later files win)")
	loadCmd.Flags().StringVar(&loadFlags.track, "track", "",
		"Record the run under this process name (enables tracking)")
	loadCmd.Flags().StringVar(&loadFlags.metricsFile, "metrics-file", "",
		"Write Prometheus metrics to this textfile after the run")
	loadCmd.Flags().DurationVar(&loadFlags.timeout, "timeout", pgload.DefaultTimeout,
		"Maximum run time")
}

func runLoad(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.ErrOrStderr(), loadFlags.conn)
	if err != nil {
		return err
	}
	defer s.Close()

	job, err := buildLoadJob(loadFlags, args, s.project)
	if err != nil {
		return err
	}
	sep, err := parseSeparator(loadFlags.sep)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd.Context(), s.timeout(cmd.Flags().Changed("timeout"), loadFlags.timeout, pgload.DefaultTimeout))
	defer cancel()

	logger := s.logger
	var runnerOpts []services.RunnerOption
	if loadFlags.track != "" || s.project.Tracking.Enabled {
		tracker, err := s.tracker(ctx)
		if err != nil {
			return err
		}
		logger = tracker
		runnerOpts = append(runnerOpts, services.WithTracker(tracker))
	}

	writerOpts := []loader.Option{
		loader.WithChunkSizes(s.project.Loader.InsertChunkSize, s.project.Loader.UpsertChunkSize),
		loader.WithPageSize(firstPositive(loadFlags.pageSize, s.project.Loader.PageSize)),
	}
	metricsFile := firstNonEmpty(loadFlags.metricsFile, s.project.Metrics.Textfile)
	var reporter *metrics.PrometheusReporter
	if metricsFile != "" {
		reporter = metrics.NewPrometheusReporter(s.conn.Database)
		writerOpts = append(writerOpts, loader.WithMetrics(reporter))
	}

	runnerOpts = append(runnerOpts,
		services.WithFileSource(extract.NewCSVReader(filesystem.NewOSFileSystem(), logger, extract.WithSeparator(sep))))
	if job.Query != nil {
		pool, err := s.pool(ctx)
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, services.WithQuerySource(extract.NewQueryReader(pool, logger)))
	}

	runner := services.NewJobRunner(loader.New(s.provider, logger, writerOpts...), logger, runnerOpts...)
	result, runErr := runner.Run(ctx, job)

	if reporter != nil {
		if err := reporter.WriteTextfile(metricsFile); err != nil {
			s.logger.Warn("Failed to write metrics to %s: %v", metricsFile, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	o := result.Outcome
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d rows submitted, %d affected, %d chunks in %s\n",
		o.Operation, o.Table, o.RowsSubmitted, o.RowsAffected, o.Chunks, o.Duration.Round(time.Millisecond))
	return nil
}

// buildLoadJob turns flags and project config into a job. It does no I/O
// beyond reading params files.
func buildLoadJob(f loadFlagValues, args []string, projectCfg *config.ProjectConfig) (services.Job, error) {
	if projectCfg == nil {
		projectCfg = &config.ProjectConfig{}
	}

	job := services.Job{Name: f.track, Table: strings.TrimSpace(f.table), Upsert: f.upsert}
	if job.Table == "" {
		return job, fmt.Errorf("--table is required: %w", pgload.ErrInvalidConfig)
	}

	switch {
	case len(args) == 1 && f.sourceSQL != "":
		return job, fmt.Errorf("give either a csv file or --source-sql, not both: %w", pgload.ErrInvalidConfig)
	case len(args) == 1:
		job.CSVPath = args[0]
	case f.sourceSQL != "":
		job.Query = &extract.SelectQuery{Custom: f.sourceSQL}
	default:
		return job, fmt.Errorf("a csv file or --source-sql is required: %w", pgload.ErrInvalidConfig)
	}

	job.Transforms = f.transforms
	if len(job.Transforms) == 0 {
		job.Transforms = projectCfg.Transforms.Steps
	}
	p, err := loadTransformParams(projectCfg, f.paramsFiles, f.params)
	if err != nil {
		return job, err
	}
	job.Params = p

	policy, err := pgload.ParseConflictPolicy(firstNonEmpty(f.policy, projectCfg.Loader.Policy))
	if err != nil {
		return job, err
	}
	if !f.upsert && (len(f.conflict) > 0 || len(f.exclude) > 0 || f.policy != "") {
		return job, fmt.Errorf("--conflict, --exclude and --policy need --upsert: %w", pgload.ErrInvalidConfig)
	}

	job.InsertOptions = pgload.InsertOptions{ChunkSize: f.chunkSize}
	job.UpsertOptions = pgload.UpsertOptions{
		ConflictColumns:   f.conflict,
		ExcludeFromUpdate: f.exclude,
		Policy:            policy,
		ChunkSize:         f.chunkSize,
	}
	return job, nil
}

// parseSeparator accepts exactly one character. "\t" and "tab" mean a tab.
func parseSeparator(s string) (rune, error) {
	switch s {
	case "":
		return pgload.DefaultCSVSeparator, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("separator %q must be a single character: %w", s, pgload.ErrInvalidConfig)
	}
	return r, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
