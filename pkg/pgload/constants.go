package pgload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Job completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration, reference, policy or transform setup
	ExitConnectionError = 11 // Failed to connect to database
	ExitExecutionFailed = 13 // The destination rejected the write
)

const (
	// DefaultInsertChunkSize is the number of rows per batched execution for inserts.
	DefaultInsertChunkSize = 1000

	// DefaultUpsertChunkSize is the number of rows per batched execution for upserts.
	DefaultUpsertChunkSize = 10000

	// DefaultPageSize is the preferred number of rows packed into one multi-row
	// VALUES statement inside a chunk.
	DefaultPageSize = 1000

	// MaxBindParameters is PostgreSQL's limit on bind parameters per statement.
	// Pages are shrunk so that rows*columns never exceeds it.
	MaxBindParameters = 65535

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connection retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultConnectTimeout bounds a single connection attempt.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultKeepAliveIdle is the TCP keepalive period for pooled connections.
	DefaultKeepAliveIdle = 30 * time.Second

	// DefaultTimeout is the catastrophic-failure guard for a whole CLI run.
	DefaultTimeout = 30 * time.Minute

	// DefaultCSVSeparator is the field separator of the CSV exports this tool ingests.
	DefaultCSVSeparator = ';'
)
