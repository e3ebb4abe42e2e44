// Package retry classifies PostgreSQL failures and retries transient ones
// with exponential backoff.
//
// pgload retries only connection establishment. The batch writer never
// retries a write; it uses the classifier to report whether a failed call is
// worth re-running as a whole.
//
//	executor := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(pgload.DefaultRetryMaxAttempts),
//	).LogRetries(logger, "connect")
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
//
// Executors are immutable after construction and safe for concurrent use.
package retry
