package retry

import (
	"context"
	"time"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// Executor runs an operation and repeats it while it fails transiently.
//
// Executors are immutable. WithOnRetry and LogRetries return configured
// copies, so one base executor can be shared between goroutines.
type Executor struct {
	classifier pgload.ErrorClassifier
	strategy   pgload.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier pgload.ErrorClassifier, strategy pgload.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a copy that calls fn before each wait.
func (e *Executor) WithOnRetry(fn func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = fn
	return &clone
}

// LogRetries returns a copy that reports each retry as a warning.
func (e *Executor) LogRetries(logger pgload.Logger, what string) *Executor {
	return e.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Warn("%s failed (retry %d in %v): %v", what, attempt+1, delay.Round(time.Millisecond), err)
	})
}

// Execute calls operation until it succeeds, fails with a non-transient
// error, the strategy runs out of attempts, or ctx is done.
// It returns the last operation error, or ctx.Err() when interrupted.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	limit := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if limit >= 0 && attempt >= limit {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		if waitErr := sleep(ctx, delay); waitErr != nil {
			return waitErr
		}
		err = operation(ctx)
	}

	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
