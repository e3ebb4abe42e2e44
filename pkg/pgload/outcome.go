package pgload

import (
	"fmt"
	"time"
)

// ErrorKind classifies runtime write failures.
type ErrorKind int

const (
	// KindConnectionUnavailable means no connection could be acquired for the call.
	KindConnectionUnavailable ErrorKind = iota + 1

	// KindExecution means the destination rejected a statement or the commit.
	KindExecution
)

// String returns the name used in logs and outcome messages.
func (k ErrorKind) String() string {
	switch k {
	case KindConnectionUnavailable:
		return "ConnectionUnavailable"
	case KindExecution:
		return "ExecutionError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConnectionUnavailable:
		return ErrConnectionUnavailable
	case KindExecution:
		return ErrExecutionFailed
	default:
		return nil
	}
}

// WriteError describes why a write call failed at runtime.
// It unwraps to the sentinel matching Kind and to the driver error, so both
// errors.Is(err, ErrExecutionFailed) and errors.As(err, &pgErr) work.
type WriteError struct {
	Kind    ErrorKind
	Table   string
	Code    string // SQLSTATE reported by the destination, verbatim
	Message string // destination-native error text, verbatim

	// Transient reports whether the failure looks retryable.
	// The writer itself never retries.
	Transient bool

	Cause error
}

// Error implements error.
func (e *WriteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s on %s (code=%s): %s", e.Kind, e.Table, e.Code, e.Message)
	}
	return fmt.Sprintf("%s on %s: %s", e.Kind, e.Table, e.Message)
}

// Unwrap exposes the sentinel and the underlying cause.
func (e *WriteError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// WriteOutcome is the result of one Insert or Upsert call.
type WriteOutcome struct {
	Table     string
	Operation string

	// RowsAttempted is the number of rows in the input dataset.
	RowsAttempted int

	// RowsSubmitted is the number of rows committed. Zero on failure.
	RowsSubmitted int

	// RowsAffected is the sum of the command tags of all executed statements.
	// For an upsert re-run over unchanged data it is zero.
	RowsAffected int64

	// Chunks is the number of batched executions performed.
	Chunks int

	Duration time.Duration

	// Err is nil on success.
	Err *WriteError
}

// OK reports whether the call succeeded.
func (o WriteOutcome) OK() bool {
	return o.Err == nil
}

// AsError returns o.Err as an error value, or nil on success.
// It avoids the typed-nil pitfall of returning o.Err directly.
func (o WriteOutcome) AsError() error {
	if o.Err == nil {
		return nil
	}
	return o.Err
}

// Status returns "success" or "failure" for metrics and logs.
func (o WriteOutcome) Status() string {
	if o.OK() {
		return StatusSuccess
	}
	return StatusFailure
}

// Status labels used by metrics reporters.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)
