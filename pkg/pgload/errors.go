package pgload

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	outcome, err := writer.Upsert(ctx, "sales.orders", ds, opts)
//	if errors.Is(err, pgload.ErrEmptyConflictTarget) {
//	    // caller forgot the conflict columns
//	}
//	if errors.Is(outcome.Err, pgload.ErrExecutionFailed) {
//	    // the destination rejected the write; nothing was committed
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMalformedReference indicates a table or column reference could not be
	// parsed into valid identifier segments.
	ErrMalformedReference = errors.New("malformed reference")

	// ErrEmptyConflictTarget indicates an upsert was requested without conflict columns.
	ErrEmptyConflictTarget = errors.New("conflict target is empty")

	// ErrInvalidConflictPolicy indicates a conflict policy other than "update" or "nothing".
	ErrInvalidConflictPolicy = errors.New("invalid conflict policy")

	// ErrUnknownColumn indicates a referenced column is not part of the dataset.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidDataset indicates the dataset shape is inconsistent
	// (ragged rows, duplicate or missing column names).
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrConnectionUnavailable indicates the connection provider returned no usable connection.
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrExecutionFailed indicates SQL execution failed.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrUnknownOperation indicates a transform step names an operation that is not registered.
	ErrUnknownOperation = errors.New("unknown transform operation")

	// ErrMissingParameter indicates a transform step lacks a required parameter.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrFileNotFound indicates no source file matched the requested name.
	ErrFileNotFound = errors.New("file not found")
)

// usageErrorPatterns are the message prefixes cobra uses for command line misuse.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrMalformedReference),
		errors.Is(err, ErrEmptyConflictTarget),
		errors.Is(err, ErrInvalidConflictPolicy),
		errors.Is(err, ErrUnknownColumn),
		errors.Is(err, ErrInvalidDataset),
		errors.Is(err, ErrUnsupportedAuthMethod),
		errors.Is(err, ErrUnknownOperation),
		errors.Is(err, ErrMissingParameter):
		return ExitConfigError
	case errors.Is(err, ErrConnectionUnavailable), errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrExecutionFailed):
		return ExitExecutionFailed
	}

	errStr := err.Error()
	for _, pattern := range usageErrorPatterns {
		if strings.HasPrefix(errStr, pattern) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
