package pgload_test

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/pkg/pgload"
)

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "ConnectionUnavailable", pgload.KindConnectionUnavailable.String())
	assert.Equal(t, "ExecutionError", pgload.KindExecution.String())
	assert.Equal(t, "Unknown(99)", pgload.ErrorKind(99).String())
}

func TestWriteError_Unwrap(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "22003", Message: "value out of range"}
	werr := &pgload.WriteError{
		Kind:    pgload.KindExecution,
		Table:   "metrics",
		Code:    pgErr.Code,
		Message: pgErr.Message,
		Cause:   pgErr,
	}

	assert.ErrorIs(t, werr, pgload.ErrExecutionFailed)
	assert.NotErrorIs(t, werr, pgload.ErrConnectionUnavailable)

	var target *pgconn.PgError
	require.True(t, errors.As(werr, &target))
	assert.Equal(t, "22003", target.Code)

	assert.Equal(t, "ExecutionError on metrics (code=22003): value out of range", werr.Error())
}

func TestWriteError_ConnectionUnavailable(t *testing.T) {
	werr := &pgload.WriteError{
		Kind:    pgload.KindConnectionUnavailable,
		Table:   "orders",
		Message: "no connection",
	}

	assert.ErrorIs(t, werr, pgload.ErrConnectionUnavailable)
	assert.Equal(t, "ConnectionUnavailable on orders: no connection", werr.Error())
}

func TestWriteOutcome_Status(t *testing.T) {
	ok := pgload.WriteOutcome{Table: "t", RowsAttempted: 2, RowsSubmitted: 2}
	assert.True(t, ok.OK())
	assert.NoError(t, ok.AsError())
	assert.Equal(t, pgload.StatusSuccess, ok.Status())

	failed := pgload.WriteOutcome{Table: "t", Err: &pgload.WriteError{Kind: pgload.KindExecution}}
	assert.False(t, failed.OK())
	assert.ErrorIs(t, failed.AsError(), pgload.ErrExecutionFailed)
	assert.Equal(t, pgload.StatusFailure, failed.Status())
}
