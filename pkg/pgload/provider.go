package pgload

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ConnectionProvider hands out connections to the batch writer.
//
// Acquire returns a connection to the named database, or to the provider's
// default database when database is empty. A nil Conn with a nil error means
// no usable connection could be obtained; callers must treat it as a hard stop
// and never dereference it.
type ConnectionProvider interface {
	Acquire(ctx context.Context, database string) (Conn, error)
}

// Conn is a connection exclusively owned by one caller until Release.
type Conn interface {
	// Begin starts an explicit transaction on this connection.
	Begin(ctx context.Context) (Tx, error)

	// Release returns the connection to its pool.
	// After calling Release, the connection must not be used.
	Release()
}

// Tx is the subset of pgx.Tx the batch writer needs.
// pgx.Tx satisfies it.
type Tx interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

var _ Tx = (pgx.Tx)(nil)
