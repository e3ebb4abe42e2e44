// Package loader writes a pgload.Dataset into a PostgreSQL table.
//
// The Writer validates its configuration synchronously, coerces every cell
// into a value the driver can bind, and submits the rows in chunks inside a
// single transaction. Each chunk is one pgx.Batch round trip whose statements
// are multi-row INSERTs sized to stay under the bind-parameter limit.
//
// # Example Usage
//
//	w := loader.New(provider, logger, loader.WithMetrics(reporter))
//
//	outcome, err := w.Upsert(ctx, "sales.orders", ds, pgload.UpsertOptions{
//	    ConflictColumns:   []string{"order_id"},
//	    ExcludeFromUpdate: []string{"created_at"},
//	})
//	if err != nil {
//	    return err // bad table reference, conflict target, policy or dataset
//	}
//	if !outcome.OK() {
//	    return outcome.AsError() // nothing was committed
//	}
//
// # Failure Semantics
//
// A call commits everything or nothing. Runtime failures never escape as
// errors: they are reported in WriteOutcome.Err after the transaction has been
// rolled back and one error line has been logged.
//
// # Thread Safety
//
// A Writer holds only its construction-time configuration and may be shared by
// concurrent callers. Each call acquires and releases its own connection.
package loader
