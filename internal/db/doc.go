// Package db turns connection settings into PostgreSQL connection pools and
// hands pooled connections to the batch writer.
//
// Settings are resolved from, in decreasing priority: a connection string
// (--connection, $PGLOAD_CONNECTION_STRING or $DATABASE_URL), granular
// flags, libpq PG* variables, legacy DB_* variables, pgload.yaml and defaults.
// NewConnector picks the authentication flavour: password, AWS RDS IAM,
// Google Cloud SQL IAM or Azure Entra ID. PoolProvider opens one pool per
// database lazily and implements pgload.ConnectionProvider.
package db
