package db

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framework-cg/pgload/internal/retry"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns bounds concurrent writes from one process.
	DefaultMaxConns = 5

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps connections open between chunks of a long load.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// configurePool applies pool sizing, TCP keepalive and notice forwarding.
func configurePool(poolConfig *pgxpool.Config, cfg *pgload.ConnectionConfig, logger pgload.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime

	keepAlive := cfg.KeepAliveIdle
	if keepAlive <= 0 {
		keepAlive = pgload.DefaultKeepAliveIdle
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = pgload.DefaultConnectTimeout
	}
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: keepAlive}
	poolConfig.ConnConfig.DialFunc = dialer.DialContext

	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("%s: %s", notice.Severity, notice.Message)
	}
}

// newRetryExecutor returns the executor every connector uses for connection establishment.
func newRetryExecutor(logger pgload.Logger) *retry.Executor {
	return retry.NewExecutor(
		retry.NewPostgreSQLErrorClassifier(),
		retry.NewExponentialBackoff(pgload.DefaultRetryMaxAttempts,
			retry.WithInitialDelay(pgload.DefaultRetryInitialDelay),
			retry.WithMaxDelay(pgload.DefaultRetryMaxDelay),
		),
	).LogRetries(logger, "connect")
}

// openPool parses connStr, applies pool settings and verifies the server answers.
func openPool(ctx context.Context, connStr string, cfg *pgload.ConnectionConfig, logger pgload.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, pgload.ErrInvalidConfig)
	}

	configurePool(poolConfig, cfg, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	return pool, nil
}

// StandardConnector connects with username and password, retrying transient failures.
type StandardConnector struct {
	config        *pgload.ConnectionConfig
	logger        pgload.Logger
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a StandardConnector.
// Retry behavior uses pgload defaults: DefaultRetryMaxAttempts retries,
// exponential backoff starting at DefaultRetryInitialDelay, max DefaultRetryMaxDelay.
func NewStandardConnector(config *pgload.ConnectionConfig, logger pgload.Logger) *StandardConnector {
	return &StandardConnector{
		config:        config,
		logger:        logger,
		retryExecutor: newRetryExecutor(logger),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, connStr, c.config, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// NewConnector creates the Connector matching config.AuthMethod.
// Panics if config or logger is nil.
func NewConnector(config *pgload.ConnectionConfig, logger pgload.Logger) (pgload.Connector, error) {
	if config == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	switch config.AuthMethod {
	case pgload.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case pgload.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case pgload.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case pgload.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgload.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError adds troubleshooting hints to raw pgx connection errors.
// The result wraps both err and pgload.ErrConnectionFailed.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var hint string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		hint = fmt.Sprintf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port (check $DB_HOST/$DB_PORT or $PGHOST/$PGPORT)
  - Firewall blocking the connection`, addr, host, port)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		hint = fmt.Sprintf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable`, host)

	case strings.Contains(errStr, "password authentication failed"):
		hint = fmt.Sprintf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD, $DB_PASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to the database`, database)

	case strings.Contains(errStr, "does not exist"):
		hint = fmt.Sprintf(`database "%s" does not exist

pgload does not create databases. Create it first:
  createdb %s`, database, database)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		hint = fmt.Sprintf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - connect_timeout too low ($DB_CONNECT_TIMEOUT)`, addr)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		hint = `SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode is wrong
  - Certificate verification failed (try --sslmode=require)`

	case strings.Contains(errStr, "too many connections"):
		hint = fmt.Sprintf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Other loads running in parallel`, database)

	default:
		return fmt.Errorf("failed to connect to database: %w: %w", pgload.ErrConnectionFailed, err)
	}

	return fmt.Errorf("%s\n\nOriginal error: %w: %w", hint, pgload.ErrConnectionFailed, err)
}
