package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// SQLSTATE classes whose every code is transient.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
var transientClasses = map[string]string{
	"08": "connection exception",
	"53": "insufficient resources",
	"57": "operator intervention",
}

// Individual SQLSTATE codes outside those classes that are worth retrying.
var transientCodes = map[string]string{
	"40001": "serialization failure",
	"40P01": "deadlock detected",
	"55P03": "lock not available",
}

// Lowercase fragments of driver messages that indicate a dropped or
// unreachable server when no SQLSTATE is available.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"connection pool exhausted",
	"context deadline exceeded",
}

// PostgreSQLErrorClassifier decides whether a PostgreSQL or network error is transient.
type PostgreSQLErrorClassifier struct{}

var _ pgload.ErrorClassifier = (*PostgreSQLErrorClassifier)(nil)

// NewPostgreSQLErrorClassifier creates a new PostgreSQL error classifier.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient reports whether err is likely to succeed if the operation is repeated.
// Caller cancellation is never transient.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return IsTransientCode(pgErr.Code)
	}

	return isTransientNetError(err) || hasTransientMessage(err)
}

// IsTransientCode reports whether a SQLSTATE denotes a transient condition.
func IsTransientCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	if _, ok := transientCodes[code]; ok {
		return true
	}
	_, ok := transientClasses[code[:2]]
	return ok
}

// SQLState returns the SQLSTATE carried by err, or "" if there is none.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isTransientNetError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	if opErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ENETUNREACH, syscall.EHOSTUNREACH} {
		if errors.Is(opErr.Err, errno) {
			return true
		}
	}
	return false
}

func hasTransientMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, fragment := range transientMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
