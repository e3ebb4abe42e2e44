package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgreSQLErrorClassifier_SQLState(t *testing.T) {
	classifier := NewPostgreSQLErrorClassifier()

	tests := []struct {
		code        string
		isTransient bool
	}{
		{"08000", true},
		{"08006", true},
		{"08P01", true},
		{"53300", true},
		{"53100", true},
		{"57P01", true},
		{"57P03", true},
		{"40001", true},
		{"40P01", true},
		{"55P03", true},
		{"40002", false},
		{"23505", false},
		{"23514", false},
		{"22003", false},
		{"42601", false},
		{"42P01", false},
		{"55000", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := fmt.Errorf("batch: %w", &pgconn.PgError{Code: tt.code})
			if got := classifier.IsTransient(err); got != tt.isTransient {
				t.Errorf("IsTransient(%s) = %v, want %v", tt.code, got, tt.isTransient)
			}
		})
	}
}

func TestPostgreSQLErrorClassifier_NetworkErrors(t *testing.T) {
	classifier := NewPostgreSQLErrorClassifier()

	tests := []struct {
		name        string
		err         error
		isTransient bool
	}{
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"connection reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, true},
		{"host unreachable", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH}, true},
		{"temporary dns", &net.DNSError{Err: "server misbehaving", Name: "db", IsTemporary: true}, true},
		{"permanent dns", &net.DNSError{Err: "no such host", Name: "db", IsNotFound: true}, true},
		{"access denied", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EACCES}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.IsTransient(tt.err); got != tt.isTransient {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.isTransient)
			}
		})
	}
}

func TestPostgreSQLErrorClassifier_Messages(t *testing.T) {
	classifier := NewPostgreSQLErrorClassifier()

	if !classifier.IsTransient(errors.New("failed to connect: server closed the connection unexpectedly")) {
		t.Error("expected server closed message to be transient")
	}
	if !classifier.IsTransient(errors.New("read tcp: i/o timeout")) {
		t.Error("expected i/o timeout to be transient")
	}
	if classifier.IsTransient(errors.New("password authentication failed for user \"etl\"")) {
		t.Error("expected authentication failure to be fatal")
	}
	if classifier.IsTransient(nil) {
		t.Error("nil error must not be transient")
	}
	if classifier.IsTransient(fmt.Errorf("interrupted: %w", context.Canceled)) {
		t.Error("cancellation must not be transient")
	}
}

func TestSQLState(t *testing.T) {
	if got := SQLState(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})); got != "23505" {
		t.Errorf("SQLState = %q, want 23505", got)
	}
	if got := SQLState(errors.New("plain")); got != "" {
		t.Errorf("SQLState = %q, want empty", got)
	}
}

func TestIsTransientCode_RejectsMalformed(t *testing.T) {
	for _, code := range []string{"", "08", "0800", "080000"} {
		if IsTransientCode(code) {
			t.Errorf("IsTransientCode(%q) = true, want false", code)
		}
	}
}
