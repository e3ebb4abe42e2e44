package logging

import (
	"fmt"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// PrefixLogger tags every message with a fixed prefix before forwarding it.
type PrefixLogger struct {
	inner  pgload.Logger
	prefix string
}

// WithPrefix returns a logger that writes "[prefix] msg" to inner.
// Panics if inner is nil.
func WithPrefix(inner pgload.Logger, prefix string) *PrefixLogger {
	if inner == nil {
		panic("logger cannot be nil")
	}
	return &PrefixLogger{inner: inner, prefix: "[" + prefix + "] "}
}

func (l *PrefixLogger) Verbose(format string, args ...interface{}) {
	l.inner.Verbose("%s", l.render(format, args))
}

func (l *PrefixLogger) Info(format string, args ...interface{}) {
	l.inner.Info("%s", l.render(format, args))
}

func (l *PrefixLogger) Warn(format string, args ...interface{}) {
	l.inner.Warn("%s", l.render(format, args))
}

func (l *PrefixLogger) Error(format string, args ...interface{}) {
	l.inner.Error("%s", l.render(format, args))
}

func (l *PrefixLogger) render(format string, args []interface{}) string {
	if len(args) == 0 {
		return l.prefix + format
	}
	return l.prefix + fmt.Sprintf(format, args...)
}
