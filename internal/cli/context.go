package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// commandContext returns a context cancelled by SIGINT, SIGTERM or timeout.
// A zero timeout means no deadline.
func commandContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
