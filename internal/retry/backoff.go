package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// ExponentialBackoff grows the delay by a constant factor per attempt,
// caps it, and spreads it by a symmetric jitter.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64

	// maxAttempts counts retries, not the initial attempt. Negative means unlimited.
	maxAttempts int

	// jitter of 0.1 spreads each delay by up to +/-10%.
	jitter     float64
	jitterFunc func() float64
}

var _ pgload.BackoffStrategy = (*ExponentialBackoff)(nil)

// BackoffOption is a functional option for configuring ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initialDelay = d }
}

// WithMaxDelay caps every delay.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.maxDelay = d }
}

// WithMultiplier sets the growth factor between attempts.
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

// WithJitter sets the jitter factor in [0, 1]. Zero disables jitter.
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = j }
}

// WithJitterFunc replaces the random source, which must return values in [0, 1).
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitterFunc = f }
}

// NewExponentialBackoff creates a strategy allowing maxAttempts retries.
// Delays start at pgload.DefaultRetryInitialDelay, double each attempt and
// never exceed pgload.DefaultRetryMaxDelay unless overridden.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: pgload.DefaultRetryInitialDelay,
		maxDelay:     pgload.DefaultRetryMaxDelay,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.1,
		jitterFunc:   rand.Float64,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NextDelay returns the delay before retry number attempt (0-based).
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt))
	if ceiling := float64(b.maxDelay); delay > ceiling || math.IsInf(delay, 0) {
		delay = ceiling
	}

	if b.jitter > 0 && b.jitterFunc != nil {
		spread := (b.jitterFunc()*2 - 1) * b.jitter
		delay += delay * spread
	}

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// MaxAttempts returns the number of retries allowed after the first attempt.
func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}
