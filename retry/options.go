package retry

import "context"

// Attempts is the total number of calls, the first one included. Zero means
// no limit.
type Attempts uint

type Option func(*options)

type options struct {
	attempts Attempts
	backoff  Backoff
	jitter   Jitter
	onRetry  func(attempt uint, err error)
}

func WithAttempts(a Attempts) Option {
	return func(o *options) {
		o.attempts = a
	}
}

func WithBackoff(b Backoff) Option {
	return func(o *options) {
		o.backoff = b
	}
}

func WithJitter(j Jitter) Option {
	return func(o *options) {
		o.jitter = j
	}
}

// WithOnRetry registers a callback invoked before waiting for the next attempt.
func WithOnRetry(fn func(attempt uint, err error)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

type ctxKey string

const attemptKey ctxKey = "attempt"

func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt returns the zero-based attempt number Do stored in ctx.
func Attempt(ctx context.Context) uint {
	n, _ := ctx.Value(attemptKey).(uint)

	return n
}
