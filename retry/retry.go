// Package retry runs operations that may fail transiently, waiting between
// attempts according to a backoff and jitter strategy.
//
//	pool, err := retry.DoValue(ctx, func(ctx context.Context) (*pgxpool.Pool, error) {
//	    return connect(ctx)
//	}, retry.WithAttempts(3), retry.WithBackoff(retry.LinearBackoff{Step: time.Second}))
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	defaultAttempts      = 4
	defaultBaseDelay     = 100 * time.Millisecond
	defaultMaxDelay      = 2 * time.Second
	defaultBackoffFactor = 2.0
)

func defaultOptions() *options {
	return &options{
		attempts: defaultAttempts,
		backoff: ExpBackoff{
			Base:   defaultBaseDelay,
			Max:    defaultMaxDelay,
			Factor: defaultBackoffFactor,
		},
		jitter: FullJitter,
	}
}

// Do calls f until it succeeds, returns a permanent error, the attempts run
// out or ctx is done. The last error is returned when every attempt failed.
func Do(ctx context.Context, f func(ctx context.Context) error, opts ...Option) error {
	o := defaultOptions()

	for _, opt := range opts {
		opt(o)
	}

	var err error

	// Zero attempts retries forever.
	for attempt := uint(0); o.attempts == 0 || Attempts(attempt) < o.attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = f(withAttempt(ctx, attempt))
		if err == nil {
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return p.error
		}

		if o.attempts != 0 && Attempts(attempt+1) >= o.attempts {
			break
		}

		if o.onRetry != nil {
			o.onRetry(attempt, err)
		}

		timer := time.NewTimer(o.jitter.apply(o.backoff.Delay(attempt)))

		select {
		case <-ctx.Done():
			timer.Stop()

			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}

	return err
}

// DoValue is Do for operations that produce a value. The zero value is
// returned alongside any error.
func DoValue[T any](ctx context.Context, f func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T

	err := Do(ctx, func(ctx context.Context) error {
		var err error

		out, err = f(ctx)

		return err
	}, opts...)
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}
