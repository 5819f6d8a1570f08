package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrAttemptTimeout is returned when a single attempt outlives its deadline.
var ErrAttemptTimeout = eris.New("resilience: attempt timed out")

// Sleeper suspends the caller for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper waits on a timer and returns early with ctx.Err() on cancellation.
var TimerSleeper Sleeper = SleeperFunc(Sleep)

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithTimeout races fn against a timer of d. Whichever finishes first wins:
// if the timer fires, ErrAttemptTimeout is returned even when fn ignores its
// context and keeps running in the background. A zero d calls fn directly.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	// Buffered so the goroutine can exit after a timeout.
	done := make(chan result, 1)
	go func() {
		v, err := fn(attemptCtx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-attemptCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, eris.Wrapf(ErrAttemptTimeout, "exceeded %s", d)
	}
}
