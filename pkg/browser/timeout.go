package browser

import (
	"context"
	"time"
)

// callWithTimeout runs a transport operation with a hard per-attempt bound.
// The underlying primitive has no cancellation channel, so on timeout the
// call keeps running in its goroutine and its eventual result is discarded.
func callWithTimeout[T any](ctx context.Context, operation string, timeout time.Duration, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	var zero T
	ch := make(chan result, 1)
	go func() {
		value, err := fn()
		ch <- result{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-timer.C:
		return zero, &TransportTimeoutError{Operation: operation, Timeout: timeout.String()}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// callWithTimeoutErr is callWithTimeout for operations with no return value.
func callWithTimeoutErr(ctx context.Context, operation string, timeout time.Duration, fn func() error) error {
	_, err := callWithTimeout(ctx, operation, timeout, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
