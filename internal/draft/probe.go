package draft

import (
	"context"
	"time"
)

// probe runs one bounded external call. It returns the value and true on
// success, or the zero value and false when the collaborator errored or the
// timeout elapsed. Rule logic consumes only this value-or-degraded result,
// which keeps the rules themselves synchronous and deterministic under a
// fake oracle.
func probe[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, bool) {
	var zero T
	if call == nil {
		return zero, false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	results := make(chan outcome, 1)
	go func() {
		value, err := call(ctx)
		results <- outcome{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, false
	case result := <-results:
		if result.err != nil {
			return zero, false
		}
		return result.value, true
	}
}
