package portal

import "context"

// Attempt is one step in an ordered fallback chain. Do performs the call;
// Continue decides, given the failure, whether the chain may move on to the
// next attempt. A nil Continue stops the chain on any failure.
type Attempt[T any] struct {
	Name     string
	Do       func(ctx context.Context) (T, error)
	Continue func(err error) bool
}

// RunChain evaluates attempts strictly in order. The first success wins and
// short-circuits the rest. A failure whose Continue predicate returns false
// stops the chain and surfaces that error. When every attempt fails, the
// last error is surfaced.
func RunChain[T any](ctx context.Context, logger Logger, attempts []Attempt[T]) (T, error) {
	var zero T
	var lastErr error

	if logger == nil {
		logger = defLogger{}
	}

	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := attempt.Do(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		logger.Debug("attempt %s failed: %s", attempt.Name, err)

		if attempt.Continue == nil || !attempt.Continue(err) {
			return zero, err
		}
	}

	return zero, lastErr
}

// ContinueAlways moves the chain on regardless of the failure.
func ContinueAlways(error) bool {
	return true
}

// ContinueOnStatus moves the chain on only when the failure is an API error
// with one of the given HTTP statuses.
func ContinueOnStatus(statuses ...int) func(error) bool {
	return func(err error) bool {
		for _, status := range statuses {
			if IsStatus(err, status) {
				return true
			}
		}
		return false
	}
}
