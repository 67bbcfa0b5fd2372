package resilience

import (
	"context"
	"time"
)

// Executor retries a call inside one breaker slot: the breaker sees the
// outcome of the whole sequence, not of each attempt. Text recognizers use
// it; with Attempts of 1 it behaves like a plain CircuitBreaker.
type Executor struct {
	policy  Policy
	breaker *CircuitBreaker
}

func NewExecutor(policy Policy, opts ...Option) *Executor {
	policy = policy.normalize()
	return &Executor{
		policy:  policy,
		breaker: NewCircuitBreaker(policy.Breaker, opts...),
	}
}

// Policy returns the normalized policy the executor runs with.
func (e *Executor) Policy() Policy {
	return e.policy
}

func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if classify == nil {
		classify = countAll
	}
	if fn == nil {
		return e.breaker.Call(ctx, operation, nil, classify)
	}
	return e.breaker.Call(ctx, operation, func(ctx context.Context) error {
		return e.retry(ctx, operationName(operation), fn, classify)
	}, classify)
}

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	wait := e.policy.Backoff.Initial
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		err = fn(ctx)
		if err == nil || attempt >= e.policy.Attempts || !classify(err).Retry {
			return err
		}

		e.breaker.hooks.logger.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.policy.Attempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		if !sleep(ctx, wait) {
			return err
		}
		wait = min(time.Duration(float64(wait)*e.policy.Backoff.Multiplier), e.policy.Backoff.Max)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
