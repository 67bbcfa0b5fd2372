package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sony/gobreaker/v2"
)

// StateListener is told about every breaker transition, keyed by operation.
type StateListener func(operation string, from, to gobreaker.State)

type Option func(*hooks)

type hooks struct {
	logger  *slog.Logger
	onState StateListener
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *hooks) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithStateListener(listener StateListener) Option {
	return func(h *hooks) {
		h.onState = listener
	}
}

// CircuitBreaker runs each call exactly once and stops calling an operation
// whose recent failure ratio crossed the limit. It is what the vehicle lookup
// uses, since that fetch is never repeated.
type CircuitBreaker struct {
	cfg   Breaker
	hooks hooks

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewCircuitBreaker(cfg Breaker, opts ...Option) *CircuitBreaker {
	h := hooks{logger: slog.Default()}
	for _, opt := range opts {
		opt(&h)
	}
	return &CircuitBreaker{
		cfg:      cfg.normalize(),
		hooks:    h,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Call runs fn once. Errors the classifier does not count leave the breaker
// untouched. A nil classifier counts every error.
func (b *CircuitBreaker) Call(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: %s callback is nil", operation)
	}
	if classify == nil {
		classify = countAll
	}
	if !b.cfg.Enabled {
		return fn(ctx)
	}
	_, err := b.forOperation(operationName(operation), classify).Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// State reports the breaker state of operation; closed if it never ran.
func (b *CircuitBreaker) State(operation string) gobreaker.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[operationName(operation)]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

func (b *CircuitBreaker) forOperation(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[operation]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: b.cfg.HalfOpenCalls,
		Timeout:     b.cfg.OpenTimeout,
		ReadyToTrip: b.readyToTrip,
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).CountFailure
		},
		OnStateChange: b.stateChanged,
	})
	b.breakers[operation] = cb
	return cb
}

func (b *CircuitBreaker) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < b.cfg.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= b.cfg.FailureRatio
}

func (b *CircuitBreaker) stateChanged(operation string, from, to gobreaker.State) {
	b.hooks.logger.Warn("circuit_breaker_state_change", "operation", operation, "from", from.String(), "to", to.String())
	if b.hooks.onState != nil {
		b.hooks.onState(operation, from, to)
	}
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func operationName(operation string) string {
	if op := strings.TrimSpace(operation); op != "" {
		return op
	}
	return "unknown"
}
