package resilience

import "time"

// Breaker configures the circuit breaker kept per outbound operation.
type Breaker struct {
	Enabled       bool
	MinRequests   uint32
	FailureRatio  float64
	OpenTimeout   time.Duration
	HalfOpenCalls uint32
}

// Backoff spaces out retries of one call.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Policy guards one collaborator. Attempts counts the first call too, so the
// zero value never retries.
type Policy struct {
	Attempts int
	Backoff  Backoff
	Breaker  Breaker
}

func DefaultBreaker() Breaker {
	return Breaker{
		Enabled:       true,
		MinRequests:   5,
		FailureRatio:  0.5,
		OpenTimeout:   30 * time.Second,
		HalfOpenCalls: 1,
	}
}

// RecognitionPolicy lets a text recognizer retry transient failures.
func RecognitionPolicy(attempts int, breaker Breaker) Policy {
	return Policy{
		Attempts: attempts,
		Backoff:  Backoff{Initial: 200 * time.Millisecond, Max: time.Second, Multiplier: 2},
		Breaker:  breaker,
	}
}

func (p Policy) normalize() Policy {
	out := p
	if out.Attempts < 1 {
		out.Attempts = 1
	}
	if out.Backoff.Initial <= 0 {
		out.Backoff.Initial = 200 * time.Millisecond
	}
	if out.Backoff.Max < out.Backoff.Initial {
		out.Backoff.Max = out.Backoff.Initial
	}
	if out.Backoff.Multiplier < 1 {
		out.Backoff.Multiplier = 2
	}
	out.Breaker = out.Breaker.normalize()
	return out
}

func (b Breaker) normalize() Breaker {
	out := b
	def := DefaultBreaker()
	if out.MinRequests == 0 {
		out.MinRequests = def.MinRequests
	}
	if out.FailureRatio <= 0 || out.FailureRatio > 1 {
		out.FailureRatio = def.FailureRatio
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = def.OpenTimeout
	}
	if out.HalfOpenCalls == 0 {
		out.HalfOpenCalls = def.HalfOpenCalls
	}
	return out
}
