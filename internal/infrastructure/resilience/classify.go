package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Outcome says what a failed call means: whether another attempt may help
// and whether the breaker should count it against the service.
type Outcome struct {
	Retry        bool
	CountFailure bool
}

type Classifier func(err error) Outcome

// StatusError is a non-2xx reply from an upstream HTTP service.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s status %d: %s", e.Service, e.StatusCode, e.Body)
}

// ClassifyHTTP is shared by the HTTP collaborators. Cancellation and an open
// breaker are ignored. 408, 429 and 5xx replies and network errors are
// retryable and counted. Any other 4xx is the caller's fault (bad plate,
// unknown vehicle, rejected key) and is neither. Anything else, such as an
// undecodable body, is counted but not retried.
func ClassifyHTTP(err error) Outcome {
	if err == nil || errors.Is(err, context.Canceled) || IsCircuitOpen(err) {
		return Outcome{}
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if retryableStatus(statusErr.StatusCode) {
			return Outcome{Retry: true, CountFailure: true}
		}
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return Outcome{}
		}
		return Outcome{CountFailure: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Outcome{Retry: true, CountFailure: true}
	}
	return Outcome{CountFailure: true}
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func countAll(error) Outcome {
	return Outcome{CountFailure: true}
}
