package embedder

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyInput is returned when blank or whitespace-only text is
	// submitted for embedding. Never retried.
	ErrEmptyInput = errors.New("empty input text")

	// ErrUnavailable means the provider is not usable as configured,
	// typically a missing credential.
	ErrUnavailable = errors.New("provider unavailable")
)

// ProviderError is a failed call against the embedding API. Status 0 means
// the request never produced an HTTP response (timeout, connection reset).
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Message)
}

// Retryable reports whether the failure is worth another attempt.
// Transport failures, timeouts, rate limiting and server errors are; auth
// failures and malformed requests are not.
func (e *ProviderError) Retryable() bool {
	switch {
	case e.Status == 0:
		return true
	case e.Status == http.StatusRequestTimeout, e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable classifies an embedding failure for the backoff loop.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrUnavailable) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}
