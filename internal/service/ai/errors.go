package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured is returned when no chat model credentials are available.
	ErrNotConfigured = errors.New("ai service not configured")
	// ErrRateLimited is returned when the provider answered 429.
	ErrRateLimited = errors.New("ai provider rate limit exceeded")
	// ErrQuotaExhausted is returned when the provider answered 402.
	ErrQuotaExhausted = errors.New("ai provider credits exhausted")
	// ErrModel covers every other provider failure.
	ErrModel = errors.New("ai provider error")
	// ErrMalformedCompletion is returned when a completion body cannot be decoded.
	ErrMalformedCompletion = errors.New("malformed completion")
)

// StatusError carries the HTTP status a provider answered with.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// classify maps a provider error onto the package sentinels.
func classify(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrModel, err)
}
