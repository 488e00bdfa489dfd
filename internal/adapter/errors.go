// Package adapter talks to the Ankr multichain API and turns its paginated
// NFT transfer responses into typed records.
package adapter

import (
	"errors"
	"fmt"

	"github.com/nft-wallet-report/internal/circuitbreaker"
	apperrors "github.com/nft-wallet-report/internal/errors"
)

// Sentinel errors for provider failures
var (
	// ErrInvalidAddress is returned for wallet arguments that are not 20-byte hex addresses
	ErrInvalidAddress = errors.New("invalid address format")

	// ErrProviderUnavailable covers network errors and 5xx responses
	ErrProviderUnavailable = errors.New("data provider unavailable")

	// ErrProviderRateLimit is returned for HTTP 429
	ErrProviderRateLimit = errors.New("provider rate limit exceeded")

	// ErrProviderTimeout is returned when a single call exceeds its deadline
	ErrProviderTimeout = errors.New("provider request timeout")

	// ErrProviderRejected covers 4xx responses other than 429
	ErrProviderRejected = errors.New("provider rejected request")

	// ErrMalformedResponse is returned when the body is not valid JSON-RPC
	ErrMalformedResponse = errors.New("malformed provider response")
)

// AdapterError wraps errors with additional context
type AdapterError struct {
	Provider string
	Op       string
	Err      error
	Details  map[string]interface{}
}

func (e *AdapterError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(provider, op string, err error, details map[string]interface{}) *AdapterError {
	return &AdapterError{
		Provider: provider,
		Op:       op,
		Err:      err,
		Details:  details,
	}
}

// IsRetryableProviderError reports whether another attempt at the same page
// could succeed. Malformed bodies and 4xx rejections are final.
func IsRetryableProviderError(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, ErrProviderRateLimit)
}

// CategorizeFetchError maps a fetch failure onto the service error
// categories. Budget errors keep their own category; an open circuit is
// reported as the provider being unavailable.
func CategorizeFetchError(err error) *apperrors.CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *apperrors.CategorizedError
	switch {
	case errors.As(err, &catErr):
		return catErr
	case errors.Is(err, ErrProviderTimeout):
		return apperrors.NewProviderTimeoutError(ProviderAnkr, err)
	case errors.Is(err, ErrProviderRateLimit):
		rl := apperrors.NewProviderRateLimitError(ProviderAnkr)
		rl.Cause = err
		return rl
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return apperrors.NewServiceUnavailableError(ProviderAnkr, err)
	default:
		return apperrors.NewProviderError(ProviderAnkr, err)
	}
}
