// Package errors categorizes failures raised by the reporter so the HTTP API
// can map them to status codes and the fetcher can decide what to retry.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/nft-wallet-report/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryUserInput  ErrorCategory = "user_input"
	CategoryValidation ErrorCategory = "validation"
	CategorySystem     ErrorCategory = "system"
	CategoryProvider   ErrorCategory = "provider"
	CategoryDatabase   ErrorCategory = "database"
	CategoryRateLimit  ErrorCategory = "rate_limit"
	CategoryBudget     ErrorCategory = "budget"
)

// Error codes surfaced in API responses
const (
	CodeInvalidAddress   = "INVALID_ADDRESS"
	CodeInvalidCommand   = "INVALID_COMMAND"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeProviderError    = "PROVIDER_ERROR"
	CodeProviderTimeout  = "PROVIDER_TIMEOUT"
	CodeProviderRejected = "PROVIDER_RATE_LIMIT"
	CodeBudgetExhausted  = "BUDGET_EXHAUSTED"
	CodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	CodeDatabase         = "DATABASE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to the wire representation used by the API
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidAddressError reports a wallet argument that is not a 0x-prefixed 20-byte hex address
func NewInvalidAddressError(address string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidAddress,
		Message:    fmt.Sprintf("invalid wallet address: %s", address),
		Details:    map[string]interface{}{"address": address},
	}
}

// NewInvalidCommandError reports a chat command that could not be parsed
func NewInvalidCommandError(command, usage string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidCommand,
		Message:    usage,
		Details:    map[string]interface{}{"command": command},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewRateLimitError is returned to API clients that exceeded their request rate
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimit,
		Message:    "rate limit exceeded",
		Details:    map[string]interface{}{"retryAfter": retryAfter},
	}
}

// NewBudgetExhaustedError reports that the shared provider credit budget did not
// free up within the allowed wait
func NewBudgetExhaustedError(method string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryBudget,
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeBudgetExhausted,
		Message:    fmt.Sprintf("provider credit budget exhausted for %s", method),
		Cause:      cause,
		Details:    map[string]interface{}{"method": method},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabase,
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details:    map[string]interface{}{"operation": operation},
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(service string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("service unavailable: %s", service),
		Cause:      cause,
		Details:    map[string]interface{}{"service": service},
	}
}

// NewProviderError wraps a transport or decoding failure from the NFT data provider
func NewProviderError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       CodeProviderError,
		Message:    fmt.Sprintf("data provider error: %s", provider),
		Cause:      cause,
		Details:    map[string]interface{}{"provider": provider},
	}
}

// NewProviderTimeoutError reports a provider call that exceeded its deadline
func NewProviderTimeoutError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusGatewayTimeout,
		Code:       CodeProviderTimeout,
		Message:    fmt.Sprintf("data provider timeout: %s", provider),
		Cause:      cause,
		Details:    map[string]interface{}{"provider": provider},
	}
}

// NewProviderRateLimitError reports an HTTP 429 from the provider
func NewProviderRateLimitError(provider string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeProviderRejected,
		Message:    fmt.Sprintf("data provider rate limit exceeded: %s", provider),
		Details:    map[string]interface{}{"provider": provider},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewProviderTimeoutError("unknown", err)
	}

	return NewInternalError("unexpected error", err)
}

func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	out := &CategorizedError{
		Code:    err.Code,
		Message: err.Message,
		Details: err.Details,
	}
	switch err.Code {
	case CodeInvalidAddress, CodeInvalidCommand, CodeInvalidParameter:
		out.Category = CategoryUserInput
		out.StatusCode = http.StatusBadRequest
	case CodeRateLimit:
		out.Category = CategoryRateLimit
		out.StatusCode = http.StatusTooManyRequests
	case CodeBudgetExhausted:
		out.Category = CategoryBudget
		out.StatusCode = http.StatusServiceUnavailable
	default:
		out.Category = CategorySystem
		out.StatusCode = http.StatusInternalServerError
	}
	return out
}

// IsRetryable reports whether another attempt could plausibly succeed.
// Provider timeouts and 5xx-class provider failures qualify; an exhausted
// budget and user input errors do not.
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryProvider, CategoryDatabase:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
