package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypeCancelled     ErrorType = "cancelled"
	ErrorTypeLimitExceeded ErrorType = "limit_exceeded"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without an underlying cause
func New(errorType ErrorType, code int, message string) *Error {
	return &Error{Type: errorType, Code: code, Message: message}
}

// Wrap creates a typed error around cause
func Wrap(errorType ErrorType, code int, message string, cause error) *Error {
	return &Error{Type: errorType, Code: code, Message: message, Err: cause}
}

// FromStatus classifies a non-2xx HTTP status code. It returns nil for 2xx.
func FromStatus(statusCode int) *Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		return New(ErrorTypeAuth, statusCode, "authentication required")
	case statusCode == http.StatusForbidden:
		return New(ErrorTypeAuth, statusCode, "access forbidden")
	case statusCode == http.StatusNotFound:
		return New(ErrorTypeNotFound, statusCode, "resource not found")
	case statusCode == http.StatusTooManyRequests:
		return New(ErrorTypeRateLimit, statusCode, "rate limit exceeded")
	case statusCode >= 500:
		return New(ErrorTypeServerError, statusCode, "server error")
	default:
		return New(ErrorTypeUnknown, statusCode, fmt.Sprintf("unexpected status code: %d", statusCode))
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not typed
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given ErrorType
func Is(err error, errorType ErrorType) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Type == errorType
}

// IsTransport reports whether err came from the HTTP layer
func IsTransport(err error) bool {
	var apiErr *Error
	if !stderrors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeAuth, ErrorTypeNotFound,
		ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// IsDecode reports whether err is a response decoding failure
func IsDecode(err error) bool {
	return Is(err, ErrorTypeParsing)
}

// IsAuth reports whether the server rejected the bearer token.
// Callers use this to trigger a token refresh outside this module.
func IsAuth(err error) bool {
	return Is(err, ErrorTypeAuth)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
