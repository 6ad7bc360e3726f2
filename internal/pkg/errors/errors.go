// Package errors provides standardized API error types.
package errors

import (
	"errors"
	"net/http"
)

// Error codes returned to clients alongside the message.
const (
	CodeValidation         = "validation_error"
	CodeConflict           = "conflict"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthorized       = "unauthorized"
	CodeOAuth              = "oauth_error"
	CodeInternal           = "internal_error"
	CodeRateLimited        = "rate_limited"
	CodeBadRequest         = "bad_request"
	CodeServiceUnavailable = "service_unavailable"
)

// APIError represents a standardized API error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Field      string `json:"field,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
		Field:      e.Field,
	}
}

// Is matches two APIErrors by code, so errors.Is works against the sentinels below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.StatusCode == t.StatusCode
}

// Standard error definitions
var (
	// ErrInvalidCredentials is returned for a failed login or a session whose user is gone.
	// The message is identical for unknown users and wrong passwords.
	ErrInvalidCredentials = &APIError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid credentials",
		StatusCode: http.StatusBadRequest,
	}

	// ErrUnauthorized is returned when the session cookie is missing or invalid.
	ErrUnauthorized = &APIError{
		Code:       CodeUnauthorized,
		Message:    "Unauthorized - No Token Provided",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrBadRequest is returned when the request is malformed.
	ErrBadRequest = &APIError{
		Code:       CodeBadRequest,
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	// ErrOAuth is returned when the identity provider exchange fails.
	ErrOAuth = &APIError{
		Code:       CodeOAuth,
		Message:    "Internal Server Error",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrRateLimited is returned when rate limits are exceeded.
	ErrRateLimited = &APIError{
		Code:       CodeRateLimited,
		Message:    "Too many requests. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}

	// ErrInternal is returned for unexpected server errors.
	ErrInternal = &APIError{
		Code:       CodeInternal,
		Message:    "Internal Server Error",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrServiceUnavailable is returned when a feature is not configured.
	ErrServiceUnavailable = &APIError{
		Code:       CodeServiceUnavailable,
		Message:    "Service temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Field:      field,
	}
}

// NewConflictError creates a conflict error. Conflicts are reported as 400.
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// AsAPIError converts an error to an APIError if possible.
// Returns ErrInternal if the error is not an APIError.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
