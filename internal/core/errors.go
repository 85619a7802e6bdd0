// Package core provides shared domain types and the error taxonomy for the API.
package core

import (
	"fmt"
	"net/http"
)

// ErrorType classifies an API error for clients and for status-code mapping.
type ErrorType string

const (
	// ErrorTypeValidation indicates a malformed or incomplete request (400)
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeAuthentication indicates a missing or invalid session (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
	// ErrorTypeForbidden indicates an authenticated but unauthorized request (403)
	ErrorTypeForbidden ErrorType = "forbidden_error"
	// ErrorTypeNotFound indicates an unknown resource id (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeConflict indicates a uniqueness violation such as a duplicate email (409)
	ErrorTypeConflict ErrorType = "conflict_error"
	// ErrorTypeRateLimit indicates the fixed-window limit was exceeded (429)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInternal indicates an upstream or unexpected failure (500)
	ErrorTypeInternal ErrorType = "internal_error"
)

// APIError is the error type handed across the router boundary.
// Everything below the boundary wraps causes with %w; the boundary
// converts APIError to a JSON body and swallows the internal cause.
type APIError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	// ResetTime is set only for rate-limit errors (epoch millis of the next window).
	ResetTime int64 `json:"resetTime,omitempty"`
	// Original error for logs, never exposed to clients.
	Err error `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status code for this error, defaulting by type.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to the wire shape: {"error": <message>, ...}.
// All endpoints return errors as {error: string} plus optional fields.
func (e *APIError) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"error": e.Message,
	}
	if e.ResetTime != 0 {
		body["resetTime"] = e.ResetTime
	}
	return body
}

// NewValidationError creates a validation error (400)
func NewValidationError(message string, err error) *APIError {
	return &APIError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewAuthenticationError creates an authentication error (401)
func NewAuthenticationError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error (403)
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates a not found error (404)
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error (409)
func NewConflictError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewRateLimitError creates a rate limit error (429) carrying the window reset time.
func NewRateLimitError(message string, resetTime int64) *APIError {
	return &APIError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		ResetTime:  resetTime,
	}
}

// NewInternalError creates an internal error (500). The message shown to
// clients is generic; the cause is attached for server-side logging only.
func NewInternalError(err error) *APIError {
	return &APIError{
		Type:       ErrorTypeInternal,
		Message:    "an unexpected error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
