package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents validation errors (400)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAuthentication represents authentication errors (401)
	ErrorTypeAuthentication ErrorType = "authentication"
	// ErrorTypeNotFound represents resource not found errors (404)
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeNotConfigured represents missing credentials or settings (500)
	ErrorTypeNotConfigured ErrorType = "not_configured"
	// ErrorTypeProvider represents upstream generation or payment errors (502)
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeCircuitBreaker represents an open circuit for an upstream (503)
	ErrorTypeCircuitBreaker ErrorType = "circuit_breaker"
	// ErrorTypeTimeout represents timeout errors (504)
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeInternal represents internal server errors (500)
	ErrorTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitzero"`
	StatusCode int       `json:"-"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// GetStatusCode returns the HTTP status code for the error
func (e *AppError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeProvider:
		return http.StatusBadGateway
	case ErrorTypeCircuitBreaker:
		return http.StatusServiceUnavailable
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// NewNotFoundError creates a not-found error for the named resource
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// NewNotConfiguredError reports a feature whose credentials are missing
func NewNotConfiguredError(feature string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotConfigured,
		Message:    fmt.Sprintf("%s is not configured", feature),
		Code:       "NOT_CONFIGURED",
		StatusCode: http.StatusInternalServerError,
	}
}

// NewProviderError creates a provider error
func NewProviderError(provider, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProvider,
		Message:    fmt.Sprintf("provider %s error: %s", provider, message),
		Code:       fmt.Sprintf("PROVIDER_%s_ERROR", provider),
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    fmt.Sprintf("operation %s timed out", operation),
		StatusCode: http.StatusGatewayTimeout,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewCircuitBreakerError creates a circuit breaker error
func NewCircuitBreakerError(service string) *AppError {
	return &AppError{
		Type:       ErrorTypeCircuitBreaker,
		Message:    fmt.Sprintf("service %s is currently unavailable (circuit breaker open)", service),
		Code:       "CIRCUIT_BREAKER_OPEN",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	wrapped := errors.New(message)
	if cause != nil {
		wrapped = fmt.Errorf("%s: %w", message, cause)
	}
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		Cause:      wrapped,
	}
}

// SanitizeError sanitizes an error for external consumption
func SanitizeError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:       appErr.Type,
			Message:    appErr.Message,
			Code:       appErr.Code,
			StatusCode: appErr.GetStatusCode(),
			Retryable:  appErr.Retryable,
		}
	}

	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
	}
}
