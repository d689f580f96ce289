package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceErrorWithCause creates a service error that wraps another error
func NewServiceErrorWithCause(code, message string, cause error) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// Error code constants
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeAuthentication  = "AUTHENTICATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeDatabase        = "DATABASE_ERROR"
	ErrCodeWeatherFetch    = "WEATHER_FETCH_ERROR"
	ErrCodeRuleEvaluation  = "RULE_EVALUATION_ERROR"
	ErrCodeMessageDelivery = "MESSAGE_DELIVERY_ERROR"
)

// Common constructors
func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewBadRequestError(message string) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// Engine error kinds. A weather fetch failure degrades the affected
// user to "no weather context" for the sweep; rule evaluation failures
// are caught per rule; delivery failures never roll back the persisted
// notification.
func NewWeatherFetchError(message string, cause error) error {
	return ServiceError{
		Code:       ErrCodeWeatherFetch,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewRuleEvaluationError(ruleName string, cause error) error {
	return ServiceError{
		Code:       ErrCodeRuleEvaluation,
		Message:    fmt.Sprintf("Rule evaluation failed: %s", ruleName),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewMessageDeliveryError(to string, cause error) error {
	return ServiceError{
		Code:       ErrCodeMessageDelivery,
		Message:    fmt.Sprintf("Message delivery failed: %s", to),
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func IsWeatherFetchError(err error) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == ErrCodeWeatherFetch
}
