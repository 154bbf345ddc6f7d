package services

import "fmt"

// ===============================
// ERROR TYPES
// ===============================

// ServiceError is a structured service error carrying the failure taxonomy
// used to decide between degrade and propagate per operation.
type ServiceError struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation/precondition error.
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:    "VALIDATION_ERROR",
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:    "NOT_FOUND",
		Message: message,
	}
}

// NewInternalError creates an internal error wrapping a downstream failure.
func NewInternalError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:    "INTERNAL_ERROR",
		Message: message,
		Cause:   cause,
	}
}
