package models

import "fmt"

// ErrorKind classifies engine failures so the HTTP layer can map them to
// status codes without inspecting message text.
type ErrorKind string

const (
	ErrBadRequest      ErrorKind = "bad_request"
	ErrNotFound        ErrorKind = "not_found"
	ErrConflict        ErrorKind = "conflict"
	ErrPolicyViolation ErrorKind = "policy_violation"
	ErrUnprocessable   ErrorKind = "unprocessable"
	ErrInternal        ErrorKind = "internal"
)

// AppError is the structured failure type returned by the booking, route,
// seat and permit engines.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Detail carries machine-readable context, e.g. the list of seat ids
	// that were unavailable.
	Detail map[string]interface{} `json:"detail,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewAppError creates an AppError without detail
func NewAppError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WithDetail attaches a detail entry and returns the error for chaining
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Detail == nil {
		e.Detail = make(map[string]interface{})
	}
	e.Detail[key] = value
	return e
}

// BadRequestError creates a bad_request error
func BadRequestError(message string) *AppError {
	return NewAppError(ErrBadRequest, message)
}

// NotFoundError creates a not_found error
func NotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message)
}

// ConflictError creates a conflict error
func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message)
}

// PolicyViolationError creates a policy_violation error
func PolicyViolationError(message string) *AppError {
	return NewAppError(ErrPolicyViolation, message)
}

// UnprocessableError creates an unprocessable error
func UnprocessableError(message string) *AppError {
	return NewAppError(ErrUnprocessable, message)
}

// InternalError wraps an unexpected failure from a collaborator
func InternalError(message string) *AppError {
	return NewAppError(ErrInternal, message)
}
