package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeParse            = "PARSE_ERROR"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeResolution       = "RESOLUTION_CONFLICT"
	ErrCodeCommitFailure    = "COMMIT_FAILURE"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeQueryTimeout     = "QUERY_TIMEOUT"
	ErrCodeNotFound         = "NOT_FOUND"
)

// AppError represents an application error with a classification code
type AppError struct {
	Code    string // Error code (e.g., "COMMIT_FAILURE", "QUERY_TIMEOUT")
	Message string // Human-readable error message
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err (or any error it wraps) is an AppError with the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// NewParseError creates a new PARSE_ERROR
func NewParseError(reason string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeParse,
		Message: reason,
		Err:     err,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
	}
}

// NewResolutionConflict creates a new RESOLUTION_CONFLICT error
func NewResolutionConflict(key string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeResolution,
		Message: fmt.Sprintf("ambiguous entity match for %q: %s", key, reason),
	}
}

// NewCommitFailure creates a new COMMIT_FAILURE error
func NewCommitFailure(batchSeq int, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCommitFailure,
		Message: fmt.Sprintf("batch %d commit failed", batchSeq),
		Err:     err,
	}
}

// NewStoreUnavailable creates a new STORE_UNAVAILABLE error
func NewStoreUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrCodeStoreUnavailable,
		Message: "store unreachable",
		Err:     err,
	}
}

// NewQueryTimeout creates a new QUERY_TIMEOUT error
func NewQueryTimeout(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeQueryTimeout,
		Message: fmt.Sprintf("query %s exceeded its time budget", operation),
		Err:     err,
	}
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}
