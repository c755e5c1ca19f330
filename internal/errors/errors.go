package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a usertags error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrInvalidFilter  ErrorCode = "INVALID_FILTER"  // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrSaveFailed     ErrorCode = "SAVE_FAILED"     // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// TagError represents a structured error with code, status, and details.
type TagError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *TagError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TagError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TagError {
	return &TagError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewValidation creates a 400 error carrying per-field messages.
func NewValidation(fields map[string]string) *TagError {
	details := make(map[string]any, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return &TagError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: "validation failed",
		Details: details,
	}
}

// NewNotFound creates a 404 error for when a user record cannot be found.
func NewNotFound(userID string) *TagError {
	return &TagError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("user not found: %s", userID),
		Details: map[string]any{"user_id": userID},
	}
}

// NewFileNotFound creates a 404 error for import paths that do not exist.
func NewFileNotFound(path string) *TagError {
	return &TagError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInvalidFilter creates a 422 error for a filter that failed to parse or compile.
func NewInvalidFilter(mode, msg string) *TagError {
	return &TagError{
		Code:    ErrInvalidFilter,
		Status:  422,
		Message: msg,
		Details: map[string]any{"mode": mode},
	}
}

// NewCancelled creates an error for an operation whose context was cancelled.
func NewCancelled(op string) *TagError {
	return &TagError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewSaveFailed creates a 500 error when the storage backend rejects a write.
func NewSaveFailed(err error) *TagError {
	msg := "save failed"
	if err != nil {
		msg = "save failed: " + err.Error()
	}
	return &TagError{
		Code:    ErrSaveFailed,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TagError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TagError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a TagError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TagError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// As is errors.As for callers that import this package under its own name.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
