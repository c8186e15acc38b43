package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: unresolved_label, depth_exceeded, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches another ExecutionError by code, so derived copies still
// compare equal to the predefined errors below.
func (e *ExecutionError) Is(target error) bool {
	var t *ExecutionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with formatting.
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Control-flow errors
	ErrUnresolvedLabel = &ExecutionError{
		Category: ErrCategoryControlFlow,
		Code:     "unresolved_label",
		Message:  "label not found",
	}
	ErrMissingStartLabel = &ExecutionError{
		Category: ErrCategoryControlFlow,
		Code:     "missing_start_label",
		Message:  "repeat requires a start label",
	}
	ErrDepthExceeded = &ExecutionError{
		Category: ErrCategoryControlFlow,
		Code:     "depth_exceeded",
		Message:  "macro inclusion nested too deeply",
	}

	// Configuration errors
	ErrInvalidSearchArea = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_search_area",
		Message:  "search area is empty",
	}
	ErrMissingTemplate = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_template",
		Message:  "image template is missing",
	}
	ErrMissingText = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_text",
		Message:  "search text is empty",
	}
	ErrMissingPath = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_path",
		Message:  "path is empty",
	}
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}

	// Collaborator errors
	ErrCaptureFailed = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "capture_failed",
		Message:  "screen capture failed",
	}
	ErrInputFailed = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "input_failed",
		Message:  "input injection failed",
	}
	ErrLoadFailed = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "load_failed",
		Message:  "could not load macro",
	}
	ErrOCRFailed = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "ocr_failed",
		Message:  "text recognition failed",
	}

	// Player errors
	ErrBusy = &ExecutionError{
		Category: ErrCategoryState,
		Code:     "busy",
		Message:  "player is not stopped",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CategoryOf returns the category of err, or ErrCategoryNone when err is
// not an ExecutionError.
func CategoryOf(err error) ErrorCategory {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ErrCategoryNone
}
