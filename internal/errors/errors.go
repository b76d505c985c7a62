package errors

import (
	"errors"
	"fmt"
)

// CoreError is the structured error type for sortcore.
// It carries a stable code, a category, and optional key-value details
// so callers can branch on failures without string matching.
type CoreError struct {
	// Code is the unique error code (e.g., "ERR_203_CORRUPT_RECORD").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with CoreError.
func (e *CoreError) Is(target error) bool {
	if t, ok := target.(*CoreError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CoreError) WithDetail(key, value string) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new CoreError with the given code, category, and message.
func New(code string, category Category, message string) *CoreError {
	return &CoreError{
		Code:     code,
		Message:  message,
		Category: category,
		Severity: SeverityError,
	}
}

// Newf creates a new CoreError with a formatted message.
func Newf(code string, category Category, format string, args ...any) *CoreError {
	return New(code, category, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message.
// Returns nil if err is nil.
func Wrap(err error, code string, category Category, message string) *CoreError {
	if err == nil {
		return nil
	}
	return &CoreError{
		Code:     code,
		Message:  message,
		Category: category,
		Severity: SeverityError,
		Cause:    err,
	}
}

// CodeOf extracts the error code from an error chain.
// Returns empty string if no CoreError is found.
func CodeOf(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
