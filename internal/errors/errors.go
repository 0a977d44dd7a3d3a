// Package errors provides a lightweight structured error type (StubforgeError)
// for category-based classification in the orchestrator and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a stubforge error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build and processing errors
	CategoryGeneration ErrorCategory = "generation"
	CategoryState      ErrorCategory = "state"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the module's build
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// StubforgeError is a structured error with category and context
type StubforgeError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for StubforgeError
type ContextFields map[string]any

// Error implements the error interface
func (e *StubforgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *StubforgeError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *StubforgeError) WithContext(key string, value any) *StubforgeError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new StubforgeError
func New(category ErrorCategory, severity ErrorSeverity, message string) *StubforgeError {
	return &StubforgeError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new StubforgeError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *StubforgeError {
	return &StubforgeError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if sfe, ok := err.(*StubforgeError); ok {
		return sfe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a StubforgeError
func GetCategory(err error) ErrorCategory {
	if sfe, ok := err.(*StubforgeError); ok {
		return sfe.Category
	}
	return CategoryInternal
}
