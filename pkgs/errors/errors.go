package errors

import (
	"fmt"
)

// Error types for environment failures. Problems in the batch file itself
// are reported as Diagnostics, never as Go errors.
const (
	// Input/File errors
	ErrInputRead    = "INPUT_READ_ERROR"
	ErrFileNotFound = "FILE_NOT_FOUND"

	// Configuration errors
	ErrConfigRead    = "CONFIG_READ_ERROR"
	ErrConfigParse   = "CONFIG_PARSE_ERROR"
	ErrConfigSchema  = "CONFIG_SCHEMA_ERROR"
	ErrConfigVersion = "CONFIG_VERSION_ERROR"
	ErrConfigInvalid = "CONFIG_INVALID"

	// Output errors
	ErrEncode = "ENCODE_ERROR"

	// Submission errors
	ErrSubmission = "SUBMISSION_ERROR"

	// Watcher errors
	ErrWatch = "WATCH_ERROR"
)

// BatchError represents a structured error with type and context
type BatchError struct {
	Type    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *BatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows error unwrapping
func (e *BatchError) Unwrap() error {
	return e.Cause
}

// New creates a new BatchError
func New(errorType, message string) *BatchError {
	return &BatchError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap creates a new BatchError wrapping an existing error
func Wrap(errorType, message string, cause error) *BatchError {
	return &BatchError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BatchError) WithContext(key string, value interface{}) *BatchError {
	e.Context[key] = value
	return e
}

// GetContext returns context value by key
func (e *BatchError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// NewInputError creates an input-related error
func NewInputError(message string, cause error) *BatchError {
	return Wrap(ErrInputRead, message, cause)
}

// NewConfigError creates a configuration error of the given type for a file
func NewConfigError(errorType, path string, cause error) *BatchError {
	msg := "invalid environment"
	if path != "" {
		msg = fmt.Sprintf("invalid environment %s", path)
	}
	return Wrap(errorType, msg, cause).WithContext("path", path)
}

// NewSubmissionError reports why a batch cannot be submitted
func NewSubmissionError(message string, errorCount int) *BatchError {
	return New(ErrSubmission, message).WithContext("errors", errorCount)
}

// IsErrorType checks if an error (or any error it wraps) is of a specific type
func IsErrorType(err error, errorType string) bool {
	for err != nil {
		if batchErr, ok := err.(*BatchError); ok && batchErr.Type == errorType {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
