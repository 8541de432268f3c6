// Package errors provides structured error types for the Census system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryArgument   ErrorCategory = "ARGUMENT"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryQuery      ErrorCategory = "QUERY"
	ErrCategorySnapshot   ErrorCategory = "SNAPSHOT"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidBirthDate = "INVALID_BIRTH_DATE"
	CodeInvalidGender    = "INVALID_GENDER"
	CodeEmptyName        = "EMPTY_NAME"

	// Argument codes
	CodeMissingArgument = "MISSING_ARGUMENT"
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// Storage codes
	CodeOpenFailed   = "OPEN_FAILED"
	CodeWriteFailed  = "WRITE_FAILED"
	CodeSchemaFailed = "SCHEMA_FAILED"
	CodeBatchAborted = "BATCH_ABORTED"

	// Query codes
	CodeQueryFailed = "QUERY_FAILED"
	CodeScanFailed  = "SCAN_FAILED"

	// Snapshot codes
	CodeExportFailed  = "EXPORT_FAILED"
	CodeRestoreFailed = "RESTORE_FAILED"
	CodeCorruptStream = "CORRUPT_STREAM"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// CensusError is the structured error type used throughout the system.
type CensusError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *CensusError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CensusError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *CensusError) Is(target error) bool {
	var t *CensusError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new CensusError.
func New(category ErrorCategory, code, message string) *CensusError {
	return &CensusError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new CensusError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *CensusError {
	return &CensusError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ce *CensusError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a CensusError.
func GetCategory(err error) ErrorCategory {
	var ce *CensusError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a CensusError.
func GetCode(err error) string {
	var ce *CensusError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Loads never retry a
// failed batch, so only snapshot uploads qualify.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategorySnapshot && code == CodeExportFailed
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *CensusError {
	return New(ErrCategoryValidation, code, message)
}

func NewArgumentError(code, message string) *CensusError {
	return New(ErrCategoryArgument, code, message)
}

func NewStorageError(code, message string, cause error) *CensusError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewQueryError(code, message string, cause error) *CensusError {
	return Wrap(ErrCategoryQuery, code, message, cause)
}

func NewSnapshotError(code, message string, cause error) *CensusError {
	return Wrap(ErrCategorySnapshot, code, message, cause)
}

func NewInternalError(message string, cause error) *CensusError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
