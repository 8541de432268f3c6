package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCensusError_Error(t *testing.T) {
	err := New(ErrCategoryStorage, CodeWriteFailed, "write failed")
	expected := "[STORAGE:WRITE_FAILED] write failed"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestCensusError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := Wrap(ErrCategoryStorage, CodeWriteFailed, "write failed", cause)
	expected := "[STORAGE:WRITE_FAILED] write failed: database is locked"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestCensusError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryQuery, CodeQueryFailed, "query failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestCensusError_Is(t *testing.T) {
	err1 := New(ErrCategoryValidation, CodeInvalidBirthDate, "first")
	err2 := New(ErrCategoryValidation, CodeInvalidBirthDate, "second")
	err3 := New(ErrCategoryValidation, CodeInvalidGender, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		code     string
		want     bool
	}{
		{ErrCategorySnapshot, CodeExportFailed, true},
		{ErrCategoryStorage, CodeWriteFailed, false},
		{ErrCategoryStorage, CodeBatchAborted, false},
		{ErrCategoryValidation, CodeInvalidBirthDate, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "msg")
		if got := IsRetryable(err); got != tt.want {
			t.Errorf("IsRetryable(%s:%s) = %v, want %v", tt.category, tt.code, got, tt.want)
		}
	}

	if IsRetryable(fmt.Errorf("plain error")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := NewArgumentError(CodeMissingArgument, "mode is required")
	if GetCategory(err) != ErrCategoryArgument {
		t.Errorf("got category %q, want %q", GetCategory(err), ErrCategoryArgument)
	}
	if GetCode(err) != CodeMissingArgument {
		t.Errorf("got code %q, want %q", GetCode(err), CodeMissingArgument)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if GetCategory(wrapped) != ErrCategoryArgument {
		t.Error("category should be extracted through wrapping")
	}
}
