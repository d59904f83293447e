package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	err := WrapError(ErrStrategyNotFound, errors.New("id 7"))
	if err.Error() != "[STRATEGY_NOT_FOUND] strategy not found: id 7" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrBatchNotFound, ErrBatchNotFound) {
		t.Error("same error should match")
	}
	if errors.Is(ErrBatchNotFound, ErrStrategyNotFound) {
		t.Error("different codes should not match")
	}

	wrapped := fmt.Errorf("loading batch: %w", WrapError(ErrBatchNotFound, nil))
	if !errors.Is(wrapped, ErrBatchNotFound) {
		t.Error("wrapped coded error should match by code")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrExecutionFailed, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrExecutionFailed.Code {
		t.Error("code not preserved")
	}
}
