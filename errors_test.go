package mosaic

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewInvalidArgError("MatMul", "A rows (17) is not a multiple of the tile size (16)")
	msg := err.Error()

	for _, want := range []string{"InvalidArgument", "MatMul", "17"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := NewExecutionError("Launch", "kernel panicked", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
	if !strings.Contains(err.Error(), "caused by") {
		t.Errorf("error %q does not mention its cause", err.Error())
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err       error
		isMemory  bool
		isArg     bool
		isNumeric bool
	}{
		{NewMemoryError("Free", "double free", nil), true, false, false},
		{NewInvalidArgError("MatMul", "bad dims"), false, true, false},
		{NewNumericalError("Validate", "mismatches", 3), false, false, true},
		{fmt.Errorf("plain error"), false, false, false},
		{fmt.Errorf("wrapped: %w", ErrDoubleFree), true, false, false},
	}

	for _, tc := range cases {
		if got := IsMemoryError(tc.err); got != tc.isMemory {
			t.Errorf("IsMemoryError(%v) = %v, want %v", tc.err, got, tc.isMemory)
		}
		if got := IsInvalidArgError(tc.err); got != tc.isArg {
			t.Errorf("IsInvalidArgError(%v) = %v, want %v", tc.err, got, tc.isArg)
		}
		if got := IsNumericalError(tc.err); got != tc.isNumeric {
			t.Errorf("IsNumericalError(%v) = %v, want %v", tc.err, got, tc.isNumeric)
		}
	}
}

func TestNumericalErrorContext(t *testing.T) {
	err := NewNumericalError("Validate", "output mismatches", 42)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("not a *Error")
	}
	if e.Context != 42 {
		t.Errorf("context = %v, want 42", e.Context)
	}
}
