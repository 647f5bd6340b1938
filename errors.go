// Package mosaic structured error types for runtime and validation failures
package mosaic

import (
	"errors"
	"fmt"
)

// ErrorType categorizes runtime errors. Configuration mistakes (bad
// dimensions, oversized launches) surface as ErrTypeInvalidArg before any
// work is submitted; API failures as ErrTypeMemory or ErrTypeExecution; and
// post-computation validation mismatches as ErrTypeNumerical.
type ErrorType int

const (
	// Memory errors
	ErrTypeMemory ErrorType = iota
	// Invalid argument and configuration errors
	ErrTypeInvalidArg
	// Execution errors
	ErrTypeExecution
	// Numerical validation errors
	ErrTypeNumerical
	// Device errors
	ErrTypeDevice
)

// Error is a structured runtime error with operation context.
type Error struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context, e.g. a mismatch count
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mosaic %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("mosaic %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeNumerical:
		return "Numerical"
	case ErrTypeDevice:
		return "Device"
	default:
		return "Unknown"
	}
}

// NewMemoryError creates a memory-related error.
func NewMemoryError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument or configuration error.
func NewInvalidArgError(op string, message string) error {
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error.
func NewExecutionError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewNumericalError creates a numerical validation error. Context carries
// the aggregate mismatch information.
func NewNumericalError(op string, message string, context interface{}) error {
	return &Error{
		Type:    ErrTypeNumerical,
		Op:      op,
		Message: message,
		Context: context,
	}
}

var (
	// ErrInvalidSize indicates a non-positive allocation size.
	ErrInvalidSize = NewInvalidArgError("Malloc", "size must be positive")

	// ErrDoubleFree indicates a repeated free of the same pointer.
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)

	// ErrInvalidDevice indicates an invalid device ID.
	ErrInvalidDevice = NewInvalidArgError("SetDevice", "invalid device ID")
)

// IsMemoryError reports whether err is a memory error.
func IsMemoryError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrTypeMemory
	}
	return false
}

// IsInvalidArgError reports whether err is an invalid argument error.
func IsInvalidArgError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrTypeInvalidArg
	}
	return false
}

// IsExecutionError reports whether err is an execution error.
func IsExecutionError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrTypeExecution
	}
	return false
}

// IsNumericalError reports whether err is a numerical validation error.
func IsNumericalError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrTypeNumerical
	}
	return false
}
