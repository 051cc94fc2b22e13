package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks a malformed dispatch call. It is always returned
	// synchronously and no unit is invoked.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnitFailure marks the failure of a single unit invocation.
	ErrUnitFailure = errors.New("unit failure")
)

// InvalidRequestError describes which part of a dispatch call was rejected.
type InvalidRequestError struct {
	// Field names the rejected argument ("units", "inputs", "fallback").
	Field string
	// Message explains the rejection.
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrInvalidRequest).
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

func invalid(field, format string, args ...any) error {
	return &InvalidRequestError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UnitFailure carries the original cause of a failed unit invocation.
type UnitFailure struct {
	// UnitID is the identifier of the unit that failed.
	UnitID string
	// Index is the unit's position in the request.
	Index int
	// Cause is the error the unit settled with.
	Cause error
}

func (e *UnitFailure) Error() string {
	return fmt.Sprintf("unit %q at position %d failed: %v", e.UnitID, e.Index, e.Cause)
}

// Unwrap exposes both ErrUnitFailure and the original cause to errors.Is/As.
func (e *UnitFailure) Unwrap() []error { return []error{ErrUnitFailure, e.Cause} }

var errNilFuture = errors.New("unit returned a nil future")

var errNotSettled = errors.New("position was never settled")
