// Package errs defines the error taxonomy shared by the workflow, scheduling
// and planning services.
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and transports
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidState    Kind = "INVALID_STATE"
	KindValidation      Kind = "VALIDATION_FAILURE"
	KindOperationFailed Kind = "OPERATION_FAILED"
)

// Sentinels for errors.Is matching against a Kind
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation failure")
	ErrOperationFailed = errors.New("operation failed")
)

// Error carries the kind, the failing operation and the offending entities
type Error struct {
	Kind     Kind
	Op       string
	Message  string
	Entities []string
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Entities) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Entities, ", "))
		b.WriteString("]")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel belonging to e.Kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidState:
		return e.Kind == KindInvalidState
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrOperationFailed:
		return e.Kind == KindOperationFailed
	}
	return false
}

// NotFound reports a missing entity; never retried
func NotFound(entity string, id fmt.Stringer) *Error {
	return &Error{
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("%s not found", entity),
		Entities: []string{fmt.Sprintf("%s %s", entity, id)},
	}
}

// InvalidState reports an operation attempted outside its legal state
func InvalidState(op, message string, entities ...string) *Error {
	return &Error{
		Kind:     KindInvalidState,
		Op:       op,
		Message:  message,
		Entities: entities,
	}
}

// Validation reports missing or out-of-range input
func Validation(format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap converts err into the taxonomy for op. Domain errors pass through with
// the operation name filled in; anything else becomes OperationFailed.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		if de.Op == "" {
			de.Op = op
		}
		return de
	}
	return &Error{
		Kind:    KindOperationFailed,
		Op:      op,
		Message: "operation failed",
		Cause:   err,
	}
}

// KindOf returns the kind of err, or OperationFailed for foreign errors
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindOperationFailed
}

// IsRetryable reports whether err is a failed operation whose deadline expired
func IsRetryable(err error) bool {
	return KindOf(err) == KindOperationFailed && errors.Is(err, context.DeadlineExceeded)
}
