// Package rlerrors defines the error taxonomy the decision engine surfaces
// to its callers: a sentinel plus an operation-context wrapper that
// supports errors.Is/As.
package rlerrors

import (
	"errors"
	"fmt"
)

// Sentinels for the four error kinds the decision engine can return.
// Callers match with errors.Is against these, or errors.As against *Error
// when they need the wrapped cause and operation context.
var (
	// ErrInvalidArgument means resource or caller was empty.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable means the store was unreachable or its script failed
	// to load after one retry.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrDeadlineExceeded means the store call exceeded its deadline.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	// ErrInternal means an invariant was violated (e.g. a negative count
	// came back from the store) and is never expected in normal operation.
	ErrInternal = errors.New("internal error")
)

// Error wraps one of the sentinels above with the operation that failed
// and the underlying cause, the way HealthError does for backend errors.
type Error struct {
	Kind  error // one of the sentinels above
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "rlerrors: nil"
	}
	if e.Cause == nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Op)
		}
		return e.Kind.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel this error was constructed
// with, enabling errors.Is(err, rlerrors.ErrUnavailable) style checks.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// InvalidArgument wraps cause (may be nil) as ErrInvalidArgument.
func InvalidArgument(op string, cause error) error { return newError(ErrInvalidArgument, op, cause) }

// Unavailable wraps cause as ErrUnavailable.
func Unavailable(op string, cause error) error { return newError(ErrUnavailable, op, cause) }

// DeadlineExceeded wraps cause as ErrDeadlineExceeded.
func DeadlineExceeded(op string, cause error) error { return newError(ErrDeadlineExceeded, op, cause) }

// Internal wraps cause as ErrInternal.
func Internal(op string, cause error) error { return newError(ErrInternal, op, cause) }

// Is reports whether err (or anything it wraps) is the given sentinel kind.
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}
