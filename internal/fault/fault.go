// Package fault classifies errors raised while handling gateway events so the
// router can decide how to surface them.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Unknown is anything not produced through this package.
	Unknown Kind = iota
	// Validation covers bad command arguments.
	Validation
	// NotFound means the session or ticket is gone; callers treat it as a no-op.
	NotFound
	// PermissionDenied means a guard rejected the actor.
	PermissionDenied
	// Consistency means external state was created but not recorded, or the reverse.
	Consistency
	// TransientIO is a failed gateway or store call.
	TransientIO
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	case Consistency:
		return "consistency"
	case TransientIO:
		return "transient_io"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validationf(op, format string, args ...any) error {
	return New(Validation, op, fmt.Errorf(format, args...))
}

func NotFoundf(op, format string, args ...any) error {
	return New(NotFound, op, fmt.Errorf(format, args...))
}

func Denied(op string) error {
	return New(PermissionDenied, op, nil)
}

func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(TransientIO, op, err)
}

func Inconsistent(op string, err error) error {
	return New(Consistency, op, err)
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
