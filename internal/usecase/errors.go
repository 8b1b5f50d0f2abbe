package usecase

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindNoOp           ErrorKind = "no_op"
	KindValidation     ErrorKind = "validation"
	KindUnauthorized   ErrorKind = "unauthorized"
	KindInfrastructure ErrorKind = "infrastructure"
)

// Error is the typed failure returned by every service. Handlers switch
// on it with errors.Is against the sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInfrastructure {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Transient reports whether the caller may retry the same request
func (e *Error) Transient() bool {
	return e.Kind == KindInfrastructure
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrSeatUnavailable = &Error{Kind: KindConflict, Message: "seat unavailable"}
	ErrNoSeatsToCancel = &Error{Kind: KindNoOp, Message: "no valid seats to cancel"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrInfrastructure  = &Error{Kind: KindInfrastructure, Message: "storage failure"}
)

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func noOp(format string, args ...any) error {
	return &Error{Kind: KindNoOp, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// infra wraps a storage error unless it is already a typed service error
func infra(op string, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: KindInfrastructure, Message: op, Err: err}
}

// IsTransient reports whether err is an infrastructure failure
func IsTransient(err error) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Transient()
}
