// Package apperr defines the closed set of domain error kinds returned by the
// reservation core. Callers branch on Kind (or errors.Is against the
// sentinels below), never on message text.
package apperr

import (
	"errors"
	"fmt"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// Kind is a stable, machine-readable error code.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindConflict         Kind = "conflict"
	KindStateTransition  Kind = "state_transition"
	KindNotFound         Kind = "not_found"
	KindDuplicate        Kind = "duplicate"
	KindPassed           Kind = "passed"
	KindNotBookable      Kind = "not_bookable"
	KindNotRegistrable   Kind = "not_registrable"
	KindNotLendable      Kind = "not_lendable"
)

// Error is a structured domain error.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	// Conflict is set for KindConflict.
	Conflict *model.Commitment
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation       = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded, Message: "capacity exceeded"}
	ErrConflict         = &Error{Kind: KindConflict, Message: "time conflict"}
	ErrStateTransition  = &Error{Kind: KindStateTransition, Message: "illegal state transition"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDuplicate        = &Error{Kind: KindDuplicate, Message: "duplicate"}
	ErrPassed           = &Error{Kind: KindPassed, Message: "already started"}
	ErrNotBookable      = &Error{Kind: KindNotBookable, Message: "not bookable"}
	ErrNotRegistrable   = &Error{Kind: KindNotRegistrable, Message: "not registrable"}
	ErrNotLendable      = &Error{Kind: KindNotLendable, Message: "not lendable"}
)

func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Field: what, Message: fmt.Sprintf("%s %q not found", what, id)}
}

func CapacityExceeded(format string, args ...any) *Error {
	return &Error{Kind: KindCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a clash with an existing commitment.
func Conflict(c model.Commitment) *Error {
	return &Error{
		Kind:     KindConflict,
		Message:  fmt.Sprintf("overlaps %q on %s (%s-%s)", c.Title, c.DateKey, c.Start.Format("15:04"), c.End.Format("15:04")),
		Conflict: &c,
	}
}

// StateTransition reports an action attempted from the wrong state.
func StateTransition(action string, from model.BorrowStatus) *Error {
	return &Error{Kind: KindStateTransition, Field: "status", Message: fmt.Sprintf("cannot %s a request in status %q", action, from)}
}

func Duplicate(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

func Passed(format string, args ...any) *Error {
	return &Error{Kind: KindPassed, Message: fmt.Sprintf(format, args...)}
}

func NotBookable(format string, args ...any) *Error {
	return &Error{Kind: KindNotBookable, Message: fmt.Sprintf(format, args...)}
}

func NotRegistrable(format string, args ...any) *Error {
	return &Error{Kind: KindNotRegistrable, Message: fmt.Sprintf(format, args...)}
}

func NotLendable(format string, args ...any) *Error {
	return &Error{Kind: KindNotLendable, Message: fmt.Sprintf(format, args...)}
}

// As unwraps err into a domain *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// IsAnomaly reports whether err points at a caller bug or stale client state
// rather than at ordinary user input.
func IsAnomaly(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindStateTransition:
		return true
	}
	return false
}
