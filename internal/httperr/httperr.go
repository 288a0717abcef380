package httperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures seen while serving a connection.
type Kind int

const (
	MalformedRequest Kind = iota + 1
	NotFound
	IOFailure
	BindFailure
)

func (k Kind) String() string {
	switch k {
	case MalformedRequest:
		return "malformed request"
	case NotFound:
		return "not found"
	case IOFailure:
		return "i/o failure"
	case BindFailure:
		return "bind failure"
	default:
		return fmt.Sprintf("unknown error kind: %d", int(k))
	}
}

// Error pairs a Kind with the error that caused it.
type Error struct {
	Kind       Kind
	underlying error
}

func (e *Error) Error() string {
	if e.underlying != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.underlying)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.underlying
}

// New wraps underlying (which may be nil) with kind.
func New(kind Kind, underlying error) *Error {
	return &Error{Kind: kind, underlying: underlying}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
