package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nikola-chen/dbi/value"
)

// Kind classifies an Error. A Kind is itself an error so callers can write
// errors.Is(err, engine.QueryError).
type Kind int

const (
	// ConnectError is fatal to Connect; no handle is returned.
	ConnectError Kind = iota + 1
	// PrepareError is fatal to Prepare; no statement is returned.
	PrepareError
	// InvalidArguments covers argument count and kind problems, detected
	// before any native call.
	InvalidArguments
	// BindError is a failed native bind. It invalidates the statement.
	BindError
	// QueryError is an execution failure reported by the backend.
	QueryError
)

func (k Kind) String() string {
	switch k {
	case ConnectError:
		return "connect error"
	case PrepareError:
		return "prepare error"
	case InvalidArguments:
		return "invalid arguments"
	case BindError:
		return "bind error"
	case QueryError:
		return "query error"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Error() string { return "dbi: " + k.String() }

// ErrInvalidated is wrapped by the error of every Execute on a statement
// whose native resource was released after a bind or step failure.
var ErrInvalidated = errors.New("dbi: statement handle invalidated, prepare it again")

// ErrClosed is wrapped by errors of calls on a disconnected handle or a
// closed statement.
var ErrClosed = errors.New("dbi: handle is closed")

// Error is the single error type returned by every dbi operation.
type Error struct {
	Kind Kind
	// Code is the backend's native error code, or 0.
	Code int
	// Position is the 1-based argument position for InvalidArguments and
	// BindError, or 0.
	Position int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("dbi: ")
	b.WriteString(e.Kind.String())
	if e.Code != 0 {
		fmt.Fprintf(&b, " #%d", e.Code)
	}
	if e.Position > 0 {
		fmt.Fprintf(&b, " at argument %d", e.Position)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && (e.Message == "" || !strings.Contains(e.Message, e.Err.Error())) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// NewError returns an Error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an Error of the given kind caused by err. A nil err yields
// nil.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// ArgumentError converts an argument conversion or encoding failure into
// InvalidArguments, keeping the position when err carries one.
func ArgumentError(err error) *Error {
	e := &Error{Kind: InvalidArguments, Message: "invalid statement arguments", Err: err}
	var ae *value.ArgError
	if errors.As(err, &ae) {
		e.Position = ae.Position
	}
	return e
}

// AsError returns err as an *Error, converting foreign errors to the
// fallback kind.
func AsError(err error, fallback Kind) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: fallback, Message: err.Error(), Err: err}
}
