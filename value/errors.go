package value

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrTypeMismatch is matched by every MismatchError.
	ErrTypeMismatch = errors.New("value: type mismatch")
	// ErrUnsupported is matched by every UnsupportedError.
	ErrUnsupported = errors.New("value: unsupported argument type")
)

// MismatchError reports a checked extraction of the wrong kind.
type MismatchError struct {
	Want Kind
	Got  Kind
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("value: type mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *MismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// UnsupportedError reports a Go value that has no Value representation.
type UnsupportedError struct {
	Type reflect.Type
}

func (e *UnsupportedError) Error() string {
	if e.Type == nil {
		return ErrUnsupported.Error()
	}
	return fmt.Sprintf("%s %s", ErrUnsupported.Error(), e.Type)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// ArgError ties a conversion or extraction failure to a 1-based argument
// position.
type ArgError struct {
	Position int
	Err      error
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("argument %d: %v", e.Position, e.Err)
}

func (e *ArgError) Unwrap() error { return e.Err }
