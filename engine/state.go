package engine

import "sync"

// ErrorState is the error slot of one handle or statement. It holds the
// failure of the most recent operation, or nothing after a success.
type ErrorState struct {
	mu  sync.Mutex
	err *Error
}

// Clear empties the slot.
func (s *ErrorState) Clear() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Set records err, converting foreign errors to QueryError, and returns the
// recorded *Error. A nil err clears the slot and returns nil.
func (s *ErrorState) Set(err error) error {
	e := AsError(err, QueryError)
	s.mu.Lock()
	s.err = e
	s.mu.Unlock()
	if e == nil {
		return nil
	}
	return e
}

// Err returns the recorded error, or nil.
func (s *ErrorState) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return nil
	}
	return s.err
}

// Message returns the recorded error text, or "".
func (s *ErrorState) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return ""
	}
	return s.err.Error()
}

// Kind returns the kind of the recorded error, or 0.
func (s *ErrorState) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return 0
	}
	return s.err.Kind
}
