package mysql

import (
	"context"
	"sync/atomic"

	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/result"
)

// Statement is a client-side prepared statement: the validated text is
// interpolated and sent on every Execute. It owns no server resource.
type Statement struct {
	h      *Handle
	query  string
	params int
	state  engine.ErrorState
	closed atomic.Bool
}

var _ engine.Statement = (*Statement)(nil)

// Execute runs the statement with args bound to its placeholders.
func (s *Statement) Execute(ctx context.Context, args ...any) (*result.Set, error) {
	if s.closed.Load() {
		return nil, s.h.core.Guard(&s.state, func() error {
			return engine.Wrap(engine.QueryError, engine.ErrClosed, "statement is closed")
		})
	}
	return s.h.exec(ctx, &s.state, s.query, args)
}

// NumInput returns the number of placeholders in the statement.
func (s *Statement) NumInput() int { return s.params }

// Valid reports whether the statement is open and its connection is alive.
func (s *Statement) Valid() bool {
	if s.closed.Load() {
		return false
	}
	_, err := s.h.live()
	return err == nil
}

func (s *Statement) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Statement) ErrorMessage() string { return s.state.Message() }

func (s *Statement) LastError() error { return s.state.Err() }
