package sqlite

import (
	"context"

	"zombiezen.com/go/sqlite"

	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/result"
	"github.com/nikola-chen/dbi/value"
)

// Statement is a natively prepared statement. It stays compiled between
// executions until it is closed, its handle disconnects, or a bind or step
// failure invalidates it.
type Statement struct {
	h      *Handle
	query  string
	params int
	state  engine.ErrorState

	// Guarded by h.mu.
	stmt   *sqlite.Stmt
	closed bool
}

var _ engine.Statement = (*Statement)(nil)

// Execute binds args to the statement's parameters, runs it and drains the
// produced rows.
func (s *Statement) Execute(ctx context.Context, args ...any) (*result.Set, error) {
	var set *result.Set
	err := s.h.core.Call(&s.state, s.query, args, func(vals []value.Value) error {
		return s.h.withConn(ctx, engine.QueryError, func(conn *sqlite.Conn) error {
			switch {
			case s.closed:
				return engine.Wrap(engine.QueryError, engine.ErrClosed, "statement is closed")
			case s.stmt == nil:
				return engine.Wrap(engine.QueryError, engine.ErrInvalidated, "statement is invalid")
			}
			var err error
			set, err = execute(ctx, conn, s.stmt, vals)
			if err != nil && invalidates(err) {
				s.release()
				delete(s.h.stmts, s)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// NumInput returns the number of parameters of the statement.
func (s *Statement) NumInput() int { return s.params }

// Valid reports whether the statement can still be executed.
func (s *Statement) Valid() bool {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.conn != nil && s.stmt != nil && !s.closed
}

// Close finalizes the statement. Closing twice is a no-op.
func (s *Statement) Close() error {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	if s.h.stmts != nil {
		delete(s.h.stmts, s)
	}
	return nil
}

func (s *Statement) ErrorMessage() string { return s.state.Message() }

func (s *Statement) LastError() error { return s.state.Err() }

// release finalizes the native statement. h.mu must be held.
func (s *Statement) release() {
	if s.stmt == nil {
		return
	}
	_ = s.stmt.Finalize()
	s.stmt = nil
}
