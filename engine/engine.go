// Package engine defines the backend-neutral contracts of dbi: the Handle
// and Statement interfaces, the error taxonomy, per-handle error state and
// the shared core every backend embeds for logging and call serialization.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nikola-chen/dbi/result"
	"github.com/nikola-chen/dbi/value"
)

// CodeCommandsOutOfSync is the native code used when a second call arrives
// on a handle that is still executing one. It matches the MySQL client code
// for the same condition.
const CodeCommandsOutOfSync = 2014

// Logger interface for logging SQL and errors.
type Logger interface {
	Printf(format string, args ...any)
}

// Attributes is the open, string-keyed connection option dictionary. Each
// backend consumes the keys it knows and ignores the rest.
type Attributes map[string]string

// Handle is a connection to one backend.
type Handle interface {
	// Backend returns the canonical backend name.
	Backend() string
	// Disconnect releases the connection. It returns false if the handle
	// was already disconnected.
	Disconnect() bool
	// Do executes query once with args bound to its placeholders.
	Do(ctx context.Context, query string, args ...any) (*result.Set, error)
	// Prepare returns a reusable statement bound to this handle.
	Prepare(ctx context.Context, query string) (Statement, error)
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Ping checks that the connection is alive.
	Ping(ctx context.Context) error
	// ErrorMessage returns the message of the last failed operation, or "".
	ErrorMessage() string
	// LastError returns the error of the last failed operation, or nil.
	LastError() error
}

// Statement is a prepared statement bound to one Handle. It is not safe for
// concurrent use, and shares the in-flight guard of its Handle.
type Statement interface {
	Execute(ctx context.Context, args ...any) (*result.Set, error)
	// Valid reports whether the statement can still be executed.
	Valid() bool
	// Close releases the native resource. It is safe to call more than once.
	Close() error
	ErrorMessage() string
	LastError() error
}

// Config defines the logging configuration of a handle.
type Config struct {
	// LogSQL enables SQL logging.
	LogSQL bool
	// LogArgs enables argument logging in SQL logs.
	LogArgs bool
	// SlowQuery sets the threshold for slow query logging.
	SlowQuery time.Duration
	// LogCanceled logs context cancellation errors verbatim instead of as a
	// plain "context canceled".
	LogCanceled bool
	// MaxLogSQLLen truncates logged statement text. Defaults to 2048.
	MaxLogSQLLen int
	// MaxLogArgsItems limits the number of logged arguments. Defaults to 20.
	MaxLogArgsItems int
	// MaxLogArgsLen limits the logged argument text. Defaults to 512.
	MaxLogArgsLen int
	// ArgFormatter renders one argument. The default redacts Text and Blob
	// payloads.
	ArgFormatter func(value.Value) string
}

// Option is a function to configure a handle.
type Option func(*Core) error

// WithLogger sets the logger for the handle.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		c.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the handle.
func WithConfig(cfg Config) Option {
	return func(c *Core) error {
		c.cfg = cfg
		return nil
	}
}

// Core is the backend-independent part of a handle. Backends embed one per
// connection and share it with their statements.
type Core struct {
	backend string
	logger  Logger
	cfg     Config
	state   ErrorState
	busy    atomic.Bool
}

// NewCore applies opts to a fresh Core.
func NewCore(backend string, opts ...Option) (*Core, error) {
	c := &Core{
		backend: backend,
		logger:  NopLogger{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Backend returns the backend name.
func (c *Core) Backend() string { return c.backend }

// Config returns the logging configuration.
func (c *Core) Config() Config { return c.cfg }

// State returns the handle's error slot.
func (c *Core) State() *ErrorState { return &c.state }

// Enter marks the connection busy. It fails with QueryError when another
// call is already in flight; otherwise the caller must call Leave.
func (c *Core) Enter() error {
	if !c.busy.CompareAndSwap(false, true) {
		return &Error{
			Kind:    QueryError,
			Code:    CodeCommandsOutOfSync,
			Message: "commands out of sync; another call is in flight on this connection",
		}
	}
	return nil
}

// Leave releases the busy mark taken by Enter.
func (c *Core) Leave() { c.busy.Store(false) }

// Fail records err in the handle's error state and returns it.
func (c *Core) Fail(err error) error { return c.state.Set(err) }

// ErrorMessage returns the message of the last failed operation.
func (c *Core) ErrorMessage() string { return c.state.Message() }

// LastError returns the error of the last failed operation.
func (c *Core) LastError() error { return c.state.Err() }
