// Package sqlite is the native-bind backend of dbi, built on
// zombiezen.com/go/sqlite.
//
// Statements are compiled once, arguments are bound into typed parameter
// slots and the cursor is stepped row by row. Text and blobs are bound as
// length-delimited buffers, so embedded zero bytes survive.
package sqlite

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jjeffery/errors"
	"zombiezen.com/go/sqlite"

	"github.com/nikola-chen/dbi/dialect"
	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/result"
	"github.com/nikola-chen/dbi/value"
)

// Connection attribute keys consumed by this backend. Any other key is
// ignored.
const (
	AttrVFS          = "sqlite_vfs"
	AttrNoMutex      = "sqlite_nomutex"
	// AttrFullMutex is accepted, but connections are always opened in
	// no-mutex mode; a Handle serializes its own calls.
	AttrFullMutex    = "sqlite_fullmutex"
	AttrSharedCache  = "sqlite_sharedcache"
	AttrPrivateCache = "sqlite_privatecache"
	AttrBusyTimeout  = "sqlite_busy_timeout"
)

// Handle is a connection to one SQLite database file.
type Handle struct {
	core *engine.Core

	mu    sync.Mutex
	conn  *sqlite.Conn
	stmts map[*Statement]struct{}
}

var _ engine.Handle = (*Handle)(nil)

// Connect opens database, creating it when missing. host, username and
// credential have no meaning for SQLite and are ignored.
func Connect(ctx context.Context, database, host, username, credential string, attrs engine.Attributes, opts ...engine.Option) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.Wrap(engine.ConnectError, err, "cannot open database")
	}
	core, err := engine.NewCore(dialect.SQLite{}.Name(), opts...)
	if err != nil {
		return nil, engine.Wrap(engine.ConnectError, err, "invalid option")
	}
	path, flags, busy, err := openArgs(database, attrs)
	if err != nil {
		return nil, engine.Wrap(engine.ConnectError, err, "cannot configure connection")
	}
	conn, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, &engine.Error{
			Kind:    engine.ConnectError,
			Code:    int(sqlite.ErrCode(err)),
			Message: "cannot open database",
			Err:     errors.Wrap(err, "open failed").With("database", database),
		}
	}
	if busy > 0 {
		conn.SetBusyTimeout(busy)
	}
	return &Handle{core: core, conn: conn, stmts: map[*Statement]struct{}{}}, nil
}

// openArgs derives the open path, flags and busy timeout from attrs.
func openArgs(database string, attrs engine.Attributes) (string, sqlite.OpenFlags, time.Duration, error) {
	flags := sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenURI
	for key, flag := range map[string]sqlite.OpenFlags{
		AttrNoMutex:      sqlite.OpenNoMutex,
		AttrFullMutex:    sqlite.OpenFullMutex,
		AttrSharedCache:  sqlite.OpenSharedCache,
		AttrPrivateCache: sqlite.OpenPrivateCache,
	} {
		s, ok := attrs[key]
		if !ok {
			continue
		}
		on, err := parseFlag(s)
		if err != nil {
			return "", 0, 0, errors.Wrap(err, "invalid connection attribute").With("key", key, "value", s)
		}
		if on {
			flags |= flag
		}
	}

	var busy time.Duration
	if s, ok := attrs[AttrBusyTimeout]; ok {
		ms, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return "", 0, 0, errors.Wrap(err, "invalid connection attribute").With("key", AttrBusyTimeout, "value", s)
		}
		busy = time.Duration(ms) * time.Millisecond
	}

	path := database
	if vfs, ok := attrs[AttrVFS]; ok && vfs != "" {
		if !strings.HasPrefix(path, "file:") {
			path = "file:" + path
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "vfs=" + url.QueryEscape(vfs)
	}
	return path, flags, busy, nil
}

func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n != 0, nil
	}
	return strconv.ParseBool(s)
}

func (h *Handle) Backend() string { return h.core.Backend() }

// Disconnect finalizes every open statement and closes the connection. It
// returns false if the handle was already disconnected.
func (h *Handle) Disconnect() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return false
	}
	for st := range h.stmts {
		st.release()
	}
	h.stmts = nil
	_ = h.conn.Close()
	h.conn = nil
	return true
}

// withConn runs fn on the open connection with ctx wired to its interrupt.
// The handle lock is held throughout, so Disconnect waits for fn.
func (h *Handle) withConn(ctx context.Context, kind engine.Kind, fn func(conn *sqlite.Conn) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return engine.Wrap(kind, engine.ErrClosed, "database is not connected")
	}
	if err := ctx.Err(); err != nil {
		return engine.Wrap(kind, err, "operation canceled")
	}
	old := h.conn.SetInterrupt(ctx.Done())
	defer h.conn.SetInterrupt(old)
	return fn(h.conn)
}

// Do prepares, binds, executes and finalizes query as one unit.
func (h *Handle) Do(ctx context.Context, query string, args ...any) (*result.Set, error) {
	var set *result.Set
	err := h.core.Call(nil, query, args, func(vals []value.Value) error {
		return h.withConn(ctx, engine.QueryError, func(conn *sqlite.Conn) error {
			stmt, err := prepare(ctx, conn, query)
			if err != nil {
				return err
			}
			defer stmt.Finalize()

			set, err = execute(ctx, conn, stmt, vals)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Prepare compiles query into a reusable statement.
func (h *Handle) Prepare(ctx context.Context, query string) (engine.Statement, error) {
	var st *Statement
	err := h.core.Guard(nil, func() error {
		return h.withConn(ctx, engine.PrepareError, func(conn *sqlite.Conn) error {
			stmt, err := prepare(ctx, conn, query)
			if err != nil {
				return err
			}
			st = &Statement{h: h, stmt: stmt, query: query, params: stmt.BindParamCount()}
			h.stmts[st] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (h *Handle) Begin(ctx context.Context) error {
	_, err := h.Do(ctx, "BEGIN")
	return err
}

func (h *Handle) Commit(ctx context.Context) error {
	_, err := h.Do(ctx, "COMMIT")
	return err
}

func (h *Handle) Rollback(ctx context.Context) error {
	_, err := h.Do(ctx, "ROLLBACK")
	return err
}

// Ping succeeds while the handle is connected. SQLite has no server to
// reach.
func (h *Handle) Ping(ctx context.Context) error {
	return h.core.Guard(nil, func() error {
		return h.withConn(ctx, engine.QueryError, func(*sqlite.Conn) error { return nil })
	})
}

func (h *Handle) ErrorMessage() string { return h.core.ErrorMessage() }

func (h *Handle) LastError() error { return h.core.LastError() }
