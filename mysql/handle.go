// Package mysql is the text-protocol backend of dbi.
//
// MySQL statements are never bound natively: arguments are escaped into
// SQL literals and the finished text is sent as one COM_QUERY over a
// dedicated connection of github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jjeffery/errors"

	"github.com/nikola-chen/dbi/dialect"
	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/internal/sqltext"
	"github.com/nikola-chen/dbi/result"
	"github.com/nikola-chen/dbi/scan"
	"github.com/nikola-chen/dbi/value"
)

// rowKeywords are the leading keywords of statements that return a result
// set rather than an affected-row count.
var rowKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"WITH":     true,
	"VALUES":   true,
	"TABLE":    true,
	"CALL":     true,
	"HELP":     true,
	"CHECK":    true,
	"CHECKSUM": true,
	"ANALYZE":  true,
	"OPTIMIZE": true,
	"REPAIR":   true,
}

// Handle is a connection to a MySQL server.
type Handle struct {
	core    *engine.Core
	dialect dialect.MySQL

	mu     sync.Mutex
	db     *sql.DB
	conn   *sql.Conn
	ownsDB bool
}

var _ engine.Handle = (*Handle)(nil)

// Connect opens a dedicated connection to database on host.
func Connect(ctx context.Context, database, host, username, credential string, attrs engine.Attributes, opts ...engine.Option) (*Handle, error) {
	cfg, o, err := NewConfig(database, host, username, credential, attrs)
	if err != nil {
		return nil, engine.Wrap(engine.ConnectError, err, "cannot configure connection")
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, engine.Wrap(engine.ConnectError, errors.Wrap(err, "cannot create connector").With("addr", cfg.Addr), "cannot configure connection")
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	h, err := open(ctx, db, true, o, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

// WithDB creates a Handle on one connection taken from an existing sql.DB.
// The sql.DB stays owned by the caller and is not closed by Disconnect.
func WithDB(ctx context.Context, db *sql.DB, opts ...engine.Option) (*Handle, error) {
	if db == nil {
		return nil, engine.NewError(engine.ConnectError, "nil *sql.DB")
	}
	return open(ctx, db, false, Options{}, opts)
}

func open(ctx context.Context, db *sql.DB, owns bool, o Options, opts []engine.Option) (*Handle, error) {
	core, err := engine.NewCore(dialect.MySQL{}.Name(), opts...)
	if err != nil {
		return nil, engine.Wrap(engine.ConnectError, err, "invalid option")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		code, msg := nativeCode(err)
		return nil, &engine.Error{Kind: engine.ConnectError, Code: code, Message: msg, Err: err}
	}
	for _, cmd := range o.InitCommands {
		if _, err := conn.ExecContext(ctx, cmd); err != nil {
			_ = conn.Close()
			code, msg := nativeCode(err)
			return nil, &engine.Error{
				Kind:    engine.ConnectError,
				Code:    code,
				Message: msg,
				Err:     errors.Wrap(err, "init command failed").With("command", cmd),
			}
		}
	}
	return &Handle{core: core, db: db, conn: conn, ownsDB: owns}, nil
}

func (h *Handle) Backend() string { return h.core.Backend() }

// Disconnect closes the connection. It returns false if it was already
// closed.
func (h *Handle) Disconnect() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return false
	}
	_ = h.conn.Close()
	if h.ownsDB {
		_ = h.db.Close()
	}
	h.conn, h.db = nil, nil
	return true
}

func (h *Handle) live() (*sql.Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return nil, &engine.Error{
			Kind:    engine.QueryError,
			Code:    CRServerGone,
			Message: "Generic Error: #2006 MySQL server has gone away",
			Err:     engine.ErrClosed,
		}
	}
	return h.conn, nil
}

func (h *Handle) Do(ctx context.Context, query string, args ...any) (*result.Set, error) {
	return h.exec(ctx, nil, query, args)
}

func (h *Handle) exec(ctx context.Context, stmt *engine.ErrorState, query string, args []any) (*result.Set, error) {
	var set *result.Set
	err := h.core.Call(stmt, query, args, func(vals []value.Value) error {
		conn, err := h.live()
		if err != nil {
			return err
		}
		text, err := h.interpolate(query, vals)
		if err != nil {
			return err
		}
		set, err = run(ctx, conn, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// interpolate replaces every placeholder of query with the literal of the
// matching value.
func (h *Handle) interpolate(query string, vals []value.Value) (string, error) {
	buf := make([]byte, 0, len(query)+16*len(vals))
	buf, err := sqltext.Interpolate(buf, query, len(vals), h.dialect.Syntax(), func(dst []byte, i int) ([]byte, error) {
		out, err := h.dialect.AppendLiteral(dst, vals[i])
		if err != nil {
			return nil, &value.ArgError{Position: i + 1, Err: err}
		}
		return out, nil
	})
	if err != nil {
		return "", engine.ArgumentError(err)
	}
	return string(buf), nil
}

func run(ctx context.Context, conn *sql.Conn, text string) (*result.Set, error) {
	if returnsRows(text) {
		rows, err := conn.QueryContext(ctx, text)
		if err != nil {
			return nil, queryError(err)
		}
		set, err := scan.Rows(rows)
		if err != nil {
			return nil, queryError(err)
		}
		return set, nil
	}
	res, err := conn.ExecContext(ctx, text)
	if err != nil {
		return nil, queryError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, queryError(err)
	}
	return result.NewBuilder(nil).Build(n), nil
}

func returnsRows(query string) bool {
	return rowKeywords[sqltext.FirstKeyword(query, sqltext.MySQL)]
}

// Prepare validates query and returns a reusable client-side statement.
func (h *Handle) Prepare(ctx context.Context, query string) (engine.Statement, error) {
	var st *Statement
	err := h.core.Guard(nil, func() error {
		if _, err := h.live(); err != nil {
			return engine.Wrap(engine.PrepareError, engine.ErrClosed, "cannot prepare statement")
		}
		n, err := sqltext.Count(query, h.dialect.Syntax())
		if err != nil {
			return engine.Wrap(engine.PrepareError, errors.Wrap(err, "malformed statement").With("query", query), "cannot prepare statement")
		}
		if strings.TrimSpace(query) == "" {
			return engine.NewError(engine.PrepareError, "empty statement")
		}
		st = &Statement{h: h, query: query, params: n}
		return nil
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

// Ping checks the server connection.
func (h *Handle) Ping(ctx context.Context) error {
	return h.core.Guard(nil, func() error {
		conn, err := h.live()
		if err != nil {
			return err
		}
		if err := conn.PingContext(ctx); err != nil {
			return queryError(err)
		}
		return nil
	})
}

func (h *Handle) ErrorMessage() string { return h.core.ErrorMessage() }

func (h *Handle) LastError() error { return h.core.LastError() }
