// Package dbi opens database handles on the MySQL and SQLite backends
// through one Connect call.
package dbi

import (
	"context"
	"strings"

	"github.com/jjeffery/errors"

	"github.com/nikola-chen/dbi/dialect"
	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/mysql"
	"github.com/nikola-chen/dbi/sqlite"
)

type Handle = engine.Handle
type Statement = engine.Statement
type Attributes = engine.Attributes
type Logger = engine.Logger
type Config = engine.Config
type Option = engine.Option
type Error = engine.Error

// Connect opens a handle on the named backend ("mysql", "sqlite" or its
// alias "sqlite3"). Backends ignore the attributes they do not know.
func Connect(ctx context.Context, backend, database, host, username, credential string, attrs Attributes, opts ...Option) (Handle, error) {
	d, ok := dialect.For(backend)
	if !ok {
		return nil, engine.Wrap(engine.ConnectError,
			errors.New("unknown backend").With("backend", backend, "known", strings.Join(dialect.Names(), ",")),
			"cannot connect")
	}
	switch d.(type) {
	case dialect.MySQL:
		h, err := mysql.Connect(ctx, database, host, username, credential, attrs, opts...)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		h, err := sqlite.Connect(ctx, database, host, username, credential, attrs, opts...)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}
