package sqlite

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"zombiezen.com/go/sqlite"

	"github.com/nikola-chen/dbi/dialect"
	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/internal/sqltext"
	"github.com/nikola-chen/dbi/result"
	"github.com/nikola-chen/dbi/value"
)

// ErrOutOfRange is the cause of a BindError for a Uint64 above the largest
// value an SQLite INTEGER holds.
var ErrOutOfRange = errors.New("sqlite: unsigned value out of INTEGER range")

// syntax has no hash comments, and `--` always starts a comment.
var syntax = dialect.SQLite{}.Syntax()

// prepare compiles the single statement in query.
func prepare(ctx context.Context, conn *sqlite.Conn, query string) (*sqlite.Stmt, error) {
	if sqltext.Blank(query, syntax) {
		return nil, engine.NewError(engine.PrepareError, "empty statement")
	}
	stmt, trailing, err := conn.PrepareTransient(query)
	if err != nil {
		return nil, nativeError(ctx, engine.PrepareError, err, "cannot prepare statement")
	}
	if trailing > 0 && !sqltext.Blank(query[len(query)-trailing:], syntax) {
		_ = stmt.Finalize()
		return nil, engine.NewError(engine.PrepareError, "multiple statements in one query")
	}
	return stmt, nil
}

// execute binds vals, steps stmt to completion and collects its rows. On
// success stmt is reset with its bindings cleared.
func execute(ctx context.Context, conn *sqlite.Conn, stmt *sqlite.Stmt, vals []value.Value) (*result.Set, error) {
	if n := stmt.BindParamCount(); n != len(vals) {
		return nil, engine.ArgumentError(&sqltext.CountError{Placeholders: n, Args: len(vals)})
	}
	for i, v := range vals {
		if err := bind(stmt, i+1, v); err != nil {
			return nil, &engine.Error{Kind: engine.BindError, Position: i + 1, Message: "cannot bind argument", Err: err}
		}
	}

	cols := stmt.ColumnCount()
	names := make([]string, cols)
	for i := range names {
		names[i] = stmt.ColumnName(i)
	}
	b := result.NewBuilder(names)
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, stepError(ctx, err)
		}
		if !hasRow {
			break
		}
		row := make([]result.FieldData, cols)
		for i := range row {
			row[i] = column(stmt, i)
		}
		if err := b.Append(row); err != nil {
			return nil, engine.Wrap(engine.QueryError, err, "cannot collect row")
		}
	}

	affected := int64(b.Len())
	if cols == 0 {
		affected = int64(conn.Changes())
	}
	if err := stmt.Reset(); err != nil {
		return nil, nativeError(ctx, engine.QueryError, err, "cannot reset statement")
	}
	if err := stmt.ClearBindings(); err != nil {
		return nil, nativeError(ctx, engine.QueryError, err, "cannot clear bindings")
	}
	return b.Build(affected), nil
}

// bind stores v in the 1-based parameter slot p. Text and blobs are bound
// with their length, so embedded zero bytes are kept.
func bind(stmt *sqlite.Stmt, p int, v value.Value) error {
	switch v.Kind() {
	case value.KindNull:
		stmt.BindNull(p)
	case value.KindBool:
		b, _ := v.AsBool()
		stmt.BindBool(p, b)
	case value.KindInt8:
		n, _ := v.AsInt8()
		stmt.BindInt64(p, int64(n))
	case value.KindInt16:
		n, _ := v.AsInt16()
		stmt.BindInt64(p, int64(n))
	case value.KindInt32:
		n, _ := v.AsInt32()
		stmt.BindInt64(p, int64(n))
	case value.KindInt64:
		n, _ := v.AsInt64()
		stmt.BindInt64(p, n)
	case value.KindUint8:
		n, _ := v.AsUint8()
		stmt.BindInt64(p, int64(n))
	case value.KindUint16:
		n, _ := v.AsUint16()
		stmt.BindInt64(p, int64(n))
	case value.KindUint32:
		n, _ := v.AsUint32()
		stmt.BindInt64(p, int64(n))
	case value.KindUint64:
		n, _ := v.AsUint64()
		if n > math.MaxInt64 {
			return ErrOutOfRange
		}
		stmt.BindInt64(p, int64(n))
	case value.KindFloat32:
		f, _ := v.AsFloat32()
		stmt.BindFloat(p, float64(f))
	case value.KindFloat64:
		f, _ := v.AsFloat64()
		stmt.BindFloat(p, f)
	case value.KindText:
		s, _ := v.AsText()
		stmt.BindText(p, s)
	case value.KindBlob:
		b, _ := v.AsBlob()
		stmt.BindBytes(p, b)
	default:
		return value.ErrUnsupported
	}
	return nil
}

// column reads column i of the current row as bytes.
func column(stmt *sqlite.Stmt, i int) result.FieldData {
	switch stmt.ColumnType(i) {
	case sqlite.TypeNull:
		return result.Null()
	case sqlite.TypeInteger:
		return result.Text(strconv.FormatInt(stmt.ColumnInt64(i), 10))
	case sqlite.TypeFloat:
		return result.Text(strconv.FormatFloat(stmt.ColumnFloat(i), 'g', -1, 64))
	}
	// An empty blob reads back as a nil pointer, so size the buffer from
	// the column length.
	buf := make([]byte, stmt.ColumnLen(i))
	stmt.ColumnBytes(i, buf)
	return result.FieldData{Value: buf}
}

// stepError classifies a failed Step. Deferred bind failures are reported
// by the driver as step errors with a "bind" prefix.
func stepError(ctx context.Context, err error) *engine.Error {
	if strings.Contains(err.Error(), "step: bind ") {
		return nativeError(ctx, engine.BindError, err, "cannot bind argument")
	}
	return nativeError(ctx, engine.QueryError, err, "statement failed")
}

// nativeError wraps a driver error with its SQLite result code. An
// interruption caused by ctx reports ctx's error as the cause.
func nativeError(ctx context.Context, kind engine.Kind, err error, msg string) *engine.Error {
	code := sqlite.ErrCode(err)
	cause := err
	if code == sqlite.ResultInterrupt && ctx.Err() != nil {
		cause = ctx.Err()
	}
	return &engine.Error{Kind: kind, Code: int(code), Message: msg + ": " + err.Error(), Err: cause}
}

// invalidates reports whether err leaves a prepared statement unusable.
// Argument problems found before binding do not.
func invalidates(err error) bool {
	var e *engine.Error
	if errors.As(err, &e) {
		return e.Kind == engine.BindError || e.Kind == engine.QueryError
	}
	return true
}
