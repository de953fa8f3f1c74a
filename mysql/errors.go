package mysql

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/nikola-chen/dbi/engine"
)

// MySQL client error codes reported for failures that do not come with a
// server error number.
const (
	CRUnknownError      = 2000
	CRServerGone        = 2006
	CRServerLost        = 2013
	CRCommandsOutOfSync = engine.CodeCommandsOutOfSync
)

// nativeCode extracts the MySQL error number and message from err.
func nativeCode(err error) (int, string) {
	var me *mysql.MySQLError
	var opErr *net.OpError
	switch {
	case errors.As(err, &me):
		return int(me.Number), me.Message
	case errors.Is(err, mysql.ErrPktSync), errors.Is(err, mysql.ErrPktSyncMul):
		return CRCommandsOutOfSync, "Commands out of sync; you can't run this command now"
	case errors.Is(err, mysql.ErrInvalidConn), errors.Is(err, driver.ErrBadConn),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return CRServerLost, "Lost connection to MySQL server during query"
	case errors.Is(err, sql.ErrConnDone), errors.As(err, &opErr):
		return CRServerGone, "MySQL server has gone away"
	}
	return CRUnknownError, "Unknown MySQL error"
}

// queryError maps a driver failure to QueryError. The cause is kept
// unwrapped so errors.Is still sees context and driver sentinels.
func queryError(err error) *engine.Error {
	code, msg := nativeCode(err)
	return &engine.Error{
		Kind:    engine.QueryError,
		Code:    code,
		Message: fmt.Sprintf("Generic Error: #%d %s", code, msg),
		Err:     err,
	}
}
