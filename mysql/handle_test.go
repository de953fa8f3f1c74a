package mysql

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/value"
)

func newMock(t *testing.T) (*Handle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h, err := WithDB(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { h.Disconnect() })
	return h, mock
}

func TestDoInterpolatesEveryKind(t *testing.T) {
	h, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO test_data VALUES (1, NULL, 1, -8, -16, -32, -64, 5, 556, 518012, 42949672960, 125.9, 0.1, 'A test value', 'hello\0world\0')`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	set, err := h.Do(ctx, "INSERT INTO test_data VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		1, nil, true, int8(-8), int16(-16), int32(-32), int64(-64),
		uint8(5), uint16(556), uint32(518012), uint64(42949672960),
		float32(125.9), 0.1, "A test value", []byte("hello\x00world\x00"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), set.AffectedRows())
	assert.Empty(t, set.Fields())
	assert.Equal(t, "", h.ErrorMessage())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoEscapesQuotes(t *testing.T) {
	h, mock := newMock(t)

	mock.ExpectExec(`UPDATE t SET name = 'it\'s a \"test\"\\' WHERE id = 2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := h.Do(context.Background(), "UPDATE t SET name = ? WHERE id = ?", `it's a "test"\`, 2)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoDoubleMinusIsNotAComment(t *testing.T) {
	h, mock := newMock(t)

	mock.ExpectExec("UPDATE t SET n = n--5 WHERE id = 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE t SET n = 2 -- ?\nWHERE id = 1").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := h.Do(context.Background(), "UPDATE t SET n = n--? WHERE id = ?", 5, 1)
	require.NoError(t, err)
	_, err = h.Do(context.Background(), "UPDATE t SET n = ? -- ?\nWHERE id = ?", 2, 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoSelectDrainsRows(t *testing.T) {
	h, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "test_string", "test_blob"}).
		AddRow(int64(1), nil, nil).
		AddRow(int64(2), []byte(""), []byte("hello\x00world\x00"))
	mock.ExpectQuery("SELECT id, test_string, test_blob FROM test_data WHERE id > 0").WillReturnRows(rows)

	set, err := h.Do(context.Background(), "SELECT id, test_string, test_blob FROM test_data WHERE id > ?", 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"id", "test_string", "test_blob"}, set.Fields())
	assert.Equal(t, int64(2), set.AffectedRows())

	r0 := set.Rows()[0]
	assert.True(t, r0["test_string"].IsNull)
	assert.Nil(t, r0["test_string"].Value)

	r1 := set.Rows()[1]
	assert.False(t, r1["test_string"].IsNull)
	assert.NotNil(t, r1["test_string"].Value)
	assert.Len(t, r1["test_string"].Value, 0)
	assert.Equal(t, []byte("hello\x00world\x00"), r1["test_blob"].Value)
	assert.Equal(t, "2", string(r1["id"].Value))
}

func TestDoArgumentCountMismatch(t *testing.T) {
	h, mock := newMock(t)
	ctx := context.Background()

	_, err := h.Do(ctx, "INSERT INTO t VALUES (?, ?)", 1)
	assert.ErrorIs(t, err, engine.InvalidArguments)
	_, err = h.Do(ctx, "INSERT INTO t VALUES (?)", 1, 2)
	assert.ErrorIs(t, err, engine.InvalidArguments)
	assert.Contains(t, h.ErrorMessage(), "too many arguments")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoUnsupportedArgumentPosition(t *testing.T) {
	h, mock := newMock(t)

	_, err := h.Do(context.Background(), "INSERT INTO t VALUES (?, ?)", 1, map[string]int{})
	var e *engine.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, engine.InvalidArguments, e.Kind)
	assert.Equal(t, 2, e.Position)

	_, err = h.Do(context.Background(), "INSERT INTO t VALUES (?, ?)", 1, math.NaN())
	require.True(t, errors.As(err, &e))
	assert.Equal(t, engine.InvalidArguments, e.Kind)
	assert.Equal(t, 2, e.Position)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoMapsNativeErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"}, 1062},
		{mysql.ErrPktSync, CRCommandsOutOfSync},
		{mysql.ErrInvalidConn, CRServerLost},
		{errors.New("something else"), CRUnknownError},
	}
	for _, tt := range tests {
		h, mock := newMock(t)
		mock.ExpectExec("DELETE FROM t").WillReturnError(tt.err)

		set, err := h.Do(context.Background(), "DELETE FROM t")
		require.Nil(t, set)
		var e *engine.Error
		require.True(t, errors.As(err, &e), "%v", err)
		assert.Equal(t, engine.QueryError, e.Kind)
		assert.Equal(t, tt.code, e.Code)
		assert.Contains(t, e.Message, "Generic Error: #")
		assert.Equal(t, err.Error(), h.ErrorMessage())
	}
}

func TestFailureDoesNotInvalidateHandle(t *testing.T) {
	h, mock := newMock(t)
	mock.ExpectExec("DELETE FROM missing").WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"})
	mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 3))

	_, err := h.Do(context.Background(), "DELETE FROM missing")
	require.Error(t, err)
	set, err := h.Do(context.Background(), "DELETE FROM t")
	require.NoError(t, err)
	assert.Equal(t, int64(3), set.AffectedRows())
	assert.Equal(t, "", h.ErrorMessage())
}

func TestPrepareExecuteReuse(t *testing.T) {
	h, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO t (id, v) VALUES (1, 'a')").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO t (id, v) VALUES (2, NULL)").WillReturnResult(sqlmock.NewResult(2, 1))

	st, err := h.Prepare(ctx, "INSERT INTO t (id, v) VALUES (?, ?)")
	require.NoError(t, err)
	assert.True(t, st.Valid())
	assert.Equal(t, 2, st.(*Statement).NumInput())

	set, err := st.Execute(ctx, 1, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), set.AffectedRows())

	_, err = st.Execute(ctx, 2, value.Null())
	require.NoError(t, err)

	_, err = st.Execute(ctx, 3)
	assert.ErrorIs(t, err, engine.InvalidArguments)
	assert.NotEmpty(t, st.ErrorMessage())
	assert.NotEmpty(t, h.ErrorMessage())

	require.NoError(t, st.Close())
	assert.False(t, st.Valid())
	_, err = st.Execute(ctx, 1, "a")
	assert.ErrorIs(t, err, engine.ErrClosed)
	assert.NotEmpty(t, st.ErrorMessage())
	assert.ErrorIs(t, h.LastError(), engine.ErrClosed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepareRejectsMalformed(t *testing.T) {
	h, _ := newMock(t)

	st, err := h.Prepare(context.Background(), "SELECT 'unterminated")
	assert.Nil(t, st)
	assert.ErrorIs(t, err, engine.PrepareError)
	assert.NotEmpty(t, h.ErrorMessage())

	_, err = h.Prepare(context.Background(), "   ")
	assert.ErrorIs(t, err, engine.PrepareError)
}

func TestTransactionStatements(t *testing.T) {
	h, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO t VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))

	err := engine.Transaction(ctx, h, func(tx engine.Handle) error {
		_, err := tx.Do(ctx, "INSERT INTO t VALUES (?)", 1)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = engine.Transaction(ctx, h, func(engine.Handle) error { return boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h, _ := newMock(t)

	require.NoError(t, h.Ping(context.Background()))
	assert.True(t, h.Disconnect())
	assert.False(t, h.Disconnect())

	_, err := h.Do(context.Background(), "SELECT 1")
	var e *engine.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, CRServerGone, e.Code)
	assert.ErrorIs(t, err, engine.ErrClosed)

	assert.ErrorIs(t, h.Ping(context.Background()), engine.QueryError)
	_, err = h.Prepare(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, engine.PrepareError)
}

func TestReturnsRows(t *testing.T) {
	for q, want := range map[string]bool{
		"SELECT 1":                      true,
		"  show tables":                 true,
		"/* x */ (select 1)":            true,
		"WITH a AS (SELECT 1) SELECT *": true,
		"INSERT INTO t VALUES (1)":      false,
		"BEGIN":                         false,
		"CREATE TABLE t (id INT)":       false,
	} {
		if got := returnsRows(q); got != want {
			t.Fatalf("returnsRows(%q) = %v, want %v", q, got, want)
		}
	}
}
