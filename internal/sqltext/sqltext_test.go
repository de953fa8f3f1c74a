package sqltext

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	tests := []struct {
		sql  string
		want int
	}{
		{"SELECT 1", 0},
		{"SELECT * FROM t WHERE id = ?", 1},
		{"INSERT INTO t VALUES (?, ?, ?)", 3},
		{"SELECT '?' , ?", 1},
		{`SELECT "?" , ?`, 1},
		{"SELECT `a?b` FROM t WHERE x = ?", 1},
		{"SELECT 'it''s ?', ?", 1},
		{`SELECT 'a\'?', ?`, 1},
		{`SELECT \?, ?`, 1},
		{"SELECT ? -- ?\n, ?", 2},
		{"SELECT ? # ?\n, ?", 2},
		{"SELECT ? /* ? */ , ?", 2},
		{"UPDATE t SET n = n--? WHERE id = ?", 2},
		{"SELECT ?--\t?\n, ?", 2},
		{"SELECT ? --", 1},
	}
	for _, tt := range tests {
		got, err := Count(tt.sql, MySQL)
		if err != nil {
			t.Fatalf("Count(%q): unexpected error: %v", tt.sql, err)
		}
		if got != tt.want {
			t.Fatalf("Count(%q) = %d, want %d", tt.sql, got, tt.want)
		}
	}
}

func TestHashIsNotACommentWithoutHashComments(t *testing.T) {
	got, err := Count("SELECT ? # ?", Syntax{})
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestDashCommentWithoutSpace(t *testing.T) {
	got, err := Count("SELECT 1--?", Syntax{})
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = Count("SELECT 1--?", MySQL)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestUnterminated(t *testing.T) {
	for _, sql := range []string{"SELECT 'abc", `SELECT "abc`, "SELECT `abc", "SELECT /* x", `SELECT 'a\'`} {
		if _, err := Count(sql, MySQL); !errors.Is(err, ErrUnterminated) {
			t.Fatalf("Count(%q): unexpected error: %v", sql, err)
		}
	}
	_, err := Placeholders("SELECT 'abc", MySQL)
	assert.ErrorIs(t, err, ErrUnterminated)
}

func emitIndex(dst []byte, i int) ([]byte, error) {
	return strconv.AppendInt(append(dst, '$'), int64(i), 10), nil
}

func TestInterpolate(t *testing.T) {
	out, err := Interpolate(nil, "SELECT ?, '?', ? FROM t WHERE a = \\? AND b = ?", 3, MySQL, emitIndex)
	require.NoError(t, err)
	assert.Equal(t, "SELECT $0, '?', $1 FROM t WHERE a = \\? AND b = $2", string(out))

	out, err = Interpolate([]byte("/*x*/ "), "BEGIN", 0, MySQL, emitIndex)
	require.NoError(t, err)
	assert.Equal(t, "/*x*/ BEGIN", string(out))
}

func TestInterpolateCountMismatch(t *testing.T) {
	called := false
	emit := func(dst []byte, i int) ([]byte, error) {
		called = true
		return dst, nil
	}

	_, err := Interpolate(nil, "SELECT ?, ?", 1, MySQL, emit)
	var ce *CountError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Placeholders)
	assert.Equal(t, 1, ce.Args)
	assert.Contains(t, err.Error(), "not enough arguments")

	_, err = Interpolate(nil, "SELECT ?", 2, MySQL, emit)
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "too many arguments")
	assert.False(t, called)
}

func TestInterpolateEmitError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Interpolate(nil, "SELECT ?, ?", 2, MySQL, func(dst []byte, i int) ([]byte, error) {
		if i == 1 {
			return nil, boom
		}
		return append(dst, '1'), nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFirstKeyword(t *testing.T) {
	tests := map[string]string{
		"select 1":                        "SELECT",
		"  \n\tShow tables":               "SHOW",
		"/* hint */ INSERT INTO t":        "INSERT",
		"-- c\nUPDATE t SET a = 1":        "UPDATE",
		"# c\nDELETE FROM t":              "DELETE",
		"(SELECT 1) UNION (SELECT 2)":     "SELECT",
		"WITH x AS (SELECT 1) SELECT * x": "WITH",
		"":                                "",
		"/* never closed":                 "",
	}
	for in, want := range tests {
		if got := FirstKeyword(in, MySQL); got != want {
			t.Fatalf("FirstKeyword(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstKeywordSyntax(t *testing.T) {
	assert.Equal(t, "", FirstKeyword("--x\n", Syntax{}))
	assert.Equal(t, "", FirstKeyword("--x\n", MySQL))
	assert.Equal(t, "", FirstKeyword("# junk", MySQL))
	assert.Equal(t, "", FirstKeyword("-- junk", Syntax{}))
	assert.Equal(t, "SELECT", FirstKeyword("--x\nSELECT 1", Syntax{}))
}

func TestBlank(t *testing.T) {
	for _, text := range []string{"", " ;\n", "; -- done", "/* a */ ; /* b", "--"} {
		assert.True(t, Blank(text, Syntax{}), text)
	}
	for _, text := range []string{" SELECT 2", "# junk", "; x"} {
		assert.False(t, Blank(text, Syntax{}), text)
	}
	assert.True(t, Blank("; # junk", MySQL))
	assert.False(t, Blank("--x", MySQL))
}
