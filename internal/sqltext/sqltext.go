// Package sqltext scans SQL statement text for positional `?` placeholders.
//
// Placeholders inside quoted strings, quoted identifiers and comments are
// ignored. A backslash escapes the next byte both inside and outside
// quotes when the syntax enables it; outside quotes the pair is copied
// through unchanged and never counts as a placeholder.
package sqltext

import (
	"errors"
	"fmt"
	"strings"
)

// maxSQLLength bounds the statement text accepted for interpolation.
const maxSQLLength = 16 * 1024 * 1024

var (
	ErrUnterminated = errors.New("sqltext: unterminated quoted string or comment")
	ErrTooLong      = errors.New("sqltext: statement exceeds maximum length")
)

// Syntax selects the lexical rules of a backend.
type Syntax struct {
	// BackslashEscapes makes `\` escape the following byte.
	BackslashEscapes bool
	// HashComments makes `#` start a line comment.
	HashComments bool
	// DashCommentSpace requires whitespace, a control byte or the end of
	// text after `--` for it to start a comment. Otherwise `n--1` is
	// arithmetic.
	DashCommentSpace bool
}

// MySQL is the syntax of the text-protocol backend.
var MySQL = Syntax{BackslashEscapes: true, HashComments: true, DashCommentSpace: true}

// dashComment reports whether a `--` line comment starts at s[i].
func (syn Syntax) dashComment(s string, i int) bool {
	if s[i] != '-' || i+1 >= len(s) || s[i+1] != '-' {
		return false
	}
	return !syn.DashCommentSpace || i+2 == len(s) || s[i+2] <= ' '
}

// CountError reports a placeholder/argument count mismatch.
type CountError struct {
	Placeholders int
	Args         int
}

func (e *CountError) Error() string {
	if e.Args < e.Placeholders {
		return fmt.Sprintf("sqltext: not enough arguments for placeholders: %d placeholders, %d arguments", e.Placeholders, e.Args)
	}
	return fmt.Sprintf("sqltext: too many arguments for placeholders: %d placeholders, %d arguments", e.Placeholders, e.Args)
}

// Placeholders returns the byte offsets of every placeholder in query.
func Placeholders(query string, syn Syntax) ([]int, error) {
	if strings.IndexByte(query, '?') < 0 {
		// Still lex for unterminated literals.
		return nil, scan(query, syn, nil)
	}
	var out []int
	err := scan(query, syn, func(i int) { out = append(out, i) })
	return out, err
}

// Count returns the number of placeholders in query.
func Count(query string, syn Syntax) (int, error) {
	n := 0
	err := scan(query, syn, func(int) { n++ })
	return n, err
}

// Interpolate appends query to dst with the i-th placeholder replaced by
// whatever emit appends for argument i (0-based). The placeholder count
// must equal n; otherwise a *CountError is returned before emit is called.
func Interpolate(dst []byte, query string, n int, syn Syntax, emit func(dst []byte, i int) ([]byte, error)) ([]byte, error) {
	if len(query) > maxSQLLength {
		return nil, ErrTooLong
	}
	pos, err := Placeholders(query, syn)
	if err != nil {
		return nil, err
	}
	if len(pos) != n {
		return nil, &CountError{Placeholders: len(pos), Args: n}
	}
	if n == 0 {
		return append(dst, query...), nil
	}
	last := 0
	for i, p := range pos {
		dst = append(dst, query[last:p]...)
		if dst, err = emit(dst, i); err != nil {
			return nil, err
		}
		last = p + 1
	}
	return append(dst, query[last:]...), nil
}

func scan(sql string, syn Syntax, placeholder func(i int)) error {
	var quote byte
	inLineComment := false
	inBlockComment := false

	i := 0
	n := len(sql)

	for i < n {
		if inLineComment {
			ch := sql[i]
			i++
			if ch == '\n' {
				inLineComment = false
			}
			continue
		}
		if inBlockComment {
			if i+1 < n && sql[i] == '*' && sql[i+1] == '/' {
				i += 2
				inBlockComment = false
				continue
			}
			i++
			continue
		}
		if quote != 0 {
			ch := sql[i]
			i++
			if syn.BackslashEscapes && ch == '\\' && quote != '`' {
				if i < n {
					i++
				}
				continue
			}
			if ch == quote {
				// A doubled quote stays inside the literal.
				if i < n && sql[i] == quote {
					i++
				} else {
					quote = 0
				}
			}
			continue
		}

		switch ch := sql[i]; {
		case syn.BackslashEscapes && ch == '\\':
			i += 2
		case syn.dashComment(sql, i):
			i += 2
			inLineComment = true
		case ch == '#' && syn.HashComments:
			i++
			inLineComment = true
		case ch == '/' && i+1 < n && sql[i+1] == '*':
			i += 2
			inBlockComment = true
		case ch == '\'' || ch == '"' || ch == '`':
			i++
			quote = ch
		case ch == '?':
			if placeholder != nil {
				placeholder(i)
			}
			i++
		default:
			i++
		}
	}
	if quote != 0 || inBlockComment {
		return ErrUnterminated
	}
	return nil
}

// FirstKeyword returns the upper-cased leading keyword of query, skipping
// whitespace, comments of syn and opening parentheses.
func FirstKeyword(query string, syn Syntax) string {
	i := skip(query, syn, "(")
	j := i
	for j < len(query) && isWordByte(query[j]) {
		j++
	}
	return strings.ToUpper(query[i:j])
}

// Blank reports whether text holds nothing but whitespace, statement
// separators and comments of syn.
func Blank(text string, syn Syntax) bool {
	return skip(text, syn, ";") == len(text)
}

// skip returns the offset of the first byte of query that is not
// whitespace, part of a comment of syn or one of the bytes in also. An
// unterminated block comment runs to the end.
func skip(query string, syn Syntax, also string) int {
	i := 0
	n := len(query)
	for i < n {
		switch ch := query[i]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f':
			i++
		case strings.IndexByte(also, ch) >= 0:
			i++
		case syn.dashComment(query, i), ch == '#' && syn.HashComments:
			for i < n && query[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < n && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return n
			}
			i += end + 4
		default:
			return i
		}
	}
	return n
}

func isWordByte(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
