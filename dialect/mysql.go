package dialect

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nikola-chen/dbi/internal/sqltext"
	"github.com/nikola-chen/dbi/value"
)

// ErrNonFinite is returned for NaN and infinite floats, which have no
// MySQL literal form.
var ErrNonFinite = errors.New("dialect: non-finite float has no SQL literal")

// MySQL is the dialect of the text-protocol backend.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Syntax() sqltext.Syntax { return sqltext.MySQL }

// QuoteIdent wraps ident in backticks, doubling any backtick inside it.
func (MySQL) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// AppendLiteral appends the SQL literal form of v to dst.
func (MySQL) AppendLiteral(dst []byte, v value.Value) ([]byte, error) {
	switch v.Kind() {
	case value.KindNull:
		return append(dst, "NULL"...), nil
	case value.KindBool:
		b, err := v.AsBool()
		if err != nil {
			return nil, err
		}
		if b {
			return append(dst, '1'), nil
		}
		return append(dst, '0'), nil
	case value.KindInt8:
		i, err := v.AsInt8()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(dst, int64(i), 10), nil
	case value.KindInt16:
		i, err := v.AsInt16()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(dst, int64(i), 10), nil
	case value.KindInt32:
		i, err := v.AsInt32()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(dst, int64(i), 10), nil
	case value.KindInt64:
		i, err := v.AsInt64()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(dst, i, 10), nil
	case value.KindUint8:
		u, err := v.AsUint8()
		if err != nil {
			return nil, err
		}
		return strconv.AppendUint(dst, uint64(u), 10), nil
	case value.KindUint16:
		u, err := v.AsUint16()
		if err != nil {
			return nil, err
		}
		return strconv.AppendUint(dst, uint64(u), 10), nil
	case value.KindUint32:
		u, err := v.AsUint32()
		if err != nil {
			return nil, err
		}
		return strconv.AppendUint(dst, uint64(u), 10), nil
	case value.KindUint64:
		u, err := v.AsUint64()
		if err != nil {
			return nil, err
		}
		return strconv.AppendUint(dst, u, 10), nil
	case value.KindFloat32:
		f, err := v.AsFloat32()
		if err != nil {
			return nil, err
		}
		return appendFloat(dst, float64(f), 32)
	case value.KindFloat64:
		f, err := v.AsFloat64()
		if err != nil {
			return nil, err
		}
		return appendFloat(dst, f, 64)
	case value.KindText:
		s, err := v.AsText()
		if err != nil {
			return nil, err
		}
		dst = append(dst, '\'')
		dst = appendEscaped(dst, s)
		return append(dst, '\''), nil
	case value.KindBlob:
		b, err := v.AsBlob()
		if err != nil {
			return nil, err
		}
		dst = append(dst, '\'')
		dst = appendEscaped(dst, b)
		return append(dst, '\''), nil
	}
	return nil, fmt.Errorf("dialect: no mysql literal for kind %s", v.Kind())
}

func appendFloat(dst []byte, f float64, bitSize int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrNonFinite
	}
	return strconv.AppendFloat(dst, f, 'g', -1, bitSize), nil
}

// EscapeString escapes s for use inside a quoted MySQL string literal,
// byte for byte like mysql_real_escape_string.
func EscapeString(s string) string {
	return string(appendEscaped(make([]byte, 0, len(s)+8), s))
}

// EscapeBytes is EscapeString for binary data.
func EscapeBytes(b []byte) []byte {
	return appendEscaped(make([]byte, 0, len(b)+8), b)
}

func appendEscaped[T string | []byte](dst []byte, src T) []byte {
	for i := 0; i < len(src); i++ {
		switch c := src[i]; c {
		case 0:
			dst = append(dst, '\\', '0')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\'':
			dst = append(dst, '\\', '\'')
		case '"':
			dst = append(dst, '\\', '"')
		case 0x1a:
			dst = append(dst, '\\', 'Z')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}
