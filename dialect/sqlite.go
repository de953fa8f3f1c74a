package dialect

import (
	"strings"

	"github.com/nikola-chen/dbi/internal/sqltext"
)

// SQLite is the dialect of the native-bind backend. Arguments are bound,
// never interpolated, so it has no literal encoder.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Syntax() sqltext.Syntax { return sqltext.Syntax{} }

// QuoteIdent wraps ident in double quotes, doubling any double quote
// inside it.
func (SQLite) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
