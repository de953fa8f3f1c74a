package dialect

import (
	"strings"

	"github.com/nikola-chen/dbi/internal/sqltext"
)

// Dialect defines the SQL text conventions of a backend.
type Dialect interface {
	// Name returns the canonical backend name.
	Name() string
	// QuoteIdent quotes an identifier.
	QuoteIdent(ident string) string
	// Syntax returns the lexical rules used when scanning statement text.
	Syntax() sqltext.Syntax
}

// For returns the dialect of a backend identifier. The set of backends is
// closed; there is no registration.
func For(backend string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "mysql":
		return MySQL{}, true
	case "sqlite", "sqlite3":
		return SQLite{}, true
	}
	return nil, false
}

// Names lists the canonical backend names accepted by For.
func Names() []string { return []string{MySQL{}.Name(), SQLite{}.Name()} }
