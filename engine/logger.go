package engine

import (
	"io"
	"log"
	"os"
)

// NopLogger discards every line. It is the default.
type NopLogger struct{}

func (NopLogger) Printf(format string, args ...any) {}

// StdLogger logs to stderr.
func StdLogger() Logger { return NewLogger(os.Stderr) }

// NewLogger returns a Logger writing "[dbi] "-prefixed lines to w.
func NewLogger(w io.Writer) Logger {
	return log.New(w, "[dbi] ", log.LstdFlags)
}
