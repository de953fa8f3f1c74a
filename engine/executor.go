package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jjeffery/kv"

	"github.com/nikola-chen/dbi/value"
)

// Guard runs fn as the single in-flight call on the connection. The
// handle's error state, and stmt's when non-nil, is cleared before fn runs
// and receives fn's error afterwards.
func (c *Core) Guard(stmt *ErrorState, fn func() error) error {
	if err := c.Enter(); err != nil {
		return c.record(stmt, err)
	}
	defer c.Leave()

	c.state.Clear()
	if stmt != nil {
		stmt.Clear()
	}
	if err := fn(); err != nil {
		return c.record(stmt, err)
	}
	return nil
}

// Call is Guard for statement execution: args are converted to values
// before fn runs, and the execution is logged according to the Config.
func (c *Core) Call(stmt *ErrorState, query string, args []any, fn func(vals []value.Value) error) error {
	return c.Guard(stmt, func() error {
		vals, err := value.Args(args)
		if err != nil {
			return ArgumentError(err)
		}
		start := time.Now()
		err = fn(vals)
		c.log(query, vals, time.Since(start), err)
		return err
	})
}

func (c *Core) record(stmt *ErrorState, err error) error {
	if stmt != nil {
		stmt.Set(err)
	}
	return c.state.Set(err)
}

func (c *Core) log(query string, args []value.Value, dur time.Duration, err error) {
	if c.logger == nil {
		return
	}
	if !c.cfg.LogSQL && (c.cfg.SlowQuery <= 0 || dur < c.cfg.SlowQuery) {
		return
	}
	if !c.cfg.LogCanceled && err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = errors.New("dbi: context canceled")
		}
	}
	list := kv.List{"backend", c.backend, "sql", truncateSQL(query, c.cfg.MaxLogSQLLen)}
	if c.cfg.LogArgs {
		list = append(list, "args", formatArgs(args, c.cfg.ArgFormatter, c.cfg.MaxLogArgsItems, c.cfg.MaxLogArgsLen))
	} else {
		list = append(list, "argc", len(args))
	}
	list = append(list, "dur", dur.String())
	if err != nil {
		list = append(list, "err", err.Error())
	}
	c.logger.Printf("%s", list.String())
}

func truncateSQL(sql string, maxLen int) string {
	const defaultMax = 2048
	if maxLen <= 0 {
		maxLen = defaultMax
	}
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen] + "…"
}

func formatArgs(args []value.Value, argFormatter func(value.Value) string, maxItems int, maxLen int) string {
	const defaultMaxItems = 20
	const defaultMaxLen = 512
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	if argFormatter == nil {
		argFormatter = defaultArgFormatter
	}
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < len(args) && i < maxItems; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(argFormatter(args[i]))
		if b.Len() > maxLen {
			b.WriteString("…")
			break
		}
	}
	if len(args) > maxItems {
		if b.Len() > 1 {
			b.WriteString(", ")
		}
		b.WriteString("…")
	}
	b.WriteByte(']')
	return b.String()
}

func defaultArgFormatter(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindText:
		return fmt.Sprintf("redacted(len=%d)", v.Len())
	case value.KindBlob:
		return fmt.Sprintf("bytes(len=%d)", v.Len())
	}
	return v.String()
}
