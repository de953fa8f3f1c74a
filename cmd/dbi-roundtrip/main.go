// dbi-roundtrip writes a fixed set of rows through one backend, reads them
// back with a prepared statement and reports the first mismatch.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jjeffery/errors"
	"github.com/spf13/pflag"

	"github.com/nikola-chen/dbi"
	"github.com/nikola-chen/dbi/dialect"
	"github.com/nikola-chen/dbi/engine"
	"github.com/nikola-chen/dbi/result"
)

var command struct {
	backend  string
	database string
	host     string
	user     string
	password string
	attrs    []string
	verbose  bool
}

func main() {
	log.SetFlags(0)
	pflag.StringVarP(&command.backend, "backend", "b", "sqlite", "backend (mysql, sqlite)")
	pflag.StringVarP(&command.database, "database", "d", "test.db", "database name or file")
	pflag.StringVarP(&command.host, "host", "H", "", "server host")
	pflag.StringVarP(&command.user, "user", "u", "", "user name")
	pflag.StringVarP(&command.password, "password", "p", "", "password")
	pflag.StringArrayVarP(&command.attrs, "attr", "a", nil, "connection attribute key=value, repeatable")
	pflag.BoolVarP(&command.verbose, "verbose", "v", false, "log every statement")
	pflag.Parse()
	if len(pflag.Args()) > 0 {
		log.Fatalln("unrecognized args:", strings.Join(pflag.Args(), " "))
	}

	attrs, err := parseAttrs(command.attrs)
	if err != nil {
		log.Fatalln(err)
	}
	var opts []dbi.Option
	if command.verbose {
		opts = append(opts, engine.WithLogger(engine.StdLogger()), engine.WithConfig(dbi.Config{LogSQL: true, LogArgs: true}))
	}

	ctx := context.Background()
	h, err := dbi.Connect(ctx, command.backend, command.database, command.host, command.user, command.password, attrs, opts...)
	if err != nil {
		log.Fatalln("cannot connect:", err)
	}
	defer h.Disconnect()

	if err := run(ctx, h, os.Stdout); err != nil {
		log.Fatalln(err)
	}
	fmt.Println("Tests passed")
}

func parseAttrs(list []string) (dbi.Attributes, error) {
	attrs := dbi.Attributes{}
	for _, kv := range list {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, errors.New("attribute must be key=value").With("attr", kv)
		}
		attrs[k] = v
	}
	return attrs, nil
}

var testRows = [][]any{
	{1, nil, nil, nil, nil},
	{2, uint8(5), float32(125.90), "A test value", []byte("hello\x00world\x00")},
	{3, uint16(556), 125.90, nil, nil},
	{4, uint32(518012), nil, nil, nil},
	{5, uint64(42949672960), nil, nil, nil},
}

// columns of db_test, in testRows order, with their SQL types.
var columns = []struct{ name, typ string }{
	{"id", "INTEGER"},
	{"int_value", "BIGINT"},
	{"real_value", "REAL"},
	{"text_value", "TEXT"},
	{"blob_value", "BLOB"},
}

// statements renders the DDL and DML of the round trip with identifiers
// quoted for d.
func statements(d dialect.Dialect) (drop, create, insert, sel string) {
	table := d.QuoteIdent("db_test")
	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		names[i] = d.QuoteIdent(c.name)
		defs[i] = names[i] + " " + c.typ
		marks[i] = "?"
	}
	drop = "DROP TABLE IF EXISTS " + table
	create = "CREATE TABLE " + table + " (" + strings.Join(defs, ", ") + ")"
	insert = "INSERT INTO " + table + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	sel = "SELECT " + strings.Join(names[1:], ", ") + " FROM " + table + " WHERE " + names[0] + " = ?"
	return drop, create, insert, sel
}

// run recreates db_test, inserts testRows in one transaction and checks
// every row read back.
func run(ctx context.Context, h dbi.Handle, out io.Writer) error {
	d, ok := dialect.For(h.Backend())
	if !ok {
		return errors.New("unknown backend").With("backend", h.Backend())
	}
	drop, create, insert, selQuery := statements(d)

	if _, err := h.Do(ctx, drop); err != nil {
		return errors.Wrap(err, "cannot drop table")
	}
	if _, err := h.Do(ctx, create); err != nil {
		return errors.Wrap(err, "cannot create table")
	}
	if err := h.Ping(ctx); err != nil {
		return errors.Wrap(err, "cannot ping")
	}

	err := engine.Transaction(ctx, h, func(tx engine.Handle) error {
		ins, err := tx.Prepare(ctx, insert)
		if err != nil {
			return err
		}
		defer ins.Close()
		for _, args := range testRows {
			set, err := ins.Execute(ctx, args...)
			if err != nil {
				return errors.Wrap(err, "cannot insert").With("id", args[0])
			}
			if set.AffectedRows() != 1 {
				return errors.New("unexpected affected rows").With("id", args[0], "affected", set.AffectedRows())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	sel, err := h.Prepare(ctx, selQuery)
	if err != nil {
		return errors.Wrap(err, "cannot prepare select")
	}
	defer sel.Close()

	for _, want := range testRows {
		id := want[0]
		set, err := sel.Execute(ctx, id)
		if err != nil {
			return errors.Wrap(err, "cannot select").With("id", id)
		}
		if set.AffectedRows() != 1 || set.Len() != 1 {
			return errors.New("unexpected row count").With("id", id, "rows", set.Len())
		}
		row := set.Rows()[0]
		for i, name := range set.Fields() {
			if err := check(row[name], want[i+1]); err != nil {
				return errors.Wrap(err, "incorrect value").With("id", id, "column", name)
			}
		}
		fmt.Fprintf(out, "row %v: %s\n", id, formatRow(set))
	}
	return nil
}

// check compares a field read back with the argument that was written.
func check(f result.FieldData, want any) error {
	if want == nil {
		if !f.IsNull {
			return errors.New("expected NULL").With("got", f)
		}
		return nil
	}
	if f.IsNull {
		return errors.New("unexpected NULL")
	}
	got := string(f.Value)
	switch w := want.(type) {
	case uint8, uint16, uint32, uint64:
		if got != fmt.Sprint(w) {
			return errors.New("integer mismatch").With("got", got, "want", w)
		}
	case float32, float64:
		v, err := strconv.ParseFloat(got, 64)
		if err != nil || math.Abs(v-125.90) > 0.1 {
			return errors.New("real mismatch").With("got", got)
		}
	case string:
		if got != w {
			return errors.New("text mismatch").With("got", got, "want", w)
		}
	case []byte:
		if got != string(w) {
			return errors.New("blob mismatch").With("got_len", len(f.Value), "want_len", len(w))
		}
	}
	return nil
}

func formatRow(set *result.Set) string {
	var b strings.Builder
	for i, f := range set.Values(0) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(set.Fields()[i])
		b.WriteByte('=')
		b.WriteString(f.String())
	}
	return b.String()
}
