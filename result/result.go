// Package result holds the backend-agnostic outcome of one statement
// execution: ordered column names, rows of nullable byte fields and an
// affected-row count.
//
// Values are never parsed back into typed Go values. Every field is the
// backend's textual (or, for blobs, binary) representation plus an explicit
// null flag, so an empty string and SQL NULL stay distinguishable.
package result

import (
	"fmt"
	"strconv"

	"github.com/nikola-chen/dbi/internal"
)

// FieldData is one column of one row.
type FieldData struct {
	// Value is nil when IsNull is set. A non-null empty value is an empty,
	// non-nil slice.
	Value  []byte
	IsNull bool
	// Error is reserved for column-level read failures.
	Error bool
}

// Null returns the FieldData of an SQL NULL.
func Null() FieldData { return FieldData{IsNull: true} }

// Bytes returns a non-null FieldData holding a copy of b.
func Bytes(b []byte) FieldData {
	v := make([]byte, len(b))
	copy(v, b)
	return FieldData{Value: v}
}

// Text returns a non-null FieldData holding s.
func Text(s string) FieldData {
	return FieldData{Value: append(make([]byte, 0, len(s)), s...)}
}

// clone returns f with its own copy of Value.
func (f FieldData) clone() FieldData {
	if f.Value != nil {
		f.Value = Bytes(f.Value).Value
	}
	return f
}

func (f FieldData) String() string {
	switch {
	case f.Error:
		return "<error>"
	case f.IsNull:
		return "NULL"
	}
	return strconv.Quote(string(f.Value))
}

// Row maps a column name to its field. Use Set.Fields for column order.
type Row map[string]FieldData

// Set is the immutable result of a successful Do or Execute.
type Set struct {
	fields   []string
	values   [][]FieldData
	rows     []Row
	affected int64
}

// Fields returns the column names in result order.
func (s *Set) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Rows returns a copy of the rows keyed by column name.
func (s *Set) Rows() []Row {
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		row := make(Row, len(r))
		for name, f := range r {
			row[name] = f.clone()
		}
		out[i] = row
	}
	return out
}

// Len returns the number of rows.
func (s *Set) Len() int { return len(s.values) }

// AffectedRows is the number of rows changed by a mutating statement or
// produced by a row-returning one.
func (s *Set) AffectedRows() int64 { return s.affected }

// Values returns a copy of row i in column order, or nil if there is no
// such row.
func (s *Set) Values(i int) []FieldData {
	if i < 0 || i >= len(s.values) {
		return nil
	}
	out := make([]FieldData, len(s.values[i]))
	for c, f := range s.values[i] {
		out[c] = f.clone()
	}
	return out
}

// Field returns the field named exactly name in row i.
func (s *Set) Field(i int, name string) (FieldData, bool) {
	if i < 0 || i >= len(s.rows) {
		return FieldData{}, false
	}
	f, ok := s.rows[i][name]
	return f.clone(), ok
}

// Lookup is like Field but matches name case-insensitively and ignores
// identifier quotes and table qualifiers on either side.
func (s *Set) Lookup(i int, name string) (FieldData, bool) {
	if f, ok := s.Field(i, name); ok {
		return f, true
	}
	if i < 0 || i >= len(s.values) {
		return FieldData{}, false
	}
	want := internal.NormalizeColumn(name)
	for c := len(s.fields) - 1; c >= 0; c-- {
		if internal.NormalizeColumn(s.fields[c]) == want {
			return s.values[i][c].clone(), true
		}
	}
	return FieldData{}, false
}

// Builder accumulates rows for exactly one Set.
type Builder struct {
	fields []string
	values [][]FieldData
}

// NewBuilder starts a Set with the given column names.
func NewBuilder(fields []string) *Builder {
	f := make([]string, len(fields))
	copy(f, fields)
	return &Builder{fields: f}
}

// Append adds one row in column order. The slice is retained.
func (b *Builder) Append(values []FieldData) error {
	if len(values) != len(b.fields) {
		return fmt.Errorf("result: row has %d values, want %d", len(values), len(b.fields))
	}
	b.values = append(b.values, values)
	return nil
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return len(b.values) }

// Build finishes the Set. Duplicate column names collapse in the Row maps
// with the later column winning; Values keeps every column.
func (b *Builder) Build(affected int64) *Set {
	rows := make([]Row, len(b.values))
	for i, vals := range b.values {
		r := make(Row, len(b.fields))
		for c, name := range b.fields {
			r[name] = vals[c]
		}
		rows[i] = r
	}
	s := &Set{fields: b.fields, values: b.values, rows: rows, affected: affected}
	b.fields, b.values = nil, nil
	return s
}
