// Package scan drains database/sql rows into result sets.
//
// Every column is scanned into an *any holder so SQL NULL (a nil holder)
// stays distinct from an empty value, and driver-owned byte buffers are
// copied before the next row overwrites them.
package scan

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nikola-chen/dbi/result"
)

// TimeLayout is the text form of time.Time column values, matching the
// MySQL DATETIME(6) representation.
const TimeLayout = "2006-01-02 15:04:05.999999"

var anySlicePool sync.Pool

const maxPooledAnySliceCap = 4096

func getAnySlice(n int) []any {
	if v := anySlicePool.Get(); v != nil {
		s := v.([]any)
		if cap(s) >= n {
			return s[:n]
		}
	}
	return make([]any, n)
}

func putAnySlice(s []any) {
	if s == nil {
		return
	}
	for i := range s {
		s[i] = nil
	}
	if cap(s) > maxPooledAnySliceCap {
		return
	}
	anySlicePool.Put(s)
}

// Rows drains rows into a Set and closes them. The affected-row count of
// the Set is the number of rows produced.
func Rows(rows *sql.Rows) (*result.Set, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	b := result.NewBuilder(cols)

	n := len(cols)
	holders := getAnySlice(n)
	defer putAnySlice(holders)
	cells := make([]any, n)
	for i := range holders {
		holders[i] = &cells[i]
	}

	for rows.Next() {
		for i := range cells {
			cells[i] = nil
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, err
		}
		vals := make([]result.FieldData, n)
		for i, raw := range cells {
			vals[i] = Field(raw)
		}
		if err := b.Append(vals); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b.Build(int64(b.Len())), nil
}

// Field converts one driver value to FieldData. Numbers are rendered in
// decimal, floats with the shortest round-trip form and bools as 1 or 0.
func Field(raw any) result.FieldData {
	switch v := raw.(type) {
	case nil:
		return result.Null()
	case []byte:
		return result.Bytes(v)
	case sql.RawBytes:
		return result.Bytes(v)
	case string:
		return result.Text(v)
	case int64:
		return result.FieldData{Value: strconv.AppendInt(nil, v, 10)}
	case uint64:
		return result.FieldData{Value: strconv.AppendUint(nil, v, 10)}
	case float64:
		return result.FieldData{Value: strconv.AppendFloat(nil, v, 'g', -1, 64)}
	case float32:
		return result.FieldData{Value: strconv.AppendFloat(nil, float64(v), 'g', -1, 32)}
	case bool:
		if v {
			return result.Text("1")
		}
		return result.Text("0")
	case time.Time:
		return result.Text(v.Format(TimeLayout))
	}
	return result.Text(fmt.Sprint(raw))
}
