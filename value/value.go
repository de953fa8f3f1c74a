// Package value defines the scalar values that cross the dbi boundary as
// statement arguments.
//
// A Value is a closed tagged union: exactly one Kind is active and there is
// no implicit widening between kinds. Backends extract the payload through
// the checked As* methods, which fail with ErrTypeMismatch when the
// requested kind is not the active one.
package value

import (
	"fmt"
	"math"
)

// Kind identifies the active variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindText
	KindBlob
)

var kindNames = [...]string{
	KindNull:    "Null",
	KindBool:    "Bool",
	KindInt8:    "Int8",
	KindInt16:   "Int16",
	KindInt32:   "Int32",
	KindInt64:   "Int64",
	KindUint8:   "Uint8",
	KindUint16:  "Uint16",
	KindUint32:  "Uint32",
	KindUint64:  "Uint64",
	KindFloat32: "Float32",
	KindFloat64: "Float64",
	KindText:    "Text",
	KindBlob:    "Blob",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsInteger reports whether k is one of the signed or unsigned integer kinds.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindUint64
}

// IsUnsigned reports whether k is one of the unsigned integer kinds.
func (k Kind) IsUnsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

// Value is a single scalar argument. The zero Value is Null.
type Value struct {
	kind Kind
	// num holds Bool (0/1), every integer kind (two's complement for the
	// signed ones) and the IEEE-754 bits of both float kinds.
	num uint64
	str string
	raw []byte
}

func Null() Value { return Value{} }

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

func Int8(i int8) Value   { return Value{kind: KindInt8, num: uint64(i)} }
func Int16(i int16) Value { return Value{kind: KindInt16, num: uint64(i)} }
func Int32(i int32) Value { return Value{kind: KindInt32, num: uint64(i)} }
func Int64(i int64) Value { return Value{kind: KindInt64, num: uint64(i)} }

func Uint8(u uint8) Value   { return Value{kind: KindUint8, num: uint64(u)} }
func Uint16(u uint16) Value { return Value{kind: KindUint16, num: uint64(u)} }
func Uint32(u uint32) Value { return Value{kind: KindUint32, num: uint64(u)} }
func Uint64(u uint64) Value { return Value{kind: KindUint64, num: u} }

func Float32(f float32) Value {
	return Value{kind: KindFloat32, num: uint64(math.Float32bits(f))}
}

func Float64(f float64) Value {
	return Value{kind: KindFloat64, num: math.Float64bits(f)}
}

func Text(s string) Value { return Value{kind: KindText, str: s} }

// Blob copies b, so later writes to the caller's slice do not leak into
// the value.
func Blob(b []byte) Value {
	raw := make([]byte, len(b))
	copy(raw, b)
	return Value{kind: KindBlob, raw: raw}
}

// Kind returns the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) want(k Kind) error {
	if v.kind != k {
		return &MismatchError{Want: k, Got: v.kind}
	}
	return nil
}

func (v Value) AsBool() (bool, error) {
	if err := v.want(KindBool); err != nil {
		return false, err
	}
	return v.num != 0, nil
}

func (v Value) AsInt8() (int8, error) {
	if err := v.want(KindInt8); err != nil {
		return 0, err
	}
	return int8(v.num), nil
}

func (v Value) AsInt16() (int16, error) {
	if err := v.want(KindInt16); err != nil {
		return 0, err
	}
	return int16(v.num), nil
}

func (v Value) AsInt32() (int32, error) {
	if err := v.want(KindInt32); err != nil {
		return 0, err
	}
	return int32(v.num), nil
}

func (v Value) AsInt64() (int64, error) {
	if err := v.want(KindInt64); err != nil {
		return 0, err
	}
	return int64(v.num), nil
}

func (v Value) AsUint8() (uint8, error) {
	if err := v.want(KindUint8); err != nil {
		return 0, err
	}
	return uint8(v.num), nil
}

func (v Value) AsUint16() (uint16, error) {
	if err := v.want(KindUint16); err != nil {
		return 0, err
	}
	return uint16(v.num), nil
}

func (v Value) AsUint32() (uint32, error) {
	if err := v.want(KindUint32); err != nil {
		return 0, err
	}
	return uint32(v.num), nil
}

func (v Value) AsUint64() (uint64, error) {
	if err := v.want(KindUint64); err != nil {
		return 0, err
	}
	return v.num, nil
}

func (v Value) AsFloat32() (float32, error) {
	if err := v.want(KindFloat32); err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v.num)), nil
}

func (v Value) AsFloat64() (float64, error) {
	if err := v.want(KindFloat64); err != nil {
		return 0, err
	}
	return math.Float64frombits(v.num), nil
}

func (v Value) AsText() (string, error) {
	if err := v.want(KindText); err != nil {
		return "", err
	}
	return v.str, nil
}

// AsBlob returns the blob payload. The returned slice is shared with v and
// must not be modified.
func (v Value) AsBlob() ([]byte, error) {
	if err := v.want(KindBlob); err != nil {
		return nil, err
	}
	return v.raw, nil
}

// Len returns the payload length of Text and Blob values and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindText:
		return len(v.str)
	case KindBlob:
		return len(v.raw)
	}
	return 0
}

// String renders v for diagnostics. Text and Blob payloads are never
// printed, only their length.
func (v Value) String() string {
	switch k := v.kind; {
	case k == KindNull:
		return "Null"
	case k == KindBool:
		return fmt.Sprintf("Bool(%t)", v.num != 0)
	case k.IsUnsigned():
		return fmt.Sprintf("%s(%d)", k, v.num)
	case k.IsInteger():
		return fmt.Sprintf("%s(%d)", k, int64(v.num))
	case k == KindFloat32:
		return fmt.Sprintf("Float32(%g)", math.Float32frombits(uint32(v.num)))
	case k == KindFloat64:
		return fmt.Sprintf("Float64(%g)", math.Float64frombits(v.num))
	case k == KindText, k == KindBlob:
		return fmt.Sprintf("%s(len=%d)", k, v.Len())
	}
	return v.kind.String()
}
