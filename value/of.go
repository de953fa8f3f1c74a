package value

import "reflect"

// Of wraps one Go value. Only the fixed set of scalar kinds is accepted:
// nil, bool, the sized signed and unsigned integers, int (as Int64),
// uint (as Uint64), float32, float64, string, []byte and Value itself.
// Named types are not unwrapped.
func Of(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int8:
		return Int8(t), nil
	case int16:
		return Int16(t), nil
	case int32:
		return Int32(t), nil
	case int64:
		return Int64(t), nil
	case int:
		return Int64(int64(t)), nil
	case uint8:
		return Uint8(t), nil
	case uint16:
		return Uint16(t), nil
	case uint32:
		return Uint32(t), nil
	case uint64:
		return Uint64(t), nil
	case uint:
		return Uint64(uint64(t)), nil
	case float32:
		return Float32(t), nil
	case float64:
		return Float64(t), nil
	case string:
		return Text(t), nil
	case []byte:
		return Blob(t), nil
	}
	return Value{}, &UnsupportedError{Type: reflect.TypeOf(x)}
}

// Args wraps every argument in order. The first failure is reported as an
// *ArgError carrying the 1-based position of the offending argument.
func Args(args []any) ([]Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]Value, len(args))
	for i, a := range args {
		v, err := Of(a)
		if err != nil {
			return nil, &ArgError{Position: i + 1, Err: err}
		}
		out[i] = v
	}
	return out, nil
}
