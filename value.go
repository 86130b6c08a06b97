// Dynamically typed document values.
//
// Value is a tagged variant: the kind byte selects which payload field is
// meaningful. The zero Value is null, so a missing lookup and an explicit
// null read the same way unless the caller also checks presence.
package mingledb

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
)

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value holds one document field value.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	obj  Document
	arr  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a numeric value from an integer.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Object returns a nested mapping value.
func Object(d Document) Value { return Value{kind: KindObject, obj: d} }

// Array returns a sequence value.
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// ValueOf converts a plain Go value into a Value. Supported inputs are nil,
// strings, booleans, all integer and float types, Value, Document,
// map[string]any (keys sorted for a stable field order), []any, []string
// and []Value. Anything else returns ErrInvalidValue.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case Document:
		return Object(v), nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Number(float64(v)), nil
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case float32:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := make(Document, 0, len(keys))
		for _, k := range keys {
			fv, err := ValueOf(v[k])
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			doc = append(doc, Field{Key: k, Value: fv})
		}
		return Object(doc), nil
	case []any:
		arr := make([]Value, len(v))
		for i, e := range v {
			ev, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = ev
		}
		return Array(arr...), nil
	case []string:
		arr := make([]Value, len(v))
		for i, s := range v {
			arr[i] = String(s)
		}
		return Array(arr...), nil
	case []Value:
		return Array(v...), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrInvalidValue, x)
	}
}

// MustValue is like ValueOf but panics on unsupported input.
func MustValue(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool)   { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool)  { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsObject() (Document, bool) { return v.obj, v.kind == KindObject }
func (v Value) AsArray() ([]Value, bool)   { return v.arr, v.kind == KindArray }

// Interface converts the value back to plain Go types: nil, string,
// float64, bool, map[string]any or []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindObject:
		return v.obj.Map()
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality. Objects compare as key sets, so field
// order does not matter; arrays compare element by element.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindObject:
		return v.obj.Equal(o.obj)
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	}
	return false
}

// compare orders two values of the same comparable kind. ok is false for
// mismatched kinds or kinds without an ordering (null, bool, object,
// array).
func compare(a, b Value) (c int, ok bool) {
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case KindNumber:
		if math.IsNaN(a.num) || math.IsNaN(b.num) {
			return 0, false
		}
		return cmp.Compare(a.num, b.num), true
	case KindString:
		return cmp.Compare(a.str, b.str), true
	}
	return 0, false
}

// String renders the value as JSON for logs and test output.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}

// integral reports whether a number survives a round trip through int64.
// Negative zero collapses to zero, which Equal treats as the same number.
func integral(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}
