package metric

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the storage type of a metric's values.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat
	TypeDouble
	TypeString
)

var typeNames = map[Type]string{
	TypeUnknown: "unknown",
	TypeInt32:   "32",
	TypeUint32:  "u32",
	TypeInt64:   "64",
	TypeUint64:  "u64",
	TypeFloat:   "float",
	TypeDouble:  "double",
	TypeString:  "string",
}

// String returns the type name as pminfo and pmproxy print it.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseType maps a type name ("32", "u64", "double", "string", ...) to a Type.
// Unrecognised names map to TypeUnknown.
func ParseType(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t
		}
	}
	switch s {
	case "int32":
		return TypeInt32
	case "uint32":
		return TypeUint32
	case "int64":
		return TypeInt64
	case "uint64":
		return TypeUint64
	}
	return TypeUnknown
}

// Numeric reports whether values of this type convert to a number.
func (t Type) Numeric() bool {
	return t != TypeUnknown && t != TypeString
}

// Unavailable returns the sentinel used for a numeric field with no value
// this cycle. It is distinct from every real value, zero included.
func Unavailable() float64 {
	return math.NaN()
}

// IsUnavailable reports whether f is the unavailable sentinel.
func IsUnavailable(f float64) bool {
	return math.IsNaN(f)
}

// Value is one typed metric value.
type Value struct {
	typ Type
	i   int64
	u   uint64
	f   float64
	s   string
}

func Int32Value(v int32) Value    { return Value{typ: TypeInt32, i: int64(v)} }
func Int64Value(v int64) Value    { return Value{typ: TypeInt64, i: v} }
func Uint32Value(v uint32) Value  { return Value{typ: TypeUint32, u: uint64(v)} }
func Uint64Value(v uint64) Value  { return Value{typ: TypeUint64, u: v} }
func FloatValue(v float32) Value  { return Value{typ: TypeFloat, f: float64(v)} }
func DoubleValue(v float64) Value { return Value{typ: TypeDouble, f: v} }
func StringValue(v string) Value  { return Value{typ: TypeString, s: v} }

// ParseValue converts the textual form of a value into a Value of type t.
func ParseValue(t Type, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch t {
	case TypeInt32:
		n, err := strconv.ParseInt(raw, 10, 32)
		return Int32Value(int32(n)), err
	case TypeInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		return Int64Value(n), err
	case TypeUint32:
		n, err := strconv.ParseUint(raw, 10, 32)
		return Uint32Value(uint32(n)), err
	case TypeUint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		return Uint64Value(n), err
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 32)
		return FloatValue(float32(f)), err
	case TypeDouble:
		f, err := strconv.ParseFloat(raw, 64)
		return DoubleValue(f), err
	case TypeString:
		return StringValue(unquote(raw)), nil
	}
	return Value{}, fmt.Errorf("cannot parse %q: unknown value type", raw)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}

// Type returns the value's storage type.
func (v Value) Type() Type { return v.typ }

// Float converts the value to float64. Strings that do not parse as a
// number, and the zero Value, yield the unavailable sentinel.
func (v Value) Float() float64 {
	switch v.typ {
	case TypeInt32, TypeInt64:
		return float64(v.i)
	case TypeUint32, TypeUint64:
		return float64(v.u)
	case TypeFloat, TypeDouble:
		return v.f
	case TypeString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return f
		}
	}
	return Unavailable()
}

// Int converts the value to int64, truncating floating point values.
func (v Value) Int() int64 {
	switch v.typ {
	case TypeInt32, TypeInt64:
		return v.i
	case TypeUint32, TypeUint64:
		return int64(v.u)
	case TypeFloat, TypeDouble:
		if math.IsNaN(v.f) {
			return 0
		}
		return int64(v.f)
	case TypeString:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// String renders the value as text.
func (v Value) String() string {
	switch v.typ {
	case TypeInt32, TypeInt64:
		return strconv.FormatInt(v.i, 10)
	case TypeUint32, TypeUint64:
		return strconv.FormatUint(v.u, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case TypeDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeString:
		return v.s
	}
	return ""
}
