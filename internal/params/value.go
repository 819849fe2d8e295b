package params

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

// Value kinds, in the order Parse tries them.
const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	KindNull
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a single parsed query parameter. The zero Value is the empty string.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Bool returns a bool Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an int Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Parse infers the type of a raw query value. It tries a boolean literal,
// then an integer, then a finite float, then null/none, and finally keeps
// the original string.
func Parse(raw string) Value {
	switch strings.ToLower(raw) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Int(i)
	}

	// ParseFloat accepts "nan" and "inf"; those are not numbers a client means to send.
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Float(f)
	}

	switch strings.ToLower(raw) {
	case "null", "none":
		return Null()
	}

	return String(raw)
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload and whether v is an int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns v as a float64. Ints are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Interface returns the payload as a plain Go value: bool, int64, float64, nil or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindNull:
		return nil
	default:
		return v.s
	}
}

// Canonical renders v so that equal values always render identically:
// "true", "42", "1.5", "2.0", "null", or the string itself.
func (v Value) Canonical() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		// keep 1.0 distinct from the int 1
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	case KindNull:
		return "null"
	default:
		return v.s
	}
}

// MarshalJSON encodes v as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
