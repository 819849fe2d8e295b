package params

import (
	"net/url"
	"sort"
	"strings"
)

// Params maps a parameter name to its parsed value.
type Params map[string]Value

// FromValues normalizes every parameter in q. Only the first value of a
// repeated parameter is kept.
func FromValues(q url.Values) Params {
	p := make(Params, len(q))
	for name, raw := range q {
		if len(raw) == 0 {
			continue
		}
		p[name] = Parse(raw[0])
	}
	return p
}

// Get returns the value for name and whether it is present.
func (p Params) Get(name string) (Value, bool) {
	v, ok := p[name]
	return v, ok
}

// Pop removes name from p and returns its value.
func (p Params) Pop(name string) (Value, bool) {
	v, ok := p[name]
	if ok {
		delete(p, name)
	}
	return v, ok
}

// Without returns a copy of p lacking the given names.
func (p Params) Without(names ...string) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// Bool reports whether the named value is truthy, or def when absent.
// False, null, zero numbers and the empty string are false; every other
// value is true.
func (p Params) Bool(name string, def bool) bool {
	v, ok := p[name]
	if !ok {
		return def
	}
	switch v.Kind() {
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindInt:
		i, _ := v.AsInt()
		return i != 0
	case KindFloat:
		f, _ := v.AsFloat()
		return f != 0
	case KindString:
		s, _ := v.AsString()
		return s != ""
	default:
		return false
	}
}

// Int returns the named int, or def when absent or not an int.
func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok {
		if i, ok := v.AsInt(); ok {
			return int(i)
		}
	}
	return def
}

// Float returns the named number, or def when absent or not numeric.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		if f, ok := v.AsFloat(); ok {
			return f
		}
	}
	return def
}

// String returns the named value in canonical form, or def when absent or null.
func (p Params) String(name string, def string) string {
	v, ok := p[name]
	if !ok || v.IsNull() {
		return def
	}
	return v.Canonical()
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Encode renders p as a query string sorted by name, using each value's
// canonical form. Two Params holding the same values always encode equally.
func (p Params) Encode() string {
	var sb strings.Builder
	for i, name := range p.Names() {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p[name].Canonical()))
	}
	return sb.String()
}
