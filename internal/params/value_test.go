package params

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw      string
		kind     Kind
		expected any
	}{
		{"true", KindBool, true},
		{"TRUE", KindBool, true},
		{"False", KindBool, false},
		{"fAlSe", KindBool, false},
		{"0", KindInt, int64(0)},
		{"42", KindInt, int64(42)},
		{"-7", KindInt, int64(-7)},
		{"+3", KindInt, int64(3)},
		{"1.5", KindFloat, 1.5},
		{"-0.25", KindFloat, -0.25},
		{"1e3", KindFloat, 1000.0},
		{"99999999999999999999", KindFloat, 1e20},
		{"null", KindNull, nil},
		{"None", KindNull, nil},
		{"NULL", KindNull, nil},
		{"hello", KindString, "hello"},
		{"", KindString, ""},
		{"NaN", KindString, "NaN"},
		{"inf", KindString, "inf"},
		{"12abc", KindString, "12abc"},
		{"yes", KindString, "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := Parse(tt.raw)
			assert.Equal(t, tt.kind, v.Kind(), "kind of %q", tt.raw)
			assert.Equal(t, tt.expected, v.Interface())
		})
	}
}

func TestValueAccessors(t *testing.T) {
	b, ok := Parse("true").AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = Parse("1").AsBool()
	assert.False(t, ok)

	f, ok := Parse("3").AsFloat()
	assert.True(t, ok, "ints widen to float")
	assert.Equal(t, 3.0, f)

	_, ok = Parse("x").AsFloat()
	assert.False(t, ok)

	s, ok := Parse("word").AsString()
	assert.True(t, ok)
	assert.Equal(t, "word", s)

	assert.True(t, Parse("none").IsNull())
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "true", Parse("TRUE").Canonical())
	assert.Equal(t, "42", Parse("42").Canonical())
	assert.Equal(t, "1.5", Parse("1.50").Canonical())
	assert.Equal(t, "1.0", Parse("1.0").Canonical())
	assert.NotEqual(t, Parse("1").Canonical(), Parse("1.0").Canonical())
	assert.Equal(t, "null", Parse("None").Canonical())
	assert.Equal(t, "abc", Parse("abc").Canonical())
}

func TestValueMarshalJSON(t *testing.T) {
	p := Params{
		"b": Parse("true"),
		"i": Parse("7"),
		"f": Parse("2.5"),
		"n": Parse("null"),
		"s": Parse("text"),
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":true,"i":7,"f":2.5,"n":null,"s":"text"}`, string(data))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "bool", KindBool.String())
	assert.Equal(t, "int", KindInt.String())
	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "null", KindNull.String())
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
