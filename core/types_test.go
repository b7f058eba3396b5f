package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterDescriptorIsEmpty(t *testing.T) {
	assert.True(t, FilterDescriptor{}.IsEmpty())
	assert.True(t, FilterDescriptor{Value: nil}.IsEmpty())
	assert.True(t, FilterDescriptor{Value: ""}.IsEmpty())
	assert.True(t, FilterDescriptor{Value: []any{}}.IsEmpty())
	assert.True(t, FilterDescriptor{Value: []string{}}.IsEmpty())

	assert.False(t, FilterDescriptor{Value: "x"}.IsEmpty())
	assert.False(t, FilterDescriptor{Value: false}.IsEmpty())
	assert.False(t, FilterDescriptor{Value: 0}.IsEmpty())
	assert.False(t, FilterDescriptor{Value: []any{nil}}.IsEmpty())
}

func TestIsGroupRow(t *testing.T) {
	assert.True(t, IsGroupRow(Row{KeyIsGroup: true}))
	assert.False(t, IsGroupRow(Row{KeyIsGroup: "true"}))
	assert.False(t, IsGroupRow(Row{"a": 1}))
	assert.False(t, IsGroupRow(nil))
}

func TestToFloat64(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{42, 42, true},
		{int64(7), 7, true},
		{3.5, 3.5, true},
		{float32(2), 2, true},
		{"10.5", 10.5, true},
		{" 10.5 ", 10.5, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := ToFloat64(c.in)
		assert.Equal(t, c.ok, ok, "input %v", c.in)
		if ok {
			assert.Equal(t, c.want, got, "input %v", c.in)
		}
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "42", Stringify(42))
	assert.Equal(t, "true", Stringify(true))
}
