// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestKinds(t *testing.T) {
	assert.True(t, None().IsNone())
	assert.Equal(t, KindNumber, Number(1).Kind())
	assert.Equal(t, KindString, String("x").Kind())
	assert.Equal(t, KindBool, Bool(true).Kind())
}

func TestAccessors(t *testing.T) {
	f, ok := Number(42.5).Number()
	assert.True(t, ok)
	assert.Equal(t, 42.5, f)

	// Wrong-kind access returns the zero payload and ok=false.
	_, ok = Number(42.5).Text()
	assert.False(t, ok)

	s, ok := String("run").Text()
	assert.True(t, ok)
	assert.Equal(t, "run", s)

	b, ok := Bool(true).Bool()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = None().Number()
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"none/none", None(), None(), true},
		{"same number", Number(1.5), Number(1.5), true},
		{"different number", Number(1.5), Number(2.5), false},
		{"number vs string", Number(1), String("1"), false},
		{"same string", String("a"), String("a"), true},
		{"same bool", Bool(false), Bool(false), true},
		{"bool vs none", Bool(false), None(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "42.5", Number(42.5).String())
	assert.Equal(t, "42.50", Number(42.5).Format("%.2f"))
	assert.Equal(t, "run", String("run").String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "-", None().String())
}

func TestFromGJSON(t *testing.T) {
	doc := `{"n": 12.25, "s": "abc", "t": true, "f": false, "z": null}`

	assert.Equal(t, Number(12.25), FromGJSON(gjson.Get(doc, "n")))
	assert.Equal(t, String("abc"), FromGJSON(gjson.Get(doc, "s")))
	assert.Equal(t, Bool(true), FromGJSON(gjson.Get(doc, "t")))
	assert.Equal(t, Bool(false), FromGJSON(gjson.Get(doc, "f")))
	assert.True(t, FromGJSON(gjson.Get(doc, "z")).IsNone())
	assert.True(t, FromGJSON(gjson.Get(doc, "missing")).IsNone())
}

func TestInterface(t *testing.T) {
	assert.Equal(t, 1.5, Number(1.5).Interface())
	assert.Equal(t, "x", String("x").Interface())
	assert.Equal(t, true, Bool(true).Interface())
	assert.Nil(t, None().Interface())
}
