// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package value

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Kind identifies the underlying type carried by a Value.
type Kind int

const (
	// KindNone is the zero Kind.  A Value of KindNone carries nothing.
	KindNone Kind = iota
	KindNumber
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is a tagged variant for a runtime variable reading.  Plant runtimes
// report numbers for most points, but discrete and text points show up too,
// so the variant keeps the three shapes a point can take without falling
// back to interface{}.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// None returns the empty Value.
func None() Value { return Value{} }

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromGJSON maps a gjson result onto a Value.  Null and missing results map
// to None.
func FromGJSON(r gjson.Result) Value {
	switch r.Type {
	case gjson.Number:
		return Number(r.Num)
	case gjson.String:
		return String(r.Str)
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	default:
		return None()
	}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether the Value carries nothing.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Number returns the numeric payload.  ok is false unless Kind is KindNumber.
func (v Value) Number() (f float64, ok bool) {
	return v.num, v.kind == KindNumber
}

// Text returns the string payload.  ok is false unless Kind is KindString.
func (v Value) Text() (s string, ok bool) {
	return v.str, v.kind == KindString
}

// Bool returns the boolean payload.  ok is false unless Kind is KindBool.
func (v Value) Bool() (b bool, ok bool) {
	return v.b, v.kind == KindBool
}

// Equal reports whether two Values carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// String renders the Value for display.  None renders as "-".
func (v Value) String() string {
	return v.Format("")
}

// Format renders the Value using an optional fmt verb hint (eg. "%.2f").
// The hint only applies to numbers; an empty hint falls back to the
// shortest representation.
func (v Value) Format(hint string) string {
	switch v.kind {
	case KindNumber:
		if hint != "" {
			return fmt.Sprintf(hint, v.num)
		}
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "-"
	}
}

// Interface unwraps the Value for encoders (json, yaml, csv rows).  None
// unwraps to nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	default:
		return nil
	}
}
