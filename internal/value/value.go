// Package value implements the JSON-like cell value shared by every layer of
// a sheet: data rows, formula results, coercion and the sidecar codec.
package value

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind selects which field of a Value is meaningful.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the JSON data model. Only the field selected
// by Kind is meaningful; the zero Value is Null.
//
// Numbers are held as canonical decimal text so that integers outside the
// float64-exact range survive a load/save round trip unchanged.
type Value struct {
	Kind    Kind
	Boolean bool
	Number  json.Number
	Text    string
	Items   []Value
	Fields  map[string]Value
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{Kind: KindBool, Boolean: b} }

func Int(i int64) Value {
	return Value{Kind: KindNumber, Number: json.Number(strconv.FormatInt(i, 10))}
}

func Uint(u uint64) Value {
	return Value{Kind: KindNumber, Number: json.Number(strconv.FormatUint(u, 10))}
}

// Float converts f to a Number. Non-finite input yields Null, and integral
// values that fit in 64 bits are stored as integers.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	if f == math.Trunc(f) {
		if f >= -9.223372036854775808e18 && f < 9.223372036854775808e18 {
			return Int(int64(f))
		}
		if f >= 0 && f < 1.8446744073709551616e19 {
			return Uint(uint64(f))
		}
	}
	return Value{Kind: KindNumber, Number: json.Number(formatFloat(f))}
}

func String(s string) Value { return Value{Kind: KindString, Text: s} }

func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindArray, Items: items}
}

func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{Kind: KindObject, Fields: fields}
}

// ParseNumber parses decimal text as int64, then uint64, then a finite
// float64. Hex, underscores and non-finite spellings are rejected.
func ParseNumber(text string) (Value, bool) {
	s := strings.TrimSpace(text)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return Value{}, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), true
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Uint(u), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, false
	}
	return Float(f), true
}

// formatFloat mirrors encoding/json's float formatting.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Int64 reports the number as an int64 when it is an exact integer in range.
func (v Value) Int64() (int64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	i, err := strconv.ParseInt(string(v.Number), 10, 64)
	return i, err == nil
}

// Uint64 reports the number as a uint64 when it is an exact non-negative
// integer in range.
func (v Value) Uint64() (uint64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	u, err := strconv.ParseUint(string(v.Number), 10, 64)
	return u, err == nil
}

// Float64 reports a Number as float64. Other kinds are not converted.
func (v Value) Float64() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(v.Number), 64)
	return f, err == nil
}

// ToFloat is the lenient numeric view used by arithmetic, summaries and
// conditional rules: numbers as-is, trimmed numeric strings, and booleans as
// 1 or 0. The result is always finite.
func (v Value) ToFloat() (float64, bool) {
	var f float64
	switch v.Kind {
	case KindNumber:
		n, ok := v.Float64()
		if !ok {
			return 0, false
		}
		f = n
	case KindString:
		s := strings.TrimSpace(v.Text)
		if strings.ContainsAny(s, "xX_") {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	case KindBool:
		if v.Boolean {
			return 1, true
		}
		return 0, true
	case KindNull, KindArray, KindObject:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Display is the canonical text shown in a grid cell. Null displays as the
// empty string; arrays and objects as compact JSON.
func (v Value) Display() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Boolean)
	case KindNumber:
		return string(v.Number)
	case KindString:
		return v.Text
	case KindArray, KindObject:
		b, err := encodeCompact(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// KeyText is the stringified form used to align row metadata by key.
func (v Value) KeyText() string {
	switch v.Kind {
	case KindString:
		return v.Text
	case KindNumber:
		return string(v.Number)
	case KindBool:
		return strconv.FormatBool(v.Boolean)
	case KindNull:
		return "null"
	case KindArray, KindObject:
		return v.Display()
	}
	return ""
}

func (v Value) String() string { return v.Display() }

// Equal reports deep equality. Numbers compare by canonical text.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Boolean == b.Boolean
	case KindNumber:
		return a.Number == b.Number
	case KindString:
		return a.Text == b.Text
	case KindArray:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for k, av := range a.Fields {
			bv, ok := b.Fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}
