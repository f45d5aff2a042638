// Package coerce converts candidate cell values to a column's declared type
// and applies validation rules.
package coerce

import (
	"fmt"
	"strings"

	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeNumber ColumnType = "number"
	TypeBool   ColumnType = "bool"
	TypeNull   ColumnType = "null"
)

// ParseType accepts a type name in any case.
func ParseType(s string) (ColumnType, error) {
	switch t := ColumnType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeString, TypeNumber, TypeBool, TypeNull:
		return t, nil
	case "boolean":
		return TypeBool, nil
	}
	return "", fmt.Errorf("unknown column type %q (expected string, number, bool or null)", s)
}

// Coerce converts v to type t. input is the raw text the user typed, if any;
// it is consulted only when v is Null.
func Coerce(t ColumnType, v value.Value, input *string) (value.Value, error) {
	switch t {
	case TypeString:
		return value.String(v.Display()), nil
	case TypeNumber:
		if n, ok := toNumber(v, input); ok {
			return n, nil
		}
	case TypeBool:
		if b, ok := toBool(v, input); ok {
			return value.Bool(b), nil
		}
	case TypeNull:
		if v.IsNull() {
			return value.Null(), nil
		}
		if input != nil {
			raw := strings.TrimSpace(*input)
			if raw == "" || strings.EqualFold(raw, "null") {
				return value.Null(), nil
			}
		}
	default:
		return v, nil
	}
	return value.Value{}, sheeterr.New(sheeterr.KindCoercion, "value %q is not a valid %s", describe(v, input), t)
}

func toNumber(v value.Value, input *string) (value.Value, bool) {
	switch v.Kind {
	case value.KindNumber:
		return v, true
	case value.KindString:
		return value.ParseNumber(v.Text)
	case value.KindBool:
		if v.Boolean {
			return value.Int(1), true
		}
		return value.Int(0), true
	case value.KindNull:
		if input != nil {
			return value.ParseNumber(*input)
		}
	case value.KindArray, value.KindObject:
	}
	return value.Value{}, false
}

func toBool(v value.Value, input *string) (bool, bool) {
	switch v.Kind {
	case value.KindBool:
		return v.Boolean, true
	case value.KindNumber:
		f, ok := v.Float64()
		return f != 0, ok
	case value.KindString:
		return parseBool(v.Text)
	case value.KindNull:
		if input != nil {
			return parseBool(*input)
		}
	case value.KindArray, value.KindObject:
	}
	return false, false
}

func parseBool(raw string) (bool, bool) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(s, "true") || s == "1":
		return true, true
	case strings.EqualFold(s, "false") || s == "0":
		return false, true
	}
	return false, false
}

func describe(v value.Value, input *string) string {
	if v.IsNull() && input != nil {
		return *input
	}
	return v.KeyText()
}
