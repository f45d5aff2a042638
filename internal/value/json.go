package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the value with object keys in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	return encodeCompact(v)
}

// UnmarshalJSON decodes any JSON document, keeping numbers exact.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromAny converts a decoded JSON tree (as produced by encoding/json, with
// or without UseNumber) into a Value.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		n, ok := ParseNumber(string(x))
		if !ok {
			return Value{}, fmt.Errorf("number %q out of range", string(x))
		}
		return n, nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint64:
		return Uint(x), nil
	case string:
		return String(x), nil
	case []any:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			iv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, iv)
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			iv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = iv
		}
		return Object(fields), nil
	case Value:
		return x, nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON type %T", raw)
	}
}

// ToAny converts to an encoding/json tree; numbers stay json.Number.
func (v Value) ToAny() any {
	switch v.Kind {
	case KindBool:
		return v.Boolean
	case KindNumber:
		return v.Number
	case KindString:
		return v.Text
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Fields))
		for k, item := range v.Fields {
			out[k] = item.ToAny()
		}
		return out
	}
	return nil
}

// Native converts to plain Go values (int64, uint64, float64) for encoders
// and drivers that do not understand json.Number.
func (v Value) Native() any {
	switch v.Kind {
	case KindBool:
		return v.Boolean
	case KindNumber:
		if i, ok := v.Int64(); ok {
			return i
		}
		if u, ok := v.Uint64(); ok {
			return u
		}
		f, _ := v.Float64()
		return f
	case KindString:
		return v.Text
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Native()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Fields))
		for k, item := range v.Fields {
			out[k] = item.Native()
		}
		return out
	}
	return nil
}

func encodeCompact(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.ToAny()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
