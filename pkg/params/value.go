// Package params models device parameters as tagged values.
// The source format stores every parameter as an untyped attribute string;
// Parse assigns a tag once so consumers switch on type instead of
// re-interpreting strings.
package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Value is a sealed interface. Only String, Number, Bool and Map implement it.
type Value interface {
	paramValue()
}

// String is a textual parameter value.
type String string

func (String) paramValue() {}

// Number is a numeric parameter value.
type Number float64

func (Number) paramValue() {}

// Bool is a switch parameter value.
type Bool bool

func (Bool) paramValue() {}

// Map groups nested parameters, e.g. the bands of an equalizer.
type Map map[string]Value

func (Map) paramValue() {}

// Parse tags a raw attribute value. "true" and "false" become Bool,
// anything strconv accepts as a finite float becomes Number, and the
// rest stays String.
func Parse(raw string) Value {
	switch raw {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !isSpecial(raw) {
		return Number(f)
	}
	return String(raw)
}

// isSpecial rejects spellings ParseFloat accepts that the format never
// uses for numbers ("Inf", "NaN", hex floats).
func isSpecial(raw string) bool {
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return true
		}
	}
	return false
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Float returns the value of key as a float64 when it is a Number.
func (m Map) Float(key string) (float64, bool) {
	n, ok := m[key].(Number)
	return float64(n), ok
}

// Flag returns the value of key when it is a Bool.
func (m Map) Flag(key string) (bool, bool) {
	b, ok := m[key].(Bool)
	return bool(b), ok
}

// Text returns the value of key when it is a String.
func (m Map) Text(key string) (string, bool) {
	s, ok := m[key].(String)
	return string(s), ok
}

// Nested returns the value of key when it is a Map.
func (m Map) Nested(key string) (Map, bool) {
	n, ok := m[key].(Map)
	return n, ok
}

// UnmarshalJSON restores tags from JSON types: strings, numbers, booleans
// and objects map to String, Number, Bool and Map.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}

	out := make(Map, len(raw))
	for k, v := range raw {
		val, err := decodeValue(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", k, err)
		}
		out[k] = val
	}
	*m = out
	return nil
}

func decodeValue(data json.RawMessage) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case '{':
		var nested Map
		if err := nested.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return nested, nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("unsupported value %s", data)
		}
		return Number(f), nil
	}
}
