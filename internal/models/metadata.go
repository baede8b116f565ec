package models

import (
	"encoding/json"
)

// Metadata is the free-form per-event payload. Game servers may send it as
// a JSON object or as a JSON string containing an encoded object; older
// clients occasionally send scalars. Decoding normalizes all of these so
// downstream code only ever sees a map:
//
//   - object          -> used as-is
//   - string          -> parsed as JSON; on failure, empty map
//   - anything else   -> empty map
type Metadata map[string]any

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		*m = obj
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var nested map[string]any
		if err := json.Unmarshal([]byte(s), &nested); err == nil {
			*m = nested
			return nil
		}
	}

	// Scalar, list, or unparsable string. Coerced, never fatal.
	*m = Metadata{}
	return nil
}

// Float returns the numeric value under key, or fallback when the key is
// missing or not numeric. JSON numbers decode as float64; string-encoded
// numbers are not coerced here.
func (m Metadata) Float(key string, fallback float64) float64 {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return fallback
}

// Encode serializes the metadata for storage. A nil map encodes as "{}".
func (m Metadata) Encode() string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return "{}"
	}
	return string(b)
}
