package model

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// Result is an ordered string-keyed mapping produced by the extraction
// model. Values are strings, nested *Result mappings, or other JSON values
// (json.Number, bool, nil, []any) preserved verbatim. Key order follows
// insertion order and survives a JSON round trip.
type Result struct {
	keys   []string
	values map[string]any
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{values: make(map[string]any)}
}

// ParseResult decodes a JSON object into a Result.
func ParseResult(data []byte) (*Result, error) {
	r := NewResult()
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// Set stores v under key. Overwriting an existing key keeps its position.
func (r *Result) Set(key string, v any) *Result {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
	return r
}

// Get returns the value stored under key.
func (r *Result) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// GetString returns the value under key when it is a string.
func (r *Result) GetString(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// Keys returns the keys in insertion order.
func (r *Result) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of entries.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Each calls fn for every entry in order.
func (r *Result) Each(fn func(key string, v any)) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		fn(k, r.values[k])
	}
}

// MarshalJSON implements json.Marshaler preserving key order.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal result key %q", k)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler preserving key order.
func (r *Result) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "model: decode result")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.Errorf("model: result must be a JSON object, got %v", tok)
	}

	parsed, err := decodeObject(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return eris.New("model: trailing data after result object")
	}
	*r = *parsed
	return nil
}

// decodeObject reads entries until the closing brace. The opening brace has
// already been consumed.
func decodeObject(dec *json.Decoder) (*Result, error) {
	out := NewResult()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "model: decode key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, eris.Errorf("model: unexpected key token %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "model: decode object end")
	}
	return out, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "model: decode value")
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, eris.Wrap(err, "model: decode array end")
		}
		return arr, nil
	default:
		return nil, eris.Errorf("model: unexpected delimiter %v", d)
	}
}
