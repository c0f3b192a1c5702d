// Package payload models logged values as a tagged variant and converts
// arbitrary Go values to and from it.
//
// Every payload is exactly one of three shapes, fixed when the value is
// accepted: a scalar (string, number, bool or null), an array, or an object
// whose keys keep their insertion order. Downstream code such as the
// exporter switches on [Value.Kind] instead of probing dynamic types.
package payload

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"strconv"
)

// Kind identifies which shape a Value holds.
type Kind uint8

const (
	// KindScalar is a string, number, boolean or null.
	KindScalar Kind = iota
	// KindArray is an ordered list of values.
	KindArray
	// KindObject is an ordered list of key/value fields.
	KindObject
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable, acyclic JSON-shaped value. The zero Value is null.
type Value struct {
	kind   Kind
	raw    []byte // compact JSON text, scalars only
	items  []Value
	fields []Field
}

// Field is one member of an object Value.
type Field struct {
	Key   string
	Value Value
}

var nullJSON = []byte("null")

// Null returns the null scalar.
func Null() Value {
	return Value{kind: KindScalar, raw: nullJSON}
}

// String returns a string scalar.
func String(s string) Value {
	return Value{kind: KindScalar, raw: appendString(nil, s)}
}

// Bool returns a boolean scalar.
func Bool(b bool) Value {
	return Value{kind: KindScalar, raw: strconv.AppendBool(nil, b)}
}

// Int returns an integer scalar.
func Int(i int64) Value {
	return Value{kind: KindScalar, raw: strconv.AppendInt(nil, i, 10)}
}

// Uint returns an unsigned integer scalar.
func Uint(u uint64) Value {
	return Value{kind: KindScalar, raw: strconv.AppendUint(nil, u, 10)}
}

// Number returns a float scalar. NaN and infinities have no JSON form and
// become null.
func Number(f float64) Value {
	return number(f, 64)
}

func number(f float64, bits int) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	var b []byte
	if bits == 32 {
		b, _ = json.Marshal(float32(f))
	} else {
		b, _ = json.Marshal(f)
	}
	return Value{kind: KindScalar, raw: b}
}

// Array returns an array of items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: slices.Clone(items)}
}

// Object returns an object whose keys appear in the order given.
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: slices.Clone(fields)}
}

// Kind reports the shape of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is the null scalar.
func (v Value) IsNull() bool {
	return v.kind == KindScalar && (v.raw == nil || bytes.Equal(v.raw, nullJSON))
}

// Len returns the number of array items or object fields; scalars have none.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	default:
		return 0
	}
}

// Items returns a copy of the array items.
func (v Value) Items() []Value {
	return slices.Clone(v.items)
}

// Fields returns a copy of the object fields in order.
func (v Value) Fields() []Field {
	return slices.Clone(v.fields)
}

// Keys returns the object keys in order.
func (v Value) Keys() []string {
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value stored under key in an object.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// AppendJSON appends the compact JSON encoding of v to dst.
func (v Value) AppendJSON(dst []byte) []byte {
	switch v.kind {
	case KindArray:
		dst = append(dst, '[')
		for i, item := range v.items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = item.AppendJSON(dst)
		}
		return append(dst, ']')
	case KindObject:
		dst = append(dst, '{')
		for i, f := range v.fields {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendString(dst, f.Key)
			dst = append(dst, ':')
			dst = f.Value.AppendJSON(dst)
		}
		return append(dst, '}')
	default:
		if v.raw == nil {
			return append(dst, nullJSON...)
		}
		return append(dst, v.raw...)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil), nil
}

// Text returns the compact JSON text of v.
func (v Value) Text() string {
	return string(v.AppendJSON(nil))
}

// Interface decodes v into the generic form produced by encoding/json:
// map[string]any, []any, string, float64, bool or nil.
func (v Value) Interface() any {
	var out any
	// AppendJSON always yields valid JSON.
	_ = json.Unmarshal(v.AppendJSON(nil), &out)
	return out
}

// Marshal encodes v, indenting nested elements with indent when it is not
// empty.
func Marshal(v Value, indent string) ([]byte, error) {
	compact := v.AppendJSON(nil)
	if indent == "" {
		return compact, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendString appends s as a JSON string without HTML escaping.
func appendString(dst []byte, s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return append(dst, bytes.TrimSuffix(buf.Bytes(), []byte("\n"))...)
}
