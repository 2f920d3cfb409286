package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind identifies the JSON type held by a Value
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// String returns the JSON name of the kind
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "null"
	}
}

// Value is an immutable JSON document node. The zero Value is JSON null,
// which is also what every accessor returns for a missing or mismatched
// lookup, so navigation never fails.
type Value struct {
	kind   Kind
	b      bool
	num    json.Number
	str    string
	items  []Value
	keys   []string
	fields map[string]Value
}

// Member is a key/value pair used to build objects
type Member struct {
	Key   string
	Value Value
}

// Parse decodes a single JSON document, preserving object key order
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decode(dec)
	if err != nil {
		return Value{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("failed to parse JSON: trailing data after document")
	}
	return v, nil
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Value{kind: Object, fields: make(map[string]Value)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				member, err := decode(dec)
				if err != nil {
					return Value{}, err
				}
				obj.set(key, member)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return obj, nil
		case '[':
			arr := Value{kind: Array, items: []Value{}}
			for dec.More() {
				item, err := decode(dec)
				if err != nil {
					return Value{}, err
				}
				arr.items = append(arr.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return arr, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case bool:
		return Value{kind: Bool, b: t}, nil
	case json.Number:
		return Value{kind: Number, num: t}, nil
	case string:
		return Value{kind: String, str: t}, nil
	case nil:
		return Value{}, nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func (v *Value) set(key string, member Value) {
	if _, exists := v.fields[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = member
}

// StringOf returns a string Value
func StringOf(s string) Value {
	return Value{kind: String, str: s}
}

// ObjectOf returns an object Value with the members in the given order
func ObjectOf(members ...Member) Value {
	obj := Value{kind: Object, fields: make(map[string]Value, len(members))}
	for _, m := range members {
		obj.set(m.Key, m.Value)
	}
	return obj
}

// EmptyObject returns {}
func EmptyObject() Value {
	return ObjectOf()
}

// Kind returns the kind of the value
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null or absent
func (v Value) IsNull() bool {
	return v.kind == Null
}

// IsObject reports whether the value is a JSON object
func (v Value) IsObject() bool {
	return v.kind == Object
}

// Get returns the member stored under key, or null when v is not an
// object or has no such key
func (v Value) Get(key string) Value {
	if v.kind != Object {
		return Value{}
	}
	return v.fields[key]
}

// Has reports whether v is an object containing key
func (v Value) Has(key string) bool {
	if v.kind != Object {
		return false
	}
	_, ok := v.fields[key]
	return ok
}

// Path follows a sequence of object keys
func (v Value) Path(keys ...string) Value {
	cur := v
	for _, k := range keys {
		cur = cur.Get(k)
	}
	return cur
}

// Index returns the i-th array element, or null when out of range
func (v Value) Index(i int) Value {
	if v.kind != Array || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Len returns the number of array elements or object members
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.keys)
	default:
		return 0
	}
}

// Keys returns the object keys in document order
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)
	return keys
}

// AsString returns the string payload when v is a JSON string
func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.str, true
}

// AsBool returns the boolean payload when v is a JSON boolean
func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the number payload when v is a JSON number
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != Number {
		return "", false
	}
	return v.num, true
}

// Text renders the value for human consumption: strings as-is, null as
// the empty string, everything else as compact JSON
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return ""
	case String:
		return v.str
	default:
		var buf bytes.Buffer
		v.write(&buf, "", 0)
		return buf.String()
	}
}

// Pretty renders the value as JSON indented by two spaces
func (v Value) Pretty() string {
	var buf bytes.Buffer
	v.write(&buf, "  ", 0)
	return buf.String()
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.write(&buf, "", 0)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) write(buf *bytes.Buffer, indent string, depth int) {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		buf.WriteString(v.num.String())
	case String:
		writeString(buf, v.str)
	case Array:
		if len(v.items) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			item.write(buf, indent, depth+1)
		}
		newline(buf, indent, depth)
		buf.WriteByte(']')
	case Object:
		if len(v.keys) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			writeString(buf, key)
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			v.fields[key].write(buf, indent, depth+1)
		}
		newline(buf, indent, depth)
		buf.WriteByte('}')
	}
}

func newline(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, depth))
}

// writeString quotes s without escaping HTML characters
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		buf.WriteString(`""`)
		return
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}
