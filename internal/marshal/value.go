package marshal

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Marker keys identify special-value slots inside schemas and inside the
// JSON wire encoding of special values.
const (
	RemoteKey    = "$pagebridge::remote"
	BigIntKey    = "$pagebridge::bigint"
	UndefinedKey = "$pagebridge::undefined"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindRemote
	KindBigInt
	KindUndefined
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindRemote:
		return "remote"
	case KindBigInt:
		return "bigint"
	case KindUndefined:
		return "undefined"
	}
	return "unknown"
}

// HandleType is the runtime shape of a remote handle.
type HandleType string

const (
	HandleObject   HandleType = "object"
	HandleFunction HandleType = "function"
	HandleSymbol   HandleType = "symbol"
)

// Handle identifies a live value retained inside the execution context.
// Only the identifier crosses the JSON channel; the value it names never
// leaves the context.
type Handle struct {
	ID      string     `json:"id"`
	Type    HandleType `json:"type"`
	Subtype string     `json:"subtype,omitempty"`
	Class   string     `json:"class,omitempty"`
}

// Value is a tagged variant covering every shape that can cross the
// boundary: the six JSON kinds plus the three special kinds (remote
// handle, bigint, undefined). The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	str     string
	items   []Value
	fields  map[string]Value
	handle  *Handle
}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Undefined returns the undefined special value.
func Undefined() Value { return Value{kind: KindUndefined} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, number: f} }

// Int returns a numeric value holding an integer.
func Int(i int) Value { return Value{kind: KindNumber, number: float64(i)} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array returns an array value holding the given items.
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Object returns an object value holding the given fields. A nil map is
// an empty object.
func Object(fields map[string]Value) Value { return Value{kind: KindObject, fields: fields} }

// Remote returns a handle value referencing a live object, function or
// symbol inside the execution context.
func Remote(h Handle) Value { return Value{kind: KindRemote, handle: &h} }

// BigInt returns an arbitrary-precision integer value. The digits string
// is the base-10 representation without the trailing "n".
func BigInt(digits string) Value { return Value{kind: KindBigInt, str: digits} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsBool reports the boolean payload; zero value for other kinds.
func (v Value) Bool() bool { return v.boolean }

// Number reports the numeric payload; zero value for other kinds.
func (v Value) Number() float64 { return v.number }

// Str reports the string payload; empty for other kinds.
func (v Value) Str() string { return v.str }

// Digits reports the bigint digits; empty for other kinds.
func (v Value) Digits() string { return v.str }

// Items reports the array payload. The slice must not be mutated.
func (v Value) Items() []Value { return v.items }

// Len reports the number of array items or object fields.
func (v Value) Len() int {
	if v.kind == KindArray {
		return len(v.items)
	}
	return len(v.fields)
}

// Field reports an object field and whether it is present.
func (v Value) Field(name string) (Value, bool) {
	f, ok := v.fields[name]
	return f, ok
}

// FieldNames reports the object's keys in sorted order.
func (v Value) FieldNames() []string {
	names := make([]string, 0, len(v.fields))
	for name := range v.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle reports the remote handle; nil for other kinds.
func (v Value) Handle() *Handle { return v.handle }

// IsIntegral reports whether v is a number with no fractional part.
func (v Value) IsIntegral() bool {
	return v.kind == KindNumber && !math.IsInf(v.number, 0) && !math.IsNaN(v.number) &&
		math.Trunc(v.number) == v.number
}

// runtimeKind maps a value onto the mutually exclusive runtime shapes a
// marker allow-list speaks about: object, function, symbol, bigint or
// undefined. JSON scalars map to the empty string.
func (v Value) runtimeKind() HandleType {
	switch v.kind {
	case KindObject, KindArray:
		return HandleObject
	case KindRemote:
		return v.handle.Type
	case KindBigInt:
		return "bigint"
	case KindUndefined:
		return "undefined"
	}
	return ""
}

// IsJSON reports whether the value tree contains no special values.
func (v Value) IsJSON() bool {
	switch v.kind {
	case KindRemote, KindBigInt, KindUndefined:
		return false
	case KindArray:
		for _, item := range v.items {
			if !item.IsJSON() {
				return false
			}
		}
	case KindObject:
		for _, f := range v.fields {
			if !f.IsJSON() {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy. Handles are shared by identifier, which is
// safe: a Handle is an immutable reference, not the value itself.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = item.Clone()
		}
		return Value{kind: KindArray, items: items}
	case KindObject:
		fields := make(map[string]Value, len(v.fields))
		for name, f := range v.fields {
			fields[name] = f.Clone()
		}
		return Value{kind: KindObject, fields: fields}
	case KindRemote:
		h := *v.handle
		return Value{kind: KindRemote, handle: &h}
	}
	return v
}

// Equal reports deep structural equality. Remote handles compare by
// identifier.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.boolean == other.boolean
	case KindNumber:
		return v.number == other.number
	case KindString, KindBigInt:
		return v.str == other.str
	case KindArray:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
	case KindObject:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for name, f := range v.fields {
			of, ok := other.fields[name]
			if !ok || !f.Equal(of) {
				return false
			}
		}
	case KindRemote:
		return v.handle.ID == other.handle.ID
	}
	return true
}

// String renders a compact debug representation.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBool:
		return fmt.Sprintf("%t", v.boolean)
	case KindNumber:
		return strings.TrimSuffix(fmt.Sprintf("%v", v.number), ".0")
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindBigInt:
		return v.str + "n"
	case KindRemote:
		return fmt.Sprintf("remote(%s %s)", v.handle.Type, v.handle.ID)
	case KindArray:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindObject:
		parts := make([]string, 0, len(v.fields))
		for _, name := range v.FieldNames() {
			parts = append(parts, fmt.Sprintf("%q:%s", name, v.fields[name].String()))
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return "unknown"
}

// MarshalJSON encodes JSON kinds natively and special kinds as marker
// objects, so a Value survives a trip across the JSON channel.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toInterface())
}

func (v Value) toInterface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolean
	case KindNumber:
		return v.number
	case KindString:
		return v.str
	case KindArray:
		items := make([]interface{}, len(v.items))
		for i, item := range v.items {
			items[i] = item.toInterface()
		}
		return items
	case KindObject:
		fields := make(map[string]interface{}, len(v.fields))
		for name, f := range v.fields {
			fields[name] = f.toInterface()
		}
		return fields
	case KindRemote:
		return map[string]interface{}{RemoteKey: v.handle}
	case KindBigInt:
		return map[string]interface{}{BigIntKey: v.str}
	case KindUndefined:
		return map[string]interface{}{UndefinedKey: true}
	}
	return nil
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON, reviving
// marker objects into their special variants.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := fromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromJSON decodes a JSON document into a Value.
func FromJSON(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

func fromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case float64:
		return Number(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			parsed, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = parsed
		}
		return Array(items...), nil
	case map[string]interface{}:
		if special, ok := reviveSpecial(t); ok {
			return special, nil
		}
		fields := make(map[string]Value, len(t))
		for name, f := range t {
			parsed, err := fromInterface(f)
			if err != nil {
				return Value{}, err
			}
			fields[name] = parsed
		}
		return Object(fields), nil
	}
	return Value{}, fmt.Errorf("unsupported JSON value of type %T", raw)
}

// reviveSpecial recognizes the wire encoding of special values. Shapes
// that merely reuse a marker key without matching the encoding (for
// example a schema document whose properties declare a marker slot)
// decode as plain objects instead.
func reviveSpecial(obj map[string]interface{}) (Value, bool) {
	// The wire encoding is exactly one marker key and nothing else.
	if len(obj) != 1 {
		return Value{}, false
	}
	if raw, ok := obj[RemoteKey]; ok {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, false
		}
		h := Handle{}
		if id, ok := m["id"].(string); ok {
			h.ID = id
		}
		if typ, ok := m["type"].(string); ok {
			h.Type = HandleType(typ)
		}
		if sub, ok := m["subtype"].(string); ok {
			h.Subtype = sub
		}
		if class, ok := m["class"].(string); ok {
			h.Class = class
		}
		switch h.Type {
		case HandleObject, HandleFunction, HandleSymbol:
		default:
			return Value{}, false
		}
		if h.ID == "" {
			return Value{}, false
		}
		return Remote(h), true
	}
	if raw, ok := obj[BigIntKey]; ok {
		digits, ok := raw.(string)
		if !ok {
			return Value{}, false
		}
		return BigInt(digits), true
	}
	if raw, ok := obj[UndefinedKey]; ok {
		if b, ok := raw.(bool); !ok || !b {
			return Value{}, false
		}
		return Undefined(), true
	}
	return Value{}, false
}
