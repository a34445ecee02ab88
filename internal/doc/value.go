// Package doc is the in-memory model for the JSON documents the scene tools
// read and rewrite.
//
// A document value is always one of: nil, bool, float64, string, []any or
// *Object. KindOf classifies a value into that closed set; every other Go
// type reports KindInvalid. Objects keep insertion order so that "first key"
// and "iteration order" are stable across a decode/encode round trip.
package doc

import "fmt"

// Kind is the tag of a document value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
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
		return "invalid"
	}
}

// KindOf reports the tag of v.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case *Object:
		return KindObject
	default:
		return KindInvalid
	}
}

// IsContainer reports whether v is an array or an object.
func IsContainer(v any) bool {
	k := KindOf(v)
	return k == KindArray || k == KindObject
}

// Object is a string-keyed mapping that remembers insertion order.
// The zero value is not usable; call NewObject.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]any)}
}

// ObjectOf builds an object from alternating key/value pairs.
// It panics on an odd argument count or a non-string key.
func ObjectOf(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("doc: ObjectOf needs key/value pairs")
	}
	o := NewObject()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("doc: ObjectOf key %d is %T, want string", i/2, kv[i]))
		}
		o.Set(key, kv[i+1])
	}
	return o
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present, even with a null value.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. New keys go to the end; existing keys keep their
// position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, ok := o.vals[key]; !ok {
		return false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each entry in order until fn returns false.
func (o *Object) Range(fn func(key string, v any) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// MarshalJSON encodes the object compactly, preserving key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return Encode(o)
}

// UnmarshalJSON decodes a JSON object into o, replacing its contents.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	src, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("doc: cannot unmarshal %s into Object", KindOf(v))
	}
	o.keys = src.keys
	o.vals = src.vals
	return nil
}
