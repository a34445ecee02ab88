package doc

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Clone returns a deep copy of v.
func Clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case *Object:
		if t == nil {
			return (*Object)(nil)
		}
		out := &Object{keys: make([]string, len(t.keys)), vals: make(map[string]any, len(t.vals))}
		copy(out.keys, t.keys)
		for k, item := range t.vals {
			out.vals[k] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// FromGo converts plain Go data, such as decoded tool arguments, into a
// document value. Map keys are sorted because Go maps carry no order;
// structs go through encoding/json so their field order is kept.
func FromGo(v any) (any, error) {
	return fromGo(v)
}

// MustFromGo is FromGo for values known to be convertible.
func MustFromGo(v any) any {
	out, err := fromGo(v)
	if err != nil {
		panic(err)
	}
	return out
}

func fromGo(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, *Object:
		return t, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("doc: bad number %q: %w", t, err)
		}
		return f, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			c, err := fromGo(item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			c, err := fromGo(t[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, c)
		}
		return obj, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("doc: cannot convert %T: %w", v, err)
		}
		return Decode(raw)
	}
}

// ToGo converts a document value into plain Go data (map[string]any for
// objects). Key order is lost.
func ToGo(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToGo(item)
		}
		return out
	case *Object:
		out := make(map[string]any, t.Len())
		t.Range(func(k string, item any) bool {
			out[k] = ToGo(item)
			return true
		})
		return out
	default:
		return v
	}
}

// Finite coerces v to a finite number. Numbers and numeric strings qualify;
// null, booleans, empty or malformed strings, NaN and infinities do not.
func Finite(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberOr returns Finite(v) or fallback.
func NumberOr(v any, fallback float64) float64 {
	if f, ok := Finite(v); ok {
		return f
	}
	return fallback
}

// String returns v when it is a string.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsObject returns v when it is an object.
func AsObject(v any) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok && o != nil
}

// AsArray returns v when it is an array.
func AsArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}
