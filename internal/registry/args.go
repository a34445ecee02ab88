package registry

import (
	"bytes"
	"errors"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
)

// DecodeArgs parses a JSON object of tool arguments. Nested objects stay
// *doc.Object so handlers see keys in the order the caller wrote them.
func DecodeArgs(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	v, err := doc.Decode(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := doc.AsObject(v); !ok {
		return nil, errors.New("arguments must be a JSON object")
	}
	return ObjectArgs(v), nil
}

// ObjectArgs spreads a decoded object into an argument map. Anything
// other than an object gives an empty map.
func ObjectArgs(v any) map[string]any {
	out := map[string]any{}
	obj, ok := doc.AsObject(v)
	if !ok {
		return out
	}
	obj.Range(func(k string, item any) bool {
		out[k] = item
		return true
	})
	return out
}
