// Package jsonptr addresses and edits document trees with slash-delimited
// pointers ("/objects/cube-1/position/0").
//
// Tokens are unescaped with ~1 -> "/" then ~0 -> "~". A token made only of
// digits is an index when the node it is applied to is an array; on an
// object the same token is an ordinary key. The empty pointer and "/" both
// address the root.
//
// Mutating operations return the root because appending to an array may
// reallocate it. When the root is an object its identity never changes.
package jsonptr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
)

var (
	ErrRootWrite    = errors.New("the document root cannot be replaced through a pointer")
	ErrNotASequence = errors.New("target is not a sequence")
	ErrNotAMapping  = errors.New("target is not a mapping")
	ErrIndexRange   = errors.New("index is too far past the end of the sequence")
)

// maxPad bounds how far past the end of an array Set may write.
const maxPad = 1 << 16

// Error carries the operation and pointer of a failed edit.
type Error struct {
	Op      string
	Pointer string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Pointer, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Parse splits a pointer into unescaped reference tokens.
func Parse(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	pointer = strings.TrimPrefix(pointer, "/")
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return parts
}

// Escape encodes a key for use as a reference token.
func Escape(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}

// Unescape decodes a reference token.
func Unescape(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
}

// Format joins tokens into a pointer. No tokens yields "".
func Format(tokens ...string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(Escape(t))
	}
	return b.String()
}

func isIndex(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Get returns the value at pointer. The boolean is false when any segment
// is missing; Get never fails.
func Get(root any, pointer string) (any, bool) {
	node := root
	for _, tok := range Parse(pointer) {
		switch n := node.(type) {
		case *doc.Object:
			v, ok := n.Get(tok)
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			if !isIndex(tok) {
				return nil, false
			}
			i, err := strconv.Atoi(tok)
			if err != nil || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

// Set writes value at pointer, creating missing intermediate containers.
// An intermediate is created as an array when the token after it is
// numeric and as an object otherwise. Non-container intermediates are
// replaced.
func Set(root any, pointer string, value any) (any, error) {
	toks := Parse(pointer)
	if len(toks) == 0 {
		return root, &Error{Op: "set", Pointer: pointer, Err: ErrRootWrite}
	}
	if root == nil {
		root = newContainer(toks[0])
	}
	out, err := setIn(root, toks, value)
	if err != nil {
		return root, &Error{Op: "set", Pointer: pointer, Err: err}
	}
	return out, nil
}

func newContainer(next string) any {
	if isIndex(next) {
		return []any{}
	}
	return doc.NewObject()
}

func setIn(node any, toks []string, value any) (any, error) {
	tok, rest := toks[0], toks[1:]

	switch n := node.(type) {
	case *doc.Object:
		if len(rest) == 0 {
			n.Set(tok, value)
			return n, nil
		}
		child, ok := n.Get(tok)
		if !ok || !doc.IsContainer(child) {
			child = newContainer(rest[0])
		}
		updated, err := setIn(child, rest, value)
		if err != nil {
			return n, err
		}
		n.Set(tok, updated)
		return n, nil

	case []any:
		var idx int
		switch {
		case tok == "-":
			idx = len(n)
		case isIndex(tok):
			i, err := strconv.Atoi(tok)
			if err != nil || i > len(n)+maxPad {
				return n, ErrIndexRange
			}
			idx = i
		default:
			return n, ErrNotAMapping
		}
		for len(n) <= idx {
			n = append(n, nil)
		}
		if len(rest) == 0 {
			n[idx] = value
			return n, nil
		}
		child := n[idx]
		if !doc.IsContainer(child) {
			child = newContainer(rest[0])
		}
		updated, err := setIn(child, rest, value)
		if err != nil {
			return n, err
		}
		n[idx] = updated
		return n, nil

	default:
		return node, ErrNotAMapping
	}
}

// Remove deletes the key or index addressed by pointer and reports whether
// anything was removed. A missing intermediate segment is a no-op.
func Remove(root any, pointer string) (any, bool) {
	toks := Parse(pointer)
	if len(toks) == 0 {
		return root, false
	}
	return removeIn(root, toks)
}

func removeIn(node any, toks []string) (any, bool) {
	tok, rest := toks[0], toks[1:]

	switch n := node.(type) {
	case *doc.Object:
		if len(rest) == 0 {
			return n, n.Delete(tok)
		}
		child, ok := n.Get(tok)
		if !ok {
			return n, false
		}
		updated, removed := removeIn(child, rest)
		if removed {
			n.Set(tok, updated)
		}
		return n, removed

	case []any:
		if !isIndex(tok) {
			return n, false
		}
		idx, err := strconv.Atoi(tok)
		if err != nil || idx >= len(n) {
			return n, false
		}
		if len(rest) == 0 {
			out := make([]any, 0, len(n)-1)
			out = append(out, n[:idx]...)
			out = append(out, n[idx+1:]...)
			return out, true
		}
		updated, removed := removeIn(n[idx], rest)
		if removed {
			n[idx] = updated
		}
		return n, removed

	default:
		return node, false
	}
}

// Push appends value to the array at pointer.
func Push(root any, pointer string, value any) (any, error) {
	target, ok := Get(root, pointer)
	arr, isArr := target.([]any)
	if !ok || !isArr {
		return root, &Error{Op: "push", Pointer: pointer, Err: ErrNotASequence}
	}
	arr = append(arr, value)
	if len(Parse(pointer)) == 0 {
		return arr, nil
	}
	return Set(root, pointer, arr)
}

// Merge copies the keys of partial into the object at pointer, one level
// deep.
func Merge(root any, pointer string, partial any) (any, error) {
	target, ok := Get(root, pointer)
	obj, isObj := target.(*doc.Object)
	if !ok || !isObj {
		return root, &Error{Op: "merge", Pointer: pointer, Err: ErrNotAMapping}
	}
	src, isObj := partial.(*doc.Object)
	if !isObj {
		return root, &Error{Op: "merge", Pointer: pointer, Err: fmt.Errorf("partial value: %w", ErrNotAMapping)}
	}
	src.Range(func(k string, v any) bool {
		obj.Set(k, v)
		return true
	})
	return root, nil
}

// ArrayMatch is one result of FindArraysByKey.
type ArrayMatch struct {
	Pointer string `json:"pointer"`
	Length  int    `json:"length"`
}

// FindArraysByKey walks the whole tree and returns every array stored under
// one of keys, in document order. It is the lenient fallback for documents
// whose layout is not known in advance.
func FindArraysByKey(root any, keys []string) []ArrayMatch {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []ArrayMatch
	var walk func(node any, path []string)
	walk = func(node any, path []string) {
		switch n := node.(type) {
		case *doc.Object:
			n.Range(func(k string, v any) bool {
				child := append(path[:len(path):len(path)], k)
				if arr, ok := v.([]any); ok && want[k] {
					out = append(out, ArrayMatch{Pointer: Format(child...), Length: len(arr)})
				}
				walk(v, child)
				return true
			})
		case []any:
			for i, v := range n {
				walk(v, append(path[:len(path):len(path)], strconv.Itoa(i)))
			}
		}
	}
	walk(root, nil)
	return out
}
