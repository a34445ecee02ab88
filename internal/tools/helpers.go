// Package tools implements the MCP tools of the 8th Wall project server.
//
// Each tool is a struct that holds the dependencies it needs. Definition
// returns the mcp.Tool used for registration and Handle has mcp-go's
// CallToolRequest signature.
//
// Expected failures (bad paths, missing keys, version conflicts) come back
// as error results. Only unexpected I/O failures are returned as Go errors.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/jsonptr"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/scene"
)

// timeNow is swapped out by tests.
var timeNow = time.Now

// userError is an expected failure reported to the caller as an error
// result.
type userError struct {
	msg string
}

func (e *userError) Error() string { return e.msg }

func userErrorf(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// failure maps err to an error result when it is an expected failure and
// passes it through otherwise.
func failure(err error) (*mcp.CallToolResult, error) {
	var (
		uerr     *userError
		escape   *project.PathEscapeError
		invalid  *docstore.InvalidJSONError
		conflict *docstore.VersionConflictError
		ptr      *jsonptr.Error
	)
	switch {
	case errors.As(err, &uerr),
		errors.As(err, &escape),
		errors.As(err, &invalid),
		errors.As(err, &conflict),
		errors.As(err, &ptr),
		errors.Is(err, project.ErrRootPath),
		errors.Is(err, scene.ErrNoScene),
		errors.Is(err, scene.ErrUnknownShape),
		errors.Is(err, fs.ErrNotExist):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

// jsonResult renders v as indented JSON. Object results are also attached
// as structured content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	b := bytes.TrimRight(buf.Bytes(), "\n")
	res := mcp.NewToolResultText(string(b))
	if len(b) > 0 && b[0] == '{' {
		res.StructuredContent = json.RawMessage(b)
	}
	return res, nil
}

// --- Arguments ---

// argValue converts an argument to the document model. Objects that
// arrive as *doc.Object keep their key order; plain Go maps have none to
// keep.
func argValue(req mcp.CallToolRequest, key string) (any, bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil, false, nil
	}
	v, err := doc.FromGo(raw)
	if err != nil {
		return nil, true, userErrorf("'%s': %v", key, err)
	}
	return v, true, nil
}

// docArg reads an argument that must hold a JSON object or array. A
// string is parsed as JSON text so the caller's key order survives
// transports that decode arguments into Go maps.
func docArg(req mcp.CallToolRequest, key string) (any, bool, error) {
	if s, ok := req.GetArguments()[key].(string); ok {
		v, err := decodeText(key, s)
		return v, true, err
	}
	return argValue(req, key)
}

// valueArg reads a value that may be any JSON type, either literally from
// key or as JSON text from textKey. textKey wins when both are set.
func valueArg(req mcp.CallToolRequest, key, textKey string) (any, bool, error) {
	if s, ok := req.GetArguments()[textKey].(string); ok {
		v, err := decodeText(textKey, s)
		return v, true, err
	}
	return argValue(req, key)
}

func decodeText(key, s string) (any, error) {
	v, err := doc.Decode([]byte(s))
	if err != nil {
		return nil, userErrorf("'%s' is not valid JSON: %v", key, err)
	}
	return v, nil
}

// documentProperty is the schema of an argument that takes a JSON
// document either as a value or as JSON text.
func documentProperty(description string) map[string]any {
	return map[string]any{
		"type":        []string{"object", "array", "string"},
		"description": description,
	}
}

// floatsArg reads a numeric array argument. Non-numeric entries are
// dropped.
func floatsArg(req mcp.CallToolRequest, key string) []float64 {
	list, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(list))
	for _, v := range list {
		if f, ok := doc.Finite(toNumber(v)); ok {
			out = append(out, f)
		}
	}
	return out
}

func toNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return v
}

// stringsArg reads a string array argument. A single string is accepted
// as a one-element list.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	return stringsOf(req.GetArguments()[key])
}

func stringsOf(raw any) []string {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// --- Scene documents ---

// scenePath resolves rel under the project root, or locates the scene
// document when rel is empty.
func scenePath(session *project.Session, rel string) (string, error) {
	if rel == "" {
		return scene.Locate(session.Root())
	}
	return session.ResolveFile(rel)
}

// ensureScene locates the scene document, creating an empty one when the
// project has none.
func ensureScene(ctx context.Context, session *project.Session, store *docstore.Store) (string, error) {
	root := session.Root()
	path, err := scene.Locate(root)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, scene.ErrNoScene) {
		return "", err
	}
	path = scene.DefaultPath(root)
	if _, err := store.Write(docstore.WithReason(ctx, "create"), path, scene.NewDocument(filepath.Base(root))); err != nil {
		return "", fmt.Errorf("creating scene document: %w", err)
	}
	return path, nil
}

// updateScripts adds or removes script in the scene's "scripts" list. It
// reports whether a scene document was found.
func updateScripts(ctx context.Context, session *project.Session, store *docstore.Store, script string, add bool) (bool, error) {
	path, err := scene.Locate(session.Root())
	if errors.Is(err, scene.ErrNoScene) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = store.Update(ctx, path, "", func(data any) (any, error) {
		root, ok := doc.AsObject(data)
		if !ok {
			return nil, userErrorf("scene document is not an object")
		}
		cur, _ := root.Get("scripts")
		list, _ := doc.AsArray(cur)
		next := make([]any, 0, len(list)+1)
		present := false
		for _, item := range list {
			if s, _ := doc.String(item); s == script {
				if !add {
					continue
				}
				present = true
			}
			next = append(next, item)
		}
		if add && !present {
			next = append(next, script)
		}
		root.Set("scripts", next)
		return root, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// relPath renders path relative to the project root with forward slashes.
func relPath(session *project.Session, path string) string {
	return project.Rel(session.Root(), path)
}

// safeName rejects names that would leave their directory.
func safeName(kind, name string) error {
	if name == "" {
		return userErrorf("'%s' is required", kind)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return userErrorf("'%s' must be a plain file name", kind)
	}
	return nil
}
