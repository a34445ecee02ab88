package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/jsonptr"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/scene"
)

// defaultArrayKeys are the keys desktop_find_arrays and desktop_insert_json
// look for when the caller names none.
var defaultArrayKeys = []string{"objects", "entities", "children", "nodes", "items"}

// guessMaxBytes skips files too large to be a scene description.
const guessMaxBytes = 3 << 20

// --- desktop_guess_scene ---

// GuessSceneTool handles desktop_guess_scene.
type GuessSceneTool struct {
	session *project.Session
}

// NewGuessSceneTool creates a GuessSceneTool.
func NewGuessSceneTool(session *project.Session) *GuessSceneTool {
	return &GuessSceneTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *GuessSceneTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_guess_scene",
		mcp.WithDescription("Heuristically find scene and config JSON files in an 8th Wall Desktop project. Candidates are scored by well-known keys and returned best first."),
		mcp.WithNumber("maxDepth", mcp.Description("Directory depth to scan"), mcp.DefaultNumber(5)),
		mcp.WithNumber("maxFiles", mcp.Description("Maximum files to inspect"), mcp.DefaultNumber(800)),
		mcp.WithString("glob", mcp.Description("Only inspect root-relative paths matching this glob, e.g. src/**/*.json")),
	)
}

type sceneCandidate struct {
	Path  string   `json:"path"`
	Size  int64    `json:"size"`
	Keys  []string `json:"keys,omitempty"`
	Score int      `json:"score"`
}

var sceneKeys = []string{"scene", "scenes", "entities", "objects", "nodes", "components", "spaces", "space"}

// Handle processes the desktop_guess_scene tool call.
func (t *GuessSceneTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root := t.session.Root()
	maxDepth := max(0, req.GetInt("maxDepth", 5))
	maxFiles := max(1, req.GetInt("maxFiles", 800))
	glob := req.GetString("glob", "")
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid glob %q", glob)), nil
	}

	candidates := []sceneCandidate{}
	seen := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil && path == root {
			return err
		}
		if err != nil || seen >= maxFiles {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel := project.Rel(root, path)
		if d.IsDir() {
			if path != root && (strings.Count(rel, "/") >= maxDepth || d.Name() == ".git" || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		seen++
		if glob != "" && !doublestar.MatchUnvalidated(glob, rel) {
			return nil
		}
		if c, ok := scoreCandidate(path, rel); ok {
			candidates = append(candidates, c)
		}
		return nil
	})
	if err != nil {
		return failure(fmt.Errorf("scanning %s: %w", root, err))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Path < candidates[j].Path
	})
	if len(candidates) > 50 {
		candidates = candidates[:50]
	}
	return jsonResult(map[string]any{"root": root, "candidates": candidates})
}

func scoreCandidate(path, rel string) (sceneCandidate, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".json", ".scene", ".space":
	default:
		return sceneCandidate{}, false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > guessMaxBytes {
		return sceneCandidate{}, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return sceneCandidate{}, false
	}
	v, err := doc.Decode(raw)
	if err != nil {
		return sceneCandidate{}, false
	}
	obj, ok := doc.AsObject(v)
	if !ok {
		return sceneCandidate{}, false
	}
	score := 0
	for _, k := range sceneKeys {
		if obj.Has(k) {
			score += 2
		}
	}
	for _, k := range []string{"entities", "objects", "nodes"} {
		if v, ok := obj.Get(k); ok {
			if _, isArr := doc.AsArray(v); isArr {
				score += 3
				break
			}
		}
	}
	lower := strings.ToLower(rel)
	if strings.Contains(lower, "scene") || strings.Contains(lower, "space") {
		score++
	}
	if score == 0 {
		return sceneCandidate{}, false
	}
	keys := obj.Keys()
	if len(keys) > 50 {
		keys = keys[:50]
	}
	return sceneCandidate{Path: rel, Size: info.Size(), Keys: keys, Score: score}, true
}

// --- desktop_get_scene ---

// GetSceneTool handles desktop_get_scene.
type GetSceneTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewGetSceneTool creates a GetSceneTool.
func NewGetSceneTool(session *project.Session, store *docstore.Store) *GetSceneTool {
	return &GetSceneTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *GetSceneTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_get_scene",
		mcp.WithDescription("Read the project's scene document (.expanse.json or src/.expanse.json). Reading repairs the document on disk when needed."),
	)
}

// Handle processes the desktop_get_scene tool call.
func (t *GetSceneTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := scene.Locate(t.session.Root())
	if err != nil {
		return failure(err)
	}
	d, err := t.store.Read(ctx, path)
	if err != nil {
		return failure(err)
	}
	objects, _ := scene.Objects(doc.Clone(d.Data))
	count := 0
	if objects != nil {
		count = objects.Len()
	}
	return jsonResult(map[string]any{
		"path":         relPath(t.session, path),
		"version":      d.Version,
		"healed":       d.Healed,
		"entrySpaceId": scene.EntrySpaceID(d.Data),
		"objectCount":  count,
		"data":         d.Data,
	})
}

// --- desktop_read_json / desktop_write_json ---

// ReadJSONTool handles desktop_read_json.
type ReadJSONTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewReadJSONTool creates a ReadJSONTool.
func NewReadJSONTool(session *project.Session, store *docstore.Store) *ReadJSONTool {
	return &ReadJSONTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ReadJSONTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_read_json",
		mcp.WithDescription("Read a JSON document, or the value at a JSON pointer inside it. A missing pointer is reported with found=false."),
		mcp.WithString("path", mcp.Description("File relative to the project root; defaults to the scene document")),
		mcp.WithString("pointer", mcp.Description("JSON pointer such as /objects/box-1/position; empty reads the whole document")),
	)
}

// Handle processes the desktop_read_json tool call.
func (t *ReadJSONTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := scenePath(t.session, req.GetString("path", ""))
	if err != nil {
		return failure(err)
	}
	d, err := t.store.Read(ctx, path)
	if err != nil {
		return failure(err)
	}
	pointer := req.GetString("pointer", "")
	value, found := jsonptr.Get(d.Data, pointer)
	return jsonResult(map[string]any{
		"path":    relPath(t.session, path),
		"pointer": pointer,
		"version": d.Version,
		"found":   found,
		"value":   value,
	})
}

// WriteJSONTool handles desktop_write_json.
type WriteJSONTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewWriteJSONTool creates a WriteJSONTool.
func NewWriteJSONTool(session *project.Session, store *docstore.Store) *WriteJSONTool {
	return &WriteJSONTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *WriteJSONTool) Definition() mcp.Tool {
	tool := mcp.NewTool("desktop_write_json",
		mcp.WithDescription("Replace a whole JSON document. Scene-shaped documents are repaired before they are written."),
		mcp.WithString("path", mcp.Description("File relative to the project root; defaults to the scene document")),
	)
	tool.InputSchema.Properties["data"] = documentProperty("The new document, or its JSON text. Key order is kept as written in JSON text.")
	tool.InputSchema.Required = append(tool.InputSchema.Required, "data")
	return tool
}

// Handle processes the desktop_write_json tool call.
func (t *WriteJSONTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rel := req.GetString("path", "")
	var path string
	var err error
	if rel == "" {
		path, err = scene.Locate(t.session.Root())
		if errors.Is(err, scene.ErrNoScene) {
			path, err = scene.DefaultPath(t.session.Root()), nil
		}
	} else {
		path, err = t.session.ResolveFile(rel)
	}
	if err != nil {
		return failure(err)
	}
	data, ok, err := docArg(req, "data")
	if err != nil {
		return failure(err)
	}
	if !ok {
		return mcp.NewToolResultError("'data' is required"), nil
	}
	d, err := t.store.Write(ctx, path, data)
	if err != nil {
		return failure(err)
	}
	return jsonResult(map[string]any{
		"path":    relPath(t.session, path),
		"version": d.Version,
		"bytes":   len(d.Raw),
	})
}

// --- desktop_patch_json ---

// PatchJSONTool handles desktop_patch_json.
type PatchJSONTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewPatchJSONTool creates a PatchJSONTool.
func NewPatchJSONTool(session *project.Session, store *docstore.Store) *PatchJSONTool {
	return &PatchJSONTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *PatchJSONTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_patch_json",
		mcp.WithDescription(
			"Apply a batch of JSON pointer operations (set, remove, push, merge) to a document in one write. "+
				"Each operation reports its own result; a failing operation does not stop the others. "+
				"Pass expectedVersion (from a previous read) to fail instead of overwriting a concurrent change.",
		),
		mcp.WithString("path", mcp.Description("File relative to the project root; defaults to the scene document")),
		mcp.WithArray("ops",
			mcp.Required(),
			mcp.MinItems(1),
			mcp.Description("Operations applied in order"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"op":      map[string]any{"type": "string", "enum": []string{"set", "remove", "push", "merge"}},
					"pointer": map[string]any{"type": "string"},
					"value":     map[string]any{},
					"valueJson": map[string]any{"type": "string", "description": "value as JSON text; keeps key order"},
				},
				"required": []string{"op", "pointer"},
			}),
		),
		mcp.WithString("expectedVersion", mcp.Description("Version the document must still have")),
	)
}

// OpResult is the outcome of one patch operation.
type OpResult struct {
	Op      string `json:"op"`
	Pointer string `json:"pointer"`
	OK      bool   `json:"ok"`
	Removed *bool  `json:"removed,omitempty"`
	Error   string `json:"error,omitempty"`
}

type patchOp struct {
	op      string
	pointer string
	value   any
}

func parseOps(raw any) ([]patchOp, error) {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, userErrorf("'ops' must be a non-empty array")
	}
	ops := make([]patchOp, 0, len(list))
	for i, item := range list {
		converted, err := doc.FromGo(item)
		if err != nil {
			return nil, userErrorf("ops[%d]: %v", i, err)
		}
		m, ok := doc.AsObject(converted)
		if !ok {
			return nil, userErrorf("ops[%d] must be an object", i)
		}
		rawOp, _ := m.Get("op")
		rawPointer, _ := m.Get("pointer")
		op, _ := doc.String(rawOp)
		pointer, _ := doc.String(rawPointer)
		value, _ := m.Get("value")
		if rawText, _ := m.Get("valueJson"); rawText != nil {
			text, _ := doc.String(rawText)
			if value, err = decodeText(fmt.Sprintf("ops[%d].valueJson", i), text); err != nil {
				return nil, err
			}
		}
		ops = append(ops, patchOp{op: op, pointer: pointer, value: value})
	}
	return ops, nil
}

// applyOps applies ops to root and records one result per op.
func applyOps(root any, ops []patchOp) (any, []OpResult) {
	results := make([]OpResult, 0, len(ops))
	for _, o := range ops {
		r := OpResult{Op: o.op, Pointer: o.pointer}
		var (
			next any
			err  error
		)
		switch o.op {
		case "set":
			next, err = jsonptr.Set(root, o.pointer, o.value)
		case "push":
			next, err = jsonptr.Push(root, o.pointer, o.value)
		case "merge":
			next, err = jsonptr.Merge(root, o.pointer, o.value)
		case "remove":
			var removed bool
			next, removed = jsonptr.Remove(root, o.pointer)
			r.Removed = &removed
		default:
			err = fmt.Errorf("unknown op %q", o.op)
		}
		if err != nil {
			r.Error = err.Error()
		} else {
			root = next
			r.OK = true
		}
		results = append(results, r)
	}
	return root, results
}

// Handle processes the desktop_patch_json tool call.
func (t *PatchJSONTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ops, err := parseOps(req.GetArguments()["ops"])
	if err != nil {
		return failure(err)
	}
	path, err := t.resolve(ctx, req.GetString("path", ""))
	if err != nil {
		return failure(err)
	}
	var results []OpResult
	d, err := t.store.Update(ctx, path, req.GetString("expectedVersion", ""), func(data any) (any, error) {
		var next any
		next, results = applyOps(data, ops)
		return next, nil
	})
	if err != nil {
		return failure(err)
	}
	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	return jsonResult(map[string]any{
		"path":    relPath(t.session, path),
		"version": d.Version,
		"applied": len(results) - failed,
		"failed":  failed,
		"results": results,
	})
}

func (t *PatchJSONTool) resolve(ctx context.Context, rel string) (string, error) {
	if rel == "" {
		return ensureScene(ctx, t.session, t.store)
	}
	return t.session.ResolveFile(rel)
}

// --- desktop_find_arrays / desktop_insert_json ---

// FindArraysTool handles desktop_find_arrays.
type FindArraysTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewFindArraysTool creates a FindArraysTool.
func NewFindArraysTool(session *project.Session, store *docstore.Store) *FindArraysTool {
	return &FindArraysTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *FindArraysTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_find_arrays",
		mcp.WithDescription("List every array in a document stored under one of the given keys, with its JSON pointer and length. Useful on documents with an unfamiliar layout."),
		mcp.WithString("path", mcp.Description("File relative to the project root; defaults to the scene document")),
		mcp.WithArray("keys", mcp.Description("Keys to look for (default: objects, entities, children, nodes, items)"), mcp.Items(map[string]any{"type": "string"})),
	)
}

// Handle processes the desktop_find_arrays tool call.
func (t *FindArraysTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := scenePath(t.session, req.GetString("path", ""))
	if err != nil {
		return failure(err)
	}
	d, err := t.store.Read(ctx, path)
	if err != nil {
		return failure(err)
	}
	keys := stringsArg(req, "keys")
	if len(keys) == 0 {
		keys = defaultArrayKeys
	}
	matches := jsonptr.FindArraysByKey(d.Data, keys)
	if matches == nil {
		matches = []jsonptr.ArrayMatch{}
	}
	return jsonResult(map[string]any{"path": relPath(t.session, path), "keys": keys, "matches": matches})
}

// InsertJSONTool handles desktop_insert_json.
type InsertJSONTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewInsertJSONTool creates an InsertJSONTool.
func NewInsertJSONTool(session *project.Session, store *docstore.Store) *InsertJSONTool {
	return &InsertJSONTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *InsertJSONTool) Definition() mcp.Tool {
	tool := mcp.NewTool("desktop_insert_json",
		mcp.WithDescription(
			"Append a value to an array. The array at 'pointer' is used when it exists; "+
				"otherwise the first array found under one of 'keys' receives the value.",
		),
		mcp.WithString("path", mcp.Description("File relative to the project root; defaults to the scene document")),
		mcp.WithString("pointer", mcp.Description("Exact JSON pointer of the target array")),
		mcp.WithArray("keys", mcp.Description("Fallback keys to search for (default: objects, entities, children, nodes, items)"), mcp.Items(map[string]any{"type": "string"})),
	)
	// value may be any JSON type.
	tool.InputSchema.Properties["value"] = map[string]any{"description": "Value to append"}
	tool.InputSchema.Properties["valueJson"] = map[string]any{"type": "string", "description": "Value to append as JSON text; keeps key order. Used instead of value"}
	return tool
}

// Handle processes the desktop_insert_json tool call.
func (t *InsertJSONTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, ok, err := valueArg(req, "value", "valueJson")
	if err != nil {
		return failure(err)
	}
	if !ok {
		return mcp.NewToolResultError("'value' or 'valueJson' is required"), nil
	}
	path, err := scenePath(t.session, req.GetString("path", ""))
	if err != nil {
		return failure(err)
	}
	pointer := req.GetString("pointer", "")
	keys := stringsArg(req, "keys")
	if len(keys) == 0 {
		keys = defaultArrayKeys
	}

	var target, strategy string
	var length int
	d, err := t.store.Update(ctx, path, "", func(data any) (any, error) {
		target, strategy = pointer, "exact"
		if cur, found := jsonptr.Get(data, pointer); !found || pointer == "" || !isArray(cur) {
			matches := jsonptr.FindArraysByKey(data, keys)
			if len(matches) == 0 {
				return nil, userErrorf("no array at %q and none found under keys %s", pointer, strings.Join(keys, ", "))
			}
			target, strategy = matches[0].Pointer, "search"
		}
		next, err := jsonptr.Push(data, target, value)
		if err != nil {
			return nil, err
		}
		arr, _ := jsonptr.Get(next, target)
		list, _ := doc.AsArray(arr)
		length = len(list)
		return next, nil
	})
	if err != nil {
		return failure(err)
	}
	return jsonResult(map[string]any{
		"path":     relPath(t.session, path),
		"pointer":  target,
		"strategy": strategy,
		"length":   length,
		"version":  d.Version,
	})
}

func isArray(v any) bool {
	_, ok := doc.AsArray(v)
	return ok
}

// --- desktop_repair_scene ---

// RepairSceneTool handles desktop_repair_scene.
type RepairSceneTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewRepairSceneTool creates a RepairSceneTool.
func NewRepairSceneTool(session *project.Session, store *docstore.Store) *RepairSceneTool {
	return &RepairSceneTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *RepairSceneTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_repair_scene",
		mcp.WithDescription("Normalize a scene document: fix vectors and numbers, unwrap string-encoded objects and rebuild the entry space's children."),
		mcp.WithString("path", mcp.Description("File relative to the project root; defaults to the scene document")),
	)
}

// Handle processes the desktop_repair_scene tool call.
func (t *RepairSceneTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := scenePath(t.session, req.GetString("path", ""))
	if err != nil {
		return failure(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		return failure(err)
	}
	d, err := t.store.Update(ctx, path, "", func(data any) (any, error) {
		if !scene.IsSceneShaped(data) {
			return nil, userErrorf("%s is not a scene document (no objects or spaces)", relPath(t.session, path))
		}
		return data, nil
	})
	if err != nil {
		return failure(err)
	}
	return jsonResult(map[string]any{
		"path":        relPath(t.session, path),
		"changed":     !bytes.Equal(before, d.Raw),
		"version":     d.Version,
		"objectCount": len(scene.ListObjects(d.Data)),
	})
}
