package scene

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
)

// FileName is the canonical scene document name.
const FileName = ".expanse.json"

// ErrNoScene is returned by Locate when no candidate file exists.
var ErrNoScene = errors.New("no scene document found")

// Candidates returns the scene document locations under root, in lookup
// order.
func Candidates(root string) []string {
	return []string{
		filepath.Join(root, FileName),
		filepath.Join(root, "src", FileName),
	}
}

// Locate returns the first existing scene document under root.
func Locate(root string) (string, error) {
	for _, p := range Candidates(root) {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", ErrNoScene
}

// DefaultPath is where a new scene document is created: src/ when the
// project has one, otherwise the root.
func DefaultPath(root string) string {
	if info, err := os.Stat(filepath.Join(root, "src")); err == nil && info.IsDir() {
		return filepath.Join(root, "src", FileName)
	}
	return filepath.Join(root, FileName)
}

// IsScenePath reports whether path names a scene document by convention.
func IsScenePath(path string) bool {
	base := filepath.Base(path)
	return base == ".expanse.json" || base == "expanse.json"
}

// NewDocument returns an empty scene with a single space.
func NewDocument(spaceName string) *doc.Object {
	if spaceName == "" {
		spaceName = "Default"
	}
	id := uuid.NewString()
	return doc.ObjectOf(
		"entrySpaceId", id,
		"spaces", doc.ObjectOf(id, doc.ObjectOf(
			"id", id,
			"name", spaceName,
			"children", []any{},
		)),
		"objects", doc.NewObject(),
		"scripts", []any{},
	)
}

// EntrySpaceID returns the entry space of a scene, resolved the same way
// Repair resolves it.
func EntrySpaceID(v any) string {
	root, ok := doc.AsObject(v)
	if !ok {
		return ""
	}
	return resolveEntrySpace(root, objectField(root, "spaces"))
}

// Objects returns the objects mapping, creating it when missing.
func Objects(v any) (*doc.Object, bool) {
	root, ok := doc.AsObject(v)
	if !ok {
		return nil, false
	}
	objects := objectField(root, "objects")
	if objects == nil {
		objects = doc.NewObject()
		root.Set("objects", objects)
	}
	return objects, true
}

// Summary is a compact listing entry for one scene object.
type Summary struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	ParentID string    `json:"parentId"`
	Position []float64 `json:"position"`
	Order    float64   `json:"order"`
}

// ListObjects summarizes every object, sorted by order then id.
func ListObjects(v any) []Summary {
	root, ok := doc.AsObject(v)
	if !ok {
		return nil
	}
	objects := objectField(root, "objects")
	if objects == nil {
		return []Summary{}
	}
	out := make([]Summary, 0, objects.Len())
	objects.Range(func(id string, raw any) bool {
		obj, ok := doc.AsObject(raw)
		if !ok {
			return true
		}
		s := Summary{ID: id, Kind: kindOf(obj), Order: doc.NumberOr(valueOf(obj, "order"), 0)}
		s.Name, _ = doc.String(valueOf(obj, "name"))
		s.ParentID, _ = doc.String(valueOf(obj, "parentId"))
		for _, c := range vector(valueOf(obj, "position"), 3, 0) {
			s.Position = append(s.Position, c.(float64))
		}
		out = append(out, s)
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func kindOf(obj *doc.Object) string {
	if geo, ok := doc.AsObject(valueOf(obj, "geometry")); ok {
		if t, ok := doc.String(valueOf(geo, "type")); ok {
			return t
		}
		return "geometry"
	}
	switch {
	case obj.Has("gltfModel"):
		return "model"
	case obj.Has("light"):
		return "light"
	case obj.Has("camera"):
		return "camera"
	}
	return "group"
}
