package scene

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
)

// ErrUnknownShape is returned by NewShape for shapes it cannot build.
var ErrUnknownShape = errors.New("unknown shape")

// Shapes lists the primitive shapes NewShape understands.
var Shapes = []string{"box", "cube", "sphere", "cylinder", "cone", "plane", "torus", "ring"}

// Light kinds accepted by NewLight.
var LightKinds = []string{"ambient", "directional", "point", "spot", "hemisphere"}

// ShapeSpec describes a primitive to add to a scene.
type ShapeSpec struct {
	Shape    string
	Name     string
	Position []float64
	Rotation []float64
	Scale    []float64
	Color    string
	ParentID string
}

// ModelSpec describes a glTF model object.
type ModelSpec struct {
	Src      string
	Name     string
	Position []float64
	Rotation []float64
	Scale    []float64
	ParentID string
}

// LightSpec describes a light object.
type LightSpec struct {
	Kind      string
	Name      string
	Color     string
	Intensity *float64 // nil means the default of 1; 0 is a light that is off
	Position  []float64
	ParentID  string
}

// Geometry returns the default geometry for shape. Cube is an alias for box.
func Geometry(shape string) (*doc.Object, error) {
	switch strings.ToLower(shape) {
	case "box", "cube":
		return doc.ObjectOf("type", "box", "width", 1.0, "height", 1.0, "depth", 1.0), nil
	case "sphere":
		return doc.ObjectOf("type", "sphere", "radius", 0.5, "widthSegments", 32.0, "heightSegments", 16.0), nil
	case "cylinder":
		return doc.ObjectOf("type", "cylinder", "radiusTop", 0.5, "radiusBottom", 0.5, "height", 1.0, "radialSegments", 16.0), nil
	case "cone":
		return doc.ObjectOf("type", "cone", "radius", 0.5, "height", 1.0, "radialSegments", 16.0), nil
	case "plane":
		return doc.ObjectOf("type", "plane", "width", 1.0, "height", 1.0), nil
	case "torus":
		return doc.ObjectOf("type", "torus", "radius", 0.5, "tube", 0.2, "radialSegments", 16.0, "tubularSegments", 32.0), nil
	case "ring":
		return doc.ObjectOf("type", "ring", "innerRadius", 0.25, "outerRadius", 0.5, "thetaSegments", 32.0), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
}

// NewShape builds a primitive scene object. The returned id is unique
// only by timestamp; use UniqueID against an existing objects mapping.
func NewShape(spec ShapeSpec, spaceID string, now time.Time) (string, *doc.Object, error) {
	geo, err := Geometry(spec.Shape)
	if err != nil {
		return "", nil, err
	}
	name := spec.Name
	if strings.TrimSpace(name) == "" {
		name = strings.ToUpper(spec.Shape[:1]) + strings.ToLower(spec.Shape[1:])
	}
	color := spec.Color
	if color == "" {
		color = "#FFFFFF"
	}
	id := NewID(name, now)
	obj := doc.ObjectOf(
		"components", doc.NewObject(),
		"geometry", geo,
		"id", id,
		"material", doc.ObjectOf(
			"color", strings.ToUpper(color),
			"type", "Standard",
			"side", "Front",
			"opacity", 1.0,
			"roughness", defaultRoughness,
			"metalness", float64(defaultMetalness),
		),
		"name", name,
	)
	placeObject(obj, spec.Position, spec.Rotation, spec.Scale, parentOr(spec.ParentID, spaceID), now)
	return id, obj, nil
}

// NewModel builds an object that renders a glTF asset.
func NewModel(spec ModelSpec, spaceID string, now time.Time) (string, *doc.Object, error) {
	if strings.TrimSpace(spec.Src) == "" {
		return "", nil, errors.New("model src is required")
	}
	name := spec.Name
	if strings.TrimSpace(name) == "" {
		name = "Model"
	}
	id := NewID(name, now)
	obj := doc.ObjectOf(
		"components", doc.NewObject(),
		"gltfModel", doc.ObjectOf("src", spec.Src),
		"id", id,
		"name", name,
	)
	placeObject(obj, spec.Position, spec.Rotation, spec.Scale, parentOr(spec.ParentID, spaceID), now)
	return id, obj, nil
}

// NewLight builds a light object.
func NewLight(spec LightSpec, spaceID string, now time.Time) (string, *doc.Object, error) {
	kind := strings.ToLower(spec.Kind)
	if kind == "" {
		kind = "directional"
	}
	if !contains(LightKinds, kind) {
		return "", nil, fmt.Errorf("unknown light kind %q", spec.Kind)
	}
	name := spec.Name
	if strings.TrimSpace(name) == "" {
		name = strings.ToUpper(kind[:1]) + kind[1:] + " Light"
	}
	color := spec.Color
	if color == "" {
		color = "#FFFFFF"
	}
	intensity := float64(defaultLightIntensity)
	if spec.Intensity != nil {
		intensity = *spec.Intensity
	}
	id := NewID(name, now)
	obj := doc.ObjectOf(
		"components", doc.NewObject(),
		"id", id,
		"light", doc.ObjectOf("type", kind, "color", strings.ToUpper(color), "intensity", intensity),
		"name", name,
	)
	placeObject(obj, spec.Position, nil, nil, parentOr(spec.ParentID, spaceID), now)
	return id, obj, nil
}

func placeObject(obj *doc.Object, pos, rot, scale []float64, parent string, now time.Time) {
	obj.Set("position", floats(pos, 3, 0))
	r := floats(rot, 4, 0)
	if rot == nil {
		r[3] = 1.0
	}
	obj.Set("rotation", r)
	obj.Set("scale", floats(scale, 3, 1))
	obj.Set("parentId", parent)
	obj.Set("order", float64(now.UnixMilli())/1e6)
}

func floats(in []float64, n int, fallback float64) []any {
	out := make([]any, n)
	for i := range out {
		if i < len(in) {
			out[i] = in[i]
		} else {
			out[i] = fallback
		}
	}
	return out
}

func parentOr(parent, space string) string {
	if parent != "" {
		return parent
	}
	return space
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NewID derives an object id from a display name: the lower-cased name
// with whitespace runs replaced by "-", then "-" and the base36 unix
// milliseconds.
func NewID(name string, now time.Time) string {
	return Slug(name) + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}

// Slug lower-cases s and joins its words with "-". Empty input gives
// "object".
func Slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace)
	if len(fields) == 0 {
		return "object"
	}
	return strings.Join(fields, "-")
}

// UniqueID returns id, or id with a numeric suffix when objects already
// holds it.
func UniqueID(objects *doc.Object, id string) string {
	if objects == nil || !objects.Has(id) {
		return id
	}
	for i := 2; ; i++ {
		candidate := id + "-" + strconv.Itoa(i)
		if !objects.Has(candidate) {
			return candidate
		}
	}
}
