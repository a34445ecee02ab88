// Package scene knows the layout of expanse scene documents: it repairs
// them into a consistent shape and builds new scene objects.
//
// A scene document is an object with "entrySpaceId", "spaces" (space id to
// space) and "objects" (object id to object). Objects point at their owner
// through "parentId"; a space's "children" list is derived from those
// pointers on every repair and never trusted.
package scene

import (
	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
)

// Fallbacks applied by Repair.
const (
	defaultOrder          = 0
	defaultLightIntensity = 1
	defaultRoughness      = 0.5
	defaultMetalness      = 0
	defaultEmissive       = 0
	defaultSegments       = 8
	defaultDimension      = 1
)

// geometryFields is the allow-list of numeric geometry properties Repair
// coerces when present.
var geometryFields = []string{
	"width", "height", "depth",
	"radius", "innerRadius", "outerRadius", "tube",
	"radialSegments", "tubularSegments",
	"thetaStart", "thetaLength", "arc", "angle",
	"segments", "detail",
}

var segmentFields = map[string]bool{
	"radialSegments":  true,
	"tubularSegments": true,
	"segments":        true,
}

// materialFields are coerced only when the producer already set them.
var materialFields = []struct {
	key      string
	fallback float64
}{
	{"roughness", defaultRoughness},
	{"metalness", defaultMetalness},
	{"emissiveIntensity", defaultEmissive},
}

// Repair normalizes a scene document in place and returns it. Values that
// are not scene shaped (no "objects" and no "spaces" mapping) are returned
// untouched, as are documents with no resolvable entry space.
//
// Repair is idempotent: Repair(Repair(d)) encodes identically to Repair(d).
func Repair(v any) any {
	root, ok := doc.AsObject(v)
	if !ok {
		return v
	}
	objects := objectField(root, "objects")
	spaces := objectField(root, "spaces")
	if objects == nil && spaces == nil {
		return v
	}

	entry := resolveEntrySpace(root, spaces)
	if entry == "" {
		return v
	}
	if cur, _ := root.Get("entrySpaceId"); cur != entry {
		root.Set("entrySpaceId", entry)
	}

	if spaces == nil {
		spaces = doc.NewObject()
		root.Set("spaces", spaces)
	}
	space := objectField(spaces, entry)
	if space == nil {
		space = doc.ObjectOf("id", entry, "name", entry)
		spaces.Set(entry, space)
	}

	if cam, ok := space.Get("activeCamera"); ok && cam != nil {
		if cur, _ := root.Get("activeCamera"); cur == nil {
			root.Set("activeCamera", cam)
		}
	}

	if objects == nil {
		objects = doc.NewObject()
		root.Set("objects", objects)
	}

	unwrapObjects(objects)

	children := []any{}
	for _, id := range objects.Keys() {
		raw, _ := objects.Get(id)
		obj, ok := doc.AsObject(raw)
		if !ok {
			continue
		}
		normalizeObject(obj, entry)
		if pid, _ := obj.Get("parentId"); pid == entry {
			children = append(children, id)
		}
	}
	space.Set("children", children)

	return root
}

// IsSceneShaped reports whether Repair would consider v a scene document.
func IsSceneShaped(v any) bool {
	root, ok := doc.AsObject(v)
	if !ok {
		return false
	}
	return objectField(root, "objects") != nil || objectField(root, "spaces") != nil
}

func objectField(o *doc.Object, key string) *doc.Object {
	v, _ := o.Get(key)
	obj, _ := doc.AsObject(v)
	return obj
}

func resolveEntrySpace(root, spaces *doc.Object) string {
	if v, _ := root.Get("entrySpaceId"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if keys := spaces.Keys(); len(keys) > 0 {
		return keys[0]
	}
	return ""
}

// unwrapObjects replaces objects stored as JSON text with the parsed
// mapping. Text that does not parse to a mapping is left alone.
func unwrapObjects(objects *doc.Object) {
	for _, id := range objects.Keys() {
		raw, _ := objects.Get(id)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		parsed, err := doc.DecodeLoose([]byte(s))
		if err != nil {
			continue
		}
		if obj, ok := doc.AsObject(parsed); ok {
			objects.Set(id, obj)
		}
	}
}

func normalizeObject(obj *doc.Object, entry string) {
	obj.Set("position", vector(valueOf(obj, "position"), 3, 0))

	rot := vector(valueOf(obj, "rotation"), 4, 0)
	if rot[3] == 0.0 {
		rot[3] = 1.0
	}
	obj.Set("rotation", rot)

	obj.Set("scale", vector(valueOf(obj, "scale"), 3, 1))
	obj.Set("order", doc.NumberOr(valueOf(obj, "order"), defaultOrder))

	if _, ok := doc.AsObject(valueOf(obj, "components")); !ok {
		obj.Set("components", doc.NewObject())
	}

	if light, ok := doc.AsObject(valueOf(obj, "light")); ok {
		light.Set("intensity", doc.NumberOr(valueOf(light, "intensity"), defaultLightIntensity))
	}

	if geo, ok := doc.AsObject(valueOf(obj, "geometry")); ok {
		for _, key := range geometryFields {
			v, present := geo.Get(key)
			if !present {
				continue
			}
			fallback := float64(defaultDimension)
			if segmentFields[key] {
				fallback = defaultSegments
			}
			geo.Set(key, doc.NumberOr(v, fallback))
		}
	}

	if mat, ok := doc.AsObject(valueOf(obj, "material")); ok {
		for _, f := range materialFields {
			if v, present := mat.Get(f.key); present {
				mat.Set(f.key, doc.NumberOr(v, f.fallback))
			}
		}
	}

	if pid, ok := valueOf(obj, "parentId").(string); !ok || pid == "" {
		obj.Set("parentId", entry)
	}
}

func valueOf(o *doc.Object, key string) any {
	v, _ := o.Get(key)
	return v
}

// vector coerces v to an n-element numeric array. Arrays are truncated or
// padded; {x,y,z,w} objects are read by component name; anything else
// becomes all fallback.
func vector(v any, n int, fallback float64) []any {
	out := make([]any, n)
	var src []any
	switch t := v.(type) {
	case []any:
		src = t
	case *doc.Object:
		for _, k := range []string{"x", "y", "z", "w"}[:n] {
			c, _ := t.Get(k)
			src = append(src, c)
		}
	}
	for i := 0; i < n; i++ {
		if i < len(src) {
			out[i] = doc.NumberOr(src[i], fallback)
		} else {
			out[i] = fallback
		}
	}
	return out
}
