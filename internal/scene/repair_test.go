package scene

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/jsonptr"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := doc.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := doc.EncodeIndent(v)
	require.NoError(t, err)
	return string(b)
}

func get(t *testing.T, v any, pointer string) any {
	t.Helper()
	got, ok := jsonptr.Get(v, pointer)
	require.True(t, ok, "missing %s", pointer)
	return got
}

func TestRepair_NotSceneShaped(t *testing.T) {
	in := decode(t, `{"name":"package","version":"1.0.0"}`)
	before := encode(t, in)
	assert.Equal(t, before, encode(t, Repair(in)))

	assert.Equal(t, "text", Repair("text"))
	assert.Equal(t, []any{1.0}, Repair([]any{1.0}))
}

func TestRepair_NoResolvableSpace(t *testing.T) {
	in := decode(t, `{"objects":{"a":{"position":"bad"}}}`)
	before := encode(t, in)
	assert.Equal(t, before, encode(t, Repair(in)))
}

func TestRepair_EntrySpaceDefaultsToFirstSpace(t *testing.T) {
	out := Repair(decode(t, `{"spaces":{"s2":{"id":"s2"},"s1":{"id":"s1"}},"objects":{}}`))
	assert.Equal(t, "s2", get(t, out, "/entrySpaceId"))
	assert.Equal(t, []any{}, get(t, out, "/spaces/s2/children"))
}

func TestRepair_CreatesMissingEntrySpace(t *testing.T) {
	out := Repair(decode(t, `{"entrySpaceId":"main","objects":{"a":{}}}`))
	assert.Equal(t, "main", get(t, out, "/spaces/main/id"))
	assert.Equal(t, []any{"a"}, get(t, out, "/spaces/main/children"))
}

func TestRepair_PropagatesActiveCamera(t *testing.T) {
	out := Repair(decode(t, `{"entrySpaceId":"s","spaces":{"s":{"activeCamera":"cam"}},"objects":{}}`))
	assert.Equal(t, "cam", get(t, out, "/activeCamera"))

	out = Repair(decode(t, `{"entrySpaceId":"s","activeCamera":"mine","spaces":{"s":{"activeCamera":"cam"}},"objects":{}}`))
	assert.Equal(t, "mine", get(t, out, "/activeCamera"))
}

func TestRepair_NumericCoercion(t *testing.T) {
	in := decode(t, `{"entrySpaceId":"s","spaces":{"s":{}},"objects":{"a":{"position":["a",null,"NaN"]}}}`)
	obj := get(t, in, "/objects/a").(*doc.Object)
	obj.Set("position", []any{"a", nil, math.NaN()})

	out := Repair(in)
	assert.Equal(t, []any{0.0, 0.0, 0.0}, get(t, out, "/objects/a/position"))
	assert.Equal(t, []any{1.0, 1.0, 1.0}, get(t, out, "/objects/a/scale"))
	assert.Equal(t, 0.0, get(t, out, "/objects/a/order"))
	assert.Equal(t, "{}", encode(t, get(t, out, "/objects/a/components")))
	assert.Equal(t, "s", get(t, out, "/objects/a/parentId"))
}

func TestRepair_VectorShapes(t *testing.T) {
	out := Repair(decode(t, `{"entrySpaceId":"s","spaces":{"s":{}},"objects":{
		"long":{"position":[1,2,3,4,5],"scale":["2"]},
		"xyz":{"position":{"x":1,"y":"2","z":"q"},"rotation":{"x":0,"y":0,"z":0,"w":0.5}}
	}}`))
	assert.Equal(t, []any{1.0, 2.0, 3.0}, get(t, out, "/objects/long/position"))
	assert.Equal(t, []any{2.0, 1.0, 1.0}, get(t, out, "/objects/long/scale"))
	assert.Equal(t, []any{1.0, 2.0, 0.0}, get(t, out, "/objects/xyz/position"))
	assert.Equal(t, []any{0.0, 0.0, 0.0, 0.5}, get(t, out, "/objects/xyz/rotation"))
}

func TestRepair_QuaternionCorrection(t *testing.T) {
	out := Repair(decode(t, `{"entrySpaceId":"s","spaces":{"s":{}},"objects":{
		"zero":{"rotation":[0,0,0,0]},
		"half":{"rotation":[0,0,0,0.5]},
		"missing":{}
	}}`))
	assert.Equal(t, []any{0.0, 0.0, 0.0, 1.0}, get(t, out, "/objects/zero/rotation"))
	assert.Equal(t, []any{0.0, 0.0, 0.0, 0.5}, get(t, out, "/objects/half/rotation"))
	assert.Equal(t, []any{0.0, 0.0, 0.0, 1.0}, get(t, out, "/objects/missing/rotation"))
}

func TestRepair_NestedFields(t *testing.T) {
	out := Repair(decode(t, `{"entrySpaceId":"s","spaces":{"s":{}},"objects":{"a":{
		"light":{"intensity":"bright","color":"#fff"},
		"geometry":{"type":"torus","radius":"x","tubularSegments":null,"custom":"keep"},
		"material":{"roughness":"?","color":"#000"}
	}}}`))
	assert.Equal(t, 1.0, get(t, out, "/objects/a/light/intensity"))
	assert.Equal(t, 1.0, get(t, out, "/objects/a/geometry/radius"))
	assert.Equal(t, 8.0, get(t, out, "/objects/a/geometry/tubularSegments"))
	assert.Equal(t, "keep", get(t, out, "/objects/a/geometry/custom"))
	assert.Equal(t, 0.5, get(t, out, "/objects/a/material/roughness"))

	_, invented := jsonptr.Get(out, "/objects/a/material/metalness")
	assert.False(t, invented, "repair must not add material fields")
	_, invented = jsonptr.Get(out, "/objects/a/geometry/width")
	assert.False(t, invented, "repair must not add geometry fields")
}

func TestRepair_ChildrenAreDerived(t *testing.T) {
	out := Repair(decode(t, `{"entrySpaceId":"s","spaces":{"s":{"children":["ghost","b","b"]},"t":{}},"objects":{
		"b":{"parentId":"s"},
		"a":{},
		"c":{"parentId":"t"},
		"d":{"parentId":"b"},
		"e":{"parentId":""}
	}}`))
	assert.Equal(t, []any{"b", "a", "e"}, get(t, out, "/spaces/s/children"))
}

func TestRepair_UnwrapsStringObjects(t *testing.T) {
	out := Repair(decode(t, `{"entrySpaceId":"s","spaces":{"s":{}},"objects":{
		"a":"{\"name\":\"X\"}",
		"b":"not json",
		"c":"[1,2]"
	}}`))
	assert.Equal(t, "X", get(t, out, "/objects/a/name"))
	assert.Equal(t, "not json", get(t, out, "/objects/b"))
	assert.Equal(t, "[1,2]", get(t, out, "/objects/c"))
	assert.Equal(t, []any{"a"}, get(t, out, "/spaces/s/children"))
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		`{"spaces":{"s":{"activeCamera":"c"}},"objects":{"a":"{\"rotation\":[0,0,0,0]}","b":{"position":[1],"geometry":{"radius":"x"}}}}`,
		`{"entrySpaceId":"x","objects":{}}`,
		`{"objects":{"a":{}}}`,
		`{"other":true}`,
	}
	for _, in := range inputs {
		once := encode(t, Repair(decode(t, in)))
		twice := encode(t, Repair(Repair(decode(t, in))))
		assert.Equal(t, once, twice, in)
	}
}

func TestNewShape(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	id, obj, err := NewShape(ShapeSpec{
		Shape:    "box",
		Name:     "Green Cube",
		Position: []float64{1, 0.5, -2},
		Color:    "#00ff00",
	}, "space-1", now)
	require.NoError(t, err)

	assert.Equal(t, "green-cube-loyw3v28", id)
	assert.Equal(t, "box", get(t, obj, "/geometry/type"))
	assert.Equal(t, "#00FF00", get(t, obj, "/material/color"))
	assert.Equal(t, []any{1.0, 0.5, -2.0}, get(t, obj, "/position"))
	assert.Equal(t, []any{0.0, 0.0, 0.0, 1.0}, get(t, obj, "/rotation"))
	assert.Equal(t, "space-1", get(t, obj, "/parentId"))
	assert.Equal(t, 1_700_000.0, get(t, obj, "/order"))

	before := encode(t, obj)
	out := Repair(doc.ObjectOf(
		"entrySpaceId", "space-1",
		"spaces", doc.ObjectOf("space-1", doc.NewObject()),
		"objects", doc.ObjectOf(id, obj),
	))
	assert.Equal(t, before, encode(t, get(t, out, jsonptr.Format("objects", id))), "new shapes are already repaired")
}

func TestNewShape_Unknown(t *testing.T) {
	_, _, err := NewShape(ShapeSpec{Shape: "teapot"}, "s", time.Now())
	assert.ErrorIs(t, err, ErrUnknownShape)
}

func TestNewLight_ExplicitZeroIntensity(t *testing.T) {
	off := 0.0
	_, light, err := NewLight(LightSpec{Kind: "ambient", Intensity: &off}, "s", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.0, get(t, light, "/light/intensity"))

	// Repair keeps a light that is switched off.
	out := Repair(doc.ObjectOf(
		"entrySpaceId", "s",
		"spaces", doc.ObjectOf("s", doc.NewObject()),
		"objects", doc.ObjectOf("l", light),
	))
	assert.Equal(t, 0.0, get(t, out, "/objects/l/light/intensity"))
}

func TestNewLightAndModel(t *testing.T) {
	now := time.Now()
	_, light, err := NewLight(LightSpec{Kind: "point", Position: []float64{2, 3, 2}}, "s", now)
	require.NoError(t, err)
	assert.Equal(t, "point", get(t, light, "/light/type"))
	assert.Equal(t, 1.0, get(t, light, "/light/intensity"))
	assert.Equal(t, "Point Light", get(t, light, "/name"))

	_, _, err = NewLight(LightSpec{Kind: "laser"}, "s", now)
	assert.Error(t, err)

	_, model, err := NewModel(ModelSpec{Src: "assets/duck.glb"}, "s", now)
	require.NoError(t, err)
	assert.Equal(t, "assets/duck.glb", get(t, model, "/gltfModel/src"))

	_, _, err = NewModel(ModelSpec{}, "s", now)
	assert.Error(t, err)
}

func TestSlugAndUniqueID(t *testing.T) {
	assert.Equal(t, "green-cube", Slug("  Green \t Cube "))
	assert.Equal(t, "object", Slug("   "))

	objects := doc.ObjectOf("a", doc.NewObject(), "a-2", doc.NewObject())
	assert.Equal(t, "a-3", UniqueID(objects, "a"))
	assert.Equal(t, "b", UniqueID(objects, "b"))
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	_, err := Locate(root)
	assert.ErrorIs(t, err, ErrNoScene)
	assert.Equal(t, filepath.Join(root, FileName), DefaultPath(root))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	assert.Equal(t, filepath.Join(root, "src", FileName), DefaultPath(root))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", FileName), []byte("{}"), 0o644))

	got, err := Locate(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", FileName), got)

	assert.True(t, IsScenePath("/x/expanse.json"))
	assert.False(t, IsScenePath("/x/package.json"))
}

func TestNewDocumentAndListObjects(t *testing.T) {
	d := NewDocument("Main")
	space := EntrySpaceID(d)
	require.NotEmpty(t, space)

	objects, ok := Objects(d)
	require.True(t, ok)
	_, box, err := NewShape(ShapeSpec{Shape: "sphere", Name: "Ball"}, space, time.UnixMilli(2_000_000))
	require.NoError(t, err)
	objects.Set("ball", box)
	_, light, err := NewLight(LightSpec{}, space, time.UnixMilli(1_000_000))
	require.NoError(t, err)
	objects.Set("sun", light)

	list := ListObjects(Repair(d))
	require.Len(t, list, 2)
	assert.Equal(t, "sun", list[0].ID)
	assert.Equal(t, "light", list[0].Kind)
	assert.Equal(t, "sphere", list[1].Kind)
	assert.Equal(t, []any{"ball", "sun"}, get(t, d, "/spaces/"+space+"/children"))
}
