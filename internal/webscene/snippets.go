package webscene

import (
	"fmt"
	"math"
	"strings"
)

const threeCDN = "https://unpkg.com/three@0.160.0"

// Import lines added to main.js by the Three.js edits.
var (
	ImportGLTFLoader    = "import { GLTFLoader } from '" + threeCDN + "/examples/jsm/loaders/GLTFLoader.js';"
	ImportRGBELoader    = "import { RGBELoader } from '" + threeCDN + "/examples/jsm/loaders/RGBELoader.js';"
	ImportTextureLoader = "import { TextureLoader } from '" + threeCDN + "/build/three.module.js';"
	ImportOrbitControls = "import { OrbitControls } from '" + threeCDN + "/examples/jsm/controls/OrbitControls.js';"
)

// Defaults shared by the scene_* tools.
var (
	DefaultPosition      = [3]float64{0, 1, -2}
	DefaultRotation      = [3]float64{0, 0, 0}
	DefaultScale         = [3]float64{1, 1, 1}
	DefaultSize          = [3]float64{1, 1, 1}
	DefaultLightPosition = [3]float64{2, 3, 2}
)

// Transform places an entity.
type Transform struct {
	Position [3]float64
	Rotation [3]float64
	Scale    [3]float64
}

func (t Transform) attrs() string {
	return fmt.Sprintf(`position="%s" rotation="%s" scale="%s"`, Join(t.Position[:]), Join(t.Rotation[:]), Join(t.Scale[:]))
}

func (t Transform) three(v string) string {
	return fmt.Sprintf("  %[1]s.position.set(%[2]s, %[3]s, %[4]s);\n  %[1]s.rotation.set(%[5]s, %[6]s, %[7]s);\n  %[1]s.scale.set(%[8]s, %[9]s, %[10]s);",
		v,
		Num(t.Position[0]), Num(t.Position[1]), Num(t.Position[2]),
		Num(t.Rotation[0]), Num(t.Rotation[1]), Num(t.Rotation[2]),
		Num(t.Scale[0]), Num(t.Scale[1]), Num(t.Scale[2]))
}

// ModelEntity is an A-Frame glTF entity.
func ModelEntity(src string, t Transform) string {
	return fmt.Sprintf(`<a-entity gltf-model="url(%s)" %s></a-entity>`, src, t.attrs())
}

// ModelSnippet loads a glTF model into a Three.js scene.
func ModelSnippet(src string, t Transform) string {
	return "const _loader = new GLTFLoader();\n" +
		"_loader.load('" + src + "', (gltf)=>{\n" +
		"  const _model = gltf.scene;\n" +
		t.three("_model") + "\n" +
		"  scene.add(_model);\n" +
		"}, undefined, (e)=>{ console.error('GLTF load error', e); });"
}

// Primitives lists the shapes accepted by PrimitiveEntity.
var Primitives = []string{"box", "sphere", "cylinder", "plane"}

// Primitive describes a simple mesh.
type Primitive struct {
	Type  string
	Color string
	Size  [3]float64
	Transform
}

// PrimitiveEntity renders p as an A-Frame primitive element.
func PrimitiveEntity(p Primitive) string {
	pos, rot, scl := Join(p.Position[:]), Join(p.Rotation[:]), Join(p.Scale[:])
	switch p.Type {
	case "box":
		return fmt.Sprintf(`<a-box color="%s" position="%s" rotation="%s" depth="%s" height="%s" width="%s" scale="%s"></a-box>`,
			p.Color, pos, rot, Num(p.Size[2]), Num(p.Size[1]), Num(p.Size[0]), scl)
	case "sphere":
		return fmt.Sprintf(`<a-sphere color="%s" position="%s" radius="%s" scale="%s"></a-sphere>`,
			p.Color, pos, Num(p.Size[0]/2), scl)
	case "cylinder":
		return fmt.Sprintf(`<a-cylinder color="%s" position="%s" radius="%s" height="%s" rotation="%s" scale="%s"></a-cylinder>`,
			p.Color, pos, Num(p.Size[0]/2), Num(p.Size[1]), rot, scl)
	case "plane":
		return fmt.Sprintf(`<a-plane color="%s" position="%s" rotation="%s" width="%s" height="%s" scale="%s"></a-plane>`,
			p.Color, pos, rot, Num(p.Size[0]), Num(p.Size[1]), scl)
	}
	return ""
}

// PrimitiveSnippet renders p as a Three.js mesh block.
func PrimitiveSnippet(p Primitive) string {
	var geo string
	switch p.Type {
	case "box":
		geo = fmt.Sprintf("new THREE.BoxGeometry(%s, %s, %s)", Num(p.Size[0]), Num(p.Size[1]), Num(p.Size[2]))
	case "sphere":
		r := math.Max(p.Size[0], math.Max(p.Size[1], p.Size[2])) / 2
		geo = fmt.Sprintf("new THREE.SphereGeometry(%s, 32, 16)", Num(r))
	case "cylinder":
		geo = fmt.Sprintf("new THREE.CylinderGeometry(%s, %s, %s, 32)", Num(p.Size[0]/2), Num(p.Size[0]/2), Num(p.Size[1]))
	case "plane":
		geo = fmt.Sprintf("new THREE.PlaneGeometry(%s, %s)", Num(p.Size[0]), Num(p.Size[1]))
	default:
		return ""
	}
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  const _geo = " + geo + ";\n")
	b.WriteString("  const _mat = new THREE.MeshStandardMaterial({ color: '" + p.Color + "' });\n")
	b.WriteString("  const _mesh = new THREE.Mesh(_geo, _mat);\n")
	b.WriteString(p.three("_mesh") + "\n")
	if p.Type == "plane" {
		b.WriteString("  _mesh.rotateX(-Math.PI/2);\n")
	}
	b.WriteString("  scene.add(_mesh);\n}")
	return b.String()
}

// LightKinds lists the lights the scene_add_light tool supports.
var LightKinds = []string{"ambient", "hemisphere", "directional", "point"}

// LightEntity is an A-Frame light entity.
func LightEntity(kind, color string, intensity float64, pos [3]float64) string {
	return fmt.Sprintf(`<a-entity light="type: %s; color: %s; intensity: %s" position="%s"></a-entity>`,
		kind, color, Num(intensity), Join(pos[:]))
}

// LightSnippet adds a Three.js light.
func LightSnippet(kind, color string, intensity float64, pos [3]float64) string {
	var expr string
	switch kind {
	case "ambient":
		expr = fmt.Sprintf("new THREE.AmbientLight('%s', %s)", color, Num(intensity))
	case "hemisphere":
		expr = fmt.Sprintf("new THREE.HemisphereLight('%s', '#444444', %s)", color, Num(intensity))
	case "directional":
		expr = fmt.Sprintf("new THREE.DirectionalLight('%s', %s)", color, Num(intensity))
	case "point":
		expr = fmt.Sprintf("new THREE.PointLight('%s', %s)", color, Num(intensity))
	default:
		return ""
	}
	return fmt.Sprintf("{\n  const _light = %s;\n  _light.position.set(%s, %s, %s);\n  scene.add(_light);\n}",
		expr, Num(pos[0]), Num(pos[1]), Num(pos[2]))
}

// SkyEntity is an A-Frame sky using an image or HDR url.
func SkyEntity(url string) string {
	return fmt.Sprintf(`<a-sky src="%s"></a-sky>`, url)
}

// HDRSnippet sets scene.environment (and optionally the background) from
// an equirectangular HDR.
func HDRSnippet(url string, applyBackground bool) string {
	bg := ""
	if applyBackground {
		bg = "scene.background = tex;"
	}
	return "{\n" +
		"  const _hdrLoader = new RGBELoader();\n" +
		"  _hdrLoader.load('" + url + "', (tex)=>{\n" +
		"    tex.mapping = THREE.EquirectangularReflectionMapping;\n" +
		"    scene.environment = tex;\n" +
		"    " + bg + "\n" +
		"  }, undefined, (e)=>console.error('HDR load error', e));\n" +
		"}"
}

// SpinDuration converts a per-frame rotation speed into an A-Frame
// animation duration in milliseconds.
func SpinDuration(speed float64) int {
	if speed <= 0 {
		return 100
	}
	d := int(math.Floor(628 / speed))
	if d < 100 {
		d = 100
	}
	return d
}

// SpinEntity is an A-Frame looping rotation.
func SpinEntity(speed float64) string {
	return fmt.Sprintf(`<a-entity animation="property: rotation; to: 0 360 0; loop: true; dur: %d"></a-entity>`, SpinDuration(speed))
}

// SpinStatement rotates every mesh once per frame.
func SpinStatement(speed float64) string {
	return fmt.Sprintf("scene.traverse(o=>{ if(o.isMesh) o.rotation.y += %s; });", Num(speed))
}

// SpinLoop is appended when main.js has no animation loop to extend.
func SpinLoop(speed float64) string {
	return fmt.Sprintf("\n// MCP animation\nconst __mcpAnim = ()=>{ %s };\nrenderer.setAnimationLoop(()=>{ __mcpAnim(); renderer.render(scene, camera); });\n", SpinStatement(speed))
}

// TexturedPlaneEntity is an A-Frame double sided image plane.
func TexturedPlaneEntity(url string, w, h float64, pos, rot [3]float64) string {
	return fmt.Sprintf(`<a-plane width="%s" height="%s" position="%s" rotation="%s" material="src: url(%s); side: double"></a-plane>`,
		Num(w), Num(h), Join(pos[:]), Join(rot[:]), url)
}

// TexturedPlaneSnippet is the Three.js equivalent of TexturedPlaneEntity.
func TexturedPlaneSnippet(url string, w, h float64, pos, rot [3]float64) string {
	return fmt.Sprintf("{\n"+
		"  const _tex = new THREE.TextureLoader().load('%s');\n"+
		"  const _mat = new THREE.MeshBasicMaterial({ map: _tex, side: THREE.DoubleSide });\n"+
		"  const _geo = new THREE.PlaneGeometry(%s, %s);\n"+
		"  const _mesh = new THREE.Mesh(_geo, _mat);\n"+
		"  _mesh.position.set(%s, %s, %s);\n"+
		"  _mesh.rotation.set(%s, %s, %s);\n"+
		"  scene.add(_mesh);\n}",
		url, Num(w), Num(h),
		Num(pos[0]), Num(pos[1]), Num(pos[2]),
		Num(rot[0]), Num(rot[1]), Num(rot[2]))
}

// OrbitControlsSnippet creates controls bound to the renderer canvas.
const OrbitControlsSnippet = "const _controls = new OrbitControls(camera, renderer.domElement);"

// OrbitControlsUpdate is injected into the animation loop.
const OrbitControlsUpdate = "_controls.update();"

// GridSnippet adds a GridHelper.
func GridSnippet(size, divisions float64) string {
	return fmt.Sprintf("{\n  const _grid = new THREE.GridHelper(%s, %s);\n  scene.add(_grid);\n}", Num(size), Num(divisions))
}

// FloorSnippet adds a flat square floor.
func FloorSnippet(size float64, color string) string {
	return fmt.Sprintf("{\n"+
		"  const _geo = new THREE.PlaneGeometry(%[1]s, %[1]s);\n"+
		"  const _mat = new THREE.MeshStandardMaterial({ color: '%[2]s' });\n"+
		"  const _floor = new THREE.Mesh(_geo, _mat);\n"+
		"  _floor.rotation.x = -Math.PI/2;\n"+
		"  scene.add(_floor);\n}", Num(size), color)
}
