package webscene

import (
	"strings"
	"testing"
)

const aframePage = `<html><head><script src="https://aframe.io/releases/1.5.0/aframe.min.js"></script></head>
<body>
<a-scene>
  <a-sky color="#ECECEC"></a-sky>
</a-scene>
</body></html>`

const threeMain = `import * as THREE from 'https://unpkg.com/three@0.160.0/build/three.module.js';
const scene = new THREE.Scene();
const camera = new THREE.PerspectiveCamera(70, window.innerWidth / window.innerHeight, 0.01, 100);
const renderer = new THREE.WebGLRenderer({ antialias: true });
renderer.setAnimationLoop(() => {
  renderer.render(scene, camera);
});
`

func TestDetectEngine(t *testing.T) {
	tests := []struct {
		html string
		want Engine
	}{
		{aframePage, EngineAFrame},
		{`<A-SCENE></A-SCENE>`, EngineAFrame},
		{`<script type="module" src="./main.js"></script><!-- three.module.js -->`, EngineThree},
		{`import { VRButton } from './VRButton.js'`, EngineThree},
		{`<html></html>`, EngineUnknown},
	}
	for _, tt := range tests {
		if got := DetectEngine(tt.html); got != tt.want {
			t.Errorf("DetectEngine(%q) = %s, want %s", tt.html, got, tt.want)
		}
	}
}

func TestInjectEntity(t *testing.T) {
	got := InjectEntity(aframePage, "<a-box></a-box>")
	if !strings.Contains(got, "  <a-box></a-box>\n</a-scene>") {
		t.Errorf("entity not placed before </a-scene>:\n%s", got)
	}

	got = InjectEntity("<html><body></body></html>", "<a-box></a-box>")
	if got != "<html><body><a-box></a-box>\n</body></html>" {
		t.Errorf("body fallback = %q", got)
	}

	if got := InjectEntity("plain", "<x>"); got != "plain" {
		t.Errorf("no anchor should leave input alone, got %q", got)
	}
}

func TestSetAFrameBackground(t *testing.T) {
	got := SetAFrameBackground(`<a-scene embedded>`, "#000")
	if got != `<a-scene embedded background="color: #000">` {
		t.Errorf("add = %q", got)
	}
	got = SetAFrameBackground(got, "#fff")
	if got != `<a-scene embedded background="color: #fff">` {
		t.Errorf("replace = %q", got)
	}
}

func TestThreeEdits(t *testing.T) {
	js, added := AddImport(threeMain, ImportGLTFLoader)
	if !added || !strings.HasPrefix(js, ImportGLTFLoader+"\n") {
		t.Fatalf("import not prepended")
	}
	if _, again := AddImport(js, ImportGLTFLoader); again {
		t.Error("import added twice")
	}

	js, found := InsertAfterScene(js, GridSnippet(10, 10))
	if !found {
		t.Fatal("scene marker not found")
	}
	sceneIdx := strings.Index(js, "new THREE.Scene()")
	gridIdx := strings.Index(js, "new THREE.GridHelper(10, 10)")
	cameraIdx := strings.Index(js, "PerspectiveCamera")
	if !(sceneIdx < gridIdx && gridIdx < cameraIdx) {
		t.Errorf("grid not inserted right after scene:\n%s", js)
	}

	js, found = InjectIntoLoop(js, SpinStatement(0.02))
	if !found || !strings.Contains(js, "=> {scene.traverse(o=>{ if(o.isMesh) o.rotation.y += 0.02; });\n") {
		t.Errorf("spin not injected:\n%s", js)
	}

	out, found := InsertAfterScene("// empty", "x();")
	if found || out != "// empty\nx();\n" {
		t.Errorf("fallback append = %q", out)
	}
}

func TestSetThreeBackground(t *testing.T) {
	js := SetThreeBackground(threeMain, "#112233")
	if !strings.Contains(js, "const scene = new THREE.Scene();\nscene.background = new THREE.Color('#112233');") {
		t.Errorf("background not inserted:\n%s", js)
	}
	js = SetThreeBackground(js, "#445566")
	if strings.Contains(js, "#112233") || strings.Count(js, "scene.background") != 1 {
		t.Errorf("background not replaced:\n%s", js)
	}
}

func TestPrimitiveMarkup(t *testing.T) {
	p := Primitive{Type: "box", Color: "#FFD166", Size: [3]float64{1, 2, 3}, Transform: Transform{
		Position: DefaultPosition, Rotation: DefaultRotation, Scale: DefaultScale,
	}}
	want := `<a-box color="#FFD166" position="0 1 -2" rotation="0 0 0" depth="3" height="2" width="1" scale="1 1 1"></a-box>`
	if got := PrimitiveEntity(p); got != want {
		t.Errorf("box entity = %s", got)
	}

	p.Type = "sphere"
	if got := PrimitiveSnippet(p); !strings.Contains(got, "new THREE.SphereGeometry(1.5, 32, 16)") {
		t.Errorf("sphere snippet = %s", got)
	}
	p.Type = "plane"
	if got := PrimitiveSnippet(p); !strings.Contains(got, "_mesh.rotateX(-Math.PI/2);") {
		t.Errorf("plane snippet = %s", got)
	}
	p.Type = "teapot"
	if PrimitiveEntity(p) != "" || PrimitiveSnippet(p) != "" {
		t.Error("unknown primitive should render nothing")
	}
}

func TestSpinDuration(t *testing.T) {
	tests := []struct {
		speed float64
		want  int
	}{
		{0.01, 62800},
		{1, 628},
		{100, 100},
		{0, 100},
	}
	for _, tt := range tests {
		if got := SpinDuration(tt.speed); got != tt.want {
			t.Errorf("SpinDuration(%v) = %d, want %d", tt.speed, got, tt.want)
		}
	}
}

func TestLightMarkup(t *testing.T) {
	got := LightEntity("point", "#ffffff", 1, DefaultLightPosition)
	want := `<a-entity light="type: point; color: #ffffff; intensity: 1" position="2 3 2"></a-entity>`
	if got != want {
		t.Errorf("light entity = %s", got)
	}
	if !strings.Contains(LightSnippet("hemisphere", "#fff", 0.5, DefaultLightPosition), "new THREE.HemisphereLight('#fff', '#444444', 0.5)") {
		t.Error("hemisphere snippet mismatch")
	}
}

func TestHDRSnippet(t *testing.T) {
	if !strings.Contains(HDRSnippet("sky.hdr", true), "scene.background = tex;") {
		t.Error("background assignment missing")
	}
	if strings.Contains(HDRSnippet("sky.hdr", false), "scene.background") {
		t.Error("background assignment should be omitted")
	}
}
