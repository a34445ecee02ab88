package templates

import (
	"strings"
	"testing"
)

// --- NewRenderer ---

func TestNewRenderer_Succeeds(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() failed: %v", err)
	}
	if r == nil {
		t.Fatal("NewRenderer() returned nil")
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if _, err := r.Render("nope.tmpl", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

// --- Wrap ---

func TestWrap_PlacesBodyInsideTry(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	body := "AFRAME.registerComponent('spin', {});\n\n"
	got, err := r.Wrap(body)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if !strings.HasPrefix(got, "// Safe AFRAME registration") {
		t.Errorf("missing wrapper header:\n%s", got)
	}
	if !strings.Contains(got, "try {\nAFRAME.registerComponent('spin', {});\n      console.log('[MCP] Component registered successfully');") {
		t.Errorf("body not placed inside try block:\n%s", got)
	}
}

// --- Skeleton ---

func TestRender_Skeleton(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	got, err := r.Render(ComponentSkeleton, SkeletonData{Name: "hover-glow", Description: "glow when hovered"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"AFRAME.registerComponent('hover-glow', {",
		"console.log('hover-glow initialized');",
		"Initialization for: glow when hovered",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("skeleton missing %q", want)
		}
	}
}

// --- Three.js pipeline script ---

func TestRender_ThreeJSScript(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	plain, err := r.Render(ThreeJSScript, NewScriptData("my-effect", "", false, false))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"// my-effect\n\nconsole.log('📦 my-effect: Loading...');",
		"const myEffectModule = {",
		"name: 'my-effect',",
		"XR8.Threejs.pipelineModule(),",
		"// Add your Three.js objects here",
	} {
		if !strings.Contains(plain, want) {
			t.Errorf("plain script missing %q", want)
		}
	}
	if strings.Contains(plain, "TestSphere") || strings.Contains(plain, "onTouchStart") {
		t.Error("plain script should not include optional sections")
	}

	full, err := r.Render(ThreeJSScript, NewScriptData("Sparkle Trail.js", "sparkles", true, true))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"// Sparkle Trail\n// sparkles\n",
		"const SparkleTrailModule = {",
		"name: 'sparkle-trail',",
		"sphere.name = 'TestSphere';",
		"function onTouchStart(e) {",
	} {
		if !strings.Contains(full, want) {
			t.Errorf("full script missing %q", want)
		}
	}
}

func TestIdent(t *testing.T) {
	tests := []struct{ in, want string }{
		{"my-effect", "myEffect"},
		{"particle system", "particleSystem"},
		{"3d-thing", "_3dThing"},
		{"---", "custom"},
	}
	for _, tt := range tests {
		if got := Ident(tt.in); got != tt.want {
			t.Errorf("Ident(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- Components ---

func TestComponents(t *testing.T) {
	list := Components()
	if len(list) != 4 {
		t.Fatalf("got %d components, want 4", len(list))
	}
	for _, c := range list {
		src, err := ComponentSource(c.Name)
		if err != nil {
			t.Fatalf("ComponentSource(%s): %v", c.Name, err)
		}
		if !strings.HasPrefix(src, "AFRAME.registerComponent('"+c.Name+"'") {
			t.Errorf("%s source starts with %q", c.Name, src[:40])
		}
	}
	if _, err := ComponentSource("missing"); err == nil {
		t.Error("expected error for unknown component")
	}
}

func TestComponentFile(t *testing.T) {
	got := ComponentFile("spin", "rotates things", "AFRAME.registerComponent('spin', {});")
	want := "// Custom A-Frame Component: spin\n// rotates things\n\nAFRAME.registerComponent('spin', {});\n"
	if got != want {
		t.Errorf("ComponentFile =\n%q\nwant\n%q", got, want)
	}
}

// --- Scaffolds ---

func TestScaffold(t *testing.T) {
	for _, kind := range ScaffoldKinds {
		files, err := Scaffold(kind)
		if err != nil {
			t.Fatalf("Scaffold(%s): %v", kind, err)
		}
		for _, name := range []string{"index.html", "main.js", "styles.css"} {
			if files[name] == "" {
				t.Errorf("%s scaffold missing %s", kind, name)
			}
		}
	}
	aframe, _ := Scaffold("aframe")
	if !strings.Contains(aframe["index.html"], "<a-scene") {
		t.Error("aframe index.html has no scene")
	}
	if _, err := Scaffold("unity"); err == nil {
		t.Error("expected error for unknown scaffold")
	}
}

// --- Experiences ---

func TestExperiences(t *testing.T) {
	all, err := Experiences()
	if err != nil {
		t.Fatalf("Experiences: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("got %d experiences, want 6", len(all))
	}
	if all[0].Key != "light-painting" || all[0].Category != "Interactive" {
		t.Errorf("first experience = %+v", all[0])
	}
	for _, e := range all {
		if e.Name == "" || len(e.Steps) == 0 {
			t.Errorf("experience %s incomplete", e.Key)
		}
	}

	lp, ok, err := FindExperience("light-painting")
	if err != nil || !ok {
		t.Fatalf("FindExperience: ok=%v err=%v", ok, err)
	}
	script, err := IntegrationScript(lp)
	if err != nil {
		t.Fatalf("IntegrationScript: %v", err)
	}
	if !strings.Contains(script, "new THREE.Points(particleGeometry, particleMaterial)") {
		t.Error("light painting script content mismatch")
	}

	showcase, _, _ := FindExperience("model-showcase")
	if s, err := IntegrationScript(showcase); err != nil || s != "" {
		t.Errorf("model-showcase script = %q, %v", s, err)
	}

	if _, ok, _ := FindExperience("nope"); ok {
		t.Error("unknown key should not be found")
	}
	if keys := ExperienceKeys(); len(keys) != 6 || keys[0] != "face-filter" {
		t.Errorf("ExperienceKeys = %v", keys)
	}
}
