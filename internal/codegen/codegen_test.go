package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
)

func renderer(t *testing.T) *templates.Renderer {
	t.Helper()
	r, err := templates.NewRenderer()
	require.NoError(t, err)
	return r
}

func TestValidateJavaScript(t *testing.T) {
	ok := ValidateJavaScript("function a() { return (1 + 2); }")
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)

	bad := ValidateJavaScript("function a( { eval('x'); new Function('y'); XR9.run()")
	assert.False(t, bad.Valid)
	assert.Equal(t, []string{
		"Syntax error: Mismatched braces (1 open, 0 close)",
		"Syntax error: Mismatched parentheses (4 open, 3 close)",
		"Security: eval() is not allowed",
		"Security: Function constructor is not allowed",
		"Warning: Potentially undefined API: XR9",
	}, bad.Errors)
}

func TestValidateComponent(t *testing.T) {
	assert.True(t, ValidateComponent("AFRAME.registerComponent('a', {});").Valid)

	res := ValidateComponent("console.log('hi'")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "Component must use AFRAME.registerComponent()")
	assert.Contains(t, res.Errors, "Mismatched parentheses - check syntax")
}

func TestGeneratedTemplatesValidate(t *testing.T) {
	r := renderer(t)
	for _, c := range templates.Components() {
		g, err := Generate(r, Request{UseTemplate: c.Name})
		require.NoError(t, err)
		assert.Equal(t, c.Name, g.Template)
		assert.True(t, ValidateJavaScript(g.Code).Valid, "%s: %v", c.Name, ValidateJavaScript(g.Code).Errors)
		assert.Contains(t, g.Code, WrappedMarker)
	}
}

func TestGenerate_MatchesDescription(t *testing.T) {
	r := renderer(t)

	g, err := Generate(r, Request{Description: "Play a sound when placed"})
	require.NoError(t, err)
	assert.Equal(t, "audio-controller", g.Template)

	g, err = Generate(r, Request{Description: "make it glow", ComponentName: "glow"})
	require.NoError(t, err)
	assert.Empty(t, g.Template)
	assert.Contains(t, g.Code, "AFRAME.registerComponent('glow', {")

	_, err = Generate(r, Request{UseTemplate: "does-not-exist"})
	assert.Error(t, err)
}

func TestMatchTemplate(t *testing.T) {
	tests := map[string]string{
		"Light painting with particles": "particle-system",
		"track touch positions":         "gesture-handler",
		"touch the screen":              "",
		"click to select":               "tap-handler",
		"background audio":              "audio-controller",
		"a spinning cube":               "",
	}
	for desc, want := range tests {
		assert.Equal(t, want, MatchTemplate(desc), desc)
	}
}

type fakeWrapper struct{}

func (fakeWrapper) Wrap(body string) (string, error) {
	return "// " + WrappedMarker + "\n<<" + body + ">>\n", nil
}

func TestWrapSource(t *testing.T) {
	src := "// header\nAFRAME.registerComponent('a', {\n  init: function () {}\n});\n\nAFRAME.registerSystem('b', {\n});\n// trailer\n"
	out, status, err := WrapSource(fakeWrapper{}, src)
	require.NoError(t, err)
	assert.Equal(t, StatusWrapped, status)
	assert.Equal(t, "// header\n// "+WrappedMarker+"\n<<AFRAME.registerComponent('a', {\n  init: function () {}\n});\n\nAFRAME.registerSystem('b', {\n});>>\n// trailer\n", out)

	again, status, err := WrapSource(fakeWrapper{}, out)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyWrapped, status)
	assert.Equal(t, out, again)

	_, status, _ = WrapSource(fakeWrapper{}, "console.log(1);")
	assert.Equal(t, StatusNoRegistration, status)

	_, status, _ = WrapSource(fakeWrapper{}, "AFRAME.registerComponent('a', {\n  init: function () {\n")
	assert.Equal(t, StatusUnterminated, status)
}

func TestWrapDir(t *testing.T) {
	dir := t.TempDir()
	r := renderer(t)
	src, err := templates.ComponentSource("tap-handler")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tap.js"), []byte(src), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.js"), []byte("export const x = 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("AFRAME.registerComponent"), 0o644))

	reports, err := WrapDir(r, dir)
	require.NoError(t, err)
	assert.Equal(t, []FileReport{
		{File: "tap.js", Status: StatusWrapped},
		{File: "util.js", Status: StatusNoRegistration},
	}, reports)

	b, err := os.ReadFile(filepath.Join(dir, "tap.js"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "// "+WrappedMarker))
	assert.True(t, ValidateJavaScript(string(b)).Valid)

	reports, err = WrapDir(r, dir)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyWrapped, reports[0].Status)
}

func TestAnalyze(t *testing.T) {
	a := Analyze(`Create a spinning King Kong model on display`)
	assert.Equal(t, CategoryModelShowcase, a.Category)
	assert.Equal(t, []string{"Create", "King Kong"}, a.Entities)
	assert.Equal(t, []string{"spinning"}, a.Modifiers)
	assert.InDelta(t, 3.0/7.0, a.Confidence, 1e-9)

	q := Analyze(`portal to 'outer space'`)
	assert.Equal(t, CategoryPortal, q.Category)
	assert.Equal(t, []string{"outer space"}, q.Entities)

	none := Analyze("hello world")
	assert.Equal(t, CategoryCustom, none.Category)
	assert.Zero(t, none.Confidence)
	assert.NotNil(t, none.Entities)
}

func TestPlanAndReport(t *testing.T) {
	a := Analyze("a rotating robot model")
	p := PlanFor(a)
	assert.Equal(t, "model-showcase", p.Template)
	assert.Contains(t, p.Steps, "Add Y-axis rotation animation (60°/sec)")

	text := Report(a, p, true)
	assert.Contains(t, text, "Category: model-showcase")
	assert.Contains(t, text, `apply_experience_template with "model-showcase"`)
	assert.Contains(t, Report(a, p, false), "Auto-execution disabled")

	custom := PlanFor(Analyze("zzz"))
	assert.Empty(t, custom.Template)
}
