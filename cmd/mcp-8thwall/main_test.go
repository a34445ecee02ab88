package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcp-8thwall/mcp-8thwall/internal/codegen"
)

// run executes the CLI with a hermetic config file.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("history:\n  enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"MODE", "PROJECT_ROOT", "MCP8W_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestModeValue(t *testing.T) {
	var m modeValue
	if err := m.Set("DOCS"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if m.String() != "docs" {
		t.Errorf("mode = %q", m.String())
	}
	if err := m.Set("cloud"); err == nil || !strings.Contains(err.Error(), "local, docs, api") {
		t.Errorf("expected enum error, got %v", err)
	}
}

func TestCall_InProcess(t *testing.T) {
	out, err := run(t, "--mode", "docs", "call", "health_ping", "--args", `{"message":"hi"}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var res struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(res.Content) != 1 || !strings.HasSuffix(res.Content[0].Text, "] hi") {
		t.Errorf("unexpected result: %s", out)
	}
}

func TestCall_UnknownTool(t *testing.T) {
	_, err := run(t, "--mode", "docs", "call", "desktop_add_shape")
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("expected unknown tool error, got %v", err)
	}
}

func TestAddShape(t *testing.T) {
	project := t.TempDir()
	out, err := run(t, "add-shape", project, "cube", "Green Cube", "1", "0.5", "-2", "#00FF00")
	if err != nil {
		t.Fatalf("add-shape: %v", err)
	}
	if !strings.Contains(out, "green-cube-") {
		t.Errorf("output should mention the new id: %s", out)
	}
	data, err := os.ReadFile(filepath.Join(project, ".expanse.json"))
	if err != nil {
		t.Fatalf("scene not written: %v", err)
	}
	if !strings.Contains(string(data), `"Green Cube"`) || !strings.Contains(string(data), "#00FF00") {
		t.Errorf("scene missing shape:\n%s", data)
	}
	var scene struct {
		Objects map[string]struct {
			Position []float64 `json:"position"`
		} `json:"objects"`
	}
	if err := json.Unmarshal(data, &scene); err != nil {
		t.Fatalf("decode scene: %v", err)
	}
	for id, obj := range scene.Objects {
		if len(obj.Position) != 3 || obj.Position[2] != -2 {
			t.Errorf("%s position = %v, want [1 0.5 -2]", id, obj.Position)
		}
	}
}

func TestAddShape_BadCoordinate(t *testing.T) {
	_, err := run(t, "add-shape", t.TempDir(), "cube", "Box", "1", "up", "0")
	if err == nil || !strings.Contains(err.Error(), `coordinate "up"`) {
		t.Errorf("expected coordinate error, got %v", err)
	}
}

func TestWrapComponents(t *testing.T) {
	dir := t.TempDir()
	src := "// spinner\nAFRAME.registerComponent('spin', {\n  tick: function () {}\n});\n"
	if err := os.WriteFile(filepath.Join(dir, "spin.js"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "util.js"), []byte("export const x = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "wrap-components", dir)
	if err != nil {
		t.Fatalf("wrap-components: %v", err)
	}
	if !strings.Contains(out, string(codegen.StatusWrapped)) || !strings.Contains(out, string(codegen.StatusNoRegistration)) {
		t.Errorf("unexpected report:\n%s", out)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "spin.js"))
	if !strings.Contains(string(data), codegen.WrappedMarker) {
		t.Errorf("spin.js not wrapped:\n%s", data)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "mcp-8thwall v") {
		t.Errorf("version output = %q", out)
	}
}
