package resources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
)

func read(t *testing.T, fn func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("read %s: %v", uri, err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	return tc
}

func TestHandleScene(t *testing.T) {
	root := t.TempDir()
	h := NewHandler(project.NewSessionAt(root), docstore.New())

	got := read(t, h.HandleScene, SceneURI)
	if got.MIMEType != "text/plain" || !strings.HasPrefix(got.Text, "Error: no scene document") {
		t.Errorf("expected no-scene error, got %+v", got)
	}

	scene := `{"objects": {"cube-1": {"id": "cube-1", "name": "Cube"}}}`
	if err := os.WriteFile(filepath.Join(root, ".expanse.json"), []byte(scene), 0o644); err != nil {
		t.Fatal(err)
	}
	got = read(t, h.HandleScene, SceneURI)
	if got.MIMEType != "application/json" || !strings.Contains(got.Text, `"cube-1"`) {
		t.Errorf("unexpected scene resource: %+v", got)
	}
	if got.URI != SceneURI {
		t.Errorf("URI = %s", got.URI)
	}
}

func TestHandleScene_InvalidJSON(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".expanse.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(project.NewSessionAt(root), docstore.New())

	got := read(t, h.HandleScene, SceneURI)
	if !strings.HasPrefix(got.Text, "Error:") {
		t.Errorf("expected error resource, got %q", got.Text)
	}
}

func TestHandleProject(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".expanse.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(project.NewSessionAt(root), docstore.New())

	got := read(t, h.HandleProject, ProjectURI)
	var info struct {
		Root    string          `json:"root"`
		Markers map[string]bool `json:"markers"`
		Scene   string          `json:"scene"`
	}
	if err := json.Unmarshal([]byte(got.Text), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Scene != ".expanse.json" {
		t.Errorf("scene = %q", info.Scene)
	}
	if len(info.Markers) == 0 {
		t.Error("expected marker report")
	}
}
