package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/codegen"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
)

// componentsDir is where custom components live, relative to the root.
const componentsDir = "src/components"

var (
	registeredName = regexp.MustCompile(`AFRAME\.registerComponent\(\s*['"]([^'"]+)['"]`)
	firstComment   = regexp.MustCompile(`//\s*(.+)`)
)

func jsFileName(name string) string {
	if strings.HasSuffix(name, ".js") {
		return name
	}
	return name + ".js"
}

// writeScript writes content to dir/name under the project root and
// optionally lists it in the scene's scripts. It returns the script path
// and a note about the scene update.
func writeScript(ctx context.Context, session *project.Session, store *docstore.Store, dir, file, content string, register bool) (string, string, error) {
	script := path.Join(filepath.ToSlash(dir), file)
	full, err := session.ResolveFile(script)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", "", fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", script, err)
	}
	script = relPath(session, full)
	if !register {
		return script, "", nil
	}
	found, err := updateScripts(ctx, session, store, script, true)
	switch {
	case err != nil:
		return script, fmt.Sprintf("Couldn't update .expanse.json: %v. Add %q to its scripts list manually.", err, script), nil
	case !found:
		return script, fmt.Sprintf("No .expanse.json found; add %q to its scripts list once the scene exists.", script), nil
	}
	return script, "Added to .expanse.json scripts.", nil
}

// --- desktop_add_custom_component ---

// AddComponentTool handles desktop_add_custom_component.
type AddComponentTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewAddComponentTool creates an AddComponentTool.
func NewAddComponentTool(session *project.Session, store *docstore.Store) *AddComponentTool {
	return &AddComponentTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *AddComponentTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_add_custom_component",
		mcp.WithDescription("Add a custom A-Frame component to src/components and list it in the scene's scripts."),
		mcp.WithString("componentName", mcp.Required(), mcp.Description("Component name, e.g. light-painter")),
		mcp.WithString("componentCode", mcp.Required(), mcp.Description("Full JavaScript source calling AFRAME.registerComponent")),
		mcp.WithString("description", mcp.Description("What the component does")),
		mcp.WithBoolean("validate", mcp.Description("Check the code before writing"), mcp.DefaultBool(true)),
	)
}

// Handle processes the desktop_add_custom_component tool call.
func (t *AddComponentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSuffix(req.GetString("componentName", ""), ".js")
	if err := safeName("componentName", name); err != nil {
		return failure(err)
	}
	code := req.GetString("componentCode", "")
	if req.GetBool("validate", true) {
		if res := codegen.ValidateComponent(code); !res.Valid {
			return mcp.NewToolResultError(fmt.Sprintf(
				"Component validation failed:\n%s\n\nUse validate: false to skip validation.",
				strings.Join(res.Errors, "\n"))), nil
		}
	}
	content := templates.ComponentFile(name, req.GetString("description", ""), code)
	script, note, err := writeScript(ctx, t.session, t.store, componentsDir, jsFileName(name), content, true)
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created component %q\n   File: %s\n   %s", name, script, note)), nil
}

// --- desktop_add_custom_script ---

// AddScriptTool handles desktop_add_custom_script.
type AddScriptTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewAddScriptTool creates an AddScriptTool.
func NewAddScriptTool(session *project.Session, store *docstore.Store) *AddScriptTool {
	return &AddScriptTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *AddScriptTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_add_custom_script",
		mcp.WithDescription("Add a JavaScript file (utilities, helpers, init code) to the project."),
		mcp.WithString("scriptName", mcp.Required(), mcp.Description("File name, with or without .js")),
		mcp.WithString("scriptCode", mcp.Required(), mcp.Description("JavaScript source")),
		mcp.WithString("directory", mcp.Description("Directory relative to the root"), mcp.DefaultString("src")),
		mcp.WithBoolean("addToExpanse", mcp.Description("List the script in .expanse.json"), mcp.DefaultBool(true)),
	)
}

// Handle processes the desktop_add_custom_script tool call.
func (t *AddScriptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("scriptName", "")
	if err := safeName("scriptName", name); err != nil {
		return failure(err)
	}
	script, note, err := writeScript(ctx, t.session, t.store,
		req.GetString("directory", "src"), jsFileName(name),
		req.GetString("scriptCode", ""), req.GetBool("addToExpanse", true))
	if err != nil {
		return failure(err)
	}
	msg := fmt.Sprintf("Created script %q\n   File: %s", jsFileName(name), script)
	if note != "" {
		msg += "\n   " + note
	}
	return mcp.NewToolResultText(msg), nil
}

// --- desktop_list_components / desktop_remove_component ---

// ListComponentsTool handles desktop_list_components.
type ListComponentsTool struct {
	session *project.Session
}

// NewListComponentsTool creates a ListComponentsTool.
func NewListComponentsTool(session *project.Session) *ListComponentsTool {
	return &ListComponentsTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *ListComponentsTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_list_components",
		mcp.WithDescription("List the custom components in src/components with their registered names."),
	)
}

// Handle processes the desktop_list_components tool call.
func (t *ListComponentsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := t.session.Resolve(componentsDir)
	if err != nil {
		return failure(err)
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return mcp.NewToolResultText("No components directory found. Use desktop_add_custom_component to create your first component."), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", componentsDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".js") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("No custom components found in " + componentsDir + "/"), nil
	}
	sort.Strings(files)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d custom component(s):\n", len(files))
	for _, f := range files {
		src, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		name := strings.TrimSuffix(f, ".js")
		if m := registeredName.FindSubmatch(src); m != nil {
			name = string(m[1])
		}
		desc := "No description"
		if m := firstComment.FindSubmatch(src); m != nil {
			desc = strings.TrimSpace(string(m[1]))
		}
		fmt.Fprintf(&b, "\n- %s (%s)\n   %s\n   Path: %s/%s\n", name, f, desc, componentsDir, f)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// RemoveComponentTool handles desktop_remove_component.
type RemoveComponentTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewRemoveComponentTool creates a RemoveComponentTool.
func NewRemoveComponentTool(session *project.Session, store *docstore.Store) *RemoveComponentTool {
	return &RemoveComponentTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *RemoveComponentTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_remove_component",
		mcp.WithDescription("Delete a custom component file and drop it from the scene's scripts."),
		mcp.WithString("componentName", mcp.Required(), mcp.Description("Component file name, with or without .js")),
	)
}

// Handle processes the desktop_remove_component tool call.
func (t *RemoveComponentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("componentName", "")
	if err := safeName("componentName", name); err != nil {
		return failure(err)
	}
	file := jsFileName(name)
	full, err := t.session.ResolveFile(componentsDir + "/" + file)
	if err != nil {
		return failure(err)
	}
	if err := os.Remove(full); errors.Is(err, fs.ErrNotExist) {
		return mcp.NewToolResultError(fmt.Sprintf("Component %q not found in %s/", file, componentsDir)), nil
	} else if err != nil {
		return nil, fmt.Errorf("removing %s: %w", file, err)
	}
	if _, err := updateScripts(ctx, t.session, t.store, componentsDir+"/"+file, false); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Removed component file %q\n   Couldn't update .expanse.json (%v); remove the script reference manually.", file, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed component %q", file)), nil
}

// --- desktop_add_threejs_script ---

// AddThreeJSScriptTool handles desktop_add_threejs_script.
type AddThreeJSScriptTool struct {
	session  *project.Session
	store    *docstore.Store
	renderer *templates.Renderer
}

// NewAddThreeJSScriptTool creates an AddThreeJSScriptTool.
func NewAddThreeJSScriptTool(session *project.Session, store *docstore.Store, renderer *templates.Renderer) *AddThreeJSScriptTool {
	return &AddThreeJSScriptTool{session: session, store: store, renderer: renderer}
}

// Definition returns the MCP tool definition for registration.
func (t *AddThreeJSScriptTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_add_threejs_script",
		mcp.WithDescription("Add a Three.js script wired into the XR8 camera pipeline, listed in the scene's scripts."),
		mcp.WithString("scriptName", mcp.Required(), mcp.Description("Script name, e.g. my-effect")),
		mcp.WithString("description", mcp.Description("What the script does")),
		mcp.WithBoolean("addTestSphere", mcp.Description("Add a spinning test sphere"), mcp.DefaultBool(false)),
		mcp.WithBoolean("addTouchHandling", mcp.Description("Include touch and mouse handlers"), mcp.DefaultBool(false)),
		mcp.WithString("directory", mcp.Description("Directory relative to the root"), mcp.DefaultString("src")),
	)
}

// Handle processes the desktop_add_threejs_script tool call.
func (t *AddThreeJSScriptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("scriptName", "")
	if err := safeName("scriptName", name); err != nil {
		return failure(err)
	}
	data := templates.NewScriptData(name, req.GetString("description", ""),
		req.GetBool("addTestSphere", false), req.GetBool("addTouchHandling", false))
	content, err := t.renderer.Render(templates.ThreeJSScript, data)
	if err != nil {
		return nil, err
	}
	script, note, err := writeScript(ctx, t.session, t.store, req.GetString("directory", "src"), jsFileName(name), content, true)
	if err != nil {
		return failure(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Created Three.js script %q\n   File: %s\n   %s\n\n", jsFileName(name), script, note)
	b.WriteString("This script includes:\n")
	b.WriteString("   - XR8.Threejs.pipelineModule() setup\n")
	b.WriteString("   - Scene, camera and renderer access in onStart and onUpdate\n")
	if data.TestSphere {
		b.WriteString("   - A test sphere to confirm rendering works\n")
	}
	if data.TouchHandling {
		b.WriteString("   - Touch and mouse handlers\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
