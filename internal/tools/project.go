package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/archive"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
)

// defaultReadLimit caps project_read_file when maxBytes is not given.
const defaultReadLimit = 1 << 20

// --- project_get_root / project_set_root ---

// GetRootTool handles project_get_root.
type GetRootTool struct {
	session *project.Session
}

// NewGetRootTool creates a GetRootTool.
func NewGetRootTool(session *project.Session) *GetRootTool {
	return &GetRootTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *GetRootTool) Definition() mcp.Tool {
	return mcp.NewTool("project_get_root",
		mcp.WithDescription("Return the project root every file tool operates on."),
	)
}

// Handle processes the project_get_root tool call.
func (t *GetRootTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"projectRoot": t.session.Root()})
}

// SetRootTool handles project_set_root.
type SetRootTool struct {
	session *project.Session
}

// NewSetRootTool creates a SetRootTool.
func NewSetRootTool(session *project.Session) *SetRootTool {
	return &SetRootTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *SetRootTool) Definition() mcp.Tool {
	return mcp.NewTool("project_set_root",
		mcp.WithDescription("Point the server at another project folder for the rest of the session, e.g. an 8th Wall Desktop project."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path (or path relative to the server's working directory) of an existing directory")),
	)
}

// Handle processes the project_set_root tool call.
func (t *SetRootTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := req.GetString("path", "")
	if p == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", p, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return mcp.NewToolResultError("Path does not exist or is not a directory: " + abs), nil
	}
	return jsonResult(map[string]any{"projectRoot": t.session.SetRoot(abs)})
}

// --- desktop_list_projects / desktop_set_project ---

// ListProjectsTool handles desktop_list_projects.
type ListProjectsTool struct {
	session *project.Session
}

// NewListProjectsTool creates a ListProjectsTool.
func NewListProjectsTool(session *project.Session) *ListProjectsTool {
	return &ListProjectsTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_list_projects",
		mcp.WithDescription("List candidate 8th Wall Desktop project folders under ~/Documents/8th Wall (or EIGHTHWALL_DESKTOP_ROOT)."),
	)
}

// Handle processes the desktop_list_projects tool call.
func (t *ListProjectsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base := t.session.DesktopBase()
	projects := project.ScanProjects(base)
	if projects == nil {
		projects = []project.Candidate{}
	}
	return jsonResult(map[string]any{"base": base, "projects": projects})
}

// SetProjectTool handles desktop_set_project.
type SetProjectTool struct {
	session *project.Session
}

// NewSetProjectTool creates a SetProjectTool.
func NewSetProjectTool(session *project.Session) *SetProjectTool {
	return &SetProjectTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *SetProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_set_project",
		mcp.WithDescription("Switch the project root to a Desktop project folder by name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name under the Desktop base directory")),
	)
}

// Handle processes the desktop_set_project tool call.
func (t *SetProjectTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if err := safeName("name", name); err != nil {
		return failure(err)
	}
	chosen := filepath.Join(t.session.DesktopBase(), name)
	if info, err := os.Stat(chosen); err != nil || !info.IsDir() {
		return mcp.NewToolResultError("Project folder not found: " + chosen), nil
	}
	return jsonResult(map[string]any{"projectRoot": t.session.SetRoot(chosen)})
}

// --- project_get_info / project_list_files ---

// InfoTool handles project_get_info.
type InfoTool struct {
	session *project.Session
}

// NewInfoTool creates an InfoTool.
func NewInfoTool(session *project.Session) *InfoTool {
	return &InfoTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *InfoTool) Definition() mcp.Tool {
	return mcp.NewTool("project_get_info",
		mcp.WithDescription("Summarize the project: every file under the root with its size (.git and node_modules are skipped)."),
	)
}

// Handle processes the project_get_info tool call.
func (t *InfoTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root := t.session.Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating project root: %w", err)
	}
	files, err := project.Files(root)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"root": root, "files": files})
}

// ListFilesTool handles project_list_files.
type ListFilesTool struct {
	session *project.Session
}

// NewListFilesTool creates a ListFilesTool.
func NewListFilesTool(session *project.Session) *ListFilesTool {
	return &ListFilesTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *ListFilesTool) Definition() mcp.Tool {
	return mcp.NewTool("project_list_files",
		mcp.WithDescription("List files under a directory of the project. Names are relative to the project root."),
		mcp.WithString("dir", mcp.Description("Directory relative to the root"), mcp.DefaultString(".")),
		mcp.WithNumber("maxDepth", mcp.Description("How many levels to descend"), mcp.DefaultNumber(1)),
		mcp.WithString("pattern", mcp.Description("Regular expression the relative name must match")),
		mcp.WithString("glob", mcp.Description("Glob the relative name must match, e.g. assets/**/*.glb")),
		mcp.WithBoolean("dirsOnly", mcp.Description("Only list directories")),
	)
}

// Handle processes the project_list_files tool call.
func (t *ListFilesTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := req.GetString("dir", ".")
	full, err := t.session.Resolve(dir)
	if err != nil {
		return failure(err)
	}
	opts := project.ListOptions{
		MaxDepth: req.GetInt("maxDepth", 1),
		Glob:     req.GetString("glob", ""),
		DirsOnly: req.GetBool("dirsOnly", false),
	}
	if p := req.GetString("pattern", ""); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid pattern: %v", err)), nil
		}
		opts.Pattern = re
	}
	items, err := project.ListFiles(t.session.Root(), full, opts)
	if errors.Is(err, fs.ErrNotExist) {
		return mcp.NewToolResultError("Directory not found: " + dir), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"dir": dir, "maxDepth": opts.MaxDepth, "count": len(items), "items": items})
}

// --- project_read_file / project_write_file / project_delete_file / project_move_file ---

// ReadFileTool handles project_read_file.
type ReadFileTool struct {
	session *project.Session
}

// NewReadFileTool creates a ReadFileTool.
func NewReadFileTool(session *project.Session) *ReadFileTool {
	return &ReadFileTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *ReadFileTool) Definition() mcp.Tool {
	return mcp.NewTool("project_read_file",
		mcp.WithDescription("Read a text file under the project root."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the root")),
		mcp.WithNumber("maxBytes", mcp.Description("Maximum bytes to return"), mcp.DefaultNumber(defaultReadLimit)),
	)
}

// Handle processes the project_read_file tool call.
func (t *ReadFileTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rel := req.GetString("path", "")
	full, err := t.session.ResolveFile(rel)
	if err != nil {
		return failure(err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return failure(err)
	}
	limit := req.GetInt("maxBytes", defaultReadLimit)
	if limit < 0 {
		limit = 0
	}
	truncated := len(data) > limit
	if truncated {
		data = data[:limit]
	}
	return jsonResult(map[string]any{"path": rel, "truncated": truncated, "text": string(data)})
}

// WriteFileTool handles project_write_file.
type WriteFileTool struct {
	session *project.Session
}

// NewWriteFileTool creates a WriteFileTool.
func NewWriteFileTool(session *project.Session) *WriteFileTool {
	return &WriteFileTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *WriteFileTool) Definition() mcp.Tool {
	return mcp.NewTool("project_write_file",
		mcp.WithDescription("Write text to a file under the project root."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the root")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full file content")),
		mcp.WithBoolean("createDirs", mcp.Description("Create missing parent directories"), mcp.DefaultBool(true)),
	)
}

// Handle processes the project_write_file tool call.
func (t *WriteFileTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rel := req.GetString("path", "")
	full, err := t.session.ResolveFile(rel)
	if err != nil {
		return failure(err)
	}
	if req.GetBool("createDirs", true) {
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", rel, err)
		}
	}
	if err := os.WriteFile(full, []byte(req.GetString("content", "")), 0o644); err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText("Wrote " + rel), nil
}

// DeleteFileTool handles project_delete_file.
type DeleteFileTool struct {
	session *project.Session
}

// NewDeleteFileTool creates a DeleteFileTool.
func NewDeleteFileTool(session *project.Session) *DeleteFileTool {
	return &DeleteFileTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteFileTool) Definition() mcp.Tool {
	return mcp.NewTool("project_delete_file",
		mcp.WithDescription("Delete a file under the project root. Deleting a missing file succeeds."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the root")),
	)
}

// Handle processes the project_delete_file tool call.
func (t *DeleteFileTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rel := req.GetString("path", "")
	full, err := t.session.ResolveFile(rel)
	if err != nil {
		return failure(err)
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return mcp.NewToolResultError(rel + " is a directory"), nil
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("deleting %s: %w", rel, err)
	}
	return mcp.NewToolResultText("Deleted " + rel), nil
}

// MoveFileTool handles project_move_file.
type MoveFileTool struct {
	session *project.Session
}

// NewMoveFileTool creates a MoveFileTool.
func NewMoveFileTool(session *project.Session) *MoveFileTool {
	return &MoveFileTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *MoveFileTool) Definition() mcp.Tool {
	return mcp.NewTool("project_move_file",
		mcp.WithDescription("Move or rename a file within the project root."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source path relative to the root")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Destination path relative to the root")),
	)
}

// Handle processes the project_move_file tool call.
func (t *MoveFileTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromRel, toRel := req.GetString("from", ""), req.GetString("to", "")
	from, err := t.session.ResolveFile(fromRel)
	if err != nil {
		return failure(err)
	}
	to, err := t.session.ResolveFile(toRel)
	if err != nil {
		return failure(err)
	}
	if _, err := os.Stat(from); err != nil {
		return failure(err)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", toRel, err)
	}
	if err := os.Rename(from, to); err != nil {
		return nil, fmt.Errorf("moving %s: %w", fromRel, err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved %s -> %s", fromRel, toRel)), nil
}

// --- project_scaffold / project_export_zip ---

// ScaffoldTool handles project_scaffold.
type ScaffoldTool struct {
	session *project.Session
}

// NewScaffoldTool creates a ScaffoldTool.
func NewScaffoldTool(session *project.Session) *ScaffoldTool {
	return &ScaffoldTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *ScaffoldTool) Definition() mcp.Tool {
	return mcp.NewTool("project_scaffold",
		mcp.WithDescription("Create a minimal web XR app (index.html, main.js, styles.css). Existing files are kept unless overwrite is set."),
		mcp.WithBoolean("overwrite", mcp.Description("Replace files that already exist")),
		mcp.WithString("template", mcp.Description("Starter engine"), mcp.Enum(templates.ScaffoldKinds...), mcp.DefaultString("aframe")),
	)
}

// Handle processes the project_scaffold tool call.
func (t *ScaffoldTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("template", "aframe")
	files, err := templates.Scaffold(kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	root := t.session.Root()
	overwrite := req.GetBool("overwrite", false)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	created := []string{}
	for _, name := range names {
		full, err := t.session.ResolveFile(name)
		if err != nil {
			return failure(err)
		}
		if _, err := os.Stat(full); err == nil && !overwrite {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", name, err)
		}
		if err := os.WriteFile(full, []byte(files[name]), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		created = append(created, name)
	}
	return jsonResult(map[string]any{"root": root, "created": created, "template": kind})
}

// ExportZipTool handles project_export_zip.
type ExportZipTool struct {
	session *project.Session
}

// NewExportZipTool creates an ExportZipTool.
func NewExportZipTool(session *project.Session) *ExportZipTool {
	return &ExportZipTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *ExportZipTool) Definition() mcp.Tool {
	return mcp.NewTool("project_export_zip",
		mcp.WithDescription("Export the project directory to a zip archive (.git and node_modules are left out)."),
		mcp.WithString("outPath", mcp.Description("Archive path relative to the project root. Defaults to project-export-<millis>.zip")),
	)
}

// Handle processes the project_export_zip tool call.
func (t *ExportZipTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := req.GetString("outPath", "")
	if out == "" {
		out = fmt.Sprintf("project-export-%d.zip", timeNow().UnixMilli())
	}
	target, err := t.session.ResolveFile(out)
	if err != nil {
		return failure(err)
	}
	res, err := archive.Export(t.session.Root(), target)
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}
