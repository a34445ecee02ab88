package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/history"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/scene"
)

const historyDisabled = "Document history is disabled; enable history in the server configuration."

// SceneHistoryTool handles scene_history.
type SceneHistoryTool struct {
	session *project.Session
	journal *history.Journal
}

// NewSceneHistoryTool creates a SceneHistoryTool. journal may be nil.
func NewSceneHistoryTool(session *project.Session, journal *history.Journal) *SceneHistoryTool {
	return &SceneHistoryTool{session: session, journal: journal}
}

// Definition returns the MCP tool definition for registration.
func (t *SceneHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_history",
		mcp.WithDescription("List recent recorded writes of a document, newest first. Use an id with scene_restore to roll back."),
		mcp.WithNumber("limit", mcp.Description("Maximum revisions to return"), mcp.DefaultNumber(20)),
		mcp.WithString("path", mcp.Description("File relative to the project root; defaults to the scene document")),
	)
}

// Handle processes the scene_history tool call.
func (t *SceneHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.journal == nil {
		return mcp.NewToolResultError(historyDisabled), nil
	}
	path, err := scenePath(t.session, req.GetString("path", ""))
	if err != nil {
		return failure(err)
	}
	revs, err := t.journal.List(ctx, path, req.GetInt("limit", 20))
	if err != nil {
		return nil, err
	}
	if revs == nil {
		revs = []history.Revision{}
	}
	return jsonResult(map[string]any{"path": relPath(t.session, path), "revisions": revs})
}

// SceneRestoreTool handles scene_restore.
type SceneRestoreTool struct {
	session *project.Session
	store   *docstore.Store
	journal *history.Journal
}

// NewSceneRestoreTool creates a SceneRestoreTool. journal may be nil.
func NewSceneRestoreTool(session *project.Session, store *docstore.Store, journal *history.Journal) *SceneRestoreTool {
	return &SceneRestoreTool{session: session, store: store, journal: journal}
}

// Definition returns the MCP tool definition for registration.
func (t *SceneRestoreTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_restore",
		mcp.WithDescription("Undo a recorded write: the document goes back to the content it had before revision 'id'. The restore is itself recorded."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Revision id from scene_history")),
	)
}

// Handle processes the scene_restore tool call.
func (t *SceneRestoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.journal == nil {
		return mcp.NewToolResultError(historyDisabled), nil
	}
	id := req.GetString("id", "")
	rev, err := t.journal.Get(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return mcp.NewToolResultError("Revision not found: " + id), nil
	}
	if err != nil {
		return nil, err
	}
	// Revisions of other projects stay out of reach.
	if _, err := t.session.ResolveFile(rev.Path); err != nil {
		return failure(err)
	}
	if rev.Before == nil {
		return mcp.NewToolResultError("Revision " + id + " created the file; there is no earlier content to restore."), nil
	}
	data, err := doc.DecodeLoose(rev.Before)
	if err != nil {
		return failure(&docstore.InvalidJSONError{Path: rev.Path, Err: err})
	}
	d, err := t.store.Write(docstore.WithReason(ctx, "restore:"+id), rev.Path, data)
	if err != nil {
		return failure(err)
	}
	return jsonResult(map[string]any{
		"path":     relPath(t.session, rev.Path),
		"restored": id,
		"version":  d.Version,
		"scene":    scene.IsScenePath(rev.Path),
	})
}
