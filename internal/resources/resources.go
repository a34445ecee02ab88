// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (expanse://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/scene"
)

// Resource URIs.
const (
	SceneURI   = "expanse://scene"
	ProjectURI = "expanse://project"
)

// Handler manages the scene and project resources.
type Handler struct {
	session *project.Session
	store   *docstore.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(session *project.Session, store *docstore.Store) *Handler {
	return &Handler{session: session, store: store}
}

// SceneResource returns the MCP resource definition for the scene document.
func (h *Handler) SceneResource() mcp.Resource {
	return mcp.NewResource(
		SceneURI,
		"Scene document",
		mcp.WithResourceDescription("The current .expanse.json scene of the active project"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleScene returns the scene document as stored on disk (after healing).
func (h *Handler) HandleScene(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	path, err := scene.Locate(h.session.Root())
	if errors.Is(err, scene.ErrNoScene) {
		return errorResource(req.Params.URI, "no scene document in "+h.session.Root()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("locating scene: %w", err)
	}
	d, err := h.store.Read(ctx, path)
	if err != nil {
		var invalid *docstore.InvalidJSONError
		if errors.As(err, &invalid) {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		return nil, err
	}
	return jsonResource(req.Params.URI, d.Raw), nil
}

// ProjectResource returns the MCP resource definition for project info.
func (h *Handler) ProjectResource() mcp.Resource {
	return mcp.NewResource(
		ProjectURI,
		"Project info",
		mcp.WithResourceDescription("Active project root, which marker files it has and where its scene lives"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProject returns the project root and marker info as JSON.
func (h *Handler) HandleProject(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root := h.session.Root()
	info := map[string]any{
		"root":    root,
		"likely":  project.IsLikelyProject(root),
		"markers": markers(root),
	}
	if path, err := scene.Locate(root); err == nil {
		info["scene"] = project.Rel(root, path)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling project info: %w", err)
	}
	return jsonResource(req.Params.URI, data), nil
}
