package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/scene"
)

// SceneStatusPrompt handles the scene-status MCP prompt.
// It embeds a summary of the current scene and asks the AI to present it.
type SceneStatusPrompt struct {
	session *project.Session
	store   *docstore.Store
}

// NewSceneStatusPrompt creates a SceneStatusPrompt.
func NewSceneStatusPrompt(session *project.Session, store *docstore.Store) *SceneStatusPrompt {
	return &SceneStatusPrompt{session: session, store: store}
}

// Definition returns the MCP prompt definition for registration.
func (p *SceneStatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("scene-status",
		mcp.WithPromptDescription(
			"Summarize the current scene: where it lives, its entry space, "+
				"and every object with its kind and position.",
		),
	)
}

// Handle processes the scene-status prompt request.
func (p *SceneStatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	summary, err := p.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Description: "Scene status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					summary + "\n" +
						"Then:\n" +
						"1. Present the scene in a short, readable overview\n" +
						"2. Point out anything odd (objects at the origin, missing names, orphaned parents)\n" +
						"3. Suggest what to add next with the desktop_* tools",
				),
			},
		},
	}, nil
}

// Summary renders the scene overview text. A project without a scene
// yields a hint instead of an error.
func (p *SceneStatusPrompt) Summary(ctx context.Context) (string, error) {
	root := p.session.Root()
	path, err := scene.Locate(root)
	if errors.Is(err, scene.ErrNoScene) {
		return fmt.Sprintf("Project root: %s\nNo scene document found yet. desktop_add_shape creates one.\n", root), nil
	}
	if err != nil {
		return "", err
	}
	d, err := p.store.Read(ctx, path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project root: %s\n", root)
	fmt.Fprintf(&b, "Scene: %s (version %s)\n", project.Rel(root, path), d.Version)
	if id := scene.EntrySpaceID(d.Data); id != "" {
		fmt.Fprintf(&b, "Entry space: %s\n", id)
	}
	objs := scene.ListObjects(d.Data)
	fmt.Fprintf(&b, "Objects: %d\n", len(objs))
	for _, o := range objs {
		name := o.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(&b, "- %s [%s] %s at %v", o.ID, o.Kind, name, o.Position)
		if o.ParentID != "" {
			fmt.Fprintf(&b, " parent=%s", o.ParentID)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
