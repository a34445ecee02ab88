package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/eighthwall"
)

// AppListTool handles app_list.
type AppListTool struct {
	client *eighthwall.Client
}

// NewAppListTool creates an AppListTool.
func NewAppListTool(client *eighthwall.Client) *AppListTool {
	return &AppListTool{client: client}
}

// Definition returns the MCP tool definition for registration.
func (t *AppListTool) Definition() mcp.Tool {
	return mcp.NewTool("app_list",
		mcp.WithDescription("List 8th Wall apps (mock data unless an API base URL is configured)."),
	)
}

// Handle processes the app_list tool call.
func (t *AppListTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, err := t.client.ListApps(ctx)
	if err != nil {
		return mcp.NewToolResultError("Listing apps failed: " + err.Error()), nil
	}
	if apps == nil {
		apps = []eighthwall.App{}
	}
	return jsonResult(map[string]any{"mock": t.client.Mock(), "apps": apps})
}

// AppGetTool handles app_get.
type AppGetTool struct {
	client *eighthwall.Client
}

// NewAppGetTool creates an AppGetTool.
func NewAppGetTool(client *eighthwall.Client) *AppGetTool {
	return &AppGetTool{client: client}
}

// Definition returns the MCP tool definition for registration.
func (t *AppGetTool) Definition() mcp.Tool {
	return mcp.NewTool("app_get",
		mcp.WithDescription("Get a single 8th Wall app by id (mock data unless an API base URL is configured)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("App id")),
	)
}

// Handle processes the app_get tool call.
func (t *AppGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	app, err := t.client.GetApp(ctx, req.GetString("id", ""))
	var se *eighthwall.StatusError
	switch {
	case errors.Is(err, eighthwall.ErrAppNotFound):
		return mcp.NewToolResultError("App not found (mock)"), nil
	case errors.As(err, &se):
		return mcp.NewToolResultError(se.Error()), nil
	case err != nil:
		return nil, err
	}
	return jsonResult(app)
}
