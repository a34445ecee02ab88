package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/devserver"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
)

// DevServerStartTool handles devserver_start.
type DevServerStartTool struct {
	session     *project.Session
	manager     *devserver.Manager
	defaultPort int
}

// NewDevServerStartTool creates a DevServerStartTool. defaultPort 0 means
// devserver.DefaultPort.
func NewDevServerStartTool(session *project.Session, manager *devserver.Manager, defaultPort int) *DevServerStartTool {
	if defaultPort == 0 {
		defaultPort = devserver.DefaultPort
	}
	return &DevServerStartTool{session: session, manager: manager, defaultPort: defaultPort}
}

// Definition returns the MCP tool definition for registration.
func (t *DevServerStartTool) Definition() mcp.Tool {
	return mcp.NewTool("devserver_start",
		mcp.WithDescription(
			"Start a static file server for the project root. "+
				"When a server is already running its address is returned unchanged.",
		),
		mcp.WithNumber("port", mcp.DefaultNumber(float64(t.defaultPort)), mcp.Description("Port to listen on")),
		mcp.WithBoolean("liveReload", mcp.DefaultBool(false), mcp.Description("Reload open pages when project files change")),
	)
}

// Handle processes the devserver_start tool call.
func (t *DevServerStartTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, started, err := t.manager.Start(t.session.Root(), req.GetInt("port", t.defaultPort), req.GetBool("liveReload", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Could not start dev server: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"url":            info.URL,
		"port":           info.Port,
		"root":           info.Root,
		"running":        info.Running,
		"liveReload":     info.LiveReload,
		"alreadyRunning": !started,
	})
}

// DevServerStopTool handles devserver_stop.
type DevServerStopTool struct {
	manager *devserver.Manager
}

// NewDevServerStopTool creates a DevServerStopTool.
func NewDevServerStopTool(manager *devserver.Manager) *DevServerStopTool {
	return &DevServerStopTool{manager: manager}
}

// Definition returns the MCP tool definition for registration.
func (t *DevServerStopTool) Definition() mcp.Tool {
	return mcp.NewTool("devserver_stop",
		mcp.WithDescription("Stop the dev server if it is running."),
	)
}

// Handle processes the devserver_stop tool call.
func (t *DevServerStopTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, stopped, err := t.manager.Stop(ctx)
	if err != nil {
		return nil, err
	}
	if !stopped {
		return mcp.NewToolResultText("Server not running"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stopped server on port %d", info.Port)), nil
}
