package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/catalog"
	"github.com/mcp-8thwall/mcp-8thwall/internal/config"
	"github.com/mcp-8thwall/mcp-8thwall/internal/devserver"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docs"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/eighthwall"
	"github.com/mcp-8thwall/mcp-8thwall/internal/history"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/registry"
	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
)

// Deps are the collaborators the tools share. History may be nil.
type Deps struct {
	Session       *project.Session
	Store         *docstore.Store
	History       *history.Journal
	Renderer      *templates.Renderer
	PolyHaven     *catalog.PolyHaven
	Searcher      *catalog.Searcher
	DevServer     *devserver.Manager
	DevServerPort int
	Docs          *docs.Client
	Apps          *eighthwall.Client
}

type handler interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

func bind(hs ...handler) []registry.Tool {
	out := make([]registry.Tool, len(hs))
	for i, h := range hs {
		out[i] = registry.Tool{Definition: h.Definition(), Handler: h.Handle}
	}
	return out
}

// All returns the tools registered in mode, health_ping first.
//
//	local: everything except app_*
//	docs:  docs_*
//	api:   app_*
func All(d Deps, mode config.Mode) []registry.Tool {
	out := bind(NewHealthPingTool())
	switch mode {
	case config.ModeDocs:
		return append(out, docsTools(d)...)
	case config.ModeAPI:
		return append(out, bind(NewAppListTool(d.Apps), NewAppGetTool(d.Apps))...)
	}

	out = append(out, bind(
		// Project
		NewGetRootTool(d.Session),
		NewSetRootTool(d.Session),
		NewListProjectsTool(d.Session),
		NewSetProjectTool(d.Session),
		NewInfoTool(d.Session),
		NewListFilesTool(d.Session),
		NewReadFileTool(d.Session),
		NewWriteFileTool(d.Session),
		NewDeleteFileTool(d.Session),
		NewMoveFileTool(d.Session),
		NewScaffoldTool(d.Session),
		NewExportZipTool(d.Session),

		// Scene document
		NewGuessSceneTool(d.Session),
		NewGetSceneTool(d.Session, d.Store),
		NewReadJSONTool(d.Session, d.Store),
		NewWriteJSONTool(d.Session, d.Store),
		NewPatchJSONTool(d.Session, d.Store),
		NewFindArraysTool(d.Session, d.Store),
		NewInsertJSONTool(d.Session, d.Store),
		NewListObjectsTool(d.Session, d.Store),
		NewAddShapeTool(d.Session, d.Store),
		NewAddModelTool(d.Session, d.Store),
		NewAddLightTool(d.Session, d.Store),
		NewUpdateObjectTool(d.Session, d.Store),
		NewRemoveObjectTool(d.Session, d.Store),
		NewRepairSceneTool(d.Session, d.Store),
		NewSceneHistoryTool(d.Session, d.History),
		NewSceneRestoreTool(d.Session, d.Store, d.History),

		// Components and scripts
		NewAddComponentTool(d.Session, d.Store),
		NewAddScriptTool(d.Session, d.Store),
		NewListComponentsTool(d.Session),
		NewRemoveComponentTool(d.Session, d.Store),
		NewAddThreeJSScriptTool(d.Session, d.Store, d.Renderer),

		// Web scene
		NewDetectEngineTool(d.Session),
		NewAddGLTFModelTool(d.Session),
		NewSetBackgroundTool(d.Session),
		NewAddPrimitiveTool(d.Session),
		NewAddWebLightTool(d.Session),
		NewSetEnvironmentTool(d.Session),
		NewAddAnimationTool(d.Session),
		NewAddTexturedPlaneTool(d.Session),
		NewAddOrbitControlsTool(d.Session),
		NewAddGridTool(d.Session),
		NewAddFloorTool(d.Session),

		// Assets
		NewAssetsStatusTool(d.PolyHaven),
		NewSearchPolyHavenTool(d.PolyHaven),
		NewPolyHavenCategoriesTool(d.PolyHaven),
		NewPolyHavenFilesTool(d.PolyHaven),
		NewDownloadTool(d.Session),
		NewUnzipTool(d.Session),
		NewSearchAssetsTool(d.Session, d.Searcher),
		NewAssetInfoTool(d.PolyHaven),

		// Dev server
		NewDevServerStartTool(d.Session, d.DevServer, d.DevServerPort),
		NewDevServerStopTool(d.DevServer),

		// Templates and code generation
		NewListTemplatesTool(),
		NewTemplateInfoTool(),
		NewApplyTemplateTool(d.Session, d.Store),
		NewListCodeTemplatesTool(),
		NewGenerateTool(d.Renderer),
		NewValidateTool(),
		NewCreateExperienceTool(),
		NewAnalyzeTool(),
		NewAssetStrategyTool(),
	)...)
	return append(out, docsTools(d)...)
}

func docsTools(d Deps) []registry.Tool {
	return bind(NewDocsGetPageTool(d.Docs), NewDocsSearchTool(d.Docs))
}

// --- health_ping ---

// HealthPingTool handles health_ping.
type HealthPingTool struct{}

// NewHealthPingTool creates a HealthPingTool.
func NewHealthPingTool() *HealthPingTool {
	return &HealthPingTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *HealthPingTool) Definition() mcp.Tool {
	return mcp.NewTool("health_ping",
		mcp.WithDescription("Echo a message with the server time."),
		mcp.WithString("message", mcp.DefaultString("pong"), mcp.Description("Text to echo")),
	)
}

// Handle processes the health_ping tool call.
func (t *HealthPingTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(fmt.Sprintf("[%s] %s", timeNow().UTC().Format(time.RFC3339), req.GetString("message", "pong"))), nil
}
