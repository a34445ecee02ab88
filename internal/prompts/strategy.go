// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands). Unlike
// tools, which the AI calls, prompts are initiated by the user.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// AssetStrategy is the asset sourcing guidance shared by the asset-strategy
// prompt and the prompts_asset_strategy tool.
const AssetStrategy = `When building a web-based XR app (8th Wall-style):

1. Inspect project structure via project_get_info and review relevant files.
2. Prefer existing libraries and CDNs over large local bundles when possible.
3. Asset source priority:
   - Generic props/materials/HDRIs: Use PolyHaven. Download into project/assets/ with assets_download_url.
   - Low-poly models: search_ar_assets with sources ["poly-pizza"].
   - Already in the project: search_ar_assets with sources ["local"].
4. Keep models lightweight (optimize meshes and textures), and consider DRACO/meshopt when applicable in runtime.
5. Organize assets under project/assets/{models,textures,hdris} and reference with relative paths.
6. After importing assets, wire them in code (e.g., load GLB via three.js/AFRAME) and validate performance on mobile.
7. Commit small, test iteratively.
`

// AssetStrategyPrompt handles the asset-strategy MCP prompt.
type AssetStrategyPrompt struct{}

// NewAssetStrategyPrompt creates an AssetStrategyPrompt.
func NewAssetStrategyPrompt() *AssetStrategyPrompt {
	return &AssetStrategyPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *AssetStrategyPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("asset-strategy",
		mcp.WithPromptDescription(
			"Guidance for choosing and importing models, textures and HDRIs "+
				"for a web XR project.",
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the scene needs, e.g. 'a forest clearing with a campfire'"),
		),
	)
}

// Handle processes the asset-strategy prompt request.
func (p *AssetStrategyPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := AssetStrategy
	if goal := req.Params.Arguments["goal"]; goal != "" {
		text += "\nGoal: " + goal + "\nSuggest concrete searches for it, then run them.\n"
	}
	return &mcp.GetPromptResult{
		Description: "Asset strategy",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
