package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/codegen"
	"github.com/mcp-8thwall/mcp-8thwall/internal/prompts"
	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
)

func componentNames() []string {
	var names []string
	for _, c := range templates.Components() {
		names = append(names, c.Name)
	}
	return names
}

// --- list_code_templates ---

// ListCodeTemplatesTool handles list_code_templates.
type ListCodeTemplatesTool struct{}

// NewListCodeTemplatesTool creates a ListCodeTemplatesTool.
func NewListCodeTemplatesTool() *ListCodeTemplatesTool {
	return &ListCodeTemplatesTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *ListCodeTemplatesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_code_templates",
		mcp.WithDescription("List the pre-built A-Frame component templates."),
	)
}

// Handle processes the list_code_templates tool call.
func (t *ListCodeTemplatesTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var parts []string
	for _, c := range templates.Components() {
		parts = append(parts, fmt.Sprintf("📦 %s\n   %s\n   Usage: generate_custom_javascript with useTemplate: %q", c.Name, c.Description, c.Name))
	}
	return mcp.NewToolResultText("Available code templates:\n\n" + strings.Join(parts, "\n\n")), nil
}

// --- generate_custom_javascript ---

// GenerateTool handles generate_custom_javascript.
type GenerateTool struct {
	renderer *templates.Renderer
}

// NewGenerateTool creates a GenerateTool.
func NewGenerateTool(renderer *templates.Renderer) *GenerateTool {
	return &GenerateTool{renderer: renderer}
}

// Definition returns the MCP tool definition for registration.
func (t *GenerateTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_custom_javascript",
		mcp.WithDescription(
			"Web projects only: generate an A-Frame component from a description or a bundled template. "+
				"For 8th Wall Desktop (.expanse.json) use desktop_add_threejs_script instead.",
		),
		mcp.WithString("description", mcp.Required(), mcp.Description("Natural language description of the behavior")),
		mcp.WithString("type", mcp.Enum("component", "script", "utility"), mcp.DefaultString("component"), mcp.Description("Kind of code")),
		mcp.WithString("componentName", mcp.Description("Component name for generated skeletons")),
		mcp.WithBoolean("validate", mcp.DefaultBool(true), mcp.Description("Validate the generated code")),
		mcp.WithString("useTemplate", mcp.Enum(componentNames()...), mcp.Description("Bundled template to use as is")),
	)
}

// Handle processes the generate_custom_javascript tool call.
func (t *GenerateTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tmpl := req.GetString("useTemplate", "")
	if _, err := templates.ComponentSource(tmpl); tmpl != "" && err != nil {
		tmpl = ""
	}
	g, err := codegen.Generate(t.renderer, codegen.Request{
		Description:   req.GetString("description", ""),
		ComponentName: req.GetString("componentName", ""),
		UseTemplate:   tmpl,
	})
	if err != nil {
		return nil, err
	}
	if tmpl != "" {
		return mcp.NewToolResultText(fmt.Sprintf(
			"✅ Using pre-built template: %s\n\n```javascript\n%s\n```\n\n💡 You can now use desktop_add_custom_component to add this to your project.",
			tmpl, g.Code)), nil
	}
	if req.GetBool("validate", true) {
		if v := codegen.ValidateJavaScript(g.Code); !v.Valid {
			return mcp.NewToolResultText(fmt.Sprintf(
				"⚠️  Generated code has validation warnings:\n%s\n\nGenerated code:\n```javascript\n%s\n```\n\n💡 Use validate: false to skip validation if you want to use this code anyway.",
				strings.Join(v.Errors, "\n"), g.Code)), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"✅ Generated %s:\n\n```javascript\n%s\n```\n\n💡 To add this to your project:\n   Use desktop_add_custom_component with the generated code\n   Or use desktop_add_custom_script for non-component code",
		req.GetString("type", "component"), g.Code)), nil
}

// --- validate_javascript ---

// ValidateTool handles validate_javascript.
type ValidateTool struct{}

// NewValidateTool creates a ValidateTool.
func NewValidateTool() *ValidateTool {
	return &ValidateTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("validate_javascript",
		mcp.WithDescription("Check JavaScript for unbalanced brackets, unsafe calls and unknown 8th Wall APIs."),
		mcp.WithString("code", mcp.Required(), mcp.Description("JavaScript source")),
	)
}

// Handle processes the validate_javascript tool call.
func (t *ValidateTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v := codegen.ValidateJavaScript(req.GetString("code", ""))
	if !v.Valid {
		return mcp.NewToolResultError("❌ Code validation failed:\n\n" + strings.Join(v.Errors, "\n")), nil
	}
	return mcp.NewToolResultText("✅ Code validation passed! No errors detected."), nil
}

// --- create_ar_experience / analyze_ar_description ---

// CreateExperienceTool handles create_ar_experience.
type CreateExperienceTool struct{}

// NewCreateExperienceTool creates a CreateExperienceTool.
func NewCreateExperienceTool() *CreateExperienceTool {
	return &CreateExperienceTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateExperienceTool) Definition() mcp.Tool {
	return mcp.NewTool("create_ar_experience",
		mcp.WithDescription(
			"Plan a complete AR experience from a natural language description: "+
				"classifies it, lists the build steps and recommends the tools to run.",
		),
		mcp.WithString("description", mcp.Required(), mcp.Description("e.g. 'Create a spinning King Kong model' or 'Light painting experience'")),
		mcp.WithBoolean("autoExecute", mcp.DefaultBool(true), mcp.Description("false returns the plan for review only")),
	)
}

// Handle processes the create_ar_experience tool call.
func (t *CreateExperienceTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := codegen.Analyze(req.GetString("description", ""))
	report := codegen.Report(a, codegen.PlanFor(a), req.GetBool("autoExecute", true))
	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(report + "\n\n📊 Analysis Summary:\n" + string(raw)), nil
}

// AnalyzeTool handles analyze_ar_description.
type AnalyzeTool struct{}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool() *AnalyzeTool {
	return &AnalyzeTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_ar_description",
		mcp.WithDescription("Classify an AR experience description and extract entities and modifiers."),
		mcp.WithString("description", mcp.Required(), mcp.Description("Natural language description")),
	)
}

// Handle processes the analyze_ar_description tool call.
func (t *AnalyzeTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(codegen.Analyze(req.GetString("description", "")))
}

// --- prompts_asset_strategy ---

// AssetStrategyTool handles prompts_asset_strategy.
type AssetStrategyTool struct{}

// NewAssetStrategyTool creates an AssetStrategyTool.
func NewAssetStrategyTool() *AssetStrategyTool {
	return &AssetStrategyTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *AssetStrategyTool) Definition() mcp.Tool {
	return mcp.NewTool("prompts_asset_strategy",
		mcp.WithDescription("Guidance for choosing and importing assets, textures and HDRIs for web XR apps."),
	)
}

// Handle processes the prompts_asset_strategy tool call.
func (t *AssetStrategyTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(prompts.AssetStrategy), nil
}
