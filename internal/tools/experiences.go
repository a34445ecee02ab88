package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
)

func templateNotFound(key string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("❌ Template %q not found. Use list_templates to see available templates.", key))
}

// --- list_templates ---

// ListTemplatesTool handles list_templates.
type ListTemplatesTool struct{}

// NewListTemplatesTool creates a ListTemplatesTool.
func NewListTemplatesTool() *ListTemplatesTool {
	return &ListTemplatesTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTemplatesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_templates",
		mcp.WithDescription("List the pre-built AR experience templates with descriptions."),
		mcp.WithString("category", mcp.Description("Filter by category (Interactive, Display, AR Tracking, AR Effects)")),
	)
}

// Handle processes the list_templates tool call.
func (t *ListTemplatesTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all, err := templates.Experiences()
	if err != nil {
		return nil, err
	}
	category := req.GetString("category", "")
	var picked []templates.Experience
	for _, e := range all {
		if category == "" || strings.EqualFold(e.Category, category) {
			picked = append(picked, e)
		}
	}
	if len(picked) == 0 {
		msg := "No templates found"
		if category != "" {
			msg += fmt.Sprintf(" in category %q", category)
		}
		return mcp.NewToolResultText(msg), nil
	}

	// Categories in first-seen order.
	var cats []string
	seen := map[string]bool{}
	for _, e := range picked {
		if !seen[e.Category] {
			seen[e.Category] = true
			cats = append(cats, e.Category)
		}
	}

	var b strings.Builder
	b.WriteString("📚 Available AR Experience Templates:\n")
	for _, cat := range cats {
		fmt.Fprintf(&b, "\n🏷️  %s:\n", cat)
		for _, e := range picked {
			if e.Category != cat {
				continue
			}
			fmt.Fprintf(&b, "\n   📦 %s\n      %s - %s\n", e.Key, e.Name, e.Description)
			if len(e.Components) > 0 {
				fmt.Fprintf(&b, "      Components: %s\n", strings.Join(e.Components, ", "))
			}
		}
	}
	b.WriteString("\n💡 Usage:\n   apply_experience_template with template: \"template-name\"\n")
	b.WriteString("\n📖 Examples:\n")
	b.WriteString("   • apply_experience_template({ template: \"light-painting\" })\n")
	b.WriteString("   • apply_experience_template({ template: \"model-showcase\", customize: { modelPath: \"assets/dragon.glb\" } })")
	return mcp.NewToolResultText(b.String()), nil
}

// --- get_template_info ---

// TemplateInfoTool handles get_template_info.
type TemplateInfoTool struct{}

// NewTemplateInfoTool creates a TemplateInfoTool.
func NewTemplateInfoTool() *TemplateInfoTool {
	return &TemplateInfoTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *TemplateInfoTool) Definition() mcp.Tool {
	return mcp.NewTool("get_template_info",
		mcp.WithDescription("Get detailed information about one AR experience template."),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template key from list_templates")),
	)
}

// Handle processes the get_template_info tool call.
func (t *TemplateInfoTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("template", "")
	e, ok, err := templates.FindExperience(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return templateNotFound(key), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 Template: %s\n📝 %s\n🏷️  Category: %s\n\n", e.Name, e.Description, e.Category)
	if len(e.Components) > 0 {
		b.WriteString("📦 Required Components:\n")
		for _, c := range e.Components {
			fmt.Fprintf(&b, "   • %s\n", c)
		}
		b.WriteString("\n")
	}
	b.WriteString("📋 Implementation Steps:\n")
	for i, s := range e.Steps {
		fmt.Fprintf(&b, "   %d. %s\n", i+1, s)
	}
	if e.Script != "" {
		b.WriteString("\n✅ Includes custom integration code\n")
	}
	raw, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, err
	}
	b.WriteString("\nTemplate JSON:\n")
	b.Write(raw)
	return mcp.NewToolResultText(b.String()), nil
}

// --- apply_experience_template ---

// ApplyTemplateTool handles apply_experience_template.
type ApplyTemplateTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewApplyTemplateTool creates an ApplyTemplateTool.
func NewApplyTemplateTool(session *project.Session, store *docstore.Store) *ApplyTemplateTool {
	return &ApplyTemplateTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ApplyTemplateTool) Definition() mcp.Tool {
	return mcp.NewTool("apply_experience_template",
		mcp.WithDescription(
			"Apply a pre-configured AR experience template: copies its components into "+
				"src/components, writes its integration script and lists the remaining steps.",
		),
		mcp.WithString("template", mcp.Required(), mcp.Enum(templates.ExperienceKeys()...), mcp.Description("Template to apply")),
		mcp.WithObject("customize",
			mcp.Description("Optional customization"),
			mcp.Properties(map[string]any{
				"modelPath": map[string]any{"type": "string"},
				"imagePath": map[string]any{"type": "string"},
				"videoPath": map[string]any{"type": "string"},
				"colors":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			}),
		),
	)
}

// Handle processes the apply_experience_template tool call.
func (t *ApplyTemplateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("template", "")
	e, ok, err := templates.FindExperience(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return templateNotFound(key), nil
	}
	var customize map[string]any
	if v, _, err := argValue(req, "customize"); err == nil {
		customize, _ = doc.ToGo(v).(map[string]any)
	}
	opt := func(name string) string {
		s, _ := customize[name].(string)
		return s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎨 Applying Template: %s\n📝 %s\n\n", e.Name, e.Description)

	if len(e.Components) > 0 {
		b.WriteString("📦 Setting up components:\n")
		for _, c := range e.Components {
			src, err := templates.ComponentSource(c)
			if err == nil {
				_, _, err = writeScript(ctx, t.session, t.store, componentsDir, jsFileName(c), src, false)
			}
			if err != nil {
				fmt.Fprintf(&b, "   ⚠️  Could not copy %s: %v\n", c, err)
				continue
			}
			fmt.Fprintf(&b, "   ✅ Copied %s\n", c)
		}
		b.WriteString("\n")
	}

	script, err := templates.IntegrationScript(e)
	if err != nil {
		return nil, err
	}
	if script != "" {
		file := e.Key + "-integration.js"
		if _, _, err := writeScript(ctx, t.session, t.store, "src", file, script, false); err != nil {
			fmt.Fprintf(&b, "⚠️  Could not create integration script: %v\n\n", err)
		} else {
			fmt.Fprintf(&b, "✅ Created integration script: src/%s\n\n", file)
		}
	}

	b.WriteString("📋 Implementation Steps:\n")
	for i, s := range e.Steps {
		fmt.Fprintf(&b, "   %d. %s\n", i+1, s)
	}
	b.WriteString("\n")

	switch e.Key {
	case "light-painting":
		b.WriteString("💡 Light Painting Setup:\n")
		b.WriteString("   • Use project_scaffold with template: \"three\"\n")
		b.WriteString("   • Add the integration script to your main.js\n")
		b.WriteString("   • Ensure scene, camera, and renderer variables are accessible\n")
		b.WriteString("   • Test on actual device for touch interactions\n")
	case "model-showcase":
		b.WriteString("💡 Model Showcase Setup:\n")
		if p := opt("modelPath"); p != "" {
			fmt.Fprintf(&b, "   • Using model: %s\n", p)
			fmt.Fprintf(&b, "   • Use: desktop_add_model with src %q\n", p)
		} else {
			b.WriteString("   • Use: search_ar_assets to find a model\n")
			b.WriteString("   • Use: desktop_add_model to add it\n")
		}
		b.WriteString("   • Use: scene_add_animation for spinning effect\n")
	case "image-target-video":
		b.WriteString("💡 Image Target Setup:\n")
		if p := opt("imagePath"); p != "" {
			fmt.Fprintf(&b, "   • Using marker: %s\n", p)
		}
		if p := opt("videoPath"); p != "" {
			fmt.Fprintf(&b, "   • Using video: %s\n", p)
		}
		b.WriteString("   • Add the image target and a video plane as its child\n")
	case "portal-experience":
		b.WriteString("💡 Portal Setup:\n")
		b.WriteString("   • Use: desktop_add_shape with shape: \"torus\" for the frame\n")
		b.WriteString("   • Use: desktop_add_shape with shape: \"plane\" for the hider\n")
		b.WriteString("   • Position content behind the hider plane\n")
	}
	if colors := stringsOf(customize["colors"]); len(colors) > 0 {
		fmt.Fprintf(&b, "   • Palette: %s\n", strings.Join(colors, ", "))
	}

	b.WriteString("\n🛠️  Next Steps:\n")
	b.WriteString("   1. Review the components and scripts created\n")
	b.WriteString("   2. Use the recommended tools listed above\n")
	b.WriteString("   3. Test in 8th Wall Desktop\n")
	b.WriteString("   4. Deploy to device for full AR experience")
	return mcp.NewToolResultText(b.String()), nil
}
