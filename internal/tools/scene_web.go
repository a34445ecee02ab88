package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/webscene"
)

const (
	indexHTML = "index.html"
	mainJS    = "main.js"
)

// webPage reads and rewrites the scaffolded entry points. Every scene_*
// tool embeds one.
type webPage struct {
	session *project.Session
}

func (w webPage) read(rel string) (string, error) {
	full, err := w.session.ResolveFile(rel)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", userErrorf("%s not found in %s; run project_scaffold first", rel, w.session.Root())
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(b), nil
}

func (w webPage) write(rel, content string) error {
	full, err := w.session.ResolveFile(rel)
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

// engine detects the engine from index.html and returns the page too.
func (w webPage) engine() (webscene.Engine, string, error) {
	html, err := w.read(indexHTML)
	if err != nil {
		return webscene.EngineUnknown, "", err
	}
	return webscene.DetectEngine(html), html, nil
}

// editMain applies fn to main.js.
func (w webPage) editMain(fn func(js string) string) error {
	js, err := w.read(mainJS)
	if err != nil {
		return err
	}
	return w.write(mainJS, fn(js))
}

// addToPage injects markup into an A-Frame page or snippet (after the
// scene constructor, with an optional import) into a Three.js main.js.
func (w webPage) addToPage(markup, snippet, importLine string) (webscene.Engine, error) {
	engine, html, err := w.engine()
	if err != nil {
		return engine, err
	}
	switch engine {
	case webscene.EngineAFrame:
		return engine, w.write(indexHTML, webscene.InjectEntity(html, markup))
	case webscene.EngineThree:
		return engine, w.editMain(func(js string) string {
			if importLine != "" {
				js, _ = webscene.AddImport(js, importLine)
			}
			js, _ = webscene.InsertAfterScene(js, snippet)
			return js
		})
	}
	return engine, nil
}

func unknownEngine(action string) *mcp.CallToolResult {
	return mcp.NewToolResultText("Unknown engine; cannot " + action + ". Make sure index.html uses the A-Frame or Three.js template.")
}

// --- scene_detect_engine ---

// DetectEngineTool handles scene_detect_engine.
type DetectEngineTool struct{ webPage }

// NewDetectEngineTool creates a DetectEngineTool.
func NewDetectEngineTool(session *project.Session) *DetectEngineTool {
	return &DetectEngineTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *DetectEngineTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_detect_engine",
		mcp.WithDescription("Detect whether the project's index.html uses A-Frame or Three.js."),
	)
}

// Handle processes the scene_detect_engine tool call.
func (t *DetectEngineTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	engine, _, err := t.engine()
	if err != nil {
		return failure(err)
	}
	return jsonResult(map[string]any{"engine": engine})
}

// --- scene_add_gltf_model ---

// AddGLTFModelTool handles scene_add_gltf_model.
type AddGLTFModelTool struct{ webPage }

// NewAddGLTFModelTool creates an AddGLTFModelTool.
func NewAddGLTFModelTool(session *project.Session) *AddGLTFModelTool {
	return &AddGLTFModelTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddGLTFModelTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_gltf_model",
		mcp.WithDescription("Add a glTF/GLB model to the web scene (A-Frame entity or Three.js GLTFLoader call)."),
		mcp.WithString("src", mcp.Required(), mcp.Description("Model URL or project path")),
		mcp.WithArray("position", mcp.Description("[x, y, z], default [0, 1, -2]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("rotation", mcp.Description("[x, y, z]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("scale", mcp.Description("[x, y, z]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
	)
}

// Handle processes the scene_add_gltf_model tool call.
func (t *AddGLTFModelTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := req.GetString("src", "")
	if src == "" {
		return mcp.NewToolResultError("'src' is required"), nil
	}
	tr := webscene.Transform{
		Position: webscene.Vec(floatsArg(req, "position"), webscene.DefaultPosition),
		Rotation: webscene.Vec(floatsArg(req, "rotation"), webscene.DefaultRotation),
		Scale:    webscene.Vec(floatsArg(req, "scale"), webscene.DefaultScale),
	}
	engine, err := t.addToPage(webscene.ModelEntity(src, tr), webscene.ModelSnippet(src, tr), webscene.ImportGLTFLoader)
	if err != nil {
		return failure(err)
	}
	switch engine {
	case webscene.EngineAFrame:
		return mcp.NewToolResultText("Added A-Frame model entity: " + src), nil
	case webscene.EngineThree:
		return mcp.NewToolResultText("Added Three.js model loader: " + src), nil
	}
	return unknownEngine("add a model"), nil
}

// --- scene_set_background_color ---

// SetBackgroundTool handles scene_set_background_color.
type SetBackgroundTool struct{ webPage }

// NewSetBackgroundTool creates a SetBackgroundTool.
func NewSetBackgroundTool(session *project.Session) *SetBackgroundTool {
	return &SetBackgroundTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *SetBackgroundTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_set_background_color",
		mcp.WithDescription("Set the web scene's background color."),
		mcp.WithString("color", mcp.Required(), mcp.Description("CSS color, e.g. #202030")),
	)
}

// Handle processes the scene_set_background_color tool call.
func (t *SetBackgroundTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	color := req.GetString("color", "")
	if color == "" {
		return mcp.NewToolResultError("'color' is required"), nil
	}
	engine, html, err := t.engine()
	if err != nil {
		return failure(err)
	}
	switch engine {
	case webscene.EngineAFrame:
		if err := t.write(indexHTML, webscene.SetAFrameBackground(html, color)); err != nil {
			return failure(err)
		}
		return mcp.NewToolResultText("A-Frame background set to " + color), nil
	case webscene.EngineThree:
		if err := t.editMain(func(js string) string { return webscene.SetThreeBackground(js, color) }); err != nil {
			return failure(err)
		}
		return mcp.NewToolResultText("Three.js background set to " + color), nil
	}
	return unknownEngine("set background"), nil
}

// --- scene_add_primitive ---

// AddPrimitiveTool handles scene_add_primitive.
type AddPrimitiveTool struct{ webPage }

// NewAddPrimitiveTool creates an AddPrimitiveTool.
func NewAddPrimitiveTool(session *project.Session) *AddPrimitiveTool {
	return &AddPrimitiveTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddPrimitiveTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_primitive",
		mcp.WithDescription("Add a primitive mesh to the web scene."),
		mcp.WithString("type", mcp.Required(), mcp.Enum(webscene.Primitives...), mcp.Description("Primitive shape")),
		mcp.WithString("color", mcp.Description("CSS color"), mcp.DefaultString("#FFD166")),
		mcp.WithArray("size", mcp.Description("[width, height, depth]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("position", mcp.Description("[x, y, z], default [0, 1, -2]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("rotation", mcp.Description("[x, y, z]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("scale", mcp.Description("[x, y, z]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
	)
}

// Handle processes the scene_add_primitive tool call.
func (t *AddPrimitiveTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := webscene.Primitive{
		Type:  req.GetString("type", ""),
		Color: req.GetString("color", "#FFD166"),
		Size:  webscene.Vec(floatsArg(req, "size"), webscene.DefaultSize),
		Transform: webscene.Transform{
			Position: webscene.Vec(floatsArg(req, "position"), webscene.DefaultPosition),
			Rotation: webscene.Vec(floatsArg(req, "rotation"), webscene.DefaultRotation),
			Scale:    webscene.Vec(floatsArg(req, "scale"), webscene.DefaultScale),
		},
	}
	markup, snippet := webscene.PrimitiveEntity(p), webscene.PrimitiveSnippet(p)
	if markup == "" || snippet == "" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown primitive %q", p.Type)), nil
	}
	engine, err := t.addToPage(markup, snippet, "")
	if err != nil {
		return failure(err)
	}
	switch engine {
	case webscene.EngineAFrame:
		return mcp.NewToolResultText("Added A-Frame " + p.Type), nil
	case webscene.EngineThree:
		return mcp.NewToolResultText("Added Three.js " + p.Type), nil
	}
	return unknownEngine("add primitive"), nil
}

// --- scene_add_light ---

// AddWebLightTool handles scene_add_light.
type AddWebLightTool struct{ webPage }

// NewAddWebLightTool creates an AddWebLightTool.
func NewAddWebLightTool(session *project.Session) *AddWebLightTool {
	return &AddWebLightTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddWebLightTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_light",
		mcp.WithDescription("Add a light to the web scene."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum(webscene.LightKinds...), mcp.Description("Light type")),
		mcp.WithString("color", mcp.Description("CSS color"), mcp.DefaultString("#ffffff")),
		mcp.WithNumber("intensity", mcp.Description("Light intensity"), mcp.DefaultNumber(1)),
		mcp.WithArray("position", mcp.Description("[x, y, z], default [2, 3, 2]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
	)
}

// Handle processes the scene_add_light tool call.
func (t *AddWebLightTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("kind", "")
	color := req.GetString("color", "#ffffff")
	intensity := req.GetFloat("intensity", 1)
	pos := webscene.Vec(floatsArg(req, "position"), webscene.DefaultLightPosition)
	snippet := webscene.LightSnippet(kind, color, intensity, pos)
	if snippet == "" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown light kind %q", kind)), nil
	}
	engine, err := t.addToPage(webscene.LightEntity(kind, color, intensity, pos), snippet, "")
	if err != nil {
		return failure(err)
	}
	switch engine {
	case webscene.EngineAFrame:
		return mcp.NewToolResultText("Added A-Frame " + kind + " light"), nil
	case webscene.EngineThree:
		return mcp.NewToolResultText("Added Three.js " + kind + " light"), nil
	}
	return unknownEngine("add light"), nil
}

// --- scene_set_environment_hdr ---

// SetEnvironmentTool handles scene_set_environment_hdr.
type SetEnvironmentTool struct{ webPage }

// NewSetEnvironmentTool creates a SetEnvironmentTool.
func NewSetEnvironmentTool(session *project.Session) *SetEnvironmentTool {
	return &SetEnvironmentTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *SetEnvironmentTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_set_environment_hdr",
		mcp.WithDescription("Light the scene from an HDR/EXR environment map (A-Frame sky or Three.js RGBELoader)."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HDR or image URL")),
		mcp.WithBoolean("applyBackground", mcp.Description("Also use the map as background (Three.js)"), mcp.DefaultBool(true)),
	)
}

// Handle processes the scene_set_environment_hdr tool call.
func (t *SetEnvironmentTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := req.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("'url' is required"), nil
	}
	snippet := webscene.HDRSnippet(url, req.GetBool("applyBackground", true))
	engine, err := t.addToPage(webscene.SkyEntity(url), snippet, webscene.ImportRGBELoader)
	if err != nil {
		return failure(err)
	}
	switch engine {
	case webscene.EngineAFrame:
		return mcp.NewToolResultText("A-Frame sky set to " + url), nil
	case webscene.EngineThree:
		return mcp.NewToolResultText("Three.js environment set from " + url), nil
	}
	return unknownEngine("set environment"), nil
}

// --- scene_add_animation ---

// AddAnimationTool handles scene_add_animation.
type AddAnimationTool struct{ webPage }

// NewAddAnimationTool creates an AddAnimationTool.
func NewAddAnimationTool(session *project.Session) *AddAnimationTool {
	return &AddAnimationTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddAnimationTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_animation",
		mcp.WithDescription("Add a spin animation: an A-Frame animation entity or a per-frame mesh rotation in the Three.js loop."),
		mcp.WithString("type", mcp.Enum("spin"), mcp.DefaultString("spin"), mcp.Description("Animation kind")),
		mcp.WithNumber("speed", mcp.Description("Radians per frame"), mcp.DefaultNumber(0.01)),
	)
}

// Handle processes the scene_add_animation tool call.
func (t *AddAnimationTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speed := req.GetFloat("speed", 0.01)
	engine, html, err := t.engine()
	if err != nil {
		return failure(err)
	}
	switch engine {
	case webscene.EngineAFrame:
		if err := t.write(indexHTML, webscene.InjectEntity(html, webscene.SpinEntity(speed))); err != nil {
			return failure(err)
		}
		return mcp.NewToolResultText("A-Frame spin animation added"), nil
	case webscene.EngineThree:
		err := t.editMain(func(js string) string {
			if out, ok := webscene.InjectIntoLoop(js, webscene.SpinStatement(speed)); ok {
				return out
			}
			return js + webscene.SpinLoop(speed)
		})
		if err != nil {
			return failure(err)
		}
		return mcp.NewToolResultText("Three.js spin animation added"), nil
	}
	return unknownEngine("add animation"), nil
}

// --- scene_add_textured_plane ---

// AddTexturedPlaneTool handles scene_add_textured_plane.
type AddTexturedPlaneTool struct{ webPage }

// NewAddTexturedPlaneTool creates an AddTexturedPlaneTool.
func NewAddTexturedPlaneTool(session *project.Session) *AddTexturedPlaneTool {
	return &AddTexturedPlaneTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddTexturedPlaneTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_textured_plane",
		mcp.WithDescription("Add an image plane, e.g. a poster or backdrop."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or project path")),
		mcp.WithNumber("width", mcp.DefaultNumber(2), mcp.Description("Plane width")),
		mcp.WithNumber("height", mcp.DefaultNumber(2), mcp.Description("Plane height")),
		mcp.WithArray("position", mcp.Description("[x, y, z], default [0, 1, -2]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("rotation", mcp.Description("[x, y, z]"), vectorItems, mcp.MinItems(3), mcp.MaxItems(3)),
	)
}

// Handle processes the scene_add_textured_plane tool call.
func (t *AddTexturedPlaneTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := req.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("'url' is required"), nil
	}
	w, h := req.GetFloat("width", 2), req.GetFloat("height", 2)
	pos := webscene.Vec(floatsArg(req, "position"), webscene.DefaultPosition)
	rot := webscene.Vec(floatsArg(req, "rotation"), webscene.DefaultRotation)
	engine, err := t.addToPage(
		webscene.TexturedPlaneEntity(url, w, h, pos, rot),
		webscene.TexturedPlaneSnippet(url, w, h, pos, rot),
		webscene.ImportTextureLoader)
	if err != nil {
		return failure(err)
	}
	switch engine {
	case webscene.EngineAFrame:
		return mcp.NewToolResultText("A-Frame textured plane added (" + url + ")"), nil
	case webscene.EngineThree:
		return mcp.NewToolResultText("Three.js textured plane added (" + url + ")"), nil
	}
	return unknownEngine("add textured plane"), nil
}

// --- scene_add_orbit_controls / scene_add_grid_helper / scene_add_floor ---

// AddOrbitControlsTool handles scene_add_orbit_controls.
type AddOrbitControlsTool struct{ webPage }

// NewAddOrbitControlsTool creates an AddOrbitControlsTool.
func NewAddOrbitControlsTool(session *project.Session) *AddOrbitControlsTool {
	return &AddOrbitControlsTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddOrbitControlsTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_orbit_controls",
		mcp.WithDescription("Add OrbitControls to a Three.js scene and update them every frame."),
	)
}

// Handle processes the scene_add_orbit_controls tool call.
func (t *AddOrbitControlsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	engine, _, err := t.engine()
	if err != nil {
		return failure(err)
	}
	if engine != webscene.EngineThree {
		return mcp.NewToolResultText("OrbitControls only available for Three.js template."), nil
	}
	err = t.editMain(func(js string) string {
		js, _ = webscene.AddImport(js, webscene.ImportOrbitControls)
		js, _ = webscene.InsertAfterCamera(js, webscene.OrbitControlsSnippet)
		js, _ = webscene.InjectIntoLoop(js, webscene.OrbitControlsUpdate)
		return js
	})
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText("OrbitControls added"), nil
}

// AddGridTool handles scene_add_grid_helper.
type AddGridTool struct{ webPage }

// NewAddGridTool creates an AddGridTool.
func NewAddGridTool(session *project.Session) *AddGridTool {
	return &AddGridTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddGridTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_grid_helper",
		mcp.WithDescription("Add a GridHelper to a Three.js scene."),
		mcp.WithNumber("size", mcp.DefaultNumber(10), mcp.Description("Grid size")),
		mcp.WithNumber("divisions", mcp.DefaultNumber(10), mcp.Description("Grid divisions")),
	)
}

// Handle processes the scene_add_grid_helper tool call.
func (t *AddGridTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	engine, _, err := t.engine()
	if err != nil {
		return failure(err)
	}
	if engine != webscene.EngineThree {
		return mcp.NewToolResultText("GridHelper only for Three.js template."), nil
	}
	snippet := webscene.GridSnippet(req.GetFloat("size", 10), req.GetFloat("divisions", 10))
	err = t.editMain(func(js string) string {
		js, _ = webscene.InsertAfterScene(js, snippet)
		return js
	})
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText("GridHelper added"), nil
}

// AddFloorTool handles scene_add_floor.
type AddFloorTool struct{ webPage }

// NewAddFloorTool creates an AddFloorTool.
func NewAddFloorTool(session *project.Session) *AddFloorTool {
	return &AddFloorTool{webPage{session}}
}

// Definition returns the MCP tool definition for registration.
func (t *AddFloorTool) Definition() mcp.Tool {
	return mcp.NewTool("scene_add_floor",
		mcp.WithDescription("Add a flat floor plane to a Three.js scene."),
		mcp.WithNumber("size", mcp.DefaultNumber(10), mcp.Description("Floor edge length")),
		mcp.WithString("color", mcp.DefaultString("#888888"), mcp.Description("CSS color")),
	)
}

// Handle processes the scene_add_floor tool call.
func (t *AddFloorTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	engine, _, err := t.engine()
	if err != nil {
		return failure(err)
	}
	if engine != webscene.EngineThree {
		return mcp.NewToolResultText("Floor only for Three.js template."), nil
	}
	snippet := webscene.FloorSnippet(req.GetFloat("size", 10), req.GetString("color", "#888888"))
	err = t.editMain(func(js string) string {
		js, _ = webscene.InsertAfterScene(js, snippet)
		return js
	})
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText("Floor added"), nil
}
