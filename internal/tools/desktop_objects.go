package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/jsonptr"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/scene"
)

// vectorItems constrains numeric array arguments.
var vectorItems = mcp.Items(map[string]any{"type": "number"})

// --- desktop_list_objects ---

// ListObjectsTool handles desktop_list_objects.
type ListObjectsTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewListObjectsTool creates a ListObjectsTool.
func NewListObjectsTool(session *project.Session, store *docstore.Store) *ListObjectsTool {
	return &ListObjectsTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ListObjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_list_objects",
		mcp.WithDescription("List the scene's objects with id, name, kind, parent and position, in scene order."),
	)
}

// Handle processes the desktop_list_objects tool call.
func (t *ListObjectsTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := scene.Locate(t.session.Root())
	if err != nil {
		return failure(err)
	}
	d, err := t.store.Read(ctx, path)
	if err != nil {
		return failure(err)
	}
	objects := scene.ListObjects(d.Data)
	if objects == nil {
		objects = []scene.Summary{}
	}
	return jsonResult(map[string]any{
		"path":         relPath(t.session, path),
		"entrySpaceId": scene.EntrySpaceID(d.Data),
		"count":        len(objects),
		"objects":      objects,
	})
}

// --- desktop_add_shape / desktop_add_model / desktop_add_light ---

// builder creates one scene object for the entry space.
type builder func(spaceID string, now time.Time) (string, *doc.Object, error)

// addObject inserts the object made by build into the scene document,
// creating the document when the project has none.
func addObject(ctx context.Context, session *project.Session, store *docstore.Store, parentID string, build builder) (*mcp.CallToolResult, error) {
	path, err := ensureScene(ctx, session, store)
	if err != nil {
		return failure(err)
	}
	var (
		id  string
		obj *doc.Object
	)
	d, err := store.Update(ctx, path, "", func(data any) (any, error) {
		objects, ok := scene.Objects(data)
		if !ok {
			return nil, userErrorf("scene document is not an object")
		}
		spaceID := scene.EntrySpaceID(data)
		if parentID != "" && !objects.Has(parentID) && !hasSpace(data, parentID) {
			return nil, userErrorf("parent %q is neither an object nor a space", parentID)
		}
		var err error
		id, obj, err = build(spaceID, timeNow())
		if err != nil {
			return nil, userErrorf("%v", err)
		}
		id = scene.UniqueID(objects, id)
		obj.Set("id", id)
		objects.Set(id, obj)
		return data, nil
	})
	if err != nil {
		return failure(err)
	}
	stored, _ := jsonptr.Get(d.Data, jsonptr.Format("objects", id))
	return jsonResult(map[string]any{
		"id":      id,
		"path":    relPath(session, path),
		"version": d.Version,
		"object":  stored,
	})
}

func hasSpace(data any, id string) bool {
	_, ok := jsonptr.Get(data, jsonptr.Format("spaces", id))
	return ok
}

// AddShapeTool handles desktop_add_shape.
type AddShapeTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewAddShapeTool creates an AddShapeTool.
func NewAddShapeTool(session *project.Session, store *docstore.Store) *AddShapeTool {
	return &AddShapeTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *AddShapeTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_add_shape",
		mcp.WithDescription("Add a primitive shape (box, sphere, cylinder, ...) to the scene document. Creates the scene document when the project has none."),
		mcp.WithString("shape", mcp.Description("Primitive to add"), mcp.Enum(scene.Shapes...), mcp.DefaultString("box")),
		mcp.WithString("name", mcp.Description("Display name; also used to derive the object id")),
		mcp.WithArray("position", mcp.Description("[x, y, z]"), vectorItems, mcp.MaxItems(3)),
		mcp.WithArray("rotation", mcp.Description("Quaternion [x, y, z, w]"), vectorItems, mcp.MaxItems(4)),
		mcp.WithArray("scale", mcp.Description("[x, y, z]"), vectorItems, mcp.MaxItems(3)),
		mcp.WithString("color", mcp.Description("Material color as #RRGGBB"), mcp.DefaultString("#FFFFFF")),
		mcp.WithString("parentId", mcp.Description("Parent object or space id; defaults to the entry space")),
	)
}

// Handle processes the desktop_add_shape tool call.
func (t *AddShapeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec := scene.ShapeSpec{
		Shape:    req.GetString("shape", "box"),
		Name:     req.GetString("name", ""),
		Position: floatsArg(req, "position"),
		Rotation: floatsArg(req, "rotation"),
		Scale:    floatsArg(req, "scale"),
		Color:    req.GetString("color", "#FFFFFF"),
		ParentID: req.GetString("parentId", ""),
	}
	return addObject(ctx, t.session, t.store, spec.ParentID, func(space string, now time.Time) (string, *doc.Object, error) {
		return scene.NewShape(spec, space, now)
	})
}

// AddModelTool handles desktop_add_model.
type AddModelTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewAddModelTool creates an AddModelTool.
func NewAddModelTool(session *project.Session, store *docstore.Store) *AddModelTool {
	return &AddModelTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *AddModelTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_add_model",
		mcp.WithDescription("Add a glTF/GLB model object to the scene document."),
		mcp.WithString("src", mcp.Required(), mcp.Description("Model path relative to the project, e.g. assets/models/robot.glb")),
		mcp.WithString("name", mcp.Description("Display name")),
		mcp.WithArray("position", mcp.Description("[x, y, z]"), vectorItems, mcp.MaxItems(3)),
		mcp.WithArray("rotation", mcp.Description("Quaternion [x, y, z, w]"), vectorItems, mcp.MaxItems(4)),
		mcp.WithArray("scale", mcp.Description("[x, y, z]"), vectorItems, mcp.MaxItems(3)),
		mcp.WithString("parentId", mcp.Description("Parent object or space id; defaults to the entry space")),
	)
}

// Handle processes the desktop_add_model tool call.
func (t *AddModelTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec := scene.ModelSpec{
		Src:      req.GetString("src", ""),
		Name:     req.GetString("name", ""),
		Position: floatsArg(req, "position"),
		Rotation: floatsArg(req, "rotation"),
		Scale:    floatsArg(req, "scale"),
		ParentID: req.GetString("parentId", ""),
	}
	if spec.Src == "" {
		return mcp.NewToolResultError("'src' is required"), nil
	}
	return addObject(ctx, t.session, t.store, spec.ParentID, func(space string, now time.Time) (string, *doc.Object, error) {
		return scene.NewModel(spec, space, now)
	})
}

// AddLightTool handles desktop_add_light.
type AddLightTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewAddLightTool creates an AddLightTool.
func NewAddLightTool(session *project.Session, store *docstore.Store) *AddLightTool {
	return &AddLightTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *AddLightTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_add_light",
		mcp.WithDescription("Add a light object to the scene document."),
		mcp.WithString("kind", mcp.Description("Light type"), mcp.Enum(scene.LightKinds...), mcp.DefaultString("directional")),
		mcp.WithString("name", mcp.Description("Display name")),
		mcp.WithString("color", mcp.Description("Light color as #RRGGBB"), mcp.DefaultString("#FFFFFF")),
		mcp.WithNumber("intensity", mcp.Description("Light intensity"), mcp.DefaultNumber(1)),
		mcp.WithArray("position", mcp.Description("[x, y, z]"), vectorItems, mcp.MaxItems(3)),
		mcp.WithString("parentId", mcp.Description("Parent object or space id; defaults to the entry space")),
	)
}

// Handle processes the desktop_add_light tool call.
func (t *AddLightTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec := scene.LightSpec{
		Kind:      req.GetString("kind", "directional"),
		Name:      req.GetString("name", ""),
		Color:     req.GetString("color", "#FFFFFF"),
		Position:  floatsArg(req, "position"),
		ParentID:  req.GetString("parentId", ""),
	}
	if _, ok := req.GetArguments()["intensity"]; ok {
		intensity := req.GetFloat("intensity", 1)
		spec.Intensity = &intensity
	}
	return addObject(ctx, t.session, t.store, spec.ParentID, func(space string, now time.Time) (string, *doc.Object, error) {
		return scene.NewLight(spec, space, now)
	})
}

// --- desktop_update_object / desktop_remove_object ---

// UpdateObjectTool handles desktop_update_object.
type UpdateObjectTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewUpdateObjectTool creates an UpdateObjectTool.
func NewUpdateObjectTool(session *project.Session, store *docstore.Store) *UpdateObjectTool {
	return &UpdateObjectTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateObjectTool) Definition() mcp.Tool {
	tool := mcp.NewTool("desktop_update_object",
		mcp.WithDescription("Shallow-merge fields into a scene object, e.g. {\"position\": [0, 1, -2]} or {\"material\": {...}}. The object is repaired after the merge."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Object id")),
	)
	tool.InputSchema.Properties["patch"] = documentProperty("Fields to replace, as an object or as JSON text")
	tool.InputSchema.Required = append(tool.InputSchema.Required, "patch")
	return tool
}

// Handle processes the desktop_update_object tool call.
func (t *UpdateObjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	patch, ok, err := docArg(req, "patch")
	if err != nil {
		return failure(err)
	}
	if _, isObj := doc.AsObject(patch); !ok || !isObj {
		return mcp.NewToolResultError("'patch' must be an object"), nil
	}
	path, err := scene.Locate(t.session.Root())
	if err != nil {
		return failure(err)
	}
	pointer := jsonptr.Format("objects", id)
	d, err := t.store.Update(ctx, path, "", func(data any) (any, error) {
		if _, found := jsonptr.Get(data, pointer); !found {
			return nil, userErrorf("object %q not found", id)
		}
		return jsonptr.Merge(data, pointer, patch)
	})
	if err != nil {
		return failure(err)
	}
	stored, _ := jsonptr.Get(d.Data, pointer)
	return jsonResult(map[string]any{"id": id, "version": d.Version, "object": stored})
}

// RemoveObjectTool handles desktop_remove_object.
type RemoveObjectTool struct {
	session *project.Session
	store   *docstore.Store
}

// NewRemoveObjectTool creates a RemoveObjectTool.
func NewRemoveObjectTool(session *project.Session, store *docstore.Store) *RemoveObjectTool {
	return &RemoveObjectTool{session: session, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *RemoveObjectTool) Definition() mcp.Tool {
	return mcp.NewTool("desktop_remove_object",
		mcp.WithDescription("Remove a scene object together with every object nested under it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Object id")),
	)
}

// Handle processes the desktop_remove_object tool call.
func (t *RemoveObjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	path, err := scene.Locate(t.session.Root())
	if err != nil {
		return failure(err)
	}
	var removed []string
	d, err := t.store.Update(ctx, path, "", func(data any) (any, error) {
		objects, ok := scene.Objects(data)
		if !ok || !objects.Has(id) {
			return nil, userErrorf("object %q not found", id)
		}
		removed = descendants(objects, id)
		for _, r := range removed {
			objects.Delete(r)
		}
		return data, nil
	})
	if err != nil {
		return failure(err)
	}
	return jsonResult(map[string]any{"removed": removed, "version": d.Version})
}

// descendants returns id followed by every object whose parent chain
// leads to it.
func descendants(objects *doc.Object, id string) []string {
	children := map[string][]string{}
	objects.Range(func(key string, v any) bool {
		if obj, ok := doc.AsObject(v); ok {
			if parent, _ := obj.Get("parentId"); parent != nil {
				if p, ok := doc.String(parent); ok {
					children[p] = append(children[p], key)
				}
			}
		}
		return true
	})
	out := []string{id}
	seen := map[string]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, c := range children[out[i]] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
