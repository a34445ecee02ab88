package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/archive"
	"github.com/mcp-8thwall/mcp-8thwall/internal/catalog"
	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
)

// assetsDir receives downloads, relative to the project root.
const assetsDir = "assets"

// --- assets_status ---

// AssetsStatusTool handles assets_status.
type AssetsStatusTool struct {
	polyHaven *catalog.PolyHaven
}

// NewAssetsStatusTool creates an AssetsStatusTool.
func NewAssetsStatusTool(polyHaven *catalog.PolyHaven) *AssetsStatusTool {
	return &AssetsStatusTool{polyHaven: polyHaven}
}

// Definition returns the MCP tool definition for registration.
func (t *AssetsStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("assets_status",
		mcp.WithDescription("Report which asset sources are available."),
	)
}

// Handle processes the assets_status tool call.
func (t *AssetsStatusTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"polyhaven": map[string]any{"available": true, "info": "Public API endpoints", "baseUrl": t.polyHaven.BaseURL},
		"sources":   []string{catalog.SourceLocal, catalog.SourcePolyHaven, catalog.SourcePolyPizza},
	})
}

// --- assets_search_polyhaven / assets_polyhaven_categories / assets_polyhaven_files ---

// SearchPolyHavenTool handles assets_search_polyhaven.
type SearchPolyHavenTool struct {
	polyHaven *catalog.PolyHaven
}

// NewSearchPolyHavenTool creates a SearchPolyHavenTool.
func NewSearchPolyHavenTool(polyHaven *catalog.PolyHaven) *SearchPolyHavenTool {
	return &SearchPolyHavenTool{polyHaven: polyHaven}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchPolyHavenTool) Definition() mcp.Tool {
	return mcp.NewTool("assets_search_polyhaven",
		mcp.WithDescription("Search PolyHaven HDRIs, textures and models by name."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Case-insensitive name fragment")),
		mcp.WithString("type", mcp.Enum(catalog.PolyHavenTypes...), mcp.DefaultString("all"), mcp.Description("Asset type")),
		mcp.WithNumber("limit", mcp.DefaultNumber(20), mcp.Description("Maximum results")),
	)
}

// Handle processes the assets_search_polyhaven tool call.
func (t *SearchPolyHavenTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := t.polyHaven.Search(ctx, req.GetString("query", ""), req.GetString("type", "all"), req.GetInt("limit", 20))
	if err != nil {
		return nil, fmt.Errorf("searching PolyHaven: %w", err)
	}
	return jsonResult(map[string]any{"count": len(items), "items": items})
}

// PolyHavenCategoriesTool handles assets_polyhaven_categories.
type PolyHavenCategoriesTool struct {
	polyHaven *catalog.PolyHaven
}

// NewPolyHavenCategoriesTool creates a PolyHavenCategoriesTool.
func NewPolyHavenCategoriesTool(polyHaven *catalog.PolyHaven) *PolyHavenCategoriesTool {
	return &PolyHavenCategoriesTool{polyHaven: polyHaven}
}

// Definition returns the MCP tool definition for registration.
func (t *PolyHavenCategoriesTool) Definition() mcp.Tool {
	return mcp.NewTool("assets_polyhaven_categories",
		mcp.WithDescription("List PolyHaven categories for an asset type."),
		mcp.WithString("type", mcp.Enum(catalog.PolyHavenTypes...), mcp.DefaultString("all"), mcp.Description("Asset type")),
	)
}

// Handle processes the assets_polyhaven_categories tool call.
func (t *PolyHavenCategoriesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "all")
	cats, err := t.polyHaven.Categories(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("listing PolyHaven categories: %w", err)
	}
	return jsonResult(map[string]any{"type": typ, "categories": cats})
}

// PolyHavenFilesTool handles assets_polyhaven_files.
type PolyHavenFilesTool struct {
	polyHaven *catalog.PolyHaven
}

// NewPolyHavenFilesTool creates a PolyHavenFilesTool.
func NewPolyHavenFilesTool(polyHaven *catalog.PolyHaven) *PolyHavenFilesTool {
	return &PolyHavenFilesTool{polyHaven: polyHaven}
}

// Definition returns the MCP tool definition for registration.
func (t *PolyHavenFilesTool) Definition() mcp.Tool {
	return mcp.NewTool("assets_polyhaven_files",
		mcp.WithDescription("Get the downloadable file tree (formats and resolutions) of a PolyHaven asset."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Asset id, e.g. brown_photostudio_02")),
	)
}

// Handle processes the assets_polyhaven_files tool call.
func (t *PolyHavenFilesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	files, err := t.polyHaven.Files(ctx, id)
	if isNotFound(err) {
		return mcp.NewToolResultError(fmt.Sprintf("Could not find asset %q on PolyHaven", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching PolyHaven files: %w", err)
	}
	return jsonResult(files)
}

func isNotFound(err error) bool {
	var se *catalog.StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// --- assets_download_url / assets_unzip ---

// DownloadTool handles assets_download_url.
type DownloadTool struct {
	session *project.Session
}

// NewDownloadTool creates a DownloadTool.
func NewDownloadTool(session *project.Session) *DownloadTool {
	return &DownloadTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *DownloadTool) Definition() mcp.Tool {
	return mcp.NewTool("assets_download_url",
		mcp.WithDescription("Download a file by URL into the project's assets/ folder."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL")),
		mcp.WithString("filename", mcp.Description("Saved file name; defaults to the URL's last path segment")),
	)
}

// Handle processes the assets_download_url tool call.
func (t *DownloadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("url", "")
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return mcp.NewToolResultError("'url' must be an http or https URL"), nil
	}
	dest, err := t.session.ResolveFile(assetsDir + "/" + catalog.FileName(raw, req.GetString("filename", "")))
	if err != nil {
		return failure(err)
	}
	got, err := catalog.Download(ctx, raw, dest)
	if err != nil {
		var se *catalog.StatusError
		if errors.As(err, &se) {
			return mcp.NewToolResultError(fmt.Sprintf("Download failed: HTTP %d", se.Code)), nil
		}
		return nil, err
	}
	return jsonResult(map[string]any{"path": relPath(t.session, got.Path), "bytes": got.Bytes})
}

// UnzipTool handles assets_unzip.
type UnzipTool struct {
	session *project.Session
}

// NewUnzipTool creates an UnzipTool.
func NewUnzipTool(session *project.Session) *UnzipTool {
	return &UnzipTool{session: session}
}

// Definition returns the MCP tool definition for registration.
func (t *UnzipTool) Definition() mcp.Tool {
	return mcp.NewTool("assets_unzip",
		mcp.WithDescription("Extract a zip archive inside the project. Entries that would escape the destination are skipped."),
		mcp.WithString("zipPath", mcp.Required(), mcp.Description("Archive path relative to the root")),
		mcp.WithString("destDir", mcp.Description("Destination relative to the root; defaults to assets/models/<archive name>")),
	)
}

// Handle processes the assets_unzip tool call.
func (t *UnzipTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zipRel := req.GetString("zipPath", "")
	zipPath, err := t.session.ResolveFile(zipRel)
	if err != nil {
		return failure(err)
	}
	destRel := req.GetString("destDir", "")
	if destRel == "" {
		destRel = filepath.Join(assetsDir, "models", strings.TrimSuffix(filepath.Base(zipPath), ".zip"))
	}
	dest, err := t.session.ResolveFile(destRel)
	if err != nil {
		return failure(err)
	}
	out, err := archive.Unzip(zipPath, dest)
	if err != nil {
		return failure(err)
	}
	files := make([]string, 0, len(out.Files))
	for _, f := range out.Files {
		files = append(files, relPath(t.session, f))
	}
	return jsonResult(map[string]any{"dest": relPath(t.session, dest), "files": files, "skipped": out.Skipped})
}

// --- search_ar_assets / get_asset_download_info ---

// SearchAssetsTool handles search_ar_assets.
type SearchAssetsTool struct {
	session  *project.Session
	searcher *catalog.Searcher
}

// NewSearchAssetsTool creates a SearchAssetsTool.
func NewSearchAssetsTool(session *project.Session, searcher *catalog.Searcher) *SearchAssetsTool {
	return &SearchAssetsTool{session: session, searcher: searcher}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchAssetsTool) Definition() mcp.Tool {
	return mcp.NewTool("search_ar_assets",
		mcp.WithDescription(
			"Search for AR assets across local project files, PolyHaven and Poly Pizza. "+
				"Results are ranked by relevance; a source that fails is skipped and reported.",
		),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to look for, e.g. 'wooden chair'")),
		mcp.WithArray("sources",
			mcp.Description("Sources to search (default: all)"),
			mcp.Items(map[string]any{"type": "string", "enum": []string{catalog.SourceLocal, catalog.SourcePolyHaven, catalog.SourcePolyPizza, catalog.SourceAll}}),
		),
		mcp.WithString("type",
			mcp.Description("Asset type filter"),
			mcp.Enum(catalog.TypeModel, catalog.TypeTexture, catalog.TypeHDRI, catalog.TypeAudio, "all"),
			mcp.DefaultString("all"),
		),
		mcp.WithNumber("limit", mcp.DefaultNumber(10), mcp.Description("Maximum results")),
	)
}

// Handle processes the search_ar_assets tool call.
func (t *SearchAssetsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := catalog.Query{
		Text:    req.GetString("query", ""),
		Sources: stringsArg(req, "sources"),
		Type:    req.GetString("type", "all"),
		Limit:   req.GetInt("limit", 10),
	}
	if strings.TrimSpace(q.Text) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	results, errs := t.searcher.Search(ctx, t.session.Root(), q)
	if results == nil {
		results = []catalog.Result{}
	}
	out := map[string]any{"query": q.Text, "total": len(results), "results": results}
	if len(errs) > 0 {
		out["errors"] = errs
	}
	return jsonResult(out)
}

// AssetInfoTool handles get_asset_download_info.
type AssetInfoTool struct {
	polyHaven *catalog.PolyHaven
}

// NewAssetInfoTool creates an AssetInfoTool.
func NewAssetInfoTool(polyHaven *catalog.PolyHaven) *AssetInfoTool {
	return &AssetInfoTool{polyHaven: polyHaven}
}

// Definition returns the MCP tool definition for registration.
func (t *AssetInfoTool) Definition() mcp.Tool {
	return mcp.NewTool("get_asset_download_info",
		mcp.WithDescription("Pick a download URL for a PolyHaven asset, honoring a preferred format and resolution."),
		mcp.WithString("assetId", mcp.Required(), mcp.Description("PolyHaven asset id, e.g. damaged_helmet")),
		mcp.WithString("resolution", mcp.DefaultString("auto"), mcp.Description("Preferred resolution, e.g. 1k, 2k, 4k")),
		mcp.WithString("format", mcp.DefaultString("auto"), mcp.Description("Preferred format, e.g. gltf, fbx, hdr")),
	)
}

// Handle processes the get_asset_download_info tool call.
func (t *AssetInfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assetId", "")
	files, err := t.polyHaven.Files(ctx, id)
	if isNotFound(err) {
		return mcp.NewToolResultError(fmt.Sprintf("Could not find asset %q on PolyHaven", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching PolyHaven files: %w", err)
	}
	formats := []string{}
	if obj, ok := doc.AsObject(files); ok {
		formats = obj.Keys()
	}
	out := map[string]any{"assetId": id, "formats": formats}
	if pick, ok := catalog.PickDownload(files, req.GetString("resolution", "auto"), req.GetString("format", "auto")); ok {
		out["selected"] = pick
		out["hint"] = "Use assets_download_url with the selected url to save the file."
	} else {
		out["hint"] = "No direct download URL found; inspect the files tree."
	}
	out["files"] = files
	return jsonResult(out)
}
