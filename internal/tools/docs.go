package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/docs"
)

// DocsGetPageTool handles docs_get_page.
type DocsGetPageTool struct {
	client *docs.Client
}

// NewDocsGetPageTool creates a DocsGetPageTool.
func NewDocsGetPageTool(client *docs.Client) *DocsGetPageTool {
	return &DocsGetPageTool{client: client}
}

// Definition returns the MCP tool definition for registration.
func (t *DocsGetPageTool) Definition() mcp.Tool {
	return mcp.NewTool("docs_get_page",
		mcp.WithDescription("Fetch an 8th Wall docs page and return it as Markdown. Only pages under "+t.client.Root()+" are allowed."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute URL or a path such as /guides/getting-started")),
	)
}

// Handle processes the docs_get_page tool call.
func (t *DocsGetPageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := t.client.Get(ctx, req.GetString("url", ""))
	if errors.Is(err, docs.ErrOutsideRoot) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError("Could not fetch page: " + err.Error()), nil
	}
	text := page.Markdown
	if page.Title != "" {
		text = "# " + page.Title + "\n\nSource: " + page.URL + "\n\n" + text
	}
	return mcp.NewToolResultText(text), nil
}

// DocsSearchTool handles docs_search.
type DocsSearchTool struct {
	client *docs.Client
}

// NewDocsSearchTool creates a DocsSearchTool.
func NewDocsSearchTool(client *docs.Client) *DocsSearchTool {
	return &DocsSearchTool{client: client}
}

// Definition returns the MCP tool definition for registration.
func (t *DocsSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("docs_search",
		mcp.WithDescription(
			"Search a list of docs pages for a keyword. Each page is fetched and "+
				"occurrences are counted; pages that fail to load are skipped.",
		),
		mcp.WithString("query", mcp.Required(), mcp.Description("Keyword, matched case-insensitively")),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Docs paths relative to the docs root"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// Handle processes the docs_search tool call.
func (t *DocsSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hits := t.client.Search(ctx, req.GetString("query", ""), stringsArg(req, "paths"))
	return mcp.NewToolResultText(docs.Summary(hits)), nil
}
