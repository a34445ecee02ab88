package resources

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
)

// markers reports which project marker files exist under root.
func markers(root string) map[string]bool {
	out := make(map[string]bool, len(project.Markers))
	for _, m := range project.Markers {
		_, err := os.Stat(filepath.Join(root, m))
		out[m] = err == nil
	}
	return out
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}

func jsonResource(uri string, data []byte) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}
}
