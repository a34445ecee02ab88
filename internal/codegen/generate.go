package codegen

import (
	"fmt"
	"strings"

	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
)

// MatchTemplate picks a bundled component for a description, or "" when
// none fits.
func MatchTemplate(description string) string {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "particle"), strings.Contains(d, "light paint"):
		return "particle-system"
	case strings.Contains(d, "gesture"), strings.Contains(d, "touch") && strings.Contains(d, "track"):
		return "gesture-handler"
	case strings.Contains(d, "tap"), strings.Contains(d, "click"):
		return "tap-handler"
	case strings.Contains(d, "audio"), strings.Contains(d, "sound"):
		return "audio-controller"
	}
	return ""
}

// Request describes a generate_custom_javascript call.
type Request struct {
	Description   string
	ComponentName string
	UseTemplate   string
}

// Generated is wrapped component code plus the template it came from.
type Generated struct {
	Code     string `json:"code"`
	Template string `json:"template,omitempty"`
}

// Generate produces wrapped A-Frame component code. An explicit template
// wins; otherwise the description is matched, and a skeleton component is
// rendered when nothing matches.
func Generate(r *templates.Renderer, req Request) (Generated, error) {
	name := req.UseTemplate
	if name == "" {
		name = MatchTemplate(req.Description)
	}
	var body string
	if name != "" {
		src, err := templates.ComponentSource(name)
		if err != nil {
			return Generated{}, err
		}
		body = src
	} else {
		comp := req.ComponentName
		if comp == "" {
			comp = "custom-component"
		}
		src, err := r.Render(templates.ComponentSkeleton, templates.SkeletonData{Name: comp, Description: req.Description})
		if err != nil {
			return Generated{}, err
		}
		body = src
	}
	code, err := r.Wrap(body)
	if err != nil {
		return Generated{}, fmt.Errorf("wrapping component: %w", err)
	}
	return Generated{Code: code, Template: name}, nil
}
