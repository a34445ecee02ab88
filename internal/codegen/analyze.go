package codegen

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Experience categories produced by Analyze.
const (
	CategoryLightPainting = "light-painting"
	CategoryModelShowcase = "model-showcase"
	CategoryImageTarget   = "image-target"
	CategoryPortal        = "portal"
	CategoryPhysics       = "physics"
	CategoryFaceFilter    = "face-filter"
	CategoryCustom        = "custom"
)

type pattern struct {
	category string
	keywords []string
}

var patterns = []pattern{
	{CategoryLightPainting, []string{"light", "paint", "draw", "trace", "particle", "finger", "touch draw"}},
	{CategoryModelShowcase, []string{"model", "showcase", "display", "3d", "rotate", "spin", "view"}},
	{CategoryImageTarget, []string{"image", "target", "track", "poster", "marker"}},
	{CategoryPortal, []string{"portal", "doorway", "gateway", "transition"}},
	{CategoryPhysics, []string{"physics", "fall", "bounce", "collide", "gravity", "drop"}},
	{CategoryFaceFilter, []string{"face", "filter", "mask", "facial", "head"}},
}

var modifierWords = []string{
	"spinning", "rotating", "glowing", "floating", "bouncing", "animated",
	"interactive", "large", "small", "colorful", "realistic",
}

var (
	capitalized = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	quoted      = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
)

// Analysis classifies an AR experience description.
type Analysis struct {
	Category   string   `json:"category"`
	Entities   []string `json:"entities"`
	Modifiers  []string `json:"modifiers"`
	Confidence float64  `json:"confidence"`
}

// HasModifier reports whether m was detected.
func (a Analysis) HasModifier(m string) bool {
	for _, v := range a.Modifiers {
		if v == m {
			return true
		}
	}
	return false
}

// Analyze scores description against the known experience patterns by
// keyword hits. The first pattern with the highest score wins; no hits at
// all yields CategoryCustom with zero confidence.
func Analyze(description string) Analysis {
	lower := strings.ToLower(description)
	best, bestScore := pattern{category: CategoryCustom}, 0
	for _, p := range patterns {
		score := 0
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = p, score
		}
	}

	a := Analysis{Category: best.category, Entities: []string{}, Modifiers: []string{}}
	if bestScore > 0 {
		a.Confidence = float64(bestScore) / float64(len(best.keywords))
	}
	a.Entities = append(a.Entities, capitalized.FindAllString(description, -1)...)
	for _, m := range quoted.FindAllStringSubmatch(description, -1) {
		if m[1] != "" {
			a.Entities = append(a.Entities, m[1])
		} else {
			a.Entities = append(a.Entities, m[2])
		}
	}
	for _, m := range modifierWords {
		if strings.Contains(lower, m) {
			a.Modifiers = append(a.Modifiers, m)
		}
	}
	return a
}

// Plan is a step list plus tool recommendations for an analysis.
type Plan struct {
	Title           string   `json:"title"`
	Steps           []string `json:"steps"`
	Recommendations []string `json:"recommendations"`
	Template        string   `json:"template,omitempty"`
}

// PlanFor builds the execution plan for a.
func PlanFor(a Analysis) Plan {
	switch a.Category {
	case CategoryLightPainting:
		return Plan{
			Title: "Creating Light Painting Experience",
			Steps: []string{
				"Generate custom particle system component",
				"Add gesture handler for touch tracking",
				"Create color picker UI",
				"Add clear button functionality",
			},
			Recommendations: []string{
				`Use apply_experience_template with "light-painting" for fastest setup`,
				"Test on actual device - touch interactions require real hardware",
			},
			Template: "light-painting",
		}
	case CategoryModelShowcase:
		var steps []string
		if len(a.Entities) > 0 {
			steps = append(steps,
				fmt.Sprintf("Search for %q model in asset libraries", a.Entities[0]),
				"Download and add model to scene")
		} else {
			steps = append(steps, "Use existing model or search for generic model")
		}
		steps = append(steps, "Position model at (0, 1, -2) for optimal viewing")
		if a.HasModifier("spinning") || a.HasModifier("rotating") {
			steps = append(steps, "Add Y-axis rotation animation (60°/sec)")
		}
		steps = append(steps, "Add ambient lighting (intensity: 0.8)", "Add directional lighting for depth")
		return Plan{
			Title: "Creating Model Showcase Experience",
			Steps: steps,
			Recommendations: []string{
				"Use search_ar_assets to find a GLB/GLTF model",
				"Use desktop_add_model for GLB/GLTF files",
				"Use desktop_add_light for ambient and directional lighting",
			},
			Template: "model-showcase",
		}
	case CategoryImageTarget:
		return Plan{
			Title: "Creating Image Target Experience",
			Steps: []string{
				"Configure camera for image tracking",
				"Add image target with specified marker",
				"Add content that appears on detection",
				"Position content relative to target",
			},
			Recommendations: []string{
				"Image target works best with high-contrast, detailed images",
				"Test on actual device with printed marker",
			},
			Template: "image-target-video",
		}
	case CategoryPortal:
		return Plan{
			Title: "Creating AR Portal Experience",
			Steps: []string{
				"Create portal frame (torus or ring geometry)",
				"Add hider material plane (colorWrite: false)",
				"Add portal content behind the plane",
				"Add glowing effects to frame",
			},
			Recommendations: []string{
				`Use desktop_add_shape with shape "torus" for the frame`,
				"Use desktop_update_object to set colorWrite: false on the hider material",
				"Position portal content behind the hider plane",
			},
			Template: "portal-experience",
		}
	case CategoryPhysics:
		return Plan{
			Title: "Creating Physics Experience",
			Steps: []string{
				"Configure physics world settings",
				"Add ground plane (static collider)",
				"Add physics-enabled objects (dynamic)",
				"Set mass and restitution properties",
			},
			Recommendations: []string{
				"Use desktop_add_shape for the ground plane and bodies",
				"Physics requires 8th Wall Desktop physics support",
			},
			Template: "physics-playground",
		}
	case CategoryFaceFilter:
		return Plan{
			Title: "Creating Face Filter Experience",
			Steps: []string{
				"Enable face tracking",
				"Add objects attached to face landmarks",
				"Optional: Add debug face mesh",
			},
			Recommendations: []string{
				"Test on actual device - face tracking requires camera",
			},
			Template: "face-filter",
		}
	}
	return Plan{
		Title: "Creating Custom Experience",
		Steps: []string{
			"Analyze requirements manually",
			"Use appropriate individual tools",
			"Combine primitives and custom components",
		},
		Recommendations: []string{
			"Break down complex requirements into smaller tasks",
			"Use existing tools: desktop_add_shape, desktop_add_model, etc.",
		},
	}
}

// Report renders the analysis and plan as the create_ar_experience text.
func Report(a Analysis, p Plan, autoExecute bool) string {
	var b strings.Builder
	b.WriteString("📋 Analysis Results:\n")
	fmt.Fprintf(&b, "   Category: %s\n", a.Category)
	fmt.Fprintf(&b, "   Confidence: %d%%\n", int(math.Round(a.Confidence*100)))
	if len(a.Entities) > 0 {
		fmt.Fprintf(&b, "   Detected entities: %s\n", strings.Join(a.Entities, ", "))
	}
	if len(a.Modifiers) > 0 {
		fmt.Fprintf(&b, "   Modifiers: %s\n", strings.Join(a.Modifiers, ", "))
	}
	fmt.Fprintf(&b, "\n🛠️ %s:\n", p.Title)
	for i, s := range p.Steps {
		fmt.Fprintf(&b, "   %d. %s\n", i+1, s)
	}
	b.WriteString("\n💡 Recommendations:\n")
	for _, r := range p.Recommendations {
		fmt.Fprintf(&b, "   • %s\n", r)
	}
	if autoExecute {
		b.WriteString("\n▶️  To implement this plan, use the recommended tools above.")
		if p.Template != "" {
			fmt.Fprintf(&b, "\n    For templates: apply_experience_template with %q", p.Template)
		}
		b.WriteString("\n    For manual setup: use individual desktop_* tools")
	} else {
		b.WriteString("\n⏸️  Auto-execution disabled. Review the plan above and use individual tools to implement.")
	}
	return b.String()
}
