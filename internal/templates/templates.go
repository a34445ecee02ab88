// Package templates holds the embedded files the server writes into
// projects: scaffolds, A-Frame component sources, the XR8 Three.js script
// and the AR experience catalog.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed files
var files embed.FS

// Template names accepted by Renderer.Render.
const (
	ComponentWrapper  = "components/safe_wrapper.js.tmpl"
	ComponentSkeleton = "components/skeleton.js.tmpl"
	ThreeJSScript     = "scripts/threejs-pipeline.js.tmpl"
)

// WrapperData fills ComponentWrapper.
type WrapperData struct {
	Body string
}

// SkeletonData fills ComponentSkeleton.
type SkeletonData struct {
	Name        string
	Description string
}

// ScriptData fills ThreeJSScript.
type ScriptData struct {
	Name          string
	Description   string
	Ident         string // JavaScript identifier derived from Name
	Module        string // pipeline module name
	TestSphere    bool
	TouchHandling bool
}

// NewScriptData derives the identifier and module name from name.
func NewScriptData(name, description string, testSphere, touch bool) ScriptData {
	name = strings.TrimSuffix(name, ".js")
	return ScriptData{
		Name:          name,
		Description:   description,
		Ident:         Ident(name),
		Module:        strings.Join(strings.Fields(strings.ToLower(name)), "-"),
		TestSphere:    testSphere,
		TouchHandling: touch,
	}
}

// Ident converts a name like "my-effect" into "myEffect".
func Ident(name string) string {
	var b strings.Builder
	upper := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$':
			if b.Len() == 0 && unicode.IsDigit(r) {
				b.WriteByte('_')
			}
			if upper && b.Len() > 0 {
				r = unicode.ToUpper(r)
			}
			b.WriteRune(r)
			upper = false
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "custom"
	}
	return b.String()
}

// Renderer executes the embedded text templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses every *.tmpl file.
func NewRenderer() (*Renderer, error) {
	root := template.New("root")
	err := fs.WalkDir(files, "files", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".tmpl") {
			return err
		}
		body, err := files.ReadFile(p)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(p, "files/")
		if _, err := root.New(name).Parse(string(body)); err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: root}, nil
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// Wrap places an A-Frame registration inside the load-safe wrapper.
func (r *Renderer) Wrap(body string) (string, error) {
	return r.Render(ComponentWrapper, WrapperData{Body: strings.TrimRight(body, "\n\t ")})
}

// --- Components ---

// Component is a bundled A-Frame component.
type Component struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description"`
}

var components = []Component{
	{"particle-system", "particle-system.js", "Create and manage 3D particles with fading effects"},
	{"gesture-handler", "gesture-handler.js", "Handle touch gestures and convert to 3D world positions"},
	{"tap-handler", "tap-handler.js", "Detect tap/click events on objects"},
	{"audio-controller", "audio-controller.js", "Play spatial audio attached to objects"},
}

// Components lists the bundled components.
func Components() []Component {
	out := make([]Component, len(components))
	copy(out, components)
	return out
}

// ComponentSource returns the unwrapped registration code of a bundled
// component.
func ComponentSource(name string) (string, error) {
	name = strings.TrimSuffix(name, ".js")
	for _, c := range components {
		if c.Name == name {
			b, err := files.ReadFile("files/components/" + c.File)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
	return "", fmt.Errorf("unknown component template %q", name)
}

// ComponentFile is the content written for desktop_add_custom_component.
func ComponentFile(name, description, code string) string {
	var b strings.Builder
	b.WriteString("// Custom A-Frame Component: " + name + "\n")
	if description != "" {
		b.WriteString("// " + description + "\n")
	}
	b.WriteString("\n" + code + "\n")
	return b.String()
}

// --- Scaffolds ---

// ScaffoldKinds are the project_scaffold templates.
var ScaffoldKinds = []string{"aframe", "three"}

// Scaffold returns file name to content for a starter project.
func Scaffold(kind string) (map[string]string, error) {
	dir := "files/scaffold/" + kind
	entries, err := files.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unknown scaffold %q", kind)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		b, err := files.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = string(b)
	}
	return out, nil
}

// --- Experiences ---

// Experience is a pre-built AR experience recipe.
type Experience struct {
	Key         string   `yaml:"key" json:"key"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	Components  []string `yaml:"components" json:"components"`
	Steps       []string `yaml:"steps" json:"steps"`
	Script      string   `yaml:"script,omitempty" json:"script,omitempty"`
}

// Experiences loads the catalog in file order.
func Experiences() ([]Experience, error) {
	b, err := files.ReadFile("files/experiences/catalog.yaml")
	if err != nil {
		return nil, err
	}
	var out []Experience
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parsing experience catalog: %w", err)
	}
	return out, nil
}

// FindExperience looks an experience up by key.
func FindExperience(key string) (Experience, bool, error) {
	all, err := Experiences()
	if err != nil {
		return Experience{}, false, err
	}
	for _, e := range all {
		if e.Key == key {
			return e, true, nil
		}
	}
	return Experience{}, false, nil
}

// ExperienceKeys returns every experience key, sorted.
func ExperienceKeys() []string {
	all, _ := Experiences()
	keys := make([]string, 0, len(all))
	for _, e := range all {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys
}

// IntegrationScript returns the experience's integration code, or "" when
// it has none.
func IntegrationScript(e Experience) (string, error) {
	if e.Script == "" {
		return "", nil
	}
	b, err := files.ReadFile("files/experiences/" + e.Script)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
