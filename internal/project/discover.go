package project

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Markers are the entries whose presence makes a directory look like a
// desktop project.
var Markers = []string{
	".expanse.json", "expanse.json", "project.json",
	"scene.json", "app.json", "Config.json",
	"spaces/", "config/",
}

// DiscoverOptions feeds Discover. Empty fields are skipped.
type DiscoverOptions struct {
	// Override is used verbatim when set.
	Override string
	// DesktopRoot is scanned one level deep before the home defaults.
	DesktopRoot string
	// Home is the user's home directory.
	Home string
	// WorkDir anchors the ./project fallback.
	WorkDir string
}

// Discover picks a project root: the override, else the first likely
// project one level under the desktop root, else under
// ~/Documents/8th-Wall or ~/Documents/8th Wall, else ./project.
func Discover(opts DiscoverOptions) string {
	if opts.Override != "" {
		return abs(opts.Override)
	}
	for _, base := range DesktopBases(opts.DesktopRoot, opts.Home) {
		for _, p := range ScanProjects(base) {
			if p.Likely {
				return p.Path
			}
		}
	}
	wd := opts.WorkDir
	if wd == "" {
		wd, _ = os.Getwd()
	}
	return filepath.Join(wd, "project")
}

// DesktopBases lists the directories that hold desktop projects, in
// priority order.
func DesktopBases(desktopRoot, home string) []string {
	var bases []string
	if desktopRoot != "" {
		bases = append(bases, abs(desktopRoot))
	}
	if home != "" {
		bases = append(bases,
			filepath.Join(home, "Documents", "8th-Wall"),
			filepath.Join(home, "Documents", "8th Wall"),
		)
	}
	return bases
}

// Hints records which well-known entry files a project directory has.
type Hints struct {
	HasIndexRoot   bool `json:"hasIndexRoot"`
	HasIndexPublic bool `json:"hasIndexPublic"`
	HasPackage     bool `json:"hasPackage"`
}

// Candidate is one directory found by ScanProjects.
type Candidate struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Likely bool   `json:"likely"`
	Hints  Hints  `json:"hints"`
}

// ScanProjects lists the subdirectories of base, sorted by name. A missing
// base yields nothing.
func ScanProjects(base string) []Candidate {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	var out []Candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(base, e.Name())
		out = append(out, Candidate{
			Name:   e.Name(),
			Path:   dir,
			Likely: IsLikelyProject(dir),
			Hints: Hints{
				HasIndexRoot:   exists(filepath.Join(dir, "index.html")),
				HasIndexPublic: exists(filepath.Join(dir, "public", "index.html")),
				HasPackage:     exists(filepath.Join(dir, "package.json")),
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsLikelyProject reports whether dir holds any of Markers.
func IsLikelyProject(dir string) bool {
	for _, m := range Markers {
		if exists(filepath.Join(dir, m)) {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

// Session holds the active project root for one server. The root is
// discovered lazily on first use and cached until SetRoot replaces it.
type Session struct {
	mu       sync.Mutex
	root     string
	opts     DiscoverOptions
	resolved bool
}

// NewSession creates a session that discovers its root with opts.
func NewSession(opts DiscoverOptions) *Session {
	return &Session{opts: opts}
}

// NewSessionAt creates a session pinned to root.
func NewSessionAt(root string) *Session {
	return &Session{root: abs(root), resolved: true}
}

// Root returns the active project root.
func (s *Session) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resolved {
		s.root = Discover(s.opts)
		s.resolved = true
	}
	return s.root
}

// SetRoot replaces the active project root.
func (s *Session) SetRoot(root string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = abs(root)
	s.resolved = true
	return s.root
}

// DesktopBase returns the first configured desktop base directory, which
// desktop_set_project resolves names against.
func (s *Session) DesktopBase() string {
	bases := DesktopBases(s.opts.DesktopRoot, s.opts.Home)
	for _, b := range bases {
		if info, err := os.Stat(b); err == nil && info.IsDir() {
			return b
		}
	}
	if len(bases) > 0 {
		return bases[0]
	}
	return ""
}

// Resolve resolves rel against the active root.
func (s *Session) Resolve(rel string) (string, error) {
	return Resolve(s.Root(), rel)
}

// ResolveFile resolves rel against the active root, rejecting the root.
func (s *Session) ResolveFile(rel string) (string, error) {
	return ResolveFile(s.Root(), rel)
}
