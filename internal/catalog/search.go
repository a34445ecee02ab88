package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Sources searched by Searcher.
const (
	SourceLocal     = "local"
	SourcePolyHaven = "polyhaven"
	SourcePolyPizza = "poly-pizza"
	SourceAll       = "all"
)

// Asset types used by Result.Type.
const (
	TypeModel   = "model"
	TypeTexture = "texture"
	TypeHDRI    = "hdri"
	TypeAudio   = "audio"
	TypeUnknown = "unknown"
)

// Result is one ranked search hit.
type Result struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Description string `json:"description,omitempty"`
	FileSize    string `json:"fileSize,omitempty"`
	Score       int    `json:"score"`
}

// Query is a multi-source search request.
type Query struct {
	Text    string
	Sources []string // empty means all
	Type    string   // empty or "all" means any
	Limit   int
}

func (q Query) wants(source string) bool {
	if len(q.Sources) == 0 {
		return true
	}
	for _, s := range q.Sources {
		if s == source || s == SourceAll {
			return true
		}
	}
	return false
}

// SourceError records a source that failed and was skipped.
type SourceError struct {
	Source string `json:"source"`
	Err    string `json:"error"`
}

// Searcher fans a query out to every requested source. A failing source
// contributes no results instead of failing the search.
type Searcher struct {
	PolyHaven *PolyHaven
	Logger    *slog.Logger
}

// Search runs q against root's local assets and the remote sources.
func (s *Searcher) Search(ctx context.Context, root string, q Query) ([]Result, []SourceError) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	type source struct {
		name string
		run  func() ([]Result, error)
	}
	var sources []source
	if q.wants(SourceLocal) {
		sources = append(sources, source{SourceLocal, func() ([]Result, error) { return ScanLocal(root) }})
	}
	if q.wants(SourcePolyHaven) && s.PolyHaven != nil {
		sources = append(sources, source{SourcePolyHaven, func() ([]Result, error) {
			return s.polyHaven(ctx, q.Type)
		}})
	}
	if q.wants(SourcePolyPizza) {
		sources = append(sources, source{SourcePolyPizza, func() ([]Result, error) { return PolyPizza(q.Text), nil }})
	}

	found := make([][]Result, len(sources))
	errs := make([]error, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source) {
			defer wg.Done()
			found[i], errs[i] = src.run()
		}(i, src)
	}
	wg.Wait()

	var all []Result
	var failed []SourceError
	for i, src := range sources {
		if errs[i] != nil {
			logger.Warn("asset source failed", "source", src.name, "err", errs[i])
			failed = append(failed, SourceError{Source: src.name, Err: errs[i].Error()})
			continue
		}
		all = append(all, found[i]...)
	}

	if q.Type != "" && q.Type != SourceAll {
		kept := all[:0]
		for _, r := range all {
			if r.Type == q.Type {
				kept = append(kept, r)
			}
		}
		all = kept
	}
	all = Rank(all, q.Text)
	if q.Limit > 0 && len(all) > q.Limit {
		all = all[:q.Limit]
	}
	if all == nil {
		all = []Result{}
	}
	return all, failed
}

// polyHavenType maps a Result type to the API's type parameter.
func polyHavenType(typ string) string {
	switch typ {
	case TypeHDRI:
		return "hdris"
	case TypeTexture:
		return "textures"
	case TypeModel:
		return "models"
	}
	return "all"
}

func (s *Searcher) polyHaven(ctx context.Context, typ string) ([]Result, error) {
	apiType := polyHavenType(typ)
	assets, err := s.PolyHaven.Assets(ctx, apiType)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(assets))
	for _, id := range sortedKeys(assets) {
		meta := assets[id]
		name := meta.Name
		if name == "" {
			name = id
		}
		t := meta.Type
		if apiType != "all" {
			t = strings.TrimSuffix(apiType, "s")
		}
		if t == "" {
			t = TypeUnknown
		}
		out = append(out, Result{
			Name:        name,
			Source:      SourcePolyHaven,
			Type:        t,
			URL:         "https://polyhaven.com/a/" + id,
			Description: strings.Join(meta.Categories, ", "),
		})
	}
	return out, nil
}

// PolyPizza has no search API; the result points the user at the site.
func PolyPizza(query string) []Result {
	return []Result{{
		Name:        fmt.Sprintf("Search %q on Poly Pizza", query),
		Source:      SourcePolyPizza,
		Type:        TypeModel,
		URL:         "https://poly.pizza/search?q=" + url.QueryEscape(query),
		Description: "Visit Poly Pizza to search for free 3D models from the Google Poly archive",
	}}
}

const localMaxDepth = 3

// TypeOf classifies a file by extension.
func TypeOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".glb", ".gltf", ".obj", ".fbx":
		return TypeModel
	case ".jpg", ".jpeg", ".png", ".webp", ".hdr", ".exr":
		return TypeTexture
	case ".mp3", ".wav", ".ogg":
		return TypeAudio
	}
	return TypeUnknown
}

// ScanLocal lists files under root/assets, at most three directories
// deep. A missing assets directory yields no results.
func ScanLocal(root string) ([]Result, error) {
	base := filepath.Join(root, "assets")
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}
	var out []Result
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(base, p)
		if d.IsDir() {
			if rel != "." && strings.Count(filepath.ToSlash(rel), "/") >= localMaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		relRoot, _ := filepath.Rel(root, p)
		relRoot = filepath.ToSlash(relRoot)
		r := Result{Name: d.Name(), Source: SourceLocal, Type: TypeOf(d.Name()), URL: relRoot, DownloadURL: relRoot}
		if info, err := d.Info(); err == nil {
			r.FileSize = FormatBytes(info.Size())
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", base, err)
	}
	return out, nil
}

// Rank scores results against query and sorts them best first. Ties keep
// their input order.
func Rank(results []Result, query string) []Result {
	q := strings.ToLower(query)
	words := strings.Fields(q)
	out := make([]Result, len(results))
	for i, r := range results {
		name := strings.ToLower(r.Name)
		desc := strings.ToLower(r.Description)
		score := 0
		if name == q {
			score += 100
		}
		if strings.HasPrefix(name, q) {
			score += 50
		}
		if strings.Contains(name, q) {
			score += 25
		}
		for _, w := range words {
			if strings.Contains(name, w) {
				score += 10
			}
			if strings.Contains(desc, w) {
				score += 5
			}
		}
		r.Score = score
		out[i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
