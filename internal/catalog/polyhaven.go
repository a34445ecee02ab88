// Package catalog searches asset sources: the PolyHaven public API, the
// project's local assets/ directory and Poly Pizza. It also downloads
// files into the project.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
)

const (
	polyHavenURL = "https://api.polyhaven.com"
	fetchTimeout = 20 * time.Second
	userAgent    = "mcp-8thwall"
)

// For testing: allow overriding the HTTP client.
var httpClient = &http.Client{Timeout: fetchTimeout}

// PolyHaven asset types accepted by the assets endpoint.
var PolyHavenTypes = []string{"hdris", "textures", "models", "all"}

// StatusError is returned for non-200 responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// AssetMeta is the subset of PolyHaven asset metadata the tools use.
type AssetMeta struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Type       string   `json:"-"`
}

// UnmarshalJSON accepts the numeric asset type the API returns as well as
// a type name.
func (m *AssetMeta) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       string          `json:"name"`
		Categories []string        `json:"categories"`
		Type       json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Name, m.Categories = raw.Name, raw.Categories
	var n int
	var s string
	switch {
	case json.Unmarshal(raw.Type, &n) == nil:
		m.Type = map[int]string{0: "hdri", 1: "texture", 2: "model"}[n]
	case json.Unmarshal(raw.Type, &s) == nil:
		m.Type = strings.TrimSuffix(s, "s")
	}
	return nil
}

// Item is one assets_search_polyhaven hit.
type Item struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Data AssetMeta `json:"data"`
}

// PolyHaven is a client for api.polyhaven.com.
type PolyHaven struct {
	BaseURL string
	Client  *http.Client
}

// NewPolyHaven returns a client for the public API.
func NewPolyHaven() *PolyHaven {
	return &PolyHaven{BaseURL: polyHavenURL, Client: httpClient}
}

func (p *PolyHaven) get(ctx context.Context, path string, out any) error {
	u := strings.TrimRight(p.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	client := p.Client
	if client == nil {
		client = httpClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: u, Code: resp.StatusCode}
	}
	// Tree results keep their key order.
	if tree, ok := out.(*any); ok {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", u, err)
		}
		if *tree, err = doc.Decode(body); err != nil {
			return fmt.Errorf("decoding %s: %w", u, err)
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

// Assets lists every asset of a type ("hdris", "textures", "models" or
// "all"), keyed by id.
func (p *PolyHaven) Assets(ctx context.Context, typ string) (map[string]AssetMeta, error) {
	if typ == "" {
		typ = "all"
	}
	var out map[string]AssetMeta
	if err := p.get(ctx, "/assets?t="+url.QueryEscape(typ), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search filters Assets by a case-insensitive name substring. Results are
// ordered by id.
func (p *PolyHaven) Search(ctx context.Context, query, typ string, limit int) ([]Item, error) {
	all, err := p.Assets(ctx, typ)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	items := []Item{}
	for _, id := range sortedKeys(all) {
		meta := all[id]
		name := meta.Name
		if name == "" {
			name = id
		}
		if strings.Contains(strings.ToLower(name), q) {
			items = append(items, Item{ID: id, Name: name, Data: meta})
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Categories returns the sorted union of categories for a type.
func (p *PolyHaven) Categories(ctx context.Context, typ string) ([]string, error) {
	all, err := p.Assets(ctx, typ)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	cats := []string{}
	for _, meta := range all {
		for _, c := range meta.Categories {
			if !seen[c] {
				seen[c] = true
				cats = append(cats, c)
			}
		}
	}
	sort.Strings(cats)
	return cats, nil
}

// Files returns the file tree of an asset with the API's key order kept.
func (p *PolyHaven) Files(ctx context.Context, id string) (any, error) {
	var v any
	if err := p.get(ctx, "/files/"+url.PathEscape(id), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Pick is a chosen downloadable file.
type Pick struct {
	Format     string `json:"format"`
	Resolution string `json:"resolution"`
	URL        string `json:"url"`
}

// PickDownload chooses a file from a Files tree. The preferred format is
// tried first, then every format in order; within a format the preferred
// resolution wins, else the first listed. Empty or "auto" preferences
// mean no preference.
func PickDownload(files any, resolution, format string) (Pick, bool) {
	root, ok := doc.AsObject(files)
	if !ok {
		return Pick{}, false
	}
	keys := root.Keys()
	if format != "" && format != "auto" && root.Has(format) {
		keys = append([]string{format}, keys...)
	}
	for _, key := range keys {
		v, _ := root.Get(key)
		byRes, ok := doc.AsObject(v)
		if !ok || byRes.Len() == 0 {
			continue
		}
		res := byRes.Keys()[0]
		if resolution != "" && resolution != "auto" && byRes.Has(resolution) {
			res = resolution
		}
		entry, _ := byRes.Get(res)
		if u := fileURL(entry); u != "" {
			return Pick{Format: key, Resolution: res, URL: u}, true
		}
	}
	return Pick{}, false
}

// fileURL finds the url of a file entry. PolyHaven nests one more level
// (resolution -> extension -> {url}) for most formats.
func fileURL(v any) string {
	o, ok := doc.AsObject(v)
	if !ok {
		return ""
	}
	if u, ok := o.Get("url"); ok {
		s, _ := doc.String(u)
		return s
	}
	for _, k := range o.Keys() {
		inner, _ := o.Get(k)
		if nested, ok := doc.AsObject(inner); ok {
			if u, ok := nested.Get("url"); ok {
				s, _ := doc.String(u)
				return s
			}
		}
	}
	return ""
}

func sortedKeys(m map[string]AssetMeta) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatBytes renders a byte count for humans.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
