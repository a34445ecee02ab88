// Package docs fetches 8th Wall documentation pages and renders them as
// Markdown for the docs_* tools.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// DefaultRoot is used when no docs root is configured.
const DefaultRoot = "https://www.8thwall.com/docs"

const fetchTimeout = 20 * time.Second

// maxPageBytes caps how much of a page is read.
const maxPageBytes = 4 << 20

var httpClient = &http.Client{Timeout: fetchTimeout}

var excessiveLines = regexp.MustCompile(`\n{3,}`)

// ErrOutsideRoot is returned for URLs that do not live under the docs root.
var ErrOutsideRoot = errors.New("url not under docs root")

// Page is a fetched and converted docs page.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// Hit is one docs_search match.
type Hit struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Client fetches pages below Root.
type Client struct {
	root      *url.URL
	converter *md.Converter
}

// New returns a Client for root; an empty root means DefaultRoot.
func New(root string) (*Client, error) {
	if root == "" {
		root = DefaultRoot
	}
	u, err := url.Parse(strings.TrimRight(root, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing docs root: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("docs root %q must be an absolute URL", root)
	}
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &Client{root: u, converter: conv}, nil
}

// Root returns the configured docs root without a trailing slash.
func (c *Client) Root() string { return c.root.String() }

// Check resolves raw against the root origin and verifies the result is
// the root itself or a page below it.
func (c *Client) Check(raw string) (string, error) {
	origin := &url.URL{Scheme: c.root.Scheme, Host: c.root.Host}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	u := origin.ResolveReference(ref)
	root := c.root.String()
	href := u.String()
	if href != root && !strings.HasPrefix(href, root+"/") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, root)
	}
	return href, nil
}

// Join builds the URL of a docs path relative to the root.
func (c *Client) Join(p string) string {
	return c.Root() + "/" + strings.TrimLeft(p, "/")
}

// Get fetches a page and converts it to Markdown.
func (c *Client) Get(ctx context.Context, raw string) (*Page, error) {
	href, err := c.Check(raw)
	if err != nil {
		return nil, err
	}
	body, err := fetch(ctx, href)
	if err != nil {
		return nil, err
	}
	return c.Convert(href, body)
}

// Convert turns an HTML page into Markdown.
func (c *Client) Convert(href string, body []byte) (*Page, error) {
	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	title := findTitle(root)
	strip(root, "script", "style", "noscript")
	var sb strings.Builder
	if err := html.Render(&sb, root); err != nil {
		return nil, err
	}
	out, err := c.converter.ConvertString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", href, err)
	}
	out = strings.TrimSpace(excessiveLines.ReplaceAllString(out, "\n\n"))
	return &Page{URL: href, Title: title, Markdown: out}, nil
}

// Search fetches each path and counts case-insensitive occurrences of query.
// Pages that fail to fetch are skipped. Hits are sorted by count, highest
// first.
func (c *Client) Search(ctx context.Context, query string, paths []string) []Hit {
	q := strings.ToLower(query)
	var hits []Hit
	if q == "" {
		return hits
	}
	for _, p := range paths {
		page, err := c.Get(ctx, c.Join(p))
		if err != nil {
			continue
		}
		if n := strings.Count(strings.ToLower(page.Markdown), q); n > 0 {
			hits = append(hits, Hit{URL: page.URL, Count: n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Count > hits[j].Count })
	return hits
}

// Summary formats hits one per line, or "No matches.".
func Summary(hits []Hit) string {
	if len(hits) == 0 {
		return "No matches."
	}
	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = fmt.Sprintf("%s (%d)", h.URL, h.Count)
	}
	return strings.Join(lines, "\n")
}

func fetch(ctx context.Context, href string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", href, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func strip(n *html.Node, tags ...string) {
	var drop []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			for _, t := range tags {
				if node.Data == t {
					drop = append(drop, node)
					return
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	for _, node := range drop {
		node.Parent.RemoveChild(node)
	}
}
