// Package updater checks GitHub Releases for a newer mcp-8thwall version.
// It backs "mcp-8thwall version --check" and the startup notice of serve.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	githubRepo = "mcp-8thwall/mcp-8thwall"

	// ReleaseURL is the GitHub API endpoint for the latest release.
	ReleaseURL = "https://api.github.com/repos/" + githubRepo + "/releases/latest"

	checkTimeout = 10 * time.Second
)

// Release holds the relevant fields of a GitHub release.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result is the outcome of a version check.
type Result struct {
	CurrentVersion  string `json:"currentVersion"`
	LatestVersion   string `json:"latestVersion"`
	UpdateAvailable bool   `json:"updateAvailable"`
	ReleaseURL      string `json:"releaseUrl,omitempty"`
}

// Checker queries a releases endpoint. The zero value uses ReleaseURL and
// a client with a short timeout.
type Checker struct {
	Endpoint string
	Client   *http.Client
}

// Check fetches the latest release and compares it with current.
// A "dev" build never reports an update.
func (c *Checker) Check(ctx context.Context, current string) (*Result, error) {
	result := &Result{CurrentVersion: normalizeVersion(current)}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = ReleaseURL
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: checkTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return result, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "mcp-8thwall/"+current)

	resp, err := client.Do(req)
	if err != nil {
		return result, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("checking latest release: %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return result, fmt.Errorf("decoding release: %w", err)
	}
	result.LatestVersion = normalizeVersion(release.TagName)
	result.ReleaseURL = release.HTMLURL
	result.UpdateAvailable = isNewer(result.CurrentVersion, result.LatestVersion)
	return result, nil
}

// Notice is the one-line message printed when an update exists, or "".
func (r *Result) Notice() string {
	if r == nil || !r.UpdateAvailable {
		return ""
	}
	return fmt.Sprintf("mcp-8thwall %s is available (running %s): %s", r.LatestVersion, r.CurrentVersion, r.ReleaseURL)
}

// normalizeVersion strips the leading "v" from version strings.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isNewer reports whether latest is a higher major.minor.patch than current.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := parts(current), parts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func parts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		out[i] = parseIntSafe(p)
	}
	return out
}

// parseIntSafe reads the leading digits of s; anything else is 0.
func parseIntSafe(s string) int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
