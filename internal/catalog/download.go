package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Downloaded describes a saved file.
type Downloaded struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName picks the saved name for rawURL: explicit wins, else the last
// path segment, else download.bin. The result is a single safe segment.
func FileName(rawURL, explicit string) string {
	name := explicit
	if name == "" {
		if u, err := url.Parse(rawURL); err == nil {
			name = path.Base(u.Path)
		}
	}
	name = filepath.Base(filepath.FromSlash(name))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if name == "" || name == "/" {
		return "download.bin"
	}
	return name
}

// Download fetches rawURL into dest, creating parent directories. The
// file is written to a temp name and renamed when complete.
func Download(ctx context.Context, rawURL, dest string) (*Downloaded, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("download: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("download: %w", err)
	}
	return &Downloaded{Path: dest, Bytes: n}, nil
}
