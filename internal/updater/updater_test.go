package updater

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeVersion(t *testing.T) {
	for in, want := range map[string]string{
		"v0.7.2": "0.7.2",
		"0.7.2":  "0.7.2",
		"v":      "",
		"vv2":    "v2",
	} {
		if got := normalizeVersion(in); got != want {
			t.Errorf("normalizeVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"1.4.0", "1.4.1", true},
		{"1.4.9", "1.10.0", true},
		{"1.4", "1.4.1", true},
		{"1.4.0", "1.5", true},
		{"1.4.0", "1.4.1-beta", true},
		{"1.4.0", "1.4.0", false},
		{"2.0.0", "1.9.9", false},
		{"1.4.0-rc1", "1.4.0", false},
		{"dev", "9.9.9", false},
		{"", "1.0.0", false},
		{"1.0.0", "", false},
	}
	for _, tt := range tests {
		if got := isNewer(tt.current, tt.latest); got != tt.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
		}
	}
}

// --- Check ---

func newTestServer(t *testing.T, release Release, statusCode int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "mcp-8thwall/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(statusCode)
		if statusCode == http.StatusOK {
			_ = json.NewEncoder(w).Encode(release)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCheck_UpdateAvailable(t *testing.T) {
	release := Release{TagName: "v0.3.0", HTMLURL: "https://github.com/mcp-8thwall/mcp-8thwall/releases/tag/v0.3.0"}
	ts := newTestServer(t, release, http.StatusOK)

	c := &Checker{Endpoint: ts.URL, Client: ts.Client()}
	result, err := c.Check(context.Background(), "v0.2.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.UpdateAvailable {
		t.Error("expected UpdateAvailable to be true")
	}
	if result.LatestVersion != "0.3.0" || result.CurrentVersion != "0.2.0" {
		t.Errorf("versions = %q/%q", result.CurrentVersion, result.LatestVersion)
	}
	if !strings.Contains(result.Notice(), release.HTMLURL) {
		t.Errorf("Notice() = %q, want release url", result.Notice())
	}
}

func TestCheck_AlreadyLatest(t *testing.T) {
	ts := newTestServer(t, Release{TagName: "v0.2.0"}, http.StatusOK)

	result, err := (&Checker{Endpoint: ts.URL, Client: ts.Client()}).Check(context.Background(), "0.2.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.UpdateAvailable || result.Notice() != "" {
		t.Error("expected no update when already at latest")
	}
}

func TestCheck_APIErrorStatus(t *testing.T) {
	ts := newTestServer(t, Release{}, http.StatusForbidden)

	result, err := (&Checker{Endpoint: ts.URL, Client: ts.Client()}).Check(context.Background(), "v0.2.0")
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
	if result.UpdateAvailable || result.CurrentVersion != "0.2.0" {
		t.Errorf("result = %+v", result)
	}
}

func TestCheck_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close()

	if _, err := (&Checker{Endpoint: ts.URL}).Check(context.Background(), "v0.2.0"); err == nil {
		t.Fatal("expected a network error")
	}
}

func TestCheck_DevVersion(t *testing.T) {
	ts := newTestServer(t, Release{TagName: "v9.9.9"}, http.StatusOK)

	result, err := (&Checker{Endpoint: ts.URL, Client: ts.Client()}).Check(context.Background(), "dev")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.UpdateAvailable {
		t.Error("dev builds never report updates")
	}
}
