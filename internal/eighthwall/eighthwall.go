// Package eighthwall is a small client for the 8th Wall apps API with a
// built-in mock used when no API base URL is configured.
package eighthwall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

var httpClient = &http.Client{Timeout: requestTimeout}

var timeNow = time.Now

// ErrAppNotFound is returned by the mock for unknown ids.
var ErrAppNotFound = errors.New("app not found (mock)")

// Scene is a scene inside an app.
type Scene struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Order       float64 `json:"order,omitempty"`
}

// App is an 8th Wall application.
type App struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
	Scenes      []Scene `json:"scenes,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// StatusError reports a non-2xx API response.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed: %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// Client talks to the apps API, or serves mock data.
type Client struct {
	base   string
	apiKey string
	mock   bool
}

// New returns a client. The mock is used when forced or when base is empty.
func New(base, apiKey string, forceMock bool) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		mock:   forceMock || base == "",
	}
}

// Mock reports whether the client serves mock data.
func (c *Client) Mock() bool { return c.mock }

// ListApps returns every app.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	if c.mock {
		return mockApps(), nil
	}
	var apps []App
	if err := c.Get(ctx, "/apps", &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetApp returns one app by id.
func (c *Client) GetApp(ctx context.Context, id string) (*App, error) {
	if c.mock {
		for _, a := range mockApps() {
			if a.ID == id {
				return &a, nil
			}
		}
		return nil, ErrAppNotFound
	}
	var app App
	if err := c.Get(ctx, "/apps/"+url.PathEscape(id), &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, b, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	u := c.base + path
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: u, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", u, err)
	}
	return nil
}

func mockApps() []App {
	now := timeNow().UTC().Format(time.RFC3339)
	return []App{{
		ID:          "app_123",
		Name:        "Sample AR App",
		Description: "Mock app for development",
		CreatedAt:   now,
		UpdatedAt:   now,
		Scenes: []Scene{
			{ID: "scene_home", Name: "Home"},
			{ID: "scene_ar", Name: "AR Experience"},
		},
	}}
}
