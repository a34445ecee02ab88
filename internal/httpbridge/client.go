package httpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Response is the body returned by POST /tool/{name}.
type Response struct {
	OK     bool            `json:"ok"`
	Tool   string          `json:"tool,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client invokes tools on a running bridge.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// Call posts args to /tool/{name}. Non-2xx responses are returned as errors
// carrying the bridge's error message.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (*Response, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(map[string]any{"args": args})
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/tool/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("call %s: decode response: %w", name, err)
	}
	if resp.StatusCode/100 != 2 {
		return &out, fmt.Errorf("call %s: HTTP %d: %s", name, resp.StatusCode, out.Error)
	}
	return &out, nil
}
