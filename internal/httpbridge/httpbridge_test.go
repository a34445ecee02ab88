package httpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/registry"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	promReg := prometheus.NewRegistry()
	reg := registry.New(registry.WithRegisterer(promReg))
	reg.MustRegister(
		registry.Tool{
			Definition: mcp.NewTool("echo",
				mcp.WithDescription("Echo a message"),
				mcp.WithString("message", mcp.DefaultString("pong")),
			),
			Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText(req.GetString("message", "")), nil
			},
		},
		registry.Tool{
			Definition: mcp.NewTool("keys",
				mcp.WithDescription("List the keys of an object in order"),
				mcp.WithObject("data", mcp.Required()),
			),
			Handler: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				obj, ok := doc.AsObject(req.GetArguments()["data"])
				if !ok {
					return mcp.NewToolResultError("data is not ordered"), nil
				}
				return mcp.NewToolResultText(strings.Join(obj.Keys(), ",")), nil
			},
		},
		registry.Tool{
			Definition: mcp.NewTool("boom", mcp.WithDescription("Always fails")),
			Handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("disk on fire")
			},
		},
	)
	srv := httptest.NewServer((&Server{Registry: reg, Mode: "local", Gatherer: promReg}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func resultText(t *testing.T, body map[string]any) string {
	t.Helper()
	result, ok := body["result"].(map[string]any)
	if !ok {
		t.Fatalf("result missing: %v", body)
	}
	content, _ := result["content"].([]any)
	if len(content) == 0 {
		t.Fatalf("result has no content: %v", result)
	}
	block, _ := content[0].(map[string]any)
	text, _ := block["text"].(string)
	return text
}

func TestDescriptor(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}
	body := decode(t, resp)
	if body["ok"] != true || body["mode"] != "local" {
		t.Errorf("unexpected descriptor: %v", body)
	}
	if eps, _ := body["endpoints"].([]any); len(eps) == 0 {
		t.Error("expected endpoints")
	}
}

func TestListTools_TrailingSlash(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/tools/")
	if err != nil {
		t.Fatal(err)
	}
	body := decode(t, resp)
	tools, _ := body["tools"].([]any)
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %v", body)
	}
	first, _ := tools[0].(map[string]any)
	if first["name"] != "echo" || first["description"] != "Echo a message" {
		t.Errorf("unexpected first tool: %v", first)
	}
}

func TestCallTool(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"raw arguments", `{"message":"hi"}`, "hi"},
		{"wrapped arguments", `{"args":{"message":"wrapped"}}`, "wrapped"},
		{"empty body uses defaults", ``, "pong"},
		{"null args falls back to body", `{"args":null}`, "pong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/tool/echo", tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			body := decode(t, resp)
			if body["ok"] != true || body["tool"] != "echo" {
				t.Fatalf("unexpected body: %v", body)
			}
			if got := resultText(t, body); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallTool_KeepsKeyOrder(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"data":{"zebra":1,"apple":2,"mango":3}}`,
		`{"args":{"data":{"zebra":1,"apple":2,"mango":3}}}`,
	} {
		resp := post(t, srv.URL+"/tool/keys", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if got := resultText(t, decode(t, resp)); got != "zebra,apple,mango" {
			t.Errorf("%s: keys = %q, want zebra,apple,mango", body, got)
		}
	}
}

func TestCallTool_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		errMsg string
	}{
		{"handler failure", "/tool/boom", `{}`, http.StatusInternalServerError, "disk on fire"},
		{"invalid json", "/tool/echo", `{not json`, http.StatusBadRequest, "Invalid JSON body"},
		{"unknown tool", "/tool/nope", `{}`, http.StatusNotFound, "Not found"},
		{"unknown route", "/elsewhere", `{}`, http.StatusNotFound, "Not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decode(t, resp)
			if body["error"] != tt.errMsg {
				t.Errorf("error = %v, want %q", body["error"], tt.errMsg)
			}
		})
	}
}

func TestCallTool_InvalidArgumentsIsErrorResult(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/tool/echo", `{"message":42}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode(t, resp)
	result, _ := body["result"].(map[string]any)
	if result["isError"] != true {
		t.Errorf("expected isError result, got %v", result)
	}
}

func TestOptionsPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/tool/echo", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("allow headers = %q", got)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	decode(t, post(t, srv.URL+"/tool/echo", `{}`))

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `mcp8w_tool_calls_total{outcome="ok",tool="echo"} 1`) {
		t.Errorf("metrics missing echo counter:\n%s", data)
	}
}

func TestClient_Call(t *testing.T) {
	srv := newTestServer(t)
	c := &Client{BaseURL: srv.URL + "/"}

	resp, err := c.Call(context.Background(), "echo", map[string]any{"message": "via client"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !resp.OK || resp.Tool != "echo" || !strings.Contains(string(resp.Result), "via client") {
		t.Errorf("unexpected response: %+v", resp)
	}

	_, err = c.Call(context.Background(), "boom", nil)
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestServeContext_Shutdown(t *testing.T) {
	reg := registry.New()
	s := &Server{Registry: reg, Mode: "local"}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeContext(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) && err != nil {
		t.Errorf("ServeContext = %v", err)
	}
}
