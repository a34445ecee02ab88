// Package httpbridge exposes the tool registry over plain HTTP/JSON so tools
// can be driven with curl or from a browser during development.
//
//	GET  /            service descriptor
//	GET  /tools       tool listing
//	POST /tool/{name} invoke; body is the arguments object or {"args": {...}}
//	GET  /metrics     Prometheus exposition
package httpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/registry"
)

// RequestIDHeader carries the per-request id on every response.
const RequestIDHeader = "X-Request-Id"

// maxBody bounds POST bodies.
const maxBody = 8 << 20

// Endpoint describes one route in the GET / descriptor.
type Endpoint struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Desc   string `json:"desc"`
}

var endpoints = []Endpoint{
	{Path: "/tools", Method: http.MethodGet, Desc: "List available tools"},
	{Path: "/tool/:name", Method: http.MethodPost, Desc: "Invoke a tool with JSON args"},
	{Path: "/metrics", Method: http.MethodGet, Desc: "Prometheus metrics"},
}

// Server serves a registry over HTTP.
type Server struct {
	Registry *registry.Registry
	Mode     string
	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Serve starts listening on addr.
func (s *Server) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext listens on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeContext(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger().Info("HTTP tool bridge listening", "url", "http://"+addr+"/", "mode", s.Mode)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the bridge's http.Handler.
func (s *Server) Handler() http.Handler {
	var metrics http.Handler
	if s.Gatherer != nil {
		metrics = promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		setCORS(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		path := strings.TrimRight(r.URL.Path, "/")
		switch {
		case r.Method == http.MethodGet && path == "":
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mode": s.Mode, "endpoints": endpoints})
		case r.Method == http.MethodGet && path == "/tools":
			writeJSON(w, http.StatusOK, map[string]any{"tools": s.Registry.List()})
		case r.Method == http.MethodGet && path == "/metrics" && metrics != nil:
			metrics.ServeHTTP(w, r)
		case r.Method == http.MethodPost && strings.HasPrefix(path, "/tool/"):
			s.handleTool(w, r, id, strings.TrimPrefix(r.URL.EscapedPath(), "/tool/"))
		default:
			notFound(w)
		}
	})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request, id, rawName string) {
	name, err := url.PathUnescape(strings.TrimRight(rawName, "/"))
	if err != nil {
		notFound(w)
		return
	}
	if _, ok := s.Registry.Lookup(name); !ok {
		notFound(w)
		return
	}

	args, err := readArgs(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
		return
	}

	log := s.logger().With("request_id", id, "tool", name)
	res, err := s.Registry.Dispatch(r.Context(), name, args)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownTool) {
			notFound(w)
			return
		}
		log.Warn("tool call failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "tool": name, "error": err.Error()})
		return
	}
	log.Debug("tool call ok", "isError", res != nil && res.IsError)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tool": name, "result": res})
}

// readArgs decodes a request body. An empty body is {}; an object with a
// non-null "args" member yields that member; any other non-object is {}.
// Nested objects keep their key order.
func readArgs(body io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBody))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, nil
	}
	v, err := doc.Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.AsObject(v)
	if !ok {
		return map[string]any{}, nil
	}
	if inner, present := obj.Get("args"); present && inner != nil {
		return registry.ObjectArgs(inner), nil
	}
	return registry.ObjectArgs(obj), nil
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not found"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
