// Package registry holds the server's tools and invokes them the same way
// for every transport.
//
// A tool is an mcp.Tool definition plus a handler. The definition's input
// schema is the tool's argument contract: Dispatch checks arguments against
// it and fills declared defaults before the handler runs, so handlers can
// read arguments without re-validating them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrUnknownTool is matched by errors.Is for every *UnknownToolError.
var ErrUnknownTool = errors.New("unknown tool")

// UnknownToolError is returned by Dispatch for unregistered names.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

func (e *UnknownToolError) Is(target error) bool { return target == ErrUnknownTool }

// Tool pairs a definition with its handler.
type Tool struct {
	Definition mcp.Tool
	Handler    server.ToolHandlerFunc
}

// Entry is the public listing of a tool.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRegisterer registers the registry's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Registry) { r.metricsReg = reg }
}

// WithContext decorates the context handed to every handler, for example
// to tag document writes with the tool name.
func WithContext(fn func(ctx context.Context, tool string) context.Context) Option {
	return func(r *Registry) { r.decorate = fn }
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	order   []string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
	decorate   func(context.Context, string) context.Context

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
		logger:  slog.Default(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp8w_tool_calls_total",
			Help: "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcp8w_tool_call_duration_seconds",
			Help:    "Tool handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metricsReg != nil {
		r.metricsReg.MustRegister(r.calls, r.duration)
	}
	return r
}

// Register adds a tool. Names must be unique and the input schema must
// compile.
func (r *Registry) Register(t Tool) error {
	name := t.Definition.Name
	if name == "" {
		return errors.New("registry: tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("registry: tool %q has no handler", name)
	}
	compiled, err := Compile(name, t.Definition.InputSchema)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("registry: tool %q already registered", name)
	}
	r.tools[name] = t
	r.schemas[name] = compiled
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for static tool tables.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every tool in registration order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Entry{Name: name, Description: r.tools[name].Definition.Description})
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Dispatch invokes the named tool with args. Invalid arguments produce an
// error result; handler errors are returned untranslated.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	t, ok := r.Lookup(name)
	if !ok {
		r.calls.WithLabelValues(name, "unknown").Inc()
		return nil, &UnknownToolError{Name: name}
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return r.invoke(ctx, t, req)
}

// Bind registers every tool on an MCP server. Calls arriving over MCP go
// through the same validation and instrumentation as Dispatch.
func (r *Registry) Bind(s *server.MCPServer) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		t := r.tools[name]
		s.AddTool(t.Definition, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return r.invoke(ctx, t, req)
		})
	}
}

func (r *Registry) invoke(ctx context.Context, t Tool, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := t.Definition.Name
	r.mu.RLock()
	compiled := r.schemas[name]
	r.mu.RUnlock()
	args, err := validate(compiled, t.Definition.InputSchema, req.GetArguments())
	if err != nil {
		r.calls.WithLabelValues(name, "invalid").Inc()
		r.logger.Warn("tool arguments rejected", "tool", name, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments for %s: %v", name, err)), nil
	}
	req.Params.Name = name
	req.Params.Arguments = args
	if r.decorate != nil {
		ctx = r.decorate(ctx, name)
	}

	start := time.Now()
	res, err := t.Handler(ctx, req)
	elapsed := time.Since(start)
	r.duration.WithLabelValues(name).Observe(elapsed.Seconds())

	switch {
	case err != nil:
		r.calls.WithLabelValues(name, "error").Inc()
		r.logger.Warn("tool failed", "tool", name, "err", err, "elapsed", elapsed)
	case res != nil && res.IsError:
		r.calls.WithLabelValues(name, "tool_error").Inc()
		r.logger.Debug("tool returned error result", "tool", name, "elapsed", elapsed)
	default:
		r.calls.WithLabelValues(name, "ok").Inc()
		r.logger.Debug("tool ok", "tool", name, "elapsed", elapsed)
	}
	return res, err
}
