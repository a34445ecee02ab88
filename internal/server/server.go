// Package server wires all components and creates the server instance.
//
// This is the composition root: it creates the concrete collaborators from
// the configuration and injects them into the tools, prompts and resources.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mcp-8thwall/mcp-8thwall/internal/catalog"
	"github.com/mcp-8thwall/mcp-8thwall/internal/config"
	"github.com/mcp-8thwall/mcp-8thwall/internal/devserver"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docs"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
	"github.com/mcp-8thwall/mcp-8thwall/internal/eighthwall"
	"github.com/mcp-8thwall/mcp-8thwall/internal/history"
	"github.com/mcp-8thwall/mcp-8thwall/internal/httpbridge"
	"github.com/mcp-8thwall/mcp-8thwall/internal/project"
	"github.com/mcp-8thwall/mcp-8thwall/internal/prompts"
	"github.com/mcp-8thwall/mcp-8thwall/internal/registry"
	"github.com/mcp-8thwall/mcp-8thwall/internal/resources"
	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
	"github.com/mcp-8thwall/mcp-8thwall/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the MCP server name.
const Name = "mcp-8thwall"

// Server holds the wired components. Both transports share one Registry.
type Server struct {
	MCP      *server.MCPServer
	Registry *registry.Registry
	Metrics  *prometheus.Registry
	Config   *config.Config
	Logger   *slog.Logger
}

// New creates the registry and the MCP server with all tools, prompts and
// resources registered. This is the single place where all dependencies
// are resolved.
//
// The returned cleanup function stops the dev server and closes the
// history journal. It is always non-nil and safe to call even if New
// failed part way.
func New(cfg *config.Config, logger *slog.Logger) (*Server, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, noop, fmt.Errorf("invalid config: %w", err)
	}

	// --- Create shared dependencies ---

	home, _ := os.UserHomeDir()
	session := project.NewSession(project.DiscoverOptions{
		Override:    cfg.ProjectRoot,
		DesktopRoot: cfg.DesktopRoot,
		Home:        home,
	})

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, noop, fmt.Errorf("creating template renderer: %w", err)
	}

	docsClient, err := docs.New(cfg.Docs.Root)
	if err != nil {
		return nil, noop, fmt.Errorf("docs root: %w", err)
	}

	// History is an independent subsystem: if it fails to open, editing
	// keeps working without revisions.
	cleanup := noop
	var journal *history.Journal
	storeOpts := []docstore.Option{docstore.WithLogger(logger)}
	if cfg.History.Enabled {
		hc := history.DefaultConfig()
		hc.DataDir = cfg.HistoryDir()
		j, err := history.New(hc)
		if err != nil {
			logger.Warn("scene history disabled", "err", err)
		} else {
			journal = j
			storeOpts = append(storeOpts, docstore.WithRecorder(j))
			cleanup = func() {
				if err := j.Close(); err != nil {
					logger.Warn("history close", "err", err)
				}
			}
		}
	}
	store := docstore.New(storeOpts...)

	polyHaven := catalog.NewPolyHaven()
	devServer := devserver.NewManager(logger)

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// --- Register tools ---

	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithRegisterer(metrics),
		registry.WithContext(docstore.WithReason),
	)
	reg.MustRegister(tools.All(tools.Deps{
		Session:       session,
		Store:         store,
		History:       journal,
		Renderer:      renderer,
		PolyHaven:     polyHaven,
		Searcher:      &catalog.Searcher{PolyHaven: polyHaven, Logger: logger},
		DevServer:     devServer,
		DevServerPort: cfg.DevServer.Port,
		Docs:          docsClient,
		Apps:          eighthwall.New(cfg.API.BaseURL, cfg.API.Key, cfg.API.Mock),
	}, cfg.Mode)...)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(cfg.Mode)),
	)
	reg.Bind(s)

	// --- Register prompts ---

	strategyPrompt := prompts.NewAssetStrategyPrompt()
	s.AddPrompt(strategyPrompt.Definition(), strategyPrompt.Handle)

	if cfg.Mode == config.ModeLocal {
		statusPrompt := prompts.NewSceneStatusPrompt(session, store)
		s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

		// --- Register resources ---

		resourceHandler := resources.NewHandler(session, store)
		s.AddResource(resourceHandler.SceneResource(), resourceHandler.HandleScene)
		s.AddResource(resourceHandler.ProjectResource(), resourceHandler.HandleProject)
	}

	logger.Info("server ready", "mode", cfg.Mode, "tools", reg.Len(), "root", session.Root())

	srv := &Server{
		MCP:      s,
		Registry: reg,
		Metrics:  metrics,
		Config:   cfg,
		Logger:   logger,
	}
	closeAll := func() {
		if _, _, err := devServer.Stop(context.Background()); err != nil {
			logger.Warn("dev server stop", "err", err)
		}
		cleanup()
	}
	return srv, closeAll, nil
}

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCP)
}

// ServeHTTP serves the HTTP bridge on the configured address until ctx is
// cancelled.
func (s *Server) ServeHTTP(ctx context.Context) error {
	bridge := &httpbridge.Server{
		Registry: s.Registry,
		Mode:     string(s.Config.Mode),
		Gatherer: s.Metrics,
		Logger:   s.Logger,
	}
	return bridge.ServeContext(ctx, s.Config.HTTP.Addr())
}

// noop is the default cleanup when nothing needs closing.
func noop() {}

func serverInstructions(mode config.Mode) string {
	switch mode {
	case config.ModeDocs:
		return `You have access to the 8th Wall documentation through mcp-8thwall.
Use docs_search to find pages by keyword and docs_get_page to read one as Markdown.`
	case config.ModeAPI:
		return `You have access to the 8th Wall apps API through mcp-8thwall.
Use app_list to enumerate apps and app_get for a single app.`
	}
	return `You have access to mcp-8thwall, a toolbox for editing 8th Wall projects on disk.

## PROJECT
Start with project_get_root. If it is not the project the user means, use
desktop_list_projects and desktop_set_project, or project_set_root with a path.
All paths are relative to the project root; paths that escape it are rejected.

## SCENE DOCUMENT
Desktop projects keep their scene in .expanse.json (or src/.expanse.json).
- desktop_list_objects, desktop_add_shape, desktop_add_model, desktop_add_light,
  desktop_update_object and desktop_remove_object edit objects by name or id.
- desktop_read_json, desktop_patch_json and desktop_insert_json edit by JSON pointer.
  Pass expectedVersion from a previous read to avoid overwriting concurrent edits.
- desktop_repair_scene fixes missing ids, parents and spaces.
- scene_history and scene_restore undo writes made through this server.

## COMPONENTS AND CODE
- desktop_add_custom_component writes an A-Frame component and registers it as a script.
- generate_custom_javascript and validate_javascript produce and check component code.
- list_templates and apply_experience_template install complete experiences.

## ASSETS
search_ar_assets searches local assets, Poly Haven and Poly Pizza together.
assets_download_url and assets_unzip bring files into assets/.

## PREVIEW
devserver_start serves the project with live reload; devserver_stop stops it.`
}
