// mcp-8thwall: MCP tool server for 8th Wall projects.
//
// Serves tools for editing 8th Wall scene documents, components and assets
// over MCP stdio, and the same tools over a small HTTP/JSON bridge.
//
// Usage:
//
//	mcp-8thwall serve            # MCP over stdio
//	mcp-8thwall http --port 8787 # HTTP bridge
//	mcp-8thwall call health_ping --args '{"message":"hi"}'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/mcp-8thwall/mcp-8thwall/internal/codegen"
	"github.com/mcp-8thwall/mcp-8thwall/internal/config"
	"github.com/mcp-8thwall/mcp-8thwall/internal/httpbridge"
	"github.com/mcp-8thwall/mcp-8thwall/internal/registry"
	appserver "github.com/mcp-8thwall/mcp-8thwall/internal/server"
	"github.com/mcp-8thwall/mcp-8thwall/internal/templates"
	"github.com/mcp-8thwall/mcp-8thwall/internal/updater"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	mode        modeValue
	projectRoot string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mcp-8thwall",
		Short:         "MCP tool server for 8th Wall projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       appserver.Version,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML); defaults to the user config dir")
	pf.Var(&g.mode, "mode", "Tool set: local, docs or api")
	pf.StringVar(&g.projectRoot, "project-root", "", "Project directory; overrides discovery")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(g),
		newHTTPCmd(g),
		newCallCmd(g),
		newAddShapeCmd(g),
		newWrapCmd(),
		newVersionCmd(),
	)
	return root
}

// load resolves the configuration: defaults < file < env < flags.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, optional := g.configPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	cfg, err := config.LoadFromFile(path, optional)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = config.Mode(g.mode)
	}
	if flags.Changed("project-root") {
		cfg.ProjectRoot = g.projectRoot
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	// stdout carries the MCP stream; logs go to stderr.
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var noUpdateCheck bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			srv, cleanup, err := appserver.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			if !noUpdateCheck {
				go checkForUpdates(cmd.ErrOrStderr())
			}
			return srv.ServeStdio()
		},
	}
	cmd.Flags().BoolVar(&noUpdateCheck, "no-update-check", false, "Skip the background release check")
	return cmd
}

func newHTTPCmd(g *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the tools over the HTTP/JSON bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.HTTP.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			srv, cleanup, err := appserver.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ServeHTTP(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Listen host")
	cmd.Flags().IntVar(&port, "port", config.DefaultHTTPPort, "Listen port")
	return cmd
}

func newCallCmd(g *globalFlags) *cobra.Command {
	var (
		rawArgs string
		baseURL string
	)
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool, in process or against a running HTTP bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := registry.DecodeArgs([]byte(rawArgs))
			if err != nil {
				return fmt.Errorf("--args: %w", err)
			}

			if baseURL != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
				defer cancel()
				client := &httpbridge.Client{BaseURL: baseURL}
				resp, err := client.Call(ctx, args[0], toolArgs)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}

			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			res, err := dispatch(cmd.Context(), cfg, logger, args[0], toolArgs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", "Tool arguments as a JSON object")
	cmd.Flags().StringVar(&baseURL, "url", "", "HTTP bridge base URL, e.g. http://127.0.0.1:8787")
	return cmd
}

func newAddShapeCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add-shape <project> <shape> <name> <x> <y> <z> [color]",
		Short:   "Add a primitive shape to a project's scene document",
		Example: `  mcp-8thwall add-shape ~/Documents/8th\ Wall/fire4 cube "Green Cube" 1 0.5 -2 "#00FF00"`,
		Args:    cobra.RangeArgs(6, 7),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos := make([]any, 3)
			for i, s := range args[3:6] {
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return fmt.Errorf("coordinate %q: %w", s, err)
				}
				pos[i] = f
			}
			toolArgs := map[string]any{"shape": args[1], "name": args[2], "position": pos}
			if len(args) == 7 {
				toolArgs["color"] = args[6]
			}

			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			cfg.Mode = config.ModeLocal
			cfg.ProjectRoot = args[0]
			res, err := dispatch(cmd.Context(), cfg, logger, "desktop_add_shape", toolArgs)
			if err != nil {
				return err
			}
			text := resultText(res)
			if res.IsError {
				return errors.New(text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	// Coordinates may be negative; everything after <project> is positional.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newWrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wrap-components [dir]",
		Short: "Wrap A-Frame component files in the load-safe registration guard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "src/components"
			if len(args) == 1 {
				dir = args[0]
			}
			renderer, err := templates.NewRenderer()
			if err != nil {
				return err
			}
			reports, err := codegen.WrapDir(renderer, dir)
			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "%-32s %s\n", r.File, r.Status)
			}
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appserver.Name, appserver.Version)
			if !check {
				return nil
			}
			result, err := (&updater.Checker{}).Check(cmd.Context(), appserver.Version)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if result.UpdateAvailable {
				fmt.Fprintln(cmd.OutOrStdout(), result.Notice())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Already at the latest version (v%s)\n", result.CurrentVersion)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Compare with the latest release")
	return cmd
}

// dispatch runs a single tool in process.
func dispatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, name string, args map[string]any) (*mcp.CallToolResult, error) {
	srv, cleanup, err := appserver.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()
	return srv.Registry.Dispatch(ctx, name, args)
}

// checkForUpdates prints a notice to w when a newer release exists.
// Network failures are ignored.
func checkForUpdates(w io.Writer) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := (&updater.Checker{}).Check(ctx, appserver.Version)
	if err != nil || !result.UpdateAvailable {
		return
	}
	fmt.Fprintln(w, result.Notice())
}

func resultText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
