// Package config holds the server configuration: built-in defaults, an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects which tool groups the server registers.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeDocs  Mode = "docs"
	ModeAPI   Mode = "api"
)

// Modes lists the valid modes.
var Modes = []Mode{ModeLocal, ModeDocs, ModeAPI}

// Defaults.
const (
	DefaultHost          = "127.0.0.1"
	DefaultHTTPPort      = 8787
	DefaultDocsRoot      = "https://www.8thwall.com/docs"
	DefaultDevServerPort = 5173
	DefaultLogLevel      = "info"
	FileName             = "config.yaml"
)

// Config is the full server configuration.
type Config struct {
	Mode        Mode      `yaml:"mode"`
	ProjectRoot string    `yaml:"project_root"`
	DesktopRoot string    `yaml:"desktop_root"`
	HTTP        HTTP      `yaml:"http"`
	Docs        Docs      `yaml:"docs"`
	API         API       `yaml:"api"`
	History     History   `yaml:"history"`
	DevServer   DevServer `yaml:"devserver"`
	LogLevel    string    `yaml:"log_level"`
}

// HTTP configures the HTTP bridge.
type HTTP struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr is host:port.
func (h HTTP) Addr() string {
	return h.Host + ":" + strconv.Itoa(h.Port)
}

// Docs configures the docs tools.
type Docs struct {
	Root string `yaml:"root"`
}

// API configures the apps API client.
type API struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Mock    bool   `yaml:"mock"`
}

// History configures the scene revision journal.
type History struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DevServer configures the static dev server.
type DevServer struct {
	Port int `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:      ModeLocal,
		HTTP:      HTTP{Host: DefaultHost, Port: DefaultHTTPPort},
		Docs:      Docs{Root: DefaultDocsRoot},
		History:   History{Enabled: true},
		DevServer: DevServer{Port: DefaultDevServerPort},
		LogLevel:  DefaultLogLevel,
	}
}

// DefaultPath is the config file looked up when none is given:
// $XDG_CONFIG_HOME/mcp-8thwall/config.yaml or ~/.config/mcp-8thwall/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mcp-8thwall", FileName)
}

// LoadFromFile overlays the YAML file at path onto the defaults. A missing
// file is not an error when optional is true.
func LoadFromFile(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var mode string
	str("MODE", &mode)
	if mode != "" {
		c.Mode = Mode(strings.ToLower(mode))
	}
	str("PROJECT_ROOT", &c.ProjectRoot)
	str("EIGHTHWALL_DESKTOP_ROOT", &c.DesktopRoot)
	str("HTTP_HOST", &c.HTTP.Host)
	str("EIGHTHWALL_DOCS_ROOT", &c.Docs.Root)
	str("EIGHTHWALL_API_BASE", &c.API.BaseURL)
	str("EIGHTHWALL_API_KEY", &c.API.Key)
	str("MCP8W_HISTORY_DIR", &c.History.Dir)
	str("MCP8W_LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup("MOCK_8THWALL"); ok {
		c.API.Mock = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := lookup("HTTP_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.HTTP.Port = p
	}
	return nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if !c.Mode.Valid() {
		errs = append(errs, fmt.Errorf("mode %q must be one of local, docs, api", c.Mode))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.DevServer.Port < 0 || c.DevServer.Port > 65535 {
		errs = append(errs, fmt.Errorf("devserver.port %d out of range", c.DevServer.Port))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, k := range Modes {
		if m == k {
			return true
		}
	}
	return false
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// HistoryDir returns the journal directory, defaulting to the user cache
// directory.
func (c *Config) HistoryDir() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "mcp-8thwall")
	}
	return filepath.Join(os.TempDir(), "mcp-8thwall")
}
