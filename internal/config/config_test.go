package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// --- Default ---

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Mode != ModeLocal {
		t.Errorf("Mode = %s, want local", cfg.Mode)
	}
	if cfg.HTTP.Addr() != "127.0.0.1:8787" {
		t.Errorf("Addr = %s", cfg.HTTP.Addr())
	}
	if cfg.Docs.Root != DefaultDocsRoot {
		t.Errorf("Docs.Root = %s", cfg.Docs.Root)
	}
	if cfg.DevServer.Port != 5173 {
		t.Errorf("DevServer.Port = %d", cfg.DevServer.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

// --- LoadFromFile ---

func TestLoadFromFile_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := "mode: docs\nhttp:\n  port: 9000\napi:\n  mock: true\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path, false)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Mode != ModeDocs || cfg.HTTP.Port != 9000 || !cfg.API.Mock {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTP.Host != DefaultHost {
		t.Errorf("Host default lost: %s", cfg.HTTP.Host)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("Level = %v", lvl)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := LoadFromFile(missing, true); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
	if _, err := LoadFromFile(missing, false); err == nil {
		t.Error("expected error for required missing file")
	}
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	os.WriteFile(path, []byte("http: [1, 2"), 0o644)
	if _, err := LoadFromFile(path, false); err == nil {
		t.Error("expected parse error")
	}
}

// --- ApplyEnv ---

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"MODE":                 "API",
		"PROJECT_ROOT":         "/work/p",
		"HTTP_PORT":            "8080",
		"EIGHTHWALL_API_BASE":  "https://api.example",
		"EIGHTHWALL_API_KEY":   "k",
		"MOCK_8THWALL":         "1",
		"EIGHTHWALL_DOCS_ROOT": "https://docs.example/docs",
		"HTTP_HOST":            "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Mode != ModeAPI || cfg.ProjectRoot != "/work/p" || cfg.HTTP.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.API.BaseURL != "https://api.example" || cfg.API.Key != "k" || !cfg.API.Mock {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.HTTP.Host != DefaultHost {
		t.Errorf("empty HTTP_HOST should keep default, got %q", cfg.HTTP.Host)
	}
}

func TestApplyEnv_BadPort(t *testing.T) {
	if err := Default().ApplyEnv(env(map[string]string{"HTTP_PORT": "eighty"})); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

// --- Validate ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "remote" }},
		{"port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"devserver", func(c *Config) { c.DevServer.Port = -2 }},
		{"level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestHistoryDir(t *testing.T) {
	cfg := Default()
	cfg.History.Dir = "/tmp/h"
	if cfg.HistoryDir() != "/tmp/h" {
		t.Errorf("HistoryDir = %s", cfg.HistoryDir())
	}
	cfg.History.Dir = ""
	if filepath.Base(cfg.HistoryDir()) != "mcp-8thwall" {
		t.Errorf("default HistoryDir = %s", cfg.HistoryDir())
	}
}
