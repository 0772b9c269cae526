package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/promptcheck/registry"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Registry.Path != "prompts.js" {
		t.Errorf("expected default registry path prompts.js, got %s", cfg.Registry.Path)
	}
	if cfg.Registry.Anchor != registry.DefaultAnchor {
		t.Errorf("expected default anchor %q, got %q", registry.DefaultAnchor, cfg.Registry.Anchor)
	}
	if cfg.Registry.ScanMode != registry.ScanNaive {
		t.Errorf("expected naive scan mode, got %s", cfg.Registry.ScanMode)
	}
	if len(cfg.Consumers.Paths) != 1 || cfg.Consumers.Paths[0] != "chat.js" {
		t.Errorf("expected default consumer chat.js, got %v", cfg.Consumers.Paths)
	}
	if cfg.Report.AllowDuplicates {
		t.Error("expected duplicates to fail by default")
	}
	if cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("expected debounce 200ms, got %v", cfg.Watch.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing registry path",
			modify:  func(c *Config) { c.Registry.Path = "" },
			wantErr: true,
		},
		{
			name:    "missing anchor",
			modify:  func(c *Config) { c.Registry.Anchor = "" },
			wantErr: true,
		},
		{
			name:    "unknown scan mode",
			modify:  func(c *Config) { c.Registry.ScanMode = "clever" },
			wantErr: true,
		},
		{
			name:    "empty companion anchor",
			modify:  func(c *Config) { c.Registry.Companions = []string{""} },
			wantErr: true,
		},
		{
			name:    "no consumers",
			modify:  func(c *Config) { c.Consumers.Paths = nil },
			wantErr: true,
		},
		{
			name:    "no verbs",
			modify:  func(c *Config) { c.References.Accumulate, c.References.Lookup = nil, nil },
			wantErr: true,
		},
		{
			name:    "missing parser",
			modify:  func(c *Config) { c.Parser = "" },
			wantErr: true,
		},
		{
			name:    "unknown format",
			modify:  func(c *Config) { c.Report.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
registry:
  path: "src/prompts.js"
  scan_mode: string-aware
  companions:
    - export const CODE_GENERATOR_TYPES
consumers:
  paths:
    - "src/**/*.js"
  exclude:
    - "**/vendor/**"
references:
  accumulate: [push, enqueue]
parser: syntax
report:
  format: json
  allow_duplicates: true
watch:
  debounce: 1s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Registry.Path != "src/prompts.js" {
		t.Errorf("expected registry path src/prompts.js, got %s", cfg.Registry.Path)
	}
	if cfg.Registry.Anchor != registry.DefaultAnchor {
		t.Errorf("expected anchor to stay default, got %q", cfg.Registry.Anchor)
	}
	if cfg.Registry.ScanMode != registry.ScanStringAware {
		t.Errorf("expected string-aware scan mode, got %s", cfg.Registry.ScanMode)
	}
	if len(cfg.Registry.Companions) != 1 {
		t.Errorf("expected 1 companion, got %d", len(cfg.Registry.Companions))
	}
	if len(cfg.Consumers.Exclude) != 1 {
		t.Errorf("expected 1 exclude pattern, got %d", len(cfg.Consumers.Exclude))
	}
	if len(cfg.References.Accumulate) != 2 {
		t.Errorf("expected 2 accumulate verbs, got %v", cfg.References.Accumulate)
	}
	if len(cfg.References.Lookup) != 1 || cfg.References.Lookup[0] != "getPrompt" {
		t.Errorf("expected default lookup verb, got %v", cfg.References.Lookup)
	}
	if cfg.Parser != "syntax" {
		t.Errorf("expected parser syntax, got %s", cfg.Parser)
	}
	if cfg.Report.Format != FormatJSON || !cfg.Report.AllowDuplicates {
		t.Errorf("unexpected report config %+v", cfg.Report)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("registry: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Registry: RegistryConfig{
			Path: "lib/prompts.js",
		},
		Report: ReportConfig{
			Verbose: true,
		},
	}

	base.Merge(override)

	if base.Registry.Path != "lib/prompts.js" {
		t.Errorf("expected registry path lib/prompts.js, got %s", base.Registry.Path)
	}
	// Anchor should remain from base since override didn't set it
	if base.Registry.Anchor != registry.DefaultAnchor {
		t.Errorf("expected anchor to remain default, got %s", base.Registry.Anchor)
	}
	if !base.Report.Verbose {
		t.Error("expected verbose to be set")
	}
	if base.Report.Format != FormatText {
		t.Errorf("expected format to remain text, got %s", base.Report.Format)
	}
}

func TestConfigResolvePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/work/app"

	if got := cfg.ResolvePath("src/prompts.js"); got != "/work/app/src/prompts.js" {
		t.Errorf("unexpected relative resolution %s", got)
	}
	if got := cfg.ResolvePath("/abs/prompts.js"); got != "/abs/prompts.js" {
		t.Errorf("absolute path changed to %s", got)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Registry.Path = "saved.js"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Registry.Path != "saved.js" {
		t.Errorf("expected registry path saved.js, got %s", loaded.Registry.Path)
	}
	if loaded.Watch.Debounce != cfg.Watch.Debounce {
		t.Errorf("expected debounce %v, got %v", cfg.Watch.Debounce, loaded.Watch.Debounce)
	}
}
