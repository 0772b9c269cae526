// Package config provides configuration loading and management for promptcheck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/promptcheck/reference"
	"github.com/c360studio/promptcheck/registry"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the complete promptcheck configuration
type Config struct {
	Registry   RegistryConfig  `yaml:"registry"`
	Consumers  ConsumersConfig `yaml:"consumers"`
	References reference.Verbs `yaml:"references"`
	// Parser is the extraction backend: lexical, syntax or auto.
	Parser string       `yaml:"parser"`
	Report ReportConfig `yaml:"report"`
	Watch  WatchConfig  `yaml:"watch"`
	// Root is the directory relative paths resolve against (detected if empty)
	Root string `yaml:"root,omitempty"`
}

// RegistryConfig locates the prompt registry declaration
type RegistryConfig struct {
	// Path is the module that declares the registry
	Path string `yaml:"path"`
	// Anchor is the text preceding the registry object literal
	Anchor string `yaml:"anchor"`
	// ScanMode is naive (count every brace) or string-aware
	ScanMode registry.ScanMode `yaml:"scan_mode"`
	// Companions are anchors of maps in the registry module whose keys must
	// all be declared templates (e.g. "export const CODE_GENERATOR_TYPES")
	Companions []string `yaml:"companions,omitempty"`
}

// ConsumersConfig selects the consumer modules to scan for references
type ConsumersConfig struct {
	// Paths are files or doublestar globs (e.g. "src/**/*.js")
	Paths []string `yaml:"paths"`
	// Exclude are doublestar patterns matched against root-relative paths
	Exclude []string `yaml:"exclude,omitempty"`
}

// ReportConfig controls output and the success policy
type ReportConfig struct {
	// Format is text or json
	Format string `yaml:"format"`
	// MetricsFile, if set, receives a Prometheus textfile after each check
	MetricsFile string `yaml:"metrics_file,omitempty"`
	// AllowDuplicates keeps duplicate declarations from failing the check
	AllowDuplicates bool `yaml:"allow_duplicates"`
	// Verbose adds reference locations to the text report
	Verbose bool `yaml:"verbose"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is the quiet period before a change triggers a re-check
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Path:       "prompts.js",
			Anchor:     registry.DefaultAnchor,
			ScanMode:   registry.ScanNaive,
			Companions: nil,
		},
		Consumers: ConsumersConfig{
			Paths: []string{"chat.js"},
		},
		References: reference.DefaultVerbs(),
		Parser:     "lexical",
		Report: ReportConfig{
			Format: FormatText,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Registry.Path == "" {
		return fmt.Errorf("registry.path is required")
	}
	if c.Registry.Anchor == "" {
		return fmt.Errorf("registry.anchor is required")
	}
	if !c.Registry.ScanMode.Valid() {
		return fmt.Errorf("registry.scan_mode must be %q or %q, got %q",
			registry.ScanNaive, registry.ScanStringAware, c.Registry.ScanMode)
	}
	for i, anchor := range c.Registry.Companions {
		if anchor == "" {
			return fmt.Errorf("registry.companions[%d] is empty", i)
		}
	}
	if len(c.Consumers.Paths) == 0 {
		return fmt.Errorf("consumers.paths is required")
	}
	if err := c.References.Validate(); err != nil {
		return fmt.Errorf("references: %w", err)
	}
	if c.Parser == "" {
		return fmt.Errorf("parser is required")
	}
	if c.Report.Format != FormatText && c.Report.Format != FormatJSON {
		return fmt.Errorf("report.format must be %q or %q, got %q", FormatText, FormatJSON, c.Report.Format)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// ResolvePath returns p made absolute against Root.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// decodeFile decodes the YAML file at path over config.
func decodeFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Registry
	if other.Registry.Path != "" {
		c.Registry.Path = other.Registry.Path
	}
	if other.Registry.Anchor != "" {
		c.Registry.Anchor = other.Registry.Anchor
	}
	if other.Registry.ScanMode != "" {
		c.Registry.ScanMode = other.Registry.ScanMode
	}
	if len(other.Registry.Companions) > 0 {
		c.Registry.Companions = other.Registry.Companions
	}

	// Consumers
	if len(other.Consumers.Paths) > 0 {
		c.Consumers.Paths = other.Consumers.Paths
	}
	if len(other.Consumers.Exclude) > 0 {
		c.Consumers.Exclude = other.Consumers.Exclude
	}

	// References
	if len(other.References.Accumulate) > 0 {
		c.References.Accumulate = other.References.Accumulate
	}
	if len(other.References.Lookup) > 0 {
		c.References.Lookup = other.References.Lookup
	}

	if other.Parser != "" {
		c.Parser = other.Parser
	}

	// Report
	if other.Report.Format != "" {
		c.Report.Format = other.Report.Format
	}
	if other.Report.MetricsFile != "" {
		c.Report.MetricsFile = other.Report.MetricsFile
	}
	if other.Report.AllowDuplicates {
		c.Report.AllowDuplicates = true
	}
	if other.Report.Verbose {
		c.Report.Verbose = true
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Root != "" {
		c.Root = other.Root
	}
}
