package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for covreport.
type Config struct {
	// Cobertura report settings
	Cobertura CoberturaConfig `koanf:"cobertura" toml:"cobertura"`

	// Report tree settings
	Report ReportConfig `koanf:"report" toml:"report"`

	// Coverage input handling
	Input InputConfig `koanf:"input" toml:"input"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// CoberturaConfig controls the Cobertura XML report.
type CoberturaConfig struct {
	ProjectRoot   string `koanf:"project_root" toml:"project_root"` // defaults to the working directory
	File          string `koanf:"file" toml:"file"`
	DetectGitRoot bool   `koanf:"detect_git_root" toml:"detect_git_root"`
}

// ReportConfig controls where reports go and how files are grouped.
type ReportConfig struct {
	Dir        string `koanf:"dir" toml:"dir"`
	Summarizer string `koanf:"summarizer" toml:"summarizer"` // flat, pkg, nested
}

// InputConfig controls how coverage JSON files are read.
type InputConfig struct {
	Validate bool `koanf:"validate" toml:"validate"`
	Dedupe   bool `koanf:"dedupe" toml:"dedupe"`
	Workers  int  `koanf:"workers" toml:"workers"` // 0 means 2x NumCPU
}

// ExcludeConfig defines covered files to drop before reporting.
type ExcludeConfig struct {
	Patterns []string `koanf:"patterns" toml:"patterns"`
	Dirs     []string `koanf:"dirs" toml:"dirs"`
}

// OutputConfig controls summary output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

var (
	validSummarizers = []string{"flat", "pkg", "nested"}
	validFormats     = []string{"text", "json", "markdown", "md", "toon", "yaml"}
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cobertura: CoberturaConfig{
			File: "cobertura-coverage.xml",
		},
		Report: ReportConfig{
			Dir:        "coverage",
			Summarizer: "pkg",
		},
		Input: InputConfig{
			Validate: false,
			Dedupe:   true,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				"node_modules",
				"vendor",
			},
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// configNames are searched, in order, by Find.
var configNames = []string{
	"covreport.toml",
	"covreport.yaml",
	"covreport.yml",
	"covreport.json",
	".covreport.toml",
	".covreport.yaml",
	".covreport.yml",
	".covreport.json",
}

// Find returns the first config file in the standard locations, or "".
func Find() string {
	for _, dir := range []string{".", ".covreport"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Find(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !contains(validSummarizers, strings.ToLower(c.Report.Summarizer)) {
		return fmt.Errorf("report.summarizer: unknown value %q (want one of %s)",
			c.Report.Summarizer, strings.Join(validSummarizers, ", "))
	}
	if !contains(validFormats, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("output.format: unknown value %q (want one of %s)",
			c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Input.Workers < 0 {
		return fmt.Errorf("input.workers: must not be negative (got %d)", c.Input.Workers)
	}
	for _, p := range c.Exclude.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("exclude.patterns: %q: %w", p, err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ShouldExclude checks if a covered file should be left out of reports.
func (c *Config) ShouldExclude(path string) bool {
	slashed := filepath.ToSlash(path)

	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(slashed, "/"+dir+"/") || strings.HasPrefix(slashed, dir+"/") {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, slashed); matched {
			return true
		}
	}

	return false
}
