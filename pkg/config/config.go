package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Feature int

const (
	FeatFold Feature = iota
	FeatExtendedWhitespace
	FeatCount
)

type Warning int

const (
	WarnOverflow Warning = iota
	WarnEmptyStmt
	WarnKeywordCase
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	Format     string
	QbeTarget  string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		Format:     "text",
	}

	features := map[Feature]Info{
		FeatFold:               {"fold", false, "Fold constant sub-expressions before evaluation."},
		FeatExtendedWhitespace: {"extended-ws", false, "Treat tab and carriage return as whitespace."},
	}

	warnings := map[Warning]Info{
		WarnOverflow:    {"overflow", true, "Warn when an integer literal does not fit in 64 signed bits."},
		WarnEmptyStmt:   {"empty-stmt", false, "Warn about empty statements in a statement list."},
		WarnKeywordCase: {"keyword-case", true, "Warn when an identifier spells BEGIN or END in another case."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// WarningName returns the switch name of wt, as shown after [-W...].
func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// ApplyFlag applies a single -W<name>, -Wno-<name>, -F<name> or -Fno-<name>
// switch. Unknown names are reported as errors.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		return fmt.Errorf("unrecognized switch '%s'", flag)
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// ProcessFlags applies switches in two passes so that -Wall and -Wno-all
// never override a more specific switch given on the same command line.
func (c *Config) ProcessFlags(flags []string) error {
	for _, name := range flags {
		if name == "-Wall" || name == "-Wno-all" {
			if err := c.ApplyFlag(name); err != nil {
				return err
			}
		}
	}
	for _, name := range flags {
		if name != "-Wall" && name != "-Wno-all" {
			if err := c.ApplyFlag(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// File is the on-disk shape of a configuration file.
type File struct {
	Features map[string]bool `toml:"features" yaml:"features"`
	Warnings map[string]bool `toml:"warnings" yaml:"warnings"`
	Format   string          `toml:"format" yaml:"format"`
}

// LoadFile reads a .toml, .yaml or .yml file and applies it to c.
func (c *Config) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &f); err != nil {
			return fmt.Errorf("%s: YAML parse error: %w", path, err)
		}
	case ".toml", "":
		if _, err := toml.Decode(string(content), &f); err != nil {
			return fmt.Errorf("%s: TOML parse error: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: unsupported config format", path)
	}
	return c.Apply(f)
}

// Apply merges the settings of f into c.
func (c *Config) Apply(f File) error {
	for name, on := range f.Features {
		ft, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(ft, on)
	}
	for name, on := range f.Warnings {
		wt, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(wt, on)
	}
	if f.Format != "" {
		c.Format = f.Format
	}
	return nil
}
