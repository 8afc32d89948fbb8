// Package config loads the settings that govern a jinjac build: where
// templates live, where generated Go source goes, the default escaping
// mode, per-extension overrides of that default, and the include-depth
// guard of spec.md §5. It is one of the "external collaborators" spec.md §1
// scopes out of the core; cmd/jinjac wires it into host.TypeDescriptor and
// the generator.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deicod/jinjac/host"
)

// Config is the on-disk shape of a jinjac.yaml file.
type Config struct {
	TemplateDir string `yaml:"template_dir"`
	OutputDir   string `yaml:"output_dir"`

	// DefaultEscaping is "html" or "none"; applied when a template's
	// extension has no usable entry in Extensions, whatever that extension
	// is. host.EscapeModeForPath is consulted only when this value is
	// neither "html" nor "none".
	DefaultEscaping string `yaml:"default_escaping"`

	// Extensions maps a file extension (including the leading dot, e.g.
	// ".jinja") to an escaping mode, overriding the file-extension
	// heuristic host.EscapeModeForPath otherwise applies.
	Extensions map[string]string `yaml:"extensions"`

	// IncludeDepthLimit is loaded and defaulted here (zero or less means
	// "use the default" of 32). The generator does not read it: include
	// recursion is bounded by the compiler's own fixed limit of 32.
	IncludeDepthLimit int `yaml:"include_depth_limit"`
}

// Default returns a Config with the documented defaults applied: HTML
// escaping by default and an include depth limit of 32.
func Default() Config {
	return Config{
		TemplateDir:       "templates",
		OutputDir:         "gen",
		DefaultEscaping:   "html",
		IncludeDepthLimit: 32,
	}
}

// Load reads a YAML config document from r, starting from Default() so that
// a document overriding only a handful of fields still produces a complete
// Config.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.IncludeDepthLimit <= 0 {
		cfg.IncludeDepthLimit = 32
	}
	return cfg, nil
}

// LoadFile opens path and parses it via Load. A missing file is not an
// error: it yields Default(), since every field has a sensible default and
// a bare `jinjac generate` with no config file is a supported flow.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// escapeMode parses one of the two accepted YAML values for an escaping
// setting ("html" or "none"); any other value falls back to ok=false so
// the caller can apply its own default.
func escapeMode(s string) (host.EscapeMode, bool) {
	switch s {
	case "html":
		return host.EscapeHTML, true
	case "none":
		return host.EscapeNone, true
	default:
		return host.EscapeNone, false
	}
}

// EscapingFor resolves the escaping mode for a template path: an
// Extensions entry for its extension wins first, then DefaultEscaping,
// then host.EscapeModeForPath's file-extension heuristic.
func (c Config) EscapingFor(templatePath string) host.EscapeMode {
	ext := strings.ToLower(filepath.Ext(templatePath))
	if v, ok := c.Extensions[ext]; ok {
		if m, ok := escapeMode(v); ok {
			return m
		}
	}
	if m, ok := escapeMode(c.DefaultEscaping); ok {
		return m
	}
	return host.EscapeModeForPath(templatePath)
}
