package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deicod/jinjac/compiler"
	"github.com/deicod/jinjac/config"
	"github.com/deicod/jinjac/host"
	"github.com/deicod/jinjac/nodes"
	"github.com/deicod/jinjac/parser"
)

type generateOptions struct {
	configPath string
	hostType   string
	outDir     string
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go source implementing one template's host type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "jinjac.yaml", "path to the jinjac config file")
	cmd.Flags().StringVar(&opts.hostType, "host-type", "", "path to the host type descriptor YAML file")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "override the config's output directory")
	_ = cmd.MarkFlagRequired("host-type")
	return cmd
}

func runGenerate(opts *generateOptions) error {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return err
	}
	outDir := cfg.OutputDir
	if opts.outDir != "" {
		outDir = opts.outDir
	}

	f, err := os.Open(opts.hostType)
	if err != nil {
		return fmt.Errorf("opening host type descriptor: %w", err)
	}
	td, err := host.LoadTypeDescriptor(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("loading host type descriptor %q: %w", opts.hostType, err)
	}
	// The config's escaping policy (default plus per-extension overrides)
	// takes precedence over the bare file-extension heuristic the
	// descriptor file falls back to on its own.
	td.Escaping = cfg.EscapingFor(td.Path)

	loader := host.FileSystemLoader{Root: cfg.TemplateDir}
	src, err := loader.ReadTemplate(td.Path)
	if err != nil {
		return fmt.Errorf("reading template %q: %w", td.Path, err)
	}

	imported, err := resolveImports(loader, src, td.Path)
	if err != nil {
		return err
	}

	out, err := compiler.Generate(src, td.Path, td, loader, imported)
	if err != nil {
		return err
	}

	destName := td.Ident + "_jinjac.go"
	dest := filepath.Join(outDir, destName)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %q: %w", outDir, err)
	}
	if err := os.WriteFile(dest, []byte(wrapSource(cfg, out)), 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", dest, err)
	}
	return nil
}

// wrapSource prefixes the generator's emitted method bodies with the
// package clause and the fixed set of imports the emitted code can
// reference (io, fmt, strings.Builder and the render support package).
func wrapSource(cfg config.Config, body string) string {
	return "package " + filepath.Base(cfg.OutputDir) + "\n\n" +
		"import (\n" +
		"\t\"fmt\"\n" +
		"\t\"io\"\n" +
		"\t\"strings\"\n\n" +
		"\t\"github.com/deicod/jinjac/render\"\n" +
		")\n\n" +
		body
}

// resolveImports runs the import-resolution pass spec.md §6 calls an
// external collaborator: it parses src just far enough to find top-level
// Import directives, then for each one resolves and parses the imported
// template and collects its template-local macros under the import's
// scope name. The result is handed to compiler.Generate as its `imported`
// parameter.
func resolveImports(loader host.Loader, src, templatePath string) (map[string]map[string]nodes.Macro, error) {
	nodeList, err := parser.Parse(src, templatePath)
	if err != nil {
		return nil, err
	}
	out := map[string]map[string]nodes.Macro{}
	for _, n := range nodeList {
		imp, ok := n.(nodes.Import)
		if !ok {
			continue
		}
		resolved, err := loader.FindTemplate(imp.Path, templatePath)
		if err != nil {
			return nil, fmt.Errorf("resolving import %q: %w", imp.Path, err)
		}
		impSrc, err := loader.ReadTemplate(resolved)
		if err != nil {
			return nil, fmt.Errorf("reading imported template %q: %w", resolved, err)
		}
		impNodes, err := parser.Parse(impSrc, resolved)
		if err != nil {
			return nil, err
		}
		scope := out[imp.Scope]
		if scope == nil {
			scope = map[string]nodes.Macro{}
			out[imp.Scope] = scope
		}
		for _, in := range impNodes {
			if m, ok := in.(nodes.Macro); ok {
				scope[m.Name] = m
			}
		}
	}
	return out, nil
}
