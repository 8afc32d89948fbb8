// Package host provides the external collaborators the compiler consumes:
// a template loader and a description of the host data type that supplies
// template variables. These sit outside the core parser/compiler pipeline
// the way spec.md describes them, but a runnable tool needs concrete
// implementations, not just the interfaces.
package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EscapeMode governs whether expression output is wrapped in the HTML
// markup-display adaptor.
type EscapeMode int

const (
	EscapeNone EscapeMode = iota
	EscapeHTML
)

// EscapeModeForPath applies the default file-extension heuristic: ".html"
// and ".htm" select HTML escaping, everything else selects none.
func EscapeModeForPath(path string) EscapeMode {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return EscapeHTML
	default:
		return EscapeNone
	}
}

// TypeDescriptor is the host type description of spec.md §6: enough
// information about the user's data type to drive code generation without
// the compiler ever needing to inspect the host language's real type
// system.
type TypeDescriptor struct {
	Ident       string
	Generics    string
	WhereClause string
	Fields      map[string]string // field name -> target-language type text
	Escaping    EscapeMode
	Path        string
}

// HasField reports whether the descriptor declares a field with the given
// name, used to validate "_parent" on derived templates.
func (t *TypeDescriptor) HasField(name string) bool {
	_, ok := t.Fields[name]
	return ok
}

// Loader resolves template references and reads their source, the host
// loader of spec.md §6.
type Loader interface {
	FindTemplate(userPath, currentPath string) (string, error)
	ReadTemplate(resolvedPath string) (string, error)
}

// MapLoader is an in-memory Loader backed by a flat map from template path
// to source text, used by tests and by callers that assemble templates
// programmatically rather than from a filesystem tree.
type MapLoader map[string]string

func (m MapLoader) FindTemplate(userPath, currentPath string) (string, error) {
	if _, ok := m[userPath]; ok {
		return userPath, nil
	}
	return "", fmt.Errorf("template %q not found", userPath)
}

func (m MapLoader) ReadTemplate(resolvedPath string) (string, error) {
	src, ok := m[resolvedPath]
	if !ok {
		return "", fmt.Errorf("template %q not found", resolvedPath)
	}
	return src, nil
}

// FileSystemLoader resolves template paths relative to a root directory on
// disk, for use by cmd/jinjac.
type FileSystemLoader struct {
	Root string
}

func (f FileSystemLoader) FindTemplate(userPath, currentPath string) (string, error) {
	var candidate string
	if currentPath != "" && !filepath.IsAbs(userPath) {
		candidate = filepath.Join(filepath.Dir(currentPath), userPath)
		if _, err := os.Stat(filepath.Join(f.Root, candidate)); err == nil {
			return candidate, nil
		}
	}
	if _, err := os.Stat(filepath.Join(f.Root, userPath)); err != nil {
		return "", fmt.Errorf("template %q not found under %q", userPath, f.Root)
	}
	return userPath, nil
}

func (f FileSystemLoader) ReadTemplate(resolvedPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(f.Root, resolvedPath))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
