package host

import (
	"io"

	"gopkg.in/yaml.v3"
)

// yamlTypeDoc mirrors the YAML shape a host-type description file is
// written in: a struct identifier, its generic parameter list and where
// clause reproduced verbatim, and its field table.
type yamlTypeDoc struct {
	Ident       string            `yaml:"ident"`
	Generics    string            `yaml:"generics"`
	WhereClause string            `yaml:"where_clause"`
	Fields      map[string]string `yaml:"fields"`
	Escaping    string            `yaml:"escaping"`
	Path        string            `yaml:"path"`
}

// LoadTypeDescriptor reads a YAML document describing a host struct and
// returns the TypeDescriptor the compiler expects. escaping accepts "html"
// or "none"; when absent, EscapeModeForPath(doc.Path) supplies the default.
func LoadTypeDescriptor(r io.Reader) (*TypeDescriptor, error) {
	var doc yamlTypeDoc
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	td := &TypeDescriptor{
		Ident:       doc.Ident,
		Generics:    doc.Generics,
		WhereClause: doc.WhereClause,
		Fields:      doc.Fields,
		Path:        doc.Path,
	}
	switch doc.Escaping {
	case "html":
		td.Escaping = EscapeHTML
	case "none":
		td.Escaping = EscapeNone
	default:
		td.Escaping = EscapeModeForPath(doc.Path)
	}
	if td.Fields == nil {
		td.Fields = map[string]string{}
	}
	return td, nil
}
