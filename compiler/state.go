package compiler

import (
	"fmt"
	"strings"

	"github.com/deicod/jinjac/host"
	"github.com/deicod/jinjac/jerr"
	"github.com/deicod/jinjac/lexer"
	"github.com/deicod/jinjac/nodes"
	"github.com/deicod/jinjac/parser"
)

// macroKey identifies a macro by its optional import scope and name.
type macroKey struct {
	Scope string // "" for template-local macros
	Name  string
}

// state is the generation state of spec.md §4.E: one per template
// compilation, assembled from the parsed node list before any code is
// emitted.
type state struct {
	input      *host.TypeDescriptor
	nodes      []nodes.Node
	blocks     []nodes.BlockDef
	macros     map[macroKey]nodes.Macro
	traitName  string
	derived    bool
	extendsRel string
	// allBlockNames is the union of block names declared anywhere along the
	// inheritance chain (this template plus every ancestor, transitively),
	// in discovery order with this template's own names first. The trait
	// method set is always this full union, even though a derived
	// template's own `blocks` field only lists the blocks it overrides: a
	// derived host type must still satisfy every method the root's trait
	// declares, delegating the ones it does not override to its parent.
	allBlockNames []string
}

// newState assembles a state from a parsed node list, per spec.md §4.E.
// imported supplies macros resolved by a preceding import-resolution pass,
// keyed the same way as state.macros.
func newState(input *host.TypeDescriptor, nodeList []nodes.Node, loader host.Loader, imported map[macroKey]nodes.Macro) (*state, error) {
	st := &state{
		input:  input,
		nodes:  nodeList,
		macros: map[macroKey]nodes.Macro{},
	}

	if err := validatePlacement(input.Path, nodeList, true); err != nil {
		return nil, err
	}

	var extends *nodes.Extends
	for _, n := range nodeList {
		if e, ok := n.(nodes.Extends); ok {
			if extends != nil {
				return nil, jerr.New(jerr.Structural, input.Path, zeroPos, "template has more than one 'extends'")
			}
			ext := e
			extends = &ext
		}
	}

	for _, n := range nodeList {
		switch b := n.(type) {
		case nodes.BlockDef:
			st.blocks = append(st.blocks, b)
		case nodes.Macro:
			st.macros[macroKey{Name: b.Name}] = b
		}
	}

	// Breadth-first expansion: scan each collected block's body for nested
	// BlockDefs and append them to the flat list until none remain.
	for i := 0; i < len(st.blocks); i++ {
		for _, n := range st.blocks[i].Body {
			if nb, ok := n.(nodes.BlockDef); ok {
				st.blocks = append(st.blocks, nb)
			}
		}
	}

	for k, v := range imported {
		st.macros[k] = v
	}

	seen := map[string]bool{}
	for _, b := range st.blocks {
		if !seen[b.Name] {
			seen[b.Name] = true
			st.allBlockNames = append(st.allBlockNames, b.Name)
		}
	}

	if extends != nil {
		st.derived = true
		resolved, err := loader.FindTemplate(extends.Path, input.Path)
		if err != nil {
			return nil, jerr.Wrap(jerr.Resolution, input.Path, zeroPos, err, "resolving extends path %q", extends.Path)
		}
		st.extendsRel = resolved
		rootPath, ancestorBlocks, err := walkAncestorChain(loader, resolved, input.Path)
		if err != nil {
			return nil, err
		}
		st.traitName = traitNameFor(rootPath)
		for _, name := range ancestorBlocks {
			if !seen[name] {
				seen[name] = true
				st.allBlockNames = append(st.allBlockNames, name)
			}
		}
	} else {
		st.traitName = traitNameFor(input.Path)
	}

	return st, nil
}

// walkAncestorChain follows "extends" from path up to the template that
// does not itself extend anything (the inheritance root), reading and
// parsing each ancestor's source via loader. It returns the root's
// resolved path plus the flat, breadth-first-swept block names declared by
// every ancestor (nearest ancestor first, root last), so the caller can compute the full trait
// method set a derived template must satisfy regardless of how many levels
// up a given block was originally declared. fromPath is the path the first
// hop's "extends" is resolved relative to.
func walkAncestorChain(loader host.Loader, path, fromPath string) (rootPath string, blockNames []string, err error) {
	cur := path
	curFrom := fromPath
	for {
		src, err := loader.ReadTemplate(cur)
		if err != nil {
			return "", nil, jerr.Wrap(jerr.Resolution, curFrom, zeroPos, err, "reading ancestor template %q", cur)
		}
		ancestorNodes, err := parser.Parse(src, cur)
		if err != nil {
			return "", nil, err
		}
		var ownBlocks []nodes.BlockDef
		var ancestorExtends *nodes.Extends
		for _, n := range ancestorNodes {
			switch b := n.(type) {
			case nodes.BlockDef:
				ownBlocks = append(ownBlocks, b)
			case nodes.Extends:
				e := b
				ancestorExtends = &e
			}
		}
		for i := 0; i < len(ownBlocks); i++ {
			for _, n := range ownBlocks[i].Body {
				if nb, ok := n.(nodes.BlockDef); ok {
					ownBlocks = append(ownBlocks, nb)
				}
			}
		}
		for _, b := range ownBlocks {
			blockNames = append(blockNames, b.Name)
		}
		if ancestorExtends == nil {
			return cur, blockNames, nil
		}
		next, err := loader.FindTemplate(ancestorExtends.Path, cur)
		if err != nil {
			return "", nil, jerr.Wrap(jerr.Resolution, cur, zeroPos, err, "resolving extends path %q", ancestorExtends.Path)
		}
		curFrom = cur
		cur = next
	}
}

// zeroPos stands in for a precise source position in structural errors
// raised during state assembly, which concern the template as a whole
// rather than one coordinate within it.
var zeroPos = lexer.Position{}

// traitNameFor derives the generated trait identifier: "TraitFrom" prefixed
// to path with every codepoint outside ASCII [A-Za-z0-9] replaced by its lower-case
// 4-or-more-hex-digit codepoint escape, per spec.md §4.E.6.
func traitNameFor(path string) string {
	var b strings.Builder
	b.WriteString("TraitFrom")
	for _, r := range path {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, "%04x", r)
	}
	return b.String()
}
