package compiler

import (
	"github.com/deicod/jinjac/jerr"
	"github.com/deicod/jinjac/lexer"
	"github.com/deicod/jinjac/nodes"
)

// validatePlacement enforces spec.md §3's invariant that BlockDef, Macro,
// Import and Extends may appear only at the top level of a template. Nested
// blocks are the one exception carved out by §9's design notes: a BlockDef
// found inside another BlockDef's body is still "top level" for this rule,
// since §4.E's breadth-first sweep is defined in terms of exactly that
// nesting. Any of the four appearing inside an if/elif/else arm, a for
// body, a match arm or a macro body is a structural error.
func validatePlacement(templatePath string, body []nodes.Node, topLevel bool) error {
	for _, n := range body {
		switch node := n.(type) {
		case nodes.BlockDef:
			if !topLevel {
				return jerr.New(jerr.Structural, templatePath, lexer.Position{}, "'block' may only appear at the top level of a template (or nested inside another block)")
			}
			if err := validatePlacement(templatePath, node.Body, true); err != nil {
				return err
			}
		case nodes.Macro:
			if !topLevel {
				return jerr.New(jerr.Structural, templatePath, lexer.Position{}, "'macro' may only appear at the top level of a template")
			}
		case nodes.Import:
			if !topLevel {
				return jerr.New(jerr.Structural, templatePath, lexer.Position{}, "'import' may only appear at the top level of a template")
			}
		case nodes.Extends:
			if !topLevel {
				return jerr.New(jerr.Structural, templatePath, lexer.Position{}, "'extends' may only appear at the top level of a template")
			}
		case nodes.Cond:
			for _, arm := range node.Arms {
				if err := validatePlacement(templatePath, arm.Body, false); err != nil {
					return err
				}
			}
		case nodes.Loop:
			if err := validatePlacement(templatePath, node.Body, false); err != nil {
				return err
			}
		case nodes.Match:
			for _, arm := range node.Arms {
				if err := validatePlacement(templatePath, arm.Body, false); err != nil {
					return err
				}
			}
		}
		if m, ok := n.(nodes.Macro); ok {
			if err := validatePlacement(templatePath, m.Body.Body, false); err != nil {
				return err
			}
		}
	}
	return nil
}
