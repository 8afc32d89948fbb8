// Package parser turns template source text into the node sequence defined
// by package nodes. It interleaves two layers: literal text, scanned by
// package lexer's content splitter, and tagged directives ("{{ ... }}",
// "{% ... %}", "{# ... #}"), dispatched by the grammar in expressions.go and
// statements.go.
package parser

import (
	"github.com/deicod/jinjac/jerr"
	"github.com/deicod/jinjac/lexer"
	"github.com/deicod/jinjac/nodes"
)

// Parser holds the cursor over one template's source plus the template's own
// path, used only for diagnostics.
type Parser struct {
	c        *lexer.Cursor
	template string
}

// New returns a parser positioned at the start of src.
func New(src, template string) *Parser {
	return &Parser{c: lexer.NewCursor(src), template: template}
}

// Parse consumes the entire template and returns its node sequence.
func Parse(src, template string) ([]nodes.Node, error) {
	p := New(src, template)
	nodeList, err := p.parseBody(false)
	if err != nil {
		return nil, err
	}
	if !p.c.Eof() {
		return nil, p.errf(jerr.Syntax, "unconsumed input remains at end of template")
	}
	extendsCount := 0
	for _, n := range nodeList {
		if _, ok := n.(nodes.Extends); ok {
			extendsCount++
		}
	}
	if extendsCount > 1 {
		return nil, p.errf(jerr.Structural, "template has more than one 'extends'")
	}
	return nodeList, nil
}

func (p *Parser) errf(kind jerr.Kind, format string, args ...any) error {
	return jerr.New(kind, p.template, p.c.Position(), format, args...)
}

// parseBody parses a node sequence until EOF or, when inBlock is true, until
// one of the closing/continuation tags that terminate a nested body is seen
// (detected by atBlockTerminator) without consuming it. The caller then
// consumes that tag and checks that it is a keyword it accepts.
func (p *Parser) parseBody(inBlock bool) ([]nodes.Node, error) {
	var out []nodes.Node
	for {
		lws, body, rws := p.c.TakeContent()
		if lws != "" || body != "" || rws != "" {
			out = append(out, nodes.Lit{LWS: lws, Body: body, RWS: rws})
		} else if p.c.Eof() && len(out) == 0 {
			out = append(out, nodes.Lit{})
		}
		if p.c.Eof() {
			return out, nil
		}
		if inBlock && p.atBlockTerminator() {
			return out, nil
		}
		switch {
		case p.c.HasPrefix("{{"):
			n, err := p.parseExprTag()
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		case p.c.HasPrefix("{#"):
			n, err := p.parseCommentTag()
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		case p.c.HasPrefix("{%"):
			n, err := p.parseStatementTag()
			if err != nil {
				return nil, err
			}
			if n != nil {
				out = append(out, n)
			}
		default:
			return nil, p.errf(jerr.Syntax, "expected a directive delimiter")
		}
	}
}

// atBlockTerminator reports whether the cursor sits on a "{%" tag whose
// keyword ends the body currently being parsed (elif/else/endif/endfor/
// endmatch/endblock/endmacro/when). It does not consume anything.
func (p *Parser) atBlockTerminator() bool {
	if !p.c.HasPrefix("{%") {
		return false
	}
	save := *p.c
	defer func() { *p.c = save }()
	p.c.Advance()
	p.c.Advance()
	p.c.SkipWhitespace()
	p.c.Consume("-")
	p.c.SkipWhitespace()
	kw, ok := p.c.ScanIdentifier()
	if !ok {
		return false
	}
	switch kw {
	case "elif", "else", "endif", "endfor", "endmatch", "endblock", "endmacro", "when":
		return true
	default:
		return false
	}
}

// openTag consumes "{%"/"{{"/"{#", then an optional "-" sigil, then skips
// whitespace, returning the pre-whitespace bit.
func (p *Parser) openTag(delim string) bool {
	p.c.Consume(delim)
	pre := p.c.Consume("-")
	p.c.SkipWhitespace()
	return pre
}

// closeTag skips whitespace, consumes an optional "-" sigil, then the
// closing delimiter, returning the post-whitespace bit.
func (p *Parser) closeTag(delim string) (bool, error) {
	p.c.SkipWhitespace()
	post := p.c.Consume("-")
	p.c.SkipWhitespace()
	if !p.c.Consume(delim) {
		return false, p.errf(jerr.Syntax, "expected closing %q", delim)
	}
	return post, nil
}

func (p *Parser) parseCommentTag() (nodes.Node, error) {
	pre := p.openTag("{#")
	// Comment content is discarded; only a trailing "-" immediately before
	// "#}" is significant, mirroring the "-%}"/"-}}" sigil on other tags.
	post := false
	for !p.c.Eof() {
		if p.c.HasPrefix("-#}") {
			post = true
			p.c.Advance()
			p.c.Advance()
			p.c.Advance()
			break
		}
		if p.c.HasPrefix("#}") {
			p.c.Advance()
			p.c.Advance()
			break
		}
		p.c.Advance()
	}
	return nodes.Comment{WS: nodes.WS{Pre: pre, Post: post}}, nil
}

func (p *Parser) parseExprTag() (nodes.Node, error) {
	pre := p.openTag("{{")
	expr, err := p.parseExprAny()
	if err != nil {
		return nil, err
	}
	post, err := p.closeTag("}}")
	if err != nil {
		return nil, err
	}
	return nodes.Expr{WS: nodes.WS{Pre: pre, Post: post}, X: expr}, nil
}
