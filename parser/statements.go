package parser

import (
	"github.com/deicod/jinjac/jerr"
	"github.com/deicod/jinjac/lexer"
	"github.com/deicod/jinjac/nodes"
)

// parseStatementTag parses one "{% ... %}" directive and returns its node.
// Inside a nested body the caller (parseBody) has already stopped before any
// terminator keyword belonging to an enclosing construct; a terminator
// keyword that reaches this function (e.g. a stray "endif" at the top level)
// is reported as a structural error.
func (p *Parser) parseStatementTag() (nodes.Node, error) {
	pre := p.openTag("{%")
	kw, ok := p.c.ScanIdentifier()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a statement keyword")
	}
	switch kw {
	case "let":
		return p.parseLet(pre)
	case "if":
		return p.parseCond(pre)
	case "for":
		return p.parseLoop(pre)
	case "match":
		return p.parseMatch(pre)
	case "extends":
		return p.parseExtends()
	case "include":
		return p.parseInclude(pre)
	case "import":
		return p.parseImport(pre)
	case "block":
		return p.parseBlockDef(pre)
	case "macro":
		return p.parseMacro()
	case "call":
		return p.parseCall(pre)
	case "raw":
		return p.parseRaw(pre)
	case "elif", "else", "endif", "endfor", "endmatch", "endblock", "endmacro", "endraw", "when":
		return nil, p.errf(jerr.Structural, "unexpected %q with no matching opening tag", kw)
	default:
		return nil, p.errf(jerr.Syntax, "unknown statement %q", kw)
	}
}

func (p *Parser) parseTarget() (nodes.Target, error) {
	p.c.SkipWhitespace()
	name, ok := p.c.ScanIdentifier()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a name")
	}
	return nodes.NameTarget{Name: name}, nil
}

func (p *Parser) parseLet(pre bool) (nodes.Node, error) {
	target, err := p.parseTarget()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	if p.c.Peek() == '=' && p.c.PeekAt(1) != '=' {
		p.c.Advance()
		p.c.SkipWhitespace()
		x, err := p.parseExprAny()
		if err != nil {
			return nil, err
		}
		post, err := p.closeTag("%}")
		if err != nil {
			return nil, err
		}
		return nodes.Let{WS: nodes.WS{Pre: pre, Post: post}, Target: target, X: x}, nil
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.LetDecl{WS: nodes.WS{Pre: pre, Post: post}, Target: target}, nil
}

func (p *Parser) parseCond(pre bool) (nodes.Node, error) {
	var arms []nodes.CondArm
	cond, err := p.parseExprAny()
	if err != nil {
		return nil, err
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody(true)
	if err != nil {
		return nil, err
	}
	arms = append(arms, nodes.CondArm{WS: nodes.WS{Pre: pre, Post: post}, Cond: cond, Body: body})

	for {
		armPre := p.openTag("{%")
		kw, ok := p.c.ScanIdentifier()
		if !ok {
			return nil, p.errf(jerr.Syntax, "expected elif/else/endif")
		}
		switch kw {
		case "elif":
			c, err := p.parseExprAny()
			if err != nil {
				return nil, err
			}
			armPost, err := p.closeTag("%}")
			if err != nil {
				return nil, err
			}
			b, err := p.parseBody(true)
			if err != nil {
				return nil, err
			}
			arms = append(arms, nodes.CondArm{WS: nodes.WS{Pre: armPre, Post: armPost}, Cond: c, Body: b})
			continue
		case "else":
			armPost, err := p.closeTag("%}")
			if err != nil {
				return nil, err
			}
			b, err := p.parseBody(true)
			if err != nil {
				return nil, err
			}
			arms = append(arms, nodes.CondArm{WS: nodes.WS{Pre: armPre, Post: armPost}, Cond: nil, Body: b})
			endKwPre := p.openTag("{%")
			if err := p.expectKeyword("endif"); err != nil {
				return nil, err
			}
			endPost, err := p.closeTag("%}")
			if err != nil {
				return nil, err
			}
			return nodes.Cond{Arms: arms, EndWS: nodes.WS{Pre: endKwPre, Post: endPost}}, nil
		case "endif":
			endPost, err := p.closeTag("%}")
			if err != nil {
				return nil, err
			}
			return nodes.Cond{Arms: arms, EndWS: nodes.WS{Pre: armPre, Post: endPost}}, nil
		default:
			return nil, p.errf(jerr.Syntax, "expected elif/else/endif, found %q", kw)
		}
	}
}

func (p *Parser) expectKeyword(kw string) error {
	got, ok := p.c.ScanIdentifier()
	if !ok || got != kw {
		return p.errf(jerr.Syntax, "expected %q", kw)
	}
	return nil
}

func (p *Parser) parseLoop(pre bool) (nodes.Node, error) {
	target, err := p.parseTarget()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	iterable, err := p.parseExprAny()
	if err != nil {
		return nil, err
	}
	post1, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody(true)
	if err != nil {
		return nil, err
	}
	pre2 := p.openTag("{%")
	if err := p.expectKeyword("endfor"); err != nil {
		return nil, err
	}
	post2, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.Loop{
		WS1:      nodes.WS{Pre: pre, Post: post1},
		Target:   target,
		Iterable: iterable,
		Body:     body,
		WS2:      nodes.WS{Pre: pre2, Post: post2},
	}, nil
}

func (p *Parser) parseMatchVariant() (nodes.MatchVariant, error) {
	p.c.SkipWhitespace()
	switch {
	case lexer.IsDigit(p.c.Peek()):
		n, _ := p.c.ScanNumber()
		return nodes.VariantNumLit{Text: n}, nil
	case p.c.Peek() == '"':
		s, ok := p.c.ScanString()
		if !ok {
			return nil, p.errf(jerr.Syntax, "unterminated string literal")
		}
		return nodes.VariantStrLit{Text: s}, nil
	case lexer.IsIdentStart(p.c.Peek()):
		first, _ := p.c.ScanIdentifier()
		if p.c.HasPrefix("::") {
			segs := []string{first}
			for p.c.HasPrefix("::") {
				p.c.Consume("::")
				seg, ok := p.c.ScanIdentifier()
				if !ok {
					return nil, p.errf(jerr.Syntax, "expected identifier after '::'")
				}
				segs = append(segs, seg)
			}
			return nodes.VariantPath{Segments: segs}, nil
		}
		return nodes.VariantName{Name: first}, nil
	default:
		return nil, p.errf(jerr.Syntax, "expected a match variant")
	}
}

func (p *Parser) parseMatchParameter() (nodes.MatchParameter, error) {
	p.c.SkipWhitespace()
	switch {
	case lexer.IsDigit(p.c.Peek()):
		n, _ := p.c.ScanNumber()
		return nodes.ParamNumLit{Text: n}, nil
	case p.c.Peek() == '"':
		s, ok := p.c.ScanString()
		if !ok {
			return nil, p.errf(jerr.Syntax, "unterminated string literal")
		}
		return nodes.ParamStrLit{Text: s}, nil
	case lexer.IsIdentStart(p.c.Peek()):
		name, _ := p.c.ScanIdentifier()
		return nodes.ParamName{Name: name}, nil
	default:
		return nil, p.errf(jerr.Syntax, "expected a match parameter")
	}
}

func (p *Parser) parseMatch(pre bool) (nodes.Node, error) {
	subject, err := p.parseExprAny()
	if err != nil {
		return nil, err
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}

	// Only whitespace-only text may appear between the match head and the
	// first "when"; anything else is a structural error.
	interLWS, interBody, _ := p.c.TakeContent()
	hasInter := interLWS != ""
	if interBody != "" {
		return nil, p.errf(jerr.Structural, "non-whitespace text between 'match' and first 'when'")
	}

	var arms []nodes.WhenArm
	sawElse := false
	for {
		armPre := p.openTag("{%")
		kw, ok := p.c.ScanIdentifier()
		if !ok {
			return nil, p.errf(jerr.Syntax, "expected 'when' or 'endmatch'")
		}
		switch kw {
		case "when":
			if sawElse {
				return nil, p.errf(jerr.Structural, "'when' arm after catch-all 'else' arm")
			}
			var variant nodes.MatchVariant
			var params []nodes.MatchParameter
			p.c.SkipWhitespace()
			{
				v, err := p.parseMatchVariant()
				if err != nil {
					return nil, err
				}
				variant = v
				p.c.SkipWhitespace()
				if p.c.HasPrefix("with") {
					save := *p.c
					word, _ := p.c.ScanIdentifier()
					if word == "with" {
						p.c.SkipWhitespace()
						if !p.c.Consume("(") {
							return nil, p.errf(jerr.Syntax, "expected '(' after 'with'")
						}
						p.c.SkipWhitespace()
						for p.c.Peek() != ')' {
							prm, err := p.parseMatchParameter()
							if err != nil {
								return nil, err
							}
							params = append(params, prm)
							p.c.SkipWhitespace()
							if p.c.Consume(",") {
								p.c.SkipWhitespace()
								continue
							}
							break
						}
						if !p.c.Consume(")") {
							return nil, p.errf(jerr.Syntax, "expected ')'")
						}
					} else {
						*p.c = save
					}
				}
			}
			armPost, err := p.closeTag("%}")
			if err != nil {
				return nil, err
			}
			body, err := p.parseBody(true)
			if err != nil {
				return nil, err
			}
			arms = append(arms, nodes.WhenArm{WS: nodes.WS{Pre: armPre, Post: armPost}, Variant: variant, Params: params, Body: body})
			continue
		case "else":
			if sawElse {
				return nil, p.errf(jerr.Structural, "more than one catch-all 'else' arm")
			}
			sawElse = true
			armPost, err := p.closeTag("%}")
			if err != nil {
				return nil, err
			}
			body, err := p.parseBody(true)
			if err != nil {
				return nil, err
			}
			arms = append(arms, nodes.WhenArm{WS: nodes.WS{Pre: armPre, Post: armPost}, Variant: nil, Body: body})
			continue
		case "endmatch":
			endPost, err := p.closeTag("%}")
			if err != nil {
				return nil, err
			}
			return nodes.Match{
				WS:              nodes.WS{Pre: pre, Post: post},
				Subject:         subject,
				Interstitial:    interLWS,
				HasInterstitial: hasInter,
				Arms:            arms,
				EndWS:           nodes.WS{Pre: armPre, Post: endPost},
			}, nil
		default:
			return nil, p.errf(jerr.Syntax, "expected 'when', 'else' or 'endmatch', found %q", kw)
		}
	}
}

func (p *Parser) parseExtends() (nodes.Node, error) {
	p.c.SkipWhitespace()
	path, ok := p.c.ScanString()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a string literal path after 'extends'")
	}
	if _, err := p.closeTag("%}"); err != nil {
		return nil, err
	}
	return nodes.Extends{Path: path}, nil
}

func (p *Parser) parseInclude(pre bool) (nodes.Node, error) {
	p.c.SkipWhitespace()
	path, ok := p.c.ScanString()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a string literal path after 'include'")
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.Include{WS: nodes.WS{Pre: pre, Post: post}, Path: path}, nil
}

func (p *Parser) parseImport(pre bool) (nodes.Node, error) {
	p.c.SkipWhitespace()
	path, ok := p.c.ScanString()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a string literal path after 'import'")
	}
	p.c.SkipWhitespace()
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	scope, ok := p.c.ScanIdentifier()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a scope name after 'as'")
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.Import{WS: nodes.WS{Pre: pre, Post: post}, Path: path, Scope: scope}, nil
}

func (p *Parser) parseBlockDef(pre bool) (nodes.Node, error) {
	p.c.SkipWhitespace()
	name, ok := p.c.ScanIdentifier()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a block name")
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody(true)
	if err != nil {
		return nil, err
	}
	pre2 := p.openTag("{%")
	if err := p.expectKeyword("endblock"); err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	if lexer.IsIdentStart(p.c.Peek()) {
		p.c.ScanIdentifier() // optional closing name, accepted and discarded
	}
	post2, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.BlockDef{
		WS1:  nodes.WS{Pre: pre, Post: post},
		Name: name,
		Body: body,
		WS2:  nodes.WS{Pre: pre2, Post: post2},
	}, nil
}

func (p *Parser) parseMacro() (nodes.Node, error) {
	p.c.SkipWhitespace()
	name, ok := p.c.ScanIdentifier()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a macro name")
	}
	p.c.SkipWhitespace()
	if !p.c.Consume("(") {
		return nil, p.errf(jerr.Syntax, "expected '(' after macro name")
	}
	p.c.SkipWhitespace()
	var args []string
	if p.c.Peek() != ')' {
		for {
			a, ok := p.c.ScanIdentifier()
			if !ok {
				return nil, p.errf(jerr.Syntax, "expected a parameter name")
			}
			args = append(args, a)
			p.c.SkipWhitespace()
			if p.c.Consume(",") {
				p.c.SkipWhitespace()
				continue
			}
			break
		}
	}
	if !p.c.Consume(")") {
		return nil, p.errf(jerr.Syntax, "expected ')'")
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody(true)
	if err != nil {
		return nil, err
	}
	pre2 := p.openTag("{%")
	if err := p.expectKeyword("endmacro"); err != nil {
		return nil, err
	}
	post2, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.Macro{
		Name: name,
		Body: nodes.MacroBody{
			WS1:  nodes.WS{Pre: false, Post: post},
			Args: args,
			Body: body,
			WS2:  nodes.WS{Pre: pre2, Post: post2},
		},
	}, nil
}

// atEndraw reports whether the cursor sits on a "{%" tag whose keyword is
// "endraw", without consuming anything. Used by parseRaw to find the end of
// a raw block's verbatim body one byte at a time.
func (p *Parser) atEndraw() bool {
	save := *p.c
	defer func() { *p.c = save }()
	p.c.Advance()
	p.c.Advance()
	p.c.SkipWhitespace()
	p.c.Consume("-")
	p.c.SkipWhitespace()
	kw, ok := p.c.ScanIdentifier()
	return ok && kw == "endraw"
}

// parseRaw parses "{% raw %} ... {% endraw %}". Unlike every other
// construct, the body between the tags is not scanned for nested
// directives at all: it is copied verbatim up to the literal byte sequence
// "{% endraw" (whitespace-control sigil on "endraw" is still honoured, the
// same way a literal's leading run is).
func (p *Parser) parseRaw(pre bool) (nodes.Node, error) {
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	start := p.c.Pos
	for {
		if p.c.Eof() {
			return nil, p.errf(jerr.Syntax, "unterminated 'raw' block")
		}
		if p.c.HasPrefix("{%") && p.atEndraw() {
			break
		}
		p.c.Advance()
	}
	body := string(p.c.Src[start:p.c.Pos])
	pre2 := p.openTag("{%")
	if err := p.expectKeyword("endraw"); err != nil {
		return nil, err
	}
	post2, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.Raw{
		WS1:  nodes.WS{Pre: pre, Post: post},
		Body: body,
		WS2:  nodes.WS{Pre: pre2, Post: post2},
	}, nil
}

func (p *Parser) parseCall(pre bool) (nodes.Node, error) {
	p.c.SkipWhitespace()
	first, ok := p.c.ScanIdentifier()
	if !ok {
		return nil, p.errf(jerr.Syntax, "expected a macro name after 'call'")
	}
	scope := ""
	name := first
	if p.c.HasPrefix("::") {
		p.c.Consume("::")
		n, ok := p.c.ScanIdentifier()
		if !ok {
			return nil, p.errf(jerr.Syntax, "expected a macro name after '::'")
		}
		scope = first
		name = n
	}
	p.c.SkipWhitespace()
	var args []nodes.Expression
	if p.c.Peek() == '(' {
		a, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		args = a
	}
	post, err := p.closeTag("%}")
	if err != nil {
		return nil, err
	}
	return nodes.Call{WS: nodes.WS{Pre: pre, Post: post}, Scope: scope, Name: name, Args: args}, nil
}
