package parser

import (
	"github.com/deicod/jinjac/jerr"
	"github.com/deicod/jinjac/lexer"
	"github.com/deicod/jinjac/nodes"
)

// parseExprAny is the entry point of the expression grammar (level 1, "||").
// The grammar is deliberately right-recursive across precedence levels: when
// an operator matches at level L, the right operand is re-parsed starting
// from parseExprAny rather than level L+1, so "a - b - c" parses as
// "a - (b - c)". This is a known property of the source grammar that
// existing templates depend on and must not be "fixed".
func (p *Parser) parseExprAny() (nodes.Expression, error) {
	return p.level1()
}

type levelFunc func() (nodes.Expression, error)

func (p *Parser) level1() (nodes.Expression, error) { return p.binLevel(p.level2, "||") }
func (p *Parser) level2() (nodes.Expression, error) { return p.binLevel(p.level3, "&&") }

func (p *Parser) level3() (nodes.Expression, error) {
	left, err := p.level4()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		if p.c.HasPrefix(op) {
			p.c.Consume(op)
			p.c.SkipWhitespace()
			right, err := p.parseExprAny()
			if err != nil {
				return nil, err
			}
			return nodes.BinOp{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *Parser) level4() (nodes.Expression, error) {
	left, err := p.level5()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	if p.c.Peek() == '|' && p.c.PeekAt(1) != '|' {
		p.c.Advance()
		p.c.SkipWhitespace()
		right, err := p.parseExprAny()
		if err != nil {
			return nil, err
		}
		return nodes.BinOp{Op: "|", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) level5() (nodes.Expression, error) { return p.binLevel(p.level6, "^") }

func (p *Parser) level6() (nodes.Expression, error) {
	left, err := p.level7()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	if p.c.Peek() == '&' && p.c.PeekAt(1) != '&' {
		p.c.Advance()
		p.c.SkipWhitespace()
		right, err := p.parseExprAny()
		if err != nil {
			return nil, err
		}
		return nodes.BinOp{Op: "&", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) level7() (nodes.Expression, error) {
	left, err := p.level8()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	for _, op := range []string{">>", "<<"} {
		if p.c.HasPrefix(op) {
			p.c.Consume(op)
			p.c.SkipWhitespace()
			right, err := p.parseExprAny()
			if err != nil {
				return nil, err
			}
			return nodes.BinOp{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *Parser) level8() (nodes.Expression, error) {
	left, err := p.level9()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	for _, op := range []string{"+", "-"} {
		if p.c.HasPrefix(op) {
			// "-%}" and "-}}" close the tag with a whitespace sigil; they
			// are not a subtraction.
			if op == "-" && (p.c.HasPrefix("-%}") || p.c.HasPrefix("-}}")) {
				continue
			}
			p.c.Consume(op)
			p.c.SkipWhitespace()
			right, err := p.parseExprAny()
			if err != nil {
				return nil, err
			}
			return nodes.BinOp{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *Parser) level9() (nodes.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	for _, op := range []string{"*", "/", "%"} {
		if p.c.HasPrefix(op) {
			// "%}" closes a statement tag; it is not a modulo operator.
			if op == "%" && p.c.HasPrefix("%}") {
				continue
			}
			p.c.Consume(op)
			p.c.SkipWhitespace()
			right, err := p.parseExprAny()
			if err != nil {
				return nil, err
			}
			return nodes.BinOp{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

// binLevel implements the uniform "layer := inner (op expr_any)?" shape for
// levels whose operator is a single fixed token with no shorter-token
// ambiguity to guard against.
func (p *Parser) binLevel(inner levelFunc, op string) (nodes.Expression, error) {
	left, err := inner()
	if err != nil {
		return nil, err
	}
	p.c.SkipWhitespace()
	if p.c.HasPrefix(op) {
		p.c.Consume(op)
		p.c.SkipWhitespace()
		right, err := p.parseExprAny()
		if err != nil {
			return nil, err
		}
		return nodes.BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// parseUnary is level 10: a single optional prefix "!" or "-" (no stacking),
// applied to a filter-chain expression.
func (p *Parser) parseUnary() (nodes.Expression, error) {
	p.c.SkipWhitespace()
	if b := p.c.Peek(); b == '!' || b == '-' {
		op := string(b)
		p.c.Advance()
		p.c.SkipWhitespace()
		inner, err := p.parseFilterChain()
		if err != nil {
			return nil, err
		}
		return nodes.Unary{Op: op, Inner: inner}, nil
	}
	return p.parseFilterChain()
}

// parseFilterChain implements "expr_attr ('|' identifier arguments?)*". A
// pipe is only treated as a filter separator when immediately followed by an
// identifier-start byte and is not the first half of "||" (bitwise-or form,
// level 4, is only reachable when the filter grammar does not apply).
func (p *Parser) parseFilterChain() (nodes.Expression, error) {
	subject, err := p.parseAttrChain()
	if err != nil {
		return nil, err
	}
	for {
		p.c.SkipWhitespace()
		if p.c.Peek() != '|' || p.c.PeekAt(1) == '|' || !lexer.IsIdentStart(p.c.PeekAt(1)) {
			return subject, nil
		}
		p.c.Advance()
		p.c.SkipWhitespace()
		name, ok := p.c.ScanIdentifier()
		if !ok {
			return nil, p.errf(jerr.Syntax, "expected filter name after '|'")
		}
		args := []nodes.Expression{subject}
		if p.c.Peek() == '(' {
			extra, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			args = append(args, extra...)
		}
		subject = nodes.Filter{Name: name, Args: args}
	}
}

// parseAttrChain implements "expr_single ('.' (num_lit | identifier)
// arguments?)*".
func (p *Parser) parseAttrChain() (nodes.Expression, error) {
	obj, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	for {
		p.c.SkipWhitespace()
		if p.c.Peek() != '.' {
			return obj, nil
		}
		p.c.Advance()
		var name string
		if lexer.IsDigit(p.c.Peek()) {
			name, _ = p.c.ScanNumber()
		} else {
			n, ok := p.c.ScanIdentifier()
			if !ok {
				return nil, p.errf(jerr.Syntax, "expected attribute or method name after '.'")
			}
			name = n
		}
		if p.c.Peek() == '(' {
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			obj = nodes.MethodCall{Obj: obj, Name: name, Args: args}
		} else {
			obj = nodes.Attr{Obj: obj, Name: name}
		}
	}
}

// parseExprSingle implements "alt(num_lit | str_lit | path | array_lit | var
// | group)", tried in that order. path requires at least one "::" segment
// and so falls cleanly back to var for bare identifiers.
func (p *Parser) parseExprSingle() (nodes.Expression, error) {
	p.c.SkipWhitespace()
	switch {
	case lexer.IsDigit(p.c.Peek()):
		n, _ := p.c.ScanNumber()
		return nodes.NumLit{Text: n}, nil
	case p.c.Peek() == '"':
		s, ok := p.c.ScanString()
		if !ok {
			return nil, p.errf(jerr.Syntax, "unterminated string literal")
		}
		return nodes.StrLit{Text: s}, nil
	case p.c.Peek() == '[':
		return p.parseArrayLit()
	case p.c.Peek() == '(':
		p.c.Advance()
		p.c.SkipWhitespace()
		inner, err := p.parseExprAny()
		if err != nil {
			return nil, err
		}
		p.c.SkipWhitespace()
		if !p.c.Consume(")") {
			return nil, p.errf(jerr.Syntax, "expected ')'")
		}
		return nodes.Group{Inner: inner}, nil
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
			return nodes.Path{Segments: segs}, nil
		}
		return nodes.Var{Name: first}, nil
	default:
		return nil, p.errf(jerr.Syntax, "expected an expression")
	}
}

func (p *Parser) parseArrayLit() (nodes.Expression, error) {
	p.c.Advance() // '['
	p.c.SkipWhitespace()
	var elems []nodes.Expression
	if p.c.Peek() == ']' {
		p.c.Advance()
		return nodes.Array{Elements: elems}, nil
	}
	for {
		e, err := p.parseExprAny()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		p.c.SkipWhitespace()
		if p.c.Consume(",") {
			p.c.SkipWhitespace()
			if p.c.Peek() == ']' {
				p.c.Advance()
				return nodes.Array{Elements: elems}, nil
			}
			continue
		}
		if p.c.Consume("]") {
			return nodes.Array{Elements: elems}, nil
		}
		return nil, p.errf(jerr.Syntax, "expected ',' or ']' in array literal")
	}
}

// parseArguments implements a parenthesised, comma-separated, possibly
// empty expr_any list with whitespace skipped around separators.
func (p *Parser) parseArguments() ([]nodes.Expression, error) {
	p.c.Advance() // '('
	p.c.SkipWhitespace()
	var args []nodes.Expression
	if p.c.Peek() == ')' {
		p.c.Advance()
		return args, nil
	}
	for {
		e, err := p.parseExprAny()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		p.c.SkipWhitespace()
		if p.c.Consume(",") {
			p.c.SkipWhitespace()
			if p.c.Peek() == ')' {
				p.c.Advance()
				return args, nil
			}
			continue
		}
		if p.c.Consume(")") {
			return args, nil
		}
		return nil, p.errf(jerr.Syntax, "expected ',' or ')' in argument list")
	}
}
