package parser

import (
	"testing"

	"github.com/deicod/jinjac/nodes"
)

func TestParseHelloLiteral(t *testing.T) {
	out, err := Parse("hello", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("want 1 node, got %d", len(out))
	}
	lit, ok := out[0].(nodes.Lit)
	if !ok || lit.Body != "hello" {
		t.Fatalf("want Lit{Body: hello}, got %#v", out[0])
	}
}

func TestParseEmptyTemplateYieldsSingleEmptyLit(t *testing.T) {
	out, err := Parse("", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("want 1 node, got %d", len(out))
	}
	if _, ok := out[0].(nodes.Lit); !ok {
		t.Fatalf("want Lit, got %#v", out[0])
	}
}

func TestParseExpr(t *testing.T) {
	out, err := Parse("{{ name }}", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := out[0].(nodes.Expr)
	if !ok {
		t.Fatalf("want Expr, got %#v", out[0])
	}
	v, ok := e.X.(nodes.Var)
	if !ok || v.Name != "name" {
		t.Fatalf("want Var(name), got %#v", e.X)
	}
}

func TestParseWhitespaceSigils(t *testing.T) {
	out, err := Parse("A{{- x }}B", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lit, ok := out[0].(nodes.Lit)
	if !ok || lit.Body != "A" {
		t.Fatalf("got %#v", out[0])
	}
	e, ok := out[1].(nodes.Expr)
	if !ok || !e.WS.Pre {
		t.Fatalf("want pre-suppressed Expr, got %#v", out[1])
	}
}

func TestParseLoopWithIndex(t *testing.T) {
	out, err := Parse("{% for x in xs %}{{ loop.index }}:{{ x }};{% endfor %}", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loop, ok := out[0].(nodes.Loop)
	if !ok {
		t.Fatalf("want Loop, got %#v", out[0])
	}
	if loop.Target.(nodes.NameTarget).Name != "x" {
		t.Fatalf("want target x, got %#v", loop.Target)
	}
	if loop.Iterable.(nodes.Var).Name != "xs" {
		t.Fatalf("want iterable xs, got %#v", loop.Iterable)
	}
}

func TestParseSingleExtends(t *testing.T) {
	out, err := Parse(`{% extends "base.txt" %}hi`, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ext, ok := out[0].(nodes.Extends)
	if !ok || ext.Path != "base.txt" {
		t.Fatalf("got %#v", out[0])
	}
}

func TestParseMultipleExtendsIsStructuralError(t *testing.T) {
	_, err := Parse(`{% extends "a" %}{% extends "b" %}`, "t")
	if err == nil {
		t.Fatalf("expected an error for duplicate extends")
	}
}

func TestParseMatchNonWhitespaceBeforeWhenIsStructuralError(t *testing.T) {
	_, err := Parse(`{% match x %}stray{% when 1 %}one{% endmatch %}`, "t")
	if err == nil {
		t.Fatalf("expected a structural error")
	}
}

func TestParseMatchCatchAllMustBeLast(t *testing.T) {
	_, err := Parse(`{% match x %}{% else %}e{% when 1 %}one{% endmatch %}`, "t")
	if err == nil {
		t.Fatalf("expected a structural error for 'when' after catch-all 'else'")
	}
}

func TestParseMacroCall(t *testing.T) {
	src := `{% macro greet(n) %}Hi {{ n }}{% endmacro %}{% call greet("there") %}`
	out, err := Parse(src, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := out[0].(nodes.Macro)
	if !ok || m.Name != "greet" || len(m.Body.Args) != 1 || m.Body.Args[0] != "n" {
		t.Fatalf("got %#v", out[0])
	}
	c, ok := out[1].(nodes.Call)
	if !ok || c.Name != "greet" || len(c.Args) != 1 {
		t.Fatalf("got %#v", out[1])
	}
}

func TestParseRawBlockPassesDirectivesThrough(t *testing.T) {
	out, err := Parse(`{% raw %}{{ not an expr }}{% endraw %}`, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, ok := out[0].(nodes.Raw)
	if !ok || raw.Body != "{{ not an expr }}" {
		t.Fatalf("got %#v", out[0])
	}
}

func TestParseUnterminatedDirectiveIsSyntaxError(t *testing.T) {
	_, err := Parse("{{ x", "t")
	if err == nil {
		t.Fatalf("expected a syntax error")
	}
}

func TestParseRightRecursiveMinus(t *testing.T) {
	// a - b - c must parse as a - (b - c): the right operand of the first
	// "-" is itself re-entered at the top of the grammar, not at the "+/-"
	// level, per spec.md §4.B's documented quirk.
	out, err := Parse("{{ a - b - c }}", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := out[0].(nodes.Expr).X
	top, ok := e.(nodes.BinOp)
	if !ok || top.Op != "-" {
		t.Fatalf("want top-level BinOp(-), got %#v", e)
	}
	if _, ok := top.Left.(nodes.Var); !ok {
		t.Fatalf("want Var on the left, got %#v", top.Left)
	}
	right, ok := top.Right.(nodes.BinOp)
	if !ok || right.Op != "-" {
		t.Fatalf("want right operand to itself be BinOp(-), got %#v", top.Right)
	}
}
