package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/deicod/jinjac/host"
)

func td(ident, path string, escaping host.EscapeMode, fields map[string]string) *host.TypeDescriptor {
	return &host.TypeDescriptor{Ident: ident, Path: path, Escaping: escaping, Fields: fields}
}

// scenario 1: a template with no directives emits a single sink-write of
// the literal text and nothing else.
func TestGenerateHelloLiteral(t *testing.T) {
	out, err := Generate("hello", "hello.txt", td("Hello", "hello.txt", host.EscapeNone, nil), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `sink.WriteString("hello")`) {
		t.Fatalf("expected a literal sink-write, got:\n%s", out)
	}
	if !strings.Contains(out, "func (self *Hello) RenderInto(sink io.StringWriter) error {") {
		t.Fatalf("expected RenderInto, got:\n%s", out)
	}
}

// scenario 2: an expression writes the host field; under HTML escaping the
// value is wrapped, under no escaping it is not.
func TestGenerateExprEscaping(t *testing.T) {
	out, err := Generate("{{ name }}", "t.txt", td("Greet", "t.txt", host.EscapeNone, map[string]string{"name": "string"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "self.name") {
		t.Fatalf("expected implicit host field access, got:\n%s", out)
	}
	if strings.Contains(out, "render.HTML(") {
		t.Fatalf("EscapeNone must not wrap in render.HTML, got:\n%s", out)
	}

	outHTML, err := Generate("{{ name }}", "t.html", td("Greet", "t.html", host.EscapeHTML, map[string]string{"name": "string"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(outHTML, "render.HTML(self.name)") {
		t.Fatalf("EscapeHTML must wrap in render.HTML, got:\n%s", outHTML)
	}
}

// auto-escape invariant: a |safe-filtered expression is not re-wrapped even
// under HTML escaping.
func TestGenerateSafeFilterSkipsEscaping(t *testing.T) {
	out, err := Generate(`{{ name|safe }}`, "t.html", td("Greet", "t.html", host.EscapeHTML, map[string]string{"name": "string"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "render.HTML(render.Safe_") {
		t.Fatalf("|safe output must not be re-wrapped, got:\n%s", out)
	}
	if !strings.Contains(out, "render.Safe_(self.name)") {
		t.Fatalf("expected the safe filter call, got:\n%s", out)
	}
}

// scenario 3: loop.index lowers to a 1-based counter built from the
// 0-based loop variable.
func TestGenerateLoopIndex(t *testing.T) {
	src := `{% for x in xs %}{{ loop.index }}:{{ x }};{% endfor %}`
	out, err := Generate(src, "t.txt", td("Listing", "t.txt", host.EscapeNone, map[string]string{"xs": "[]string"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "__loop_index + 1") {
		t.Fatalf("expected loop.index to lower to __loop_index + 1, got:\n%s", out)
	}
	if !strings.Contains(out, "range __tmp") {
		t.Fatalf("expected a range over the compiled iterable, got:\n%s", out)
	}
}

// scenario 5: a macro call inlines the macro body with its argument bound
// to a fresh constant.
func TestGenerateMacroCall(t *testing.T) {
	src := `{% macro greet(n) %}Hi {{ n }}{% endmacro %}{% call greet("there") %}`
	out, err := Generate(src, "t.txt", td("Page", "t.txt", host.EscapeNone, nil), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `n := "there"`) {
		t.Fatalf("expected macro argument binding, got:\n%s", out)
	}
	if !strings.Contains(out, `sink.WriteString("Hi")`) || !strings.Contains(out, `sink.WriteString(" ")`) {
		t.Fatalf("expected macro body to be inlined, got:\n%s", out)
	}
}

func TestGenerateCallToUndefinedMacroIsResolutionError(t *testing.T) {
	_, err := Generate(`{% call missing() %}`, "t.txt", td("Page", "t.txt", host.EscapeNone, nil), host.MapLoader{}, nil)
	if err == nil {
		t.Fatalf("expected a resolution error")
	}
}

// scenario 4: a child overriding every block of its base renders only the
// base's structure with the child's block bodies.
func TestGenerateInheritanceSingleOverride(t *testing.T) {
	loader := host.MapLoader{
		"base.txt": `[{% block body %}base{% endblock %}]`,
	}
	childSrc := `{% extends "base.txt" %}{% block body %}child{% endblock %}`
	out, err := Generate(childSrc, "child.txt", td("Child", "child.txt", host.EscapeNone, map[string]string{"_parent": "*Base"}), loader, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "return self._parent.RenderTraitInto(self, sink)") {
		t.Fatalf("expected RenderInto to delegate to the parent, got:\n%s", out)
	}
	if !strings.Contains(out, `sink.WriteString("child")`) {
		t.Fatalf("expected the overriding block body to be inlined, got:\n%s", out)
	}
	if strings.Contains(out, "type TraitFrom") {
		t.Fatalf("a derived template must not redeclare the trait interface, got:\n%s", out)
	}
}

// A derived template that does not override a block it inherits must still
// satisfy the shared trait by delegating that block to its parent.
func TestGenerateInheritanceDelegatesUnoverriddenBlock(t *testing.T) {
	loader := host.MapLoader{
		"base.txt": `[{% block head %}H{% endblock %}{% block body %}base{% endblock %}]`,
	}
	childSrc := `{% extends "base.txt" %}{% block body %}child{% endblock %}`
	out, err := Generate(childSrc, "child.txt", td("Child", "child.txt", host.EscapeNone, map[string]string{"_parent": "*Base"}), loader, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "func (self *Child) RenderBlockHeadInto(sink io.StringWriter) error {\n    return self._parent.RenderBlockHeadInto(sink)\n}") &&
		!strings.Contains(out, "return self._parent.RenderBlockHeadInto(sink)") {
		t.Fatalf("expected a delegating stub for the unoverridden 'head' block, got:\n%s", out)
	}
}

func TestGenerateDerivedWithoutParentFieldIsResolutionError(t *testing.T) {
	loader := host.MapLoader{"base.txt": `{% block body %}base{% endblock %}`}
	childSrc := `{% extends "base.txt" %}`
	_, err := Generate(childSrc, "child.txt", td("Child", "child.txt", host.EscapeNone, nil), loader, nil)
	if err == nil {
		t.Fatalf("expected a resolution error for a missing _parent field")
	}
}

// scenario 6: whitespace sigils on both sides of a directive suppress the
// adjoining literal whitespace entirely.
func TestGenerateWhitespaceSigils(t *testing.T) {
	src := `a  {%- if true -%}  b  {%- endif -%}  c`
	out, err := Generate(src, "t.txt", td("Page", "t.txt", host.EscapeNone, nil), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, `"  "`) {
		t.Fatalf("suppressed whitespace must not be written, got:\n%s", out)
	}
	if !strings.Contains(out, `sink.WriteString("a")`) || !strings.Contains(out, `sink.WriteString("b")`) || !strings.Contains(out, `sink.WriteString("c")`) {
		t.Fatalf("expected a/b/c literals to survive, got:\n%s", out)
	}
}

func TestGenerateIncludeSplicesCalleeBody(t *testing.T) {
	loader := host.MapLoader{"partial.txt": "partial-text"}
	out, err := Generate(`{% include "partial.txt" %}`, "t.txt", td("Page", "t.txt", host.EscapeNone, nil), loader, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `sink.WriteString("partial-text")`) {
		t.Fatalf("expected the included template's body to be spliced in, got:\n%s", out)
	}
}

func TestGenerateFilterArgumentLifting(t *testing.T) {
	// g(f(x)) must hoist f(x) into a preceding temporary rather than
	// nesting a fallible call inside g's argument list.
	out, err := Generate(`{{ xs|join(name|upper) }}`, "t.txt", td("Page", "t.txt", host.EscapeNone, map[string]string{"xs": "[]string", "name": "string"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "render.Upper(self.name)") {
		t.Fatalf("expected the inner filter call, got:\n%s", out)
	}
	if !strings.Contains(out, "render.Join(self.xs, __tmp") {
		t.Fatalf("expected join's separator to reference a lifted temporary, got:\n%s", out)
	}
}

// match must never lower to a Go type switch: its case heads are values
// (numeric/string literals, bare identifiers), not types, so a ".(type)"
// switch would reject every one of them at compile time.
func TestGenerateMatchLiteralsAreValueDispatch(t *testing.T) {
	src := `{% match kind %}{% when 1 %}one{% when 2 %}two{% else %}other{% endmatch %}`
	out, err := Generate(src, "t.txt", td("Page", "t.txt", host.EscapeNone, map[string]string{"kind": "int"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, ".(type)") || strings.Contains(out, "switch") {
		t.Fatalf("match must not lower to a type switch, got:\n%s", out)
	}
	if !strings.Contains(out, "== 1") || !strings.Contains(out, "== 2") {
		t.Fatalf("expected equality comparisons against each literal variant, got:\n%s", out)
	}
	if !strings.Contains(out, "} else {") {
		t.Fatalf("expected the catch-all arm to compile as a trailing else, got:\n%s", out)
	}
}

// A match consisting solely of a catch-all arm must still emit a
// syntactically complete if-statement ("if true {", not a bare "if {").
func TestGenerateMatchCatchAllOnlyCompiles(t *testing.T) {
	out, err := Generate(`{% match x %}{% else %}e{% endmatch %}`, "t.txt", td("Page", "t.txt", host.EscapeNone, map[string]string{"x": "int"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "if true {") {
		t.Fatalf("expected a catch-all-only match to compile as 'if true {', got:\n%s", out)
	}
}

// "with (a, b)" must bind each name to its own tuple position, not the
// whole subject.
func TestGenerateMatchBindsParamsPositionally(t *testing.T) {
	src := `{% match pair %}{% when Point with (x, y) %}{{ x }},{{ y }}{% endmatch %}`
	out, err := Generate(src, "t.txt", td("Page", "t.txt", host.EscapeNone, map[string]string{"pair": "any"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, ".([]any)") {
		t.Fatalf("expected the subject to be treated as a tuple, got:\n%s", out)
	}
	if !strings.Contains(out, "== Point") {
		t.Fatalf("expected a variant comparison against the discriminator, got:\n%s", out)
	}
	tuple := tupleAssertTemp(t, out)
	if !strings.Contains(out, fmt.Sprintf("x := %s[1]", tuple)) {
		t.Fatalf("expected x bound to tuple position 1, got:\n%s", out)
	}
	if !strings.Contains(out, fmt.Sprintf("y := %s[2]", tuple)) {
		t.Fatalf("expected y bound to tuple position 2, got:\n%s", out)
	}
	if strings.Contains(out, fmt.Sprintf("y := %s[1]", tuple)) {
		t.Fatalf("x and y must not bind to the same position, got:\n%s", out)
	}
}

// A literal in a "with (...)" list is a guard on that position, not a
// binding: it must not shadow/overwrite another bound name's position and
// must appear as an equality check.
func TestGenerateMatchLiteralParamIsGuardNotBinding(t *testing.T) {
	src := `{% match pair %}{% when Point with (1, y) %}{{ y }}{% endmatch %}`
	out, err := Generate(src, "t.txt", td("Page", "t.txt", host.EscapeNone, map[string]string{"pair": "any"}), host.MapLoader{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tuple := tupleAssertTemp(t, out)
	if !strings.Contains(out, fmt.Sprintf("%s[1] == 1", tuple)) {
		t.Fatalf("expected a literal guard on tuple position 1, got:\n%s", out)
	}
	if !strings.Contains(out, fmt.Sprintf("y := %s[2]", tuple)) {
		t.Fatalf("expected y bound to tuple position 2, got:\n%s", out)
	}
	if strings.Contains(out, " 1 :=") {
		t.Fatalf("a literal match parameter must never be emitted as a binding, got:\n%s", out)
	}
}

// tupleAssertTemp extracts the temporary name the generator assigned the
// tuple assertion to, so assertions on later lines can reference it without
// hard-coding the generator's counter scheme.
func tupleAssertTemp(t *testing.T, out string) string {
	t.Helper()
	idx := strings.Index(out, ", _ := any(")
	if idx < 0 {
		t.Fatalf("expected a tuple assertion, got:\n%s", out)
	}
	start := strings.LastIndex(out[:idx], "\n") + 1
	return strings.TrimSpace(out[start:idx])
}
