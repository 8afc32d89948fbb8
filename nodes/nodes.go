// Package nodes defines the abstract syntax tree produced by package parser
// and consumed by package compiler.
//
// Every sum type described by the grammar (expressions, match variants,
// match parameters, assignment targets and template nodes) is modelled as a
// small Go interface with an unexported marker method, plus one struct per
// variant. There is no base struct and no virtual dispatch: callers type
// switch on the concrete type, exactly the way the parser builds them.
package nodes

import "fmt"

// Position locates a byte offset in the original template source.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// WS captures the whitespace-control sigils adjacent to a directive.
// Pre is set when the directive opened with "{%-", "{{-" or "{#-";
// Post is set when it closed with "-%}", "-}}" or "-#}".
type WS struct {
	Pre  bool
	Post bool
}

// Expression is implemented by every node legal in expression position.
type Expression interface {
	expressionNode()
}

// NumLit is a numeric literal. Text is forwarded verbatim to the emitted
// source; the parser never interprets it.
type NumLit struct{ Text string }

// StrLit is a string literal. Text is the raw, unescaped content between the
// quotes; escape sequences are left for the target compiler to interpret.
type StrLit struct{ Text string }

// Var is a bare identifier reference.
type Var struct{ Name string }

// Path is a qualified name joined by "::", e.g. scope::Variant.
type Path struct{ Segments []string }

// Array is an ordered list literal, "[a, b, c]".
type Array struct{ Elements []Expression }

// Attr is member access, "obj.name".
type Attr struct {
	Obj  Expression
	Name string
}

// MethodCall is a member call with positional arguments, "obj.name(args)".
type MethodCall struct {
	Obj  Expression
	Name string
	Args []Expression
}

// Filter is one pipeline stage, "x|name(args)"; the subject x is always
// Args[0] once the parser has rewritten the pipe into a Filter node.
type Filter struct {
	Name string
	Args []Expression
}

// Unary is a prefix operator, "!" or "-".
type Unary struct {
	Op    string
	Inner Expression
}

// BinOp is an infix operator at one of the ten precedence levels.
type BinOp struct {
	Op          string
	Left, Right Expression
}

// Group is an explicitly parenthesised expression.
type Group struct{ Inner Expression }

func (NumLit) expressionNode()     {}
func (StrLit) expressionNode()     {}
func (Var) expressionNode()        {}
func (Path) expressionNode()       {}
func (Array) expressionNode()      {}
func (Attr) expressionNode()       {}
func (MethodCall) expressionNode() {}
func (Filter) expressionNode()     {}
func (Unary) expressionNode()      {}
func (BinOp) expressionNode()      {}
func (Group) expressionNode()      {}

// MatchVariant is a value legal as a match arm's head: Path | Name | NumLit | StrLit.
type MatchVariant interface {
	matchVariantNode()
}

type VariantPath struct{ Segments []string }
type VariantName struct{ Name string }
type VariantNumLit struct{ Text string }
type VariantStrLit struct{ Text string }

func (VariantPath) matchVariantNode()   {}
func (VariantName) matchVariantNode()   {}
func (VariantNumLit) matchVariantNode() {}
func (VariantStrLit) matchVariantNode() {}

// MatchParameter is a value legal in a match arm's "with (...)" binding list:
// Name | NumLit | StrLit.
type MatchParameter interface {
	matchParameterNode()
}

type ParamName struct{ Name string }
type ParamNumLit struct{ Text string }
type ParamStrLit struct{ Text string }

func (ParamName) matchParameterNode()   {}
func (ParamNumLit) matchParameterNode() {}
func (ParamStrLit) matchParameterNode() {}

// Target is a legal assignment lvalue. Only bare names exist today; the
// interface exists so a future destructuring target does not need to
// change every call site.
type Target interface {
	targetNode()
}

type NameTarget struct{ Name string }

func (NameTarget) targetNode() {}

// Node is implemented by every element of a template's top-level or nested
// body sequence.
type Node interface {
	nodeNode()
}

// Lit is a run of literal text, pre-split into its leading whitespace, inner
// body, and trailing whitespace so the generator can apply whitespace
// control without re-scanning the bytes.
type Lit struct {
	LWS  string
	Body string
	RWS  string
}

// Comment is "{# ... #}"; its content is discarded, only the whitespace
// sigils survive into the AST.
type Comment struct{ WS WS }

// Expr is "{{ expr }}", the only node that writes a computed value.
type Expr struct {
	WS WS
	X  Expression
}

// LetDecl is "{% let x %}" with no initializer.
type LetDecl struct {
	WS     WS
	Target Target
}

// Let is "{% let x = expr %}".
type Let struct {
	WS     WS
	Target Target
	X      Expression
}

// CondArm is one arm of an if/elif/else chain. Cond is nil for the
// terminal else arm.
type CondArm struct {
	WS   WS
	Cond Expression
	Body []Node
}

// Cond is the full if/elif*/else? chain, plus the whitespace sigils on
// "endif".
type Cond struct {
	Arms  []CondArm
	EndWS WS
}

// WhenArm is one "{% when V with (P, ...) %}" arm, or the catch-all
// "{% else %}" arm when Variant is nil.
type WhenArm struct {
	WS      WS
	Variant MatchVariant
	Params  []MatchParameter
	Body    []Node
}

// Match is "{% match subject %} ... {% endmatch %}". Interstitial holds the
// whitespace-only text (if any) between the match head and the first when,
// as required by the grammar.
type Match struct {
	WS            WS
	Subject       Expression
	Interstitial  string
	HasInterstitial bool
	Arms          []WhenArm
	EndWS         WS
}

// Loop is "{% for target in iterable %} ... {% endfor %}".
type Loop struct {
	WS1      WS
	Target   Target
	Iterable Expression
	Body     []Node
	WS2      WS
}

// Extends is "{% extends "path" %}"; Path is the raw string literal text.
// At most one may appear per template.
type Extends struct{ Path string }

// BlockDef is "{% block name %} ... {% endblock %}".
type BlockDef struct {
	WS1  WS
	Name string
	Body []Node
	WS2  WS
}

// Include is "{% include "path" %}".
type Include struct {
	WS   WS
	Path string
}

// Import is "{% import "path" as scope %}".
type Import struct {
	WS    WS
	Path  string
	Scope string
}

// MacroBody is the shared shape of a macro definition's whitespace sigils,
// parameter list and body.
type MacroBody struct {
	WS1  WS
	Args []string
	Body []Node
	WS2  WS
}

// Macro is "{% macro name(p1, p2) %} ... {% endmacro %}".
type Macro struct {
	Name string
	Body MacroBody
}

// Call is "{% call scope::name(args) %}" or "{% call name(args) %}".
type Call struct {
	WS    WS
	Scope string // empty when the call is unscoped
	Name  string
	Args  []Expression
}

// Raw is "{% raw %} ... {% endraw %}". Body is forwarded to the sink
// byte-for-byte: no directive scanning happens inside it, so a raw block is
// the escape hatch for a template that needs to emit literal "{{" or "{%"
// text. Not part of spec.md's grammar; supplemented from the original
// implementation's raw-block handling (see SPEC_FULL.md §6).
type Raw struct {
	WS1  WS
	Body string
	WS2  WS
}

func (Lit) nodeNode()      {}
func (Comment) nodeNode()  {}
func (Expr) nodeNode()     {}
func (LetDecl) nodeNode()  {}
func (Let) nodeNode()      {}
func (Cond) nodeNode()     {}
func (Match) nodeNode()    {}
func (Loop) nodeNode()     {}
func (Extends) nodeNode()  {}
func (BlockDef) nodeNode() {}
func (Include) nodeNode()  {}
func (Import) nodeNode()   {}
func (Macro) nodeNode()    {}
func (Call) nodeNode()     {}
func (Raw) nodeNode()      {}
