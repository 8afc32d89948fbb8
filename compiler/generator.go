// Package compiler tree-walks the node sequence produced by package parser
// and emits Go source text: a RenderInto method on the host type, and, when
// the template defines or inherits blocks, the interface/implementation
// pair that realises template inheritance.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deicod/jinjac/host"
	"github.com/deicod/jinjac/jerr"
	"github.com/deicod/jinjac/lexer"
	"github.com/deicod/jinjac/nodes"
	"github.com/deicod/jinjac/parser"
)

// displayWrap classifies a compiled expression's output, per spec.md §4.F.
type displayWrap int

const (
	unwrapped displayWrap = iota
	wrapped
)

// generator carries the mutable state threaded through one template's code
// generation: the assembled generation state, the output buffer, the
// current scope chain, indentation depth and the whitespace machine's two
// pieces of pending state.
type generator struct {
	st           *state
	loader       host.Loader
	templatePath string
	buf          strings.Builder
	depth        int
	scope        *scopeChain
	nextWS       string
	hasNextWS    bool
	skipWS       bool
	tmpCounter   int
	includeDepth int
}

const maxIncludeDepth = 32

// builtinFilters maps catalogue filter names to the render package function
// that implements them, and whether that function's result is Wrapped.
// Extending the catalogue means editing this table, per spec.md §9.
var builtinFilters = map[string]struct {
	fn     string
	result displayWrap
}{
	"safe":       {"render.Safe_", wrapped},
	"escape":     {"render.Escape", wrapped},
	"e":          {"render.E", wrapped},
	"json":       {"render.JSON", wrapped},
	"lower":      {"render.Lower", unwrapped},
	"upper":      {"render.Upper", unwrapped},
	"trim":       {"render.Trim", unwrapped},
	"capitalize": {"render.Capitalize", unwrapped},
}

// Generate parses src and emits Go source implementing it against input.
// loader resolves "extends"/"include" paths; imported supplies macros
// brought in by a preceding import-resolution pass.
func Generate(src, templatePath string, input *host.TypeDescriptor, loader host.Loader, imported map[string]map[string]nodes.Macro) (string, error) {
	nodeList, err := parser.Parse(src, templatePath)
	if err != nil {
		return "", err
	}
	importedFlat := map[macroKey]nodes.Macro{}
	for scope, byName := range imported {
		for name, m := range byName {
			importedFlat[macroKey{Scope: scope, Name: name}] = m
		}
	}
	st, err := newState(input, nodeList, loader, importedFlat)
	if err != nil {
		return "", err
	}
	g := &generator{st: st, loader: loader, templatePath: templatePath, scope: newScopeChain(nil)}
	if err := g.generate(); err != nil {
		return "", err
	}
	return g.buf.String(), nil
}

func (g *generator) errf(kind jerr.Kind, format string, args ...any) error {
	return jerr.New(kind, g.templatePath, lexer.Position{}, format, args...)
}

func (g *generator) generate() error {
	ident := g.st.input.Ident
	hasBlocks := len(g.st.blocks) > 0 || g.st.derived

	if g.st.derived {
		if !g.st.input.HasField("_parent") {
			return g.errf(jerr.Resolution, "derived template's host type %q has no _parent field", ident)
		}
		g.writeLine(fmt.Sprintf("func (self *%s) RenderInto(sink io.StringWriter) error {", ident))
		g.writeLine(fmt.Sprintf("return self._parent.RenderTraitInto(self, sink)"))
		g.writeLine("}")
	} else if hasBlocks {
		g.writeLine(fmt.Sprintf("func (self *%s) RenderInto(sink io.StringWriter) error {", ident))
		g.writeLine("return self.RenderTraitInto(self, sink)")
		g.writeLine("}")
	} else {
		g.writeLine(fmt.Sprintf("func (self *%s) RenderInto(sink io.StringWriter) error {", ident))
		if err := g.emitBody(g.st.nodes, "self"); err != nil {
			return err
		}
		g.writeLine("return nil")
		g.writeLine("}")
	}

	g.writeLine(fmt.Sprintf("func (self *%s) String() string {", ident))
	g.writeLine("var b strings.Builder")
	g.writeLine("if err := self.RenderInto(&b); err != nil {")
	g.writeLine(fmt.Sprintf("return fmt.Sprintf(\"render error: %%v\", err)"))
	g.writeLine("}")
	g.writeLine("return b.String()")
	g.writeLine("}")

	if !hasBlocks {
		return nil
	}

	// The trait interface type is declared exactly once, by the root
	// (non-derived) template of an inheritance chain: every descendant
	// shares that same Go type by name rather than redeclaring it, the way
	// spec.md §4.F's "define a trait" step only runs for the base template.
	if !g.st.derived {
		g.writeLine(fmt.Sprintf("type %s interface {", g.st.traitName))
		for _, name := range g.st.allBlockNames {
			g.writeLine(fmt.Sprintf("RenderBlock%sInto(sink io.StringWriter) error", exportedName(name)))
		}
		g.writeLine(fmt.Sprintf("RenderTraitInto(timpl %s, sink io.StringWriter) error", g.st.traitName))
		g.writeLine("}")
	}

	ownBody := map[string]nodes.BlockDef{}
	for _, b := range g.st.blocks {
		ownBody[b.Name] = b
	}
	for _, name := range g.st.allBlockNames {
		b, overridden := ownBody[name]
		if overridden {
			g.writeLine(fmt.Sprintf("func (self *%s) RenderBlock%sInto(sink io.StringWriter) error {", ident, exportedName(name)))
			g.scope.push()
			if err := g.emitBody(b.Body, "self"); err != nil {
				return err
			}
			g.scope.pop()
			g.writeLine("return nil")
			g.writeLine("}")
			continue
		}
		// Not redefined by this template: delegate to the parent's own
		// implementation of the same block, which is itself either the
		// block body or a further delegation up the chain.
		g.writeLine(fmt.Sprintf("func (self *%s) RenderBlock%sInto(sink io.StringWriter) error {", ident, exportedName(name)))
		g.writeLine(fmt.Sprintf("return self._parent.RenderBlock%sInto(sink)", exportedName(name)))
		g.writeLine("}")
	}

	if g.st.derived {
		g.writeLine(fmt.Sprintf("func (self *%s) RenderTraitInto(timpl %s, sink io.StringWriter) error {", ident, g.st.traitName))
		g.writeLine("return self._parent.RenderTraitInto(self, sink)")
		g.writeLine("}")
	} else {
		g.writeLine(fmt.Sprintf("func (self *%s) RenderTraitInto(timpl %s, sink io.StringWriter) error {", ident, g.st.traitName))
		if err := g.emitBody(g.st.nodes, "timpl"); err != nil {
			return err
		}
		g.writeLine("return nil")
		g.writeLine("}")
	}
	return nil
}

// exportedName capitalises a template-local identifier for use as a Go
// exported method-name fragment.
func exportedName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (g *generator) indent() string { return strings.Repeat("    ", g.depth) }

func (g *generator) writeLine(s string) {
	if s == "}" || strings.HasPrefix(s, "} ") {
		if g.depth > 0 {
			g.depth--
		}
	}
	g.buf.WriteString(g.indent())
	g.buf.WriteString(s)
	g.buf.WriteString("\n")
	if strings.HasSuffix(s, "{") {
		g.depth++
	}
}

func (g *generator) newTemp() string {
	g.tmpCounter++
	return fmt.Sprintf("__tmp%d", g.tmpCounter)
}

func (g *generator) sinkWrite(lit string) {
	if lit == "" {
		return
	}
	g.writeLine(fmt.Sprintf("if _, err := sink.WriteString(%s); err != nil {", strconv.Quote(lit)))
	g.writeLine("return err")
	g.writeLine("}")
}

// flushWS emits a pending trailing-whitespace run unless this directive
// requested pre-suppression, per spec.md §4.F's whitespace machine.
func (g *generator) flushWS(ws nodes.WS) {
	if g.hasNextWS && !ws.Pre {
		g.sinkWrite(g.nextWS)
	}
	g.hasNextWS = false
	g.nextWS = ""
}

func (g *generator) prepareWS(ws nodes.WS) {
	g.skipWS = ws.Post
}

func (g *generator) handleWS(ws nodes.WS) {
	g.flushWS(ws)
	g.prepareWS(ws)
}

// emitBody emits the sink-writes/control-flow for a node sequence. ctxVar
// is the receiver name used for BlockDef dispatch ("self" for a base
// template's direct render, "timpl" inside a combined trait renderer).
func (g *generator) emitBody(body []nodes.Node, ctxVar string) error {
	for _, n := range body {
		if err := g.emitNode(n, ctxVar); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitNode(n nodes.Node, ctxVar string) error {
	switch node := n.(type) {
	case nodes.Lit:
		g.emitLit(node)
	case nodes.Comment:
		g.handleWS(node.WS)
	case nodes.Expr:
		g.flushWS(node.WS)
		text, wrap, err := g.compileExpr(node.X)
		if err != nil {
			return err
		}
		if g.st.input.Escaping == host.EscapeHTML && wrap != wrapped {
			text = fmt.Sprintf("render.HTML(%s)", text)
		}
		tmp := g.newTemp()
		g.writeLine(fmt.Sprintf("%s := fmt.Sprint(%s)", tmp, text))
		g.writeLine(fmt.Sprintf("if _, err := sink.WriteString(%s); err != nil {", tmp))
		g.writeLine("return err")
		g.writeLine("}")
		g.prepareWS(node.WS)
	case nodes.LetDecl:
		g.flushWS(node.WS)
		name := node.Target.(nodes.NameTarget).Name
		g.writeLine(fmt.Sprintf("var %s any", name))
		g.scope.insert(name)
		g.prepareWS(node.WS)
	case nodes.Let:
		g.flushWS(node.WS)
		name := node.Target.(nodes.NameTarget).Name
		text, _, err := g.compileExpr(node.X)
		if err != nil {
			return err
		}
		if g.scope.contains(name) {
			g.writeLine(fmt.Sprintf("%s = %s", name, text))
		} else {
			g.writeLine(fmt.Sprintf("%s := %s", name, text))
			g.scope.insert(name)
		}
		g.prepareWS(node.WS)
	case nodes.Cond:
		if err := g.emitCond(node, ctxVar); err != nil {
			return err
		}
	case nodes.Match:
		if err := g.emitMatch(node, ctxVar); err != nil {
			return err
		}
	case nodes.Loop:
		if err := g.emitLoop(node, ctxVar); err != nil {
			return err
		}
	case nodes.BlockDef:
		g.handleWS(node.WS1)
		g.writeLine(fmt.Sprintf("if err := %s.RenderBlock%sInto(sink); err != nil {", ctxVar, exportedName(node.Name)))
		g.writeLine("return err")
		g.writeLine("}")
		g.handleWS(node.WS2)
	case nodes.Include:
		if err := g.emitInclude(node); err != nil {
			return err
		}
	case nodes.Call:
		if err := g.emitCall(node); err != nil {
			return err
		}
	case nodes.Raw:
		g.handleWS(node.WS1)
		g.sinkWrite(node.Body)
		g.handleWS(node.WS2)
	case nodes.Import:
		// Consumed during state assembly; only whitespace remains to handle.
		g.handleWS(node.WS)
	case nodes.Macro, nodes.Extends:
		// Consumed during state assembly; these nodes record no whitespace
		// sigils for their own position, so nothing is emitted.
	default:
		return g.errf(jerr.Expression, "unhandled node type %T", n)
	}
	return nil
}

func (g *generator) emitLit(lit nodes.Lit) {
	if lit.LWS != "" {
		if g.skipWS {
			g.skipWS = false
		} else if lit.Body == "" {
			g.nextWS = lit.LWS
			g.hasNextWS = true
		} else {
			g.sinkWrite(lit.LWS)
		}
	}
	if lit.Body != "" {
		g.sinkWrite(lit.Body)
	}
	if lit.RWS != "" {
		g.nextWS = lit.RWS
		g.hasNextWS = true
	}
}

func (g *generator) emitCond(c nodes.Cond, ctxVar string) error {
	before := g.scope.depth()
	for i, arm := range c.Arms {
		g.flushWS(arm.WS)
		keyword := "if"
		if i > 0 {
			keyword = "} else if"
			if arm.Cond == nil {
				keyword = "} else"
			}
		}
		if arm.Cond != nil {
			cond, _, err := g.compileExpr(arm.Cond)
			if err != nil {
				return err
			}
			g.writeLine(fmt.Sprintf("%s %s {", keyword, cond))
		} else {
			g.writeLine(fmt.Sprintf("%s {", keyword))
		}
		g.prepareWS(arm.WS)
		g.scope.push()
		if err := g.emitBody(arm.Body, ctxVar); err != nil {
			return err
		}
		g.scope.pop()
	}
	g.writeLine("}")
	g.handleWS(c.EndWS)
	if g.scope.depth() != before {
		return g.errf(jerr.Expression, "scope hygiene violation in if/elif/else chain")
	}
	return nil
}

func (g *generator) emitLoop(l nodes.Loop, ctxVar string) error {
	before := g.scope.depth()
	g.flushWS(l.WS1)
	iterText, _, err := g.compileExpr(l.Iterable)
	if err != nil {
		return err
	}
	target := l.Target.(nodes.NameTarget).Name
	lenTmp := g.newTemp()
	g.writeLine(fmt.Sprintf("%s := %s", lenTmp, iterText))
	g.writeLine(fmt.Sprintf("for __loop_index, %s := range %s {", target, lenTmp))
	g.writeLine(fmt.Sprintf("__loop_is_last := __loop_index == len(%s)-1", lenTmp))
	g.writeLine("_ = __loop_is_last")
	g.writeLine(fmt.Sprintf("_ = %s", target))
	g.prepareWS(l.WS1)
	g.scope.push()
	g.scope.insert(target)
	g.scope.insert("loop")
	if err := g.emitBody(l.Body, ctxVar); err != nil {
		return err
	}
	g.scope.pop()
	g.writeLine("}")
	g.handleWS(l.WS2)
	if g.scope.depth() != before {
		return g.errf(jerr.Expression, "scope hygiene violation in for loop")
	}
	return nil
}

// emitMatch lowers to an if/else-if chain over the subject's value, never a
// Go type switch: case values here are arbitrary expressions (a quoted
// string, a numeric literal, a bare identifier naming a host constant), not
// types, so a `switch ... .(type)` would reject every one of them at
// compile time. When no arm in the match binds positional parameters the
// subject is compared directly; when any arm does, the subject is treated
// as a tagged tuple (a []any whose element 0 is the discriminator compared
// against each arm's variant and whose remaining elements are the
// positional payload "with (...)" binds), per spec.md §4.F.
func (g *generator) emitMatch(m nodes.Match, ctxVar string) error {
	before := g.scope.depth()
	g.flushWS(m.WS)
	subject, _, err := g.compileExpr(m.Subject)
	if err != nil {
		return err
	}
	subjTmp := g.newTemp()
	g.writeLine(fmt.Sprintf("%s := %s", subjTmp, subject))

	hasParams := false
	for _, arm := range m.Arms {
		if len(arm.Params) > 0 {
			hasParams = true
			break
		}
	}

	headTmp := subjTmp
	tupleTmp := ""
	if hasParams {
		tupleTmp = g.newTemp()
		g.writeLine(fmt.Sprintf("%s, _ := any(%s).([]any)", tupleTmp, subjTmp))
		headTmp = g.newTemp()
		g.writeLine(fmt.Sprintf("%s := %s", headTmp, subjTmp))
		g.writeLine(fmt.Sprintf("if len(%s) > 0 {", tupleTmp))
		g.writeLine(fmt.Sprintf("%s = %s[0]", headTmp, tupleTmp))
		g.writeLine("}")
	}

	for i, arm := range m.Arms {
		g.flushWS(arm.WS)
		keyword := "if"
		if i > 0 {
			keyword = "} else if"
			if arm.Variant == nil {
				keyword = "} else"
			}
		}
		switch {
		case arm.Variant == nil && i == 0:
			g.writeLine(fmt.Sprintf("%s true {", keyword))
		case arm.Variant == nil:
			g.writeLine(fmt.Sprintf("%s {", keyword))
		default:
			cond, err := g.compileMatchVariantCond(arm.Variant, headTmp)
			if err != nil {
				return err
			}
			for j, p := range arm.Params {
				lit, ok := matchParamLiteral(p)
				if !ok {
					continue
				}
				cond = fmt.Sprintf("%s && %s[%d] == %s", cond, tupleTmp, j+1, lit)
			}
			g.writeLine(fmt.Sprintf("%s %s {", keyword, cond))
		}
		g.prepareWS(arm.WS)
		g.scope.push()
		for j, p := range arm.Params {
			if pn, ok := p.(nodes.ParamName); ok {
				g.writeLine(fmt.Sprintf("%s := %s[%d]", pn.Name, tupleTmp, j+1))
				g.scope.insert(pn.Name)
			}
		}
		if err := g.emitBody(arm.Body, ctxVar); err != nil {
			g.scope.pop()
			return err
		}
		g.scope.pop()
	}
	g.writeLine("}")
	g.handleWS(m.EndWS)
	if g.scope.depth() != before {
		return g.errf(jerr.Expression, "scope hygiene violation in match arm")
	}
	return nil
}

// compileMatchVariantCond builds the boolean Go expression comparing headTmp
// (the match subject, or its tuple's discriminator element when the match
// uses positional bindings) against one arm's variant pattern.
func (g *generator) compileMatchVariantCond(v nodes.MatchVariant, headTmp string) (string, error) {
	switch variant := v.(type) {
	case nodes.VariantNumLit:
		return fmt.Sprintf("%s == %s", headTmp, variant.Text), nil
	case nodes.VariantStrLit:
		return fmt.Sprintf("%s == %s", headTmp, strconv.Quote(variant.Text)), nil
	case nodes.VariantName:
		return fmt.Sprintf("%s == %s", headTmp, variant.Name), nil
	case nodes.VariantPath:
		return fmt.Sprintf("%s == %s", headTmp, strings.Join(variant.Segments, ".")), nil
	default:
		return "", g.errf(jerr.Expression, "unhandled match variant %T", v)
	}
}

// matchParamLiteral reports the Go literal text for a match parameter that
// is itself a literal pattern rather than a binding: StrLit/NumLit
// parameters are guards on the corresponding tuple position, per spec.md
// §4.F, not names bound into the arm's scope.
func matchParamLiteral(p nodes.MatchParameter) (string, bool) {
	switch param := p.(type) {
	case nodes.ParamNumLit:
		return param.Text, true
	case nodes.ParamStrLit:
		return strconv.Quote(param.Text), true
	default:
		return "", false
	}
}

func (g *generator) emitInclude(inc nodes.Include) error {
	g.flushWS(inc.WS)
	g.includeDepth++
	if g.includeDepth > maxIncludeDepth {
		return g.errf(jerr.Structural, "include depth exceeds %d, likely a cycle", maxIncludeDepth)
	}
	resolved, err := g.loader.FindTemplate(inc.Path, g.templatePath)
	if err != nil {
		return jerr.Wrap(jerr.Resolution, g.templatePath, lexer.Position{}, err, "resolving include path %q", inc.Path)
	}
	src, err := g.loader.ReadTemplate(resolved)
	if err != nil {
		return jerr.Wrap(jerr.Resolution, g.templatePath, lexer.Position{}, err, "reading included template %q", resolved)
	}
	childNodes, err := parser.Parse(src, resolved)
	if err != nil {
		return err
	}
	child := &generator{
		st:           g.st,
		loader:       g.loader,
		templatePath: resolved,
		scope:        newScopeChain(g.scope),
		depth:        g.depth,
		tmpCounter:   g.tmpCounter,
		includeDepth: g.includeDepth,
	}
	if err := child.emitBody(childNodes, "self"); err != nil {
		return err
	}
	g.buf.WriteString(child.buf.String())
	g.tmpCounter = child.tmpCounter
	g.includeDepth--
	g.prepareWS(inc.WS)
	return nil
}

func (g *generator) emitCall(c nodes.Call) error {
	g.flushWS(c.WS)
	m, ok := g.st.macros[macroKey{Scope: c.Scope, Name: c.Name}]
	if !ok {
		qualified := c.Name
		if c.Scope != "" {
			qualified = c.Scope + "::" + c.Name
		}
		return g.errf(jerr.Resolution, "call to undefined macro %q", qualified)
	}
	g.writeLine("{")
	g.handleWS(m.Body.WS1)
	g.scope.push()
	for i, argName := range m.Body.Args {
		if i >= len(c.Args) {
			return g.errf(jerr.Resolution, "macro %q called with too few arguments", c.Name)
		}
		argText, _, err := g.compileExpr(c.Args[i])
		if err != nil {
			return err
		}
		g.writeLine(fmt.Sprintf("%s := %s", argName, argText))
		g.scope.insert(argName)
	}
	if err := g.emitBody(m.Body.Body, "self"); err != nil {
		return err
	}
	g.scope.pop()
	g.flushWS(m.Body.WS2)
	g.writeLine("}")
	g.prepareWS(c.WS)
	return nil
}
