package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deicod/jinjac/jerr"
	"github.com/deicod/jinjac/nodes"
)

// compileExpr emits the Go source text for e and classifies its result, per
// spec.md §4.F's expression emission rules.
func (g *generator) compileExpr(e nodes.Expression) (string, displayWrap, error) {
	switch expr := e.(type) {
	case nodes.NumLit:
		return expr.Text, unwrapped, nil
	case nodes.StrLit:
		return strconv.Quote(expr.Text), unwrapped, nil
	case nodes.Var:
		if expr.Name == "loop" {
			return "", unwrapped, g.errf(jerr.Expression, "bare 'loop' is not a valid expression")
		}
		if g.scope.contains(expr.Name) {
			return expr.Name, unwrapped, nil
		}
		return "self." + expr.Name, unwrapped, nil
	case nodes.Path:
		return strings.Join(expr.Segments, "."), unwrapped, nil
	case nodes.Array:
		parts := make([]string, len(expr.Elements))
		for i, el := range expr.Elements {
			t, _, err := g.compileExpr(el)
			if err != nil {
				return "", unwrapped, err
			}
			parts[i] = t
		}
		return "[]any{" + strings.Join(parts, ", ") + "}", unwrapped, nil
	case nodes.Group:
		t, w, err := g.compileExpr(expr.Inner)
		if err != nil {
			return "", unwrapped, err
		}
		return "(" + t + ")", w, nil
	case nodes.Unary:
		t, err := g.compileLiftedOperand(expr.Inner)
		if err != nil {
			return "", unwrapped, err
		}
		return expr.Op + t, unwrapped, nil
	case nodes.BinOp:
		left, err := g.compileLiftedOperand(expr.Left)
		if err != nil {
			return "", unwrapped, err
		}
		right, err := g.compileLiftedOperand(expr.Right)
		if err != nil {
			return "", unwrapped, err
		}
		return left + " " + expr.Op + " " + right, unwrapped, nil
	case nodes.Attr:
		return g.compileAttr(expr)
	case nodes.MethodCall:
		return g.compileMethodCall(expr)
	case nodes.Filter:
		return g.compileFilter(expr)
	default:
		return "", unwrapped, g.errf(jerr.Expression, "unhandled expression type %T", e)
	}
}

// compileLiftedOperand compiles e and, when e is itself a Filter or
// MethodCall, hoists the result into a fresh temporary emitted on a
// preceding line, substituting the temporary in its place. This mirrors
// argument lifting (spec.md §4.F) applied to binary/unary operands as well
// as call arguments, so that a chain like "f(x) + g(y)" never nests two
// error-prone calls inside one expression statement.
func (g *generator) compileLiftedOperand(e nodes.Expression) (string, error) {
	switch e.(type) {
	case nodes.Filter, nodes.MethodCall:
		text, _, err := g.compileExpr(e)
		if err != nil {
			return "", err
		}
		tmp := g.newTemp()
		g.writeLine(fmt.Sprintf("%s := %s", tmp, text))
		return tmp, nil
	default:
		text, _, err := g.compileExpr(e)
		return text, err
	}
}

func (g *generator) compileAttr(a nodes.Attr) (string, displayWrap, error) {
	if v, ok := a.Obj.(nodes.Var); ok && v.Name == "loop" {
		switch a.Name {
		case "index":
			return "(__loop_index + 1)", unwrapped, nil
		case "index0":
			return "__loop_index", unwrapped, nil
		case "first":
			return "(__loop_index == 0)", unwrapped, nil
		case "last":
			return "__loop_is_last", unwrapped, nil
		default:
			return "", unwrapped, g.errf(jerr.Expression, "unknown loop attribute %q", a.Name)
		}
	}
	obj, _, err := g.compileExpr(a.Obj)
	if err != nil {
		return "", unwrapped, err
	}
	return obj + "." + exportedName(a.Name), unwrapped, nil
}

func (g *generator) compileMethodCall(m nodes.MethodCall) (string, displayWrap, error) {
	args, err := g.compileArgList(m.Args)
	if err != nil {
		return "", unwrapped, err
	}
	if v, ok := m.Obj.(nodes.Var); ok && v.Name == "self" && !g.scope.contains("self") {
		return fmt.Sprintf("self.%s(%s)", exportedName(m.Name), strings.Join(args, ", ")), unwrapped, nil
	}
	obj, _, err := g.compileExpr(m.Obj)
	if err != nil {
		return "", unwrapped, err
	}
	return fmt.Sprintf("%s.%s(%s)", obj, exportedName(m.Name), strings.Join(args, ", ")), unwrapped, nil
}

// compileArgList compiles a call's argument list, lifting any argument that
// is itself a Filter or MethodCall into a preceding temporary so that no
// call nests another fallible call in argument position.
func (g *generator) compileArgList(exprs []nodes.Expression) ([]string, error) {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		t, err := g.compileLiftedOperand(e)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (g *generator) compileFilter(f nodes.Filter) (string, displayWrap, error) {
	if len(f.Args) == 0 {
		return "", unwrapped, g.errf(jerr.Expression, "filter %q called with no subject", f.Name)
	}
	subject, err := g.compileLiftedOperand(f.Args[0])
	if err != nil {
		return "", unwrapped, err
	}
	rest, err := g.compileArgList(f.Args[1:])
	if err != nil {
		return "", unwrapped, err
	}
	allArgs := append([]string{subject}, rest...)

	switch f.Name {
	case "format":
		return fmt.Sprintf("render.Format(%s)", strings.Join(allArgs, ", ")), unwrapped, nil
	case "join":
		if len(allArgs) != 2 {
			return "", unwrapped, g.errf(jerr.Expression, "'join' expects exactly one separator argument")
		}
		return fmt.Sprintf("render.Join(%s, %s)", allArgs[0], allArgs[1]), unwrapped, nil
	}

	if b, ok := builtinFilters[f.Name]; ok {
		return fmt.Sprintf("%s(%s)", b.fn, strings.Join(allArgs, ", ")), b.result, nil
	}

	return fmt.Sprintf("userfilters.%s(%s)", exportedName(f.Name), strings.Join(allArgs, ", ")), unwrapped, nil
}
