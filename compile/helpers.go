package compile

import (
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

// isWildcard reports whether a name is the anonymous variable.
func isWildcard(name string) bool {
	return name == "_"
}

// isCompilerVar reports whether a name was generated by the compiler.
func isCompilerVar(name string) bool {
	return strings.Contains(name, "$")
}

// refTerm builds an Expr wrapping a bare variable reference.
func refTerm(name string) *ast.Node {
	return ast.New(ast.Expr, ast.New(ast.RefTerm, ast.Leaf(ast.Var, name)))
}

// local builds a Local declaration.
func local(name string) *ast.Node {
	return ast.New(ast.Local, ast.Leaf(ast.Var, name), ast.Leaf(ast.Undefined, ""))
}

// infixExpr builds Expr(ExprInfix(lhs, op, rhs)).
func infixExpr(op ast.Kind, lhs, rhs *ast.Node) *ast.Node {
	return ast.New(ast.Expr, ast.New(ast.ExprInfix, lhs, ast.Leaf(op, ""), rhs))
}

// brackRef builds Expr(RefTerm(Ref(base[idx]))) for the fixed integer
// element accesses generated around enumerations.
func brackRef(base string, idx string) *ast.Node {
	return ast.New(ast.Expr, ast.New(ast.RefTerm,
		ast.New(ast.Ref,
			ast.New(ast.RefHead, ast.Leaf(ast.Var, base)),
			ast.New(ast.RefArgSeq,
				ast.New(ast.RefArgBrack,
					ast.New(ast.Expr, ast.New(ast.NumTerm, ast.Leaf(ast.Int, idx))))))))
}

// isConstantExpr reports whether an expression is a syntactic
// constant: scalars and collections of constants, no variables,
// references, or calls.
func isConstantExpr(n *ast.Node) bool {
	switch n.Kind {
	case ast.Expr, ast.Term, ast.Scalar, ast.String, ast.NumTerm:
		for _, c := range n.Children {
			if !isConstantExpr(c) {
				return false
			}
		}
		return true
	case ast.Int, ast.Float, ast.JSONString, ast.RawString, ast.True, ast.False, ast.Null, ast.EmptySet:
		return true
	case ast.Array, ast.Set, ast.Object, ast.ObjectItem:
		for _, c := range n.Children {
			if !isConstantExpr(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ConstEval folds a constant expression into a DataTerm, the format
// accepted for input documents supplied as policy text.
func ConstEval(expr *ast.Node) (*ast.Node, bool) {
	return constEval(expr)
}

// constEval folds a constant expression into a DataTerm. The second
// result is false when the expression is not constant.
func constEval(n *ast.Node) (*ast.Node, bool) {
	t, ok := constTerm(n)
	if !ok {
		return nil, false
	}
	return term.ToData(t), true
}

// constTerm folds a constant expression into an evaluation Term.
func constTerm(n *ast.Node) (*ast.Node, bool) {
	switch n.Kind {
	case ast.Expr, ast.String:
		return constTerm(n.Front())
	case ast.Term:
		return constTerm(n.Front())
	case ast.NumTerm, ast.Scalar:
		inner, ok := constTerm(n.Front())
		if !ok {
			return nil, false
		}
		return term.Wrap(inner), true
	case ast.Int, ast.Float, ast.JSONString, ast.True, ast.False, ast.Null:
		return term.Wrap(n.Clone()), true
	case ast.EmptySet:
		return term.Wrap(ast.New(ast.Set)), true
	case ast.Array:
		arr := ast.New(ast.Array)
		for _, c := range n.Children {
			item, ok := constTerm(c)
			if !ok {
				return nil, false
			}
			arr.Append(item)
		}
		return term.Wrap(arr), true
	case ast.Set:
		items := make([]*ast.Node, 0, len(n.Children))
		for _, c := range n.Children {
			item, ok := constTerm(c)
			if !ok {
				return nil, false
			}
			items = append(items, item)
		}
		return term.Wrap(term.Set(items...)), true
	case ast.Object:
		items := make([]*ast.Node, 0, len(n.Children))
		for _, c := range n.Children {
			k, ok := constTerm(c.Child(0))
			if !ok {
				return nil, false
			}
			v, ok := constTerm(c.Child(1))
			if !ok {
				return nil, false
			}
			items = append(items, ast.New(ast.ObjectItem, k, v))
		}
		obj := term.Object(items, false)
		if obj.Kind == ast.Error {
			return nil, false
		}
		return term.Wrap(obj), true
	default:
		return nil, false
	}
}

// dataTermExpr rebuilds an Expr from a folded DataTerm, for passes
// that need to push constants back into expression position.
func dataTermExpr(dt *ast.Node) *ast.Node {
	t := term.FromData(dt)
	inner := term.Unwrap(t)
	if inner.Kind == ast.Scalar {
		switch inner.Front().Kind {
		case ast.Int, ast.Float:
			return ast.New(ast.Expr, ast.New(ast.NumTerm, inner.Front()))
		}
	}
	return ast.New(ast.Expr, ast.New(ast.Term, inner))
}

// refPathStrings flattens a reference into its static path segments.
// The second result is false when a segment is dynamic (a non-string
// bracket argument).
func refPathStrings(ref *ast.Node) ([]string, bool) {
	head := ref.Child(0).Front()
	segments := []string{head.Text}
	for _, arg := range ref.Child(1).Children {
		seg, ok := refArgString(arg)
		if !ok {
			return segments, false
		}
		segments = append(segments, seg)
	}
	return segments, true
}

// refArgString extracts the static name of one ref argument.
func refArgString(arg *ast.Node) (string, bool) {
	switch arg.Kind {
	case ast.RefArgDot:
		return arg.Front().Text, true
	case ast.RefArgBrack:
		t, ok := constTerm(arg.Front())
		if !ok {
			return "", false
		}
		s, ok := term.StrValue(t)
		return s, ok
	}
	return "", false
}

// eachBody invokes fn over every unification body in the subtree,
// outermost first. fn may rewrite the body's statements in place.
func eachBody(root *ast.Node, fn func(body *ast.Node)) {
	root.Walk(func(n *ast.Node) bool {
		if n.Kind == ast.UnifyBody {
			fn(n)
		}
		return true
	})
}

// bodyLocalNames returns the names declared Local directly in a body.
func bodyLocalNames(body *ast.Node) map[string]bool {
	names := map[string]bool{}
	for _, stmt := range body.Children {
		if stmt.Kind == ast.Local {
			names[stmt.Front().Text] = true
		}
	}
	return names
}
