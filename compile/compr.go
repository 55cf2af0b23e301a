package compile

import (
	"github.com/termfx/regolith/ast"
)

// rulesToCompr converts set and object rules into value bodies that
// produce their contribution through a comprehension: the rule body
// becomes the comprehension body, and resolve merges the per-def
// results.
func (c *Compiler) rulesToCompr(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.RuleSet:
			body := n.Child(1)
			elem := headExpr(n.Child(2))
			compr := ast.New(ast.SetCompr, elem,
				ast.New(ast.NestedBody,
					ast.Leaf(ast.Key, c.freshVar("setrule")),
					comprBodyFrom(body)))
			n.Replace(1, ast.Leaf(ast.Empty, ""))
			n.Replace(2, c.valueBody(ast.New(ast.Expr, ast.New(ast.Term, compr))))
			return false
		case ast.RuleObj:
			body := n.Child(1)
			key := headExpr(n.Child(2))
			val := headExpr(n.Child(3))
			compr := ast.New(ast.ObjectCompr, key, val,
				ast.New(ast.NestedBody,
					ast.Leaf(ast.Key, c.freshVar("objrule")),
					comprBodyFrom(body)))
			n.Children = []*ast.Node{
				n.Child(0),
				ast.Leaf(ast.Empty, ""),
				c.valueBody(ast.New(ast.Expr, ast.New(ast.Term, compr))),
				n.Child(4),
			}
			return false
		}
		return true
	})
	return root
}

// headExpr normalizes a possibly constant-folded head expression back
// to expression form for use inside the comprehension.
func headExpr(n *ast.Node) *ast.Node {
	if n.Kind == ast.DataTerm {
		return dataTermExpr(n)
	}
	return n
}

// comprBodyFrom reuses the rule body as the comprehension body; an
// empty rule body becomes the trivially true body.
func comprBodyFrom(body *ast.Node) *ast.Node {
	if body.Kind == ast.UnifyBody {
		return body
	}
	return ast.New(ast.UnifyBody,
		ast.New(ast.Literal, trueValueExpr()))
}

// compr arranges every comprehension so its innermost body ends with
// the explicit binding that produces the output term, leaving the
// comprehension node holding only the output variable.
func (c *Compiler) compr(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.ArrayCompr, ast.SetCompr:
			if n.Front().Kind != ast.Expr {
				return true
			}
			out := c.freshVar("out")
			body := n.Back().Child(1)
			body.Append(
				local(out),
				ast.New(ast.Literal, infixExpr(ast.Unify, refTerm(out), n.Front())))
			n.Replace(0, ast.Leaf(ast.Var, out))
		case ast.ObjectCompr:
			if n.Front().Kind != ast.Expr {
				return true
			}
			out := c.freshVar("out")
			body := n.Back().Child(1)
			pair := ast.New(ast.Expr, ast.New(ast.Term,
				ast.New(ast.Array, n.Child(0), n.Child(1))))
			body.Append(
				local(out),
				ast.New(ast.Literal, infixExpr(ast.Unify, refTerm(out), pair)))
			n.Children = []*ast.Node{ast.Leaf(ast.Var, out), n.Back()}
		}
		return true
	})
	return root
}
