package compile

import (
	"github.com/termfx/regolith/ast"
)

// replaceArgVals rewrites function-argument value patterns into
// argument variables plus equality checks: f(1, x) := v becomes
// f(a$, x) := v with a$ == 1 prepended to the body.
func (c *Compiler) replaceArgVals(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		if n.Kind != ast.RuleFunc {
			return true
		}
		args := n.Child(1)
		body := n.Child(2)

		var checks []*ast.Node
		rewritten := ast.New(ast.RuleArgs)
		for _, arg := range args.Children {
			if arg.Kind == ast.ArgVar {
				rewritten.Append(arg)
				continue
			}
			if v := argVarName(arg); v != "" {
				rewritten.Append(ast.New(ast.ArgVar, ast.Leaf(ast.Var, v), ast.Leaf(ast.Undefined, "")))
				continue
			}
			if dt, ok := constEval(arg); ok {
				name := c.freshVar("arg")
				rewritten.Append(ast.New(ast.ArgVar, ast.Leaf(ast.Var, name), ast.Leaf(ast.Undefined, "")))
				checks = append(checks, ast.New(ast.Literal,
					infixExpr(ast.Equals, refTerm(name), dataTermExpr(dt))))
				continue
			}
			rewritten.Append(ast.New(ast.ArgVar,
				ast.Leaf(ast.Var, c.freshVar("arg")), ast.Leaf(ast.Undefined, "")))
			n.Prepend(ast.Err(arg, "function arguments must be variables or constants", ast.RegoTypeError))
		}
		n.Replace(1, rewritten)

		if len(checks) > 0 {
			if body.Kind != ast.UnifyBody {
				body = ast.New(ast.UnifyBody)
				n.Replace(2, body)
			}
			body.Prepend(checks...)
		}
		return false
	})
	return root
}
