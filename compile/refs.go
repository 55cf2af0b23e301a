package compile

import (
	"github.com/termfx/regolith/ast"
)

// simpleRefs breaks every multi-step reference into single-step
// SimpleRef accesses chained through fresh temporaries, and collapses
// call targets to their dotted names.
func (c *Compiler) simpleRefs(root *ast.Node) *ast.Node {
	eachBody(root, func(body *ast.Node) {
		c.simpleRefsBody(body)
	})
	return root
}

func (c *Compiler) simpleRefsBody(body *ast.Node) {
	var out []*ast.Node
	for _, stmt := range body.Children {
		var emitted []*ast.Node
		c.lowerRefs(stmt, &emitted, body)
		out = append(out, emitted...)
		out = append(out, stmt)
	}
	body.Children = out
}

// lowerRefs rewrites RefTerm(Ref) occurrences beneath one statement,
// emitting the chain statements. Nested bodies are separate
// statement lists and are not descended into.
func (c *Compiler) lowerRefs(n *ast.Node, emitted *[]*ast.Node, body *ast.Node) {
	for i := 0; i < len(n.Children); i++ {
		child := n.Children[i]
		switch child.Kind {
		case ast.UnifyBody, ast.NestedBody:
			continue
		case ast.ExprCall:
			c.lowerCall(child, emitted, body)
			continue
		case ast.RefTerm:
			if ref := child.Front(); ref.Kind == ast.Ref {
				c.lowerRefs(ref.Child(1), emitted, body)
				child.Replace(0, c.chainRef(ref, emitted))
				continue
			}
		}
		c.lowerRefs(child, emitted, body)
	}
}

// lowerCall flattens the call target and its arguments.
func (c *Compiler) lowerCall(call *ast.Node, emitted *[]*ast.Node, body *ast.Node) {
	name, ok := callName(call)
	if !ok {
		call.Replace(0, ast.Err(call.Front(), "dynamic call target", ast.RegoTypeError))
		return
	}
	call.Replace(0, ast.Leaf(ast.Var, name))
	c.lowerRefs(call.Child(1), emitted, body)
}

// chainRef converts ref arguments into a chain of single-step
// accesses through fresh temporaries and returns the variable holding
// the final step's result.
func (c *Compiler) chainRef(ref *ast.Node, emitted *[]*ast.Node) *ast.Node {
	base := ref.Child(0).Front()
	args := ref.Child(1).Children
	cur := base
	for _, arg := range args {
		name := c.freshVar("ref")
		*emitted = append(*emitted,
			local(name),
			ast.New(ast.Literal, ast.New(ast.Expr, assignInfix(
				refTerm(name),
				ast.New(ast.Expr, ast.New(ast.RefTerm, ast.New(ast.SimpleRef, cur, arg)))))))
		cur = ast.Leaf(ast.Var, name)
	}
	return cur
}
