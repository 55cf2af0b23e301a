package compile

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/rewrite"
)

// infix groups expression operators into typed triples: arithmetic,
// comparison, and set operators each get their own node so that later
// stages dispatch without inspecting operator tokens. Negated
// expressions become negation bodies here as well.
func (c *Compiler) infix(root *ast.Node) *ast.Node {
	return runPass(root, &rewrite.Pass{
		Name:     "infix",
		Strategy: rewrite.BottomUp,
		Rules: []rewrite.Rule{
			{
				Pattern: func(m *rewrite.Match) bool {
					return m.Node.Kind == ast.ExprInfix && classifyOp(m.Node.Child(1).Kind) != ast.Invalid
				},
				Action: func(m *rewrite.Match) *ast.Node {
					n := m.Node
					return ast.New(classifyOp(n.Child(1).Kind), n.Child(0), n.Child(1), n.Child(2))
				},
			},
			{
				Pattern: func(m *rewrite.Match) bool {
					return m.Node.Kind == ast.Literal && m.Node.Front().Kind == ast.NotExpr
				},
				Action: func(m *rewrite.Match) *ast.Node {
					inner := m.Node.Front().Front()
					return ast.New(ast.LiteralNot,
						ast.New(ast.UnifyBody, ast.New(ast.Literal, inner)))
				},
			},
		},
	})
}

func classifyOp(op ast.Kind) ast.Kind {
	switch op {
	case ast.Add, ast.Subtract, ast.Multiply, ast.Divide, ast.Modulo:
		return ast.ArithInfix
	case ast.And, ast.Or:
		return ast.BinInfix
	case ast.Equals, ast.NotEquals, ast.LessThan, ast.LessThanOrEquals,
		ast.GreaterThan, ast.GreaterThanOrEquals:
		return ast.BoolInfix
	}
	return ast.Invalid
}

// assign rewrites every remaining unification operator into
// AssignInfix form, applies the arity+1 call convention, and turns
// naked expressions into assignments to fresh condition temporaries.
func (c *Compiler) assign(root *ast.Node) *ast.Node {
	eachBody(root, func(body *ast.Node) {
		c.assignBody(body)
	})
	return root
}

func (c *Compiler) assignBody(body *ast.Node) {
	var out []*ast.Node
	for _, stmt := range body.Children {
		if stmt.Kind != ast.Literal {
			out = append(out, stmt)
			continue
		}
		expr := stmt.Front()
		inner := expr.Front()

		if inner.Kind == ast.ExprInfix {
			op := inner.Child(1).Kind
			if op == ast.Assign || op == ast.Unify {
				stmt.Replace(0, ast.New(ast.Expr,
					assignInfix(inner.Child(0), inner.Child(2))))
				out = append(out, stmt)
				continue
			}
		}

		// v0 convention: a call with one argument beyond the
		// function's declared arity unifies the extra argument with
		// the result
		if inner.Kind == ast.ExprCall && !c.opts.V1Compatible {
			if name, ok := callName(inner); ok {
				if arity, known := c.opts.Builtins.Arity(name); known && inner.Child(1).Len() == arity+1 {
					args := inner.Child(1)
					last := args.Back()
					args.Children = args.Children[:args.Len()-1]
					stmt.Replace(0, ast.New(ast.Expr, assignInfix(last, expr)))
					out = append(out, stmt)
					continue
				}
			}
		}

		// naked expression: assign to a condition temporary
		name := c.freshVar("unify")
		out = append(out, local(name))
		stmt.Replace(0, ast.New(ast.Expr, assignInfix(refTerm(name), expr)))
		out = append(out, stmt)
	}
	body.Children = out
}
