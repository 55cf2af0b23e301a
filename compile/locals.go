package compile

import (
	"github.com/termfx/regolith/ast"
)

// The three locals passes introduce fresh locals for anonymous
// intermediate values so that every operand reaching the unifier is a
// plain variable or constant: bodyLocals works rule and query bodies,
// valueLocals the synthesized value bodies and multi-value rule
// heads, comprLocals the comprehension bodies and their output
// expressions.

func (c *Compiler) bodyLocals(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.RuleComp:
			c.flattenBody(n.Child(1))
			return true
		case ast.RuleFunc:
			c.flattenBody(n.Child(2))
			return true
		case ast.RuleSet, ast.RuleObj:
			c.flattenBody(n.Child(1))
			return true
		}
		return true
	})
	return root
}

func (c *Compiler) valueLocals(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.RuleComp:
			c.flattenBody(n.Child(2))
		case ast.RuleFunc:
			c.flattenBody(n.Child(3))
		case ast.RuleSet:
			c.flattenHeadExpr(n, 2)
		case ast.RuleObj:
			c.flattenHeadExpr(n, 2)
			c.flattenHeadExpr(n, 3)
		}
		return true
	})
	return root
}

func (c *Compiler) comprLocals(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.ArrayCompr, ast.SetCompr:
			if n.Front().Kind == ast.Expr {
				c.flattenComprOut(n, 0, n.Back().Child(1))
			}
			c.flattenBody(n.Back().Child(1))
		case ast.ObjectCompr:
			if n.Front().Kind == ast.Expr {
				c.flattenComprOut(n, 0, n.Back().Child(1))
				c.flattenComprOut(n, 1, n.Back().Child(1))
			}
			c.flattenBody(n.Back().Child(1))
		}
		return true
	})
	return root
}

// flattenHeadExpr atomizes a multi-value rule's head expression,
// landing its temporaries in the rule body so they travel with it
// into the comprehension form.
func (c *Compiler) flattenHeadExpr(rule *ast.Node, at int) {
	expr := rule.Child(at)
	if expr.Kind != ast.Expr {
		return
	}
	body := rule.Child(1)
	if body.Kind != ast.UnifyBody {
		if !exprIsAtom(expr) {
			body = ast.New(ast.UnifyBody)
			rule.Replace(1, body)
		} else {
			return
		}
	}
	var emitted []*ast.Node
	rule.Replace(at, c.atomizeOperands(expr, &emitted))
	body.Append(emitted...)
}

// flattenComprOut atomizes a comprehension output expression; its
// temporaries append to the nested body, evaluated once per solution.
func (c *Compiler) flattenComprOut(compr *ast.Node, at int, body *ast.Node) {
	var emitted []*ast.Node
	compr.Replace(at, c.atomizeOperands(compr.Child(at), &emitted))
	body.Append(emitted...)
}

// flattenBody rewrites each statement of one body so the operands of
// its top-level expression are atoms. Nested bodies are separate
// scopes and are handled when the walk reaches them.
func (c *Compiler) flattenBody(body *ast.Node) {
	if body == nil || body.Kind != ast.UnifyBody {
		return
	}
	var out []*ast.Node
	for _, stmt := range body.Children {
		switch stmt.Kind {
		case ast.Literal:
			var emitted []*ast.Node
			c.flattenLiteral(stmt, &emitted)
			out = append(out, emitted...)
			out = append(out, stmt)
		case ast.LiteralWith:
			var emitted []*ast.Node
			withSeq := stmt.Child(1)
			for _, with := range withSeq.Children {
				val := with.Child(1)
				if val.Kind == ast.Expr && !isAtomVar(val) {
					name := c.freshVar("with")
					atomized := c.atomizeOperands(val, &emitted)
					emitted = append(emitted,
						local(name),
						ast.New(ast.Literal, infixExpr(ast.Unify, refTerm(name), atomized)))
					with.Replace(1, ast.Leaf(ast.Var, name))
				} else if val.Kind == ast.Expr {
					with.Replace(1, val.Front().Front().Clone())
				}
			}
			out = append(out, emitted...)
			c.flattenBody(stmt.Front())
			out = append(out, stmt)
		case ast.LiteralNot:
			c.flattenBody(stmt.Front())
			out = append(out, stmt)
		case ast.LiteralEnum:
			c.flattenBody(stmt.Back())
			out = append(out, stmt)
		default:
			out = append(out, stmt)
		}
	}
	body.Children = out
}

func (c *Compiler) flattenLiteral(lit *ast.Node, emitted *[]*ast.Node) {
	expr := lit.Front()
	switch expr.Kind {
	case ast.Expr:
		lit.Replace(0, c.flattenTop(expr, emitted))
	case ast.NotExpr:
		expr.Replace(0, c.flattenTop(expr.Front(), emitted))
	}
}

// flattenTop atomizes the operands of a top-level expression while
// keeping its own operator node in place.
func (c *Compiler) flattenTop(expr *ast.Node, emitted *[]*ast.Node) *ast.Node {
	inner := expr.Front()
	switch inner.Kind {
	case ast.ExprInfix:
		op := inner.Child(1).Kind
		if op == ast.Assign || op == ast.Unify {
			// one side of a unification may stay structured one level
			inner.Replace(0, c.flattenAssignSide(inner.Child(0), emitted))
			inner.Replace(2, c.flattenAssignSide(inner.Child(2), emitted))
			return expr
		}
		inner.Replace(0, c.ensureAtom(inner.Child(0), emitted))
		inner.Replace(2, c.ensureAtom(inner.Child(2), emitted))
		return expr
	case ast.ExprCall:
		c.atomizeCallArgs(inner, emitted)
		return expr
	case ast.UnaryExpr:
		inner.Replace(0, c.ensureAtom(inner.Front(), emitted))
		return expr
	case ast.Term:
		return c.atomizeOperands(expr, emitted)
	case ast.RefTerm:
		return c.atomizeOperands(expr, emitted)
	}
	return expr
}

// flattenAssignSide keeps one structural level under an assignment
// but atomizes everything beneath it.
func (c *Compiler) flattenAssignSide(expr *ast.Node, emitted *[]*ast.Node) *ast.Node {
	inner := expr.Front()
	switch inner.Kind {
	case ast.ExprInfix:
		inner.Replace(0, c.ensureAtom(inner.Child(0), emitted))
		inner.Replace(2, c.ensureAtom(inner.Child(2), emitted))
		return expr
	case ast.ExprCall:
		c.atomizeCallArgs(inner, emitted)
		return expr
	case ast.UnaryExpr:
		inner.Replace(0, c.ensureAtom(inner.Front(), emitted))
		return expr
	case ast.Term:
		if isComprKind(inner.Front().Kind) {
			// a comprehension alone on one side stays put
			return expr
		}
		return c.atomizeOperands(expr, emitted)
	default:
		return c.atomizeOperands(expr, emitted)
	}
}

func (c *Compiler) atomizeCallArgs(call *ast.Node, emitted *[]*ast.Node) {
	args := call.Child(1)
	for i, arg := range args.Children {
		args.Replace(i, c.ensureAtom(arg, emitted))
	}
}

// atomizeOperands rewrites the interior of an atom candidate —
// bracket arguments, collection members, membership operands — in
// place, and hoists constructs that cannot stay in operand position.
func (c *Compiler) atomizeOperands(expr *ast.Node, emitted *[]*ast.Node) *ast.Node {
	inner := expr.Front()
	switch inner.Kind {
	case ast.RefTerm:
		if ref := inner.Front(); ref.Kind == ast.Ref {
			for _, arg := range ref.Child(1).Children {
				if arg.Kind == ast.RefArgBrack {
					arg.Replace(0, c.ensureAtom(arg.Front(), emitted))
				}
			}
		}
		return expr
	case ast.NumTerm:
		return expr
	case ast.Term:
		t := inner.Front()
		switch t.Kind {
		case ast.Array, ast.Set:
			for i, item := range t.Children {
				t.Replace(i, c.ensureAtom(item, emitted))
			}
		case ast.Object:
			for _, item := range t.Children {
				item.Replace(0, c.ensureAtom(item.Child(0), emitted))
				item.Replace(1, c.ensureAtom(item.Child(1), emitted))
			}
		case ast.Membership:
			t.Replace(0, c.ensureAtom(t.Child(0), emitted))
			t.Replace(1, c.ensureAtom(t.Child(1), emitted))
		}
		return expr
	case ast.ExprInfix:
		inner.Replace(0, c.ensureAtom(inner.Child(0), emitted))
		inner.Replace(2, c.ensureAtom(inner.Child(2), emitted))
		return c.hoist(expr, emitted)
	case ast.ExprCall:
		c.atomizeCallArgs(inner, emitted)
		return c.hoist(expr, emitted)
	case ast.UnaryExpr:
		inner.Replace(0, c.ensureAtom(inner.Front(), emitted))
		return c.hoist(expr, emitted)
	}
	return expr
}

// ensureAtom returns an atomic expression, hoisting the original into
// a fresh local when needed.
func (c *Compiler) ensureAtom(expr *ast.Node, emitted *[]*ast.Node) *ast.Node {
	expr = c.atomizeOperands(expr, emitted)
	if exprIsAtom(expr) {
		return expr
	}
	return c.hoist(expr, emitted)
}

// hoist moves an expression into a fresh local, emitting its binding
// statement, and returns a reference to the local.
func (c *Compiler) hoist(expr *ast.Node, emitted *[]*ast.Node) *ast.Node {
	if ref := expr.Front(); ref != nil && ref.Kind == ast.RefTerm && ref.Front().Kind == ast.Var {
		return expr
	}
	name := c.freshVar("local")
	*emitted = append(*emitted,
		local(name),
		ast.New(ast.Literal, infixExpr(ast.Unify, refTerm(name), expr)))
	return refTerm(name)
}

// exprIsAtom reports whether an expression needs no further
// flattening: variables, literals, references with atomic bracket
// arguments, and collections of atoms.
func exprIsAtom(expr *ast.Node) bool {
	if expr.Kind != ast.Expr {
		return false
	}
	inner := expr.Front()
	switch inner.Kind {
	case ast.NumTerm:
		return true
	case ast.RefTerm:
		ref := inner.Front()
		if ref.Kind == ast.Var {
			return true
		}
		if ref.Kind == ast.Ref {
			for _, arg := range ref.Child(1).Children {
				if arg.Kind == ast.RefArgBrack && !exprIsAtom(arg.Front()) {
					return false
				}
			}
			return true
		}
		return ref.Kind == ast.SimpleRef
	case ast.Term:
		t := inner.Front()
		switch t.Kind {
		case ast.Scalar, ast.EmptySet:
			return true
		case ast.Array, ast.Set:
			for _, item := range t.Children {
				if !exprIsAtom(item) {
					return false
				}
			}
			return true
		case ast.Object:
			for _, item := range t.Children {
				if !exprIsAtom(item.Child(0)) || !exprIsAtom(item.Child(1)) {
					return false
				}
			}
			return true
		}
		return false
	}
	return false
}

func isComprKind(k ast.Kind) bool {
	return k == ast.ArrayCompr || k == ast.SetCompr || k == ast.ObjectCompr
}

func isAtomVar(expr *ast.Node) bool {
	return expr.Kind == ast.Expr && expr.Front().Kind == ast.RefTerm &&
		expr.Front().Front().Kind == ast.Var
}
