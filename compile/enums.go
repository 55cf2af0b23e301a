package compile

import (
	"github.com/termfx/regolith/ast"
)

// explicitEnums normalizes `some x in xs` declarations: the domain is
// hoisted to a fresh variable, and the remainder of the body moves
// inside a LiteralEnum whose nested body binds the declared
// variables from the enumerated key/value pair.
func (c *Compiler) explicitEnums(root *ast.Node) *ast.Node {
	eachBody(root, func(body *ast.Node) {
		c.explicitEnumsBody(body)
	})
	return root
}

func (c *Compiler) explicitEnumsBody(body *ast.Node) {
	for i, stmt := range body.Children {
		if stmt.Kind != ast.Literal || stmt.Front().Kind != ast.SomeDecl {
			continue
		}
		decl := stmt.Front()
		vars := decl.Child(0)
		domain := decl.Child(1)

		item := c.freshVar("item")
		itemSeq := c.freshVar("itemseq")

		// bindings for the declared variables from the [key, value]
		// pair produced by enumeration
		inner := ast.New(ast.UnifyBody)
		switch vars.Len() {
		case 1:
			inner.Append(ast.New(ast.Literal,
				infixExpr(ast.Unify, refTerm(vars.Child(0).Text), brackRef(item, "1"))))
		case 2:
			inner.Append(ast.New(ast.Literal,
				infixExpr(ast.Unify, refTerm(vars.Child(0).Text), brackRef(item, "0"))))
			inner.Append(ast.New(ast.Literal,
				infixExpr(ast.Unify, refTerm(vars.Child(1).Text), brackRef(item, "1"))))
		default:
			body.Replace(i, ast.Err(decl, "some declarations take one or two variables", ast.RegoTypeError))
			return
		}

		// the rest of the body is scoped by the enumeration
		rest := body.Children[i+1:]
		inner.Append(rest...)

		replacement := []*ast.Node{
			local(itemSeq),
			ast.New(ast.Literal, infixExpr(ast.Unify, refTerm(itemSeq), domain)),
			ast.New(ast.LiteralEnum,
				ast.Leaf(ast.Var, item),
				ast.Leaf(ast.Var, itemSeq),
				inner),
		}
		body.Children = append(body.Children[:i], replacement...)

		// the nested body may contain further declarations
		c.explicitEnumsBody(inner)
		return
	}
}

// implicitEnums synthesizes enumerations for references whose bracket
// argument is an unbound variable: x = xs[i] with i unbound iterates
// xs, binding i to each key and x to each value.
func (c *Compiler) implicitEnums(root *ast.Node) *ast.Node {
	c.eachBoundBody(root, func(body *ast.Node, bound map[string]bool) {
		c.implicitEnumsBody(body, bound)
	})
	return root
}

// eachBoundBody walks rule bodies tracking which variables are
// already bound on entry (function arguments and enumeration items).
func (c *Compiler) eachBoundBody(root *ast.Node, fn func(*ast.Node, map[string]bool)) {
	var walk func(n *ast.Node, bound map[string]bool)
	walk = func(n *ast.Node, bound map[string]bool) {
		switch n.Kind {
		case ast.RuleFunc:
			inner := copyScope(bound)
			for _, arg := range n.Child(1).Children {
				inner[arg.Front().Text] = true
			}
			for _, c := range n.Children {
				walk(c, inner)
			}
			return
		case ast.LiteralEnum:
			inner := copyScope(bound)
			inner[n.Child(0).Text] = true
			walk(n.Child(2), inner)
			return
		case ast.UnifyBody:
			fn(n, bound)
			inner := copyScope(bound)
			for name := range bodyInitialized(n) {
				inner[name] = true
			}
			for _, c := range n.Children {
				walk(c, inner)
			}
			return
		}
		for _, c := range n.Children {
			walk(c, bound)
		}
	}
	walk(root, map[string]bool{})
}

// bodyInitialized reports the variables a body initializes via
// LiteralInit statements.
func bodyInitialized(body *ast.Node) map[string]bool {
	out := map[string]bool{}
	for _, stmt := range body.Children {
		if stmt.Kind != ast.LiteralInit {
			continue
		}
		for _, v := range stmt.Child(0).Children {
			out[v.Text] = true
		}
		for _, v := range stmt.Child(1).Children {
			out[v.Text] = true
		}
	}
	return out
}

func (c *Compiler) implicitEnumsBody(body *ast.Node, boundOnEntry map[string]bool) {
	bound := copyScope(boundOnEntry)
	for i, stmt := range body.Children {
		assign := initAssign(stmt)
		if assign == nil {
			continue
		}
		ref := findEnumerableRef(assign, bound)
		if ref == nil {
			// record initializations as they land
			if stmt.Kind == ast.LiteralInit {
				for _, v := range stmt.Child(0).Children {
					bound[v.Text] = true
				}
				for _, v := range stmt.Child(1).Children {
					bound[v.Text] = true
				}
			}
			continue
		}

		base := ref.Child(0).Text
		keyVar := ref.Child(1).Front().Front().Front().Text

		item := c.freshVar("item")
		inner := ast.New(ast.UnifyBody)
		inner.Append(ast.New(ast.LiteralInit,
			ast.New(ast.VarSeq, ast.Leaf(ast.Var, keyVar)),
			ast.New(ast.VarSeq),
			assignInfix(refTerm(keyVar), brackRef(item, "0"))))

		// the original statement now reads the element value
		replaceSimpleRef(stmt, ref, ast.New(ast.SimpleRef,
			ast.Leaf(ast.Var, item),
			ast.New(ast.RefArgBrack, ast.New(ast.Expr, ast.New(ast.NumTerm, ast.Leaf(ast.Int, "1"))))))
		inner.Append(stmt)
		inner.Append(body.Children[i+1:]...)

		body.Children = append(body.Children[:i],
			ast.New(ast.LiteralEnum,
				ast.Leaf(ast.Var, item),
				ast.Leaf(ast.Var, base),
				inner))

		c.implicitEnumsBody(inner, bound)
		return
	}
}

// initAssign extracts the AssignInfix from a statement, unwrapping a
// LiteralInit marker.
func initAssign(stmt *ast.Node) *ast.Node {
	switch stmt.Kind {
	case ast.Literal:
		if stmt.Front().Kind == ast.Expr && stmt.Front().Front().Kind == ast.AssignInfix {
			return stmt.Front().Front()
		}
	case ast.LiteralInit:
		return stmt.Child(2)
	}
	return nil
}

func assignInfix(lhs, rhs *ast.Node) *ast.Node {
	return ast.New(ast.AssignInfix, ast.New(ast.AssignArg, lhs), ast.New(ast.AssignArg, rhs))
}

// findEnumerableRef locates a SimpleRef whose bracket argument is an
// unbound variable.
func findEnumerableRef(n *ast.Node, bound map[string]bool) *ast.Node {
	if n.Kind == ast.SimpleRef {
		arg := n.Child(1)
		if arg.Kind == ast.RefArgBrack {
			inner := arg.Front()
			if inner.Kind == ast.Expr && inner.Front().Kind == ast.RefTerm &&
				inner.Front().Front().Kind == ast.Var {
				name := inner.Front().Front().Text
				if !bound[name] && !isDocumentVar(name) {
					return n
				}
			}
		}
	}
	for _, c := range n.Children {
		if c.Kind == ast.UnifyBody || c.Kind == ast.NestedBody {
			continue
		}
		if found := findEnumerableRef(c, bound); found != nil {
			return found
		}
	}
	return nil
}

func isDocumentVar(name string) bool {
	return name == "input" || name == "data"
}

// replaceSimpleRef swaps one SimpleRef node inside a statement.
func replaceSimpleRef(n *ast.Node, old, repl *ast.Node) bool {
	for i, c := range n.Children {
		if c == old {
			n.Children[i] = repl
			return true
		}
		if replaceSimpleRef(c, old, repl) {
			return true
		}
	}
	return false
}

// enumLocals declares the locals the enumeration rewrites introduced:
// every enumeration item variable becomes a Local of its nested body.
func (c *Compiler) enumLocals(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		if n.Kind != ast.LiteralEnum && n.Kind != ast.UnifyExprEnum {
			return true
		}
		item := n.Child(0)
		body := n.Back()
		if body.Kind == ast.UnifyBody && !bodyLocalNames(body)[item.Text] {
			body.Prepend(local(item.Text))
		}
		return true
	})
	return root
}
