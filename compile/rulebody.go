package compile

import (
	"strings"

	"github.com/termfx/regolith/ast"
)

// ruleBody converts every statement into its unification form:
// assignments become UnifyExpr, with clauses UnifyExprWith, negation
// UnifyExprNot, comprehensions UnifyExprCompr, and enumerations
// UnifyExprEnum.
func (c *Compiler) ruleBody(root *ast.Node) *ast.Node {
	eachBody(root, func(body *ast.Node) {
		for i, stmt := range body.Children {
			body.Replace(i, c.ruleBodyStmt(stmt))
		}
	})
	return root
}

func (c *Compiler) ruleBodyStmt(stmt *ast.Node) *ast.Node {
	switch stmt.Kind {
	case ast.Literal:
		infix := stmt.Front().Front()
		if infix.Kind != ast.AssignInfix {
			return ast.Err(stmt, "statement did not reduce to an assignment", ast.WellFormedError)
		}
		return c.unifyExprFrom(infix)
	case ast.LiteralInit:
		infix := stmt.Child(2)
		expr := c.unifyExprFrom(infix)
		if expr.Kind == ast.Error {
			return expr
		}
		return ast.New(ast.LiteralInit, stmt.Child(0), stmt.Child(1), expr)
	case ast.LiteralNot:
		return ast.New(ast.UnifyExprNot, stmt.Front())
	case ast.LiteralWith:
		return c.unifyExprWith(stmt)
	case ast.LiteralEnum:
		return ast.New(ast.UnifyExprEnum,
			ast.Leaf(ast.Var, c.freshVar("enum")),
			stmt.Child(0), stmt.Child(1), stmt.Child(2))
	}
	return stmt
}

// unifyExprFrom selects the variable side of an assignment and builds
// UnifyExpr(var, expr). A comprehension on the value side becomes
// UnifyExprCompr.
func (c *Compiler) unifyExprFrom(infix *ast.Node) *ast.Node {
	lhs := infix.Child(0).Front()
	rhs := infix.Child(1).Front()

	v, expr := pickVarSide(lhs, rhs)
	if v == "" {
		return ast.Err(infix, "unsupported unification pattern", ast.RegoTypeError)
	}

	if compr := comprOf(expr); compr != nil {
		return ast.New(ast.UnifyExprCompr,
			ast.Leaf(ast.Var, v),
			ast.New(compr.Kind, compr.Front()),
			compr.Back())
	}
	return ast.New(ast.UnifyExpr, ast.Leaf(ast.Var, v), expr)
}

// pickVarSide prefers the left side's single variable.
func pickVarSide(lhs, rhs *ast.Node) (string, *ast.Node) {
	if v := bareVar(lhs); v != "" {
		return v, rhs
	}
	if v := bareVar(rhs); v != "" {
		return v, lhs
	}
	return "", nil
}

func bareVar(expr *ast.Node) string {
	if expr.Kind == ast.Expr {
		expr = expr.Front()
	}
	if expr.Kind == ast.RefTerm && expr.Front().Kind == ast.Var {
		name := expr.Front().Text
		if !isDocumentName(name) {
			return name
		}
	}
	return ""
}

func comprOf(expr *ast.Node) *ast.Node {
	if expr.Kind == ast.Expr {
		expr = expr.Front()
	}
	if expr.Kind != ast.Term {
		return nil
	}
	if isComprKind(expr.Front().Kind) {
		return expr.Front()
	}
	return nil
}

// unifyExprWith lowers the with targets to their document paths.
func (c *Compiler) unifyExprWith(stmt *ast.Node) *ast.Node {
	body := stmt.Front()
	for i, s := range body.Children {
		body.Replace(i, c.ruleBodyStmt(s))
	}
	withSeq := stmt.Child(1)
	out := ast.New(ast.WithSeq)
	for _, with := range withSeq.Children {
		path, ok := withPath(with.Front())
		if !ok {
			return ast.Err(with, "with targets must be input or data paths", ast.RegoTypeError)
		}
		out.Append(ast.New(ast.With, ast.Leaf(ast.Var, path), with.Child(1)))
	}
	return ast.New(ast.UnifyExprWith, body, out)
}

func withPath(target *ast.Node) (string, bool) {
	if target.Kind == ast.RuleRef {
		target = target.Front()
	}
	switch target.Kind {
	case ast.Var:
		return target.Text, target.Text == "input" || strings.HasPrefix(target.Text, "data")
	case ast.Ref:
		segments, ok := refPathStrings(target)
		if !ok {
			return "", false
		}
		path := strings.Join(segments, ".")
		return path, segments[0] == "input" || segments[0] == "data"
	}
	return "", false
}

// liftToRule is the final structural stage before call rewriting.
// Comprehensions and enumerations inside data modules evaluate in
// place through child unifiers, so nothing needs hoisting here; the
// pass verifies that every construct the unifier cannot execute has
// been eliminated.
func (c *Compiler) liftToRule(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.ExprEvery, ast.SomeDecl, ast.Enumerate, ast.Merge:
			n.Children = []*ast.Node{ast.Err(n, "construct survived compilation", ast.WellFormedError)}
			return false
		}
		return true
	})
	return root
}
