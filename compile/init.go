package compile

import (
	"strings"

	"github.com/termfx/regolith/ast"
)

// initPass distinguishes initializing assignments, which introduce a
// variable's first value, from constraining equalities, which must
// agree with an existing value. Initializers are wrapped in
// LiteralInit markers recording which side introduces which
// variables, and statements are reordered so initializers precede
// their consumers. Cycles fall back to source order; the unifier's
// bounded retry loop reports them if they never stabilize.
func (c *Compiler) initPass(root *ast.Node) *ast.Node {
	c.initWalk(root, map[string]bool{})
	return root
}

func (c *Compiler) initWalk(n *ast.Node, bound map[string]bool) {
	switch n.Kind {
	case ast.RuleFunc:
		inner := copyScope(bound)
		for _, arg := range n.Child(1).Children {
			inner[arg.Front().Text] = true
		}
		for _, child := range n.Children[2:] {
			c.initWalk(child, inner)
		}
		return
	case ast.LiteralEnum:
		inner := copyScope(bound)
		inner[n.Child(0).Text] = true
		c.initWalk(n.Back(), inner)
		return
	case ast.UnifyBody:
		c.initBody(n, bound)
		cur := copyScope(bound)
		for _, stmt := range n.Children {
			switch stmt.Kind {
			case ast.LiteralInit:
				for _, v := range stmt.Child(0).Children {
					cur[v.Text] = true
				}
				for _, v := range stmt.Child(1).Children {
					cur[v.Text] = true
				}
			case ast.LiteralEnum, ast.LiteralNot, ast.LiteralWith:
				c.initWalk(stmt, copyScope(cur))
				for _, v := range stmtAnalysis(stmt, cur).outs {
					cur[v] = true
				}
			default:
				c.initWalk(stmt, cur)
			}
		}
		return
	}
	for _, child := range n.Children {
		c.initWalk(child, bound)
	}
}

type stmtInfo struct {
	node *ast.Node
	outs []string
	uses []string
}

// initBody wraps this body's initializers and reorders its statements
// into dependency order.
func (c *Compiler) initBody(body *ast.Node, bound map[string]bool) {
	initialized := copyScope(bound)

	var locals []*ast.Node
	var infos []stmtInfo
	for _, stmt := range body.Children {
		if stmt.Kind == ast.Local {
			locals = append(locals, stmt)
			continue
		}
		info := c.classifyStmt(stmt, initialized)
		for _, v := range info.outs {
			initialized[v] = true
		}
		infos = append(infos, info)
	}

	// dependency order: a statement is ready once every variable it
	// consumes that anyone initializes has been initialized
	anyInits := copyScope(bound)
	for _, info := range infos {
		for _, v := range info.outs {
			anyInits[v] = true
		}
	}

	done := copyScope(bound)
	var ordered []*ast.Node
	remaining := infos
	for len(remaining) > 0 {
		picked := -1
		for i, info := range remaining {
			ready := true
			for _, v := range info.uses {
				if anyInits[v] && !done[v] {
					ready = false
					break
				}
			}
			if ready {
				picked = i
				break
			}
		}
		if picked < 0 {
			// dependency cycle: keep source order and let the retry
			// loop converge or report
			c.logf("init: dependency cycle in body, keeping source order")
			picked = 0
		}
		info := remaining[picked]
		for _, v := range info.outs {
			done[v] = true
		}
		ordered = append(ordered, info.node)
		remaining = append(remaining[:picked], remaining[picked+1:]...)
	}

	body.Children = append(locals, ordered...)
}

// classifyStmt computes a statement's consumed and initialized
// variables, wrapping assignments that initialize.
func (c *Compiler) classifyStmt(stmt *ast.Node, initialized map[string]bool) stmtInfo {
	switch stmt.Kind {
	case ast.Literal:
		infix := stmt.Front().Front()
		if infix.Kind != ast.AssignInfix {
			return stmtInfo{node: stmt, uses: exprLocalVars(stmt)}
		}
		lv := exprLocalVars(infix.Child(0))
		rv := exprLocalVars(infix.Child(1))
		lInit := uninitialized(lv, initialized)
		rInit := uninitialized(rv, initialized)
		if len(lInit) == 0 && len(rInit) == 0 {
			return stmtInfo{node: stmt, uses: union(lv, rv)}
		}
		wrapped := ast.New(ast.LiteralInit, varSeq(lInit), varSeq(rInit), infix)
		return stmtInfo{
			node: wrapped,
			outs: union(lInit, rInit),
			uses: subtract(union(lv, rv), union(lInit, rInit)),
		}
	case ast.LiteralEnum:
		outs := c.nestedInits(stmt.Back(), initialized, stmt.Child(0).Text)
		return stmtInfo{
			node: stmt,
			outs: outs,
			uses: subtract([]string{stmt.Child(1).Text}, outs),
		}
	case ast.LiteralWith:
		outs := c.nestedInits(stmt.Front(), initialized, "")
		return stmtInfo{
			node: stmt,
			outs: outs,
			uses: subtract(exprLocalVars(stmt.Child(1)), outs),
		}
	case ast.LiteralNot:
		return stmtInfo{node: stmt, uses: freeBodyVars(stmt.Front())}
	}
	return stmtInfo{node: stmt}
}

// nestedInits estimates which enclosing-scope variables a nested body
// initializes: variables assigned anywhere beneath it that are not
// declared in the nested bodies themselves.
func (c *Compiler) nestedInits(body *ast.Node, initialized map[string]bool, item string) []string {
	declared := map[string]bool{}
	var assigned []string
	seen := map[string]bool{}
	body.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.Local:
			declared[n.Front().Text] = true
		case ast.AssignInfix:
			for _, v := range union(exprLocalVars(n.Child(0)), exprLocalVars(n.Child(1))) {
				if !seen[v] {
					seen[v] = true
					assigned = append(assigned, v)
				}
			}
		case ast.LiteralEnum:
			declared[n.Child(0).Text] = true
		}
		return true
	})
	var outs []string
	for _, v := range assigned {
		if declared[v] || initialized[v] || v == item {
			continue
		}
		outs = append(outs, v)
	}
	return outs
}

// freeBodyVars lists variables a nested body consumes from its
// enclosing scope.
func freeBodyVars(body *ast.Node) []string {
	declared := map[string]bool{}
	var used []string
	seen := map[string]bool{}
	body.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.Local:
			declared[n.Front().Text] = true
			return false
		case ast.ExprCall:
			for _, arg := range n.Child(1).Children {
				for _, v := range exprLocalVars(arg) {
					if !seen[v] {
						seen[v] = true
						used = append(used, v)
					}
				}
			}
			return false
		case ast.Var:
			if !isDocumentName(n.Text) && !seen[n.Text] {
				seen[n.Text] = true
				used = append(used, n.Text)
			}
		}
		return true
	})
	var out []string
	for _, v := range used {
		if !declared[v] {
			out = append(out, v)
		}
	}
	return out
}

// exprLocalVars lists the variables an expression references,
// excluding call targets and document roots.
func exprLocalVars(n *ast.Node) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(*ast.Node)
	walk = func(n *ast.Node) {
		switch n.Kind {
		case ast.UnifyBody, ast.NestedBody:
			return
		case ast.ExprCall:
			walk(n.Child(1))
			return
		case ast.Var:
			if !isDocumentName(n.Text) && !seen[n.Text] {
				seen[n.Text] = true
				out = append(out, n.Text)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

func isDocumentName(name string) bool {
	return name == "input" || name == "data" || strings.HasPrefix(name, "data.")
}

func uninitialized(vars []string, initialized map[string]bool) []string {
	var out []string
	for _, v := range vars {
		if !initialized[v] {
			out = append(out, v)
		}
	}
	return out
}

func union(a, b []string) []string {
	out := append([]string{}, a...)
	seen := map[string]bool{}
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func subtract(a, b []string) []string {
	drop := map[string]bool{}
	for _, v := range b {
		drop[v] = true
	}
	var out []string
	for _, v := range a {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return out
}

func varSeq(names []string) *ast.Node {
	seq := ast.New(ast.VarSeq)
	for _, name := range names {
		seq.Append(ast.Leaf(ast.Var, name))
	}
	return seq
}

// stmtAnalysis re-derives a statement's outs after its body has been
// processed, for the walker's running bound set.
func stmtAnalysis(stmt *ast.Node, bound map[string]bool) stmtInfo {
	switch stmt.Kind {
	case ast.LiteralEnum, ast.LiteralWith:
		declared := map[string]bool{}
		var outs []string
		stmt.Walk(func(n *ast.Node) bool {
			switch n.Kind {
			case ast.Local:
				declared[n.Front().Text] = true
			case ast.LiteralInit:
				for _, seq := range []*ast.Node{n.Child(0), n.Child(1)} {
					for _, v := range seq.Children {
						if !declared[v.Text] && !bound[v.Text] {
							outs = append(outs, v.Text)
						}
					}
				}
			}
			return true
		})
		return stmtInfo{node: stmt, outs: outs}
	}
	return stmtInfo{node: stmt}
}
