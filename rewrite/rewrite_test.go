package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/regolith/ast"
)

func renameVars(from, to string) Rule {
	return Rule{
		Pattern: func(m *Match) bool {
			return m.Node.Kind == ast.Var && m.Node.Text == from
		},
		Action: func(m *Match) *ast.Node {
			return ast.Leaf(ast.Var, to)
		},
	}
}

func TestTopDownRewrite(t *testing.T) {
	tree := ast.New(ast.Expr,
		ast.Leaf(ast.Var, "x"),
		ast.New(ast.Term, ast.Leaf(ast.Var, "x")))

	pass := &Pass{Name: "rename", Strategy: TopDown, Rules: []Rule{renameVars("x", "y")}}
	out, changes := pass.Run(tree)

	assert.Equal(t, 2, changes)
	assert.Equal(t, "y", out.Child(0).Text)
	assert.Equal(t, "y", out.Child(1).Front().Text)
}

func TestNoChangeWhenDeclined(t *testing.T) {
	tree := ast.New(ast.Expr, ast.Leaf(ast.Var, "z"))
	pass := &Pass{Name: "rename", Rules: []Rule{renameVars("x", "y")}}
	_, changes := pass.Run(tree)
	assert.Zero(t, changes)
}

func TestNilActionIsNoChange(t *testing.T) {
	calls := 0
	pass := &Pass{Name: "decline", Rules: []Rule{{
		Pattern: func(m *Match) bool { return m.Node.Kind == ast.Var },
		Action: func(m *Match) *ast.Node {
			calls++
			return nil
		},
	}}}
	tree := ast.New(ast.Expr, ast.Leaf(ast.Var, "x"))
	_, changes := pass.Run(tree)
	assert.Zero(t, changes)
	assert.Positive(t, calls)
}

func TestOnceLimitsRewrites(t *testing.T) {
	// without Once this rule would grow the tree forever; the engine
	// must stop after one application per node
	wrap := Rule{
		Pattern: func(m *Match) bool { return m.Node.Kind == ast.Var },
		Action: func(m *Match) *ast.Node {
			return ast.Leaf(ast.Var, m.Node.Text+"'")
		},
	}
	tree := ast.New(ast.Expr, ast.Leaf(ast.Var, "x"))
	pass := &Pass{Name: "tick", Strategy: BottomUp, Once: true, Rules: []Rule{wrap}}
	out, changes := pass.Run(tree)
	assert.Equal(t, 1, changes)
	assert.Equal(t, "x'", out.Front().Text)
}

func TestInContext(t *testing.T) {
	pass := &Pass{Name: "scoped", Once: true, Rules: []Rule{{
		Pattern: func(m *Match) bool {
			return m.Node.Kind == ast.Var && m.In(ast.Term)
		},
		Action: func(m *Match) *ast.Node {
			return ast.Leaf(ast.Var, "inner")
		},
	}}}

	tree := ast.New(ast.Expr,
		ast.Leaf(ast.Var, "a"),
		ast.New(ast.Term, ast.Leaf(ast.Var, "b")))
	out, changes := pass.Run(tree)
	assert.Equal(t, 1, changes)
	assert.Equal(t, "a", out.Child(0).Text)
	assert.Equal(t, "inner", out.Child(1).Front().Text)
}

func TestErrorNodesAreTerminal(t *testing.T) {
	tree := ast.New(ast.Expr,
		ast.Err(ast.Leaf(ast.Var, "x"), "bad", ast.RegoTypeError))
	pass := &Pass{Name: "rename", Rules: []Rule{renameVars("x", "y")}}
	_, changes := pass.Run(tree)
	assert.Zero(t, changes)
}

func TestLiftToAncestor(t *testing.T) {
	lifted := ast.New(ast.Local, ast.Leaf(ast.Var, "tmp"))
	pass := &Pass{Name: "hoist", Once: true, Rules: []Rule{{
		Pattern: func(m *Match) bool {
			return m.Node.Kind == ast.Expr && m.Within(ast.UnifyBody)
		},
		Action: func(m *Match) *ast.Node {
			return ast.New(ast.Expr, Lift(ast.UnifyBody, lifted))
		},
	}}}

	tree := ast.New(ast.UnifyBody,
		ast.New(ast.Literal, ast.New(ast.Expr)))
	out, _ := pass.Run(tree)

	require.Equal(t, 2, out.Len())
	assert.Same(t, lifted, out.Front())
}
