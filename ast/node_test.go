package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	original := New(Expr, New(Term, Leaf(Var, "x")))
	clone := original.Clone()

	clone.Front().Front().Text = "y"
	assert.Equal(t, "x", original.Front().Front().Text)
	assert.True(t, original.Equal(New(Expr, New(Term, Leaf(Var, "x")))))
}

func TestEqual(t *testing.T) {
	a := New(Expr, Leaf(Var, "x"))
	b := New(Expr, Leaf(Var, "x"))
	c := New(Expr, Leaf(Var, "y"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(New(Expr)))
}

func TestChildAccessors(t *testing.T) {
	n := New(UnifyBody, Leaf(Var, "a"), Leaf(Var, "b"))

	assert.Equal(t, "a", n.Front().Text)
	assert.Equal(t, "b", n.Back().Text)
	assert.Nil(t, n.Child(5))
	assert.Nil(t, n.Child(-1))
	assert.Nil(t, Leaf(Var, "x").Front())
}

func TestLookup(t *testing.T) {
	n := New(Rego, New(Query), New(Input), New(Data))
	assert.Equal(t, Input, n.Lookup(Input).Kind)
	assert.Nil(t, n.Lookup(ModuleSeq))
}

func TestInsertRemove(t *testing.T) {
	n := New(UnifyBody, Leaf(Var, "a"), Leaf(Var, "c"))
	n.Insert(1, Leaf(Var, "b"))
	require.Equal(t, 3, n.Len())
	assert.Equal(t, "b", n.Child(1).Text)

	n.Remove(0)
	assert.Equal(t, "b", n.Front().Text)
}

func TestWalkPruning(t *testing.T) {
	tree := New(Expr, New(Term, Leaf(Var, "deep")), Leaf(Var, "shallow"))
	var visited []string
	tree.Walk(func(n *Node) bool {
		if n.Kind == Var {
			visited = append(visited, n.Text)
		}
		return n.Kind != Term
	})
	assert.Equal(t, []string{"shallow"}, visited)
}

func TestContains(t *testing.T) {
	tree := New(Expr, New(Term, New(ArrayCompr)))
	assert.True(t, tree.Contains(ArrayCompr))
	assert.False(t, tree.Contains(SetCompr))
}

func TestErrNode(t *testing.T) {
	at := Leaf(Var, "x")
	at.Loc = Location{File: "f.rego", Line: 3, Col: 7}

	e := Err(at, "boom", RegoTypeError)
	assert.Equal(t, "boom", ErrValue(e))
	assert.Equal(t, RegoTypeError, ErrCode(e))
	assert.Equal(t, 3, e.Loc.Line)

	// the offending subtree is preserved as a clone
	ast := e.Lookup(ErrorAst)
	require.NotNil(t, ast)
	assert.Equal(t, "x", ast.Front().Text)
}

func TestCollectErrors(t *testing.T) {
	tree := New(Rego,
		New(Query, Err(nil, "first", RegoTypeError)),
		Err(nil, "second", RuntimeError))

	errs := CollectErrors(tree)
	require.Len(t, errs, 2)
	assert.Equal(t, "first", ErrValue(errs[0]))
	assert.Equal(t, "second", ErrValue(errs[1]))
}

func TestStringDump(t *testing.T) {
	tree := New(Expr, Leaf(Var, "x"))
	dump := tree.String()
	assert.Contains(t, dump, "expr")
	assert.Contains(t, dump, "var `x`")
}
