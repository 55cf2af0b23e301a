package wf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/termfx/regolith/ast"
)

func testSchema() *Schema {
	return New("test", map[ast.Kind]Shape{
		ast.Module:  Seq(K(ast.Package), K(ast.ImportSeq), K(ast.Policy)),
		ast.Policy:  Seq(StarOf(ast.RuleComp)),
		ast.VarSeq:  Seq(PlusOf(ast.Var)),
		ast.Scalar:  Seq(K(ast.Int, ast.Float)),
		ast.Binding: Seq(K(ast.Var), OptOf(ast.Term)),
	})
}

func TestValidTree(t *testing.T) {
	tree := ast.New(ast.Module,
		ast.New(ast.Package),
		ast.New(ast.ImportSeq),
		ast.New(ast.Policy, ast.New(ast.RuleComp), ast.New(ast.RuleComp)))
	assert.Empty(t, testSchema().Check(tree))
}

func TestMissingChild(t *testing.T) {
	tree := ast.New(ast.Module, ast.New(ast.Package), ast.New(ast.ImportSeq))
	errs := testSchema().Check(tree)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "policy")
}

func TestUnexpectedChild(t *testing.T) {
	tree := ast.New(ast.Module,
		ast.New(ast.Package),
		ast.New(ast.ImportSeq),
		ast.New(ast.Policy),
		ast.New(ast.Policy))
	errs := testSchema().Check(tree)
	assert.Len(t, errs, 1)
}

func TestChoice(t *testing.T) {
	ok := ast.New(ast.Scalar, ast.Leaf(ast.Int, "1"))
	assert.Empty(t, testSchema().Check(ok))

	bad := ast.New(ast.Scalar, ast.Leaf(ast.JSONString, "x"))
	assert.Len(t, testSchema().Check(bad), 1)
}

func TestCardinalities(t *testing.T) {
	empty := ast.New(ast.VarSeq)
	assert.Len(t, testSchema().Check(empty), 1)

	one := ast.New(ast.VarSeq, ast.Leaf(ast.Var, "x"))
	assert.Empty(t, testSchema().Check(one))

	optional := ast.New(ast.Binding, ast.Leaf(ast.Var, "x"))
	assert.Empty(t, testSchema().Check(optional))
}

func TestErrorNodesAreExempt(t *testing.T) {
	tree := ast.New(ast.Module,
		ast.New(ast.Package),
		ast.New(ast.ImportSeq),
		ast.Err(nil, "boom", ast.RegoTypeError))
	assert.Empty(t, testSchema().Check(tree))
}

func TestExtendOverrides(t *testing.T) {
	derived := testSchema().Extend("derived", map[ast.Kind]Shape{
		ast.Scalar: Seq(K(ast.JSONString)),
	})
	tree := ast.New(ast.Scalar, ast.Leaf(ast.JSONString, "x"))
	assert.Empty(t, derived.Check(tree))
	assert.Len(t, testSchema().Check(tree), 1)

	// unrelated shapes are inherited
	module := ast.New(ast.Module, ast.New(ast.Package))
	assert.NotEmpty(t, derived.Check(module))
}

func TestNestedViolationsAccumulate(t *testing.T) {
	tree := ast.New(ast.Module,
		ast.New(ast.Package),
		ast.New(ast.ImportSeq),
		ast.New(ast.Policy,
			ast.New(ast.RuleComp,
				ast.New(ast.Scalar, ast.Leaf(ast.JSONString, "a")),
				ast.New(ast.Scalar, ast.Leaf(ast.JSONString, "b")))))
	errs := testSchema().Check(tree)
	assert.Len(t, errs, 2)
}
