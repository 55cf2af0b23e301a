package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/regolith/ast"
)

func TestModuleStructure(t *testing.T) {
	parser := New(false)
	module, err := parser.Module("test.rego", `
package example.policy

import data.lib.helpers as h
import input.user

default allow = false

allow { user.role == "admin" }
`)
	require.NoError(t, err)
	require.Equal(t, ast.Module, module.Kind)

	pkg := module.Lookup(ast.Package)
	require.NotNil(t, pkg)
	assert.Equal(t, "example", pkg.Front().Child(0).Front().Text)

	imports := module.Lookup(ast.ImportSeq)
	require.Equal(t, 2, imports.Len())
	assert.Equal(t, "h", imports.Child(0).Child(1).Text)
	assert.Equal(t, "user", imports.Child(1).Child(1).Text)

	policy := module.Lookup(ast.Policy)
	require.Equal(t, 2, policy.Len())
	assert.Equal(t, "default", policy.Child(0).Text)
}

func TestRuleHeadKinds(t *testing.T) {
	tests := []struct {
		name string
		rule string
		kind ast.Kind
	}{
		{"complete_bare", "p { true }", ast.RuleHeadComp},
		{"complete_value", "p = 5", ast.RuleHeadComp},
		{"complete_assign", "p := 5", ast.RuleHeadComp},
		{"function", "f(x) = y { y := x }", ast.RuleHeadFunc},
		{"set_bracket", "s[x] { x := 1 }", ast.RuleHeadSet},
		{"set_contains", "s contains x if { x := 1 }", ast.RuleHeadSet},
		{"object", "o[k] = v { k := \"a\"; v := 1 }", ast.RuleHeadObj},
	}

	parser := New(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module, err := parser.Module("test.rego", "package p\n"+tt.rule)
			require.NoError(t, err)
			rule := module.Lookup(ast.Policy).Front()
			assert.Equal(t, tt.kind, rule.Front().Child(1).Kind)
		})
	}
}

func TestChainedBodiesSplitRules(t *testing.T) {
	parser := New(false)
	module, err := parser.Module("test.rego",
		"package p\nr[k] = v { k := \"a\"; v := 1 } { k := \"b\"; v := 2 }")
	require.NoError(t, err)
	assert.Equal(t, 2, module.Lookup(ast.Policy).Len())
}

func TestElseChainParses(t *testing.T) {
	parser := New(false)
	module, err := parser.Module("test.rego",
		"package p\nq = 1 { input.a } else = 2 { input.b } else = 3")
	require.NoError(t, err)
	rule := module.Lookup(ast.Policy).Front()
	assert.Equal(t, 2, rule.Child(2).Len())
}

func TestQueryLiterals(t *testing.T) {
	parser := New(false)
	query, err := parser.Query(`some i; x := data.xs[i]; not x > 10`)
	require.NoError(t, err)
	require.Equal(t, ast.Query, query.Kind)
	assert.Equal(t, 3, query.Front().Len())
}

func TestExpressionPrecedence(t *testing.T) {
	parser := New(false)
	query, err := parser.Query("x := 1 + 2 * 3")
	require.NoError(t, err)

	// the assignment's right side is an addition whose right operand
	// is the multiplication
	assign := query.Front().Front().Front().Front()
	require.Equal(t, ast.ExprInfix, assign.Kind)
	assert.Equal(t, ast.Assign, assign.Child(1).Kind)
	add := assign.Child(2).Front()
	require.Equal(t, ast.ExprInfix, add.Kind)
	assert.Equal(t, ast.Add, add.Child(1).Kind)
	mul := add.Child(2).Front()
	require.Equal(t, ast.ExprInfix, mul.Kind)
	assert.Equal(t, ast.Multiply, mul.Child(1).Kind)
}

func TestNegativeNumberFolding(t *testing.T) {
	parser := New(false)
	query, err := parser.Query("x := -7")
	require.NoError(t, err)
	num := query.Front().Front().Front().Front().Child(2).Front()
	require.Equal(t, ast.NumTerm, num.Kind)
	assert.Equal(t, "-7", num.Front().Text)
}

func TestComprehensions(t *testing.T) {
	parser := New(false)

	query, err := parser.Query("a := [x | x := data.xs[_]]")
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.ArrayCompr))

	query, err = parser.Query("s := {x | x := data.xs[_]}")
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.SetCompr))

	query, err = parser.Query("o := {k: v | v := data.m[k]}")
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.ObjectCompr))
}

func TestSetAndObjectLiterals(t *testing.T) {
	parser := New(false)

	query, err := parser.Query(`x := {1, 2, 3}`)
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.Set))

	query, err = parser.Query(`x := {"a": 1, "b": 2}`)
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.Object))

	query, err = parser.Query(`x := set()`)
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.EmptySet))
}

func TestWithModifier(t *testing.T) {
	parser := New(false)
	query, err := parser.Query(`data.p.a with input as {"x": 1} with data.b as 2`)
	require.NoError(t, err)
	lit := query.Front().Front()
	require.Equal(t, ast.LiteralWith, lit.Kind)
	assert.Equal(t, 2, lit.Child(1).Len())
}

func TestEvery(t *testing.T) {
	parser := New(false)
	query, err := parser.Query("every x in data.xs { x > 0 }")
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.ExprEvery))
}

func TestRawString(t *testing.T) {
	parser := New(false)
	query, err := parser.Query("x := `raw \\n text`")
	require.NoError(t, err)
	assert.True(t, query.Contains(ast.RawString))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unclosed_brace", "package p\nq = {"},
		{"missing_package", "q = 1"},
		{"bad_escape", `package p` + "\n" + `q = "\z"`},
		{"unterminated_string", `package p` + "\n" + `q = "abc`},
		{"default_with_body", "package p\ndefault q = 1 { true }"},
	}
	parser := New(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Module("test.rego", tt.input)
			assert.Error(t, err)
		})
	}
}

func TestV1RequiresIf(t *testing.T) {
	v1 := New(true)
	_, err := v1.Module("test.rego", "package p\nq = 1 { true }")
	assert.Error(t, err)

	_, err = v1.Module("test.rego", "package p\nq = 1 if { true }")
	assert.NoError(t, err)

	_, err = v1.Module("test.rego", "package p\ns[x] { x := 1 }")
	assert.Error(t, err)
}

func TestTermInput(t *testing.T) {
	parser := New(false)
	term, err := parser.Term(`{"a": [1, 2]}`)
	require.NoError(t, err)
	assert.Equal(t, ast.Expr, term.Kind)

	_, err = parser.Term(`{"a": } `)
	assert.Error(t, err)
}

func TestLocationTracking(t *testing.T) {
	parser := New(false)
	module, err := parser.Module("test.rego", "package p\n\nq = 5")
	require.NoError(t, err)
	var q *ast.Node
	module.Walk(func(n *ast.Node) bool {
		if n.Kind == ast.Var && n.Text == "q" {
			q = n
		}
		return true
	})
	require.NotNil(t, q)
	assert.Equal(t, 3, q.Loc.Line)
	assert.Equal(t, "test.rego", q.Loc.File)
}
