package compile

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/parse"
	"github.com/termfx/regolith/term"
)

// assemble builds a pipeline input tree from source fragments.
func assemble(t *testing.T, modules []string, data, input, query string) *ast.Node {
	t.Helper()
	parser := parse.New(false)

	q, err := parser.Query(query)
	require.NoError(t, err)

	inputNode := ast.New(ast.Input)
	if input != "" {
		doc, err := term.FromJSON(input)
		require.NoError(t, err)
		inputNode.Append(doc)
	} else {
		inputNode.Append(ast.Leaf(ast.Undefined, ""))
	}

	dataSeq := ast.New(ast.DataSeq)
	if data != "" {
		doc, err := term.FromJSON(data)
		require.NoError(t, err)
		dataSeq.Append(ast.New(ast.Data, doc))
	}

	moduleSeq := ast.New(ast.ModuleSeq)
	for i, src := range modules {
		module, err := parser.Module("mod"+string(rune('0'+i))+".rego", src)
		require.NoError(t, err)
		moduleSeq.Append(module)
	}

	return ast.New(ast.Top, ast.New(ast.Rego, q, inputNode, dataSeq, moduleSeq))
}

func TestPipelineProducesResults(t *testing.T) {
	root := assemble(t,
		[]string{"package p\nq = 5"},
		"", "", "data.p.q")

	c := New(Options{WFCheck: true})
	out := c.Run(root)

	require.Empty(t, ast.CollectErrors(out), "compile should be clean")
	query := out.Front().Lookup(ast.Query)
	require.NotNil(t, query)
	require.Equal(t, 1, query.Len())
	assert.Equal(t, ast.Result, query.Front().Kind)
}

func TestSkipTableContents(t *testing.T) {
	root := assemble(t,
		[]string{"package p\nq = 5\nf(x) = y { y := x }"},
		`{"xs":[1]}`, "", "data.p.q")

	c := New(Options{})
	out := c.Run(root)
	require.Empty(t, ast.CollectErrors(out))

	for _, key := range []string{"data", "data.p", "data.p.q", "data.p.f", "data.xs"} {
		_, ok := c.skips[key]
		assert.True(t, ok, "missing skip for %s", key)
	}
}

func TestConstantRuleFolds(t *testing.T) {
	root := assemble(t, []string{"package p\nq = 5"}, "", "", "true")
	c := New(Options{})
	out := c.Run(root)

	var rule *ast.Node
	out.Walk(func(n *ast.Node) bool {
		if n.Kind == ast.RuleComp && n.Front().Text == "q" {
			rule = n
		}
		return true
	})
	require.NotNil(t, rule)
	assert.Equal(t, ast.DataTerm, rule.Child(2).Kind)
}

func TestConflictingRuleKinds(t *testing.T) {
	root := assemble(t,
		[]string{"package p\nq = 1\nq[x] { x := 2 }"},
		"", "", "data.p.q")

	c := New(Options{})
	out := c.Run(root)
	errs := ast.CollectErrors(out)
	require.NotEmpty(t, errs)
	assert.Equal(t, ast.RegoTypeError, ast.ErrCode(errs[0]))
}

func TestModuleMergePreservesBothPackages(t *testing.T) {
	root := assemble(t,
		[]string{"package a.b\nx = 1", "package a.c\ny = 2"},
		"", "", "data.a.b.x")

	c := New(Options{})
	out := c.Run(root)
	require.Empty(t, ast.CollectErrors(out))
	assert.Contains(t, c.skips, "data.a.b.x")
	assert.Contains(t, c.skips, "data.a.c.y")
	assert.Contains(t, c.skips, "data.a")
}

func TestLiftedRefHeads(t *testing.T) {
	root := assemble(t,
		[]string{"package p\na.b.c = 1"},
		"", "", "data.p.a.b.c")

	c := New(Options{})
	out := c.Run(root)
	require.Empty(t, ast.CollectErrors(out))
	assert.Contains(t, c.skips, "data.p.a.b.c")
}

func TestFreshVarsCarrySigil(t *testing.T) {
	c := New(Options{})
	name := c.freshVar("local")
	assert.True(t, strings.Contains(name, "$"))
	assert.NotEqual(t, name, c.freshVar("local"))
}

func TestConstEval(t *testing.T) {
	parser := parse.New(false)
	expr, err := parser.Term(`{"a": [1, true, null]}`)
	require.NoError(t, err)

	dt, ok := ConstEval(expr)
	require.True(t, ok)
	assert.Equal(t, `{"a":[1,true,null]}`, term.Key(dt))

	expr, err = parser.Term("[x]")
	require.NoError(t, err)
	_, ok = ConstEval(expr)
	assert.False(t, ok)
}

func TestDebugDump(t *testing.T) {
	dir := t.TempDir()
	root := assemble(t, []string{"package p\nq = 1"}, "", "", "data.p.q")
	c := New(Options{DebugPath: dir})
	c.Run(root)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Greater(t, len(entries), 20, "one dump per pass")
}
