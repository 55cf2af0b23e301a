package unify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
	"github.com/termfx/regolith/term"
)

func intVal(name string, v int64) *Value {
	return newValue(name, term.Wrap(term.Int(bigint.FromInt64(v))), 0)
}

func TestArgsCartesianProduct(t *testing.T) {
	a := []*Value{intVal("a", 1), intVal("a", 2)}
	b := []*Value{intVal("b", 10), intVal("b", 20), intVal("b", 30)}

	args := NewArgs(a, b)
	require.Equal(t, 6, args.Size())

	seen := map[string]bool{}
	for i := 0; i < args.Size(); i++ {
		tuple := args.At(i)
		require.Len(t, tuple, 2)
		seen[tuple[0].Key()+","+tuple[1].Key()] = true
	}
	assert.Len(t, seen, 6)
}

func TestArgsEmptySource(t *testing.T) {
	args := NewArgs([]*Value{intVal("a", 1)}, nil)
	assert.Equal(t, 0, args.Size())
}

func TestValueMapDeduplicates(t *testing.T) {
	m := newValueMap()
	assert.True(t, m.Insert(intVal("x", 1)))
	assert.False(t, m.Insert(intVal("x", 1)))
	assert.True(t, m.Insert(intVal("x", 2)))
	assert.Len(t, m.Valid(), 2)
}

func TestValueMapKeepsPrunedDerivations(t *testing.T) {
	m := newValueMap()
	v := intVal("x", 1)
	require.True(t, m.Insert(v))
	v.MarkInvalid()

	// the same derivation must not resurrect
	assert.False(t, m.Insert(intVal("x", 1)))
	assert.True(t, m.Empty())
}

func TestValueDependsOn(t *testing.T) {
	root := intVal("seq", 1)
	mid := newValue("item", term.Wrap(term.Int(bigint.One)), 0, root)
	leaf := newValue("x", term.Wrap(term.Int(bigint.One)), 0, mid)

	assert.True(t, leaf.DependsOn(root))
	assert.True(t, leaf.DependsOn(mid))
	assert.False(t, root.DependsOn(leaf))
}

func TestCompatibility(t *testing.T) {
	item1 := newValue("item$1", term.Wrap(term.Int(bigint.FromInt64(0))), 0)
	item2 := newValue("item$1", term.Wrap(term.Int(bigint.One)), 0)

	x1 := newValue("x", term.Wrap(term.Int(bigint.FromInt64(10))), 0, item1)
	i1 := newValue("i", term.Wrap(term.Int(bigint.FromInt64(0))), 0, item1)
	i2 := newValue("i", term.Wrap(term.Int(bigint.One)), 0, item2)

	assert.True(t, Compatible(x1, i1))
	assert.False(t, Compatible(x1, i2))
}

func TestRestrictTo(t *testing.T) {
	m := newValueMap()
	m.Insert(intVal("x", 1))
	m.Insert(intVal("x", 2))
	m.Insert(intVal("x", 3))

	changed := m.RestrictTo(map[string]bool{"2": true})
	assert.True(t, changed)
	require.Len(t, m.Valid(), 1)
	assert.Equal(t, "2", m.Valid()[0].Key())
}

func TestApplyAccess(t *testing.T) {
	arr := term.Wrap(term.Array(
		term.Str("a"), term.Str("b")))

	got := applyAccess(arr, term.Wrap(term.Int(bigint.One)))
	assert.Equal(t, `"b"`, term.Key(got))

	// out of range is undefined, not an error
	got = applyAccess(arr, term.Wrap(term.Int(bigint.FromInt64(9))))
	assert.Equal(t, ast.Undefined, got.Kind)

	// wrong index type is a typed error
	got = applyAccess(arr, term.Wrap(term.Str("x")))
	require.Equal(t, ast.Error, got.Kind)
	assert.Equal(t, ast.EvalTypeError, ast.ErrCode(got))
}

func TestApplyAccessString(t *testing.T) {
	s := term.Wrap(term.Str("héllo"))
	got := applyAccess(s, term.Wrap(term.Int(bigint.One)))
	assert.Equal(t, `"é"`, term.Key(got))
}

func TestArithPromotion(t *testing.T) {
	intNode := func(v int64) *ast.Node { return term.Wrap(term.Int(bigint.FromInt64(v))) }

	got := arithInfix(ast.Add, intNode(2), intNode(3))
	assert.Equal(t, "5", term.Key(got))

	// exact integer division stays integral
	got = arithInfix(ast.Divide, intNode(6), intNode(3))
	assert.Equal(t, "2", term.Key(got))

	got = arithInfix(ast.Divide, intNode(1), intNode(2))
	assert.Equal(t, "0.5", term.Key(got))

	got = arithInfix(ast.Divide, intNode(1), intNode(0))
	require.Equal(t, ast.Error, got.Kind)
	assert.Equal(t, ast.EvalBuiltInError, ast.ErrCode(got))
}

func TestBoolInfixMixedTypes(t *testing.T) {
	num := term.Wrap(term.Int(bigint.One))
	str := term.Wrap(term.Str("1"))

	assert.Equal(t, "false", term.Key(boolInfix(ast.Equals, num, str)))
	assert.Equal(t, "true", term.Key(boolInfix(ast.NotEquals, num, str)))
}

func TestSetOperators(t *testing.T) {
	a := term.Wrap(term.Set(term.Str("x"), term.Str("y")))
	b := term.Wrap(term.Set(term.Str("y"), term.Str("z")))

	assert.Equal(t, `{"y"}`, term.Key(binInfix(ast.And, a, b)))
	assert.Equal(t, `{"x","y","z"}`, term.Key(binInfix(ast.Or, a, b)))
}

func TestEnumeratePairs(t *testing.T) {
	arr := term.Wrap(term.Array(term.Str("a"), term.Str("b")))
	pairs := enumerate(arr)
	require.Len(t, pairs, 2)
	assert.Equal(t, `[0,"a"]`, term.Key(pairs[0]))
	assert.Equal(t, `[1,"b"]`, term.Key(pairs[1]))

	obj := term.Wrap(term.Object([]*ast.Node{
		ast.New(ast.ObjectItem, term.Wrap(term.Str("k")), term.Wrap(term.Int(bigint.One))),
	}, false))
	pairs = enumerate(obj)
	require.Len(t, pairs, 1)
	assert.Equal(t, `["k",1]`, term.Key(pairs[0]))

	set := term.Wrap(term.Set(term.Str("s")))
	pairs = enumerate(set)
	require.Len(t, pairs, 1)
	assert.Equal(t, `["s","s"]`, term.Key(pairs[0]))
}

func TestMembership(t *testing.T) {
	arr := term.Wrap(term.Array(term.Int(bigint.One), term.Int(bigint.FromInt64(2))))
	assert.Equal(t, "true", term.Key(membership(term.Wrap(term.Int(bigint.One)), arr)))
	assert.Equal(t, "false", term.Key(membership(term.Wrap(term.Int(bigint.FromInt64(9))), arr)))
}
