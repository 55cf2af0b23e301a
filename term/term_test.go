package term

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
)

func TestCanonicalKeys(t *testing.T) {
	tests := []struct {
		name string
		node *ast.Node
		want string
	}{
		{"int", Int(bigint.MustParse("42")), "42"},
		{"negative", Int(bigint.MustParse("-7")), "-7"},
		{"string", Str(`he said "hi"`), `"he said \"hi\""`},
		{"bool", Bool(true), "true"},
		{"null", Null(), "null"},
		{"array", Array(Int(bigint.One), Str("a")), `[1,"a"]`},
		{
			"set_sorted",
			Set(Str("b"), Str("a"), Str("b")),
			`{"a","b"}`,
		},
		{
			"object_sorted",
			Object([]*ast.Node{
				ast.New(ast.ObjectItem, Wrap(Str("b")), Wrap(Int(bigint.MustParse("2")))),
				ast.New(ast.ObjectItem, Wrap(Str("a")), Wrap(Int(bigint.One))),
			}, false),
			`{"a":1,"b":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.node))
		})
	}
}

func TestSetDeduplicates(t *testing.T) {
	s := Set(Int(bigint.One), Int(bigint.MustParse("01")), Int(bigint.MustParse("2")))
	assert.Equal(t, 2, s.Len())
}

func TestSetInsertionOrderIndependent(t *testing.T) {
	a := Set(Int(bigint.One), Str("x"), Bool(false))
	b := Set(Bool(false), Int(bigint.One), Str("x"))
	assert.Equal(t, Key(a), Key(b))
}

func TestObjectConflict(t *testing.T) {
	items := []*ast.Node{
		ast.New(ast.ObjectItem, Wrap(Str("a")), Wrap(Int(bigint.One))),
		ast.New(ast.ObjectItem, Wrap(Str("a")), Wrap(Int(bigint.MustParse("2")))),
	}

	obj := Object(items, true)
	require.Equal(t, ast.Error, obj.Kind)
	assert.Equal(t, ast.EvalConflictError, ast.ErrCode(obj))

	// last-write-wins outside rule context
	obj = Object(items, false)
	require.Equal(t, ast.Object, obj.Kind)
	assert.Equal(t, `{"a":2}`, Key(obj))
}

func TestWrapIdempotent(t *testing.T) {
	n := Int(bigint.One)
	w := Wrap(n)
	assert.Equal(t, ast.Term, w.Kind)
	assert.Same(t, w, Wrap(w))
}

func TestFloatRejectsNonFinite(t *testing.T) {
	_, ok := Float(1.0)
	assert.True(t, ok)
	_, ok = Float(math.Inf(1))
	assert.False(t, ok)
	_, ok = Float(math.NaN())
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	doc := `{"xs":[10,20,30],"deep":{"a":null,"b":[true,false]},"s":"hi"}`
	data, err := FromJSON(doc)
	require.NoError(t, err)

	again, err := FromJSON(ToJSON(data))
	require.NoError(t, err)
	assert.Equal(t, Key(data), Key(again))
}

func TestFromJSONErrors(t *testing.T) {
	_, err := FromJSON(`{"a":`)
	assert.Error(t, err)
	_, err = FromJSON(`{} {}`)
	assert.Error(t, err)
}

func TestFromJSONPreservesBigInts(t *testing.T) {
	data, err := FromJSON(`123456789012345678901234567890`)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", Key(data))
}

func TestObjectInsert(t *testing.T) {
	obj := ast.New(ast.Object)
	require.Nil(t, ObjectInsert(obj, []string{"a", "b"}, Int(bigint.One)))
	assert.Equal(t, `{"a":{"b":1}}`, Key(obj))

	// same value is a no-op, different value conflicts
	require.Nil(t, ObjectInsert(obj, []string{"a", "b"}, Int(bigint.One)))
	e := ObjectInsert(obj, []string{"a", "b"}, Int(bigint.MustParse("2")))
	require.NotNil(t, e)
	assert.Equal(t, ast.EvalConflictError, ast.ErrCode(e))
}

func TestTruthiness(t *testing.T) {
	assert.True(t, IsTruthy(Wrap(Bool(true))))
	assert.False(t, IsTruthy(Wrap(Bool(false))))
	assert.True(t, IsTruthy(Wrap(Int(bigint.Zero))))
	assert.True(t, IsTruthy(Wrap(ast.New(ast.Array))))
	assert.False(t, IsTruthy(ast.Leaf(ast.Undefined, "")))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "number", TypeName(Wrap(Int(bigint.One))))
	assert.Equal(t, "string", TypeName(Str("x")))
	assert.Equal(t, "boolean", TypeName(Bool(true)))
	assert.Equal(t, "array", TypeName(Array()))
	assert.Equal(t, "null", TypeName(Null()))
}
