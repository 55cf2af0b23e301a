package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
	"github.com/termfx/regolith/term"
)

func intArg(v int64) *ast.Node {
	return term.Wrap(term.Int(bigint.FromInt64(v)))
}

func strArg(s string) *ast.Node {
	return term.Wrap(term.Str(s))
}

func TestDefaultRegistryContents(t *testing.T) {
	r := Default()
	for _, name := range []string{
		"count", "sum", "sort", "concat", "split", "object.get",
		"array.concat", "intersection", "union", "to_number",
		"is_string", "type_name", "base64.encode", "json.marshal",
	} {
		assert.True(t, r.Has(name), "missing %s", name)
	}
}

func TestArityLookup(t *testing.T) {
	r := Default()
	arity, ok := r.Arity("count")
	require.True(t, ok)
	assert.Equal(t, 1, arity)

	_, ok = r.Arity("no.such.builtin")
	assert.False(t, ok)
}

func TestCallArityMismatch(t *testing.T) {
	r := Default()
	out := r.Call("count", nil)
	require.Equal(t, ast.Error, out.Kind)
	assert.Equal(t, ast.RegoTypeError, ast.ErrCode(out))
}

func TestLookupPolicies(t *testing.T) {
	r := Default()
	args := []*ast.Node{term.Wrap(term.Array(term.Int(bigint.One)))}

	r.SetLookupBehavior(Whitelist, []string{"count"})
	assert.NotEqual(t, ast.Error, r.Call("count", args).Kind)
	out := r.Call("sum", args)
	require.Equal(t, ast.Error, out.Kind)
	assert.Equal(t, ast.EvalBuiltInError, ast.ErrCode(out))

	r.SetLookupBehavior(Blacklist, []string{"count"})
	assert.Equal(t, ast.Error, r.Call("count", args).Kind)
	assert.NotEqual(t, ast.Error, r.Call("sum", args).Kind)

	r.SetLookupBehavior(AllowAll, nil)
	assert.NotEqual(t, ast.Error, r.Call("count", args).Kind)
}

func TestStubsReportUnavailable(t *testing.T) {
	r := Default()
	out := r.Call("http.send", []*ast.Node{term.Wrap(term.Str("x"))})
	require.Equal(t, ast.Error, out.Kind)
	assert.Equal(t, ast.EvalBuiltInError, ast.ErrCode(out))
}

func TestCount(t *testing.T) {
	r := Default()
	assert.Equal(t, "3", term.Key(r.Call("count", []*ast.Node{
		term.Wrap(term.Array(intArg(1), intArg(2), intArg(3))),
	})))
	// strings count runes, not bytes
	assert.Equal(t, "2", term.Key(r.Call("count", []*ast.Node{strArg("héllo"[:3])})))
}

func TestAggregates(t *testing.T) {
	r := Default()
	arr := term.Wrap(term.Array(intArg(3), intArg(1), intArg(2)))

	assert.Equal(t, "6", term.Key(r.Call("sum", []*ast.Node{arr})))
	assert.Equal(t, "6", term.Key(r.Call("product", []*ast.Node{arr})))
	assert.Equal(t, "3", term.Key(r.Call("max", []*ast.Node{arr})))
	assert.Equal(t, "1", term.Key(r.Call("min", []*ast.Node{arr})))
	assert.Equal(t, "[1,2,3]", term.Key(r.Call("sort", []*ast.Node{arr})))
}

func TestStringBuiltins(t *testing.T) {
	r := Default()

	assert.Equal(t, `"a,b"`, term.Key(r.Call("concat", []*ast.Node{
		strArg(","),
		term.Wrap(term.Array(term.Str("a"), term.Str("b"))),
	})))
	assert.Equal(t, "true", term.Key(r.Call("startswith", []*ast.Node{strArg("abc"), strArg("ab")})))
	assert.Equal(t, `"ABC"`, term.Key(r.Call("upper", []*ast.Node{strArg("abc")})))
	assert.Equal(t, `["a","b"]`, term.Key(r.Call("split", []*ast.Node{strArg("a,b"), strArg(",")})))
	assert.Equal(t, `"él"`, term.Key(r.Call("substring", []*ast.Node{strArg("héllo"), intArg(1), intArg(2)})))
}

func TestObjectBuiltins(t *testing.T) {
	r := Default()
	obj := term.Wrap(term.Object([]*ast.Node{
		ast.New(ast.ObjectItem, term.Wrap(term.Str("a")), intArg(1)),
		ast.New(ast.ObjectItem, term.Wrap(term.Str("b")), intArg(2)),
	}, false))

	got := r.Call("object.get", []*ast.Node{obj, strArg("a"), intArg(9)})
	assert.Equal(t, "1", term.Key(got))

	got = r.Call("object.get", []*ast.Node{obj, strArg("zz"), intArg(9)})
	assert.Equal(t, "9", term.Key(got))

	got = r.Call("object.keys", []*ast.Node{obj})
	assert.Equal(t, `{"a","b"}`, term.Key(got))

	got = r.Call("object.remove", []*ast.Node{obj, term.Wrap(term.Set(term.Str("a")))})
	assert.Equal(t, `{"b":2}`, term.Key(got))
}

func TestTypeErrorsAreTyped(t *testing.T) {
	r := Default()
	out := r.Call("upper", []*ast.Node{intArg(1)})
	require.Equal(t, ast.Error, out.Kind)
	assert.Equal(t, ast.EvalTypeError, ast.ErrCode(out))
	assert.Contains(t, ast.ErrValue(out), "operand 1 must be string")
}

func TestNumbersRange(t *testing.T) {
	r := Default()
	assert.Equal(t, "[1,2,3]", term.Key(r.Call("numbers.range", []*ast.Node{intArg(1), intArg(3)})))
	assert.Equal(t, "[3,2,1]", term.Key(r.Call("numbers.range", []*ast.Node{intArg(3), intArg(1)})))
	assert.Equal(t, "[5]", term.Key(r.Call("numbers.range", []*ast.Node{intArg(5), intArg(5)})))
}

func TestEncodingRoundTrip(t *testing.T) {
	r := Default()
	encoded := r.Call("base64.encode", []*ast.Node{strArg("policy")})
	decoded := r.Call("base64.decode", []*ast.Node{encoded})
	assert.Equal(t, `"policy"`, term.Key(decoded))

	marshaled := r.Call("json.marshal", []*ast.Node{term.Wrap(term.Array(intArg(1)))})
	assert.Equal(t, `"[1]"`, term.Key(marshaled))
	unmarshaled := r.Call("json.unmarshal", []*ast.Node{marshaled})
	assert.Equal(t, "[1]", term.Key(unmarshaled))
}

func TestCustomRegistration(t *testing.T) {
	r := NewRegistry()
	r.Register(&Def{
		Name:      "answer",
		Arity:     0,
		Available: true,
		Fn: func(args []*ast.Node) *ast.Node {
			return term.Int(bigint.FromInt64(42))
		},
	})
	assert.Equal(t, "42", term.Key(r.Call("answer", nil)))
}
