package regolith

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertResult compares result text, rendering a unified diff on
// mismatch so long documents stay reviewable.
func assertResult(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Fatalf("result mismatch:\n%s", diff)
}

func TestCompleteRuleWithDefault(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\ndefault allow = false\nallow { input.role == \"admin\" }"))
	require.NoError(t, interp.SetInput(`{"role":"admin"}`))

	result, err := interp.Query("data.p.allow")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[true]}]}`, result)
}

func TestDefaultValueWhenBodyFails(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\ndefault allow = false\nallow { input.role == \"admin\" }"))
	require.NoError(t, interp.SetInput(`{"role":"guest"}`))

	result, err := interp.Query("data.p.allow")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[false]}]}`, result)
}

func TestObjectRuleConflict(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\nr[k] = v { k := \"a\"; v := 1 } { k := \"a\"; v := 2 }"))

	result, err := interp.Query("data.p.r")
	require.NoError(t, err)
	assert.Contains(t, result, `"errors"`)
	assert.Contains(t, result, "eval_conflict_error")
}

func TestEnumerationBindings(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddData(`{"xs":[10,20,30]}`))

	result, err := interp.Query("some i; x := data.xs[i]")
	require.NoError(t, err)

	for _, binding := range []string{
		`"bindings":{"i":0,"x":10}`,
		`"bindings":{"i":1,"x":20}`,
		`"bindings":{"i":2,"x":30}`,
	} {
		assert.Contains(t, result, binding)
	}
	assert.Equal(t, 3, strings.Count(result, `"bindings"`))
}

func TestComprehensionInRule(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\nq = [x*2 | x := data.xs[_]]"))
	require.NoError(t, interp.AddData(`{"xs":[1,2,3]}`))

	result, err := interp.Query("data.p.q")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[[2,4,6]]}]}`, result)
}

func TestWithOverride(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego", "package p\na = input.x"))
	require.NoError(t, interp.SetInput(`{"x":1}`))

	result, err := interp.Query(`data.p.a with input as {"x":42}`)
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[42]}]}`, result)

	// the override is scoped to the with literal
	result, err = interp.Query("data.p.a")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[1]}]}`, result)
}

func TestStrictBuiltinError(t *testing.T) {
	interp := New()
	interp.SetStrictBuiltInErrors(true)

	result, err := interp.Query("x := 1/0")
	require.NoError(t, err)
	assert.Contains(t, result, "eval_builtin_error")

	lenient := New()
	lenient.SetStrictBuiltInErrors(false)
	result, err = lenient.Query("x := 1/0")
	require.NoError(t, err)
	assertResult(t, "{}", result)
}

func TestUndefinedQuery(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego", "package p\nq = 1 { false }"))

	result, err := interp.Query("data.p.q")
	require.NoError(t, err)
	assertResult(t, "{}", result)
}

func TestEmptyEnumerationUnsatisfied(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddData(`{"xs":[]}`))

	result, err := interp.Query("some x in data.xs")
	require.NoError(t, err)
	assertResult(t, "{}", result)
}

func TestQueryDeterminism(t *testing.T) {
	build := func() *Interpreter {
		interp := New()
		require.NoError(t, interp.AddModule("policy.rego",
			"package p\nr[k] = v { some k, v in data.m }"))
		require.NoError(t, interp.AddData(`{"m":{"b":2,"a":1,"c":3}}`))
		return interp
	}

	first, err := build().Query("data.p.r")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := build().Query("data.p.r")
		require.NoError(t, err)
		assertResult(t, first, again)
	}
}

func TestElseChain(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\nq = 1 { input.a == 1 } else = 2 { input.a == 2 } else = 3"))

	require.NoError(t, interp.SetInput(`{"a":2}`))
	result, err := interp.Query("data.p.q")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[2]}]}`, result)

	require.NoError(t, interp.SetInput(`{"a":9}`))
	result, err = interp.Query("data.p.q")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[3]}]}`, result)
}

func TestFunctionRule(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\ndouble(x) = y { y := x * 2 }"))

	result, err := interp.Query("z := data.p.double(21)")
	require.NoError(t, err)
	assert.Contains(t, result, `"bindings":{"z":42}`)
}

func TestSetRule(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\ns[x] { x := data.xs[_]; x > 1 }"))
	require.NoError(t, interp.AddData(`{"xs":[1,2,3]}`))

	result, err := interp.Query("data.p.s")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[[2,3]]}]}`, result)
}

func TestImports(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("lib.rego", "package lib\nvalue = 7"))
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\nimport data.lib\nq = lib.value"))

	result, err := interp.Query("data.p.q")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[7]}]}`, result)
}

func TestRecursionDetected(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego", "package p\nq = data.p.q"))

	result, err := interp.Query("data.p.q")
	require.NoError(t, err)
	assert.Contains(t, result, "runtime_error")
}

func TestParseErrorSurfaces(t *testing.T) {
	interp := New()
	err := interp.AddModule("broken.rego", "package p\nq = {")
	require.Error(t, err)
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "rego_parse_error", typed.Code)
}

func TestMultipleDefaultsRejected(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\ndefault q = 1\ndefault q = 2"))

	result, err := interp.Query("data.p.q")
	require.NoError(t, err)
	assert.Contains(t, result, "rego_type_error")
}

func TestNegation(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\nq { not input.blocked }"))

	require.NoError(t, interp.SetInput(`{"blocked":false}`))
	result, err := interp.Query("data.p.q")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[true]}]}`, result)

	require.NoError(t, interp.SetInput(`{"blocked":true}`))
	result, err = interp.Query("data.p.q")
	require.NoError(t, err)
	assertResult(t, "{}", result)
}

func TestBuiltinCall(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddData(`{"xs":[3,1,2]}`))

	result, err := interp.Query("n := count(data.xs)")
	require.NoError(t, err)
	assert.Contains(t, result, `"bindings":{"n":3}`)

	result, err = interp.Query("s := sort(data.xs)")
	require.NoError(t, err)
	assert.Contains(t, result, `"bindings":{"s":[1,2,3]}`)
}

func TestWFCheckedPipeline(t *testing.T) {
	interp := New()
	interp.SetWFCheckEnabled(true)
	require.NoError(t, interp.AddModule("policy.rego",
		"package p\ndefault allow = false\nallow { input.role == \"admin\" }"))
	require.NoError(t, interp.SetInput(`{"role":"admin"}`))

	result, err := interp.Query("data.p.allow")
	require.NoError(t, err)
	assertResult(t, `{"result":[{"expressions":[true]}]}`, result)
}

func TestRawQueryTree(t *testing.T) {
	interp := New()
	require.NoError(t, interp.AddModule("policy.rego", "package p\nq = 5"))

	root, err := interp.RawQuery("data.p.q")
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Contains(t, root.String(), "result")
}
