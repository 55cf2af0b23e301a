package builtins

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

func registerTypes(r *Registry) {
	r.register("is_number", 1, isType("number"))
	r.register("is_string", 1, isType("string"))
	r.register("is_boolean", 1, isType("boolean"))
	r.register("is_null", 1, isType("null"))
	r.register("is_array", 1, isType("array"))
	r.register("is_set", 1, isType("set"))
	r.register("is_object", 1, isType("object"))
	r.register("type_name", 1, typeName)
	r.register("cast_set", 1, castSet)
	r.register("cast_array", 1, castArray)
}

// isType checks succeed or are undefined, never false: a failed type
// check makes the enclosing body unsatisfied rather than binding a
// false value.
func isType(want string) Fn {
	return func(args []*ast.Node) *ast.Node {
		if term.TypeName(args[0]) == want {
			return term.Bool(true)
		}
		return undefined()
	}
}

func typeName(args []*ast.Node) *ast.Node {
	return term.Str(term.TypeName(args[0]))
}

func castSet(args []*ast.Node) *ast.Node {
	c := term.Unwrap(args[0])
	switch c.Kind {
	case ast.Set:
		return c
	case ast.Array:
		return term.Set(c.Children...)
	}
	return operandErr(0, "one of {array, set}", args[0])
}

func castArray(args []*ast.Node) *ast.Node {
	c := term.Unwrap(args[0])
	switch c.Kind {
	case ast.Array:
		return c
	case ast.Set:
		out := ast.New(ast.Array)
		for _, item := range c.Children {
			out.Append(term.Wrap(item.Clone()))
		}
		return out
	}
	return operandErr(0, "one of {array, set}", args[0])
}
