package builtins

import (
	"strconv"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
	"github.com/termfx/regolith/term"
)

// The unwrap helpers implement the shared argument-validation
// contract: each produces the typed value or an eval_type_error
// naming the offending operand.

func unwrapNumber(args []*ast.Node, at int) (float64, *ast.Node) {
	v, ok := term.FloatValue(args[at])
	if !ok {
		return 0, operandErr(at, "number", args[at])
	}
	return v, nil
}

func unwrapInt(args []*ast.Node, at int) (bigint.Int, *ast.Node) {
	v, ok := term.IntValue(args[at])
	if !ok {
		return bigint.Zero, operandErr(at, "integer", args[at])
	}
	return v, nil
}

func unwrapString(args []*ast.Node, at int) (string, *ast.Node) {
	v, ok := term.StrValue(args[at])
	if !ok {
		return "", operandErr(at, "string", args[at])
	}
	return v, nil
}

func unwrapCollection(args []*ast.Node, at int) (*ast.Node, *ast.Node) {
	v := term.Unwrap(args[at])
	switch v.Kind {
	case ast.Array, ast.Set, ast.Object:
		return v, nil
	}
	return nil, operandErr(at, "one of {array, object, set}", args[at])
}

func unwrapArray(args []*ast.Node, at int) (*ast.Node, *ast.Node) {
	v := term.Unwrap(args[at])
	if v.Kind != ast.Array {
		return nil, operandErr(at, "array", args[at])
	}
	return v, nil
}

func unwrapSet(args []*ast.Node, at int) (*ast.Node, *ast.Node) {
	v := term.Unwrap(args[at])
	if v.Kind != ast.Set {
		return nil, operandErr(at, "set", args[at])
	}
	return v, nil
}

func unwrapObject(args []*ast.Node, at int) (*ast.Node, *ast.Node) {
	v := term.Unwrap(args[at])
	if v.Kind != ast.Object {
		return nil, operandErr(at, "object", args[at])
	}
	return v, nil
}

func operandErr(at int, want string, got *ast.Node) *ast.Node {
	return ast.Err(got, "operand "+strconv.Itoa(at+1)+" must be "+want+" but got "+term.TypeName(got), ast.EvalTypeError)
}

func builtinErr(msg string) *ast.Node {
	return ast.Err(nil, msg, ast.EvalBuiltInError)
}

func number(v float64) *ast.Node {
	n, ok := term.Number(v)
	if !ok {
		return builtinErr("operation result is not finite")
	}
	return n
}

func undefined() *ast.Node {
	return ast.Leaf(ast.Undefined, "")
}
