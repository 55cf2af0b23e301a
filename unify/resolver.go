package unify

import (
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
	"github.com/termfx/regolith/term"
)

// The resolver implements the strict, type-checked operations the
// unifier dispatches on: infix operators, container access, and
// membership. Each returns a Term, an Undefined marker, or an error
// node.

func undefinedNode() *ast.Node {
	return ast.Leaf(ast.Undefined, "")
}

// arithInfix applies an arithmetic operator with int/float promotion:
// two integers stay integral except for inexact division.
func arithInfix(op ast.Kind, lhs, rhs *ast.Node) *ast.Node {
	li, lok := term.IntValue(lhs)
	ri, rok := term.IntValue(rhs)
	if lok && rok {
		switch op {
		case ast.Add:
			return term.Int(li.Add(ri))
		case ast.Subtract:
			return term.Int(li.Sub(ri))
		case ast.Multiply:
			return term.Int(li.Mul(ri))
		case ast.Divide:
			q, ok := li.Div(ri)
			if !ok {
				return ast.Err(lhs, "divide by zero", ast.EvalBuiltInError)
			}
			if r, _ := li.Mod(ri); r.IsZero() {
				return term.Int(q)
			}
			return floatNode(li.Float64() / ri.Float64())
		case ast.Modulo:
			r, ok := li.Mod(ri)
			if !ok {
				return ast.Err(lhs, "modulo by zero", ast.EvalBuiltInError)
			}
			return term.Int(r)
		}
	}

	lf, lok := term.FloatValue(lhs)
	rf, rok := term.FloatValue(rhs)
	if !lok {
		return typeError(lhs, "number", lhs)
	}
	if !rok {
		return typeError(rhs, "number", rhs)
	}
	switch op {
	case ast.Add:
		return floatNode(lf + rf)
	case ast.Subtract:
		return floatNode(lf - rf)
	case ast.Multiply:
		return floatNode(lf * rf)
	case ast.Divide:
		if rf == 0 {
			return ast.Err(lhs, "divide by zero", ast.EvalBuiltInError)
		}
		return floatNode(lf / rf)
	case ast.Modulo:
		return ast.Err(lhs, "modulo on floating-point number", ast.EvalBuiltInError)
	}
	return ast.Err(lhs, "unknown arithmetic operator", ast.WellFormedError)
}

func floatNode(v float64) *ast.Node {
	n, ok := term.Number(v)
	if !ok {
		return ast.Err(nil, "arithmetic result is not finite", ast.EvalBuiltInError)
	}
	return n
}

func typeError(at *ast.Node, want string, got *ast.Node) *ast.Node {
	return ast.Err(at, "operand must be "+want+" but got "+term.TypeName(got), ast.EvalTypeError)
}

// boolInfix applies a comparison by canonical-key ordering for like
// types, with numeric comparison for numbers.
func boolInfix(op ast.Kind, lhs, rhs *ast.Node) *ast.Node {
	cmp, ok := compareTerms(lhs, rhs)
	if !ok {
		// distinct types are only comparable for equality
		switch op {
		case ast.Equals:
			return term.Bool(false)
		case ast.NotEquals:
			return term.Bool(true)
		}
		return typeError(lhs, term.TypeName(lhs), rhs)
	}
	switch op {
	case ast.Equals:
		return term.Bool(cmp == 0)
	case ast.NotEquals:
		return term.Bool(cmp != 0)
	case ast.LessThan:
		return term.Bool(cmp < 0)
	case ast.LessThanOrEquals:
		return term.Bool(cmp <= 0)
	case ast.GreaterThan:
		return term.Bool(cmp > 0)
	case ast.GreaterThanOrEquals:
		return term.Bool(cmp >= 0)
	}
	return ast.Err(lhs, "unknown comparison operator", ast.WellFormedError)
}

func compareTerms(lhs, rhs *ast.Node) (int, bool) {
	lt, rt := term.TypeName(lhs), term.TypeName(rhs)
	if lt != rt {
		return 0, false
	}
	if lt == "number" {
		lf, _ := term.FloatValue(lhs)
		rf, _ := term.FloatValue(rhs)
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		}
		return 0, true
	}
	return term.Compare(lhs, rhs), true
}

// binInfix applies the set operators.
func binInfix(op ast.Kind, lhs, rhs *ast.Node) *ast.Node {
	l := term.Unwrap(lhs)
	r := term.Unwrap(rhs)
	if l.Kind != ast.Set {
		return typeError(lhs, "set", lhs)
	}
	if r.Kind != ast.Set {
		return typeError(rhs, "set", rhs)
	}
	switch op {
	case ast.And:
		return setIntersection(l, r)
	case ast.Or:
		return setUnion(l, r)
	}
	return ast.Err(lhs, "unknown set operator", ast.WellFormedError)
}

func setIntersection(l, r *ast.Node) *ast.Node {
	keys := map[string]bool{}
	for _, item := range r.Children {
		keys[term.Key(item)] = true
	}
	var items []*ast.Node
	for _, item := range l.Children {
		if keys[term.Key(item)] {
			items = append(items, item)
		}
	}
	return term.Set(items...)
}

func setUnion(l, r *ast.Node) *ast.Node {
	items := append(append([]*ast.Node{}, l.Children...), r.Children...)
	return term.Set(items...)
}

func setDifference(l, r *ast.Node) *ast.Node {
	keys := map[string]bool{}
	for _, item := range r.Children {
		keys[term.Key(item)] = true
	}
	var items []*ast.Node
	for _, item := range l.Children {
		if !keys[term.Key(item)] {
			items = append(items, item)
		}
	}
	return term.Set(items...)
}

// unary negates a numeric term.
func unary(val *ast.Node) *ast.Node {
	if i, ok := term.IntValue(val); ok {
		return term.Int(i.Negate())
	}
	if f, ok := term.FloatValue(val); ok {
		return floatNode(-f)
	}
	return typeError(val, "number", val)
}

// applyAccess indexes a container: integer index for arrays, key
// lookup for objects, membership for sets, and UTF-8 character access
// for strings. An absent element is undefined, not an error; an
// incompatible index is a type error.
func applyAccess(container, index *ast.Node) *ast.Node {
	c := term.Unwrap(container)
	switch c.Kind {
	case ast.Array:
		i, ok := term.IntValue(index)
		if !ok {
			return typeError(index, "number", index)
		}
		at, ok := i.Size()
		if !ok || at >= c.Len() {
			return undefinedNode()
		}
		return c.Child(at)
	case ast.Object:
		want := term.Key(index)
		for _, item := range c.Children {
			if term.Key(item.Child(0)) == want {
				return item.Child(1)
			}
		}
		return undefinedNode()
	case ast.Set:
		want := term.Key(index)
		for _, item := range c.Children {
			if term.Key(item) == want {
				return item
			}
		}
		return undefinedNode()
	case ast.Scalar:
		if s, ok := term.StrValue(container); ok {
			i, iok := term.IntValue(index)
			if !iok {
				return typeError(index, "number", index)
			}
			at, aok := i.Size()
			if !aok {
				return undefinedNode()
			}
			runes := []rune(s)
			if at >= len(runes) {
				return undefinedNode()
			}
			return term.Str(string(runes[at]))
		}
	case ast.Undefined:
		return undefinedNode()
	}
	return ast.Err(container, "cannot index "+term.TypeName(container), ast.EvalTypeError)
}

// membership implements `item in collection`.
func membership(item, seq *ast.Node) *ast.Node {
	s := term.Unwrap(seq)
	want := term.Key(item)
	switch s.Kind {
	case ast.Array, ast.Set:
		for _, member := range s.Children {
			if term.Key(member) == want {
				return term.Bool(true)
			}
		}
		return term.Bool(false)
	case ast.Object:
		for _, entry := range s.Children {
			if term.Key(entry.Child(1)) == want {
				return term.Bool(true)
			}
		}
		return term.Bool(false)
	}
	return typeError(seq, "collection", seq)
}

// enumerate produces the [key, value] pairs of a container, the
// uniform currency of enumeration statements.
func enumerate(container *ast.Node) []*ast.Node {
	c := term.Unwrap(container)
	var pairs []*ast.Node
	switch c.Kind {
	case ast.Array:
		for i, item := range c.Children {
			pairs = append(pairs, term.Wrap(term.Array(
				term.Int(bigint.FromSize(i)), item)))
		}
	case ast.Object:
		for _, entry := range c.Children {
			pairs = append(pairs, term.Wrap(term.Array(entry.Child(0), entry.Child(1))))
		}
	case ast.Set:
		for _, item := range c.Children {
			pairs = append(pairs, term.Wrap(term.Array(item, item)))
		}
	}
	return pairs
}

// isInternalFunction reports whether a function name belongs to the
// unifier's own dispatcher rather than the registry or a rule.
func isInternalFunction(name string) bool {
	switch name {
	case "apply_access", "arithinfix", "bininfix", "boolinfix", "unary", "membership2":
		return true
	}
	return strings.HasPrefix(name, "internal.")
}
