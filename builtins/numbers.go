package builtins

import (
	"math"
	"strconv"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
	"github.com/termfx/regolith/term"
)

func registerNumbers(r *Registry) {
	r.register("plus", 2, numericPair(func(a, b float64) float64 { return a + b }))
	r.register("minus", 2, minus)
	r.register("mul", 2, numericPair(func(a, b float64) float64 { return a * b }))
	r.register("div", 2, div)
	r.register("rem", 2, rem)
	r.register("abs", 1, abs)
	r.register("round", 1, rounder(math.Round))
	r.register("ceil", 1, rounder(math.Ceil))
	r.register("floor", 1, rounder(math.Floor))
	r.register("numbers.range", 2, numbersRange)
	r.register("to_number", 1, toNumber)
}

func numericPair(op func(a, b float64) float64) Fn {
	return func(args []*ast.Node) *ast.Node {
		a, err := unwrapNumber(args, 0)
		if err != nil {
			return err
		}
		b, err := unwrapNumber(args, 1)
		if err != nil {
			return err
		}
		return number(op(a, b))
	}
}

// minus is subtraction for numbers and difference for sets.
func minus(args []*ast.Node) *ast.Node {
	l := term.Unwrap(args[0])
	if l.Kind == ast.Set {
		r, err := unwrapSet(args, 1)
		if err != nil {
			return err
		}
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
	a, err := unwrapNumber(args, 0)
	if err != nil {
		return err
	}
	b, err := unwrapNumber(args, 1)
	if err != nil {
		return err
	}
	return number(a - b)
}

func div(args []*ast.Node) *ast.Node {
	a, err := unwrapNumber(args, 0)
	if err != nil {
		return err
	}
	b, err := unwrapNumber(args, 1)
	if err != nil {
		return err
	}
	if b == 0 {
		return builtinErr("div: divide by zero")
	}
	return number(a / b)
}

func rem(args []*ast.Node) *ast.Node {
	a, err := unwrapInt(args, 0)
	if err != nil {
		return err
	}
	b, err := unwrapInt(args, 1)
	if err != nil {
		return err
	}
	r, ok := a.Mod(b)
	if !ok {
		return builtinErr("rem: modulo by zero")
	}
	return term.Int(r)
}

func abs(args []*ast.Node) *ast.Node {
	if i, ok := term.IntValue(args[0]); ok {
		if i.IsNegative() {
			return term.Int(i.Negate())
		}
		return term.Int(i)
	}
	v, err := unwrapNumber(args, 0)
	if err != nil {
		return err
	}
	return number(math.Abs(v))
}

func rounder(round func(float64) float64) Fn {
	return func(args []*ast.Node) *ast.Node {
		if i, ok := term.IntValue(args[0]); ok {
			return term.Int(i)
		}
		v, err := unwrapNumber(args, 0)
		if err != nil {
			return err
		}
		return number(round(v))
	}
}

// numbersRange produces the inclusive integer range, descending when
// the first bound is larger.
func numbersRange(args []*ast.Node) *ast.Node {
	a, err := unwrapInt(args, 0)
	if err != nil {
		return err
	}
	b, err := unwrapInt(args, 1)
	if err != nil {
		return err
	}
	arr := ast.New(ast.Array)
	step := bigint.One
	if a.Cmp(b) > 0 {
		step = bigint.One.Negate()
	}
	for cur := a; ; cur = cur.Add(step) {
		arr.Append(term.Wrap(term.Int(cur)))
		if cur.Cmp(b) == 0 {
			break
		}
	}
	return arr
}

func toNumber(args []*ast.Node) *ast.Node {
	inner := term.Unwrap(args[0])
	if inner.Kind == ast.Scalar {
		switch inner.Front().Kind {
		case ast.Int, ast.Float:
			return args[0]
		case ast.Null:
			return term.Int(bigint.Zero)
		case ast.True:
			return term.Int(bigint.One)
		case ast.False:
			return term.Int(bigint.Zero)
		}
	}
	s, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	if v, ok := bigint.Parse(s); ok {
		return term.Int(v)
	}
	f, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return builtinErr("to_number: invalid number " + s)
	}
	return number(f)
}
