package builtins

import (
	"sort"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
	"github.com/termfx/regolith/term"
)

func registerAggregates(r *Registry) {
	r.register("count", 1, count)
	r.register("sum", 1, fold(0, func(acc, v float64) float64 { return acc + v }))
	r.register("product", 1, fold(1, func(acc, v float64) float64 { return acc * v }))
	r.register("max", 1, extreme(1))
	r.register("min", 1, extreme(-1))
	r.register("sort", 1, sortBuiltin)
}

func count(args []*ast.Node) *ast.Node {
	v := term.Unwrap(args[0])
	switch v.Kind {
	case ast.Array, ast.Set, ast.Object:
		return term.Int(bigint.FromSize(v.Len()))
	}
	if s, ok := term.StrValue(args[0]); ok {
		return term.Int(bigint.FromSize(len([]rune(s))))
	}
	return operandErr(0, "one of {array, object, set, string}", args[0])
}

func fold(init float64, op func(acc, v float64) float64) Fn {
	return func(args []*ast.Node) *ast.Node {
		c := term.Unwrap(args[0])
		if c.Kind != ast.Array && c.Kind != ast.Set {
			return operandErr(0, "one of {array, set}", args[0])
		}
		acc := init
		for _, item := range c.Children {
			v, ok := term.FloatValue(item)
			if !ok {
				return operandErr(0, "a collection of numbers", item)
			}
			acc = op(acc, v)
		}
		return number(acc)
	}
}

func extreme(dir int) Fn {
	return func(args []*ast.Node) *ast.Node {
		c := term.Unwrap(args[0])
		if c.Kind != ast.Array && c.Kind != ast.Set {
			return operandErr(0, "one of {array, set}", args[0])
		}
		if c.Len() == 0 {
			return undefined()
		}
		best := c.Front()
		for _, item := range c.Children[1:] {
			if dir*term.Compare(item, best) > 0 {
				best = item
			}
		}
		return best
	}
}

func sortBuiltin(args []*ast.Node) *ast.Node {
	c := term.Unwrap(args[0])
	if c.Kind != ast.Array && c.Kind != ast.Set {
		return operandErr(0, "one of {array, set}", args[0])
	}
	sorted := append([]*ast.Node{}, c.Children...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return term.Compare(sorted[i], sorted[j]) < 0
	})
	out := ast.New(ast.Array)
	for _, item := range sorted {
		out.Append(term.Wrap(item.Clone()))
	}
	return out
}
