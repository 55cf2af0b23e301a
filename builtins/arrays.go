package builtins

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

func registerArrays(r *Registry) {
	r.register("array.concat", 2, arrayConcat)
	r.register("array.slice", 3, arraySlice)
	r.register("array.reverse", 1, arrayReverse)
}

func arrayConcat(args []*ast.Node) *ast.Node {
	a, err := unwrapArray(args, 0)
	if err != nil {
		return err
	}
	b, err := unwrapArray(args, 1)
	if err != nil {
		return err
	}
	out := ast.New(ast.Array)
	for _, item := range a.Children {
		out.Append(term.Wrap(item.Clone()))
	}
	for _, item := range b.Children {
		out.Append(term.Wrap(item.Clone()))
	}
	return out
}

// arraySlice clamps its bounds, matching the upstream behavior of
// never reporting out-of-range as an error.
func arraySlice(args []*ast.Node) *ast.Node {
	a, err := unwrapArray(args, 0)
	if err != nil {
		return err
	}
	lo, err := unwrapInt(args, 1)
	if err != nil {
		return err
	}
	hi, err := unwrapInt(args, 2)
	if err != nil {
		return err
	}
	start, ok := lo.Size()
	if !ok {
		start = 0
	}
	end, ok := hi.Size()
	if !ok {
		if hi.IsNegative() {
			end = 0
		} else {
			end = a.Len()
		}
	}
	if start > a.Len() {
		start = a.Len()
	}
	if end > a.Len() {
		end = a.Len()
	}
	if end < start {
		end = start
	}
	out := ast.New(ast.Array)
	for _, item := range a.Children[start:end] {
		out.Append(term.Wrap(item.Clone()))
	}
	return out
}

func arrayReverse(args []*ast.Node) *ast.Node {
	a, err := unwrapArray(args, 0)
	if err != nil {
		return err
	}
	out := ast.New(ast.Array)
	for i := a.Len() - 1; i >= 0; i-- {
		out.Append(term.Wrap(a.Child(i).Clone()))
	}
	return out
}
