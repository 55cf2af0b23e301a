package builtins

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

func registerSets(r *Registry) {
	r.register("intersection", 1, intersectionOfSets)
	r.register("union", 1, unionOfSets)
}

// intersectionOfSets intersects a set of sets; the intersection of
// the empty set of sets is empty.
func intersectionOfSets(args []*ast.Node) *ast.Node {
	outer, err := unwrapSet(args, 0)
	if err != nil {
		return err
	}
	if outer.Len() == 0 {
		return ast.New(ast.Set)
	}
	counts := map[string]int{}
	nodes := map[string]*ast.Node{}
	for _, member := range outer.Children {
		set := term.Unwrap(member)
		if set.Kind != ast.Set {
			return operandErr(0, "a set of sets", member)
		}
		for _, item := range set.Children {
			k := term.Key(item)
			counts[k]++
			nodes[k] = item
		}
	}
	var items []*ast.Node
	for _, member := range term.Unwrap(outer.Front()).Children {
		if counts[term.Key(member)] == outer.Len() {
			items = append(items, nodes[term.Key(member)])
		}
	}
	return term.Set(items...)
}

func unionOfSets(args []*ast.Node) *ast.Node {
	outer, err := unwrapSet(args, 0)
	if err != nil {
		return err
	}
	var items []*ast.Node
	for _, member := range outer.Children {
		set := term.Unwrap(member)
		if set.Kind != ast.Set {
			return operandErr(0, "a set of sets", member)
		}
		items = append(items, set.Children...)
	}
	return term.Set(items...)
}
