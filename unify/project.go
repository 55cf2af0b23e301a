package unify

import (
	"sort"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

// project converts the solved query body into grouped sub-results.
// Each solution is a mutually compatible choice of one value per
// projected variable: condition temporaries supply the expression
// values, user-visible variables the bindings. Compatibility is
// decided by the values' derivation chains, so bindings produced by
// the same enumeration step stay together.
func (u *Unifier) project(out *ast.Node) {
	exprVars := u.collectVars(func(name string) bool {
		return strings.HasPrefix(name, "unify$")
	})
	userVars := u.topLevelUserVars()

	slots := make([]projSlot, 0, len(exprVars)+len(userVars))
	for _, name := range exprVars {
		// condition temporaries buried in nested frames witnessed
		// their statements there; only surviving top-level values
		// project as expressions
		v := u.lookup(name)
		if v == nil || v.values.Empty() {
			continue
		}
		slots = append(slots, projSlot{values: v.values.Valid()})
	}
	for _, name := range userVars {
		v := u.vars[name]
		if v == nil || v.values.Empty() {
			continue
		}
		slots = append(slots, projSlot{name: name, values: v.values.Valid()})
	}

	if len(slots) == 0 {
		out.Append(ast.New(ast.Result,
			term.Wrap(term.Bool(true))))
		return
	}

	var results []*ast.Node
	seen := map[string]bool{}
	var build func(i int, chosen []*Value)
	build = func(i int, chosen []*Value) {
		if i == len(slots) {
			res := renderSolution(slots, chosen)
			key := res.String()
			if !seen[key] {
				seen[key] = true
				results = append(results, res)
			}
			return
		}
		for _, v := range slots[i].values {
			if !Compatible(append(append([]*Value{}, chosen...), v)...) {
				continue
			}
			build(i+1, append(chosen, v))
		}
	}
	build(0, nil)

	sort.Slice(results, func(i, j int) bool {
		return results[i].String() < results[j].String()
	})
	out.Append(results...)
}

type projSlot struct {
	name   string // empty for expression slots
	values []*Value
}

func renderSolution(slots []projSlot, chosen []*Value) *ast.Node {
	res := ast.New(ast.Result)
	for i, slot := range slots {
		if slot.name == "" {
			res.Append(term.Wrap(chosen[i].Node.Clone()))
		}
	}
	if res.Len() == 0 {
		res.Append(term.Wrap(term.Bool(true)))
	}
	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.name != "" {
			names = append(names, slot.name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		for i, slot := range slots {
			if slot.name == name {
				res.Append(ast.New(ast.Binding,
					ast.Leaf(ast.Var, name),
					term.Wrap(chosen[i].Node.Clone())))
			}
		}
	}
	return res
}

// collectVars gathers matching variable names declared anywhere in
// the query body, in creation order.
func (u *Unifier) collectVars(match func(string) bool) []string {
	var names []string
	seen := map[string]bool{}
	u.body.Walk(func(n *ast.Node) bool {
		if n.Kind == ast.Local && match(n.Front().Text) && !seen[n.Front().Text] {
			seen[n.Front().Text] = true
			names = append(names, n.Front().Text)
		}
		return true
	})
	conditionOrder(names)
	return names
}

// topLevelUserVars lists the query's user-visible variables.
func (u *Unifier) topLevelUserVars() []string {
	var names []string
	for _, name := range u.varOrder {
		if u.vars[name].IsUserVar() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
