// Package rewrite is the generic pass engine: it applies sets of
// pattern/action rules to a tree using a declared traversal strategy,
// and supports lifting replacement nodes to an enclosing ancestor.
package rewrite

import (
	"github.com/termfx/regolith/ast"
)

// Strategy selects the traversal order of a pass.
type Strategy uint8

const (
	TopDown Strategy = iota
	BottomUp
)

// Match carries the node under consideration plus its ancestry, so
// patterns can constrain the enclosing context.
type Match struct {
	Node      *ast.Node
	Ancestors []*ast.Node
}

// Parent returns the immediate parent, or nil at the root.
func (m *Match) Parent() *ast.Node {
	if len(m.Ancestors) == 0 {
		return nil
	}
	return m.Ancestors[len(m.Ancestors)-1]
}

// In reports whether the immediate parent has one of the given kinds.
func (m *Match) In(kinds ...ast.Kind) bool {
	p := m.Parent()
	if p == nil {
		return false
	}
	for _, k := range kinds {
		if p.Kind == k {
			return true
		}
	}
	return false
}

// Within reports whether any ancestor has one of the given kinds.
func (m *Match) Within(kinds ...ast.Kind) bool {
	for _, a := range m.Ancestors {
		for _, k := range kinds {
			if a.Kind == k {
				return true
			}
		}
	}
	return false
}

// Rule is one pattern/action pair. Pattern returns whether the rule
// applies; Action returns the replacement subtree, or nil to decline
// (NoChange). Returning the matched node unchanged also counts as
// NoChange.
type Rule struct {
	Pattern func(*Match) bool
	Action  func(*Match) *ast.Node
}

// Lift marks a node for insertion into the nearest enclosing ancestor
// of the given kind instead of the match site. Actions embed Lift
// nodes in their replacement; the engine extracts them.
func Lift(target ast.Kind, node *ast.Node) *ast.Node {
	return &ast.Node{Kind: liftKind, Text: "", Children: []*ast.Node{ast.Leaf(liftTarget, target.String()), node}}
}

// liftKind is a private marker kind outside the public enumeration.
const (
	liftKind   ast.Kind = 0x7ffe
	liftTarget ast.Kind = 0x7ffd
)

// Pass is a named collection of rules with a traversal strategy. Once
// limits each node to a single rewrite per run.
type Pass struct {
	Name     string
	Strategy Strategy
	Once     bool
	Rules    []Rule

	// Transform, when set, replaces rule-driven traversal entirely.
	// Passes whose logic is global (dependency analysis, module
	// merging) use it directly.
	Transform func(*ast.Node) *ast.Node
}

// Run applies the pass to root until no rule fires, returning the new
// root and the number of rewrites performed.
func (p *Pass) Run(root *ast.Node) (*ast.Node, int) {
	if p.Transform != nil {
		return p.Transform(root), 0
	}
	total := 0
	for {
		e := engine{pass: p, seen: map[*ast.Node]bool{}, lifts: map[*ast.Node][]*ast.Node{}}
		root = e.rewrite(root, nil)
		// lifted nodes land after the walk so in-progress child
		// lists are never shifted under the traversal
		for target, payloads := range e.lifts {
			target.Prepend(payloads...)
		}
		total += e.changes
		if e.changes == 0 || p.Once {
			break
		}
	}
	return root, total
}

type engine struct {
	pass    *Pass
	changes int
	seen    map[*ast.Node]bool
	lifts   map[*ast.Node][]*ast.Node
}

func (e *engine) rewrite(n *ast.Node, ancestors []*ast.Node) *ast.Node {
	if n == nil {
		return nil
	}
	// error nodes are terminal: diagnostics are never transformed
	if n.Kind == ast.Error {
		return n
	}

	if e.pass.Strategy == TopDown {
		n = e.apply(n, ancestors)
		if n.Kind == ast.Error {
			return n
		}
	}

	ancestors = append(ancestors, n)
	for i := 0; i < len(n.Children); i++ {
		n.Children[i] = e.rewrite(n.Children[i], ancestors)
	}
	ancestors = ancestors[:len(ancestors)-1]
	e.extractLifts(n, ancestors)

	if e.pass.Strategy == BottomUp {
		n = e.apply(n, ancestors)
	}
	return n
}

func (e *engine) apply(n *ast.Node, ancestors []*ast.Node) *ast.Node {
	if e.pass.Once && e.seen[n] {
		return n
	}
	m := &Match{Node: n, Ancestors: ancestors}
	for _, rule := range e.pass.Rules {
		if !rule.Pattern(m) {
			continue
		}
		repl := rule.Action(m)
		if repl == nil || repl == n {
			continue
		}
		e.changes++
		if e.pass.Once {
			e.seen[repl] = true
		}
		return repl
	}
	if e.pass.Once {
		e.seen[n] = true
	}
	return n
}

// extractLifts moves Lift markers out of n's children into the
// nearest ancestor of the requested kind. Markers whose target is n
// itself dissolve in place.
func (e *engine) extractLifts(n *ast.Node, ancestors []*ast.Node) {
	for i := 0; i < len(n.Children); i++ {
		c := n.Children[i]
		if c.Kind != liftKind {
			continue
		}
		target := c.Child(0).Text
		payload := c.Child(1)
		n.Remove(i)
		i--
		if n.Kind.String() == target {
			e.lifts[n] = append(e.lifts[n], payload)
			continue
		}
		placed := false
		for j := len(ancestors) - 1; j >= 0; j-- {
			if ancestors[j].Kind.String() == target {
				e.lifts[ancestors[j]] = append(e.lifts[ancestors[j]], payload)
				placed = true
				break
			}
		}
		if !placed {
			// no matching ancestor: surface as a diagnostic rather
			// than silently dropping the subtree
			n.Insert(i+1, ast.Err(payload, "no "+target+" ancestor for lifted node", ast.WellFormedError))
			i++
		}
	}
}
