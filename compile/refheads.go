package compile

import (
	"github.com/termfx/regolith/ast"
)

// varRefHeads validates rule-head references. A variable appearing in
// a head's reference path turns the rule into a dynamic-key rule; the
// parser already peels a terminal bracket into an object or set head,
// so any variable left inside the reference path at this point is in
// a non-terminal position, which only comprehension-producing heads
// could express.
func (c *Compiler) varRefHeads(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		if n.Kind != ast.Rule {
			return true
		}
		ref := n.Front().Lookup(ast.RuleRef).Front()
		if ref.Kind != ast.Ref {
			return false
		}
		for _, arg := range ref.Child(1).Children {
			if arg.Kind != ast.RefArgBrack {
				continue
			}
			if _, ok := refArgString(arg); ok {
				continue
			}
			n.Prepend(ast.Err(arg,
				"rule heads may only use variables in the final reference position",
				ast.RegoTypeError))
			return false
		}
		return false
	})
	return stripBrokenRules(root)
}

// stripBrokenRules hoists error nodes planted inside rules up to the
// policy level so the rule itself no longer participates in
// compilation.
func stripBrokenRules(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		if n.Kind != ast.Policy {
			return true
		}
		for i := 0; i < len(n.Children); i++ {
			rule := n.Children[i]
			if rule.Kind == ast.Rule && rule.Front().Kind == ast.Error {
				n.Children[i] = rule.Front()
			}
		}
		return false
	})
	return root
}

// liftRefHeads moves a rule whose head is pkg.a.b.c.name into a
// synthesized module with package pkg.a.b.c and rule name `name`, so
// every later stage sees only flat rule names.
func (c *Compiler) liftRefHeads(root *ast.Node) *ast.Node {
	rego := root.Front()
	moduleSeq := rego.Lookup(ast.ModuleSeq)

	var lifted []*ast.Node
	for _, module := range moduleSeq.Children {
		pkg := module.Lookup(ast.Package)
		imports := module.Lookup(ast.ImportSeq)
		policy := module.Lookup(ast.Policy)

		for i := 0; i < len(policy.Children); i++ {
			rule := policy.Children[i]
			if rule.Kind != ast.Rule {
				continue
			}
			ruleRef := rule.Front().Lookup(ast.RuleRef)
			ref := ruleRef.Front()
			if ref.Kind != ast.Ref {
				continue
			}
			if ref.Child(1).Len() == 0 {
				// flat head: collapse to the bare rule name
				ruleRef.Replace(0, ref.Child(0).Front())
				continue
			}

			segments, ok := refPathStrings(ref)
			if !ok {
				policy.Children[i] = ast.Err(ref, "dynamic rule reference", ast.RegoTypeError)
				continue
			}

			// pkg.a.b.c.name: extend the package with a.b.c, keep name
			name := segments[len(segments)-1]
			prefix := segments[:len(segments)-1]

			newPkg := pkg.Front().Clone()
			argSeq := newPkg.Child(1)
			for _, seg := range prefix {
				argSeq.Append(ast.New(ast.RefArgDot, ast.Leaf(ast.Var, seg)))
			}

			ruleRef.Replace(0, ast.Leaf(ast.Var, name).At(ref.Loc))
			policy.Remove(i)
			i--

			lifted = append(lifted, ast.New(ast.Module,
				ast.New(ast.Package, newPkg),
				imports.Clone(),
				ast.New(ast.Policy, rule)))
		}
	}
	moduleSeq.Append(lifted...)
	return root
}
