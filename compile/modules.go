package compile

import (
	"strings"

	"github.com/termfx/regolith/ast"
)

// absoluteRefs rewrites every reference to a module rule into its
// absolute data.pkg.… form, so merged modules resolve uniformly.
func (c *Compiler) absoluteRefs(root *ast.Node) *ast.Node {
	rego := root.Front()
	for _, module := range rego.Lookup(ast.ModuleSeq).Children {
		pkg, ok := refPathStrings(module.Lookup(ast.Package).Front())
		if !ok {
			module.Prepend(ast.Err(module.Front(), "dynamic package path", ast.RegoTypeError))
			continue
		}
		names := map[string]bool{}
		for _, rule := range module.Lookup(ast.Policy).Children {
			if rule.Kind.IsRuleKind() {
				names[rule.Front().Text] = true
			}
		}
		qualifyRefs(module.Lookup(ast.Policy), pkg, names, map[string]bool{})
	}
	return root
}

// qualifyRefs walks a subtree tracking local declarations; free
// variables naming sibling rules become absolute references.
func qualifyRefs(n *ast.Node, pkg []string, names, locals map[string]bool) {
	switch n.Kind {
	case ast.UnifyBody:
		inner := copyScope(locals)
		for name := range bodyLocalNames(n) {
			inner[name] = true
		}
		for _, stmt := range n.Children {
			qualifyRefs(stmt, pkg, names, inner)
		}
		return
	case ast.RuleFunc:
		inner := copyScope(locals)
		for _, arg := range n.Child(1).Children {
			inner[arg.Front().Text] = true
		}
		for _, c := range n.Children[2:] {
			qualifyRefs(c, pkg, names, inner)
		}
		return
	case ast.LiteralEnum:
		inner := copyScope(locals)
		inner[n.Child(0).Text] = true
		qualifyRefs(n.Back(), pkg, names, inner)
		return
	case ast.RefTerm, ast.RuleRef:
		inner := n.Front()
		switch inner.Kind {
		case ast.Var:
			if names[inner.Text] && !locals[inner.Text] {
				n.Replace(0, absoluteRef(pkg, inner.Text))
			}
			return
		case ast.Ref:
			head := inner.Child(0).Front()
			if names[head.Text] && !locals[head.Text] {
				abs := absoluteRef(pkg, head.Text)
				abs.Child(1).Append(inner.Child(1).Children...)
				n.Replace(0, abs)
			}
			for _, arg := range inner.Child(1).Children {
				qualifyRefs(arg, pkg, names, locals)
			}
			return
		}
	}
	for _, c := range n.Children {
		qualifyRefs(c, pkg, names, locals)
	}
}

// absoluteRef builds data.pkg…name as a reference node.
func absoluteRef(pkg []string, name string) *ast.Node {
	args := ast.New(ast.RefArgSeq)
	for _, seg := range pkg {
		args.Append(ast.New(ast.RefArgDot, ast.Leaf(ast.Var, seg)))
	}
	args.Append(ast.New(ast.RefArgDot, ast.Leaf(ast.Var, name)))
	return ast.New(ast.Ref, ast.New(ast.RefHead, ast.Leaf(ast.Var, "data")), args)
}

// mergeModules grafts every module's rules into the data tree at its
// package path, then discards the module sequence. Rule names form a
// tree whose interior nodes are submodules; merging is deterministic
// in module order, and a name collision between different kinds is an
// error.
func (c *Compiler) mergeModules(root *ast.Node) *ast.Node {
	rego := root.Front()
	moduleSeq := rego.Lookup(ast.ModuleSeq)
	dataModule := rego.Lookup(ast.Data).Front()

	for _, module := range moduleSeq.Children {
		pkg, ok := refPathStrings(module.Lookup(ast.Package).Front())
		if !ok {
			continue
		}
		target := submoduleAt(dataModule, pkg)
		if target == nil {
			dataModule.Append(ast.Err(module.Front(),
				"package path conflicts with base data at "+strings.Join(pkg, "."), ast.RegoTypeError))
			continue
		}
		for _, rule := range module.Lookup(ast.Policy).Children {
			if err := graftRule(target, rule); err != nil {
				target.Append(err)
			}
		}
	}

	for i, child := range rego.Children {
		if child.Kind == ast.ModuleSeq {
			rego.Remove(i)
			break
		}
	}
	return root
}

// submoduleAt descends to (or creates) the submodule for a package
// path. A data rule blocking the path is a conflict.
func submoduleAt(module *ast.Node, path []string) *ast.Node {
	cur := module
	for _, seg := range path {
		child := findDataChild(cur, seg)
		switch {
		case child == nil:
			sub := ast.New(ast.DataModule)
			cur.Append(ast.New(ast.Submodule, ast.Leaf(ast.Key, seg), sub))
			cur = sub
		case child.Kind == ast.Submodule:
			cur = child.Child(1)
		default:
			return nil
		}
	}
	return cur
}

// graftRule adds one compiled rule to a data module, enforcing the
// same-name collision rules.
func graftRule(module *ast.Node, rule *ast.Node) *ast.Node {
	if rule.Kind == ast.Error {
		return rule
	}
	name := rule.Front().Text
	for _, existing := range module.Children {
		switch existing.Kind {
		case ast.DataRule:
			if existing.Front().Text == name {
				return ast.Err(rule, "rule name conflicts with base data: "+name, ast.RegoTypeError)
			}
		case ast.Submodule:
			if existing.Front().Text == name {
				return ast.Err(rule, "rule name conflicts with a package: "+name, ast.RegoTypeError)
			}
		case ast.RuleComp, ast.RuleFunc, ast.RuleSet, ast.RuleObj:
			if existing.Front().Text != name {
				continue
			}
			if existing.Kind != rule.Kind && rule.Kind != ast.DefaultRule {
				return ast.Err(rule, "rule defined with conflicting kinds: "+name, ast.RegoTypeError)
			}
		case ast.DefaultRule:
			if existing.Front().Text == name && rule.Kind == ast.DefaultRule {
				return ast.Err(rule, "multiple default definitions for "+name, ast.RegoTypeError)
			}
		}
	}
	module.Append(rule)
	return nil
}

// dataRule re-checks the merged tree: every leaf is a data rule or a
// compiled rule, every interior node a submodule, and submodule keys
// are unique.
func (c *Compiler) dataRule(root *ast.Node) *ast.Node {
	rego := root.Front()
	var check func(module *ast.Node)
	check = func(module *ast.Node) {
		seen := map[string]ast.Kind{}
		for _, child := range module.Children {
			switch child.Kind {
			case ast.Submodule:
				key := child.Front().Text
				if prev, ok := seen[key]; ok && prev != ast.Submodule {
					module.Append(ast.Err(child, "conflicting definitions at "+key, ast.RegoTypeError))
				}
				seen[key] = ast.Submodule
				check(child.Child(1))
			case ast.DataRule:
				seen[child.Front().Text] = ast.DataRule
			case ast.RuleComp, ast.RuleFunc, ast.RuleSet, ast.RuleObj, ast.DefaultRule, ast.Error:
			default:
				module.Append(ast.Err(child, "malformed data tree", ast.WellFormedError))
			}
		}
	}
	check(rego.Lookup(ast.Data).Front())
	return root
}
