package compile

import (
	"sort"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/unify"
)

// buildSkips records, for every rule reference and built-in name in
// the program, the target it resolves to. The unifier uses the table
// to short-circuit symbol resolution.
func (c *Compiler) buildSkips(root *ast.Node) *ast.Node {
	rego := root.Front()
	c.skips = map[string]*unify.Skip{}

	var walk func(module *ast.Node, path []string)
	walk = func(module *ast.Node, path []string) {
		for _, child := range module.Children {
			switch child.Kind {
			case ast.Submodule:
				sub := append(append([]string{}, path...), child.Front().Text)
				c.skips[strings.Join(sub, ".")] = &unify.Skip{Module: child.Child(1)}
				walk(child.Child(1), sub)
			case ast.DataRule:
				key := strings.Join(append(append([]string{}, path...), child.Front().Text), ".")
				c.skips[key] = &unify.Skip{Data: child.Child(1)}
			case ast.RuleComp, ast.RuleFunc, ast.RuleSet, ast.RuleObj, ast.DefaultRule:
				key := strings.Join(append(append([]string{}, path...), child.Front().Text), ".")
				skip := c.skips[key]
				if skip == nil {
					skip = &unify.Skip{}
					c.skips[key] = skip
				}
				skip.Rules = append(skip.Rules, child)
			}
		}
	}
	dataModule := rego.Lookup(ast.Data).Front()
	walk(dataModule, []string{"data"})
	c.skips["data"] = &unify.Skip{Module: dataModule}

	// built-in names referenced by calls resolve through the same
	// table
	root.Walk(func(n *ast.Node) bool {
		if n.Kind != ast.ExprCall {
			return true
		}
		if name, ok := callName(n); ok && c.opts.Builtins.Has(name) {
			if _, exists := c.skips[name]; !exists {
				c.skips[name] = &unify.Skip{BuiltIn: name}
			}
		}
		return true
	})

	// a rendering of the table travels in the tree for debugging
	seq := ast.New(ast.SkipSeq)
	keys := make([]string, 0, len(c.skips))
	for k := range c.skips {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := ast.Leaf(ast.Undefined, "")
		switch {
		case c.skips[k].BuiltIn != "":
			val = ast.Leaf(ast.BuiltInHook, c.skips[k].BuiltIn)
		case len(c.skips[k].Rules) > 0 || c.skips[k].Data != nil || c.skips[k].Module != nil:
			val = ast.New(ast.VarSeq)
			for _, seg := range strings.Split(k, ".") {
				val.Append(ast.Leaf(ast.Var, seg))
			}
		}
		seq.Append(ast.New(ast.Skip, ast.Leaf(ast.Key, k), val))
	}
	rego.Append(seq)
	return root
}

// callName joins a call target into its dotted form.
func callName(call *ast.Node) (string, bool) {
	target := call.Front()
	if target.Kind == ast.Var {
		return target.Text, true
	}
	if target.Kind != ast.RuleRef {
		return "", false
	}
	inner := target.Front()
	switch inner.Kind {
	case ast.Var:
		return inner.Text, true
	case ast.Ref:
		segments, ok := refPathStrings(inner)
		if !ok {
			return "", false
		}
		return strings.Join(segments, "."), true
	}
	return "", false
}

// skipRefs applies the skip table: the longest static prefix of every
// data reference collapses into a single resolved variable, leaving
// only the dynamic remainder as reference arguments.
func (c *Compiler) skipRefs(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		if n.Kind != ast.RefTerm && n.Kind != ast.RuleRef {
			return true
		}
		ref := n.Front()
		if ref.Kind != ast.Ref {
			return true
		}
		head := ref.Child(0).Front()
		if head.Text != "data" {
			return true
		}

		args := ref.Child(1).Children
		path := []string{"data"}
		consumed := 0
		for _, arg := range args {
			seg, ok := refArgString(arg)
			if !ok {
				break
			}
			candidate := strings.Join(append(append([]string{}, path...), seg), ".")
			if _, exists := c.skips[candidate]; !exists {
				break
			}
			path = append(path, seg)
			consumed++
		}
		if consumed == 0 {
			return true
		}

		skipVar := ast.Leaf(ast.Var, strings.Join(path, "."))
		rest := args[consumed:]
		if len(rest) == 0 {
			n.Replace(0, skipVar)
			return true
		}
		n.Replace(0, ast.New(ast.Ref,
			ast.New(ast.RefHead, skipVar),
			ast.New(ast.RefArgSeq, rest...)))
		return true
	})
	return root
}
