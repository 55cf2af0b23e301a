package compile

import (
	"github.com/termfx/regolith/ast"
)

// expandImports substitutes each import alias with its fully
// qualified reference throughout the importing module, then drops the
// import sequence.
func (c *Compiler) expandImports(root *ast.Node) *ast.Node {
	rego := root.Front()
	for _, module := range rego.Lookup(ast.ModuleSeq).Children {
		imports := module.Lookup(ast.ImportSeq)
		if imports == nil || imports.Len() == 0 {
			if imports != nil {
				imports.Children = nil
			}
			continue
		}
		aliases := map[string]*ast.Node{}
		for _, imp := range imports.Children {
			aliases[imp.Child(1).Text] = imp.Child(0)
		}
		expandAliases(module.Lookup(ast.Policy), aliases)
		imports.Children = nil
	}
	return root
}

func expandAliases(n *ast.Node, aliases map[string]*ast.Node) {
	for _, child := range n.Children {
		switch child.Kind {
		case ast.Local, ast.ArgVar:
			// declarations shadow imports
			continue
		case ast.RefTerm, ast.RuleRef:
			inner := child.Front()
			if repl := substituteAlias(inner, aliases); repl != nil {
				child.Replace(0, repl)
				continue
			}
		}
		expandAliases(child, aliases)
	}
}

// substituteAlias rewrites a reference whose head is an import alias.
func substituteAlias(n *ast.Node, aliases map[string]*ast.Node) *ast.Node {
	switch n.Kind {
	case ast.Var:
		if target, ok := aliases[n.Text]; ok {
			return target.Clone()
		}
	case ast.Ref:
		head := n.Child(0).Front()
		target, ok := aliases[head.Text]
		if !ok {
			return nil
		}
		merged := target.Clone()
		merged.Child(1).Append(n.Child(1).Clone().Children...)
		return merged
	}
	return nil
}
