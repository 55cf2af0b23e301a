package compile

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

// mergeData folds the sequence of data documents into one
// hierarchical DataModule tree keyed by path. Every data document
// must be an object at the top level; overlapping objects merge
// recursively, and a scalar collision between two documents is a
// conflict.
func (c *Compiler) mergeData(root *ast.Node) *ast.Node {
	rego := root.Front()
	dataSeq := rego.Lookup(ast.DataSeq)

	module := ast.New(ast.DataModule)
	for _, data := range dataSeq.Children {
		doc := data.Front()
		obj := term.Unwrap(doc)
		if obj == nil || obj.Kind != ast.DataObject {
			module.Append(ast.Err(doc, "data documents must be objects", ast.RegoTypeError))
			continue
		}
		mergeDataObject(module, obj)
	}

	merged := ast.New(ast.Data, module)
	rego.ReplaceNode(dataSeq, merged)
	return root
}

// mergeDataObject grafts one document object into the module tree.
func mergeDataObject(module *ast.Node, obj *ast.Node) {
	for _, item := range obj.Children {
		key, ok := term.StrValue(item.Child(0))
		if !ok {
			module.Append(ast.Err(item, "data keys must be strings", ast.RegoTypeError))
			continue
		}
		val := item.Child(1)
		inner := term.Unwrap(val)

		existing := findDataChild(module, key)
		switch {
		case existing == nil:
			if inner.Kind == ast.DataObject {
				sub := ast.New(ast.DataModule)
				mergeDataObject(sub, inner)
				module.Append(ast.New(ast.Submodule, ast.Leaf(ast.Key, key), sub))
			} else {
				module.Append(ast.New(ast.DataRule, ast.Leaf(ast.Var, key), val.Clone()))
			}
		case existing.Kind == ast.Submodule && inner.Kind == ast.DataObject:
			mergeDataObject(existing.Child(1), inner)
		default:
			module.Append(ast.Err(item, "conflicting data values at "+key, ast.EvalConflictError))
		}
	}
}

func findDataChild(module *ast.Node, key string) *ast.Node {
	for _, c := range module.Children {
		switch c.Kind {
		case ast.Submodule:
			if c.Child(0).Text == key {
				return c
			}
		case ast.DataRule:
			if c.Child(0).Text == key {
				return c
			}
		}
	}
	return nil
}
