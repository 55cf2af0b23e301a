package builtins

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

func registerObjects(r *Registry) {
	r.register("object.get", 3, objectGet)
	r.register("object.keys", 1, objectKeys)
	r.register("object.remove", 2, objectRemove)
	r.register("object.filter", 2, objectFilter)
	r.register("object.union", 2, objectUnion)
}

// objectGet looks up a key or a path of keys, falling back to the
// default when absent.
func objectGet(args []*ast.Node) *ast.Node {
	obj, err := unwrapObject(args, 0)
	if err != nil {
		return err
	}
	key := term.Unwrap(args[1])
	fallback := args[2]

	path := []*ast.Node{args[1]}
	if key.Kind == ast.Array {
		path = key.Children
	}
	cur := term.Wrap(obj)
	for _, seg := range path {
		inner := term.Unwrap(cur)
		if inner.Kind != ast.Object {
			return fallback
		}
		found := lookupKey(inner, seg)
		if found == nil {
			return fallback
		}
		cur = found
	}
	return cur
}

func lookupKey(obj, key *ast.Node) *ast.Node {
	want := term.Key(key)
	for _, item := range obj.Children {
		if term.Key(item.Child(0)) == want {
			return item.Child(1)
		}
	}
	return nil
}

func objectKeys(args []*ast.Node) *ast.Node {
	obj, err := unwrapObject(args, 0)
	if err != nil {
		return err
	}
	keys := make([]*ast.Node, 0, obj.Len())
	for _, item := range obj.Children {
		keys = append(keys, item.Child(0))
	}
	return term.Set(keys...)
}

func objectRemove(args []*ast.Node) *ast.Node {
	obj, err := unwrapObject(args, 0)
	if err != nil {
		return err
	}
	drop, err := keySet(args, 1)
	if err != nil {
		return err
	}
	out := ast.New(ast.Object)
	for _, item := range obj.Children {
		if !drop[term.Key(item.Child(0))] {
			out.Append(item.Clone())
		}
	}
	return out
}

func objectFilter(args []*ast.Node) *ast.Node {
	obj, err := unwrapObject(args, 0)
	if err != nil {
		return err
	}
	keep, err := keySet(args, 1)
	if err != nil {
		return err
	}
	out := ast.New(ast.Object)
	for _, item := range obj.Children {
		if keep[term.Key(item.Child(0))] {
			out.Append(item.Clone())
		}
	}
	return out
}

// keySet accepts an array, set, or object argument and returns its
// member keys.
func keySet(args []*ast.Node, at int) (map[string]bool, *ast.Node) {
	c, err := unwrapCollection(args, at)
	if err != nil {
		return nil, err
	}
	keys := map[string]bool{}
	for _, item := range c.Children {
		if c.Kind == ast.Object {
			keys[term.Key(item.Child(0))] = true
		} else {
			keys[term.Key(item)] = true
		}
	}
	return keys, nil
}

// objectUnion merges two objects; values of the second win.
func objectUnion(args []*ast.Node) *ast.Node {
	a, err := unwrapObject(args, 0)
	if err != nil {
		return err
	}
	b, err := unwrapObject(args, 1)
	if err != nil {
		return err
	}
	items := make([]*ast.Node, 0, a.Len()+b.Len())
	for _, item := range a.Children {
		items = append(items, item.Clone())
	}
	for _, item := range b.Children {
		items = append(items, item.Clone())
	}
	return term.Object(items, false)
}
