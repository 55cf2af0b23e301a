package ast

import (
	"strings"
)

// Location points into a source document. Synthetic nodes produced by
// rewrite passes carry the location of the node they replaced, so
// diagnostics always lead back to user text.
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// Node is a labeled tree node. Leaves carry their lexical payload in
// Text; interior nodes carry children. There is deliberately no
// subclass hierarchy: passes match on Kind and child shape.
type Node struct {
	Kind     Kind
	Text     string
	Children []*Node
	Loc      Location
}

// New builds an interior node.
func New(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// Leaf builds a node with a lexical payload.
func Leaf(kind Kind, text string) *Node {
	return &Node{Kind: kind, Text: text}
}

// At sets the node's location and returns it, for use in builder
// chains.
func (n *Node) At(loc Location) *Node {
	n.Loc = loc
	return n
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Prepend inserts children at the front and returns n.
func (n *Node) Prepend(children ...*Node) *Node {
	n.Children = append(children, n.Children...)
	return n
}

// Len returns the child count.
func (n *Node) Len() int {
	return len(n.Children)
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Front returns the first child, or nil for a leaf.
func (n *Node) Front() *Node {
	return n.Child(0)
}

// Back returns the last child, or nil for a leaf.
func (n *Node) Back() *Node {
	return n.Child(len(n.Children) - 1)
}

// Lookup returns the first child of the given kind, or nil.
func (n *Node) Lookup(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Replace swaps the child at index i.
func (n *Node) Replace(i int, child *Node) {
	n.Children[i] = child
}

// ReplaceNode swaps the first occurrence of old with new and reports
// whether a swap happened.
func (n *Node) ReplaceNode(old, repl *Node) bool {
	for i, c := range n.Children {
		if c == old {
			n.Children[i] = repl
			return true
		}
	}
	return false
}

// Remove deletes the child at index i.
func (n *Node) Remove(i int) {
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
}

// Insert places child at index i.
func (n *Node) Insert(i int, child *Node) {
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
}

// Clone returns a deep copy of the subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Text: n.Text, Loc: n.Loc}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal reports structural equality of two subtrees.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Text != other.Text || len(n.Children) != len(other.Children) {
		return false
	}
	for i, c := range n.Children {
		if !c.Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Walk visits the subtree in pre-order. Returning false from fn skips
// the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Contains reports whether any node of the given kind occurs in the
// subtree.
func (n *Node) Contains(kind Kind) bool {
	found := false
	n.Walk(func(c *Node) bool {
		if c.Kind == kind {
			found = true
		}
		return !found
	})
	return found
}

// String renders an indented tree dump for debugging and golden tests.
func (n *Node) String() string {
	var b strings.Builder
	n.dump(&b, 0)
	return b.String()
}

func (n *Node) dump(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
	b.WriteString(n.Kind.String())
	if n.Text != "" {
		b.WriteString(" `")
		b.WriteString(n.Text)
		b.WriteString("`")
	}
	b.WriteString("\n")
	for _, c := range n.Children {
		c.dump(b, depth+1)
	}
}
