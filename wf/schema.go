// Package wf validates trees against per-pass well-formedness
// schemas. A schema maps each node kind to the child sequences it
// permits; the pipeline checks the tree after every pass, so a schema
// violation always points at the pass that introduced it.
package wf

import (
	"fmt"

	"github.com/termfx/regolith/ast"
)

// Cardinality of one field in a child shape.
type Cardinality uint8

const (
	One Cardinality = iota
	Opt
	Star
	Plus
)

// Field matches a run of children drawn from a choice of kinds.
type Field struct {
	Kinds []ast.Kind
	Card  Cardinality
}

// Shape is the permitted child sequence for one node kind. A shape
// with no fields (nil or empty) admits no children; kinds left out of
// the schema are the ones whose children are not checked.
type Shape struct {
	Fields []Field
}

// Schema associates node kinds with shapes. Kinds absent from the map
// are unconstrained.
type Schema struct {
	name   string
	shapes map[ast.Kind]Shape
}

// K builds a single-kind choice.
func K(kinds ...ast.Kind) Field {
	return Field{Kinds: kinds, Card: One}
}

// OptOf marks a field optional.
func OptOf(kinds ...ast.Kind) Field {
	return Field{Kinds: kinds, Card: Opt}
}

// StarOf matches zero or more children of the given kinds.
func StarOf(kinds ...ast.Kind) Field {
	return Field{Kinds: kinds, Card: Star}
}

// PlusOf matches one or more children of the given kinds.
func PlusOf(kinds ...ast.Kind) Field {
	return Field{Kinds: kinds, Card: Plus}
}

// Seq builds a shape from fields.
func Seq(fields ...Field) Shape {
	if fields == nil {
		fields = []Field{}
	}
	return Shape{Fields: fields}
}

// LeafShape is the shape of a node that may not have children.
func LeafShape() Shape {
	return Shape{Fields: []Field{}}
}

// New creates a named schema.
func New(name string, shapes map[ast.Kind]Shape) *Schema {
	return &Schema{name: name, shapes: shapes}
}

// Name returns the schema's pass name.
func (s *Schema) Name() string {
	return s.name
}

// Extend derives a new schema: the parent's shapes plus overrides,
// the way each pass's schema is declared relative to its predecessor.
func (s *Schema) Extend(name string, overrides map[ast.Kind]Shape) *Schema {
	shapes := make(map[ast.Kind]Shape, len(s.shapes)+len(overrides))
	for k, v := range s.shapes {
		shapes[k] = v
	}
	for k, v := range overrides {
		shapes[k] = v
	}
	return &Schema{name: name, shapes: shapes}
}

// Shape looks up the shape for a kind.
func (s *Schema) Shape(k ast.Kind) (Shape, bool) {
	sh, ok := s.shapes[k]
	return sh, ok
}

// Check validates the subtree, collecting every violation. Error
// nodes and their contents are exempt: they are diagnostics, not
// program trees.
func (s *Schema) Check(root *ast.Node) []error {
	var errs []error
	s.check(root, &errs)
	return errs
}

func (s *Schema) check(n *ast.Node, errs *[]error) {
	if n == nil {
		return
	}
	if n.Kind == ast.Error || n.Kind == ast.ErrorSeq {
		return
	}
	if shape, ok := s.shapes[n.Kind]; ok {
		if err := matchShape(n, shape); err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	for _, c := range n.Children {
		s.check(c, errs)
	}
}

func matchShape(n *ast.Node, shape Shape) error {
	// diagnostics are not part of any grammar; match around them
	children := make([]*ast.Node, 0, len(n.Children))
	hadErrors := false
	for _, c := range n.Children {
		if c.Kind == ast.Error || c.Kind == ast.ErrorSeq {
			hadErrors = true
			continue
		}
		children = append(children, c)
	}

	i := 0
	for _, f := range shape.Fields {
		matched := 0
		for i < len(children) && kindIn(children[i].Kind, f.Kinds) {
			i++
			matched++
			if f.Card == One || f.Card == Opt {
				break
			}
		}
		switch f.Card {
		case One, Plus:
			if matched == 0 {
				// a pruned subtree legitimately leaves holes
				if hadErrors {
					return nil
				}
				return fmt.Errorf("%s: child %d: want %s, got %s",
					n.Kind, i, kindList(f.Kinds), got(children, i))
			}
		}
	}
	if i != len(children) {
		return fmt.Errorf("%s: unexpected child %s at %d", n.Kind, children[i].Kind, i)
	}
	return nil
}

func kindIn(k ast.Kind, kinds []ast.Kind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func kindList(kinds []ast.Kind) string {
	out := ""
	for i, k := range kinds {
		if i > 0 {
			out += "|"
		}
		out += k.String()
	}
	return out
}

func got(children []*ast.Node, i int) string {
	if i < len(children) {
		return children[i].Kind.String()
	}
	return "nothing"
}
