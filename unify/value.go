// Package unify executes compiled rule bodies against input and
// data: it owns variable state, expression dependency ordering, rule
// resolution, and cycle detection.
package unify

import (
	"sort"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

// Rank orders candidate values of one rule name; lower wins. Default
// rules sit above every else index so any successful body overrides
// them.
const defaultRank = 1 << 16

// Value is an immutable snapshot of a term bound to a variable, with
// the provenance needed to prune failed unification branches: the
// values it was derived from and a rank for else/default precedence.
type Value struct {
	Var     string
	Node    *ast.Node
	Sources []*Value
	Rank    int

	invalid bool
	key     string
	ident   string
}

func newValue(varName string, node *ast.Node, rank int, sources ...*Value) *Value {
	return &Value{Var: varName, Node: node, Rank: rank, Sources: sources}
}

// Key returns the canonical key of the underlying term.
func (v *Value) Key() string {
	if v.key == "" {
		v.key = term.Key(v.Node)
	}
	return v.key
}

// Ident renders the value's full derivation: variable, key, and
// sources. Two values with equal derivations are the same candidate,
// no matter when they were produced; retry passes rely on this for
// termination.
func (v *Value) Ident() string {
	if v.ident == "" {
		var b strings.Builder
		v.writeIdent(&b)
		v.ident = b.String()
	}
	return v.ident
}

func (v *Value) writeIdent(b *strings.Builder) {
	b.WriteString(v.Var)
	b.WriteString("=")
	b.WriteString(v.Key())
	if len(v.Sources) > 0 {
		b.WriteString("(")
		for i, src := range v.Sources {
			if i > 0 {
				b.WriteString(",")
			}
			src.writeIdent(b)
		}
		b.WriteString(")")
	}
}

// Invalid reports whether the value was pruned.
func (v *Value) Invalid() bool {
	return v.invalid
}

// MarkInvalid prunes the value.
func (v *Value) MarkInvalid() {
	v.invalid = true
}

// DependsOn reports whether v was derived, transitively, from s.
func (v *Value) DependsOn(s *Value) bool {
	if v == s {
		return true
	}
	for _, src := range v.Sources {
		if src.DependsOn(s) {
			return true
		}
	}
	return false
}

// assignments flattens the source chain into variable→key choices,
// used to decide whether two values can coexist in one solution.
func (v *Value) assignments(into map[string]string) bool {
	if v.Var != "" {
		if prev, ok := into[v.Var]; ok && prev != v.Key() {
			return false
		}
		into[v.Var] = v.Key()
	}
	for _, src := range v.Sources {
		if !src.assignments(into) {
			return false
		}
	}
	return true
}

// Compatible reports whether two values agree on every variable in
// their derivations.
func Compatible(values ...*Value) bool {
	assigned := map[string]string{}
	for _, v := range values {
		if v == nil {
			continue
		}
		if !v.assignments(assigned) {
			return false
		}
	}
	return true
}

// ValueMap is a variable's candidate set: insertion-ordered, keyed by
// canonical term key.
type ValueMap struct {
	order []*Value
	keys  map[string][]*Value
}

func newValueMap() *ValueMap {
	return &ValueMap{keys: map[string][]*Value{}}
}

// Insert adds a candidate, deduplicating identical (key, source)
// pairs. A pruned value with the same derivation stays pruned: the
// re-derivation would only be invalidated again, and admitting it
// would keep the retry loop from reaching a fixed point.
func (m *ValueMap) Insert(v *Value) bool {
	key := v.Key()
	for _, existing := range m.keys[key] {
		if existing.Ident() == v.Ident() {
			return false
		}
	}
	m.order = append(m.order, v)
	m.keys[key] = append(m.keys[key], v)
	return true
}

// Valid returns the valid candidates in insertion order.
func (m *ValueMap) Valid() []*Value {
	out := make([]*Value, 0, len(m.order))
	for _, v := range m.order {
		if !v.invalid {
			out = append(out, v)
		}
	}
	return out
}

// Empty reports whether no valid candidate remains.
func (m *ValueMap) Empty() bool {
	return len(m.Valid()) == 0
}

// ContainsKey reports whether a valid candidate has the given key.
func (m *ValueMap) ContainsKey(key string) bool {
	for _, v := range m.keys[key] {
		if !v.invalid {
			return true
		}
	}
	return false
}

// RestrictTo invalidates candidates whose keys are outside the given
// set, the intersection step of constraint unification.
func (m *ValueMap) RestrictTo(keys map[string]bool) bool {
	changed := false
	for _, v := range m.order {
		if !v.invalid && !keys[v.Key()] {
			v.MarkInvalid()
			changed = true
		}
	}
	return changed
}

// Variable is the runtime state of one local: its candidate values,
// an initialized flag, and its projection class.
type Variable struct {
	name        string
	id          int
	values      *ValueMap
	initialized bool
}

func newVariable(name string, id int) *Variable {
	return &Variable{name: name, id: id, values: newValueMap()}
}

// Name returns the local's name.
func (v *Variable) Name() string {
	return v.name
}

// IsUserVar reports whether the variable participates in result
// bindings: any name without a compiler sigil.
func (v *Variable) IsUserVar() bool {
	return !strings.Contains(v.name, "$")
}

// IsCondition reports whether the variable carries a naked
// expression's value, which must be truthy for the body to hold.
func (v *Variable) IsCondition() bool {
	return strings.HasPrefix(v.name, "unify$")
}

// pruneFalsy invalidates falsy candidates of condition variables.
func (v *Variable) pruneFalsy() {
	if !v.IsCondition() {
		return
	}
	for _, val := range v.values.order {
		if !val.invalid && !term.IsTruthy(val.Node) {
			val.MarkInvalid()
		}
	}
}

// sortedKeys renders the candidate keys for deterministic debugging
// output.
func (v *Variable) sortedKeys() []string {
	var keys []string
	for _, val := range v.values.Valid() {
		keys = append(keys, val.Key())
	}
	sort.Strings(keys)
	return keys
}
