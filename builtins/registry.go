// Package builtins holds the registry of built-in functions and the
// implementations of the core library. A built-in is a pure function
// from fully evaluated argument terms to a term or an error node; the
// interpreter validates arity before invocation, argument types are
// the built-in's own responsibility.
package builtins

import (
	"sort"

	"github.com/termfx/regolith/ast"
)

// VarArgs marks a definition accepting any number of arguments.
const VarArgs = -1

// Fn is a built-in implementation: evaluated argument terms in,
// result term or error node out.
type Fn func(args []*ast.Node) *ast.Node

// Def is one registry entry.
type Def struct {
	Name      string
	Arity     int
	Fn        Fn
	Available bool
	// Description documents the builtin for tooling output.
	Description string
}

// LookupBehavior selects which names the registry serves.
type LookupBehavior uint8

const (
	AllowAll LookupBehavior = iota
	Whitelist
	Blacklist
)

// Registry maps fully-qualified names to definitions and carries the
// error-strictness and availability policies.
type Registry struct {
	defs         map[string]*Def
	strictErrors bool
	behavior     LookupBehavior
	names        map[string]bool // whitelist or blacklist members
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]*Def{}, names: map[string]bool{}}
}

// Default returns a registry populated with the core library.
func Default() *Registry {
	r := NewRegistry()
	registerNumbers(r)
	registerAggregates(r)
	registerArrays(r)
	registerStrings(r)
	registerSets(r)
	registerObjects(r)
	registerTypes(r)
	registerEncoding(r)
	registerStubs(r)
	return r
}

// Register adds or replaces a definition.
func (r *Registry) Register(def *Def) {
	r.defs[def.Name] = def
}

// register is the shorthand used by the library files.
func (r *Registry) register(name string, arity int, fn Fn) {
	r.defs[name] = &Def{Name: name, Arity: arity, Fn: fn, Available: true}
}

// registerStub records a known-but-unavailable builtin.
func (r *Registry) registerStub(name string, arity int, message string) {
	r.defs[name] = &Def{
		Name:  name,
		Arity: arity,
		Fn: func(args []*ast.Node) *ast.Node {
			return ast.Err(nil, message, ast.EvalBuiltInError)
		},
		Available: false,
	}
}

// Has reports whether a name is known, regardless of availability.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Arity returns the declared arity. The second result is false for
// unknown names; VarArgs means any arity.
func (r *Registry) Arity(name string) (int, bool) {
	def, ok := r.defs[name]
	if !ok {
		return 0, false
	}
	return def.Arity, true
}

// Names lists the registered names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for name := range r.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SetStrictErrors selects whether built-in errors propagate or
// collapse to undefined.
func (r *Registry) SetStrictErrors(strict bool) {
	r.strictErrors = strict
}

// StrictErrors reports the error policy.
func (r *Registry) StrictErrors() bool {
	return r.strictErrors
}

// SetLookupBehavior installs the availability policy with its name
// set (ignored for AllowAll).
func (r *Registry) SetLookupBehavior(behavior LookupBehavior, names []string) {
	r.behavior = behavior
	r.names = map[string]bool{}
	for _, name := range names {
		r.names[name] = true
	}
}

// available applies the lookup policy.
func (r *Registry) available(def *Def) bool {
	if !def.Available {
		return false
	}
	switch r.behavior {
	case Whitelist:
		return r.names[def.Name]
	case Blacklist:
		return !r.names[def.Name]
	}
	return true
}

// Call invokes a built-in for one argument tuple.
func (r *Registry) Call(name string, args []*ast.Node) *ast.Node {
	def, ok := r.defs[name]
	if !ok {
		return ast.Err(nil, "unknown built-in "+name, ast.RegoTypeError)
	}
	if !r.available(def) {
		return ast.Err(nil, name+" is not available", ast.EvalBuiltInError)
	}
	if def.Arity != VarArgs && len(args) != def.Arity {
		return ast.Err(nil, name+": arity mismatch", ast.RegoTypeError)
	}
	return def.Fn(args)
}
