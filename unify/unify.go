package unify

import (
	"strconv"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/builtins"
	"github.com/termfx/regolith/term"
)

// Skip is one entry of the compile-time resolution table: the target
// a fully-qualified name resolves to.
type Skip struct {
	Rules   []*ast.Node // rule definitions sharing the name
	Data    *ast.Node   // base-data leaf (DataTerm)
	Module  *ast.Node   // submodule (DataModule)
	BuiltIn string      // built-in function name
}

// Compiled is the unifier's view of a compiled program.
type Compiled struct {
	Root     *ast.Node
	Skips    map[string]*Skip
	Builtins *builtins.Registry
	Logf     func(format string, args ...any)
}

// shared is the evaluation state common to every unifier of one run:
// the call stack for cycle detection, the with-stack of active value
// overrides, the rule cache, and the error sink.
type shared struct {
	c         *Compiled
	callStack []string
	withStack []map[string][]*Value
	cache     map[string][]*Value
	errs      []*ast.Node
	input     []*Value
	inputSet  bool
}

func (s *shared) logf(format string, args ...any) {
	if s.c.Logf != nil {
		s.c.Logf(format, args...)
	}
}

// addError records an evaluation error. Built-in and type errors are
// subject to the lenient-errors policy; everything else always
// propagates.
func (s *shared) addError(e *ast.Node) {
	code := ast.ErrCode(e)
	if code == ast.EvalBuiltInError || code == ast.EvalTypeError {
		if !s.c.Builtins.StrictErrors() {
			return
		}
	}
	s.errs = append(s.errs, e)
}

func (s *shared) onStack(name string) bool {
	for _, n := range s.callStack {
		if n == name {
			return true
		}
	}
	return false
}

// Unifier solves one unification body. Nested bodies (enumeration,
// comprehension, negation, with) run in child unifiers that resolve
// enclosing variables through the parent chain.
type Unifier struct {
	s      *shared
	rule   string
	body   *ast.Node
	parent *Unifier

	vars     map[string]*Variable
	varOrder []string
	stmts    []*ast.Node
	seeds    []*Value
	failed   bool

	// stable per-iteration item values so retry passes dedupe
	enumItems map[string]*Value
}

// Run executes the compiled query rule and returns the Query result
// node containing grouped sub-results, or error diagnostics.
func Run(c *Compiled, queryRule *ast.Node) *ast.Node {
	s := &shared{c: c, cache: map[string][]*Value{}}

	body := queryRule.Child(1)
	out := ast.New(ast.Query)
	if body.Kind != ast.UnifyBody {
		return out
	}

	u := newUnifier(s, queryRule.Front().Text, body, nil)
	ok := u.solve()

	for _, e := range s.errs {
		out.Append(e)
	}
	if len(s.errs) > 0 {
		return out
	}
	if !ok {
		return out
	}
	u.project(out)
	return out
}

func newUnifier(s *shared, rule string, body *ast.Node, parent *Unifier) *Unifier {
	u := &Unifier{
		s:         s,
		rule:      rule,
		body:      body,
		parent:    parent,
		vars:      map[string]*Variable{},
		enumItems: map[string]*Value{},
	}
	u.bind()
	return u
}

// bind instantiates one Variable per Local declaration.
func (u *Unifier) bind() {
	for _, stmt := range u.body.Children {
		switch stmt.Kind {
		case ast.Local:
			u.declare(stmt.Front().Text)
		default:
			u.stmts = append(u.stmts, stmt)
		}
	}
}

func (u *Unifier) declare(name string) *Variable {
	if v, ok := u.vars[name]; ok {
		return v
	}
	v := newVariable(name, len(u.varOrder))
	u.vars[name] = v
	u.varOrder = append(u.varOrder, name)
	return v
}

// seed binds a variable to a fixed value before solving, used for
// enumeration items and function arguments. Seeds scope the
// satisfaction check: only values compatible with every active seed
// witness this frame's statements.
func (u *Unifier) seed(name string, val *Value) {
	v := u.declare(name)
	v.values.Insert(val)
	v.initialized = true
	u.seeds = append(u.seeds, val)
}

// activeSeeds collects the seeds along the frame chain.
func (u *Unifier) activeSeeds() []*Value {
	var seeds []*Value
	for cur := u; cur != nil; cur = cur.parent {
		seeds = append(seeds, cur.seeds...)
	}
	return seeds
}

// lookup finds a variable in this unifier or an ancestor.
func (u *Unifier) lookup(name string) *Variable {
	for cur := u; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v
		}
	}
	return nil
}

// solve runs execution passes in dependency order until a fixed
// point, bounded by a function of the statement count.
func (u *Unifier) solve() bool {
	max := len(u.stmts)*2 + 10
	for pass := 0; ; pass++ {
		if pass >= max {
			u.s.errs = append(u.s.errs,
				ast.Err(u.body, "unification did not stabilize within the retry bound", ast.RuntimeError))
			return false
		}
		changed := u.pass()
		if u.failed {
			return false
		}
		if !changed {
			break
		}
	}
	return u.satisfied()
}

// pass executes every statement once, in order, and reports whether
// any variable's candidate set changed.
func (u *Unifier) pass() bool {
	changed := false
	for _, stmt := range u.stmts {
		if u.failed || len(u.s.errs) > 0 && hasFatal(u.s.errs) {
			return false
		}
		if u.exec(stmt) {
			changed = true
		}
	}
	for _, name := range u.varOrder {
		u.vars[name].pruneFalsy()
	}
	return changed
}

func hasFatal(errs []*ast.Node) bool {
	for _, e := range errs {
		switch ast.ErrCode(e) {
		case ast.RuntimeError, ast.WellFormedError:
			return true
		}
	}
	return false
}

func (u *Unifier) exec(stmt *ast.Node) bool {
	switch stmt.Kind {
	case ast.UnifyExpr:
		return u.execUnify(stmt, false)
	case ast.LiteralInit:
		inner := stmt.Child(2)
		if inner.Kind == ast.UnifyExpr {
			return u.execUnify(inner, true)
		}
		return false
	case ast.UnifyExprEnum:
		return u.execEnum(stmt)
	case ast.UnifyExprCompr:
		return u.execCompr(stmt)
	case ast.UnifyExprNot:
		return u.execNot(stmt)
	case ast.UnifyExprWith:
		return u.execWith(stmt)
	case ast.Error:
		u.s.errs = append(u.s.errs, stmt)
		u.failed = true
	}
	return false
}

// execUnify evaluates a statement's expression and unifies the result
// with its variable: insertion when the statement initializes, key
// intersection when it constrains.
func (u *Unifier) execUnify(stmt *ast.Node, isInit bool) bool {
	name := stmt.Front().Text
	vals := u.evaluate(name, stmt.Child(1))

	v := u.lookup(name)
	if v == nil {
		v = u.declare(name)
	}

	if isInit || !v.initialized && v.values.Empty() {
		changed := false
		for _, val := range vals {
			if v.values.Insert(val) {
				changed = true
			}
		}
		if len(vals) > 0 {
			v.initialized = true
		}
		v.pruneFalsy()
		return changed
	}

	// constraint: restrict existing candidates to the produced keys
	keys := map[string]bool{}
	for _, val := range vals {
		keys[val.Key()] = true
	}
	return v.values.RestrictTo(keys)
}

// evaluate computes the multiset of values of an expression against
// the current variable state.
func (u *Unifier) evaluate(varName string, val *ast.Node) []*Value {
	switch val.Kind {
	case ast.Var:
		return retag(varName, u.resolveVar(val.Text))
	case ast.Scalar:
		return []*Value{newValue(varName, term.Wrap(val.Clone()), 0)}
	case ast.Array, ast.Set, ast.Object:
		return u.evalCollection(varName, val)
	case ast.Function:
		return u.evalFunction(varName, val)
	}
	u.s.errs = append(u.s.errs, ast.Err(val, "unexpected expression form", ast.WellFormedError))
	return nil
}

// retag derives values bound to a new variable, keeping provenance.
func retag(varName string, vals []*Value) []*Value {
	out := make([]*Value, 0, len(vals))
	for _, v := range vals {
		out = append(out, newValue(varName, v.Node, v.Rank, v))
	}
	return out
}

// evalCollection builds every combination of member values.
func (u *Unifier) evalCollection(varName string, val *ast.Node) []*Value {
	var members []*ast.Node
	if val.Kind == ast.Object {
		for _, item := range val.Children {
			members = append(members, item.Child(0), item.Child(1))
		}
	} else {
		members = val.Children
	}

	sources := make([][]*Value, len(members))
	for i, member := range members {
		sources[i] = u.evalArg(member)
		if len(sources[i]) == 0 {
			return nil
		}
	}

	args := NewArgs(sources...)
	var out []*Value
	if len(members) == 0 {
		args = NewArgs([]*Value{newValue("", term.Wrap(term.Null()), 0)})
	}
	for i := 0; i < args.Size(); i++ {
		tuple := args.At(i)
		if !validTuple(tuple) {
			continue
		}
		node := buildCollection(val, tuple, len(members) == 0)
		if node.Kind == ast.Error {
			u.s.addError(node)
			continue
		}
		if term.IsUndefined(node) {
			continue
		}
		out = append(out, newValue(varName, term.Wrap(node), 0, tuple...))
	}
	return out
}

func buildCollection(val *ast.Node, tuple []*Value, empty bool) *ast.Node {
	switch val.Kind {
	case ast.Array:
		arr := ast.New(ast.Array)
		if !empty {
			for _, v := range tuple {
				arr.Append(term.Wrap(v.Node))
			}
		}
		return arr
	case ast.Set:
		if empty {
			return ast.New(ast.Set)
		}
		items := make([]*ast.Node, len(tuple))
		for i, v := range tuple {
			items[i] = v.Node
		}
		return term.Set(items...)
	case ast.Object:
		var items []*ast.Node
		if !empty {
			for i := 0; i+1 < len(tuple); i += 2 {
				items = append(items, ast.New(ast.ObjectItem,
					term.Wrap(tuple[i].Node), term.Wrap(tuple[i+1].Node)))
			}
		}
		return term.Object(items, false)
	}
	return ast.Err(val, "not a collection", ast.WellFormedError)
}

// evalArg resolves a flat argument: a variable or a constant.
func (u *Unifier) evalArg(arg *ast.Node) []*Value {
	switch arg.Kind {
	case ast.Var:
		return u.resolveVar(arg.Text)
	case ast.Scalar:
		return []*Value{newValue("", term.Wrap(arg.Clone()), 0)}
	case ast.Array, ast.Set, ast.Object:
		return u.evalCollection("", arg)
	case ast.Term:
		return []*Value{newValue("", term.Wrap(arg.Clone()), 0)}
	}
	return nil
}

// resolveVar resolves a name to its current values: with-stack
// overrides first, then local variables, the skip table, and the
// input document.
func (u *Unifier) resolveVar(name string) []*Value {
	for i := len(u.s.withStack) - 1; i >= 0; i-- {
		if vals, ok := u.s.withStack[i][name]; ok {
			return vals
		}
	}
	if v := u.lookup(name); v != nil {
		return v.values.Valid()
	}
	if skip, ok := u.s.c.Skips[name]; ok {
		return u.resolveSkip(name, skip)
	}
	if name == "input" {
		return u.resolveInput()
	}
	u.s.errs = append(u.s.errs, ast.Err(nil, "unknown variable "+name, ast.WellFormedError))
	return nil
}

func (u *Unifier) resolveInput() []*Value {
	if !u.s.inputSet {
		input := u.s.c.Root.Front().Lookup(ast.Input)
		doc := input.Front()
		if doc != nil && doc.Kind == ast.DataTerm {
			u.s.input = []*Value{newValue("", term.FromData(doc), 0)}
		}
		u.s.inputSet = true
	}
	return u.s.input
}

func (u *Unifier) resolveSkip(name string, skip *Skip) []*Value {
	switch {
	case skip.BuiltIn != "":
		u.s.errs = append(u.s.errs, ast.Err(nil, name+" is a built-in function and must be called", ast.EvalTypeError))
		return nil
	case len(skip.Rules) > 0:
		return u.resolveRulePath(name, skip.Rules)
	case skip.Data != nil:
		return []*Value{newValue("", term.FromData(skip.Data), 0)}
	case skip.Module != nil:
		val := u.resolveModule(name, skip.Module)
		if val == nil {
			return nil
		}
		return []*Value{val}
	}
	return nil
}

// resolveModule materializes a package as an object of its rule and
// data values; undefined rules are omitted.
func (u *Unifier) resolveModule(path string, module *ast.Node) *Value {
	var items []*ast.Node
	add := func(key string, node *ast.Node) {
		items = append(items, ast.New(ast.ObjectItem,
			term.Wrap(term.Str(key)), term.Wrap(node)))
	}
	seenRules := map[string]bool{}
	for _, child := range module.Children {
		switch child.Kind {
		case ast.DataRule:
			add(child.Front().Text, term.FromData(child.Child(1)))
		case ast.Submodule:
			sub := u.resolveModule(path+"."+child.Front().Text, child.Child(1))
			if sub != nil {
				add(child.Front().Text, sub.Node)
			}
		case ast.RuleComp, ast.RuleFunc, ast.RuleSet, ast.RuleObj, ast.DefaultRule:
			name := child.Front().Text
			if seenRules[name] || child.Kind == ast.RuleFunc {
				continue
			}
			seenRules[name] = true
			rulePath := path + "." + name
			if skip, ok := u.s.c.Skips[rulePath]; ok {
				vals := u.resolveRulePath(rulePath, skip.Rules)
				if len(vals) == 1 {
					add(name, vals[0].Node)
				}
			}
		}
	}
	obj := term.Object(items, false)
	if obj.Kind == ast.Error {
		u.s.addError(obj)
		return nil
	}
	return newValue("", term.Wrap(obj), 0)
}

// resolveRulePath evaluates the definitions of one rule name,
// merging results by kind and rank.
func (u *Unifier) resolveRulePath(path string, defs []*ast.Node) []*Value {
	if len(u.s.withStack) == 0 {
		if cached, ok := u.s.cache[path]; ok {
			return cached
		}
	}
	if u.s.onStack(path) {
		u.s.errs = append(u.s.errs,
			ast.Err(nil, "recursive rule: "+path, ast.RuntimeError))
		return nil
	}
	u.s.callStack = append(u.s.callStack, path)
	defer func() { u.s.callStack = u.s.callStack[:len(u.s.callStack)-1] }()

	var result []*Value
	switch defs[0].Kind {
	case ast.RuleFunc:
		u.s.errs = append(u.s.errs,
			ast.Err(nil, path+" is a function and must be called", ast.EvalTypeError))
		return nil
	case ast.RuleSet, ast.DefaultRule, ast.RuleComp, ast.RuleObj:
		result = u.resolveDefs(path, defs)
	}

	if len(u.s.withStack) == 0 {
		u.s.cache[path] = result
	}
	return result
}

func ruleKindOf(defs []*ast.Node) ast.Kind {
	for _, def := range defs {
		if def.Kind != ast.DefaultRule {
			return def.Kind
		}
	}
	return ast.DefaultRule
}

func (u *Unifier) resolveDefs(path string, defs []*ast.Node) []*Value {
	switch ruleKindOf(defs) {
	case ast.RuleComp:
		return u.resolveRuleComp(path, defs)
	case ast.RuleSet:
		return u.resolveRuleSet(path, defs)
	case ast.RuleObj:
		return u.resolveRuleObj(path, defs)
	case ast.DefaultRule:
		// only a default exists: its value stands
		dt := defs[0].Child(1)
		return []*Value{newValue("", term.FromData(dt), defaultRank)}
	}
	return nil
}

// resolveRuleComp merges complete-rule definitions: the lowest else
// index that produced a value wins, a surviving conflict is an error,
// and the default fills in when nothing else held.
func (u *Unifier) resolveRuleComp(path string, defs []*ast.Node) []*Value {
	var candidates []*Value
	var fallback *Value
	for _, def := range defs {
		if def.Kind == ast.DefaultRule {
			fallback = newValue("", term.FromData(def.Child(1)), defaultRank)
			continue
		}
		val, ok := u.evalCompDef(path, def)
		if !ok {
			return nil
		}
		if val != nil {
			candidates = append(candidates, val)
		}
	}
	if len(candidates) == 0 {
		if fallback != nil {
			return []*Value{fallback}
		}
		return nil
	}

	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Rank < best.Rank {
			best = cand
		}
	}
	for _, cand := range candidates {
		if cand.Rank == best.Rank && cand.Key() != best.Key() {
			u.s.errs = append(u.s.errs,
				ast.Err(nil, "complete rules must not produce multiple outputs: "+path, ast.EvalConflictError))
			return nil
		}
	}
	return []*Value{best}
}

// evalCompDef evaluates one complete-rule definition. The bool result
// is false on a fatal error; a nil value means undefined.
func (u *Unifier) evalCompDef(path string, def *ast.Node) (*Value, bool) {
	rank := idxOf(def)
	body := def.Child(1)
	val := def.Child(2)

	if val.Kind == ast.DataTerm {
		if body.Kind == ast.UnifyBody {
			child := newUnifier(u.s, path, body, nil)
			if !child.solve() {
				return nil, len(u.s.errs) == 0 || !hasFatal(u.s.errs)
			}
		}
		return newValue("", term.FromData(val), rank), true
	}

	merged := mergeBodies(body, val)
	child := newUnifier(u.s, path, merged, nil)
	if !child.solve() {
		return nil, len(u.s.errs) == 0 || !hasFatal(u.s.errs)
	}
	return u.ruleValue(path, child, val, rank)
}

// ruleValue reads the distinguished value local out of a solved rule
// unifier.
func (u *Unifier) ruleValue(path string, child *Unifier, val *ast.Node, rank int) (*Value, bool) {
	name := valueVarName(val)
	if name == "" {
		return nil, true
	}
	v := child.lookup(name)
	if v == nil || v.values.Empty() {
		return nil, true
	}
	valid := v.values.Valid()
	first := valid[0]
	for _, other := range valid[1:] {
		if other.Key() != first.Key() {
			u.s.errs = append(u.s.errs,
				ast.Err(nil, "complete rules must not produce multiple outputs: "+path, ast.EvalConflictError))
			return nil, false
		}
	}
	return newValue("", first.Node, rank), true
}

func (u *Unifier) resolveRuleSet(path string, defs []*ast.Node) []*Value {
	var items []*ast.Node
	for _, def := range defs {
		if def.Kind == ast.DefaultRule {
			continue
		}
		val, ok := u.evalCompDef(path, def)
		if !ok {
			return nil
		}
		if val == nil {
			continue
		}
		set := term.Unwrap(val.Node)
		if set.Kind != ast.Set {
			u.s.errs = append(u.s.errs, ast.Err(nil, "set rule produced a non-set", ast.WellFormedError))
			return nil
		}
		items = append(items, set.Children...)
	}
	return []*Value{newValue("", term.Wrap(term.Set(items...)), 0)}
}

func (u *Unifier) resolveRuleObj(path string, defs []*ast.Node) []*Value {
	var items []*ast.Node
	for _, def := range defs {
		if def.Kind == ast.DefaultRule {
			continue
		}
		val, ok := u.evalCompDef(path, def)
		if !ok {
			return nil
		}
		if val == nil {
			continue
		}
		obj := term.Unwrap(val.Node)
		if obj.Kind != ast.Object {
			u.s.errs = append(u.s.errs, ast.Err(nil, "object rule produced a non-object", ast.WellFormedError))
			return nil
		}
		items = append(items, obj.Children...)
	}
	merged := term.Object(items, true)
	if merged.Kind == ast.Error {
		u.s.errs = append(u.s.errs,
			ast.Err(nil, "object keys must be unique: "+path, ast.EvalConflictError))
		return nil
	}
	return []*Value{newValue("", term.Wrap(merged), 0)}
}

func idxOf(def *ast.Node) int {
	idx := def.Back()
	if idx.Kind != ast.Idx {
		return 0
	}
	n, err := strconv.Atoi(idx.Text)
	if err != nil {
		return 0
	}
	return n
}

// mergeBodies concatenates a rule body with its value body so that
// body locals stay visible to the value computation.
func mergeBodies(body, val *ast.Node) *ast.Node {
	if body.Kind != ast.UnifyBody {
		return val
	}
	merged := ast.New(ast.UnifyBody)
	merged.Append(body.Children...)
	merged.Append(val.Children...)
	return merged
}

// valueVarName finds the distinguished value local of a value body.
func valueVarName(val *ast.Node) string {
	if val.Kind != ast.UnifyBody {
		return ""
	}
	for _, stmt := range val.Children {
		if stmt.Kind == ast.Local && strings.HasPrefix(stmt.Front().Text, "value$") {
			return stmt.Front().Text
		}
	}
	return ""
}
