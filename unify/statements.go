package unify

import (
	"sort"
	"strconv"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

// child builds a nested-body unifier sharing this run's state and
// resolving enclosing variables through u.
func (u *Unifier) child(body *ast.Node) *Unifier {
	return newUnifier(u.s, u.rule, body, u)
}

// execEnum enumerates the item sequence: each element binds the item
// variable in a fresh child frame; solutions union their bindings
// into the enclosing variables, and failed iterations prune every
// value they produced.
func (u *Unifier) execEnum(stmt *ast.Node) bool {
	outName := stmt.Child(0).Text
	itemName := stmt.Child(1).Text
	seqName := stmt.Child(2).Text
	body := stmt.Child(3)

	out := u.lookup(outName)
	if out == nil {
		out = u.declare(outName)
	}

	changed := false
	for _, sv := range u.resolveVar(seqName) {
		if sv.Invalid() {
			continue
		}
		for i, pair := range enumerate(sv.Node) {
			key := outName + "|" + strconv.Itoa(i) + "|" + sv.Key()
			itemVal, ok := u.enumItems[key]
			if !ok {
				itemVal = newValue(itemName, pair, sv.Rank, sv)
				u.enumItems[key] = itemVal
			}

			frame := u.child(body)
			frame.seed(itemName, itemVal)
			if frame.solve() {
				if out.values.Insert(newValue(outName, term.Wrap(term.Bool(true)), 0, itemVal)) {
					changed = true
				}
			} else {
				u.invalidateDependents(itemVal)
			}
			if hasFatal(u.s.errs) {
				return changed
			}
		}
	}
	out.initialized = true
	return changed
}

// invalidateDependents prunes every value in scope derived from a
// failed enumeration item.
func (u *Unifier) invalidateDependents(src *Value) {
	for cur := u; cur != nil; cur = cur.parent {
		for _, name := range cur.varOrder {
			for _, val := range cur.vars[name].values.order {
				if !val.Invalid() && val != src && val.DependsOn(src) {
					val.MarkInvalid()
				}
			}
		}
	}
}

// execCompr solves the nested body once and aggregates the emitted
// output terms into the comprehension's collection kind.
func (u *Unifier) execCompr(stmt *ast.Node) bool {
	varName := stmt.Child(0).Text
	compr := stmt.Child(1)
	nested := stmt.Child(2)
	body := nested.Child(1)
	outName := compr.Front().Text

	frame := u.child(body)
	ok := frame.solve()
	if hasFatal(u.s.errs) {
		return false
	}

	var outs []*Value
	if ok {
		if v := frame.vars[outName]; v != nil {
			outs = v.values.Valid()
		}
	}

	var node *ast.Node
	switch compr.Kind {
	case ast.ArrayCompr:
		arr := ast.New(ast.Array)
		for _, o := range outs {
			arr.Append(term.Wrap(o.Node))
		}
		node = arr
	case ast.SetCompr:
		items := make([]*ast.Node, len(outs))
		for i, o := range outs {
			items[i] = o.Node
		}
		node = term.Set(items...)
	case ast.ObjectCompr:
		var items []*ast.Node
		for _, o := range outs {
			pair := term.Unwrap(o.Node)
			if pair.Kind != ast.Array || pair.Len() != 2 {
				u.s.errs = append(u.s.errs, ast.Err(stmt, "malformed object comprehension output", ast.WellFormedError))
				return false
			}
			items = append(items, ast.New(ast.ObjectItem, pair.Child(0), pair.Child(1)))
		}
		node = term.Object(items, true)
		if node.Kind == ast.Error {
			u.s.errs = append(u.s.errs,
				ast.Err(stmt, "object comprehension keys must be unique", ast.EvalConflictError))
			return false
		}
	}

	v := u.lookup(varName)
	if v == nil {
		v = u.declare(varName)
	}
	changed := v.values.Insert(newValue(varName, term.Wrap(node), 0))
	v.initialized = true
	return changed
}

// execNot solves the negated body; any valid solution invalidates the
// enclosing context.
func (u *Unifier) execNot(stmt *ast.Node) bool {
	frame := u.child(stmt.Front())
	if frame.solve() {
		u.failed = true
	}
	return false
}

// execWith pushes the override frame, solves the body, and pops the
// frame on every exit path.
func (u *Unifier) execWith(stmt *ast.Node) bool {
	body := stmt.Child(0)
	withSeq := stmt.Child(1)

	frame := map[string][]*Value{}
	for _, with := range withSeq.Children {
		path := with.Child(0).Text
		frame[path] = u.evalArg(with.Child(1))
	}

	u.s.withStack = append(u.s.withStack, frame)
	child := u.child(body)
	ok := child.solve()
	u.s.withStack = u.s.withStack[:len(u.s.withStack)-1]

	if !ok {
		u.failed = true
	}
	return false
}

// evalFunction dispatches one function statement over the Cartesian
// product of its argument values.
func (u *Unifier) evalFunction(varName string, fn *ast.Node) []*Value {
	name := fn.Front().Text
	argSeq := fn.Child(1).Children

	var op ast.Kind
	args := argSeq
	if len(argSeq) > 0 && argSeq[0].Kind.IsOperator() {
		op = argSeq[0].Kind
		args = argSeq[1:]
	}

	sources := make([][]*Value, len(args))
	for i, arg := range args {
		sources[i] = u.evalArg(arg)
		if len(sources[i]) == 0 {
			return nil
		}
	}

	product := NewArgs(sources...)
	var out []*Value
	for i := 0; i < product.Size(); i++ {
		tuple := product.At(i)
		if !validTuple(tuple) {
			continue
		}
		results := u.callOnce(name, op, tuple)
		for _, node := range results {
			if node == nil || node.Kind == ast.Undefined || term.IsUndefined(node) {
				continue
			}
			if node.Kind == ast.Error {
				u.s.addError(node)
				continue
			}
			out = append(out, newValue(varName, term.Wrap(node), 0, tuple...))
		}
	}
	return out
}

// callOnce invokes one function for one argument tuple.
func (u *Unifier) callOnce(name string, op ast.Kind, tuple []*Value) []*ast.Node {
	terms := make([]*ast.Node, len(tuple))
	for i, v := range tuple {
		terms[i] = v.Node
	}

	switch name {
	case "apply_access":
		return []*ast.Node{applyAccess(terms[0], terms[1])}
	case "arithinfix":
		return []*ast.Node{arithInfix(op, terms[0], terms[1])}
	case "boolinfix":
		node := boolInfix(op, terms[0], terms[1])
		return []*ast.Node{node}
	case "bininfix":
		return []*ast.Node{binInfix(op, terms[0], terms[1])}
	case "unary":
		return []*ast.Node{unary(terms[0])}
	case "membership2":
		return []*ast.Node{membership(terms[0], terms[1])}
	}

	if skip, ok := u.s.c.Skips[name]; ok && len(skip.Rules) > 0 {
		return u.callRuleFunc(name, skip.Rules, tuple)
	}
	if u.s.c.Builtins.Has(name) {
		return []*ast.Node{u.s.c.Builtins.Call(name, terms)}
	}
	return []*ast.Node{ast.Err(nil, "unknown function "+name, ast.RegoTypeError)}
}

// callRuleFunc instantiates a child unifier per definition, seeded
// with the argument tuple; the lowest defined else index wins.
func (u *Unifier) callRuleFunc(path string, defs []*ast.Node, tuple []*Value) []*ast.Node {
	stackKey := path + "(" + strconv.Itoa(len(tuple)) + ")"
	if u.s.onStack(stackKey) {
		u.s.errs = append(u.s.errs, ast.Err(nil, "recursive rule: "+path, ast.RuntimeError))
		return nil
	}
	u.s.callStack = append(u.s.callStack, stackKey)
	defer func() { u.s.callStack = u.s.callStack[:len(u.s.callStack)-1] }()

	byIdx := map[int][]*ast.Node{}
	var idxOrder []int
	var fallback *ast.Node
	for _, def := range defs {
		if def.Kind == ast.DefaultRule {
			fallback = term.FromData(def.Child(1))
			continue
		}
		if def.Kind != ast.RuleFunc {
			return []*ast.Node{ast.Err(def, path+" is not a function", ast.EvalTypeError)}
		}
		i := idxOf(def)
		if _, ok := byIdx[i]; !ok {
			idxOrder = append(idxOrder, i)
		}
		byIdx[i] = append(byIdx[i], def)
	}
	sortInts(idxOrder)

	for _, i := range idxOrder {
		var winner *ast.Node
		for _, def := range byIdx[i] {
			val, ok := u.evalFuncDef(path, def, tuple)
			if !ok {
				return nil
			}
			if val == nil {
				continue
			}
			if winner != nil && term.Key(winner) != term.Key(val) {
				return []*ast.Node{ast.Err(nil,
					"functions must not produce multiple outputs for same inputs: "+path,
					ast.EvalConflictError)}
			}
			winner = val
		}
		if winner != nil {
			return []*ast.Node{winner}
		}
	}
	if fallback != nil {
		return []*ast.Node{fallback}
	}
	return nil
}

func (u *Unifier) evalFuncDef(path string, def *ast.Node, tuple []*Value) (*ast.Node, bool) {
	args := def.Child(1)
	if args.Len() != len(tuple) {
		return nil, true
	}
	body := def.Child(2)
	val := def.Child(3)

	merged := mergeBodies(body, valueBodyOf(val))
	child := newUnifier(u.s, path, merged, nil)
	for i, arg := range args.Children {
		argName := arg.Front().Text
		child.seed(argName, newValue(argName, tuple[i].Node, 0, tuple[i]))
	}
	if !child.solve() {
		return nil, !hasFatal(u.s.errs)
	}
	if val.Kind == ast.DataTerm {
		return term.FromData(val), true
	}
	v, ok := u.ruleValue(path, child, val, idxOf(def))
	if !ok || v == nil {
		return nil, ok
	}
	return v.Node, true
}

func valueBodyOf(val *ast.Node) *ast.Node {
	if val.Kind == ast.UnifyBody {
		return val
	}
	return ast.New(ast.UnifyBody)
}

func sortInts(xs []int) {
	sort.Ints(xs)
}

// satisfied reports whether every statement of the body holds: each
// unification and enumeration produced at least one valid value
// compatible with this frame's seeds, and no negation or with body
// invalidated the context.
func (u *Unifier) satisfied() bool {
	if u.failed {
		return false
	}
	seeds := u.activeSeeds()
	for _, stmt := range u.stmts {
		switch stmt.Kind {
		case ast.UnifyExpr:
			if u.varEmpty(stmt.Front().Text, seeds) {
				return false
			}
		case ast.LiteralInit:
			inner := stmt.Child(2)
			if inner.Kind == ast.UnifyExpr && u.varEmpty(inner.Front().Text, seeds) {
				return false
			}
		case ast.UnifyExprEnum, ast.UnifyExprCompr:
			if u.varEmpty(stmt.Front().Text, seeds) {
				return false
			}
		}
	}
	return true
}

// varEmpty reports whether a variable has no valid value witnessed
// under the active seeds.
func (u *Unifier) varEmpty(name string, seeds []*Value) bool {
	v := u.lookup(name)
	if v == nil {
		return true
	}
	for _, val := range v.values.Valid() {
		if Compatible(append(append([]*Value{}, seeds...), val)...) {
			return false
		}
	}
	return true
}

// conditionOrder sorts compiler temporaries by their creation number,
// recovering statement order for expression projection.
func conditionOrder(names []string) {
	num := func(name string) int {
		at := strings.LastIndex(name, "$")
		if at < 0 {
			return 0
		}
		n, err := strconv.Atoi(name[at+1:])
		if err != nil {
			return 0
		}
		return n
	}
	sort.SliceStable(names, func(i, j int) bool {
		return num(names[i]) < num(names[j])
	})
}
