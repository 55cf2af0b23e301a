package compile

import (
	"strconv"

	"github.com/termfx/regolith/ast"
)

// symbols restructures surface rules into the fused rule kinds,
// synthesizes value bodies, expands else chains, declares body
// locals, and gives comprehension bodies their nesting keys. After
// this pass every variable is resolvable to a local, a rule, an
// import, a built-in, or one of the top-level documents.
func (c *Compiler) symbols(root *ast.Node) *ast.Node {
	rego := root.Front()

	c.normalizeBodies(root)

	moduleSeq := rego.Lookup(ast.ModuleSeq)
	for _, module := range moduleSeq.Children {
		c.symbolsModule(module)
	}

	query := rego.Lookup(ast.Query)
	if body := query.Front(); body != nil && body.Kind == ast.UnifyBody {
		scope := c.baseScope(nil, nil)
		c.declareLocals(body, scope)
	}
	return root
}

// normalizeBodies rewrites the constructs that desugar into plain
// bodies: wildcards become fresh variables, comprehension bodies are
// wrapped in keyed nested bodies, and `every` becomes its
// double-negation form.
func (c *Compiler) normalizeBodies(root *ast.Node) *ast.Node {
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		for i := 0; i < len(n.Children); i++ {
			child := n.Children[i]
			switch child.Kind {
			case ast.Var:
				if isWildcard(child.Text) {
					n.Children[i] = ast.Leaf(ast.Var, c.freshVar("wc")).At(child.Loc)
				}
				continue
			case ast.ArrayCompr, ast.SetCompr:
				if child.Len() == 2 && child.Child(1).Kind == ast.UnifyBody {
					child.Replace(1, ast.New(ast.NestedBody,
						ast.Leaf(ast.Key, c.freshVar("compr")),
						child.Child(1)))
				}
			case ast.ObjectCompr:
				if child.Len() == 3 && child.Child(2).Kind == ast.UnifyBody {
					child.Replace(2, ast.New(ast.NestedBody,
						ast.Leaf(ast.Key, c.freshVar("compr")),
						child.Child(2)))
				}
			case ast.Literal:
				if every := everyIn(child); every != nil {
					n.Children[i] = c.rewriteEvery(every)
					walk(n.Children[i])
					continue
				}
			}
			walk(child)
		}
	}
	walk(root)
	return root
}

func everyIn(lit *ast.Node) *ast.Node {
	expr := lit.Front()
	if expr.Kind != ast.Expr || expr.Front() == nil {
		return nil
	}
	if expr.Front().Kind == ast.ExprEvery {
		return expr.Front()
	}
	return nil
}

// rewriteEvery lowers `every x in xs { B }` to its equivalent
// negation form: there must be no element of xs for which B fails.
func (c *Compiler) rewriteEvery(every *ast.Node) *ast.Node {
	vars := every.Child(0)
	domain := every.Child(1)
	body := every.Child(2)
	return ast.New(ast.LiteralNot, ast.New(ast.UnifyBody,
		ast.New(ast.Literal, ast.New(ast.SomeDecl, vars, domain)),
		ast.New(ast.LiteralNot, body)))
}

// symbolsModule converts one module's rules.
func (c *Compiler) symbolsModule(module *ast.Node) {
	policy := module.Lookup(ast.Policy)
	imports := module.Lookup(ast.ImportSeq)

	importNames := map[string]bool{}
	for _, imp := range imports.Children {
		importNames[imp.Child(1).Text] = true
	}

	var converted []*ast.Node
	for _, rule := range policy.Children {
		if rule.Kind != ast.Rule {
			converted = append(converted, rule)
			continue
		}
		converted = append(converted, c.convertRule(rule)...)
	}

	// scope over the converted names so else-chain variants resolve
	// as rules, not locals
	ruleNames := map[string]bool{}
	for _, rule := range converted {
		if rule.Kind.IsRuleKind() {
			ruleNames[rule.Front().Text] = true
		}
	}

	scope := c.baseScope(ruleNames, importNames)
	for _, rule := range converted {
		c.declareRuleLocals(rule, scope)
	}

	policy.Children = converted
}

// baseScope is the set of names resolvable without a Local: rules and
// imports of the enclosing module plus the top-level documents.
// Built-in names are intentionally absent; they are only meaningful
// in call position.
func (c *Compiler) baseScope(ruleNames, importNames map[string]bool) map[string]bool {
	scope := map[string]bool{"input": true, "data": true}
	for name := range ruleNames {
		scope[name] = true
	}
	for name := range importNames {
		scope[name] = true
	}
	return scope
}

// convertRule turns a surface rule into one or more fused rules.
func (c *Compiler) convertRule(rule *ast.Node) []*ast.Node {
	head := rule.Child(0)
	body := rule.Child(1)
	elseSeq := rule.Child(2)

	nameNode := head.Lookup(ast.RuleRef).Front()
	if nameNode.Kind != ast.Var {
		return []*ast.Node{ast.Err(rule, "unresolved rule reference", ast.RegoTypeError)}
	}
	name := nameNode.Clone()
	headType := head.Child(1)

	if rule.Text == "default" {
		if headType.Kind == ast.RuleHeadFunc {
			return []*ast.Node{ast.New(ast.DefaultRule, name, headType.Child(1))}
		}
		if headType.Kind != ast.RuleHeadComp {
			return []*ast.Node{ast.Err(rule, "default must be a complete rule", ast.RegoTypeError)}
		}
		return []*ast.Node{ast.New(ast.DefaultRule, name, headType.Front())}
	}

	switch headType.Kind {
	case ast.RuleHeadComp:
		return c.convertCompRule(name, headType.Front(), body, elseSeq)
	case ast.RuleHeadFunc:
		return c.convertFuncRule(name, headType.Child(0), headType.Child(1), body, elseSeq)
	case ast.RuleHeadSet:
		if elseSeq.Len() > 0 {
			return []*ast.Node{ast.Err(rule, "else keyword cannot be used on multi-value rules", ast.RegoTypeError)}
		}
		return []*ast.Node{ast.New(ast.RuleSet, name, body, headType.Front(), idx(0))}
	case ast.RuleHeadObj:
		if elseSeq.Len() > 0 {
			return []*ast.Node{ast.Err(rule, "else keyword cannot be used on multi-value rules", ast.RegoTypeError)}
		}
		return []*ast.Node{ast.New(ast.RuleObj, name, body, headType.Child(0), headType.Child(1), idx(0))}
	}
	return []*ast.Node{ast.Err(rule, "malformed rule head", ast.RegoTypeError)}
}

func idx(i int) *ast.Node {
	return ast.Leaf(ast.Idx, strconv.Itoa(i))
}

// valueBody wraps a rule-value expression in a body that binds the
// distinguished value local.
func (c *Compiler) valueBody(val *ast.Node) *ast.Node {
	name := c.freshVar("value")
	return ast.New(ast.UnifyBody,
		local(name),
		ast.New(ast.Literal, infixExpr(ast.Unify, refTerm(name), val)))
}

func (c *Compiler) convertCompRule(name, val, body, elseSeq *ast.Node) []*ast.Node {
	if elseSeq.Len() == 0 {
		return []*ast.Node{ast.New(ast.RuleComp, name, body, c.valueBody(val), idx(0))}
	}

	// Else precedence is per rule chain: each branch becomes a
	// variant of a fresh proxy target so that separate chains of the
	// same name still conflict with each other.
	variant := c.freshVar(name.Text)
	out := []*ast.Node{
		ast.New(ast.RuleComp, ast.Leaf(ast.Var, variant), body, c.valueBody(val), idx(0)),
	}
	for i, els := range elseSeq.Children {
		elseVal := els.Child(0)
		if elseVal.Kind == ast.Empty {
			elseVal = trueValueExpr()
		}
		elseBody := els.Child(1)
		out = append(out, ast.New(ast.RuleComp,
			ast.Leaf(ast.Var, variant), elseBody, c.valueBody(elseVal), idx(i+1)))
	}
	proxy := ast.New(ast.RuleComp, name, ast.Leaf(ast.Empty, ""),
		c.valueBody(refTerm(variant)), idx(0))
	return append(out, proxy)
}

func (c *Compiler) convertFuncRule(name, args, val, body, elseSeq *ast.Node) []*ast.Node {
	if elseSeq.Len() == 0 {
		return []*ast.Node{ast.New(ast.RuleFunc, name, args, body, c.valueBody(val), idx(0))}
	}

	variant := c.freshVar(name.Text)
	out := []*ast.Node{
		ast.New(ast.RuleFunc, ast.Leaf(ast.Var, variant), args.Clone(), body, c.valueBody(val), idx(0)),
	}
	for i, els := range elseSeq.Children {
		elseVal := els.Child(0)
		if elseVal.Kind == ast.Empty {
			elseVal = trueValueExpr()
		}
		elseBody := els.Child(1)
		out = append(out, ast.New(ast.RuleFunc,
			ast.Leaf(ast.Var, variant), args.Clone(), elseBody, c.valueBody(elseVal), idx(i+1)))
	}

	// proxy function forwarding its arguments to the variant chain
	outVar := c.freshVar("out")
	callArgs := ast.New(ast.ExprSeq)
	for _, arg := range args.Children {
		callArgs.Append(arg.Clone())
	}
	proxyBody := ast.New(ast.UnifyBody,
		local(outVar),
		ast.New(ast.Literal, infixExpr(ast.Unify, refTerm(outVar),
			ast.New(ast.Expr, ast.New(ast.ExprCall,
				ast.New(ast.RuleRef, ast.Leaf(ast.Var, variant)),
				callArgs)))))
	proxy := ast.New(ast.RuleFunc, name, args, proxyBody,
		c.valueBody(refTerm(outVar)), idx(0))
	return append(out, proxy)
}

func trueValueExpr() *ast.Node {
	return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Scalar, ast.Leaf(ast.True, ""))))
}

// declareRuleLocals declares body locals for every body owned by a
// fused rule.
func (c *Compiler) declareRuleLocals(rule *ast.Node, scope map[string]bool) {
	scope = copyScope(scope)
	switch rule.Kind {
	case ast.RuleFunc:
		for _, arg := range rule.Child(1).Children {
			if arg.Kind == ast.Expr {
				// argument patterns are resolved by replace_argvals;
				// plain variables enter scope now
				if v := argVarName(arg); v != "" {
					scope[v] = true
				}
			}
		}
		c.declareBodyPair(rule.Child(2), rule.Child(3), scope)
	case ast.RuleComp:
		c.declareBodyPair(rule.Child(1), rule.Child(2), scope)
	case ast.RuleSet:
		if body := rule.Child(1); body.Kind == ast.UnifyBody {
			c.declareLocals(body, scope)
			// the element expression shares the body scope
			c.adoptExprVars(rule.Child(2), body, scope)
		}
	case ast.RuleObj:
		if body := rule.Child(1); body.Kind == ast.UnifyBody {
			c.declareLocals(body, scope)
			c.adoptExprVars(rule.Child(2), body, scope)
			c.adoptExprVars(rule.Child(3), body, scope)
		}
	}
}

func (c *Compiler) declareBodyPair(body, val *ast.Node, scope map[string]bool) {
	if body.Kind == ast.UnifyBody {
		c.declareLocals(body, scope)
		for name := range bodyLocalNames(body) {
			scope[name] = true
		}
	}
	if val.Kind == ast.UnifyBody {
		c.declareLocals(val, scope)
	}
}

// adoptExprVars declares any free variables of a head expression in
// the rule's body, since head and body share one namespace.
func (c *Compiler) adoptExprVars(expr, body *ast.Node, scope map[string]bool) {
	declared := bodyLocalNames(body)
	for _, name := range orderedExprVars(expr) {
		if scope[name] || declared[name] {
			continue
		}
		body.Prepend(local(name))
		declared[name] = true
	}
}

// orderedExprVars lists an expression's variables in first-appearance
// order, for deterministic declaration.
func orderedExprVars(n *ast.Node) []string {
	var ordered []string
	seen := map[string]bool{}
	var walk func(*ast.Node)
	walk = func(n *ast.Node) {
		switch n.Kind {
		case ast.NestedBody, ast.RuleRef:
			return
		case ast.Var:
			if !seen[n.Text] {
				seen[n.Text] = true
				ordered = append(ordered, n.Text)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return ordered
}

func argVarName(arg *ast.Node) string {
	if arg.Kind != ast.Expr {
		return ""
	}
	inner := arg.Front()
	if inner.Kind == ast.RefTerm && inner.Front().Kind == ast.Var {
		return inner.Front().Text
	}
	return ""
}

func copyScope(scope map[string]bool) map[string]bool {
	out := make(map[string]bool, len(scope))
	for k, v := range scope {
		out[k] = v
	}
	return out
}

// declareLocals walks one body, declaring a Local for every variable
// that does not resolve against the enclosing scope. Nested
// comprehension bodies and negation bodies open child scopes; with
// bodies share the enclosing scope.
func (c *Compiler) declareLocals(body *ast.Node, scope map[string]bool) {
	scope = copyScope(scope)
	for name := range bodyLocalNames(body) {
		scope[name] = true
	}

	var vars, someVars []string
	seen := map[string]bool{}
	record := func(list *[]string, name string) {
		if !seen[name] {
			seen[name] = true
			*list = append(*list, name)
		}
	}
	scan := func(list *[]string, n *ast.Node) {
		found := map[string]bool{}
		var ordered []string
		var walk func(*ast.Node)
		walk = func(n *ast.Node) {
			switch n.Kind {
			case ast.NestedBody, ast.RuleRef:
				return
			case ast.Var:
				if !found[n.Text] {
					found[n.Text] = true
					ordered = append(ordered, n.Text)
				}
				return
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
		walk(n)
		for _, name := range ordered {
			record(list, name)
		}
	}

	var collect func(stmt *ast.Node)
	collect = func(stmt *ast.Node) {
		switch stmt.Kind {
		case ast.Local:
		case ast.Literal:
			inner := stmt.Front()
			if inner.Kind == ast.SomeDecl {
				for _, v := range inner.Child(0).Children {
					record(&someVars, v.Text)
				}
				if inner.Child(1).Kind != ast.Empty {
					scan(&vars, inner.Child(1))
				}
				return
			}
			scan(&vars, inner)
		case ast.LiteralWith:
			// with bodies share the enclosing scope
			for _, nested := range stmt.Front().Children {
				collect(nested)
			}
			scan(&vars, stmt.Child(1))
		}
	}
	for _, stmt := range body.Children {
		collect(stmt)
	}

	// some declarations always introduce locals, shadowing included
	declared := bodyLocalNames(body)
	for _, name := range someVars {
		if !declared[name] {
			body.Prepend(local(name))
			scope[name] = true
		}
	}
	for _, name := range vars {
		if scope[name] {
			continue
		}
		body.Prepend(local(name))
		scope[name] = true
	}

	// drop bare some declarations; their locals are in place
	for i := 0; i < len(body.Children); i++ {
		stmt := body.Children[i]
		if stmt.Kind == ast.Literal && stmt.Front().Kind == ast.SomeDecl &&
			stmt.Front().Child(1).Kind == ast.Empty {
			body.Remove(i)
			i--
		}
	}

	// recurse into nested scopes
	body.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.UnifyBody:
			return n == body
		case ast.NestedBody:
			c.declareLocals(n.Child(1), scope)
			return false
		case ast.LiteralNot:
			c.declareLocals(n.Front(), scope)
			return false
		case ast.LiteralWith:
			for _, nested := range n.Front().Children {
				if nested.Kind == ast.LiteralNot {
					c.declareLocals(nested.Front(), scope)
				}
			}
			nestedWalk(n.Front(), func(nb *ast.Node) {
				c.declareLocals(nb.Child(1), scope)
			})
			return false
		}
		return true
	})
}

// nestedWalk finds NestedBody nodes directly under a with body's
// literals.
func nestedWalk(n *ast.Node, fn func(*ast.Node)) {
	n.Walk(func(c *ast.Node) bool {
		if c.Kind == ast.NestedBody {
			fn(c)
			return false
		}
		if c.Kind == ast.LiteralNot {
			return false
		}
		return true
	})
}
