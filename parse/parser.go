package parse

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
)

// Parser builds the initial tree for modules, queries, and input
// terms. One parser instance is reusable across documents.
type Parser struct {
	v1 bool
}

// New returns a parser. When v1 is true the v1 keyword rules apply:
// rule bodies require `if` and partial set rules require `contains`.
func New(v1 bool) *Parser {
	return &Parser{v1: v1}
}

type parseState struct {
	toks []token
	pos  int
	v1   bool
}

func (p *Parser) state(file, src string) (*parseState, error) {
	lex := newLexer(file, src)
	var toks []token
	for {
		tok, err := lex.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.typ == tokEOF {
			return &parseState{toks: toks, v1: p.v1}, nil
		}
	}
}

// Module parses a policy module.
func (p *Parser) Module(file, src string) (*ast.Node, error) {
	s, err := p.state(file, src)
	if err != nil {
		return nil, err
	}
	return s.module()
}

// Query parses a query expression into a Query node wrapping a
// unification body.
func (p *Parser) Query(src string) (*ast.Node, error) {
	s, err := p.state("query", src)
	if err != nil {
		return nil, err
	}
	body := ast.New(ast.UnifyBody)
	for {
		lit, err := s.literal()
		if err != nil {
			return nil, err
		}
		body.Append(lit)
		if s.peek().typ == tokSemicolon {
			s.take()
			continue
		}
		if s.peek().typ == tokEOF {
			break
		}
		if s.peek().nlBefore {
			continue
		}
		return nil, s.expected("';' or end of query")
	}
	return ast.New(ast.Query, body), nil
}

// Term parses a single constant term, the format accepted for inputs
// supplied as policy-language text.
func (p *Parser) Term(src string) (*ast.Node, error) {
	s, err := p.state("input", src)
	if err != nil {
		return nil, err
	}
	expr, err := s.expr()
	if err != nil {
		return nil, err
	}
	if s.peek().typ != tokEOF {
		return nil, s.expected("end of input")
	}
	return expr, nil
}

func (s *parseState) peek() token {
	return s.toks[s.pos]
}

func (s *parseState) peekAt(n int) token {
	if s.pos+n >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[s.pos+n]
}

func (s *parseState) take() token {
	tok := s.toks[s.pos]
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return tok
}

func (s *parseState) expect(typ tokenType) (token, error) {
	if s.peek().typ != typ {
		return token{}, s.expected(tokenNames[typ])
	}
	return s.take(), nil
}

func (s *parseState) expected(what string) error {
	tok := s.peek()
	return &Error{Loc: tok.loc, Msg: "expected " + what + ", found " + tok.String()}
}

func (s *parseState) isKeyword(kw string) bool {
	tok := s.peek()
	return tok.typ == tokIdent && tok.text == kw
}

func (s *parseState) takeKeyword(kw string) (token, error) {
	if !s.isKeyword(kw) {
		return token{}, s.expected("'" + kw + "'")
	}
	return s.take(), nil
}

// module := "package" ref import* rule*
func (s *parseState) module() (*ast.Node, error) {
	if _, err := s.takeKeyword("package"); err != nil {
		return nil, err
	}
	pkg, err := s.refPath()
	if err != nil {
		return nil, err
	}

	imports := ast.New(ast.ImportSeq)
	for s.isKeyword("import") {
		s.take()
		ref, err := s.refPath()
		if err != nil {
			return nil, err
		}
		alias := lastRefSegment(ref)
		if s.isKeyword("as") {
			s.take()
			tok, err := s.expect(tokIdent)
			if err != nil {
				return nil, err
			}
			alias = tok.text
		}
		if alias == "" {
			return nil, s.expected("import alias")
		}
		imports.Append(ast.New(ast.Import, ref, ast.Leaf(ast.Var, alias)))
	}

	policy := ast.New(ast.Policy)
	for s.peek().typ != tokEOF {
		rules, err := s.rule()
		if err != nil {
			return nil, err
		}
		policy.Append(rules...)
	}

	return ast.New(ast.Module, ast.New(ast.Package, pkg), imports, policy), nil
}

// refPath parses a dotted reference with optional constant bracket
// segments: a.b["c"].d
func (s *parseState) refPath() (*ast.Node, error) {
	headTok, err := s.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	head := ast.New(ast.RefHead, ast.Leaf(ast.Var, headTok.text).At(headTok.loc))
	args := ast.New(ast.RefArgSeq)
	for {
		switch s.peek().typ {
		case tokDot:
			s.take()
			tok, err := s.expect(tokIdent)
			if err != nil {
				return nil, err
			}
			args.Append(ast.New(ast.RefArgDot, ast.Leaf(ast.Var, tok.text).At(tok.loc)))
		case tokLBrack:
			s.take()
			expr, err := s.expr()
			if err != nil {
				return nil, err
			}
			if _, err := s.expect(tokRBrack); err != nil {
				return nil, err
			}
			args.Append(ast.New(ast.RefArgBrack, expr))
		default:
			return ast.New(ast.Ref, head, args).At(headTok.loc), nil
		}
	}
}

func lastRefSegment(ref *ast.Node) string {
	args := ref.Child(1)
	if args.Len() == 0 {
		return ref.Child(0).Front().Text
	}
	last := args.Back()
	if last.Kind == ast.RefArgDot {
		return last.Front().Text
	}
	return ""
}

// rule parses one rule declaration; chained bodies produce one Rule
// node per body, sharing the head.
func (s *parseState) rule() ([]*ast.Node, error) {
	isDefault := false
	if s.isKeyword("default") {
		s.take()
		isDefault = true
	}

	head, err := s.ruleHead()
	if err != nil {
		return nil, err
	}

	if isDefault {
		if s.peek().typ == tokLBrace {
			return nil, s.expected("no body on default rule")
		}
		rule := ast.New(ast.Rule, head, ast.Leaf(ast.Empty, ""), ast.New(ast.ElseSeq))
		rule.Text = "default"
		return []*ast.Node{rule}, nil
	}

	sawIf := false
	if s.isKeyword("if") {
		s.take()
		sawIf = true
	}
	if s.v1 && !sawIf && s.peek().typ == tokLBrace && head.Child(1).Kind != ast.RuleHeadSet {
		return nil, s.expected("'if' before rule body")
	}

	var bodies []*ast.Node
	if s.peek().typ == tokLBrace {
		body, err := s.body()
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
		for s.peek().typ == tokLBrace {
			body, err := s.body()
			if err != nil {
				return nil, err
			}
			bodies = append(bodies, body)
		}
	} else if sawIf {
		// single-literal body: name if expr
		lit, err := s.literal()
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, ast.New(ast.UnifyBody, lit))
	} else {
		bodies = append(bodies, ast.Leaf(ast.Empty, ""))
	}

	elseSeq := ast.New(ast.ElseSeq)
	for s.isKeyword("else") {
		s.take()
		val := ast.Leaf(ast.Empty, "")
		if s.peek().typ == tokUnify || s.peek().typ == tokAssign {
			s.take()
			expr, err := s.expr()
			if err != nil {
				return nil, err
			}
			val = expr
		}
		if s.isKeyword("if") {
			s.take()
		}
		elseBody := ast.Leaf(ast.Empty, "")
		if s.peek().typ == tokLBrace {
			b, err := s.body()
			if err != nil {
				return nil, err
			}
			elseBody = b
		}
		elseSeq.Append(ast.New(ast.Else, val, elseBody))
	}

	rules := make([]*ast.Node, 0, len(bodies))
	for i, body := range bodies {
		h := head
		es := elseSeq
		if i > 0 {
			h = head.Clone()
			es = ast.New(ast.ElseSeq)
		}
		rules = append(rules, ast.New(ast.Rule, h, body, es))
	}
	return rules, nil
}

// ruleHead parses the rule reference and classifies the head kind.
func (s *parseState) ruleHead() (*ast.Node, error) {
	ref, err := s.refPath()
	if err != nil {
		return nil, err
	}
	loc := ref.Loc

	switch {
	case s.peek().typ == tokLParen:
		s.take()
		args := ast.New(ast.RuleArgs)
		for s.peek().typ != tokRParen {
			expr, err := s.expr()
			if err != nil {
				return nil, err
			}
			args.Append(expr)
			if s.peek().typ == tokComma {
				s.take()
				continue
			}
			break
		}
		if _, err := s.expect(tokRParen); err != nil {
			return nil, err
		}
		val := trueExpr(loc)
		if s.peek().typ == tokUnify || s.peek().typ == tokAssign {
			s.take()
			val, err = s.expr()
			if err != nil {
				return nil, err
			}
		}
		return ast.New(ast.RuleHead, ast.New(ast.RuleRef, ref), ast.New(ast.RuleHeadFunc, args, val)), nil

	case s.isKeyword("contains"):
		s.take()
		elem, err := s.expr()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.RuleHead, ast.New(ast.RuleRef, ref), ast.New(ast.RuleHeadSet, elem)), nil

	case s.peek().typ == tokUnify || s.peek().typ == tokAssign:
		s.take()
		val, err := s.expr()
		if err != nil {
			return nil, err
		}
		if key, base := splitTrailingBrack(ref); key != nil {
			return ast.New(ast.RuleHead, ast.New(ast.RuleRef, base), ast.New(ast.RuleHeadObj, key, val)), nil
		}
		return ast.New(ast.RuleHead, ast.New(ast.RuleRef, ref), ast.New(ast.RuleHeadComp, val)), nil

	default:
		if key, base := splitTrailingBrack(ref); key != nil {
			if s.v1 {
				return nil, s.expected("'contains' for partial set rules")
			}
			return ast.New(ast.RuleHead, ast.New(ast.RuleRef, base), ast.New(ast.RuleHeadSet, key)), nil
		}
		return ast.New(ast.RuleHead, ast.New(ast.RuleRef, ref), ast.New(ast.RuleHeadComp, trueExpr(loc))), nil
	}
}

// splitTrailingBrack peels a final bracket argument off a rule
// reference: p.q[k] becomes (k, p.q).
func splitTrailingBrack(ref *ast.Node) (key, base *ast.Node) {
	args := ref.Child(1)
	if args.Len() == 0 || args.Back().Kind != ast.RefArgBrack {
		return nil, ref
	}
	key = args.Back().Front()
	base = ast.New(ast.Ref, ref.Child(0), ast.New(ast.RefArgSeq, args.Children[:args.Len()-1]...)).At(ref.Loc)
	return key, base
}

func trueExpr(loc ast.Location) *ast.Node {
	return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Scalar, ast.Leaf(ast.True, "")))).At(loc)
}

// body := "{" literal (separator literal)* "}"
func (s *parseState) body() (*ast.Node, error) {
	if _, err := s.expect(tokLBrace); err != nil {
		return nil, err
	}
	body := ast.New(ast.UnifyBody)
	for {
		if s.peek().typ == tokRBrace {
			break
		}
		lit, err := s.literal()
		if err != nil {
			return nil, err
		}
		body.Append(lit)
		if s.peek().typ == tokSemicolon {
			s.take()
			continue
		}
		if s.peek().typ == tokRBrace {
			break
		}
		if !s.peek().nlBefore {
			return nil, s.expected("';', newline, or '}'")
		}
	}
	if _, err := s.expect(tokRBrace); err != nil {
		return nil, err
	}
	if body.Len() == 0 {
		return nil, s.expected("at least one literal")
	}
	return body, nil
}

// literal parses one statement, including trailing with modifiers.
func (s *parseState) literal() (*ast.Node, error) {
	var inner *ast.Node

	switch {
	case s.isKeyword("some"):
		s.take()
		decl, err := s.someDecl()
		if err != nil {
			return nil, err
		}
		inner = ast.New(ast.Literal, decl)
	case s.isKeyword("not"):
		tok := s.take()
		expr, err := s.expr()
		if err != nil {
			return nil, err
		}
		inner = ast.New(ast.Literal, ast.New(ast.NotExpr, expr).At(tok.loc))
	default:
		expr, err := s.expr()
		if err != nil {
			return nil, err
		}
		inner = ast.New(ast.Literal, expr)
	}

	if !s.isKeyword("with") {
		return inner, nil
	}
	withSeq := ast.New(ast.WithSeq)
	for s.isKeyword("with") {
		s.take()
		target, err := s.refPath()
		if err != nil {
			return nil, err
		}
		if _, err := s.takeKeyword("as"); err != nil {
			return nil, err
		}
		val, err := s.expr()
		if err != nil {
			return nil, err
		}
		withSeq.Append(ast.New(ast.With, ast.New(ast.RuleRef, target), val))
	}
	return ast.New(ast.LiteralWith, ast.New(ast.UnifyBody, inner), withSeq), nil
}

// someDecl := var ("," var)* ("in" expr)?
func (s *parseState) someDecl() (*ast.Node, error) {
	vars := ast.New(ast.VarSeq)
	for {
		tok, err := s.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		vars.Append(ast.Leaf(ast.Var, tok.text).At(tok.loc))
		if s.peek().typ == tokComma {
			s.take()
			continue
		}
		break
	}
	if s.isKeyword("in") {
		s.take()
		seq, err := s.expr()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.SomeDecl, vars, seq), nil
	}
	return ast.New(ast.SomeDecl, vars, ast.Leaf(ast.Empty, "")), nil
}

// expression precedence, loosest first:
//   := =   (assignment/unification)
//   in     (membership)
//   == != < <= > >=
//   |
//   &
//   + -
//   * / %
//   unary minus
//   ref / call / primary
func (s *parseState) expr() (*ast.Node, error) {
	return s.assignExpr()
}

func (s *parseState) assignExpr() (*ast.Node, error) {
	lhs, err := s.membershipExpr()
	if err != nil {
		return nil, err
	}
	var op ast.Kind
	switch s.peek().typ {
	case tokAssign:
		op = ast.Assign
	case tokUnify:
		op = ast.Unify
	default:
		return lhs, nil
	}
	tok := s.take()
	rhs, err := s.membershipExpr()
	if err != nil {
		return nil, err
	}
	return ast.New(ast.Expr, ast.New(ast.ExprInfix, lhs, ast.Leaf(op, "").At(tok.loc), rhs)), nil
}

func (s *parseState) membershipExpr() (*ast.Node, error) {
	lhs, err := s.comparisonExpr()
	if err != nil {
		return nil, err
	}
	for s.isKeyword("in") {
		s.take()
		rhs, err := s.comparisonExpr()
		if err != nil {
			return nil, err
		}
		lhs = ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Membership, lhs, rhs)))
	}
	return lhs, nil
}

var comparisonOps = map[tokenType]ast.Kind{
	tokEq: ast.Equals, tokNeq: ast.NotEquals, tokLt: ast.LessThan,
	tokLte: ast.LessThanOrEquals, tokGt: ast.GreaterThan, tokGte: ast.GreaterThanOrEquals,
}

func (s *parseState) comparisonExpr() (*ast.Node, error) {
	lhs, err := s.unionExpr()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOps[s.peek().typ]
	if !ok {
		return lhs, nil
	}
	tok := s.take()
	rhs, err := s.unionExpr()
	if err != nil {
		return nil, err
	}
	return ast.New(ast.Expr, ast.New(ast.ExprInfix, lhs, ast.Leaf(op, "").At(tok.loc), rhs)), nil
}

func (s *parseState) unionExpr() (*ast.Node, error) {
	return s.leftAssoc(map[tokenType]ast.Kind{tokPipe: ast.Or}, s.intersectionExpr)
}

func (s *parseState) intersectionExpr() (*ast.Node, error) {
	return s.leftAssoc(map[tokenType]ast.Kind{tokAmp: ast.And}, s.addExpr)
}

func (s *parseState) addExpr() (*ast.Node, error) {
	return s.leftAssoc(map[tokenType]ast.Kind{tokPlus: ast.Add, tokMinus: ast.Subtract}, s.mulExpr)
}

func (s *parseState) mulExpr() (*ast.Node, error) {
	return s.leftAssoc(map[tokenType]ast.Kind{
		tokStar: ast.Multiply, tokSlash: ast.Divide, tokPercent: ast.Modulo,
	}, s.unaryExpr)
}

func (s *parseState) leftAssoc(ops map[tokenType]ast.Kind, next func() (*ast.Node, error)) (*ast.Node, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[s.peek().typ]
		if !ok {
			return lhs, nil
		}
		tok := s.take()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		lhs = ast.New(ast.Expr, ast.New(ast.ExprInfix, lhs, ast.Leaf(op, "").At(tok.loc), rhs))
	}
}

func (s *parseState) unaryExpr() (*ast.Node, error) {
	if s.peek().typ == tokMinus {
		tok := s.take()
		operand, err := s.unaryExpr()
		if err != nil {
			return nil, err
		}
		// fold a negated numeric literal into its lexical form
		if num := numLiteral(operand); num != nil {
			if num.Kind == ast.Int {
				return ast.New(ast.Expr, ast.New(ast.NumTerm,
					ast.Leaf(ast.Int, bigint.MustParse(num.Text).Negate().String()).At(tok.loc))), nil
			}
			return ast.New(ast.Expr, ast.New(ast.NumTerm,
				ast.Leaf(ast.Float, "-"+num.Text).At(tok.loc))), nil
		}
		return ast.New(ast.Expr, ast.New(ast.UnaryExpr, operand).At(tok.loc)), nil
	}
	return s.primaryExpr()
}

func numLiteral(expr *ast.Node) *ast.Node {
	if expr.Kind != ast.Expr {
		return nil
	}
	inner := expr.Front()
	if inner.Kind != ast.NumTerm {
		return nil
	}
	return inner.Front()
}

func (s *parseState) primaryExpr() (*ast.Node, error) {
	tok := s.peek()
	switch tok.typ {
	case tokInt:
		s.take()
		return ast.New(ast.Expr, ast.New(ast.NumTerm, ast.Leaf(ast.Int, tok.text).At(tok.loc))), nil
	case tokFloat:
		s.take()
		return ast.New(ast.Expr, ast.New(ast.NumTerm, ast.Leaf(ast.Float, tok.text).At(tok.loc))), nil
	case tokString:
		s.take()
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Scalar,
			ast.New(ast.String, ast.Leaf(ast.JSONString, tok.text).At(tok.loc))))), nil
	case tokRawString:
		s.take()
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Scalar,
			ast.New(ast.String, ast.Leaf(ast.RawString, tok.text).At(tok.loc))))), nil
	case tokLBrack:
		return s.arrayOrCompr()
	case tokLBrace:
		return s.objectOrSet()
	case tokLParen:
		s.take()
		expr, err := s.expr()
		if err != nil {
			return nil, err
		}
		if _, err := s.expect(tokRParen); err != nil {
			return nil, err
		}
		return expr, nil
	case tokIdent:
		return s.identExpr()
	}
	return nil, s.expected("expression")
}

func (s *parseState) identExpr() (*ast.Node, error) {
	tok := s.peek()
	switch tok.text {
	case "true":
		s.take()
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Scalar, ast.Leaf(ast.True, "").At(tok.loc)))), nil
	case "false":
		s.take()
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Scalar, ast.Leaf(ast.False, "").At(tok.loc)))), nil
	case "null":
		s.take()
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Scalar, ast.Leaf(ast.Null, "").At(tok.loc)))), nil
	case "set":
		if s.peekAt(1).typ == tokLParen {
			s.take()
			s.take()
			if _, err := s.expect(tokRParen); err != nil {
				return nil, err
			}
			return ast.New(ast.Expr, ast.New(ast.Term, ast.Leaf(ast.EmptySet, "").At(tok.loc))), nil
		}
	case "every":
		return s.everyExpr()
	}

	ref, err := s.refPath()
	if err != nil {
		return nil, err
	}

	if s.peek().typ == tokLParen {
		s.take()
		argSeq := ast.New(ast.ExprSeq)
		for s.peek().typ != tokRParen {
			arg, err := s.expr()
			if err != nil {
				return nil, err
			}
			argSeq.Append(arg)
			if s.peek().typ == tokComma {
				s.take()
				continue
			}
			break
		}
		if _, err := s.expect(tokRParen); err != nil {
			return nil, err
		}
		return ast.New(ast.Expr, ast.New(ast.ExprCall, ast.New(ast.RuleRef, ref), argSeq)), nil
	}

	// collapse a bare reference to its head variable
	if ref.Child(1).Len() == 0 {
		return ast.New(ast.Expr, ast.New(ast.RefTerm, ref.Child(0).Front())), nil
	}
	return ast.New(ast.Expr, ast.New(ast.RefTerm, ref)), nil
}

// everyExpr := "every" var ("," var)? "in" expr "{" body "}"
func (s *parseState) everyExpr() (*ast.Node, error) {
	every, err := s.takeKeyword("every")
	if err != nil {
		return nil, err
	}
	vars := ast.New(ast.VarSeq)
	for {
		tok, err := s.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		vars.Append(ast.Leaf(ast.Var, tok.text).At(tok.loc))
		if s.peek().typ == tokComma && vars.Len() < 2 {
			s.take()
			continue
		}
		break
	}
	if _, err := s.takeKeyword("in"); err != nil {
		return nil, err
	}
	domain, err := s.comparisonExpr()
	if err != nil {
		return nil, err
	}
	body, err := s.body()
	if err != nil {
		return nil, err
	}
	return ast.New(ast.Expr, ast.New(ast.ExprEvery, vars, domain, body).At(every.loc)), nil
}

// arrayOrCompr parses [a, b, c] or [head | body].
func (s *parseState) arrayOrCompr() (*ast.Node, error) {
	if _, err := s.expect(tokLBrack); err != nil {
		return nil, err
	}
	if s.peek().typ == tokRBrack {
		s.take()
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Array))), nil
	}
	first, err := s.expr()
	if err != nil {
		return nil, err
	}
	if s.peek().typ == tokPipe {
		s.take()
		body, err := s.comprBody(tokRBrack)
		if err != nil {
			return nil, err
		}
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.ArrayCompr, first, body))), nil
	}
	arr := ast.New(ast.Array, first)
	for s.peek().typ == tokComma {
		s.take()
		if s.peek().typ == tokRBrack {
			break
		}
		item, err := s.expr()
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
	if _, err := s.expect(tokRBrack); err != nil {
		return nil, err
	}
	return ast.New(ast.Expr, ast.New(ast.Term, arr)), nil
}

// objectOrSet parses {k: v, ...}, {a, b, ...}, or the comprehension
// forms of either.
func (s *parseState) objectOrSet() (*ast.Node, error) {
	if _, err := s.expect(tokLBrace); err != nil {
		return nil, err
	}
	if s.peek().typ == tokRBrace {
		s.take()
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.Object))), nil
	}
	first, err := s.expr()
	if err != nil {
		return nil, err
	}

	if s.peek().typ == tokColon {
		s.take()
		val, err := s.expr()
		if err != nil {
			return nil, err
		}
		if s.peek().typ == tokPipe {
			s.take()
			body, err := s.comprBody(tokRBrace)
			if err != nil {
				return nil, err
			}
			return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.ObjectCompr, first, val, body))), nil
		}
		obj := ast.New(ast.Object, ast.New(ast.ObjectItem, first, val))
		for s.peek().typ == tokComma {
			s.take()
			if s.peek().typ == tokRBrace {
				break
			}
			k, err := s.expr()
			if err != nil {
				return nil, err
			}
			if _, err := s.expect(tokColon); err != nil {
				return nil, err
			}
			v, err := s.expr()
			if err != nil {
				return nil, err
			}
			obj.Append(ast.New(ast.ObjectItem, k, v))
		}
		if _, err := s.expect(tokRBrace); err != nil {
			return nil, err
		}
		return ast.New(ast.Expr, ast.New(ast.Term, obj)), nil
	}

	if s.peek().typ == tokPipe {
		s.take()
		body, err := s.comprBody(tokRBrace)
		if err != nil {
			return nil, err
		}
		return ast.New(ast.Expr, ast.New(ast.Term, ast.New(ast.SetCompr, first, body))), nil
	}

	set := ast.New(ast.Set, first)
	for s.peek().typ == tokComma {
		s.take()
		if s.peek().typ == tokRBrace {
			break
		}
		item, err := s.expr()
		if err != nil {
			return nil, err
		}
		set.Append(item)
	}
	if _, err := s.expect(tokRBrace); err != nil {
		return nil, err
	}
	return ast.New(ast.Expr, ast.New(ast.Term, set)), nil
}

// comprBody parses the body of a comprehension up to the closing
// delimiter.
func (s *parseState) comprBody(closer tokenType) (*ast.Node, error) {
	body := ast.New(ast.UnifyBody)
	for {
		lit, err := s.literal()
		if err != nil {
			return nil, err
		}
		body.Append(lit)
		if s.peek().typ == tokSemicolon {
			s.take()
			continue
		}
		if s.peek().typ == closer {
			break
		}
		if s.peek().nlBefore {
			continue
		}
		return nil, s.expected("';' or closing delimiter")
	}
	s.take()
	return body, nil
}
