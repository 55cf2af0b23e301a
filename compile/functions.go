package compile

import (
	"strconv"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/unify"
)

// Internal function names used by the unifier's dispatcher. User
// calls keep their dotted names; these reserved names carry the
// operator statements.
const (
	fnApplyAccess = "apply_access"
	fnArithInfix  = "arithinfix"
	fnBinInfix    = "bininfix"
	fnBoolInfix   = "boolinfix"
	fnUnary       = "unary"
	fnMembership2 = "membership2"
)

// functions rewrites every remaining expression into Function(name,
// argseq) form with flat arguments, and validates call arity against
// the registry and user function definitions.
func (c *Compiler) functions(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		if n.Kind != ast.UnifyExpr {
			return true
		}
		val := n.Child(1)
		n.Replace(1, c.functionValue(val))
		return true
	})
	return root
}

// functionValue lowers one expression value.
func (c *Compiler) functionValue(expr *ast.Node) *ast.Node {
	inner := expr
	if inner.Kind == ast.Expr {
		inner = inner.Front()
	}
	switch inner.Kind {
	case ast.RefTerm:
		target := inner.Front()
		if target.Kind == ast.Var {
			return target
		}
		if target.Kind == ast.SimpleRef {
			return c.simpleRefFunction(target)
		}
	case ast.NumTerm:
		return ast.New(ast.Scalar, inner.Front())
	case ast.Term:
		return c.termValue(inner.Front())
	case ast.ArithInfix:
		return function(fnArithInfix,
			inner.Child(1),
			c.argValue(inner.Child(0)),
			c.argValue(inner.Child(2)))
	case ast.BinInfix:
		return function(fnBinInfix,
			inner.Child(1),
			c.argValue(inner.Child(0)),
			c.argValue(inner.Child(2)))
	case ast.BoolInfix:
		return function(fnBoolInfix,
			inner.Child(1),
			c.argValue(inner.Child(0)),
			c.argValue(inner.Child(2)))
	case ast.UnaryExpr:
		return function(fnUnary, c.argValue(inner.Front()))
	case ast.ExprCall:
		return c.callFunction(inner)
	}
	return ast.Err(expr, "expression did not reduce to a function form", ast.WellFormedError)
}

func (c *Compiler) termValue(t *ast.Node) *ast.Node {
	switch t.Kind {
	case ast.Scalar:
		return t
	case ast.EmptySet:
		return ast.New(ast.Set)
	case ast.Array, ast.Set:
		out := ast.New(t.Kind)
		for _, item := range t.Children {
			out.Append(c.argValue(item))
		}
		return out
	case ast.Object:
		out := ast.New(ast.Object)
		for _, item := range t.Children {
			out.Append(ast.New(ast.ObjectItem,
				c.argValue(item.Child(0)),
				c.argValue(item.Child(1))))
		}
		return out
	case ast.Membership:
		return function(fnMembership2,
			c.argValue(t.Child(0)),
			c.argValue(t.Child(1)))
	}
	return ast.Err(t, "term did not reduce", ast.WellFormedError)
}

// argValue lowers a flat argument to a Var or Scalar (or a collection
// of them).
func (c *Compiler) argValue(expr *ast.Node) *ast.Node {
	inner := expr
	if inner.Kind == ast.Expr {
		inner = inner.Front()
	}
	switch inner.Kind {
	case ast.RefTerm:
		if inner.Front().Kind == ast.Var {
			return inner.Front()
		}
		if inner.Front().Kind == ast.SimpleRef {
			// single-step refs in argument position were hoisted by
			// the locals passes; anything left is a compiler bug
			return ast.Err(inner, "reference argument was not hoisted", ast.WellFormedError)
		}
	case ast.NumTerm:
		return ast.New(ast.Scalar, inner.Front())
	case ast.Term:
		return c.termValue(inner.Front())
	case ast.Var, ast.Scalar:
		return inner
	}
	return ast.Err(expr, "argument did not reduce", ast.WellFormedError)
}

func (c *Compiler) simpleRefFunction(ref *ast.Node) *ast.Node {
	base := ref.Child(0)
	arg := ref.Child(1)
	switch arg.Kind {
	case ast.RefArgDot:
		return function(fnApplyAccess, base,
			ast.New(ast.Scalar, ast.Leaf(ast.JSONString, arg.Front().Text)))
	case ast.RefArgBrack:
		return function(fnApplyAccess, base, c.argValue(arg.Front()))
	}
	return ast.Err(ref, "malformed reference", ast.WellFormedError)
}

// callFunction validates arity and lowers a call.
func (c *Compiler) callFunction(call *ast.Node) *ast.Node {
	name := call.Front().Text
	args := call.Child(1)

	if arity, known := c.opts.Builtins.Arity(name); known && arity >= 0 && args.Len() != arity {
		return ast.Err(call,
			name+": expected "+strconv.Itoa(arity)+" arguments, got "+strconv.Itoa(args.Len()),
			ast.RegoTypeError)
	}
	if skip, ok := c.skips[name]; ok && len(skip.Rules) > 0 {
		if fn := skip.Rules[0]; fn.Kind == ast.RuleFunc {
			want := fn.Child(1).Len()
			if args.Len() != want {
				return ast.Err(call,
					name+": expected "+strconv.Itoa(want)+" arguments, got "+strconv.Itoa(args.Len()),
					ast.RegoTypeError)
			}
		}
	}
	if c.opts.Builtins.Has(name) || hasSkip(c.skips, name) {
		lowered := function(name)
		for _, arg := range args.Children {
			lowered.Child(1).Append(c.argValue(arg))
		}
		return lowered
	}
	return ast.Err(call, "unknown function "+name, ast.RegoTypeError)
}

func hasSkip(skips map[string]*unify.Skip, name string) bool {
	_, ok := skips[name]
	return ok
}

func function(name string, args ...*ast.Node) *ast.Node {
	return ast.New(ast.Function,
		ast.Leaf(ast.JSONString, name),
		ast.New(ast.ArgSeq, args...))
}
