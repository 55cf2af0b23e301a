package compile

import (
	"github.com/termfx/regolith/ast"
)

// constants recognizes rule heads and bodies whose contents are
// syntactic constants and marks them as DataTerm, excluding them from
// unification entirely.
func (c *Compiler) constants(root *ast.Node) *ast.Node {
	root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.DefaultRule:
			val := n.Child(1)
			if val.Kind == ast.DataTerm {
				return false
			}
			if dt, ok := constEval(val); ok {
				n.Replace(1, dt)
			} else {
				n.Replace(1, ast.Err(val, "default rule values must be constant", ast.RegoTypeError))
			}
			return false
		case ast.RuleComp, ast.RuleFunc:
			valAt := 2
			if n.Kind == ast.RuleFunc {
				valAt = 3
			}
			if dt, ok := constValueBody(n.Child(valAt)); ok {
				n.Replace(valAt, dt)
			}
			return true
		case ast.RuleSet:
			if dt, ok := constExprChild(n.Child(2)); ok {
				n.Replace(2, dt)
			}
			return true
		case ast.RuleObj:
			if dt, ok := constExprChild(n.Child(2)); ok {
				n.Replace(2, dt)
			}
			if dt, ok := constExprChild(n.Child(3)); ok {
				n.Replace(3, dt)
			}
			return true
		}
		return true
	})
	return root
}

// constValueBody folds a synthesized value body of the form
// { value$ = <const> } into the constant itself.
func constValueBody(val *ast.Node) (*ast.Node, bool) {
	if val.Kind != ast.UnifyBody {
		return nil, false
	}
	var assign *ast.Node
	for _, stmt := range val.Children {
		switch stmt.Kind {
		case ast.Local:
			continue
		case ast.Literal:
			if assign != nil {
				return nil, false
			}
			assign = stmt
		default:
			return nil, false
		}
	}
	if assign == nil {
		return nil, false
	}
	infix := assign.Front().Front()
	if infix.Kind != ast.ExprInfix {
		return nil, false
	}
	return constEval(infix.Child(2))
}

func constExprChild(n *ast.Node) (*ast.Node, bool) {
	if n.Kind != ast.Expr {
		return nil, false
	}
	return constEval(n)
}
