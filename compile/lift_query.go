package compile

import (
	"github.com/termfx/regolith/ast"
)

// liftQuery synthesizes a complete rule from the user query so that
// it evaluates through the same machinery as any other rule. The
// rule's body is the query body; its bindings are projected by the
// result stage.
func (c *Compiler) liftQuery(root *ast.Node) *ast.Node {
	rego := root.Front()
	query := rego.Lookup(ast.Query)
	body := query.Front()
	if body == nil || body.Kind != ast.UnifyBody {
		return root
	}

	rule := ast.New(ast.RuleComp,
		ast.Leaf(ast.Var, c.freshVar("query")),
		body,
		c.valueBody(trueValueExpr()),
		idx(0))
	rego.ReplaceNode(query, ast.New(ast.Query, rule))
	return root
}
