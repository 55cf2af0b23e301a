package compile

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/rewrite"
)

// strings canonicalizes raw-string literals: after this pass every
// string scalar is a JSONString carrying its unescaped value.
func (c *Compiler) strings(root *ast.Node) *ast.Node {
	return runPass(root, &rewrite.Pass{
		Name:     "strings",
		Strategy: rewrite.BottomUp,
		Once:     true,
		Rules: []rewrite.Rule{
			{
				Pattern: func(m *rewrite.Match) bool {
					return m.Node.Kind == ast.String
				},
				Action: func(m *rewrite.Match) *ast.Node {
					inner := m.Node.Front()
					// raw strings carry their bytes verbatim; quoted
					// strings were unescaped by the lexer
					return ast.Leaf(ast.JSONString, inner.Text).At(inner.Loc)
				},
			},
		},
	})
}
