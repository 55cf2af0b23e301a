package regolith

import (
	"strconv"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

// Render projects a result tree into the documented textual format:
//
//	{"result":[{"expressions":[…],"bindings":{…}}, …]}  on success
//	{}                                                   when undefined
//	{"errors":[{"message":…,"code":…,"location":…}]}     on failure
func Render(root *ast.Node) string {
	errs := ast.CollectErrors(root)
	if len(errs) > 0 {
		return renderErrors(errs)
	}

	query := root.Front().Lookup(ast.Query)
	if query == nil || query.Len() == 0 {
		return "{}"
	}

	var b strings.Builder
	b.WriteString(`{"result":[`)
	first := true
	for _, res := range query.Children {
		if res.Kind != ast.Result {
			continue
		}
		if !first {
			b.WriteString(",")
		}
		first = false
		renderResult(&b, res)
	}
	b.WriteString("]}")
	if first {
		return "{}"
	}
	return b.String()
}

func renderResult(b *strings.Builder, res *ast.Node) {
	b.WriteString(`{"expressions":[`)
	wrote := false
	for _, child := range res.Children {
		if child.Kind != ast.Term {
			continue
		}
		if wrote {
			b.WriteString(",")
		}
		wrote = true
		b.WriteString(term.ToJSON(child))
	}
	b.WriteString("]")

	var bindings []*ast.Node
	for _, child := range res.Children {
		if child.Kind == ast.Binding {
			bindings = append(bindings, child)
		}
	}
	if len(bindings) > 0 {
		b.WriteString(`,"bindings":{`)
		for i, binding := range bindings {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(strconv.Quote(binding.Front().Text))
			b.WriteString(":")
			b.WriteString(term.ToJSON(binding.Child(1)))
		}
		b.WriteString("}")
	}
	b.WriteString("}")
}

func renderErrors(errs []*ast.Node) string {
	var b strings.Builder
	b.WriteString(`{"errors":[`)
	for i, e := range errs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"message":`)
		b.WriteString(strconv.Quote(ast.ErrValue(e)))
		b.WriteString(`,"code":`)
		b.WriteString(strconv.Quote(ast.ErrCode(e)))
		b.WriteString(`,"location":{"row":`)
		b.WriteString(strconv.Itoa(e.Loc.Line))
		b.WriteString(`,"col":`)
		b.WriteString(strconv.Itoa(e.Loc.Col))
		b.WriteString("}}")
	}
	b.WriteString("]}")
	return b.String()
}

func renderErrorText(e *Error) string {
	var b strings.Builder
	b.WriteString(`{"errors":[{"message":`)
	b.WriteString(strconv.Quote(e.Message))
	b.WriteString(`,"code":`)
	b.WriteString(strconv.Quote(e.Code))
	b.WriteString(`,"location":{"row":0,"col":0}}]}`)
	return b.String()
}
