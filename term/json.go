package term

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
)

// FromJSON reads a JSON document into a DataTerm tree. Numbers stay in
// their lexical form so integer precision is never lost.
func FromJSON(text string) (*ast.Node, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid json: trailing content")
	}
	return fromValue(doc)
}

func fromValue(v any) (*ast.Node, error) {
	switch x := v.(type) {
	case nil:
		return ast.New(ast.DataTerm, ast.New(ast.Scalar, ast.Leaf(ast.Null, ""))), nil
	case bool:
		k := ast.False
		if x {
			k = ast.True
		}
		return ast.New(ast.DataTerm, ast.New(ast.Scalar, ast.Leaf(k, ""))), nil
	case string:
		return ast.New(ast.DataTerm, ast.New(ast.Scalar, ast.Leaf(ast.JSONString, x))), nil
	case json.Number:
		if bigint.IsInt(x.String()) {
			return ast.New(ast.DataTerm, ast.New(ast.Scalar, ast.Leaf(ast.Int, bigint.MustParse(x.String()).String()))), nil
		}
		return ast.New(ast.DataTerm, ast.New(ast.Scalar, ast.Leaf(ast.Float, x.String()))), nil
	case []any:
		arr := ast.New(ast.DataArray)
		for _, item := range x {
			node, err := fromValue(item)
			if err != nil {
				return nil, err
			}
			arr.Append(node)
		}
		return ast.New(ast.DataTerm, arr), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := ast.New(ast.DataObject)
		for _, k := range keys {
			val, err := fromValue(x[k])
			if err != nil {
				return nil, err
			}
			key := ast.New(ast.DataTerm, ast.New(ast.Scalar, ast.Leaf(ast.JSONString, k)))
			obj.Append(ast.New(ast.DataObjectItem, key, val))
		}
		return ast.New(ast.DataTerm, obj), nil
	default:
		return nil, fmt.Errorf("unsupported json value %T", v)
	}
}

// ToJSON renders a term as JSON text. Sets render as sorted arrays,
// objects sorted by key, so the output is deterministic. This is the
// rendering used inside result documents.
func ToJSON(n *ast.Node) string {
	var b strings.Builder
	writeJSON(&b, n)
	return b.String()
}

func writeJSON(b *strings.Builder, n *ast.Node) {
	if n == nil {
		b.WriteString("null")
		return
	}
	switch n.Kind {
	case ast.Term, ast.DataTerm, ast.Scalar:
		writeJSON(b, n.Front())
	case ast.Int, ast.Float:
		b.WriteString(n.Text)
	case ast.JSONString, ast.Key:
		b.WriteString(escape(n.Text))
	case ast.True:
		b.WriteString("true")
	case ast.False:
		b.WriteString("false")
	case ast.Null:
		b.WriteString("null")
	case ast.Undefined:
		b.WriteString("null")
	case ast.Array, ast.DataArray:
		b.WriteString("[")
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(",")
			}
			writeJSON(b, c)
		}
		b.WriteString("]")
	case ast.Set, ast.DataSet:
		items := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			items = append(items, ToJSON(c))
		}
		sort.Strings(items)
		b.WriteString("[")
		b.WriteString(strings.Join(items, ","))
		b.WriteString("]")
	case ast.Object, ast.DataObject:
		type pair struct{ k, v string }
		pairs := make([]pair, 0, len(n.Children))
		for _, c := range n.Children {
			pairs = append(pairs, pair{ToJSON(c.Child(0)), ToJSON(c.Child(1))})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })
		b.WriteString("{")
		for i, p := range pairs {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(p.k)
			b.WriteString(":")
			b.WriteString(p.v)
		}
		b.WriteString("}")
	default:
		b.WriteString(escape(n.Kind.String()))
	}
}
