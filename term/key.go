package term

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/termfx/regolith/ast"
)

// Key renders the canonical key of a term: a deterministic string
// that defines identity and ordering for set membership, object
// lookup, and comparisons. Scalars render by lexical form, arrays in
// insertion order, sets and objects sorted by member key.
func Key(n *ast.Node) string {
	var b strings.Builder
	writeKey(&b, n)
	return b.String()
}

// Compare orders two terms by their canonical keys.
func Compare(a, b *ast.Node) int {
	return strings.Compare(Key(a), Key(b))
}

// Equal reports canonical-key equality.
func Equal(a, b *ast.Node) bool {
	return Key(a) == Key(b)
}

func writeKey(b *strings.Builder, n *ast.Node) {
	if n == nil {
		b.WriteString("undefined")
		return
	}
	switch n.Kind {
	case ast.Term, ast.DataTerm, ast.Scalar:
		writeKey(b, n.Front())
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
		b.WriteString("undefined")
	case ast.Array, ast.DataArray:
		b.WriteString("[")
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(",")
			}
			writeKey(b, c)
		}
		b.WriteString("]")
	case ast.Set, ast.DataSet:
		keys := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			keys = append(keys, Key(c))
		}
		sort.Strings(keys)
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(k)
		}
		b.WriteString("}")
	case ast.Object, ast.DataObject:
		type pair struct{ k, v string }
		pairs := make([]pair, 0, len(n.Children))
		for _, c := range n.Children {
			pairs = append(pairs, pair{Key(c.Child(0)), Key(c.Child(1))})
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
	case ast.TermSet:
		// a multi-valued result keys as the set of its members
		keys := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			keys = append(keys, Key(c))
		}
		sort.Strings(keys)
		b.WriteString("termset(")
		b.WriteString(strings.Join(keys, ","))
		b.WriteString(")")
	default:
		b.WriteString(n.Kind.String())
		if n.Text != "" {
			b.WriteString("(")
			b.WriteString(n.Text)
			b.WriteString(")")
		}
		for _, c := range n.Children {
			writeKey(b, c)
		}
	}
}

// IsTruthy implements the boolean coercion applied to statement
// results: false is the only falsy defined term.
func IsTruthy(n *ast.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == ast.TermSet {
		return true
	}
	v := Unwrap(n)
	if v == nil || v.Kind == ast.Undefined {
		return false
	}
	if v.Kind == ast.Scalar {
		return v.Front().Kind != ast.False
	}
	return true
}

// IsUndefined reports whether the subtree contains an undefined
// marker, which poisons any enclosing value.
func IsUndefined(n *ast.Node) bool {
	if n == nil {
		return true
	}
	if n.Kind == ast.DataModule {
		return false
	}
	if n.Kind == ast.Undefined {
		return true
	}
	for _, c := range n.Children {
		if IsUndefined(c) {
			return true
		}
	}
	return false
}

func escape(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(out)
}
