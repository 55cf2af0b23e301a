// Package term supplies the value universe of the interpreter: typed
// constructors over ast nodes, canonical keys for identity and
// ordering, and the JSON bridge for data and input documents.
//
// Terms are plain tree nodes (there is no parallel value type), which
// lets rewrite passes, the unifier, and built-ins share one
// representation.
package term

import (
	"math"
	"strconv"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
)

// Int wraps an arbitrary-precision integer in a Scalar node.
func Int(v bigint.Int) *ast.Node {
	return ast.New(ast.Scalar, ast.Leaf(ast.Int, v.String()))
}

// IntFromString validates and wraps an integer literal.
func IntFromString(s string) (*ast.Node, bool) {
	v, ok := bigint.Parse(s)
	if !ok {
		return nil, false
	}
	return Int(v), true
}

// Float wraps a float in a Scalar node. NaN and infinities have no
// lexical form and are rejected.
func Float(v float64) (*ast.Node, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return ast.New(ast.Scalar, ast.Leaf(ast.Float, strconv.FormatFloat(v, 'g', -1, 64))), true
}

// Number wraps a float, demoting to an integer scalar when the value
// is whole. Arithmetic promotion works in terms of this constructor.
func Number(v float64) (*ast.Node, bool) {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return Int(bigint.FromInt64(int64(v))), true
	}
	return Float(v)
}

// Str wraps a string value in a Scalar node. The payload is the raw
// (unescaped) string; escaping happens during key and JSON rendering.
func Str(s string) *ast.Node {
	return ast.New(ast.Scalar, ast.Leaf(ast.JSONString, s))
}

// Bool wraps a boolean in a Scalar node.
func Bool(v bool) *ast.Node {
	if v {
		return ast.New(ast.Scalar, ast.Leaf(ast.True, ""))
	}
	return ast.New(ast.Scalar, ast.Leaf(ast.False, ""))
}

// Null returns the null scalar.
func Null() *ast.Node {
	return ast.New(ast.Scalar, ast.Leaf(ast.Null, ""))
}

// Wrap places a value inside a Term envelope with the minimum
// wrapping required; it is idempotent.
func Wrap(n *ast.Node) *ast.Node {
	switch n.Kind {
	case ast.Term, ast.TermSet, ast.Undefined, ast.Error:
		return n
	case ast.Scalar, ast.Array, ast.Object, ast.Set,
		ast.ArrayCompr, ast.SetCompr, ast.ObjectCompr, ast.Membership:
		return ast.New(ast.Term, n)
	case ast.Int, ast.Float, ast.JSONString, ast.True, ast.False, ast.Null:
		return ast.New(ast.Term, ast.New(ast.Scalar, n))
	case ast.DataTerm, ast.DataArray, ast.DataObject, ast.DataSet:
		return Wrap(FromData(n))
	default:
		return n
	}
}

// Unwrap strips Term envelopes down to the underlying value node.
func Unwrap(n *ast.Node) *ast.Node {
	for n != nil && (n.Kind == ast.Term || n.Kind == ast.DataTerm) {
		n = n.Front()
	}
	return n
}

// Array builds an array term from a sequence of terms. Insertion
// order is significant.
func Array(items ...*ast.Node) *ast.Node {
	arr := ast.New(ast.Array)
	for _, item := range items {
		arr.Append(Wrap(item))
	}
	return arr
}

// Set builds a set term, deduplicating members by canonical key.
func Set(items ...*ast.Node) *ast.Node {
	set := ast.New(ast.Set)
	seen := map[string]bool{}
	for _, item := range items {
		item = Wrap(item)
		k := Key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		set.Append(item)
	}
	return set
}

// Object builds an object term from ObjectItem nodes. When isRule is
// true, a duplicate key with a different value is a conflict error;
// otherwise the last write wins.
func Object(items []*ast.Node, isRule bool) *ast.Node {
	obj := ast.New(ast.Object)
	index := map[string]int{}
	for _, item := range items {
		key := item.Child(0)
		val := item.Child(1)
		k := Key(key)
		if at, ok := index[k]; ok {
			prev := obj.Children[at].Child(1)
			if Key(prev) == Key(val) {
				continue
			}
			if isRule {
				return ast.Err(item, "complete rules must not produce multiple outputs", ast.EvalConflictError)
			}
			obj.Children[at] = ast.New(ast.ObjectItem, key, Wrap(val))
			continue
		}
		index[k] = obj.Len()
		obj.Append(ast.New(ast.ObjectItem, key, Wrap(val)))
	}
	return obj
}

// ObjectInsert walks or creates intermediate objects along a dotted
// path and stores value at the leaf. A non-object found at a path
// element is a conflict.
func ObjectInsert(obj *ast.Node, path []string, value *ast.Node) *ast.Node {
	cur := obj
	for i, seg := range path {
		if cur.Kind != ast.Object {
			return ast.Err(cur, "conflicting values at "+seg, ast.EvalConflictError)
		}
		keyTerm := Wrap(Str(seg))
		var item *ast.Node
		for _, c := range cur.Children {
			if Key(c.Child(0)) == Key(keyTerm) {
				item = c
				break
			}
		}
		last := i == len(path)-1
		if item == nil {
			var val *ast.Node
			if last {
				val = Wrap(value)
			} else {
				val = ast.New(ast.Term, ast.New(ast.Object))
			}
			item = ast.New(ast.ObjectItem, keyTerm, val)
			cur.Append(item)
			if last {
				return nil
			}
			cur = Unwrap(item.Child(1))
			continue
		}
		if last {
			if Key(item.Child(1)) == Key(Wrap(value)) {
				return nil
			}
			return ast.Err(item, "conflicting values for "+seg, ast.EvalConflictError)
		}
		cur = Unwrap(item.Child(1))
	}
	return nil
}

// FromData converts a data-document subtree into the evaluation term
// kinds. Data documents are immutable, so the conversion clones.
func FromData(n *ast.Node) *ast.Node {
	switch n.Kind {
	case ast.DataTerm:
		return ast.New(ast.Term, FromData(n.Front()))
	case ast.DataArray:
		arr := ast.New(ast.Array)
		for _, c := range n.Children {
			arr.Append(FromData(c))
		}
		return arr
	case ast.DataSet:
		set := ast.New(ast.Set)
		for _, c := range n.Children {
			set.Append(FromData(c))
		}
		return set
	case ast.DataObject:
		obj := ast.New(ast.Object)
		for _, c := range n.Children {
			obj.Append(ast.New(ast.ObjectItem, FromData(c.Child(0)), FromData(c.Child(1))))
		}
		return obj
	default:
		return n.Clone()
	}
}

// ToData converts an evaluation term into the data-document kinds, the
// inverse of FromData.
func ToData(n *ast.Node) *ast.Node {
	switch n.Kind {
	case ast.Term:
		return ast.New(ast.DataTerm, ToData(n.Front()))
	case ast.Array:
		arr := ast.New(ast.DataArray)
		for _, c := range n.Children {
			arr.Append(ToData(c))
		}
		return arr
	case ast.Set:
		set := ast.New(ast.DataSet)
		for _, c := range n.Children {
			set.Append(ToData(c))
		}
		return set
	case ast.Object:
		obj := ast.New(ast.DataObject)
		for _, c := range n.Children {
			obj.Append(ast.New(ast.DataObjectItem, ToData(c.Child(0)), ToData(c.Child(1))))
		}
		return obj
	case ast.ObjectItem:
		return ast.New(ast.DataObjectItem, ToData(n.Child(0)), ToData(n.Child(1)))
	default:
		return n.Clone()
	}
}

// IntValue extracts the integer from an int scalar term.
func IntValue(n *ast.Node) (bigint.Int, bool) {
	n = Unwrap(n)
	if n != nil && n.Kind == ast.Scalar {
		n = n.Front()
	}
	if n == nil || n.Kind != ast.Int {
		return bigint.Zero, false
	}
	return bigint.MustParse(n.Text), true
}

// FloatValue extracts a numeric term as a float, promoting integers.
func FloatValue(n *ast.Node) (float64, bool) {
	n = Unwrap(n)
	if n != nil && n.Kind == ast.Scalar {
		n = n.Front()
	}
	if n == nil {
		return 0, false
	}
	switch n.Kind {
	case ast.Int:
		return bigint.MustParse(n.Text).Float64(), true
	case ast.Float:
		v, err := strconv.ParseFloat(n.Text, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// StrValue extracts the raw string from a string scalar term.
func StrValue(n *ast.Node) (string, bool) {
	n = Unwrap(n)
	if n != nil && n.Kind == ast.Scalar {
		n = n.Front()
	}
	if n == nil || n.Kind != ast.JSONString {
		return "", false
	}
	return n.Text, true
}

// BoolValue extracts a boolean scalar term.
func BoolValue(n *ast.Node) (bool, bool) {
	n = Unwrap(n)
	if n != nil && n.Kind == ast.Scalar {
		n = n.Front()
	}
	if n == nil {
		return false, false
	}
	switch n.Kind {
	case ast.True:
		return true, true
	case ast.False:
		return false, true
	}
	return false, false
}

// TypeName returns the user-facing type of a term, as reported by
// type errors and the type_name built-in.
func TypeName(n *ast.Node) string {
	n = Unwrap(n)
	if n == nil {
		return "undefined"
	}
	if n.Kind == ast.Scalar {
		n = n.Front()
	}
	switch n.Kind {
	case ast.Int, ast.Float:
		return "number"
	case ast.JSONString:
		return "string"
	case ast.True, ast.False:
		return "boolean"
	case ast.Null:
		return "null"
	case ast.Array, ast.DataArray:
		return "array"
	case ast.Set, ast.DataSet:
		return "set"
	case ast.Object, ast.DataObject:
		return "object"
	case ast.Undefined:
		return "undefined"
	default:
		return n.Kind.String()
	}
}
