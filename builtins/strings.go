package builtins

import (
	"fmt"
	"strings"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/bigint"
	"github.com/termfx/regolith/term"
)

func registerStrings(r *Registry) {
	r.register("concat", 2, concat)
	r.register("contains", 2, stringPair(func(a, b string) *ast.Node { return term.Bool(strings.Contains(a, b)) }))
	r.register("startswith", 2, stringPair(func(a, b string) *ast.Node { return term.Bool(strings.HasPrefix(a, b)) }))
	r.register("endswith", 2, stringPair(func(a, b string) *ast.Node { return term.Bool(strings.HasSuffix(a, b)) }))
	r.register("indexof", 2, indexOf)
	r.register("lower", 1, stringOne(strings.ToLower))
	r.register("upper", 1, stringOne(strings.ToUpper))
	r.register("trim", 2, stringPair(func(a, b string) *ast.Node { return term.Str(strings.Trim(a, b)) }))
	r.register("trim_left", 2, stringPair(func(a, b string) *ast.Node { return term.Str(strings.TrimLeft(a, b)) }))
	r.register("trim_right", 2, stringPair(func(a, b string) *ast.Node { return term.Str(strings.TrimRight(a, b)) }))
	r.register("trim_prefix", 2, stringPair(func(a, b string) *ast.Node { return term.Str(strings.TrimPrefix(a, b)) }))
	r.register("trim_suffix", 2, stringPair(func(a, b string) *ast.Node { return term.Str(strings.TrimSuffix(a, b)) }))
	r.register("trim_space", 1, stringOne(strings.TrimSpace))
	r.register("replace", 3, replace)
	r.register("split", 2, split)
	r.register("substring", 3, substring)
	r.register("format_int", 2, formatInt)
	r.register("sprintf", 2, sprintf)
	r.register("string.reverse", 1, stringOne(reverseString))
}

func stringOne(op func(string) string) Fn {
	return func(args []*ast.Node) *ast.Node {
		s, err := unwrapString(args, 0)
		if err != nil {
			return err
		}
		return term.Str(op(s))
	}
}

func stringPair(op func(a, b string) *ast.Node) Fn {
	return func(args []*ast.Node) *ast.Node {
		a, err := unwrapString(args, 0)
		if err != nil {
			return err
		}
		b, err := unwrapString(args, 1)
		if err != nil {
			return err
		}
		return op(a, b)
	}
}

// concat joins a collection of strings with a delimiter.
func concat(args []*ast.Node) *ast.Node {
	delim, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	c := term.Unwrap(args[1])
	if c.Kind != ast.Array && c.Kind != ast.Set {
		return operandErr(1, "one of {array, set}", args[1])
	}
	parts := make([]string, 0, c.Len())
	for _, item := range c.Children {
		s, ok := term.StrValue(item)
		if !ok {
			return operandErr(1, "a collection of strings", item)
		}
		parts = append(parts, s)
	}
	return term.Str(strings.Join(parts, delim))
}

func indexOf(args []*ast.Node) *ast.Node {
	a, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	b, err := unwrapString(args, 1)
	if err != nil {
		return err
	}
	at := strings.Index(a, b)
	if at < 0 {
		return term.Int(bigint.One.Negate())
	}
	return term.Int(bigint.FromSize(len([]rune(a[:at]))))
}

func replace(args []*ast.Node) *ast.Node {
	s, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	old, err := unwrapString(args, 1)
	if err != nil {
		return err
	}
	repl, err := unwrapString(args, 2)
	if err != nil {
		return err
	}
	return term.Str(strings.ReplaceAll(s, old, repl))
}

func split(args []*ast.Node) *ast.Node {
	s, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	delim, err := unwrapString(args, 1)
	if err != nil {
		return err
	}
	out := ast.New(ast.Array)
	for _, part := range strings.Split(s, delim) {
		out.Append(term.Wrap(term.Str(part)))
	}
	return out
}

func substring(args []*ast.Node) *ast.Node {
	s, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	offset, err := unwrapInt(args, 1)
	if err != nil {
		return err
	}
	length, err := unwrapInt(args, 2)
	if err != nil {
		return err
	}
	if offset.IsNegative() {
		return builtinErr("substring: negative offset")
	}
	runes := []rune(s)
	start, ok := offset.Size()
	if !ok || start >= len(runes) {
		return term.Str("")
	}
	end := len(runes)
	if n, ok := length.Size(); ok && start+n < end {
		end = start + n
	}
	return term.Str(string(runes[start:end]))
}

func formatInt(args []*ast.Node) *ast.Node {
	v, err := unwrapNumber(args, 0)
	if err != nil {
		return err
	}
	base, err := unwrapInt(args, 1)
	if err != nil {
		return err
	}
	b, ok := base.Size()
	if !ok {
		return builtinErr("format_int: invalid base")
	}
	switch b {
	case 2:
		return term.Str(fmt.Sprintf("%b", int64(v)))
	case 8:
		return term.Str(fmt.Sprintf("%o", int64(v)))
	case 10:
		return term.Str(fmt.Sprintf("%d", int64(v)))
	case 16:
		return term.Str(fmt.Sprintf("%x", int64(v)))
	}
	return builtinErr("format_int: base must be one of {2, 8, 10, 16}")
}

// sprintf supports the verb subset that survives a round trip through
// policy values: %v, %d, %f, %s, and literal %%.
func sprintf(args []*ast.Node) *ast.Node {
	format, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	values, err := unwrapArray(args, 1)
	if err != nil {
		return err
	}
	goArgs := make([]any, 0, values.Len())
	for _, item := range values.Children {
		goArgs = append(goArgs, sprintfValue(item))
	}
	return term.Str(fmt.Sprintf(format, goArgs...))
}

func sprintfValue(item *ast.Node) any {
	if s, ok := term.StrValue(item); ok {
		return s
	}
	if i, ok := term.IntValue(item); ok {
		if v, fits := i.Int64(); fits {
			return v
		}
		return i.String()
	}
	if f, ok := term.FloatValue(item); ok {
		return f
	}
	if b, ok := term.BoolValue(item); ok {
		return b
	}
	return term.ToJSON(item)
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
