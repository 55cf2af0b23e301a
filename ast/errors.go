package ast

// Stable error codes surfaced in results. The taxonomy is part of the
// public contract; new failures must map onto one of these.
const (
	RegoTypeError     = "rego_type_error"
	RegoParseError    = "rego_parse_error"
	EvalTypeError     = "eval_type_error"
	EvalBuiltInError  = "eval_builtin_error"
	EvalConflictError = "eval_conflict_error"
	WellFormedError   = "wellformed_error"
	RuntimeError      = "runtime_error"
)

// Err builds an error node rooted at the offending subtree. Passes
// refuse to transform error nodes, so diagnostics survive to the
// result stage while sibling subtrees keep compiling.
func Err(at *Node, msg, code string) *Node {
	e := New(Error,
		Leaf(ErrorMsg, msg),
		Leaf(ErrorCode, code),
	)
	if at != nil {
		e.Loc = at.Loc
		e.Append(New(ErrorAst, at.Clone()))
	}
	return e
}

// ErrValue reads the message of an error node.
func ErrValue(e *Node) string {
	if m := e.Lookup(ErrorMsg); m != nil {
		return m.Text
	}
	return ""
}

// ErrCode reads the code of an error node, defaulting to the internal
// well-formedness code when absent.
func ErrCode(e *Node) string {
	if c := e.Lookup(ErrorCode); c != nil {
		return c.Text
	}
	return WellFormedError
}

// CollectErrors gathers every error node reachable from root in
// pre-order, the order diagnostics are reported in.
func CollectErrors(root *Node) []*Node {
	var errs []*Node
	root.Walk(func(n *Node) bool {
		if n.Kind == Error {
			errs = append(errs, n)
			return false
		}
		return true
	})
	return errs
}
