package ast

// Kind identifies the label of a tree node. The grammar, the rewrite
// passes, and the unifier all dispatch on kinds; nodes never carry
// behavior of their own.
type Kind uint16

const (
	Invalid Kind = iota

	// top-level assembly
	Top
	Rego
	Query
	Input
	DataSeq
	Data
	ModuleSeq
	Module
	Package
	ImportSeq
	Import
	Policy

	// surface rules
	Rule
	RuleHead
	RuleRef
	RuleHeadComp
	RuleHeadFunc
	RuleHeadSet
	RuleHeadObj
	RuleArgs
	Else
	ElseSeq
	Empty
	Idx

	// bodies
	UnifyBody
	Literal
	LiteralWith
	LiteralEnum
	LiteralInit
	LiteralNot
	SomeDecl
	WithSeq
	With
	ExprSeq
	VarSeq

	// expressions
	Expr
	ExprInfix
	ExprCall
	ExprEvery
	UnaryExpr
	NotExpr
	Membership

	// operators
	Assign
	Unify
	Equals
	NotEquals
	LessThan
	LessThanOrEquals
	GreaterThan
	GreaterThanOrEquals
	Add
	Subtract
	Multiply
	Divide
	Modulo
	And
	Or

	// terms
	Term
	Scalar
	String
	RawString
	JSONString
	Int
	Float
	True
	False
	Null
	Undefined
	Array
	Set
	EmptySet
	Object
	ObjectItem
	ArrayCompr
	SetCompr
	ObjectCompr
	NestedBody
	Key

	// references
	Ref
	RefHead
	RefArgSeq
	RefArgDot
	RefArgBrack
	RefTerm
	NumTerm
	Var
	SimpleRef

	// data documents
	DataTerm
	DataArray
	DataSet
	DataObject
	DataObjectItem
	DataModule
	DataRule
	Submodule

	// compiled rules
	RuleComp
	RuleFunc
	RuleSet
	RuleObj
	DefaultRule
	Local
	ArgVar
	ArgVal
	ArithInfix
	BinInfix
	BoolInfix
	AssignInfix
	AssignArg

	// unification statements
	UnifyExpr
	UnifyExprWith
	UnifyExprCompr
	UnifyExprEnum
	UnifyExprNot
	Function
	ArgSeq
	Enumerate
	Merge
	TermSet
	Binding
	Skip
	SkipSeq
	BuiltInHook
	Result

	// diagnostics
	Error
	ErrorMsg
	ErrorCode
	ErrorAst
	ErrorSeq

	kindCount
)

var kindNames = [...]string{
	Invalid:             "invalid",
	Top:                 "top",
	Rego:                "rego",
	Query:               "query",
	Input:               "input",
	DataSeq:             "data-seq",
	Data:                "data",
	ModuleSeq:           "module-seq",
	Module:              "module",
	Package:             "package",
	ImportSeq:           "import-seq",
	Import:              "import",
	Policy:              "policy",
	Rule:                "rule",
	RuleHead:            "rule-head",
	RuleRef:             "rule-ref",
	RuleHeadComp:        "rule-head-comp",
	RuleHeadFunc:        "rule-head-func",
	RuleHeadSet:         "rule-head-set",
	RuleHeadObj:         "rule-head-obj",
	RuleArgs:            "rule-args",
	Else:                "else",
	ElseSeq:             "else-seq",
	Empty:               "empty",
	Idx:                 "idx",
	UnifyBody:           "unify-body",
	Literal:             "literal",
	LiteralWith:         "literal-with",
	LiteralEnum:         "literal-enum",
	LiteralInit:         "literal-init",
	LiteralNot:          "literal-not",
	SomeDecl:            "some-decl",
	WithSeq:             "with-seq",
	With:                "with",
	ExprSeq:             "expr-seq",
	VarSeq:              "var-seq",
	Expr:                "expr",
	ExprInfix:           "expr-infix",
	ExprCall:            "expr-call",
	ExprEvery:           "expr-every",
	UnaryExpr:           "unary-expr",
	NotExpr:             "not-expr",
	Membership:          "membership",
	Assign:              ":=",
	Unify:               "=",
	Equals:              "==",
	NotEquals:           "!=",
	LessThan:            "<",
	LessThanOrEquals:    "<=",
	GreaterThan:         ">",
	GreaterThanOrEquals: ">=",
	Add:                 "+",
	Subtract:            "-",
	Multiply:            "*",
	Divide:              "/",
	Modulo:              "%",
	And:                 "&",
	Or:                  "|",
	Term:                "term",
	Scalar:              "scalar",
	String:              "string",
	RawString:           "raw-string",
	JSONString:          "json-string",
	Int:                 "int",
	Float:               "float",
	True:                "true",
	False:               "false",
	Null:                "null",
	Undefined:           "undefined",
	Array:               "array",
	Set:                 "set",
	EmptySet:            "empty-set",
	Object:              "object",
	ObjectItem:          "object-item",
	ArrayCompr:          "array-compr",
	SetCompr:            "set-compr",
	ObjectCompr:         "object-compr",
	NestedBody:          "nested-body",
	Key:                 "key",
	Ref:                 "ref",
	RefHead:             "ref-head",
	RefArgSeq:           "ref-arg-seq",
	RefArgDot:           "ref-arg-dot",
	RefArgBrack:         "ref-arg-brack",
	RefTerm:             "ref-term",
	NumTerm:             "num-term",
	Var:                 "var",
	SimpleRef:           "simple-ref",
	DataTerm:            "data-term",
	DataArray:           "data-array",
	DataSet:             "data-set",
	DataObject:          "data-object",
	DataObjectItem:      "data-object-item",
	DataModule:          "data-module",
	DataRule:            "data-rule",
	Submodule:           "submodule",
	RuleComp:            "rule-comp",
	RuleFunc:            "rule-func",
	RuleSet:             "rule-set",
	RuleObj:             "rule-obj",
	DefaultRule:         "default-rule",
	Local:               "local",
	ArgVar:              "arg-var",
	ArgVal:              "arg-val",
	ArithInfix:          "arith-infix",
	BinInfix:            "bin-infix",
	BoolInfix:           "bool-infix",
	AssignInfix:         "assign-infix",
	AssignArg:           "assign-arg",
	UnifyExpr:           "unify-expr",
	UnifyExprWith:       "unify-expr-with",
	UnifyExprCompr:      "unify-expr-compr",
	UnifyExprEnum:       "unify-expr-enum",
	UnifyExprNot:        "unify-expr-not",
	Function:            "function",
	ArgSeq:              "arg-seq",
	Enumerate:           "enumerate",
	Merge:               "merge",
	TermSet:             "term-set",
	Binding:             "binding",
	Skip:                "skip",
	SkipSeq:             "skip-seq",
	BuiltInHook:         "builtin-hook",
	Result:              "result",
	Error:               "error",
	ErrorMsg:            "error-msg",
	ErrorCode:           "error-code",
	ErrorAst:            "error-ast",
	ErrorSeq:            "error-seq",
}

// String returns the display name used in tree dumps and WF reports.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "kind?"
}

// IsRuleKind reports whether k is one of the compiled rule kinds.
func (k Kind) IsRuleKind() bool {
	switch k {
	case RuleComp, RuleFunc, RuleSet, RuleObj, DefaultRule:
		return true
	}
	return false
}

// IsOperator reports whether k is an infix operator token.
func (k Kind) IsOperator() bool {
	switch k {
	case Assign, Unify, Equals, NotEquals, LessThan, LessThanOrEquals,
		GreaterThan, GreaterThanOrEquals, Add, Subtract, Multiply,
		Divide, Modulo, And, Or:
		return true
	}
	return false
}
