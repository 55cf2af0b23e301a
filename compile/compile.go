// Package compile implements the staged rewrite pipeline that turns
// parsed policy modules, data documents, and a query into the
// unification form executed by the unify package. Each pass is a
// local tree rewrite with a declared post-condition schema; the
// pipeline validates the tree between passes.
package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/builtins"
	"github.com/termfx/regolith/rewrite"
	"github.com/termfx/regolith/unify"
	"github.com/termfx/regolith/wf"
)

// Options configures a pipeline run.
type Options struct {
	// Builtins is the registry used for arity checks, call rewrites,
	// and evaluation.
	Builtins *builtins.Registry
	// WFCheck validates the tree against each pass's schema.
	WFCheck bool
	// DebugPath, when set, receives a tree dump after every pass.
	DebugPath string
	// V1Compatible disables the v0 call convention that unifies a
	// function's result with a trailing extra argument.
	V1Compatible bool
	// Logf receives debug trace lines when non-nil.
	Logf func(format string, args ...any)
}

// Compiler owns the state threaded through the passes: the fresh-name
// counter, the skip table, and the options.
type Compiler struct {
	opts  Options
	fresh int
	skips map[string]*unify.Skip
}

type pass struct {
	name   string
	schema *wf.Schema
	run    func(*ast.Node) *ast.Node
}

// New creates a compiler.
func New(opts Options) *Compiler {
	if opts.Builtins == nil {
		opts.Builtins = builtins.Default()
	}
	return &Compiler{opts: opts, skips: map[string]*unify.Skip{}}
}

// freshVar returns a compiler-generated name. The '$' sigil marks the
// variable as invisible to result projection.
func (c *Compiler) freshVar(prefix string) string {
	c.fresh++
	return prefix + "$" + strconv.Itoa(c.fresh)
}

func (c *Compiler) logf(format string, args ...any) {
	if c.opts.Logf != nil {
		c.opts.Logf(format, args...)
	}
}

// passes returns the fixed pipeline in execution order.
func (c *Compiler) passes() []pass {
	return []pass{
		{"strings", schemaStrings, c.strings},
		{"merge_data", schemaMergeData, c.mergeData},
		{"varrefheads", schemaMergeData, c.varRefHeads},
		{"lift_refheads", schemaMergeData, c.liftRefHeads},
		{"symbols", schemaSymbols, c.symbols},
		{"replace_argvals", schemaSymbols, c.replaceArgVals},
		{"lift_query", schemaLiftQuery, c.liftQuery},
		{"expand_imports", schemaLiftQuery, c.expandImports},
		{"constants", schemaLiftQuery, c.constants},
		{"explicit_enums", schemaEnums, c.explicitEnums},
		{"body_locals", schemaEnums, c.bodyLocals},
		{"value_locals", schemaEnums, c.valueLocals},
		{"compr_locals", schemaEnums, c.comprLocals},
		{"rules_to_compr", schemaRulesToCompr, c.rulesToCompr},
		{"compr", schemaCompr, c.compr},
		{"absolute_refs", schemaCompr, c.absoluteRefs},
		{"merge_modules", schemaMergeModules, c.mergeModules},
		{"datarule", schemaMergeModules, c.dataRule},
		{"skips", schemaMergeModules, c.buildSkips},
		{"infix", schemaInfix, c.infix},
		{"assign", schemaAssign, c.assign},
		{"skip_refs", schemaAssign, c.skipRefs},
		{"simple_refs", schemaSimpleRefs, c.simpleRefs},
		{"init", schemaInit, c.initPass},
		{"implicit_enums", schemaInit, c.implicitEnums},
		{"enum_locals", schemaInit, c.enumLocals},
		{"rulebody", schemaRuleBody, c.ruleBody},
		{"lift_to_rule", schemaRuleBody, c.liftToRule},
		{"functions", schemaFunctions, c.functions},
		{"unifier", schemaUnify, c.unifier},
	}
}

// Run executes the pipeline over an assembled Rego tree:
//
//	Rego(Query(UnifyBody), Input(DataTerm|Undefined),
//	     DataSeq(Data(DataTerm)*), ModuleSeq(Module*))
//
// and returns the tree with the query results (or errors) spliced in.
func (c *Compiler) Run(root *ast.Node) *ast.Node {
	for i, p := range c.passes() {
		root = p.run(root)
		c.dump(i, p.name, root)
		if c.opts.WFCheck && p.schema != nil {
			for _, err := range p.schema.Check(root) {
				c.logf("wf violation after %s: %v", p.name, err)
				root.Append(ast.Err(nil, err.Error(), ast.WellFormedError))
			}
		}
	}
	return root
}

func (c *Compiler) dump(idx int, name string, root *ast.Node) {
	if c.opts.DebugPath == "" {
		return
	}
	if err := os.MkdirAll(c.opts.DebugPath, 0o755); err != nil {
		c.logf("debug path: %v", err)
		return
	}
	file := filepath.Join(c.opts.DebugPath, fmt.Sprintf("%02d_%s.trees", idx, name))
	if err := os.WriteFile(file, []byte(root.String()), 0o644); err != nil {
		c.logf("debug dump: %v", err)
	}
}

// runPass is a small helper for rule-driven passes.
func runPass(root *ast.Node, p *rewrite.Pass) *ast.Node {
	out, _ := p.Run(root)
	return out
}

// unifier executes the compiled query rule against input and data.
func (c *Compiler) unifier(root *ast.Node) *ast.Node {
	rego := root.Front()
	query := rego.Lookup(ast.Query)
	if query == nil || query.Front() == nil || query.Front().Kind != ast.RuleComp {
		return root
	}
	compiled := &unify.Compiled{
		Root:     root,
		Skips:    c.skips,
		Builtins: c.opts.Builtins,
		Logf:     c.opts.Logf,
	}
	result := unify.Run(compiled, query.Front())
	rego.ReplaceNode(query, result)
	return root
}
