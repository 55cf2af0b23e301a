// Package regolith is a policy-language interpreter: it accumulates
// policy modules, hierarchical data documents, and an input document,
// compiles them through a staged rewrite pipeline, and evaluates
// queries by unification.
package regolith

import (
	"fmt"
	"os"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/builtins"
	"github.com/termfx/regolith/compile"
	"github.com/termfx/regolith/parse"
	"github.com/termfx/regolith/term"
)

// Interpreter accumulates modules, data, and input, and evaluates
// queries against them. It is not safe for concurrent use; run
// concurrent queries on separate interpreters.
type Interpreter struct {
	modules  []*ast.Node
	dataSeq  []*ast.Node
	input    *ast.Node
	builtins *builtins.Registry
	logger   *Logger

	wfCheck      bool
	debugPath    string
	debugEnabled bool
	v1           bool
}

// New creates an interpreter with the default built-in library.
func New() *Interpreter {
	return &Interpreter{
		builtins: builtins.Default(),
		logger:   NewLogger(nil, LevelWarning),
	}
}

func (i *Interpreter) parser() *parse.Parser {
	return parse.New(i.v1)
}

// AddModule appends a policy module from source text. The name is
// used in diagnostics only.
func (i *Interpreter) AddModule(name, source string) error {
	module, err := i.parser().Module(name, source)
	if err != nil {
		return &Error{Code: ast.RegoParseError, Message: err.Error()}
	}
	i.logger.Infof("adding module %s (%d bytes)", name, len(source))
	i.modules = append(i.modules, module)
	return nil
}

// AddModuleFile appends a policy module from a file.
func (i *Interpreter) AddModuleFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("module file: %w", err)
	}
	return i.AddModule(path, string(source))
}

// AddData appends a data document from JSON text; multiple documents
// merge hierarchically at compile time.
func (i *Interpreter) AddData(jsonText string) error {
	doc, err := term.FromJSON(jsonText)
	if err != nil {
		return &Error{Code: ast.RegoParseError, Message: err.Error()}
	}
	i.dataSeq = append(i.dataSeq, doc)
	return nil
}

// AddDataFile appends a data document from a JSON file.
func (i *Interpreter) AddDataFile(path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("data file: %w", err)
	}
	if err := i.AddData(string(text)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// AddDataAST appends an already-built data document tree.
func (i *Interpreter) AddDataAST(doc *ast.Node) error {
	if doc == nil || doc.Kind != ast.DataTerm {
		return &Error{Code: ast.RegoTypeError, Message: "data documents must be DataTerm trees"}
	}
	i.dataSeq = append(i.dataSeq, doc)
	return nil
}

// SetInput replaces the input document from JSON text.
func (i *Interpreter) SetInput(jsonText string) error {
	doc, err := term.FromJSON(jsonText)
	if err != nil {
		return &Error{Code: ast.RegoParseError, Message: err.Error()}
	}
	i.input = doc
	return nil
}

// SetInputFile replaces the input document from a JSON file.
func (i *Interpreter) SetInputFile(path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	return i.SetInput(string(text))
}

// SetInputTerm replaces the input document from policy-language term
// text, e.g. {"a": [1, 2]} or a set literal.
func (i *Interpreter) SetInputTerm(termText string) error {
	expr, err := i.parser().Term(termText)
	if err != nil {
		return &Error{Code: ast.RegoParseError, Message: err.Error()}
	}
	doc, ok := compile.ConstEval(expr)
	if !ok {
		return &Error{Code: ast.RegoTypeError, Message: "input terms must be constant"}
	}
	i.input = doc
	return nil
}

// SetInputAST replaces the input document with a built tree.
func (i *Interpreter) SetInputAST(doc *ast.Node) error {
	if doc == nil || doc.Kind != ast.DataTerm {
		return &Error{Code: ast.RegoTypeError, Message: "input must be a DataTerm tree"}
	}
	i.input = doc
	return nil
}

// ClearInput unsets the input document.
func (i *Interpreter) ClearInput() {
	i.input = nil
}

// Builtins exposes the registry for configuration; it must not be
// mutated while a query runs.
func (i *Interpreter) Builtins() *builtins.Registry {
	return i.builtins
}

// SetStrictBuiltInErrors selects whether built-in errors surface in
// results or collapse to undefined.
func (i *Interpreter) SetStrictBuiltInErrors(strict bool) {
	i.builtins.SetStrictErrors(strict)
}

// SetWFCheckEnabled toggles well-formedness validation after every
// compile pass.
func (i *Interpreter) SetWFCheckEnabled(enabled bool) {
	i.wfCheck = enabled
}

// SetDebugPath dumps each pass's output tree under dir.
func (i *Interpreter) SetDebugPath(dir string) {
	i.debugPath = dir
}

// SetDebugEnabled raises log verbosity.
func (i *Interpreter) SetDebugEnabled(enabled bool) {
	i.debugEnabled = enabled
	if enabled {
		i.logger.SetLevel(LevelDebug)
	} else {
		i.logger.SetLevel(LevelWarning)
	}
}

// SetV1Compatible selects the v1 surface syntax: rule bodies require
// `if`, partial set rules require `contains`, and the legacy
// extra-argument call convention is disabled.
func (i *Interpreter) SetV1Compatible(v1 bool) {
	i.v1 = v1
}

// SetLogOutput redirects interpreter logging.
func (i *Interpreter) SetLogOutput(logger *Logger) {
	if logger != nil {
		i.logger = logger
	}
}

// RawQuery compiles and evaluates a query, returning the result tree:
// the full program tree with the Query node holding grouped results
// or error diagnostics.
func (i *Interpreter) RawQuery(queryText string) (*ast.Node, error) {
	i.logger.Infof("query: %s", queryText)
	query, err := i.parser().Query(queryText)
	if err != nil {
		return nil, &Error{Code: ast.RegoParseError, Message: err.Error()}
	}

	root := i.assemble(query)
	compiler := compile.New(compile.Options{
		Builtins:     i.builtins,
		WFCheck:      i.wfCheck,
		DebugPath:    i.debugPath,
		V1Compatible: i.v1,
		Logf:         i.logf(),
	})
	return compiler.Run(root), nil
}

// Query compiles and evaluates a query and renders the documented
// textual result format.
func (i *Interpreter) Query(queryText string) (string, error) {
	root, err := i.RawQuery(queryText)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return renderErrorText(e), nil
		}
		return "", err
	}
	return Render(root), nil
}

func (i *Interpreter) logf() func(string, ...any) {
	if !i.debugEnabled {
		return nil
	}
	return i.logger.Debugf
}

// assemble builds the pipeline input tree. Modules and data are
// cloned so the interpreter's accumulated state survives the
// destructive pipeline.
func (i *Interpreter) assemble(query *ast.Node) *ast.Node {
	input := ast.New(ast.Input)
	if i.input != nil {
		input.Append(i.input.Clone())
	} else {
		input.Append(ast.Leaf(ast.Undefined, ""))
	}

	dataSeq := ast.New(ast.DataSeq)
	for _, doc := range i.dataSeq {
		dataSeq.Append(ast.New(ast.Data, doc.Clone()))
	}

	moduleSeq := ast.New(ast.ModuleSeq)
	for _, module := range i.modules {
		moduleSeq.Append(module.Clone())
	}

	return ast.New(ast.Top, ast.New(ast.Rego, query, input, dataSeq, moduleSeq))
}
