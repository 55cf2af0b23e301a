package compile

import (
	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/wf"
)

// The per-pass well-formedness schemas. Each schema is declared as a
// delta over its predecessor, mirroring how the stages themselves are
// defined. Passes that do not change the grammar share the previous
// schema.

var exprKinds = []ast.Kind{
	ast.ExprInfix, ast.RefTerm, ast.NumTerm, ast.Term, ast.ExprCall,
	ast.UnaryExpr, ast.ExprEvery, ast.AssignInfix, ast.ArithInfix,
	ast.BinInfix, ast.BoolInfix,
}

var termKinds = []ast.Kind{
	ast.Scalar, ast.Array, ast.Set, ast.EmptySet, ast.Object,
	ast.ArrayCompr, ast.SetCompr, ast.ObjectCompr, ast.Membership,
}

var stmtKinds = []ast.Kind{
	ast.Local, ast.Literal, ast.LiteralWith, ast.LiteralEnum,
	ast.LiteralNot, ast.LiteralInit, ast.UnifyExpr, ast.UnifyExprWith,
	ast.UnifyExprCompr, ast.UnifyExprEnum, ast.UnifyExprNot,
}

var schemaStrings = wf.New("strings", map[ast.Kind]wf.Shape{
	ast.Top:       wf.Seq(wf.K(ast.Rego)),
	ast.Rego:      wf.Seq(wf.K(ast.Query), wf.K(ast.Input), wf.K(ast.DataSeq), wf.K(ast.ModuleSeq)),
	ast.Query:     wf.Seq(wf.K(ast.UnifyBody, ast.RuleComp, ast.Var)),
	ast.Input:     wf.Seq(wf.K(ast.DataTerm, ast.Undefined)),
	ast.DataSeq:   wf.Seq(wf.StarOf(ast.Data)),
	ast.Data:      wf.Seq(wf.K(ast.DataTerm, ast.DataModule)),
	ast.ModuleSeq: wf.Seq(wf.StarOf(ast.Module)),
	ast.Module:    wf.Seq(wf.K(ast.Package), wf.K(ast.ImportSeq), wf.K(ast.Policy)),
	ast.Package:   wf.Seq(wf.K(ast.Ref)),
	ast.ImportSeq: wf.Seq(wf.StarOf(ast.Import)),
	ast.Import:    wf.Seq(wf.K(ast.Ref), wf.K(ast.Var)),
	ast.Scalar:    wf.Seq(wf.K(ast.JSONString, ast.Int, ast.Float, ast.True, ast.False, ast.Null)),
	ast.Ref:       wf.Seq(wf.K(ast.RefHead), wf.K(ast.RefArgSeq)),
	ast.RefHead:   wf.Seq(wf.K(ast.Var)),
	ast.RefArgSeq: wf.Seq(wf.StarOf(ast.RefArgDot, ast.RefArgBrack)),
	ast.Expr:      wf.Seq(wf.K(exprKinds...)),
	ast.Term:      wf.Seq(wf.K(termKinds...)),
	ast.UnifyBody: wf.Seq(wf.PlusOf(stmtKinds...)),
	ast.DataTerm:  wf.Seq(wf.K(ast.Scalar, ast.DataArray, ast.DataObject, ast.DataSet)),
	ast.DataArray: wf.Seq(wf.StarOf(ast.DataTerm)),
	ast.DataSet:   wf.Seq(wf.StarOf(ast.DataTerm)),
	ast.DataObject: wf.Seq(wf.StarOf(ast.DataObjectItem)),
	ast.DataObjectItem: wf.Seq(wf.K(ast.DataTerm), wf.K(ast.DataTerm)),
})

var schemaMergeData = schemaStrings.Extend("merge_data", map[ast.Kind]wf.Shape{
	ast.Rego:       wf.Seq(wf.K(ast.Query), wf.K(ast.Input), wf.K(ast.Data), wf.K(ast.ModuleSeq)),
	ast.Data:       wf.Seq(wf.K(ast.DataModule)),
	ast.DataModule: wf.Seq(wf.StarOf(ast.DataRule, ast.Submodule, ast.RuleComp, ast.RuleFunc, ast.RuleSet, ast.RuleObj, ast.DefaultRule)),
	ast.DataRule:   wf.Seq(wf.K(ast.Var), wf.K(ast.DataTerm)),
	ast.Submodule:  wf.Seq(wf.K(ast.Key), wf.K(ast.DataModule)),
})

var schemaSymbols = schemaMergeData.Extend("symbols", map[ast.Kind]wf.Shape{
	ast.Module:      wf.Seq(wf.K(ast.Package), wf.K(ast.ImportSeq), wf.K(ast.Policy)),
	ast.Policy:      wf.Seq(wf.StarOf(ast.RuleComp, ast.RuleFunc, ast.RuleSet, ast.RuleObj, ast.DefaultRule)),
	ast.RuleComp:    wf.Seq(wf.K(ast.Var), wf.K(ast.UnifyBody, ast.Empty), wf.K(ast.UnifyBody, ast.DataTerm), wf.K(ast.Idx)),
	ast.RuleFunc:    wf.Seq(wf.K(ast.Var), wf.K(ast.RuleArgs), wf.K(ast.UnifyBody, ast.Empty), wf.K(ast.UnifyBody, ast.DataTerm), wf.K(ast.Idx)),
	ast.RuleSet:     wf.Seq(wf.K(ast.Var), wf.K(ast.UnifyBody, ast.Empty), wf.K(ast.Expr, ast.DataTerm, ast.UnifyBody), wf.K(ast.Idx)),
	ast.RuleObj:     wf.Seq(wf.K(ast.Var), wf.K(ast.UnifyBody, ast.Empty), wf.K(ast.Expr, ast.DataTerm, ast.UnifyBody), wf.OptOf(ast.Expr, ast.DataTerm), wf.K(ast.Idx)),
	ast.DefaultRule: wf.Seq(wf.K(ast.Var), wf.K(ast.Expr, ast.DataTerm)),
	ast.Local:       wf.Seq(wf.K(ast.Var), wf.K(ast.Undefined)),
	ast.Literal:     wf.Seq(wf.K(ast.Expr, ast.NotExpr, ast.SomeDecl)),
	ast.LiteralWith: wf.Seq(wf.K(ast.UnifyBody), wf.K(ast.WithSeq)),
	ast.LiteralNot:  wf.Seq(wf.K(ast.UnifyBody)),
	ast.WithSeq:     wf.Seq(wf.PlusOf(ast.With)),
	ast.With:        wf.Seq(wf.K(ast.RuleRef, ast.Var), wf.K(ast.Expr, ast.Var)),
	ast.RuleRef:     wf.Seq(wf.K(ast.Ref, ast.Var)),
	ast.ArrayCompr:  wf.Seq(wf.K(ast.Expr, ast.Var), wf.K(ast.NestedBody)),
	ast.SetCompr:    wf.Seq(wf.K(ast.Expr, ast.Var), wf.K(ast.NestedBody)),
	ast.ObjectCompr: wf.Seq(wf.K(ast.Expr, ast.Var), wf.OptOf(ast.Expr), wf.K(ast.NestedBody)),
	ast.NestedBody:  wf.Seq(wf.K(ast.Key), wf.K(ast.UnifyBody)),
	ast.SomeDecl:    wf.Seq(wf.K(ast.VarSeq), wf.K(ast.Expr, ast.Empty)),
	ast.RefTerm:     wf.Seq(wf.K(ast.Ref, ast.Var, ast.SimpleRef)),
	ast.NumTerm:     wf.Seq(wf.K(ast.Int, ast.Float)),
	ast.Idx:         wf.LeafShape(),
})

var schemaLiftQuery = schemaSymbols.Extend("lift_query", map[ast.Kind]wf.Shape{
	ast.Query:    wf.Seq(wf.K(ast.RuleComp)),
	ast.RuleArgs: wf.Seq(wf.StarOf(ast.ArgVar)),
	ast.ArgVar:   wf.Seq(wf.K(ast.Var), wf.K(ast.Undefined)),
})

var schemaEnums = schemaLiftQuery.Extend("explicit_enums", map[ast.Kind]wf.Shape{
	ast.LiteralEnum: wf.Seq(wf.K(ast.Var), wf.K(ast.Var), wf.K(ast.UnifyBody)),
	ast.Literal:     wf.Seq(wf.K(ast.Expr, ast.NotExpr)),
})

var schemaRulesToCompr = schemaEnums.Extend("rules_to_compr", map[ast.Kind]wf.Shape{
	ast.RuleSet: wf.Seq(wf.K(ast.Var), wf.K(ast.Empty, ast.UnifyBody), wf.K(ast.UnifyBody, ast.DataTerm), wf.K(ast.Idx)),
	ast.RuleObj: wf.Seq(wf.K(ast.Var), wf.K(ast.Empty, ast.UnifyBody), wf.K(ast.UnifyBody, ast.DataTerm), wf.K(ast.Idx)),
})

var schemaCompr = schemaRulesToCompr.Extend("compr", map[ast.Kind]wf.Shape{
	ast.ArrayCompr:  wf.Seq(wf.K(ast.Var), wf.K(ast.NestedBody)),
	ast.SetCompr:    wf.Seq(wf.K(ast.Var), wf.K(ast.NestedBody)),
	ast.ObjectCompr: wf.Seq(wf.K(ast.Var), wf.K(ast.NestedBody)),
})

var schemaMergeModules = schemaCompr.Extend("merge_modules", map[ast.Kind]wf.Shape{
	ast.Rego:    wf.Seq(wf.K(ast.Query), wf.K(ast.Input), wf.K(ast.Data), wf.OptOf(ast.SkipSeq)),
	ast.SkipSeq: wf.Seq(wf.StarOf(ast.Skip)),
	ast.Skip:    wf.Seq(wf.K(ast.Key), wf.K(ast.VarSeq, ast.BuiltInHook, ast.Undefined)),
})

var schemaInfix = schemaMergeModules.Extend("infix", map[ast.Kind]wf.Shape{
	ast.ArithInfix: wf.Seq(wf.K(ast.Expr), wf.K(ast.Add, ast.Subtract, ast.Multiply, ast.Divide, ast.Modulo), wf.K(ast.Expr)),
	ast.BinInfix:   wf.Seq(wf.K(ast.Expr), wf.K(ast.And, ast.Or), wf.K(ast.Expr)),
	ast.BoolInfix: wf.Seq(wf.K(ast.Expr),
		wf.K(ast.Equals, ast.NotEquals, ast.LessThan, ast.LessThanOrEquals, ast.GreaterThan, ast.GreaterThanOrEquals),
		wf.K(ast.Expr)),
})

var schemaAssign = schemaInfix.Extend("assign", map[ast.Kind]wf.Shape{
	ast.AssignInfix: wf.Seq(wf.K(ast.AssignArg), wf.K(ast.AssignArg)),
	ast.AssignArg:   wf.Seq(wf.K(ast.Expr)),
	ast.Literal:     wf.Seq(wf.K(ast.Expr)),
})

var schemaSimpleRefs = schemaAssign.Extend("simple_refs", map[ast.Kind]wf.Shape{
	ast.RefTerm:   wf.Seq(wf.K(ast.Var, ast.SimpleRef)),
	ast.SimpleRef: wf.Seq(wf.K(ast.Var), wf.K(ast.RefArgDot, ast.RefArgBrack)),
	ast.ExprCall:  wf.Seq(wf.K(ast.Var), wf.K(ast.ExprSeq)),
})

var schemaInit = schemaSimpleRefs.Extend("init", map[ast.Kind]wf.Shape{
	ast.LiteralInit: wf.Seq(wf.K(ast.VarSeq), wf.K(ast.VarSeq), wf.K(ast.AssignInfix, ast.UnifyExpr)),
	ast.VarSeq:      wf.Seq(wf.StarOf(ast.Var)),
})

var schemaRuleBody = schemaInit.Extend("rulebody", map[ast.Kind]wf.Shape{
	ast.ArrayCompr:     wf.Seq(wf.K(ast.Var)),
	ast.SetCompr:       wf.Seq(wf.K(ast.Var)),
	ast.ObjectCompr:    wf.Seq(wf.K(ast.Var)),
	ast.UnifyExpr:      wf.Seq(wf.K(ast.Var), wf.K(ast.Expr)),
	ast.UnifyExprWith:  wf.Seq(wf.K(ast.UnifyBody), wf.K(ast.WithSeq)),
	ast.UnifyExprCompr: wf.Seq(wf.K(ast.Var), wf.K(ast.ArrayCompr, ast.SetCompr, ast.ObjectCompr), wf.K(ast.NestedBody)),
	ast.UnifyExprEnum:  wf.Seq(wf.K(ast.Var), wf.K(ast.Var), wf.K(ast.Var), wf.K(ast.UnifyBody)),
	ast.UnifyExprNot:   wf.Seq(wf.K(ast.UnifyBody)),
	ast.With:           wf.Seq(wf.K(ast.Var), wf.K(ast.Var)),
})

var schemaFunctions = schemaRuleBody.Extend("functions", map[ast.Kind]wf.Shape{
	ast.UnifyExpr: wf.Seq(wf.K(ast.Var), wf.K(ast.Var, ast.Scalar, ast.Array, ast.Set, ast.Object, ast.Function)),
	ast.Function:  wf.Seq(wf.K(ast.JSONString), wf.K(ast.ArgSeq)),
	ast.ArgSeq: wf.Seq(wf.StarOf(ast.Var, ast.Scalar, ast.Array, ast.Set, ast.Object, ast.NestedBody, ast.VarSeq,
		ast.Add, ast.Subtract, ast.Multiply, ast.Divide, ast.Modulo, ast.And, ast.Or,
		ast.Equals, ast.NotEquals, ast.LessThan, ast.LessThanOrEquals, ast.GreaterThan, ast.GreaterThanOrEquals)),
	ast.Object:     wf.Seq(wf.StarOf(ast.ObjectItem)),
	ast.ObjectItem: wf.Seq(wf.K(ast.Var, ast.Scalar, ast.Array, ast.Set, ast.Object, ast.Term), wf.K(ast.Var, ast.Scalar, ast.Array, ast.Set, ast.Object, ast.Term)),
})

var schemaUnify = schemaFunctions.Extend("unify", map[ast.Kind]wf.Shape{
	ast.Query:   wf.Seq(wf.StarOf(ast.Result, ast.Undefined)),
	ast.Result:  wf.Seq(wf.StarOf(ast.Term, ast.Binding)),
	ast.Binding: wf.Seq(wf.K(ast.Var), wf.K(ast.Term)),
})
