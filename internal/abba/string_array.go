// Package abba undoes the "Abba" obfuscation family as a sequence of
// independent transforms: string-array extraction, rotation replay, proxy
// inlining, literal normalization, member simplification, module-loader
// resolution and dead-code removal.
package abba

import (
	"context"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/deob"
	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/sandbox"
	"github.com/tcortega/webcrack/internal/transformer"
)

// ExtractStringArrays evaluates string-table IIFEs and freezes their result
// into plain array literals:
//
//	var _0x1 = (function (a, b) { return ["alpha", "beta"]; }(this, 0x42));
//
// becomes var _0x1 = ["alpha", "beta"]. The fragment runs in a fresh sandbox
// with the declared name bound to undefined, because these IIFEs sometimes
// reference their own binding. Non-array results and evaluation failures
// leave the declarator unchanged.
func ExtractStringArrays(newEval func() (sandbox.Evaluator, error), debug *slog.Logger) *transformer.Transform {
	return &transformer.Transform{
		Name: "stringArray",
		Tags: []transformer.Tag{transformer.TagUnsafe},
		RunAsync: func(ctx context.Context, tree *ast.Program, st *transformer.State) error {
			type candidate struct {
				name string
				init *ast.Expression
			}
			var candidates []candidate

			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
						decl := c.Stmt().(*ast.VariableDeclaration)
						for i := range decl.List {
							name, ok := jsast.DeclaratorName(&decl.List[i])
							if !ok || decl.List[i].Initializer == nil {
								continue
							}
							if isExtractableIIFE(decl.List[i].Initializer.Expr) {
								candidates = append(candidates, candidate{name: name, init: decl.List[i].Initializer})
							}
						}
					},
				},
			})

			for _, cand := range candidates {
				eval, err := newEval()
				if err != nil {
					return err
				}
				// The IIFE is evaluated through an assignment so the function
				// keyword never starts a statement, and the declared name is
				// bound to undefined first for self-referencing tables.
				wrapped := jsast.Assign(jsast.Ident("__result"), cand.init.Clone().Expr)
				source := "var " + cand.name + " = undefined;\n" + jsast.GenerateExpr(wrapped)
				value, err := eval.Eval(ctx, source)
				if err != nil {
					debug.Debug("string array IIFE left in place",
						slog.String("name", cand.name), slog.String("error", err.Error()))
					continue
				}
				values, ok := stringSlice(value)
				if !ok {
					debug.Debug("string array IIFE skipped",
						slog.String("name", cand.name),
						slog.String("error", deob.ErrPatternMismatch.Error()+": result is not a string array"))
					continue
				}
				cand.init.Expr = jsast.StringArrayLiteral(values)
				st.Changes++
			}
			return nil
		},
	}
}

// isExtractableIIFE keeps evaluation away from anything effectful: the IIFE's
// arguments must be literals, identifiers or this.
func isExtractableIIFE(e ast.Expr) bool {
	fn, args, ok := jsast.AsIIFE(e)
	if !ok || fn.Body == nil {
		return false
	}
	for i := range args {
		if !simpleArg(args[i].Expr) {
			return false
		}
	}
	return true
}

// simpleArg rejects argument shapes that could carry side effects into the
// sandbox; literals, identifiers and this all pass.
func simpleArg(e ast.Expr) bool {
	switch e.(type) {
	case *ast.CallExpression, *ast.AssignExpression, *ast.UpdateExpression,
		*ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		return false
	}
	return true
}

// stringSlice converts an evaluator result into a string slice when it is an
// array of strings.
func stringSlice(value any) ([]string, bool) {
	switch arr := value.(type) {
	case []string:
		return arr, true
	case []any:
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
