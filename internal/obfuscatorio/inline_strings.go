package obfuscatorio

import (
	"context"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// InlineDecodedStrings replaces every decoder call that has literal arguments
// with the string the sandbox returns for it. Calls that fail to evaluate are
// left untouched. Inlining repeats while it makes progress so nested calls
// (dec(dec(1) ... ) becoming literal) resolve in the same transform.
func InlineDecodedStrings(vm *VMDecoder, debug *slog.Logger) *transformer.Transform {
	return &transformer.Transform{
		Name: "inlineDecodedStrings",
		Tags: []transformer.Tag{transformer.TagUnsafe},
		RunAsync: func(ctx context.Context, tree *ast.Program, st *transformer.State) error {
			failed := map[*ast.Expression]bool{}
			for round := 0; round < 10; round++ {
				var cells []*ast.Expression
				jsast.Walk(tree, &jsast.Visitor{
					Enter: map[jsast.Kind]jsast.Handler{
						jsast.KindCallExpression: func(c *jsast.Cursor) {
							if failed[c.ExprCell()] {
								return
							}
							if vm.IsDecoderCall(c.Expr()) {
								cells = append(cells, c.ExprCell())
							}
						},
					},
				})
				if len(cells) == 0 {
					return nil
				}
				progress := 0
				for _, cell := range cells {
					call, ok := cell.Expr.(*ast.CallExpression)
					if !ok {
						continue
					}
					value, err := vm.Decode(ctx, call)
					if err != nil {
						debug.Debug("decoder call left in place",
							slog.String("call", jsast.GenerateExpr(call)),
							slog.String("error", err.Error()))
						failed[cell] = true
						continue
					}
					cell.Expr = jsast.String(value)
					st.Changes++
					progress++
				}
				if progress == 0 {
					return nil
				}
			}
			return nil
		},
	}
}
