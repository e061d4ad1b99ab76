// Package transforms holds the generic cleanup transforms shared by the
// family pipelines: string merging, dead-code removal, and the two
// control-flow unflatteners.
package transforms

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// MergeStrings folds string concatenations whose operands are both literals.
// Exit-order visiting folds left-associative chains bottom-up, so
// "a" + "b" + "c" collapses in one pass.
func MergeStrings() *transformer.Transform {
	return &transformer.Transform{
		Name: "mergeStrings",
		Tags: []transformer.Tag{transformer.TagSafe},
		Visitor: func(st *transformer.State) *jsast.Visitor {
			return &jsast.Visitor{
				Exit: map[jsast.Kind]jsast.Handler{
					jsast.KindBinaryExpression: func(c *jsast.Cursor) {
						bin := c.Expr().(*ast.BinaryExpression)
						if bin.Operator.String() != "+" || bin.Left == nil || bin.Right == nil {
							return
						}
						left, ok := bin.Left.Expr.(*ast.StringLiteral)
						if !ok {
							return
						}
						right, ok := bin.Right.Expr.(*ast.StringLiteral)
						if !ok {
							return
						}
						c.ReplaceExpr(jsast.String(left.Value + right.Value))
						st.Changes++
					},
				},
			}
		},
	}
}
