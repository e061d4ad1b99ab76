package obfuscatorio

import (
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
)

// Rotator is the IIFE that permutes the string array at load time. The
// detected count is informational; the sandbox replays the rotation for real
// when decoder calls are evaluated.
type Rotator struct {
	Cell  *ast.Statement
	Count int
}

// FindArrayRotator locates the rotator for a string array: an IIFE taking
// the array (or its accessor) and a numeric target, whose body shuffles with
// push/shift. Absence is non-fatal; not every sample rotates.
func FindArrayRotator(tree *ast.Program, arr *StringArray) *Rotator {
	var found *Rotator
	jsast.Walk(tree, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindExpressionStatement: func(c *jsast.Cursor) {
				if found != nil {
					return
				}
				stmt := c.Stmt().(*ast.ExpressionStatement)
				call, ok := jsast.UnwrapSequenceTail(stmt.Expression.Expr).(*ast.CallExpression)
				if !ok {
					return
				}
				fn, args, ok := jsast.AsIIFE(call)
				if !ok || len(jsast.ParamNames(fn)) != 2 || len(args) != 2 {
					return
				}
				if !mentionsName(args, arr.Name) {
					return
				}
				count, ok := jsast.NumericValue(args[1].Expr)
				if !ok {
					return
				}
				body := jsast.GenerateExpr(fn)
				if !strings.Contains(body, "push") || !strings.Contains(body, "shift") {
					return
				}
				found = &Rotator{Cell: c.StmtCell(), Count: int(count)}
			},
		},
	})
	return found
}

func mentionsName(args []ast.Expression, name string) bool {
	for i := range args {
		if id, ok := jsast.IdentName(args[i].Expr); ok && id == name {
			return true
		}
	}
	return false
}
