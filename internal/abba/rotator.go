package abba

import (
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// RotateStringArrays replays the load-time rotation and removes the rotator:
//
//	(function (e, f) { var g = function (h) { while (--h) { e["push"](e["shift"]()); } }; g(++f); }(a, 2));
//
// The callee must take exactly two parameters, be invoked as (identifier,
// number), and mention push and shift. A prefix ++ on an inner call argument
// bumps the detected rotation by one. The named array's elements are shifted
// in place rotation mod length times, then the IIFE is dropped.
func RotateStringArrays() *transformer.Transform {
	return &transformer.Transform{
		Name: "rotator",
		Tags: []transformer.Tag{transformer.TagUnsafe},
		Run: func(tree *ast.Program, st *transformer.State) error {
			info := jsast.Crawl(tree)
			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindExpressionStatement: func(c *jsast.Cursor) {
						stmt := c.Stmt().(*ast.ExpressionStatement)
						call, ok := jsast.UnwrapSequenceTail(stmt.Expression.Expr).(*ast.CallExpression)
						if !ok {
							return
						}
						fn, args, ok := jsast.AsIIFE(call)
						if !ok || len(jsast.ParamNames(fn)) != 2 || len(args) != 2 {
							return
						}
						arrName, ok := jsast.IdentName(args[0].Expr)
						if !ok {
							return
						}
						count, ok := jsast.NumericValue(args[1].Expr)
						if !ok {
							return
						}
						src := jsast.GenerateExpr(fn)
						if !strings.Contains(src, "push") || !strings.Contains(src, "shift") {
							return
						}
						arr := resolveArrayLiteral(info, arrName)
						if arr == nil {
							return
						}
						rotation := int(count)
						if hasPrefixIncrementArg(fn.Body) {
							rotation++
						}
						rotate(arr, rotation)
						c.Remove()
						st.Changes++
					},
				},
			})
			return nil
		},
	}
}

// resolveArrayLiteral finds the declared array the rotator names. The binding
// is looked up through the crawled scopes; rotators sit next to their array,
// so any scope holding a matching array-literal declarator qualifies.
func resolveArrayLiteral(info *jsast.ScopeInfo, name string) *ast.ArrayLiteral {
	for _, scope := range info.AllScopes() {
		b, ok := scope.Bindings[name]
		if !ok || b.Declarator == nil || b.Declarator.Initializer == nil {
			continue
		}
		if arr, ok := b.Declarator.Initializer.Expr.(*ast.ArrayLiteral); ok {
			return arr
		}
	}
	return nil
}

// hasPrefixIncrementArg reports whether any call inside the body passes a
// prefix ++ expression as its first argument.
func hasPrefixIncrementArg(body *ast.BlockStatement) bool {
	if body == nil {
		return false
	}
	found := false
	p := &ast.Program{Body: []ast.Statement{{Stmt: body}}}
	jsast.Walk(p, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindCallExpression: func(c *jsast.Cursor) {
				call := c.Expr().(*ast.CallExpression)
				if len(call.ArgumentList) == 0 {
					return
				}
				upd, ok := call.ArgumentList[0].Expr.(*ast.UpdateExpression)
				if ok && !upd.Postfix && upd.Operator.String() == "++" {
					found = true
					c.Stop()
				}
			},
		},
	})
	return found
}

// rotate shifts the head to the tail count mod length times, mutating the
// element list in place.
func rotate(arr *ast.ArrayLiteral, count int) {
	n := len(arr.Value)
	if n == 0 {
		return
	}
	count %= n
	if count < 0 {
		count += n
	}
	for i := 0; i < count; i++ {
		head := arr.Value[0]
		arr.Value = append(arr.Value[1:], head)
	}
}
