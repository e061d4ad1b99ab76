package obfuscatorio

import (
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
)

// Variant discriminates the decoder codecs the obfuscator emits. The sandbox
// executes whichever codec the sample carries, so the tag is used for
// reporting and for future per-variant handling, not for reimplementation.
type Variant string

const (
	VariantPlain       Variant = "plain"
	VariantKeyed       Variant = "keyed"
	VariantBase64Keyed Variant = "base64-keyed"
)

// Decoder is one function that maps an index (and optional key) into the
// string array.
type Decoder struct {
	Name    string
	Cell    *ast.Statement
	Variant Variant
}

// FindDecoders returns every decoder associated with the array, in source
// order. Three declaration shapes are recognized:
//
//	function dec(i, k) { ... arr[...] ... }
//	var dec = function (i, k) { ... arr[...] ... };
//	var dec = (function () { ... return function (i) { return arr[i]; }; })();
//
// The last form also covers assignments (dec = (...)()). A function qualifies
// when its body reads the array through a computed member or calls the
// array's accessor function.
func FindDecoders(tree *ast.Program, arr *StringArray) []*Decoder {
	var decoders []*Decoder
	seen := map[string]bool{}

	add := func(name string, cell *ast.Statement, fn *ast.FunctionLiteral) {
		if name == "" || name == arr.Name || seen[name] {
			return
		}
		seen[name] = true
		decoders = append(decoders, &Decoder{
			Name:    name,
			Cell:    cell,
			Variant: classify(fn),
		})
	}

	jsast.Walk(tree, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindFunctionDeclaration: func(c *jsast.Cursor) {
				fd := c.Stmt().(*ast.FunctionDeclaration)
				name, ok := jsast.FunctionName(fd)
				if !ok || fd.Function == nil {
					return
				}
				params := len(jsast.ParamNames(fd.Function))
				if params < 1 || params > 2 {
					return
				}
				if !readsArray(fd.Function.Body, arr.Name) {
					return
				}
				add(name, c.StmtCell(), fd.Function)
			},
			jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
				decl := c.Stmt().(*ast.VariableDeclaration)
				for i := range decl.List {
					d := &decl.List[i]
					name, ok := jsast.DeclaratorName(d)
					if !ok || d.Initializer == nil {
						continue
					}
					if fn := decoderFunction(d.Initializer.Expr, arr.Name); fn != nil {
						add(name, c.StmtCell(), fn)
					}
				}
			},
			jsast.KindExpressionStatement: func(c *jsast.Cursor) {
				stmt := c.Stmt().(*ast.ExpressionStatement)
				assign, ok := jsast.UnwrapSequenceTail(stmt.Expression.Expr).(*ast.AssignExpression)
				if !ok || assign.Left == nil || assign.Right == nil {
					return
				}
				name, ok := jsast.IdentName(assign.Left.Expr)
				if !ok {
					return
				}
				if fn := decoderFunction(assign.Right.Expr, arr.Name); fn != nil {
					add(name, c.StmtCell(), fn)
				}
			},
		},
	})
	return decoders
}

// decoderFunction unwraps the initializer shapes that yield a decoder: a
// function literal indexing the array, or an IIFE whose body closes over it.
func decoderFunction(e ast.Expr, arrName string) *ast.FunctionLiteral {
	switch {
	case isDecoderLiteral(e, arrName):
		return e.(*ast.FunctionLiteral)
	default:
		fn, _, ok := jsast.AsIIFE(e)
		if !ok || fn.Body == nil {
			return nil
		}
		if !readsArray(fn.Body, arrName) {
			return nil
		}
		return fn
	}
}

func isDecoderLiteral(e ast.Expr, arrName string) bool {
	fn, ok := e.(*ast.FunctionLiteral)
	if !ok {
		return false
	}
	params := len(jsast.ParamNames(fn))
	return params >= 1 && params <= 2 && readsArray(fn.Body, arrName)
}

// readsArray reports whether the body reaches the string array: a computed
// member read arr[...] or a call arr() when the array hides behind the
// memoizing accessor.
func readsArray(body *ast.BlockStatement, arrName string) bool {
	if body == nil {
		return false
	}
	found := false
	p := &ast.Program{Body: []ast.Statement{{Stmt: body}}}
	jsast.Walk(p, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindMemberExpression: func(c *jsast.Cursor) {
				mem := c.Expr().(*ast.MemberExpression)
				if !jsast.IsComputedMember(mem) {
					return
				}
				if name, ok := jsast.IdentName(mem.Object.Expr); ok && name == arrName {
					found = true
					c.Stop()
				}
			},
			jsast.KindCallExpression: func(c *jsast.Cursor) {
				call := c.Expr().(*ast.CallExpression)
				if name, ok := jsast.IdentName(call.Callee.Expr); ok && name == arrName {
					found = true
					c.Stop()
				}
			},
		},
	})
	return found
}

// classify tags the decoder codec by its body: a base64 alphabet or atob use
// marks the base64 family, a second parameter marks the keyed variant.
func classify(fn *ast.FunctionLiteral) Variant {
	src := jsast.GenerateExpr(fn)
	if strings.Contains(src, "atob") ||
		strings.Contains(src, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+/=") {
		return VariantBase64Keyed
	}
	if len(jsast.ParamNames(fn)) == 2 {
		return VariantKeyed
	}
	return VariantPlain
}
