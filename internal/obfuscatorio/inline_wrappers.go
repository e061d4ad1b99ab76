package obfuscatorio

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// InlineDecoderWrappers rewrites call sites of decoder wrappers so that every
// call reaches the canonical decoder. Two wrapper shapes occur in the wild:
//
//	var alias = dec;                      // plain alias
//	function fwd(a, b) { return dec(a - 5, b); }  // forwarding shim
//
// Aliases chain (an alias of an alias still resolves) and forwarders have
// their argument expressions substituted, so fwd(10) becomes dec(10 - 5).
// The emptied wrapper declarations are left for the dead-code pass.
func InlineDecoderWrappers(dec *Decoder) *transformer.Transform {
	return &transformer.Transform{
		Name: "inlineDecoderWrappers",
		Tags: []transformer.Tag{transformer.TagUnsafe},
		Run: func(tree *ast.Program, st *transformer.State) error {
			aliases := map[string]bool{}
			forwarders := map[string]*ast.FunctionLiteral{}

			// Alias chains settle in a few rounds; obfuscators rarely nest
			// deeper than two.
			for round := 0; round < 4; round++ {
				grew := false
				jsast.Walk(tree, &jsast.Visitor{
					Enter: map[jsast.Kind]jsast.Handler{
						jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
							decl := c.Stmt().(*ast.VariableDeclaration)
							for i := range decl.List {
								name, ok := jsast.DeclaratorName(&decl.List[i])
								if !ok || decl.List[i].Initializer == nil || aliases[name] {
									continue
								}
								ref, ok := jsast.IdentName(jsast.UnwrapSequenceTail(decl.List[i].Initializer.Expr))
								if ok && (ref == dec.Name || aliases[ref]) {
									aliases[name] = true
									grew = true
								}
							}
						},
						jsast.KindAssignExpression: func(c *jsast.Cursor) {
							assign := c.Expr().(*ast.AssignExpression)
							if assign.Operator.String() != "=" || assign.Left == nil || assign.Right == nil {
								return
							}
							name, ok := jsast.IdentName(assign.Left.Expr)
							if !ok || aliases[name] {
								return
							}
							ref, ok := jsast.IdentName(jsast.UnwrapSequenceTail(assign.Right.Expr))
							if ok && (ref == dec.Name || aliases[ref]) {
								aliases[name] = true
								grew = true
							}
						},
						jsast.KindFunctionDeclaration: func(c *jsast.Cursor) {
							fd := c.Stmt().(*ast.FunctionDeclaration)
							name, ok := jsast.FunctionName(fd)
							if !ok || forwarders[name] != nil || fd.Function == nil {
								return
							}
							if forwardsTo(fd.Function, dec.Name, aliases) {
								forwarders[name] = fd.Function
								grew = true
							}
						},
					},
				})
				if !grew {
					break
				}
			}

			if len(aliases) == 0 && len(forwarders) == 0 {
				return nil
			}

			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindCallExpression: func(c *jsast.Cursor) {
						call := c.Expr().(*ast.CallExpression)
						name, ok := jsast.IdentName(call.Callee.Expr)
						if !ok {
							return
						}
						if aliases[name] {
							call.Callee.Expr = jsast.Ident(dec.Name)
							st.Changes++
							return
						}
						fn, ok := forwarders[name]
						if !ok {
							return
						}
						inner := forwardedCall(fn)
						rewritten := rewriteForward(inner, fn, call.ArgumentList)
						if rewritten == nil {
							return
						}
						rewritten.Callee = jsast.Expr(jsast.Ident(dec.Name))
						c.ReplaceExpr(rewritten)
						st.Changes++
					},
				},
			})
			return nil
		},
	}
}

// forwardsTo recognizes { return dec(...); } bodies.
func forwardsTo(fn *ast.FunctionLiteral, decName string, aliases map[string]bool) bool {
	call := forwardedCall(fn)
	if call == nil {
		return false
	}
	name, ok := jsast.IdentName(call.Callee.Expr)
	return ok && (name == decName || aliases[name])
}

func forwardedCall(fn *ast.FunctionLiteral) *ast.CallExpression {
	if fn.Body == nil || len(fn.Body.List) != 1 {
		return nil
	}
	ret, ok := fn.Body.List[0].Stmt.(*ast.ReturnStatement)
	if !ok || ret.Argument == nil {
		return nil
	}
	call, ok := jsast.UnwrapSequenceTail(ret.Argument.Expr).(*ast.CallExpression)
	if !ok {
		return nil
	}
	return call
}

// rewriteForward clones the forwarder's inner call and substitutes the actual
// arguments for the wrapper's parameters.
func rewriteForward(inner *ast.CallExpression, fn *ast.FunctionLiteral, args []ast.Expression) *ast.CallExpression {
	if inner == nil {
		return nil
	}
	params := jsast.ParamNames(fn)
	if len(args) < len(params) {
		return nil
	}
	byName := map[string]*ast.Expression{}
	for i, p := range params {
		byName[p] = &args[i]
	}
	out := &ast.CallExpression{ArgumentList: make([]ast.Expression, len(inner.ArgumentList))}
	for i := range inner.ArgumentList {
		cloned := inner.ArgumentList[i].Clone()
		substituteIdents(cloned, byName)
		out.ArgumentList[i] = *cloned
	}
	return out
}

func substituteIdents(cell *ast.Expression, byName map[string]*ast.Expression) {
	if cell == nil || cell.Expr == nil {
		return
	}
	if id, ok := cell.Expr.(*ast.Identifier); ok {
		if arg, ok := byName[id.Name]; ok && arg.Expr != nil {
			cell.Expr = arg.Clone().Expr
		}
		return
	}
	switch n := cell.Expr.(type) {
	case *ast.BinaryExpression:
		substituteIdents(n.Left, byName)
		substituteIdents(n.Right, byName)
	case *ast.UnaryExpression:
		substituteIdents(n.Operand, byName)
	case *ast.CallExpression:
		substituteIdents(n.Callee, byName)
		for i := range n.ArgumentList {
			substituteIdents(&n.ArgumentList[i], byName)
		}
	case *ast.ConditionalExpression:
		substituteIdents(n.Test, byName)
		substituteIdents(n.Consequent, byName)
		substituteIdents(n.Alternate, byName)
	}
}
