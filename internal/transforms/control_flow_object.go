package transforms

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// ControlFlowObject collapses the control-flow-flattening objects the
// obfuscator emits: an object literal whose properties are short literal
// values or single-return functions over their parameters, consumed as
// obj.KEY(...) calls and obj.KEY reads. Call sites are rewritten to the
// function body with arguments substituted for parameters; reads become the
// literal. Once no use of the object remains, its declarator is dropped.
func ControlFlowObject() *transformer.Transform {
	return &transformer.Transform{
		Name: "controlFlowObject",
		Tags: []transformer.Tag{transformer.TagSafe},
		Visitor: func(st *transformer.State) *jsast.Visitor {
			return &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
						decl := c.Stmt().(*ast.VariableDeclaration)
						// Reverse order: a removed declarator only shifts the
						// elements after it.
						for i := len(decl.List) - 1; i >= 0; i-- {
							inlineFlowObject(c, &decl.List[i], st)
						}
					},
				},
			}
		},
	}
}

type flowProp struct {
	value *ast.StringLiteral
	fn    *ast.FunctionLiteral
}

func inlineFlowObject(c *jsast.Cursor, d *ast.VariableDeclarator, st *transformer.State) {
	name, ok := jsast.DeclaratorName(d)
	if !ok || d.Initializer == nil {
		return
	}
	obj, ok := d.Initializer.Expr.(*ast.ObjectLiteral)
	if !ok || len(obj.Value) == 0 {
		return
	}
	props := map[string]flowProp{}
	for i := range obj.Value {
		keyed, ok := obj.Value[i].Prop.(*ast.PropertyKeyed)
		if !ok || keyed.Key == nil || keyed.Value == nil {
			return
		}
		key, ok := literalKeyName(keyed.Key)
		if !ok {
			return
		}
		switch v := keyed.Value.Expr.(type) {
		case *ast.StringLiteral:
			props[key] = flowProp{value: v}
		case *ast.FunctionLiteral:
			if singleReturn(v) == nil {
				return
			}
			props[key] = flowProp{fn: v}
		default:
			return
		}
	}

	inlined := 0
	calleeCells := map[*ast.Expression]bool{}
	jsast.Walk(c.Program(), &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindCallExpression: func(uc *jsast.Cursor) {
				call := uc.Expr().(*ast.CallExpression)
				calleeCells[call.Callee] = true
				prop, ok := lookupFlowProp(call.Callee.Expr, name, props)
				if !ok || prop.fn == nil {
					return
				}
				body := substituteParams(prop.fn, call.ArgumentList)
				if body == nil {
					return
				}
				uc.ReplaceExpr(body)
				inlined++
			},
			jsast.KindMemberExpression: func(uc *jsast.Cursor) {
				// A callee stays a member access; only plain reads inline.
				if calleeCells[uc.ExprCell()] {
					return
				}
				prop, ok := lookupFlowProp(uc.Expr(), name, props)
				if !ok || prop.value == nil {
					return
				}
				uc.ReplaceExpr(jsast.String(prop.value.Value))
				inlined++
			},
		},
	})
	if inlined == 0 {
		return
	}
	st.Changes += inlined

	if countIdentUses(c.Program(), name) == 0 {
		if removeDeclarator(c.StmtCell(), d) {
			st.Changes++
		}
	}
}

func literalKeyName(key *ast.Expression) (string, bool) {
	switch k := key.Expr.(type) {
	case *ast.Identifier:
		return k.Name, true
	case *ast.StringLiteral:
		return k.Value, true
	}
	return "", false
}

func lookupFlowProp(e ast.Expr, objName string, props map[string]flowProp) (flowProp, bool) {
	mem, ok := e.(*ast.MemberExpression)
	if !ok || mem.Object == nil {
		return flowProp{}, false
	}
	obj, ok := mem.Object.Expr.(*ast.Identifier)
	if !ok || obj.Name != objName {
		return flowProp{}, false
	}
	key, ok := jsast.MemberPropName(mem.Property)
	if !ok {
		return flowProp{}, false
	}
	prop, ok := props[key]
	return prop, ok
}

// singleReturn recognizes function bodies of the shape { return <expr>; }.
func singleReturn(fn *ast.FunctionLiteral) *ast.Expression {
	if fn.Body == nil || len(fn.Body.List) != 1 {
		return nil
	}
	ret, ok := fn.Body.List[0].Stmt.(*ast.ReturnStatement)
	if !ok || ret.Argument == nil {
		return nil
	}
	return ret.Argument
}

// substituteParams clones the single-return body and replaces parameter
// identifiers with clones of the call arguments. Calls with fewer arguments
// than parameters are left alone.
func substituteParams(fn *ast.FunctionLiteral, args []ast.Expression) ast.Expr {
	ret := singleReturn(fn)
	if ret == nil {
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
	cloned := ret.Clone()
	replaceIdents(cloned, byName)
	return cloned.Expr
}

func replaceIdents(cell *ast.Expression, byName map[string]*ast.Expression) {
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
		replaceIdents(n.Left, byName)
		replaceIdents(n.Right, byName)
	case *ast.UnaryExpression:
		replaceIdents(n.Operand, byName)
	case *ast.ConditionalExpression:
		replaceIdents(n.Test, byName)
		replaceIdents(n.Consequent, byName)
		replaceIdents(n.Alternate, byName)
	case *ast.CallExpression:
		replaceIdents(n.Callee, byName)
		for i := range n.ArgumentList {
			replaceIdents(&n.ArgumentList[i], byName)
		}
	case *ast.MemberExpression:
		replaceIdents(n.Object, byName)
		if n.Property != nil {
			if cp, ok := n.Property.Prop.(*ast.ComputedProperty); ok {
				replaceIdents(cp.Expr, byName)
			}
		}
	case *ast.SequenceExpression:
		for i := range n.Sequence {
			replaceIdents(&n.Sequence[i], byName)
		}
	}
}

// countIdentUses counts identifier expressions with the given name. Declarator
// targets and dot-property names are not expression positions, so a zero count
// means nothing reads the binding.
func countIdentUses(p *ast.Program, name string) int {
	uses := 0
	jsast.Walk(p, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindIdentifier: func(c *jsast.Cursor) {
				if c.Expr().(*ast.Identifier).Name == name {
					uses++
				}
			},
		},
	})
	return uses
}
