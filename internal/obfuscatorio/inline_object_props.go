package obfuscatorio

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// InlineObjectProps collapses the constant-object proxies the decoder
// preamble reads through: declarations (or assignments) of object literals
// whose values are all literals, with every obj.key / obj["key"] read
// replaced by the stored value. Two walks: collect, then inline.
func InlineObjectProps() *transformer.Transform {
	return &transformer.Transform{
		Name: "inlineObjectProps",
		Tags: []transformer.Tag{transformer.TagUnsafe},
		Run: func(tree *ast.Program, st *transformer.State) error {
			objects := map[string]map[string]*ast.Expression{}

			capture := func(name string, obj *ast.ObjectLiteral) {
				props := map[string]*ast.Expression{}
				for i := range obj.Value {
					keyed, ok := obj.Value[i].Prop.(*ast.PropertyKeyed)
					if !ok || keyed.Key == nil || keyed.Value == nil {
						return
					}
					key, ok := constKeyName(keyed.Key)
					if !ok || !isConstValue(keyed.Value.Expr) {
						return
					}
					props[key] = keyed.Value
				}
				if len(props) < 2 {
					return
				}
				objects[name] = props
			}

			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
						decl := c.Stmt().(*ast.VariableDeclaration)
						for i := range decl.List {
							name, ok := jsast.DeclaratorName(&decl.List[i])
							if !ok || decl.List[i].Initializer == nil {
								continue
							}
							if obj, ok := decl.List[i].Initializer.Expr.(*ast.ObjectLiteral); ok {
								capture(name, obj)
							}
						}
					},
					jsast.KindAssignExpression: func(c *jsast.Cursor) {
						assign := c.Expr().(*ast.AssignExpression)
						if assign.Operator.String() != "=" || assign.Left == nil || assign.Right == nil {
							return
						}
						name, ok := jsast.IdentName(assign.Left.Expr)
						if !ok {
							return
						}
						if obj, ok := assign.Right.Expr.(*ast.ObjectLiteral); ok {
							capture(name, obj)
						}
					},
				},
			})

			if len(objects) == 0 {
				return nil
			}

			// Assignment targets and call callees must keep their member
			// form; only plain reads are inlined.
			skipCells := map[*ast.Expression]bool{}

			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindAssignExpression: func(c *jsast.Cursor) {
						assign := c.Expr().(*ast.AssignExpression)
						if assign.Left != nil {
							skipCells[assign.Left] = true
						}
					},
					jsast.KindCallExpression: func(c *jsast.Cursor) {
						call := c.Expr().(*ast.CallExpression)
						if call.Callee != nil {
							skipCells[call.Callee] = true
						}
					},
					jsast.KindMemberExpression: func(c *jsast.Cursor) {
						if skipCells[c.ExprCell()] {
							return
						}
						mem := c.Expr().(*ast.MemberExpression)
						objName, ok := jsast.IdentName(mem.Object.Expr)
						if !ok {
							return
						}
						props, ok := objects[objName]
						if !ok {
							return
						}
						key, ok := jsast.MemberPropName(mem.Property)
						if !ok {
							return
						}
						value, ok := props[key]
						if !ok {
							return
						}
						c.ReplaceExpr(value.Clone().Expr)
						st.Changes++
					},
				},
			})
			return nil
		},
	}
}

func constKeyName(key *ast.Expression) (string, bool) {
	switch k := key.Expr.(type) {
	case *ast.Identifier:
		return k.Name, true
	case *ast.StringLiteral:
		return k.Value, true
	}
	return "", false
}

func isConstValue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.StringLiteral, *ast.NumberLiteral, *ast.BooleanLiteral:
		return true
	}
	_, ok := jsast.NumericValue(e)
	return ok
}
