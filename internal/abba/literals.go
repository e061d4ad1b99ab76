package abba

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// NormalizeLiterals rewrites literal spellings into their cleanest form:
// signed numeric literals fold into the number, substitution-free template
// literals become plain strings, and all-literal String.fromCharCode calls
// collapse to the string they build. Parsed values regenerate without the
// original formatting, so hex escapes and 0x numerals disappear with them.
func NormalizeLiterals() *transformer.Transform {
	return &transformer.Transform{
		Name: "literals",
		Tags: []transformer.Tag{transformer.TagSafe},
		Visitor: func(st *transformer.State) *jsast.Visitor {
			return &jsast.Visitor{
				Exit: map[jsast.Kind]jsast.Handler{
					jsast.KindUnaryExpression: func(c *jsast.Cursor) {
						un := c.Expr().(*ast.UnaryExpression)
						op := un.Operator.String()
						if op != "-" && op != "+" || un.Operand == nil {
							return
						}
						num, ok := un.Operand.Expr.(*ast.NumberLiteral)
						if !ok {
							return
						}
						value := num.Value
						if op == "-" {
							value = -value
						}
						c.ReplaceExpr(jsast.Number(value))
						st.Changes++
					},
					jsast.KindTemplateLiteral: func(c *jsast.Cursor) {
						tmpl := c.Expr().(*ast.TemplateLiteral)
						if tmpl.Tag != nil || len(tmpl.Expressions) != 0 {
							return
						}
						text := ""
						if len(tmpl.Elements) == 1 {
							text = tmpl.Elements[0].Parsed
						} else if len(tmpl.Elements) != 0 {
							return
						}
						c.ReplaceExpr(jsast.String(text))
						st.Changes++
					},
					jsast.KindCallExpression: func(c *jsast.Cursor) {
						call := c.Expr().(*ast.CallExpression)
						text, ok := fromCharCodeValue(call)
						if !ok {
							return
						}
						c.ReplaceExpr(jsast.String(text))
						st.Changes++
					},
				},
			}
		},
	}
}

func fromCharCodeValue(call *ast.CallExpression) (string, bool) {
	mem, ok := call.Callee.Expr.(*ast.MemberExpression)
	if !ok {
		return "", false
	}
	obj, ok := jsast.IdentName(mem.Object.Expr)
	if !ok || obj != "String" {
		return "", false
	}
	prop, ok := jsast.MemberPropName(mem.Property)
	if !ok || prop != "fromCharCode" {
		return "", false
	}
	if len(call.ArgumentList) == 0 {
		return "", false
	}
	runes := make([]rune, 0, len(call.ArgumentList))
	for i := range call.ArgumentList {
		num, ok := jsast.NumericValue(call.ArgumentList[i].Expr)
		if !ok || num < 0 || num > 0x10FFFF {
			return "", false
		}
		runes = append(runes, rune(int64(num)))
	}
	return string(runes), true
}
