package abba

import (
	"regexp"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// reservedWords are names that cannot follow a dot in every consumer this
// output targets, so obj["class"] stays bracketed.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"implements": true, "import": true, "in": true, "instanceof": true,
	"interface": true, "let": true, "new": true, "null": true, "package": true,
	"private": true, "protected": true, "public": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true,
}

// SimplifyMembers converts obj["name"] to obj.name whenever name is a valid,
// non-reserved identifier. Hyphenated keys, leading digits and reserved words
// stay bracketed.
func SimplifyMembers() *transformer.Transform {
	return &transformer.Transform{
		Name: "members",
		Tags: []transformer.Tag{transformer.TagSafe},
		Visitor: func(st *transformer.State) *jsast.Visitor {
			return &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindMemberExpression: func(c *jsast.Cursor) {
						mem := c.Expr().(*ast.MemberExpression)
						if mem.Property == nil {
							return
						}
						cp, ok := mem.Property.Prop.(*ast.ComputedProperty)
						if !ok || cp.Expr == nil {
							return
						}
						key, ok := cp.Expr.Expr.(*ast.StringLiteral)
						if !ok {
							return
						}
						if !identPattern.MatchString(key.Value) || reservedWords[key.Value] {
							return
						}
						mem.Property.Prop = jsast.Ident(key.Value)
						st.Changes++
					},
				},
			}
		},
	}
}
