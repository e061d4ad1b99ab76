// Package obfuscatorio undoes the obfuscator.io / javascript-obfuscator
// family: it locates the string array, its rotator and its decoders,
// evaluates decoder calls in the sandbox to restore literal strings, removes
// the emptied infrastructure and runs the generic cleanups.
package obfuscatorio

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
)

// StringArray describes the canonical array all string constants are read
// through. It holds borrowed cells only; lifetime is the deobfuscation run.
type StringArray struct {
	Name       string
	Cell       *ast.Statement
	Declarator *ast.VariableDeclarator
	Array      *ast.ArrayLiteral
	Strings    []string
	Length     int
}

// FindStringArray probes for the string array. Two layouts are recognized:
// the plain declaration
//
//	var _0x1a = ["...", "..."];
//
// and the self-memoizing function wrapper newer obfuscator versions emit,
// where the array lives in a function that rewrites itself on first call.
// When several arrays qualify the longest wins; obfuscator arrays dwarf
// ordinary literals.
func FindStringArray(tree *ast.Program) *StringArray {
	var best *StringArray

	consider := func(cand *StringArray) {
		if cand.Length < 2 {
			return
		}
		if best == nil || cand.Length > best.Length {
			best = cand
		}
	}

	jsast.Walk(tree, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
				decl := c.Stmt().(*ast.VariableDeclaration)
				for i := range decl.List {
					d := &decl.List[i]
					name, ok := jsast.DeclaratorName(d)
					if !ok || d.Initializer == nil {
						continue
					}
					arr, ok := d.Initializer.Expr.(*ast.ArrayLiteral)
					if !ok {
						continue
					}
					values, ok := jsast.StringElements(arr)
					if !ok {
						continue
					}
					consider(&StringArray{
						Name:       name,
						Cell:       c.StmtCell(),
						Declarator: d,
						Array:      arr,
						Strings:    values,
						Length:     len(values),
					})
				}
			},
			jsast.KindFunctionDeclaration: func(c *jsast.Cursor) {
				fd := c.Stmt().(*ast.FunctionDeclaration)
				name, ok := jsast.FunctionName(fd)
				if !ok || fd.Function == nil {
					return
				}
				arr := wrappedArray(fd.Function, name)
				if arr == nil {
					return
				}
				values, ok := jsast.StringElements(arr)
				if !ok {
					return
				}
				consider(&StringArray{
					Name:    name,
					Cell:    c.StmtCell(),
					Array:   arr,
					Strings: values,
					Length:  len(values),
				})
			},
		},
	})
	return best
}

// wrappedArray matches the memoizing wrapper body: a local array declaration
// plus a self-reassignment of the function's own name.
func wrappedArray(fn *ast.FunctionLiteral, fnName string) *ast.ArrayLiteral {
	if fn.Body == nil {
		return nil
	}
	var arr *ast.ArrayLiteral
	selfReassign := false
	for i := range fn.Body.List {
		switch s := fn.Body.List[i].Stmt.(type) {
		case *ast.VariableDeclaration:
			for j := range s.List {
				if s.List[j].Initializer == nil {
					continue
				}
				if a, ok := s.List[j].Initializer.Expr.(*ast.ArrayLiteral); ok && arr == nil {
					arr = a
				}
			}
		case *ast.ExpressionStatement:
			assign, ok := jsast.UnwrapSequenceTail(s.Expression.Expr).(*ast.AssignExpression)
			if !ok || assign.Left == nil {
				continue
			}
			if name, ok := jsast.IdentName(assign.Left.Expr); ok && name == fnName {
				selfReassign = true
			}
		}
	}
	if arr == nil || !selfReassign {
		return nil
	}
	return arr
}
