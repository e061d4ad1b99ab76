package transforms

import (
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// ControlFlowSwitch unwinds the switch-based flattener: an endless loop
// dispatching over a pre-split order string,
//
//	var order = "2|0|1".split("|"), i = 0;
//	while (true) { switch (order[i++]) { case "0": ...; continue; } break; }
//
// becomes the case bodies spliced in dispatch order. The loop is replaced by
// a block (var scoping is unaffected) and the order declaration is dropped
// when it declares nothing else.
func ControlFlowSwitch() *transformer.Transform {
	return &transformer.Transform{
		Name: "controlFlowSwitch",
		Tags: []transformer.Tag{transformer.TagSafe},
		Visitor: func(st *transformer.State) *jsast.Visitor {
			return &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindWhileStatement: func(c *jsast.Cursor) {
						loop := c.Stmt().(*ast.WhileStatement)
						if truthy, known := literalTruth(loop.Test); !known || !truthy {
							return
						}
						unflattenSwitch(c, loop.Body, st)
					},
					jsast.KindForStatement: func(c *jsast.Cursor) {
						loop := c.Stmt().(*ast.ForStatement)
						if loop.Initializer != nil || loop.Update != nil {
							return
						}
						if loop.Test != nil && loop.Test.Expr != nil {
							if truthy, known := literalTruth(loop.Test); !known || !truthy {
								return
							}
						}
						unflattenSwitch(c, loop.Body, st)
					},
				},
			}
		},
	}
}

func unflattenSwitch(c *jsast.Cursor, body *ast.Statement, st *transformer.State) {
	if body == nil {
		return
	}
	block, ok := body.Stmt.(*ast.BlockStatement)
	if !ok {
		return
	}
	var sw *ast.SwitchStatement
	for i := range block.List {
		switch s := block.List[i].Stmt.(type) {
		case *ast.SwitchStatement:
			if sw != nil {
				return
			}
			sw = s
		case *ast.BreakStatement, *ast.EmptyStatement:
		default:
			return
		}
	}
	if sw == nil {
		return
	}

	orderName, idxName, ok := dispatchNames(sw.Discriminant)
	if !ok {
		return
	}
	order, declCell, ok := findOrderDeclaration(c.Program(), orderName, idxName)
	if !ok {
		return
	}

	// Map case keys to their bodies; duplicate dispatch keys would need
	// cloned statements, which this pass does not attempt.
	cases := map[string][]ast.Statement{}
	for i := range sw.Body {
		if sw.Body[i].Test == nil {
			return
		}
		key, ok := sw.Body[i].Test.Expr.(*ast.StringLiteral)
		if !ok {
			return
		}
		cases[key.Value] = stripTrailingJump(sw.Body[i].Consequent)
	}
	seen := map[string]bool{}
	var unrolled []ast.Statement
	for _, key := range order {
		body, ok := cases[key]
		if !ok || seen[key] {
			return
		}
		seen[key] = true
		unrolled = append(unrolled, body...)
	}

	c.ReplaceStmt(&ast.BlockStatement{List: unrolled})
	st.Changes++

	if removeOrderDeclaration(declCell, orderName, idxName) {
		st.Changes++
	}
}

// dispatchNames matches the order[i++] discriminant.
func dispatchNames(disc *ast.Expression) (orderName, idxName string, ok bool) {
	if disc == nil {
		return "", "", false
	}
	mem, isMem := disc.Expr.(*ast.MemberExpression)
	if !isMem || !jsast.IsComputedMember(mem) {
		return "", "", false
	}
	obj, isID := mem.Object.Expr.(*ast.Identifier)
	if !isID {
		return "", "", false
	}
	cp := mem.Property.Prop.(*ast.ComputedProperty)
	upd, isUpd := cp.Expr.Expr.(*ast.UpdateExpression)
	if !isUpd || !upd.Postfix || upd.Operator.String() != "++" || upd.Operand == nil {
		return "", "", false
	}
	idx, isID := upd.Operand.Expr.(*ast.Identifier)
	if !isID {
		return "", "", false
	}
	return obj.Name, idx.Name, true
}

// findOrderDeclaration locates var order = "...".split("..."), i = 0 and
// returns the dispatch order. The index must start at zero.
func findOrderDeclaration(p *ast.Program, orderName, idxName string) ([]string, *ast.Statement, bool) {
	var order []string
	var cell *ast.Statement
	idxZero := false

	jsast.Walk(p, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
				decl := c.Stmt().(*ast.VariableDeclaration)
				for i := range decl.List {
					name, ok := jsast.DeclaratorName(&decl.List[i])
					if !ok || decl.List[i].Initializer == nil {
						continue
					}
					switch name {
					case orderName:
						if parts, ok := splitCallParts(decl.List[i].Initializer.Expr); ok {
							order = parts
							cell = c.StmtCell()
						}
					case idxName:
						if num, ok := decl.List[i].Initializer.Expr.(*ast.NumberLiteral); ok && num.Value == 0 {
							idxZero = true
						}
					}
				}
			},
		},
	})
	if order == nil || !idxZero {
		return nil, nil, false
	}
	return order, cell, true
}

// splitCallParts matches "a|b|c".split("|") for any delimiter.
func splitCallParts(e ast.Expr) ([]string, bool) {
	call, ok := e.(*ast.CallExpression)
	if !ok || len(call.ArgumentList) != 1 {
		return nil, false
	}
	mem, ok := call.Callee.Expr.(*ast.MemberExpression)
	if !ok || mem.Object == nil {
		return nil, false
	}
	subject, ok := mem.Object.Expr.(*ast.StringLiteral)
	if !ok {
		return nil, false
	}
	prop, ok := jsast.MemberPropName(mem.Property)
	if !ok || prop != "split" {
		return nil, false
	}
	sep, ok := call.ArgumentList[0].Expr.(*ast.StringLiteral)
	if !ok {
		return nil, false
	}
	return strings.Split(subject.Value, sep.Value), true
}

func stripTrailingJump(list []ast.Statement) []ast.Statement {
	if len(list) == 0 {
		return list
	}
	switch list[len(list)-1].Stmt.(type) {
	case *ast.ContinueStatement, *ast.BreakStatement:
		return list[:len(list)-1]
	}
	return list
}

// removeOrderDeclaration drops the dispatcher's bookkeeping declaration, but
// only when it declares nothing beyond the order string and the index.
func removeOrderDeclaration(cell *ast.Statement, orderName, idxName string) bool {
	if cell == nil {
		return false
	}
	decl, ok := cell.Stmt.(*ast.VariableDeclaration)
	if !ok {
		return false
	}
	for i := range decl.List {
		name, ok := jsast.DeclaratorName(&decl.List[i])
		if !ok || (name != orderName && name != idxName) {
			return false
		}
	}
	jsast.RemoveStmtCell(cell)
	return true
}
