package transforms

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// DefaultDeadCodePasses bounds the fixpoint loop; cascades deeper than this
// indicate a pathological input rather than a real removal chain.
const DefaultDeadCodePasses = 10

// DeadCode removes declarations nothing references. It owns its traversal so
// it can iterate to fixpoint: removing the string array orphans the rotator,
// removing the rotator orphans helpers, and so on. Reference lists come from
// a fresh crawl each pass, with ghost references (paths that no longer root
// at the program) filtered out rather than trusted.
//
// A binding is removable when it has no live reads and no live writes and its
// declaration is a function declaration or a declarator with a pure
// initializer. Each pass also prunes literal-test branches and unreachable
// block tails; a final sweep splices out empty statements and emptied
// variable declarations.
func DeadCode(maxPasses int) *transformer.Transform {
	if maxPasses <= 0 {
		maxPasses = DefaultDeadCodePasses
	}
	return &transformer.Transform{
		Name:  "deadCode",
		Tags:  []transformer.Tag{transformer.TagSafe},
		Scope: true,
		Run: func(tree *ast.Program, st *transformer.State) error {
			for pass := 0; pass < maxPasses; pass++ {
				removed := removeDeadBindings(tree)
				removed += pruneDeadBranches(tree)
				st.Changes += removed
				if removed == 0 {
					break
				}
			}
			spliceEmpties(tree)
			return nil
		},
	}
}

func removeDeadBindings(tree *ast.Program) int {
	removed := 0
	info := jsast.Crawl(tree)
	for _, scope := range info.AllScopes() {
		for _, b := range scope.Bindings {
			if b.Kind == jsast.BindParam {
				continue
			}
			if b.LiveRefs() > 0 || b.LiveViolations() > 0 {
				continue
			}
			switch {
			case b.FuncDecl != nil:
				jsast.RemoveStmtCell(b.DeclCell)
				removed++
			case b.Declarator != nil && b.PureInitializer():
				if removeDeclarator(b.DeclCell, b.Declarator) {
					removed++
				}
			}
		}
	}
	return removed
}

// removeDeclarator drops one declarator from its declaration, erasing the
// whole statement once the list empties. The declarator's initializer cell is
// blanked first so reference paths recorded through it read as ghosts.
func removeDeclarator(cell *ast.Statement, target *ast.VariableDeclarator) bool {
	if cell == nil {
		return false
	}
	decl, ok := cell.Stmt.(*ast.VariableDeclaration)
	if !ok {
		return false
	}
	idx := -1
	for i := range decl.List {
		if &decl.List[i] == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if target.Initializer != nil {
		target.Initializer.Expr = nil
	}
	decl.List = append(decl.List[:idx], decl.List[idx+1:]...)
	if len(decl.List) == 0 {
		jsast.RemoveStmtCell(cell)
	}
	return true
}

// pruneDeadBranches folds branches whose test is a boolean literal (including
// the !![] spelling obfuscators favor) and drops unreachable statements after
// a terminator. Hoisted declarations survive the tail cut.
func pruneDeadBranches(tree *ast.Program) int {
	pruned := 0
	v := &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindIfStatement: func(c *jsast.Cursor) {
				ifStmt := c.Stmt().(*ast.IfStatement)
				truthy, known := literalTruth(ifStmt.Test)
				if !known {
					return
				}
				pruned++
				if truthy {
					c.ReplaceStmt(ifStmt.Consequent.Stmt)
					return
				}
				if ifStmt.Alternate != nil && ifStmt.Alternate.Stmt != nil {
					c.ReplaceStmt(ifStmt.Alternate.Stmt)
					return
				}
				c.Remove()
			},
			jsast.KindWhileStatement: func(c *jsast.Cursor) {
				loop := c.Stmt().(*ast.WhileStatement)
				if truthy, known := literalTruth(loop.Test); known && !truthy {
					c.Remove()
					pruned++
				}
			},
		},
		Exit: map[jsast.Kind]jsast.Handler{
			jsast.KindBlockStatement: func(c *jsast.Cursor) {
				block := c.Stmt().(*ast.BlockStatement)
				pruned += cutUnreachable(block)
			},
		},
	}
	jsast.Walk(tree, v)
	return pruned
}

func literalTruth(test *ast.Expression) (truthy bool, known bool) {
	if test == nil || test.Expr == nil {
		return false, false
	}
	switch e := test.Expr.(type) {
	case *ast.BooleanLiteral:
		return e.Value, true
	case *ast.UnaryExpression:
		// !![] and !!{} are how the obfuscator spells true.
		if e.Operator.String() != "!" || e.Operand == nil {
			return false, false
		}
		inner, ok := e.Operand.Expr.(*ast.UnaryExpression)
		if !ok || inner.Operator.String() != "!" || inner.Operand == nil {
			return false, false
		}
		switch inner.Operand.Expr.(type) {
		case *ast.ArrayLiteral, *ast.ObjectLiteral:
			return true, true
		}
	}
	return false, false
}

func cutUnreachable(block *ast.BlockStatement) int {
	term := -1
	for i := range block.List {
		switch block.List[i].Stmt.(type) {
		case *ast.ReturnStatement, *ast.BreakStatement, *ast.ContinueStatement:
			term = i
		}
		if term >= 0 {
			break
		}
	}
	if term < 0 || term == len(block.List)-1 {
		return 0
	}
	var kept []ast.Statement
	cut := 0
	for i := range block.List {
		if i <= term {
			kept = append(kept, block.List[i])
			continue
		}
		switch block.List[i].Stmt.(type) {
		case *ast.FunctionDeclaration, *ast.VariableDeclaration:
			kept = append(kept, block.List[i])
		default:
			cut++
		}
	}
	if cut == 0 {
		return 0
	}
	block.List = kept
	return cut
}

// spliceEmpties drops empty statements and emptied declarations left behind
// by cell-preserving removals. Runs once, after the fixpoint settles, because
// splicing invalidates recorded paths.
func spliceEmpties(tree *ast.Program) {
	v := &jsast.Visitor{
		Exit: map[jsast.Kind]jsast.Handler{
			jsast.KindBlockStatement: func(c *jsast.Cursor) {
				block := c.Stmt().(*ast.BlockStatement)
				block.List = spliceStmtList(block.List)
			},
		},
	}
	jsast.Walk(tree, v)
	tree.Body = spliceStmtList(tree.Body)
}

func spliceStmtList(list []ast.Statement) []ast.Statement {
	out := list[:0]
	for i := range list {
		if jsast.IsEmptyStmt(list[i].Stmt) {
			continue
		}
		if decl, ok := list[i].Stmt.(*ast.VariableDeclaration); ok && len(decl.List) == 0 {
			continue
		}
		out = append(out, list[i])
	}
	return out
}
