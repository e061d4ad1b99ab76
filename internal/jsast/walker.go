package jsast

import (
	"github.com/t14raptor/go-fast/ast"
)

// Kind names a syntax node variant. Handlers in a Visitor are keyed by kind.
type Kind string

const (
	KindExpressionStatement   Kind = "ExpressionStatement"
	KindVariableDeclaration   Kind = "VariableDeclaration"
	KindFunctionDeclaration   Kind = "FunctionDeclaration"
	KindBlockStatement        Kind = "BlockStatement"
	KindIfStatement           Kind = "IfStatement"
	KindForStatement          Kind = "ForStatement"
	KindForInStatement        Kind = "ForInStatement"
	KindWhileStatement        Kind = "WhileStatement"
	KindDoWhileStatement      Kind = "DoWhileStatement"
	KindReturnStatement       Kind = "ReturnStatement"
	KindSwitchStatement       Kind = "SwitchStatement"
	KindTryStatement          Kind = "TryStatement"
	KindBreakStatement        Kind = "BreakStatement"
	KindContinueStatement     Kind = "ContinueStatement"
	KindEmptyStatement        Kind = "EmptyStatement"
	KindIdentifier            Kind = "Identifier"
	KindStringLiteral         Kind = "StringLiteral"
	KindNumberLiteral         Kind = "NumberLiteral"
	KindBooleanLiteral        Kind = "BooleanLiteral"
	KindNullLiteral           Kind = "NullLiteral"
	KindRegExpLiteral         Kind = "RegExpLiteral"
	KindTemplateLiteral       Kind = "TemplateLiteral"
	KindArrayLiteral          Kind = "ArrayLiteral"
	KindObjectLiteral         Kind = "ObjectLiteral"
	KindFunctionLiteral       Kind = "FunctionLiteral"
	KindArrowFunctionLiteral  Kind = "ArrowFunctionLiteral"
	KindCallExpression        Kind = "CallExpression"
	KindMemberExpression      Kind = "MemberExpression"
	KindAssignExpression      Kind = "AssignExpression"
	KindBinaryExpression      Kind = "BinaryExpression"
	KindUnaryExpression       Kind = "UnaryExpression"
	KindUpdateExpression      Kind = "UpdateExpression"
	KindConditionalExpression Kind = "ConditionalExpression"
	KindSequenceExpression    Kind = "SequenceExpression"
	KindSpreadElement         Kind = "SpreadElement"
	KindOther                 Kind = "Other"
)

// KindOfStmt classifies a statement node.
func KindOfStmt(s ast.Stmt) Kind {
	switch s.(type) {
	case *ast.ExpressionStatement:
		return KindExpressionStatement
	case *ast.VariableDeclaration:
		return KindVariableDeclaration
	case *ast.FunctionDeclaration:
		return KindFunctionDeclaration
	case *ast.BlockStatement:
		return KindBlockStatement
	case *ast.IfStatement:
		return KindIfStatement
	case *ast.ForStatement:
		return KindForStatement
	case *ast.ForInStatement:
		return KindForInStatement
	case *ast.WhileStatement:
		return KindWhileStatement
	case *ast.DoWhileStatement:
		return KindDoWhileStatement
	case *ast.ReturnStatement:
		return KindReturnStatement
	case *ast.SwitchStatement:
		return KindSwitchStatement
	case *ast.TryStatement:
		return KindTryStatement
	case *ast.BreakStatement:
		return KindBreakStatement
	case *ast.ContinueStatement:
		return KindContinueStatement
	case *ast.EmptyStatement:
		return KindEmptyStatement
	default:
		return KindOther
	}
}

// KindOfExpr classifies an expression node.
func KindOfExpr(e ast.Expr) Kind {
	switch e.(type) {
	case *ast.Identifier:
		return KindIdentifier
	case *ast.StringLiteral:
		return KindStringLiteral
	case *ast.NumberLiteral:
		return KindNumberLiteral
	case *ast.BooleanLiteral:
		return KindBooleanLiteral
	case *ast.NullLiteral:
		return KindNullLiteral
	case *ast.RegExpLiteral:
		return KindRegExpLiteral
	case *ast.TemplateLiteral:
		return KindTemplateLiteral
	case *ast.ArrayLiteral:
		return KindArrayLiteral
	case *ast.ObjectLiteral:
		return KindObjectLiteral
	case *ast.FunctionLiteral:
		return KindFunctionLiteral
	case *ast.ArrowFunctionLiteral:
		return KindArrowFunctionLiteral
	case *ast.CallExpression:
		return KindCallExpression
	case *ast.MemberExpression:
		return KindMemberExpression
	case *ast.AssignExpression:
		return KindAssignExpression
	case *ast.BinaryExpression:
		return KindBinaryExpression
	case *ast.UnaryExpression:
		return KindUnaryExpression
	case *ast.UpdateExpression:
		return KindUpdateExpression
	case *ast.ConditionalExpression:
		return KindConditionalExpression
	case *ast.SequenceExpression:
		return KindSequenceExpression
	case *ast.SpreadElement:
		return KindSpreadElement
	default:
		return KindOther
	}
}

// Handler processes one node via its cursor.
type Handler func(c *Cursor)

// Visitor maps node kinds to handlers. Enter handlers fire before children,
// exit handlers after. A nil map is fine.
type Visitor struct {
	Enter map[Kind]Handler
	Exit  map[Kind]Handler
}

// maxRevisits bounds how often a replacement can re-enter the same cell, so a
// handler that replaces a node with another match cannot loop forever.
const maxRevisits = 64

// Cursor is the handle a handler receives for the node it is visiting.
type Cursor struct {
	w    *walker
	stmt *ast.Statement
	expr *ast.Expression

	skip     bool
	removed  bool
	replaced bool
}

// Program returns the tree being walked.
func (c *Cursor) Program() *ast.Program { return c.w.program }

// StmtCell exposes the statement cell at the cursor for passes that need to
// mutate it after the walk finished. Nil at expression positions.
func (c *Cursor) StmtCell() *ast.Statement { return c.stmt }

// ExprCell exposes the expression cell at the cursor. Nil at statement
// positions.
func (c *Cursor) ExprCell() *ast.Expression { return c.expr }

// Stmt returns the statement at the cursor, or nil at an expression.
func (c *Cursor) Stmt() ast.Stmt {
	if c.stmt == nil {
		return nil
	}
	return c.stmt.Stmt
}

// Expr returns the expression at the cursor, or nil at a statement.
func (c *Cursor) Expr() ast.Expr {
	if c.expr == nil {
		return nil
	}
	return c.expr.Expr
}

// ReplaceExpr swaps the expression at the cursor. The replacement becomes the
// next visit target.
func (c *Cursor) ReplaceExpr(e ast.Expr) {
	if c.expr == nil {
		return
	}
	c.expr.Expr = e
	c.replaced = true
}

// ReplaceStmt swaps the statement at the cursor. The replacement becomes the
// next visit target.
func (c *Cursor) ReplaceStmt(s ast.Stmt) {
	if c.stmt == nil {
		return
	}
	c.stmt.Stmt = s
	c.replaced = true
}

// Remove erases the statement at the cursor and aborts descent into it. The
// cell is overwritten with an empty statement so sibling cells and recorded
// paths keep their identity; a later cleanup splices empties out.
func (c *Cursor) Remove() {
	if c.stmt == nil {
		return
	}
	c.stmt.Stmt = &ast.EmptyStatement{}
	c.removed = true
}

// SkipChildren prevents descent into the current node.
func (c *Cursor) SkipChildren() { c.skip = true }

// Stop aborts the whole walk.
func (c *Cursor) Stop() { c.w.stopped = true }

// Path snapshots the root-to-node link chain for the current position.
func (c *Cursor) Path() *Path {
	links := make([]PathLink, len(c.w.stack))
	copy(links, c.w.stack)
	return &Path{program: c.w.program, links: links}
}

type walker struct {
	program *ast.Program
	visitor *Visitor
	stack   []PathLink
	stopped bool
}

// Walk traverses the program depth-first left-to-right, dispatching the
// visitor's handlers by node kind.
func Walk(p *ast.Program, v *Visitor) {
	w := &walker{program: p, visitor: v}
	for i := range p.Body {
		if w.stopped {
			return
		}
		w.walkStmtCell(&p.Body[i])
	}
}

func (w *walker) enter(kind Kind) Handler {
	if w.visitor == nil || w.visitor.Enter == nil {
		return nil
	}
	return w.visitor.Enter[kind]
}

func (w *walker) exit(kind Kind) Handler {
	if w.visitor == nil || w.visitor.Exit == nil {
		return nil
	}
	return w.visitor.Exit[kind]
}

func (w *walker) walkStmtCell(cell *ast.Statement) {
	if w.stopped || cell == nil || cell.Stmt == nil {
		return
	}
	w.stack = append(w.stack, PathLink{StmtCell: cell, Content: cell.Stmt})
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	for i := 0; i < maxRevisits; i++ {
		kind := KindOfStmt(cell.Stmt)
		c := &Cursor{w: w, stmt: cell}
		if h := w.enter(kind); h != nil {
			h(c)
		}
		if w.stopped || c.removed {
			return
		}
		if c.replaced {
			w.stack[len(w.stack)-1].Content = cell.Stmt
			continue
		}
		if !c.skip {
			w.walkStmtChildren(cell.Stmt)
			if w.stopped {
				return
			}
		}
		if h := w.exit(kind); h != nil {
			h(&Cursor{w: w, stmt: cell})
		}
		return
	}
}

func (w *walker) walkExprCell(cell *ast.Expression) {
	if w.stopped || cell == nil || cell.Expr == nil {
		return
	}
	w.stack = append(w.stack, PathLink{ExprCell: cell, Content: cell.Expr})
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	for i := 0; i < maxRevisits; i++ {
		kind := KindOfExpr(cell.Expr)
		c := &Cursor{w: w, expr: cell}
		if h := w.enter(kind); h != nil {
			h(c)
		}
		if w.stopped {
			return
		}
		if c.replaced {
			w.stack[len(w.stack)-1].Content = cell.Expr
			continue
		}
		if !c.skip {
			w.walkExprChildren(cell.Expr)
			if w.stopped {
				return
			}
		}
		if h := w.exit(kind); h != nil {
			h(&Cursor{w: w, expr: cell})
		}
		return
	}
}

func (w *walker) walkBlock(block *ast.BlockStatement) {
	if block == nil {
		return
	}
	for i := range block.List {
		if w.stopped {
			return
		}
		w.walkStmtCell(&block.List[i])
	}
}

// walkStmtChildren descends into the children of a statement. Positions with
// no bearing on either obfuscation family (for-loop declaration initializers,
// arrow bodies, class bodies) are left unvisited, mirroring the pack's
// deobfuscator.
func (w *walker) walkStmtChildren(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		w.walkExprCell(n.Expression)
	case *ast.VariableDeclaration:
		for i := range n.List {
			w.walkExprCell(n.List[i].Initializer)
		}
	case *ast.FunctionDeclaration:
		if n.Function != nil {
			w.walkBlock(n.Function.Body)
		}
	case *ast.BlockStatement:
		w.walkBlock(n)
	case *ast.IfStatement:
		w.walkExprCell(n.Test)
		w.walkStmtPtr(n.Consequent)
		w.walkStmtPtr(n.Alternate)
	case *ast.ForStatement:
		w.walkExprCell(n.Test)
		w.walkExprCell(n.Update)
		w.walkStmtPtr(n.Body)
	case *ast.ForInStatement:
		w.walkExprCell(n.Source)
		w.walkStmtPtr(n.Body)
	case *ast.WhileStatement:
		w.walkExprCell(n.Test)
		w.walkStmtPtr(n.Body)
	case *ast.DoWhileStatement:
		w.walkExprCell(n.Test)
		w.walkStmtPtr(n.Body)
	case *ast.ReturnStatement:
		w.walkExprCell(n.Argument)
	case *ast.SwitchStatement:
		w.walkExprCell(n.Discriminant)
		for i := range n.Body {
			w.walkExprCell(n.Body[i].Test)
			for j := range n.Body[i].Consequent {
				w.walkStmtCell(&n.Body[i].Consequent[j])
			}
		}
	case *ast.TryStatement:
		w.walkBlock(n.Body)
		if n.Catch != nil {
			w.walkBlock(n.Catch.Body)
		}
		w.walkBlock(n.Finally)
	}
}

func (w *walker) walkStmtPtr(cell *ast.Statement) {
	if cell != nil {
		w.walkStmtCell(cell)
	}
}

func (w *walker) walkExprChildren(e ast.Expr) {
	switch n := e.(type) {
	case *ast.ArrayLiteral:
		for i := range n.Value {
			w.walkExprCell(&n.Value[i])
		}
	case *ast.ObjectLiteral:
		for i := range n.Value {
			switch p := n.Value[i].Prop.(type) {
			case *ast.PropertyKeyed:
				w.walkExprCell(p.Key)
				w.walkExprCell(p.Value)
			case *ast.SpreadElement:
				w.walkExprCell(p.Expression)
			}
		}
	case *ast.FunctionLiteral:
		w.walkBlock(n.Body)
	case *ast.CallExpression:
		w.walkExprCell(n.Callee)
		for i := range n.ArgumentList {
			w.walkExprCell(&n.ArgumentList[i])
		}
	case *ast.MemberExpression:
		w.walkExprCell(n.Object)
		if n.Property != nil {
			if cp, ok := n.Property.Prop.(*ast.ComputedProperty); ok {
				w.walkExprCell(cp.Expr)
			}
		}
	case *ast.AssignExpression:
		w.walkExprCell(n.Left)
		w.walkExprCell(n.Right)
	case *ast.BinaryExpression:
		w.walkExprCell(n.Left)
		w.walkExprCell(n.Right)
	case *ast.UnaryExpression:
		w.walkExprCell(n.Operand)
	case *ast.UpdateExpression:
		w.walkExprCell(n.Operand)
	case *ast.ConditionalExpression:
		w.walkExprCell(n.Test)
		w.walkExprCell(n.Consequent)
		w.walkExprCell(n.Alternate)
	case *ast.SequenceExpression:
		for i := range n.Sequence {
			w.walkExprCell(&n.Sequence[i])
		}
	case *ast.TemplateLiteral:
		w.walkExprCell(n.Tag)
		for i := range n.Expressions {
			w.walkExprCell(&n.Expressions[i])
		}
	case *ast.SpreadElement:
		w.walkExprCell(n.Expression)
	}
}
