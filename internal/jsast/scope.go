package jsast

import (
	"github.com/t14raptor/go-fast/ast"
)

// ScopeKind distinguishes the program scope from function scopes.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
)

// BindingKind records how a name was introduced.
type BindingKind int

const (
	BindVar BindingKind = iota
	BindFunction
	BindParam
)

// Binding is a declared name plus everything the dead-code pass needs to know
// about it: where it was declared and every place it is read or written.
type Binding struct {
	Name  string
	Kind  BindingKind
	Scope *Scope

	// DeclCell is the statement cell holding the declaration; nil for
	// parameters, which have no removable statement.
	DeclCell   *ast.Statement
	Declarator *ast.VariableDeclarator
	FuncDecl   *ast.FunctionDeclaration

	Refs       []*Path
	Violations []*Path
}

// LiveRefs counts reference paths that still root at the program. Paths that
// lost their root are ghosts left behind by earlier transforms.
func (b *Binding) LiveRefs() int {
	n := 0
	for _, p := range b.Refs {
		if p.Attached() {
			n++
		}
	}
	return n
}

// LiveViolations counts still-attached write sites.
func (b *Binding) LiveViolations() int {
	n := 0
	for _, p := range b.Violations {
		if p.Attached() {
			n++
		}
	}
	return n
}

// Referenced reports whether any live reference remains.
func (b *Binding) Referenced() bool { return b.LiveRefs() > 0 }

// PureInitializer reports whether removing the declarator cannot drop an
// observable side effect. Declarators without an initializer are pure.
func (b *Binding) PureInitializer() bool {
	if b.Declarator == nil {
		return b.FuncDecl != nil
	}
	if b.Declarator.Initializer == nil {
		return true
	}
	return IsPure(b.Declarator.Initializer.Expr)
}

// IsPure classifies an expression as free of observable side effects:
// literals, functions, identifiers, member reads, arrays/objects of pure
// values and unary/binary/conditional combinations thereof. Calls and
// anything unrecognized are impure.
func IsPure(e ast.Expr) bool {
	switch n := e.(type) {
	case nil:
		return true
	case *ast.StringLiteral, *ast.NumberLiteral, *ast.BooleanLiteral,
		*ast.NullLiteral, *ast.RegExpLiteral, *ast.Identifier,
		*ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		return true
	case *ast.MemberExpression:
		return true
	case *ast.ArrayLiteral:
		for i := range n.Value {
			if n.Value[i].Expr == nil {
				continue
			}
			if !IsPure(n.Value[i].Expr) {
				return false
			}
		}
		return true
	case *ast.ObjectLiteral:
		for i := range n.Value {
			keyed, ok := n.Value[i].Prop.(*ast.PropertyKeyed)
			if !ok {
				return false
			}
			if keyed.Value == nil || !IsPure(keyed.Value.Expr) {
				return false
			}
		}
		return true
	case *ast.UnaryExpression:
		return n.Operand != nil && IsPure(n.Operand.Expr)
	case *ast.BinaryExpression:
		return n.Left != nil && n.Right != nil &&
			IsPure(n.Left.Expr) && IsPure(n.Right.Expr)
	case *ast.ConditionalExpression:
		return n.Test != nil && n.Consequent != nil && n.Alternate != nil &&
			IsPure(n.Test.Expr) && IsPure(n.Consequent.Expr) && IsPure(n.Alternate.Expr)
	default:
		return false
	}
}

// Scope is one level of the lexical stack.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope
	Bindings map[string]*Binding

	fn *ast.FunctionLiteral
}

// Lookup resolves a name, walking outward. Unresolved names are globals.
func (s *Scope) Lookup(name string) *Binding {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.Bindings[name]; ok {
			return b
		}
	}
	return nil
}

func (s *Scope) declare(b *Binding) *Binding {
	if existing, ok := s.Bindings[b.Name]; ok {
		// var redeclaration: the first declaration wins, later ones only
		// matter as writes, which the reference pass records anyway.
		return existing
	}
	b.Scope = s
	s.Bindings[b.Name] = b
	return b
}

// ScopeInfo is the result of a crawl: the scope tree plus an index from
// function nodes to their scopes.
type ScopeInfo struct {
	Program *Scope
	scopes  map[*ast.FunctionLiteral]*Scope
}

// ScopeOf returns the scope owned by a function literal.
func (si *ScopeInfo) ScopeOf(fn *ast.FunctionLiteral) *Scope {
	return si.scopes[fn]
}

// AllScopes returns the program scope and every function scope beneath it,
// outermost first.
func (si *ScopeInfo) AllScopes() []*Scope {
	var out []*Scope
	var visit func(s *Scope)
	visit = func(s *Scope) {
		out = append(out, s)
		for _, c := range s.Children {
			visit(c)
		}
	}
	visit(si.Program)
	return out
}

// Crawl computes scope and binding information for the current tree. It runs
// two walks: one to collect declarations (so hoisted uses resolve), one to
// record references and writes. It must be re-run after bulk structural edits
// when accurate reference lists are needed.
func Crawl(p *ast.Program) *ScopeInfo {
	si := &ScopeInfo{
		Program: &Scope{Kind: ScopeGlobal, Bindings: map[string]*Binding{}},
		scopes:  map[*ast.FunctionLiteral]*Scope{},
	}

	stack := []*Scope{si.Program}
	top := func() *Scope { return stack[len(stack)-1] }

	push := func(fn *ast.FunctionLiteral) {
		s, ok := si.scopes[fn]
		if !ok {
			s = &Scope{Kind: ScopeFunction, Parent: top(), Bindings: map[string]*Binding{}, fn: fn}
			top().Children = append(top().Children, s)
			si.scopes[fn] = s
			for _, name := range ParamNames(fn) {
				s.declare(&Binding{Name: name, Kind: BindParam})
			}
		}
		stack = append(stack, s)
	}
	pop := func() { stack = stack[:len(stack)-1] }

	declare := &Visitor{
		Enter: map[Kind]Handler{
			KindVariableDeclaration: func(c *Cursor) {
				decl := c.Stmt().(*ast.VariableDeclaration)
				for i := range decl.List {
					name, ok := DeclaratorName(&decl.List[i])
					if !ok {
						continue
					}
					top().declare(&Binding{
						Name:       name,
						Kind:       BindVar,
						DeclCell:   c.stmt,
						Declarator: &decl.List[i],
					})
				}
			},
			KindFunctionDeclaration: func(c *Cursor) {
				fd := c.Stmt().(*ast.FunctionDeclaration)
				if name, ok := FunctionName(fd); ok {
					top().declare(&Binding{
						Name:     name,
						Kind:     BindFunction,
						DeclCell: c.stmt,
						FuncDecl: fd,
					})
				}
				if fd.Function != nil {
					push(fd.Function)
				}
			},
			KindFunctionLiteral: func(c *Cursor) {
				push(c.Expr().(*ast.FunctionLiteral))
			},
		},
		Exit: map[Kind]Handler{
			KindFunctionDeclaration: func(c *Cursor) {
				if fd := c.Stmt().(*ast.FunctionDeclaration); fd.Function != nil {
					pop()
				}
			},
			KindFunctionLiteral: func(c *Cursor) { pop() },
		},
	}
	Walk(p, declare)

	// Reference pass. Write targets are remembered by cell so that the
	// identifier handler can tell a read from a constant violation.
	writeCells := map[*ast.Expression]bool{}
	stack = stack[:1]

	reference := &Visitor{
		Enter: map[Kind]Handler{
			KindFunctionDeclaration: func(c *Cursor) {
				if fd := c.Stmt().(*ast.FunctionDeclaration); fd.Function != nil {
					push(fd.Function)
				}
			},
			KindFunctionLiteral: func(c *Cursor) {
				push(c.Expr().(*ast.FunctionLiteral))
			},
			KindAssignExpression: func(c *Cursor) {
				assign := c.Expr().(*ast.AssignExpression)
				if assign.Left != nil {
					if _, ok := assign.Left.Expr.(*ast.Identifier); ok {
						writeCells[assign.Left] = true
					}
				}
			},
			KindUpdateExpression: func(c *Cursor) {
				upd := c.Expr().(*ast.UpdateExpression)
				if upd.Operand != nil {
					if _, ok := upd.Operand.Expr.(*ast.Identifier); ok {
						writeCells[upd.Operand] = true
					}
				}
			},
			KindIdentifier: func(c *Cursor) {
				id := c.Expr().(*ast.Identifier)
				b := top().Lookup(id.Name)
				if b == nil {
					return
				}
				if writeCells[c.expr] {
					b.Violations = append(b.Violations, c.Path())
					return
				}
				b.Refs = append(b.Refs, c.Path())
			},
		},
		Exit: map[Kind]Handler{
			KindFunctionDeclaration: func(c *Cursor) {
				if fd := c.Stmt().(*ast.FunctionDeclaration); fd.Function != nil {
					pop()
				}
			},
			KindFunctionLiteral: func(c *Cursor) { pop() },
		},
	}
	Walk(p, reference)

	return si
}

// RemoveStmtCell erases a statement cell in place, preserving cell identity
// for recorded paths. Used by passes that hold cells rather than cursors.
func RemoveStmtCell(cell *ast.Statement) {
	if cell != nil {
		cell.Stmt = &ast.EmptyStatement{}
	}
}

// IsEmptyStmt reports whether a statement is the empty statement.
func IsEmptyStmt(s ast.Stmt) bool {
	_, ok := s.(*ast.EmptyStatement)
	return ok
}
