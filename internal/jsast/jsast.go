// Package jsast is a thin façade over the go-fast JavaScript syntax tree.
//
// It provides the node constructors, predicates, traversal, scope and path
// primitives the transform pipelines are written against, so that individual
// transforms never deal with parser internals directly.
package jsast

import (
	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/generator"
	"github.com/t14raptor/go-fast/parser"
	"github.com/t14raptor/go-fast/token"
)

// Parse parses a JavaScript program.
func Parse(source string) (*ast.Program, error) {
	return parser.ParseFile(source)
}

// Generate regenerates source for a whole program.
func Generate(p *ast.Program) string {
	return generator.Generate(p)
}

// GenerateExpr regenerates source for a single expression by wrapping it in a
// synthetic one-statement program. The returned source includes the trailing
// semicolon the generator emits for expression statements.
func GenerateExpr(e ast.Expr) string {
	p := &ast.Program{
		Body: []ast.Statement{
			{Stmt: &ast.ExpressionStatement{Expression: Expr(e)}},
		},
	}
	return generator.Generate(p)
}

// GenerateStmt regenerates source for a single statement.
func GenerateStmt(s ast.Stmt) string {
	p := &ast.Program{Body: []ast.Statement{{Stmt: s}}}
	return generator.Generate(p)
}

// Expr wraps a bare expression node in its arena cell.
func Expr(e ast.Expr) *ast.Expression {
	return &ast.Expression{Expr: e}
}

// String constructs a string literal node.
func String(value string) *ast.StringLiteral {
	return &ast.StringLiteral{Value: value}
}

// Number constructs a numeric literal node.
func Number(value float64) *ast.NumberLiteral {
	return &ast.NumberLiteral{Value: value}
}

// Bool constructs a boolean literal node.
func Bool(value bool) *ast.BooleanLiteral {
	return &ast.BooleanLiteral{Value: value}
}

// Ident constructs an identifier node.
func Ident(name string) *ast.Identifier {
	return &ast.Identifier{Name: name}
}

// Member constructs a dot member expression obj.name.
func Member(obj ast.Expr, name string) *ast.MemberExpression {
	return &ast.MemberExpression{
		Object:   Expr(obj),
		Property: &ast.MemberProperty{Prop: Ident(name)},
	}
}

// ComputedMember constructs a bracket member expression obj[key].
func ComputedMember(obj ast.Expr, key ast.Expr) *ast.MemberExpression {
	return &ast.MemberExpression{
		Object:   Expr(obj),
		Property: &ast.MemberProperty{Prop: &ast.ComputedProperty{Expr: Expr(key)}},
	}
}

// Call constructs a call expression.
func Call(callee ast.Expr, args ...ast.Expr) *ast.CallExpression {
	list := make([]ast.Expression, len(args))
	for i, a := range args {
		list[i] = ast.Expression{Expr: a}
	}
	return &ast.CallExpression{Callee: Expr(callee), ArgumentList: list}
}

// Assign constructs a plain assignment left = right.
func Assign(left ast.Expr, right ast.Expr) *ast.AssignExpression {
	return &ast.AssignExpression{
		Operator: token.Assign,
		Left:     Expr(left),
		Right:    Expr(right),
	}
}

// CloneExpr deep-copies an expression cell.
func CloneExpr(e *ast.Expression) *ast.Expression {
	return e.Clone()
}

// IdentName returns the name of e when it is an identifier.
func IdentName(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return "", false
	}
	return id.Name, true
}

// MemberPropName returns the property name of a member access, whether it is
// written as obj.name or obj["name"]. Computed accesses with non-literal keys
// have no static name.
func MemberPropName(mp *ast.MemberProperty) (string, bool) {
	if mp == nil || mp.Prop == nil {
		return "", false
	}
	switch p := mp.Prop.(type) {
	case *ast.Identifier:
		return p.Name, true
	case *ast.ComputedProperty:
		if p.Expr == nil {
			return "", false
		}
		if lit, ok := p.Expr.Expr.(*ast.StringLiteral); ok {
			return lit.Value, true
		}
		return "", false
	default:
		return "", false
	}
}

// IsComputedMember reports whether the member access uses bracket syntax.
func IsComputedMember(m *ast.MemberExpression) bool {
	if m == nil || m.Property == nil {
		return false
	}
	_, ok := m.Property.Prop.(*ast.ComputedProperty)
	return ok
}

// AsIIFE unwraps an immediately-invoked function expression and returns the
// invoked function literal together with the argument list.
func AsIIFE(e ast.Expr) (*ast.FunctionLiteral, []ast.Expression, bool) {
	call, ok := e.(*ast.CallExpression)
	if !ok || call.Callee == nil {
		return nil, nil, false
	}
	fn, ok := call.Callee.Expr.(*ast.FunctionLiteral)
	if !ok {
		return nil, nil, false
	}
	return fn, call.ArgumentList, true
}

// StringElements returns the literal values of an array whose elements are all
// string literals. Arrays with holes or non-string elements report false.
func StringElements(arr *ast.ArrayLiteral) ([]string, bool) {
	if arr == nil {
		return nil, false
	}
	out := make([]string, 0, len(arr.Value))
	for i := range arr.Value {
		lit, ok := arr.Value[i].Expr.(*ast.StringLiteral)
		if !ok {
			return nil, false
		}
		out = append(out, lit.Value)
	}
	return out, true
}

// StringArrayLiteral builds an array literal from string values.
func StringArrayLiteral(values []string) *ast.ArrayLiteral {
	elems := make([]ast.Expression, len(values))
	for i, v := range values {
		elems[i] = ast.Expression{Expr: String(v)}
	}
	return &ast.ArrayLiteral{Value: elems}
}

// UnwrapSequenceTail peels comma sequences down to their final expression;
// obfuscators like to wrap assignments in (0, expr) chains.
func UnwrapSequenceTail(e ast.Expr) ast.Expr {
	for {
		seq, ok := e.(*ast.SequenceExpression)
		if !ok || len(seq.Sequence) == 0 {
			return e
		}
		e = seq.Sequence[len(seq.Sequence)-1].Expr
	}
}

// DeclaratorName returns the declared identifier of a variable declarator.
// Destructuring targets have no single name.
func DeclaratorName(d *ast.VariableDeclarator) (string, bool) {
	if d == nil || d.Target == nil || d.Target.Target == nil {
		return "", false
	}
	id, ok := d.Target.Target.(*ast.Identifier)
	if !ok {
		return "", false
	}
	return id.Name, true
}

// ParamNames lists the simple identifier parameters of a function literal.
// Destructured or defaulted parameters are skipped.
func ParamNames(fn *ast.FunctionLiteral) []string {
	if fn == nil {
		return nil
	}
	var names []string
	for i := range fn.ParameterList.List {
		target := fn.ParameterList.List[i].Target
		if target == nil || target.Target == nil {
			continue
		}
		if id, ok := target.Target.(*ast.Identifier); ok {
			names = append(names, id.Name)
		}
	}
	return names
}

// FunctionName returns the name of a function declaration.
func FunctionName(fd *ast.FunctionDeclaration) (string, bool) {
	if fd == nil || fd.Function == nil || fd.Function.Name == nil {
		return "", false
	}
	return fd.Function.Name.Name, true
}

// NumericValue folds a literal or signed literal to its numeric value.
func NumericValue(e ast.Expr) (float64, bool) {
	switch v := e.(type) {
	case *ast.NumberLiteral:
		return v.Value, true
	case *ast.UnaryExpression:
		if v.Operand == nil || v.Operand.Expr == nil {
			return 0, false
		}
		num, ok := v.Operand.Expr.(*ast.NumberLiteral)
		if !ok {
			return 0, false
		}
		switch v.Operator.String() {
		case "-":
			return -num.Value, true
		case "+":
			return num.Value, true
		}
	}
	return 0, false
}
