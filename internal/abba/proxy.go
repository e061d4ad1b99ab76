package abba

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/deob"
	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// proxyInfo is the phase-1 capture for one proxy function: its name, the
// array it dereferences, the offset subtracted from indices, and the strings.
// Per-invocation state lives here rather than at package level.
type proxyInfo struct {
	name    string
	cell    *ast.Statement
	offset  float64
	strings []string
}

// InlineProxies resolves the thin lookup wrappers Abba routes strings
// through:
//
//	function b(d) { d = d - 0x10; return a[d]; }
//
// Phase 1 captures each proxy's array and offset; phase 2 replaces calls with
// a literal first argument (decimal, hex string or number) by the indexed
// string, leaving out-of-range calls intact; on exit the proxy declarations
// are removed.
func InlineProxies(debug *slog.Logger) *transformer.Transform {
	return &transformer.Transform{
		Name: "proxies",
		Tags: []transformer.Tag{transformer.TagUnsafe},
		Run: func(tree *ast.Program, st *transformer.State) error {
			info := jsast.Crawl(tree)
			proxies := map[string]*proxyInfo{}

			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindFunctionDeclaration: func(c *jsast.Cursor) {
						fd := c.Stmt().(*ast.FunctionDeclaration)
						name, ok := jsast.FunctionName(fd)
						if !ok || fd.Function == nil {
							return
						}
						capture(proxies, info, name, c.StmtCell(), fd.Function, debug)
					},
					jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
						decl := c.Stmt().(*ast.VariableDeclaration)
						for i := range decl.List {
							name, ok := jsast.DeclaratorName(&decl.List[i])
							if !ok || decl.List[i].Initializer == nil {
								continue
							}
							if fn, ok := decl.List[i].Initializer.Expr.(*ast.FunctionLiteral); ok {
								capture(proxies, info, name, c.StmtCell(), fn, debug)
							}
						}
					},
				},
			})
			if len(proxies) == 0 {
				return nil
			}

			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindCallExpression: func(c *jsast.Cursor) {
						call := c.Expr().(*ast.CallExpression)
						name, ok := jsast.IdentName(call.Callee.Expr)
						if !ok {
							return
						}
						proxy, ok := proxies[name]
						if !ok || len(call.ArgumentList) == 0 {
							return
						}
						value, ok := literalIndex(call.ArgumentList[0].Expr)
						if !ok {
							return
						}
						idx := int(value - proxy.offset)
						if idx < 0 || idx >= len(proxy.strings) {
							debug.Debug("proxy call out of range",
								slog.String("proxy", name), slog.Int("index", idx))
							return
						}
						c.ReplaceExpr(jsast.String(proxy.strings[idx]))
						st.Changes++
					},
				},
			})

			for _, proxy := range proxies {
				jsast.RemoveStmtCell(proxy.cell)
				st.Changes++
			}
			return nil
		},
	}
}

// capture qualifies a candidate: 1–2 parameters, a computed read of a free
// identifier that resolves to a string array, and optionally an offset
// assignment param = param - N (offset defaults to 0).
func capture(proxies map[string]*proxyInfo, info *jsast.ScopeInfo, name string, cell *ast.Statement, fn *ast.FunctionLiteral, debug *slog.Logger) {
	params := jsast.ParamNames(fn)
	if len(params) < 1 || len(params) > 2 || fn.Body == nil {
		return
	}
	paramSet := map[string]bool{}
	for _, p := range params {
		paramSet[p] = true
	}

	arrName := ""
	offset := 0.0
	hasRead := false

	p := &ast.Program{Body: []ast.Statement{{Stmt: fn.Body}}}
	jsast.Walk(p, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindMemberExpression: func(c *jsast.Cursor) {
				mem := c.Expr().(*ast.MemberExpression)
				if !jsast.IsComputedMember(mem) {
					return
				}
				obj, ok := jsast.IdentName(mem.Object.Expr)
				if !ok || paramSet[obj] {
					return
				}
				if arrName == "" {
					arrName = obj
					hasRead = true
				}
			},
			jsast.KindAssignExpression: func(c *jsast.Cursor) {
				assign := c.Expr().(*ast.AssignExpression)
				if assign.Operator.String() != "=" || assign.Left == nil || assign.Right == nil {
					return
				}
				left, ok := jsast.IdentName(assign.Left.Expr)
				if !ok || !paramSet[left] {
					return
				}
				bin, ok := assign.Right.Expr.(*ast.BinaryExpression)
				if !ok || bin.Operator.String() != "-" {
					return
				}
				right, ok := jsast.IdentName(bin.Left.Expr)
				if !ok || right != left {
					return
				}
				if num, ok := jsast.NumericValue(bin.Right.Expr); ok {
					offset = num
				}
			},
		},
	})
	if !hasRead || arrName == "" {
		return
	}

	arr := resolveArrayLiteral(info, arrName)
	if arr == nil {
		return
	}
	values, ok := jsast.StringElements(arr)
	if !ok {
		debug.Debug("proxy candidate skipped",
			slog.String("proxy", name),
			slog.String("error", deob.ErrPatternMismatch.Error()+": array has non-string elements"))
		return
	}
	proxies[name] = &proxyInfo{name: name, cell: cell, offset: offset, strings: values}
}

// literalIndex parses a call's index argument: numeric literals as-is,
// string literals as decimal or 0x-prefixed hexadecimal.
func literalIndex(e ast.Expr) (float64, bool) {
	if num, ok := jsast.NumericValue(e); ok {
		return num, true
	}
	lit, ok := e.(*ast.StringLiteral)
	if !ok {
		return 0, false
	}
	text := strings.TrimSpace(lit.Value)
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		v, err := strconv.ParseInt(text[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return float64(v), true
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
