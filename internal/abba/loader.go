package abba

import (
	"log/slog"
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

// loaderInfo is the phase-1 capture: the loader function, the registry
// identifier it aliases, and the declaration to drop on exit.
type loaderInfo struct {
	name     string
	registry string
	cell     *ast.Statement
}

// ResolveModuleLoader rewrites Abba's custom module system. The loader is a
// two-parameter function that splits a dotted path and stores a factory's
// result into a registry object; each call
//
//	M("A.B", function (v) { return v || {}; });
//
// becomes
//
//	R["A"]["B"] = (function (v) { return v || {}; })(R["A"]["B"]);
//
// and the loader declaration is removed once every call is resolved.
func ResolveModuleLoader(debug *slog.Logger) *transformer.Transform {
	return &transformer.Transform{
		Name: "moduleLoader",
		Tags: []transformer.Tag{transformer.TagSafe},
		Run: func(tree *ast.Program, st *transformer.State) error {
			loader := findLoader(tree)
			if loader == nil {
				return nil
			}
			debug.Debug("module loader located",
				slog.String("loader", loader.name), slog.String("registry", loader.registry))

			jsast.Walk(tree, &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindCallExpression: func(c *jsast.Cursor) {
						call := c.Expr().(*ast.CallExpression)
						name, ok := jsast.IdentName(call.Callee.Expr)
						if !ok || name != loader.name || len(call.ArgumentList) != 2 {
							return
						}
						path, ok := call.ArgumentList[0].Expr.(*ast.StringLiteral)
						if !ok {
							return
						}
						if !isFactory(call.ArgumentList[1].Expr) {
							return
						}
						parts := strings.Split(path.Value, ".")
						factory := call.ArgumentList[1].Clone().Expr
						c.ReplaceExpr(jsast.Assign(
							registryChain(loader.registry, parts),
							jsast.Call(factory, registryChain(loader.registry, parts)),
						))
						st.Changes++
					},
				},
			})

			jsast.RemoveStmtCell(loader.cell)
			st.Changes++
			return nil
		},
	}
}

// findLoader matches a two-parameter function declaration whose body splits
// strings and aliases a free identifier, the registry.
func findLoader(tree *ast.Program) *loaderInfo {
	var found *loaderInfo
	jsast.Walk(tree, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindFunctionDeclaration: func(c *jsast.Cursor) {
				if found != nil {
					return
				}
				fd := c.Stmt().(*ast.FunctionDeclaration)
				name, ok := jsast.FunctionName(fd)
				if !ok || fd.Function == nil {
					return
				}
				params := jsast.ParamNames(fd.Function)
				if len(params) != 2 {
					return
				}
				src := jsast.GenerateExpr(fd.Function)
				if !strings.Contains(src, "split") {
					return
				}
				registry, ok := registryAlias(fd.Function.Body, params)
				if !ok {
					return
				}
				found = &loaderInfo{name: name, registry: registry, cell: c.StmtCell()}
			},
		},
	})
	return found
}

// registryAlias finds a local alias to an identifier that is not a parameter:
// var m = R. That free identifier is the registry.
func registryAlias(body *ast.BlockStatement, params []string) (string, bool) {
	if body == nil {
		return "", false
	}
	paramSet := map[string]bool{}
	for _, p := range params {
		paramSet[p] = true
	}
	registry := ""
	p := &ast.Program{Body: []ast.Statement{{Stmt: body}}}
	jsast.Walk(p, &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{
			jsast.KindVariableDeclaration: func(c *jsast.Cursor) {
				if registry != "" {
					return
				}
				decl := c.Stmt().(*ast.VariableDeclaration)
				for i := range decl.List {
					if decl.List[i].Initializer == nil {
						continue
					}
					ref, ok := jsast.IdentName(decl.List[i].Initializer.Expr)
					if ok && !paramSet[ref] {
						registry = ref
						return
					}
				}
			},
		},
	})
	return registry, registry != ""
}

func isFactory(e ast.Expr) bool {
	switch e.(type) {
	case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		return true
	}
	return false
}

// registryChain builds R["a"]["b"]… for a dotted path.
func registryChain(registry string, parts []string) ast.Expr {
	var chain ast.Expr = jsast.Ident(registry)
	for _, part := range parts {
		chain = jsast.ComputedMember(chain, jsast.String(part))
	}
	return chain
}
