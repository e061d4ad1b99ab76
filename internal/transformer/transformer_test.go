package transformer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
)

func renameCalls(name, from, to string) *Transform {
	return &Transform{
		Name: name,
		Tags: []Tag{TagSafe},
		Visitor: func(st *State) *jsast.Visitor {
			return &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindCallExpression: func(c *jsast.Cursor) {
						call := c.Expr().(*ast.CallExpression)
						if n, ok := jsast.IdentName(call.Callee.Expr); ok && n == from {
							call.Callee.Expr = jsast.Ident(to)
							st.Changes++
						}
					},
				},
			}
		},
	}
}

func TestApplyReportsChanges(t *testing.T) {
	p, err := jsast.Parse(`a(); a(); b();`)
	require.NoError(t, err)

	st := &State{}
	changes, err := Apply(p, renameCalls("rename", "a", "c"), st)
	require.NoError(t, err)
	assert.Equal(t, 2, changes)
	assert.Equal(t, 2, st.Changes)
}

func TestApplyAllMergesInListOrder(t *testing.T) {
	p, err := jsast.Parse(`a();`)
	require.NoError(t, err)

	// Both transforms visit the same kind; list order means the second sees
	// the first one's rename.
	st := &State{}
	changes, err := ApplyAll(p, []*Transform{
		renameCalls("first", "a", "b"),
		renameCalls("second", "b", "c"),
	}, st, Options{NoScope: true})
	require.NoError(t, err)
	assert.Equal(t, 2, changes)

	out := jsast.Generate(p)
	assert.Contains(t, out, "c()")
}

func TestApplyAllRunsCustomRunAtPosition(t *testing.T) {
	p, err := jsast.Parse(`a();`)
	require.NoError(t, err)

	var order []string
	visitor := &Transform{
		Name: "visitor",
		Visitor: func(st *State) *jsast.Visitor {
			return &jsast.Visitor{
				Enter: map[jsast.Kind]jsast.Handler{
					jsast.KindCallExpression: func(c *jsast.Cursor) {
						order = append(order, "visitor")
					},
				},
			}
		},
	}
	custom := &Transform{
		Name: "custom",
		Run: func(tree *ast.Program, st *State) error {
			order = append(order, "custom")
			return nil
		},
	}

	st := &State{}
	_, err = ApplyAll(p, []*Transform{visitor, custom, visitor}, st, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"visitor", "custom", "visitor"}, order)
}

func TestApplyAsync(t *testing.T) {
	p, err := jsast.Parse(`a();`)
	require.NoError(t, err)

	ran := false
	tr := &Transform{
		Name: "async",
		RunAsync: func(ctx context.Context, tree *ast.Program, st *State) error {
			ran = true
			st.Changes++
			return nil
		},
	}
	st := &State{}
	changes, err := ApplyAsync(context.Background(), p, tr, st)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, changes)
}

func TestScopeFlagCrawls(t *testing.T) {
	p, err := jsast.Parse(`var x = 1;`)
	require.NoError(t, err)

	tr := &Transform{
		Name:  "wantsScope",
		Scope: true,
		Run: func(tree *ast.Program, st *State) error {
			return nil
		},
	}
	st := &State{}
	_, err = Apply(p, tr, st)
	require.NoError(t, err)
	require.NotNil(t, st.Scopes)
	assert.NotNil(t, st.Scopes.Program.Lookup("x"))
}
