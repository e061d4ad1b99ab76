// Package transformer schedules tree transforms and accounts for their
// mutations. A transform is either a visitor factory (walked by the shared
// walker, mergeable with other visitors) or a custom run that controls its
// own traversal.
package transformer

import (
	"context"
	"fmt"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
)

// Tag classifies a transform's safety. Unsafe transforms are best-effort
// rewrites whose correctness depends on the obfuscator honoring its own
// patterns.
type Tag string

const (
	TagSafe   Tag = "safe"
	TagUnsafe Tag = "unsafe"
)

// State is the mutable summary of a deobfuscation run. Changes is the sole
// observable counter; Scopes carries scope data for transforms that request
// it.
type State struct {
	Changes int
	Scopes  *jsast.ScopeInfo
}

// Transform describes one rewrite pass.
type Transform struct {
	Name string
	Tags []Tag

	// Scope requests a fresh scope crawl before the pass runs.
	Scope bool

	// Exactly one of Visitor, Run, RunAsync is set.
	Visitor  func(st *State) *jsast.Visitor
	Run      func(tree *ast.Program, st *State) error
	RunAsync func(ctx context.Context, tree *ast.Program, st *State) error
}

// Options controls how a sequence of transforms is applied.
type Options struct {
	// NoScope skips scope rebuilding between passes; used for large,
	// independent cleanups that do not consult bindings.
	NoScope bool
}

// Apply runs a single synchronous transform and returns how many mutations it
// reported.
func Apply(tree *ast.Program, t *Transform, st *State) (int, error) {
	return apply(context.Background(), tree, t, st, Options{})
}

// ApplyAsync runs a single transform, allowing asynchronous visitors.
func ApplyAsync(ctx context.Context, tree *ast.Program, t *Transform, st *State) (int, error) {
	return apply(ctx, tree, t, st, Options{})
}

func apply(ctx context.Context, tree *ast.Program, t *Transform, st *State, opts Options) (int, error) {
	before := st.Changes
	if t.Scope && !opts.NoScope {
		st.Scopes = jsast.Crawl(tree)
	}
	switch {
	case t.RunAsync != nil:
		if err := t.RunAsync(ctx, tree, st); err != nil {
			return st.Changes - before, fmt.Errorf("transform %s: %w", t.Name, err)
		}
	case t.Run != nil:
		if err := t.Run(tree, st); err != nil {
			return st.Changes - before, fmt.Errorf("transform %s: %w", t.Name, err)
		}
	case t.Visitor != nil:
		jsast.Walk(tree, t.Visitor(st))
	}
	return st.Changes - before, nil
}

// ApplyAll composes a sequence of transforms. Consecutive visitor transforms
// are merged into a single traversal pass, with same-kind handlers invoked in
// list order; run transforms execute at their list position.
func ApplyAll(tree *ast.Program, transforms []*Transform, st *State, opts Options) (int, error) {
	before := st.Changes

	var batch []*Transform
	flush := func() {
		if len(batch) == 0 {
			return
		}
		visitors := make([]*jsast.Visitor, 0, len(batch))
		for _, t := range batch {
			if t.Scope && !opts.NoScope && st.Scopes == nil {
				st.Scopes = jsast.Crawl(tree)
			}
			visitors = append(visitors, t.Visitor(st))
		}
		jsast.Walk(tree, mergeVisitors(visitors))
		batch = batch[:0]
	}

	for _, t := range transforms {
		if t.Visitor != nil {
			batch = append(batch, t)
			continue
		}
		flush()
		if _, err := apply(context.Background(), tree, t, st, opts); err != nil {
			return st.Changes - before, err
		}
	}
	flush()
	return st.Changes - before, nil
}

func mergeVisitors(visitors []*jsast.Visitor) *jsast.Visitor {
	merged := &jsast.Visitor{
		Enter: map[jsast.Kind]jsast.Handler{},
		Exit:  map[jsast.Kind]jsast.Handler{},
	}
	combine := func(dst map[jsast.Kind]jsast.Handler, kind jsast.Kind, h jsast.Handler) {
		if prev, ok := dst[kind]; ok {
			dst[kind] = func(c *jsast.Cursor) {
				prev(c)
				h(c)
			}
			return
		}
		dst[kind] = h
	}
	for _, v := range visitors {
		if v == nil {
			continue
		}
		for kind, h := range v.Enter {
			combine(merged.Enter, kind, h)
		}
		for kind, h := range v.Exit {
			combine(merged.Exit, kind, h)
		}
	}
	return merged
}
