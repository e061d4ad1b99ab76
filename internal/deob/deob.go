package deob

import (
	"context"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/sandbox"
	"github.com/tcortega/webcrack/internal/transformer"
)

// DefaultThreshold is the minimum detection confidence auto mode accepts.
const DefaultThreshold = 0.3

// Options configures a deobfuscation run.
type Options struct {
	// Target selects a family: "" or "auto" for detection, an id for an
	// explicit choice. Skip disables target execution entirely.
	Target string
	Skip   bool

	// Threshold overrides DefaultThreshold when positive.
	Threshold float64

	Registry  *Registry
	Evaluator sandbox.Evaluator
	Log       *slog.Logger
	Debug     *slog.Logger
}

// Run is the deobfuscation entry: it resolves a target against the registry,
// executes its pipeline and any post-transforms, and returns the transform
// state. The caller owns the tree exclusively for the duration.
func Run(ctx context.Context, tree *ast.Program, opts Options) (*transformer.State, error) {
	st := &transformer.State{}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Debug == nil {
		opts.Debug = opts.Log
	}
	if opts.Skip {
		return st, nil
	}
	if opts.Registry == nil {
		opts.Log.Warn("no registry configured; nothing to do")
		return st, nil
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	target, err := opts.Registry.Resolve(tree, opts.Target, threshold)
	if err != nil {
		return st, err
	}
	if target == nil {
		opts.Log.Info("no target matched; leaving tree unchanged")
		return st, nil
	}

	opts.Log.Info("running target", slog.String("id", target.Meta.ID))
	c := &Context{
		Tree:      tree,
		State:     st,
		Evaluator: opts.Evaluator,
		Log:       opts.Log,
		Debug:     opts.Debug,
	}
	if err := target.Run(ctx, c); err != nil {
		return st, err
	}
	if len(target.PostTransforms) > 0 {
		if _, err := transformer.ApplyAll(tree, target.PostTransforms, st, transformer.Options{}); err != nil {
			return st, err
		}
	}
	opts.Log.Info("deobfuscation finished", slog.Int("changes", st.Changes))
	return st, nil
}
