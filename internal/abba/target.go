package abba

import (
	"context"
	"log/slog"

	"github.com/tcortega/webcrack/internal/deob"
	"github.com/tcortega/webcrack/internal/sandbox"
	"github.com/tcortega/webcrack/internal/transformer"
	"github.com/tcortega/webcrack/internal/transforms"
)

// Options tunes the target.
type Options struct {
	// NewEvaluator builds the fresh sandboxes the string-array extractor
	// wants. When nil, extraction reuses the run's evaluator.
	NewEvaluator func() (sandbox.Evaluator, error)

	// MaxDeadCodePasses caps the final dead-code fixpoint.
	MaxDeadCodePasses int
}

// NewTarget builds the Abba target: seven transforms in fixed order, each
// reporting its change count and logging a one-line summary. Abba has no
// detection heuristics yet, so the target is only selectable explicitly or as
// the registry default.
func NewTarget(opts Options) *deob.Target {
	return &deob.Target{
		Meta: deob.Meta{
			ID:          "abba",
			Name:        "Abba",
			Description: "Abba-family string array, proxy and module loader obfuscation",
			Tags:        []string{"string-array", "module-loader"},
		},
		Run: func(ctx context.Context, c *deob.Context) error {
			return run(ctx, c, opts)
		},
	}
}

func run(ctx context.Context, c *deob.Context, opts Options) error {
	newEval := opts.NewEvaluator
	if newEval == nil {
		newEval = func() (sandbox.Evaluator, error) { return c.Evaluator, nil }
	}

	pipeline := []*transformer.Transform{}
	if c.Evaluator != nil || opts.NewEvaluator != nil {
		pipeline = append(pipeline, ExtractStringArrays(newEval, c.Debug))
	} else {
		c.Log.Info("abba: no evaluator available, skipping string array extraction")
	}
	pipeline = append(pipeline,
		RotateStringArrays(),
		InlineProxies(c.Debug),
		NormalizeLiterals(),
		SimplifyMembers(),
		ResolveModuleLoader(c.Debug),
		transforms.DeadCode(opts.MaxDeadCodePasses),
	)

	for _, t := range pipeline {
		changes, err := transformer.ApplyAsync(ctx, c.Tree, t, c.State)
		if err != nil {
			return err
		}
		c.Log.Info("abba: transform finished",
			slog.String("transform", t.Name), slog.Int("changes", changes))
	}
	return nil
}
