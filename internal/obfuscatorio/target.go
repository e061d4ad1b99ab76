package obfuscatorio

import (
	"context"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/deob"
	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
	"github.com/tcortega/webcrack/internal/transforms"
)

// Options tunes the target.
type Options struct {
	// MaxDeadCodePasses caps the dead-code fixpoint in the cleanup quartet.
	MaxDeadCodePasses int
}

// NewTarget builds the obfuscator.io target.
//
// Detection scores 0.5 when the string array probe matches, clamped by the
// registry; further heuristics may raise this but never past 1. Without an
// evaluator, or without a string array, the pipeline is a no-op.
func NewTarget(opts Options) *deob.Target {
	return &deob.Target{
		Meta: deob.Meta{
			ID:          "obfuscator.io",
			Name:        "Obfuscator.IO",
			Description: "javascript-obfuscator / obfuscator.io output",
			Tags:        []string{"string-array", "control-flow"},
		},
		Detect: func(tree *ast.Program) (deob.Detection, error) {
			score := 0.0
			details := "no string array"
			if arr := FindStringArray(tree); arr != nil {
				score += 0.5
				details = "string array " + arr.Name
			}
			return deob.Detection{Confidence: score, Details: details}, nil
		},
		Run: func(ctx context.Context, c *deob.Context) error {
			return run(ctx, c, opts)
		},
	}
}

func run(ctx context.Context, c *deob.Context, opts Options) error {
	if c.Evaluator == nil {
		c.Log.Info("obfuscator.io: no evaluator available, skipping")
		return nil
	}
	arr := FindStringArray(c.Tree)
	if arr == nil {
		c.Log.Info("obfuscator.io: no string array found, skipping")
		return nil
	}
	c.Log.Info("obfuscator.io: string array located",
		slog.String("name", arr.Name), slog.Int("length", arr.Length))

	rot := FindArrayRotator(c.Tree, arr)
	if rot != nil {
		c.Debug.Debug("rotator located", slog.Int("count", rot.Count))
	}
	decoders := FindDecoders(c.Tree, arr)
	c.Log.Info("obfuscator.io: decoders located", slog.Int("count", len(decoders)))

	if _, err := transformer.Apply(c.Tree, InlineObjectProps(), c.State); err != nil {
		return err
	}
	for _, dec := range decoders {
		if _, err := transformer.Apply(c.Tree, InlineDecoderWrappers(dec), c.State); err != nil {
			return err
		}
	}

	vm := NewVMDecoder(c.Evaluator, arr, rot, decoders)
	inlined, err := transformer.ApplyAsync(ctx, c.Tree, InlineDecodedStrings(vm, c.Debug), c.State)
	if err != nil {
		return err
	}
	c.Log.Info("obfuscator.io: strings inlined", slog.Int("count", inlined))

	if len(decoders) > 0 {
		jsast.RemoveStmtCell(arr.Cell)
		if rot != nil {
			jsast.RemoveStmtCell(rot.Cell)
		}
		for _, dec := range decoders {
			jsast.RemoveStmtCell(dec.Cell)
		}
		// Change credit: array + rotator slot + one per decoder, whether or
		// not a rotator was present. Kept stable for regression parity.
		c.State.Changes += 2 + len(decoders)
	}

	quartet := []*transformer.Transform{
		transforms.MergeStrings(),
		transforms.DeadCode(opts.MaxDeadCodePasses),
		transforms.ControlFlowObject(),
		transforms.ControlFlowSwitch(),
	}
	if _, err := transformer.ApplyAll(c.Tree, quartet, c.State, transformer.Options{NoScope: true}); err != nil {
		return err
	}
	return nil
}
