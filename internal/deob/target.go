// Package deob holds the public contract of the deobfuscation core: target
// metadata, detection results, the context handed to a running target, the
// target registry, and the deobfuscation entry point.
package deob

import (
	"context"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/sandbox"
	"github.com/tcortega/webcrack/internal/transformer"
)

// Meta identifies a target.
type Meta struct {
	ID          string
	Name        string
	Description string
	Tags        []string
}

// Detection is the result of probing a tree for one obfuscation family.
// Confidence is clamped to [0, 1]; zero means "not this family".
type Detection struct {
	Confidence float64
	Details    string
}

// Context is the bundle handed to a running target. The tree is owned
// exclusively by the run; Evaluator may be nil, in which case targets that
// need it degrade to no-ops.
type Context struct {
	Tree      *ast.Program
	State     *transformer.State
	Evaluator sandbox.Evaluator
	Log       *slog.Logger
	Debug     *slog.Logger
}

// Target is one obfuscation family the core knows how to undo.
type Target struct {
	Meta Meta

	// Detect scores how strongly the tree resembles this family. Optional;
	// targets without detection are only selectable explicitly.
	Detect func(tree *ast.Program) (Detection, error)

	// Run performs the family-specific pipeline. Required.
	Run func(ctx context.Context, c *Context) error

	// PostTransforms are applied after Run completes.
	PostTransforms []*transformer.Transform
}
