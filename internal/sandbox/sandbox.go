// Package sandbox executes untrusted JavaScript fragments in a controlled
// environment. Two backings are available: goja, a full ES6 runtime that can
// host the permissive-scope design obfuscator self-checks need, and otto, an
// ES5 shim for constrained hosts. Both must produce identical results for the
// decoder fragments the pipelines evaluate.
package sandbox

import (
	"context"
	"errors"
	"fmt"
)

// ErrEval reports that a fragment could not be evaluated. It is local to the
// call site: the offending node is left unchanged.
var ErrEval = errors.New("sandbox: evaluation failed")

// Evaluator turns a source fragment into its value. Implementations isolate
// from host state, never retain references to the caller's tree, surface
// failures as error values rather than panics, and are callable re-entrantly
// within a single deobfuscation run.
type Evaluator interface {
	Eval(ctx context.Context, source string) (any, error)
}

// Backend selects an evaluator implementation.
type Backend string

const (
	BackendGoja Backend = "goja"
	BackendOtto Backend = "otto"
)

// New constructs a fresh evaluator for the given backend.
func New(backend Backend) (Evaluator, error) {
	switch backend {
	case BackendGoja, "":
		return NewGoja()
	case BackendOtto:
		return NewOtto()
	default:
		return nil, fmt.Errorf("sandbox: unknown backend %q", backend)
	}
}
