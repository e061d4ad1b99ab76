// Package api is the public face of the deobfuscator: parse a source string,
// pick a target, run its pipeline, regenerate code.
//
// Basic usage:
//
//	result, err := api.Deobfuscate(source, api.Options{})
//	if err != nil {
//	    log.Fatalf("deobfuscation failed: %v", err)
//	}
//	fmt.Println(result.Code)
package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/abba"
	"github.com/tcortega/webcrack/internal/config"
	"github.com/tcortega/webcrack/internal/deob"
	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/obfuscatorio"
	"github.com/tcortega/webcrack/internal/sandbox"
	"github.com/tcortega/webcrack/internal/transformer"
)

// Options configures a deobfuscation.
type Options struct {
	// ConfigPath points at an optional YAML config file.
	ConfigPath string

	// Target overrides the configured family selection: "auto" (or empty)
	// detects, an id forces a family. Skip disables the pipeline, leaving
	// only parsing and regeneration.
	Target string
	Skip   bool

	// Threshold overrides the detection threshold when positive.
	Threshold float64

	// Sandbox overrides the evaluator backing ("goja", "otto", "off").
	Sandbox string

	// Evaluator plugs in a custom sandbox; it wins over Sandbox.
	Evaluator sandbox.Evaluator

	// OnLog receives log lines ("info" or "debug") when set; otherwise the
	// default slog logger is used. DebugLogging enables the debug level.
	OnLog        func(level, message string)
	DebugLogging bool
}

// Result carries the regenerated program and the mutation count.
type Result struct {
	Code    string
	Changes int
}

// Deobfuscate parses source, runs the selected pipeline and returns the
// regenerated program.
func Deobfuscate(source string, opts Options) (*Result, error) {
	return DeobfuscateContext(context.Background(), source, opts)
}

// DeobfuscateContext is Deobfuscate with cancellation. Cancellation takes
// effect between transforms and interrupts in-flight sandbox evaluations.
func DeobfuscateContext(ctx context.Context, source string, opts Options) (*Result, error) {
	tree, err := jsast.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	st, err := DeobfuscateTree(ctx, tree, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Code: jsast.Generate(tree), Changes: st.Changes}, nil
}

// DeobfuscateTree runs the pipeline on an already-parsed tree, mutating it in
// place. The caller must own the tree exclusively for the duration.
func DeobfuscateTree(ctx context.Context, tree *ast.Program, opts Options) (*transformer.State, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Target != "" {
		cfg.Target = opts.Target
	}
	if opts.Threshold > 0 {
		cfg.Threshold = opts.Threshold
	}
	if opts.Sandbox != "" {
		cfg.Sandbox = opts.Sandbox
	}
	if opts.DebugLogging {
		cfg.DebugLogging = true
	}

	log, debug := buildLoggers(opts.OnLog, cfg.DebugLogging)

	evaluator := opts.Evaluator
	if evaluator == nil && cfg.Sandbox != config.SandboxOff {
		evaluator, err = sandbox.New(sandbox.Backend(cfg.Sandbox))
		if err != nil {
			return nil, err
		}
	}

	registry := DefaultRegistry(cfg, log)
	return deob.Run(ctx, tree, deob.Options{
		Target:    cfg.Target,
		Skip:      opts.Skip,
		Threshold: cfg.Threshold,
		Registry:  registry,
		Evaluator: evaluator,
		Log:       log,
		Debug:     debug,
	})
}

// DefaultRegistry mirrors the shipped tool: both families registered, with
// obfuscator.io as the default when detection is inconclusive.
func DefaultRegistry(cfg *config.Config, log *slog.Logger) *deob.Registry {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	registry := deob.NewRegistry(log)
	registry.Register(obfuscatorio.NewTarget(obfuscatorio.Options{
		MaxDeadCodePasses: cfg.MaxDeadCodePasses,
	}))
	registry.Register(abba.NewTarget(abba.Options{
		NewEvaluator:      evaluatorFactory(cfg),
		MaxDeadCodePasses: cfg.MaxDeadCodePasses,
	}))
	// Registration succeeded, so the id is present.
	_ = registry.SetDefault("obfuscator.io")
	return registry
}

func evaluatorFactory(cfg *config.Config) func() (sandbox.Evaluator, error) {
	if cfg.Sandbox == config.SandboxOff {
		return nil
	}
	backend := sandbox.Backend(cfg.Sandbox)
	return func() (sandbox.Evaluator, error) {
		return sandbox.New(backend)
	}
}
