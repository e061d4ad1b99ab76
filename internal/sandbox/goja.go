package sandbox

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
)

// Goja is the primary evaluator backing: an isolated goja runtime seeded with
// the browser stand-ins and the permissive scope. One runtime serves a whole
// deobfuscation run; decoder calls reuse it.
type Goja struct {
	vm *goja.Runtime
}

// NewGoja builds a runtime and installs the preludes.
func NewGoja() (*Goja, error) {
	vm := goja.New()
	if _, err := vm.RunString(basePrelude); err != nil {
		return nil, fmt.Errorf("sandbox: installing base prelude: %w", err)
	}
	if _, err := vm.RunString(gojaPrelude); err != nil {
		return nil, fmt.Errorf("sandbox: installing goja prelude: %w", err)
	}
	return &Goja{vm: vm}, nil
}

// Eval evaluates a fragment and returns its completion value. Cancelling the
// context interrupts the runtime, which surfaces as an evaluation failure.
func (g *Goja) Eval(ctx context.Context, source string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}

	if ctx.Done() != nil {
		stop := make(chan struct{})
		// LIFO: the watcher is stopped before the interrupt flag is cleared.
		defer g.vm.ClearInterrupt()
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				g.vm.Interrupt(ctx.Err())
			case <-stop:
			}
		}()
	}

	// The fragment travels as a runtime value rather than being spliced into
	// a source string, so no escaping can corrupt it.
	if err := g.vm.Set("__source", source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	value, err := g.vm.RunString("__evaluate(__source)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	if value == nil {
		return nil, nil
	}
	return value.Export(), nil
}
