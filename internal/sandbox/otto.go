package sandbox

import (
	"context"
	"fmt"

	"github.com/robertkrimen/otto"
)

// Otto is the constrained-host backing: an ES5 interpreter with the same
// browser stand-ins but no permissive scope, so fragments that probe unknown
// globals fail instead of being coddled. Decoder fragments, which only touch
// what they declare, behave identically to the goja backing.
type Otto struct {
	vm *otto.Otto
}

// NewOtto builds an interpreter and installs the preludes.
func NewOtto() (*Otto, error) {
	vm := otto.New()
	if _, err := vm.Run(basePrelude); err != nil {
		return nil, fmt.Errorf("sandbox: installing base prelude: %w", err)
	}
	if _, err := vm.Run(ottoPrelude); err != nil {
		return nil, fmt.Errorf("sandbox: installing otto prelude: %w", err)
	}
	return &Otto{vm: vm}, nil
}

// Eval evaluates a fragment and returns its completion value. Otto cannot be
// interrupted mid-run; the context is honored between evaluations only.
func (o *Otto) Eval(ctx context.Context, source string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	if err := o.vm.Set("__source", source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	value, err := o.vm.Run("__evaluate(__source)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	exported, err := value.Export()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	return exported, nil
}
